package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pixelrelay/vote-system/internal/app"
	"github.com/pixelrelay/vote-system/internal/service"
)

func newStatusCmd(p *rootParams) *cobra.Command {
	return &cobra.Command{
		Use:   "status [contestant-id]",
		Short: "Show the stored vote, or one contestant's view of it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return p.withApp(cmd, nil, func(ctx context.Context, a *app.App) error {
				if len(args) == 1 {
					return printJSON(cmd.OutOrStdout(), a.Engine.Status(ctx, args[0]))
				}
				rec := a.Votes.Read(ctx)
				if rec == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "no vote recorded")
					return nil
				}
				return printJSON(cmd.OutOrStdout(), rec)
			})
		},
	}
}

func newVoteCmd(p *rootParams) *cobra.Command {
	return &cobra.Command{
		Use:   "vote <contestant-id>",
		Short: "Cast this client's single vote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return p.withApp(cmd, nil, func(ctx context.Context, a *app.App) error {
				// The engine only accepts votes against a live window.
				if err := a.Refresh.FetchNow(ctx); err != nil {
					return fmt.Errorf("fetch voting window: %w", err)
				}
				rec, err := a.Engine.SubmitVote(ctx, args[0])
				if err != nil {
					return fmt.Errorf("%s: %w", service.ErrorCode(err), err)
				}
				return printJSON(cmd.OutOrStdout(), rec)
			})
		},
	}
}

func newResetCmd(p *rootParams) *cobra.Command {
	var allow bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the stored vote (testing only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := p.loadConfig()
			cfg.AllowVoteReset = cfg.AllowVoteReset || allow
			return p.withApp(cmd, cfg, func(ctx context.Context, a *app.App) error {
				if err := a.Engine.ResetVote(ctx); err != nil {
					return fmt.Errorf("%s: %w", service.ErrorCode(err), err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "vote cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&allow, "allow-reset", false, "permit clearing the vote record")
	return cmd
}

func newSnapshotCmd(p *rootParams) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch and print the current contestants and voting window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return p.withApp(cmd, nil, func(ctx context.Context, a *app.App) error {
				if err := a.Refresh.FetchNow(ctx); err != nil {
					return fmt.Errorf("fetch snapshot: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), a.Refresh.State())
			})
		},
	}
}
