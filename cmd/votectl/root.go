package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pixelrelay/vote-system/internal/app"
	"github.com/pixelrelay/vote-system/internal/config"
)

type rootParams struct {
	logLevel string
	clientID string
	store    string
	dataDir  string
}

func newRootCmd() *cobra.Command {
	var p rootParams
	rootCmd := &cobra.Command{
		Use:          "votectl",
		Short:        "Inspect and cast this client's talent show vote",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&p.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&p.clientID, "client-id", "", "override CLIENT_ID")
	rootCmd.PersistentFlags().StringVar(&p.store, "store", "", "override STORE_DRIVER")
	rootCmd.PersistentFlags().StringVar(&p.dataDir, "data-dir", "", "override DATA_DIR")

	rootCmd.AddCommand(
		newStatusCmd(&p),
		newVoteCmd(&p),
		newResetCmd(&p),
		newSnapshotCmd(&p),
	)
	return rootCmd
}

// loadConfig applies flag overrides on top of the environment.
func (p *rootParams) loadConfig() *config.Config {
	cfg := config.Load()
	if p.clientID != "" {
		cfg.ClientID = p.clientID
	}
	if p.store != "" {
		cfg.StoreDriver = p.store
	}
	if p.dataDir != "" {
		cfg.DataDir = p.dataDir
	}
	return cfg
}

func (p *rootParams) logger(w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(p.logLevel)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// withApp builds the voting stack for one command and tears it down after.
func (p *rootParams) withApp(cmd *cobra.Command, cfg *config.Config, fn func(ctx context.Context, a *app.App) error) error {
	if cfg == nil {
		cfg = p.loadConfig()
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg, p.logger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
