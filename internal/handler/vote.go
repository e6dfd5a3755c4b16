package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/pixelrelay/vote-system/internal/middleware"
	"github.com/pixelrelay/vote-system/internal/model"
	"github.com/pixelrelay/vote-system/internal/service"
)

// VoteEngine is the part of service.VotingEngine the HTTP layer drives.
type VoteEngine interface {
	Status(ctx context.Context, contestantID string) model.VoteStatus
	SubmitVote(ctx context.Context, contestantID string) (*model.VoteRecord, error)
	Retry(ctx context.Context, contestantID string) (*model.VoteRecord, error)
	ResetVote(ctx context.Context) error
}

type VoteHandler struct {
	engine VoteEngine
	log    zerolog.Logger
}

func NewVoteHandler(engine VoteEngine, logger zerolog.Logger) *VoteHandler {
	return &VoteHandler{engine: engine, log: logger}
}

// Status handles GET /api/contestants/:contestantId/vote
func (h *VoteHandler) Status(c fiber.Ctx) error {
	id, errMsg := middleware.ValidateContestantID(c.Params("contestantId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	return c.JSON(h.engine.Status(c.Context(), id))
}

// Submit handles POST /api/contestants/:contestantId/vote
func (h *VoteHandler) Submit(c fiber.Ctx) error {
	id, errMsg := middleware.ValidateContestantID(c.Params("contestantId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	rec, err := h.engine.SubmitVote(c.Context(), id)
	if err != nil {
		return h.voteError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(model.VoteResponse{Success: true, Record: rec})
}

// Retry handles POST /api/contestants/:contestantId/vote/retry
func (h *VoteHandler) Retry(c fiber.Ctx) error {
	id, errMsg := middleware.ValidateContestantID(c.Params("contestantId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	rec, err := h.engine.Retry(c.Context(), id)
	if err != nil {
		return h.voteError(c, err)
	}
	return c.JSON(model.VoteResponse{Success: rec != nil, Record: rec})
}

// Reset handles DELETE /api/vote
func (h *VoteHandler) Reset(c fiber.Ctx) error {
	if err := h.engine.ResetVote(c.Context()); err != nil {
		return h.voteError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *VoteHandler) voteError(c fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", middleware.SanitizePath(c.Path())).Msg("vote request failed")
	}
	return middleware.ErrorResponse(c, status, service.ErrorCode(err), service.UserMessage(err))
}

// StatusFor maps a service error onto its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrAlreadyVoted),
		errors.Is(err, service.ErrNothingToRetry):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrWindowClosed),
		errors.Is(err, service.ErrResetDisabled):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrSubmitInProgress):
		return fiber.StatusTooManyRequests
	case errors.Is(err, service.ErrUnknownContestant):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
