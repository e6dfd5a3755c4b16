package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/pixelrelay/vote-system/internal/model"
)

// SnapshotSource is the part of service.RefreshWorker the HTTP layer reads.
type SnapshotSource interface {
	State() model.RefreshState
	Refetch() bool
}

type SnapshotHandler struct {
	src SnapshotSource
}

func NewSnapshotHandler(src SnapshotSource) *SnapshotHandler {
	return &SnapshotHandler{src: src}
}

// Get handles GET /api/snapshot
func (h *SnapshotHandler) Get(c fiber.Ctx) error {
	return c.JSON(h.src.State())
}

// Refetch handles POST /api/snapshot/refetch
func (h *SnapshotHandler) Refetch(c fiber.Ctx) error {
	if !h.src.Refetch() {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"started": false, "reason": "fetch already in flight"})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"started": true})
}
