package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/erclient/internal/syncer"
	"github.com/Checker-Finance/erclient/pkg/model"
)

// SyncRunner is the part of *syncer.Syncer the API drives.
type SyncRunner interface {
	Claim() (syncer.RunFunc, bool)
	Last() (model.SyncRun, bool)
	Running() bool
}

// SyncHandler exposes manual triggers and status for the sync job.
type SyncHandler struct {
	Logger  *zap.Logger
	Syncer  SyncRunner
	Timeout time.Duration
}

func NewSyncHandler(logger *zap.Logger, s SyncRunner) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{Logger: logger, Syncer: s, Timeout: 10 * time.Minute}
}

// StatusResponse is returned by GET /api/v1/sync/status.
type StatusResponse struct {
	Running bool           `json:"running"`
	LastRun *model.SyncRun `json:"last_run,omitempty"`
}

// Trigger starts a run. The run is claimed before answering, so a concurrent
// trigger gets 409 rather than a 202 for a run that never happens.
// ?full=true drops the watermark first. With ?wait=true it blocks and returns
// the run summary; otherwise it answers 202 immediately.
func (h *SyncHandler) Trigger(c *fiber.Ctx) error {
	run, ok := h.Syncer.Claim()
	if !ok {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": syncer.ErrRunInProgress.Error()})
	}
	full := c.QueryBool("full")

	if c.QueryBool("wait") {
		ctx, cancel := context.WithTimeout(c.UserContext(), h.Timeout)
		defer cancel()
		result, err := run(ctx, full)
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(result)
		}
		return c.Status(fiber.StatusOK).JSON(result)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.Timeout)
		defer cancel()
		if _, err := run(ctx, full); err != nil {
			h.Logger.Error("api.sync_trigger_failed", zap.Bool("full", full), zap.Error(err))
		}
	}()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "started", "full": full})
}

func (h *SyncHandler) Status(c *fiber.Ctx) error {
	resp := StatusResponse{Running: h.Syncer.Running()}
	if last, ok := h.Syncer.Last(); ok {
		resp.LastRun = &last
	}
	return c.JSON(resp)
}
