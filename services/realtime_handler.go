package services

import (
	"context"

	"github.com/Dosada05/court-scheduler/brackets"
	"github.com/Dosada05/court-scheduler/models"
)

// realtimeHandler lets the websocket hub drive the scheduler.
type realtimeHandler struct {
	scheduler SchedulerService
}

func NewRealtimeHandler(scheduler SchedulerService) brackets.CommandHandler {
	return &realtimeHandler{scheduler: scheduler}
}

func (h *realtimeHandler) Snapshot(ctx context.Context, key models.BracketKey) (*models.Snapshot, error) {
	return h.scheduler.GetState(ctx, key)
}

func (h *realtimeHandler) AssignNext(ctx context.Context, key models.BracketKey, courtID int, requestID string) (*models.AssignResult, error) {
	return h.scheduler.AssignNext(ctx, key, courtID, requestID)
}

func (h *realtimeHandler) ErrorCode(err error) string {
	return ErrorCode(err)
}
