package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
	"github.com/aman3729/Credit-Score-sub000/internal/core/ports"
)

// HistoryRecorder persists finished upload attempts delivered by the queue.
type HistoryRecorder struct {
	history ports.UploadHistory
}

func NewHistoryRecorder(history ports.UploadHistory) *HistoryRecorder {
	return &HistoryRecorder{history: history}
}

func (uc *HistoryRecorder) RecordEvent(ctx context.Context, event domain.UploadEvent) error {
	if strings.TrimSpace(event.UploadID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record upload event", errors.New("upload id is required"))
	}
	if event.State != domain.StateCompleted && event.State != domain.StateFailed {
		return domain.WrapError(domain.ErrInvalidInput, "record upload event", fmt.Errorf("state %q is not terminal", event.State))
	}
	if err := uc.history.Record(ctx, event.Record()); err != nil {
		return fmt.Errorf("record upload %s: %w", event.UploadID, err)
	}
	return nil
}
