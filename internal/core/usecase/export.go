package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
	"github.com/aman3729/Credit-Score-sub000/internal/core/ports"
)

// FailedRecordExporter writes a session's failed records as a JSON document.
type FailedRecordExporter struct {
	storage ports.ObjectStorage
	now     func() time.Time
}

func NewFailedRecordExporter(storage ports.ObjectStorage) *FailedRecordExporter {
	return &FailedRecordExporter{
		storage: storage,
		now:     time.Now,
	}
}

// Export returns the storage key of the written document.
func (e *FailedRecordExporter) Export(ctx context.Context, s *domain.UploadSession) (string, error) {
	view := s.View()
	if len(view.FailedRecords) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "export failed records", errors.New("no failed records"))
	}

	suffix := view.UploadID
	if suffix == "" {
		suffix = e.now().UTC().Format("20060102T150405Z")
	}
	key := fmt.Sprintf("failed_%s_%s.json", view.ID, suffix)

	body, err := json.MarshalIndent(view.FailedRecords, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode failed records: %w", err)
	}
	if err := e.storage.Save(ctx, key, bytes.NewReader(body)); err != nil {
		return "", fmt.Errorf("save failed records: %w", err)
	}
	return key, nil
}
