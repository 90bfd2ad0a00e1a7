package ports

import (
	"context"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
)

// FileIngestor is the inbound contract for file intake and preview.
type FileIngestor interface {
	Ingest(ctx context.Context, file domain.FileHandle) (*domain.Preview, error)
}

// SessionService is the inbound contract driven by the HTTP API.
type SessionService interface {
	CreateSession(ctx context.Context, file domain.FileHandle) (domain.SessionView, error)
	GetSession(ctx context.Context, id string) (domain.SessionView, error)
	ResetSession(ctx context.Context, id string) error
	SetPartner(ctx context.Context, id, partnerID string, engine domain.ScoringEngine) (domain.SessionView, error)
	ListPartners(ctx context.Context) ([]domain.Partner, error)

	AddMapping(ctx context.Context, id string, mapping domain.FieldMapping) (domain.SessionView, error)
	UpdateMapping(ctx context.Context, id, target string, patch domain.FieldMappingPatch) (domain.SessionView, error)
	RemoveMapping(ctx context.Context, id, target string) (domain.SessionView, error)

	ListProfiles(ctx context.Context, partnerID string) ([]domain.MappingProfile, error)
	ApplyProfile(ctx context.Context, id, profileID string) (domain.SessionView, error)
	SaveProfile(ctx context.Context, id, description string, prompter Prompter) (*domain.MappingProfile, error)

	Submit(ctx context.Context, id string) (domain.SessionView, error)
	Retry(ctx context.Context, id string, confirmer Confirmer) (RetryOutcome, error)
	ExportFailed(ctx context.Context, id string) (string, error)
	ListUploads(ctx context.Context, partnerID string, limit int) ([]domain.UploadRecord, error)
}

// RetryOutcome reports what a retry request did.
type RetryOutcome struct {
	Session   domain.SessionView    `json:"session"`
	Declined  bool                  `json:"declined"`
	Exhausted bool                  `json:"exhausted"`
	Failed    []domain.FailedRecord `json:"failedRecords"`
}

// UploadEventRecorder is the inbound contract of the history worker.
type UploadEventRecorder interface {
	RecordEvent(ctx context.Context, event domain.UploadEvent) error
}
