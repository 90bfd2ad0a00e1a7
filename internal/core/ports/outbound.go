package ports

import (
	"context"
	"io"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
)

// ScoringGateway posts files to the remote scoring apply endpoint.
type ScoringGateway interface {
	Apply(ctx context.Context, req domain.ApplyRequest, progress func(sent, total int64)) (*domain.ApplyResponse, error)
}

// ProfileStore is the remote mapping-profile store.
type ProfileStore interface {
	ListByPartner(ctx context.Context, partnerID string) ([]domain.MappingProfile, error)
	Create(ctx context.Context, req domain.NewProfileRequest) (*domain.MappingProfile, error)
}

// PartnerDirectory enumerates the partners an upload can be made for.
type PartnerDirectory interface {
	List(ctx context.Context) ([]domain.Partner, error)
	Get(ctx context.Context, id string) (domain.Partner, error)
}

// SessionStore keeps live upload sessions.
type SessionStore interface {
	Put(ctx context.Context, session *domain.UploadSession) error
	Get(ctx context.Context, id string) (*domain.UploadSession, error)
	Delete(ctx context.Context, id string) error
}

// SpreadsheetReader reads the leading rows of the first sheet of a workbook.
type SpreadsheetReader interface {
	ReadRows(ctx context.Context, data []byte, limit int) ([][]string, error)
}

// ObjectStorage stores exported files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// EventPublisher publishes upload lifecycle events.
type EventPublisher interface {
	PublishUploadFinished(ctx context.Context, event domain.UploadEvent) error
}

// EventSubscriber consumes upload lifecycle events.
type EventSubscriber interface {
	SubscribeUploadFinished(ctx context.Context, handler func(context.Context, domain.UploadEvent) error) error
}

// UploadHistory persists upload outcomes.
type UploadHistory interface {
	Record(ctx context.Context, rec domain.UploadRecord) error
	ListByPartner(ctx context.Context, partnerID string, limit int) ([]domain.UploadRecord, error)
}

// UploadObserver receives upload measurements.
type UploadObserver interface {
	ObserveUpload(kind string, state domain.SessionState, result *domain.UploadResult, failed int, elapsedSeconds float64)
	ObserveRetryDecision(decision string)
}

// Confirmer asks the user to approve an action and resumes with the answer.
type Confirmer interface {
	Confirm(ctx context.Context, req domain.ConfirmationRequest) (bool, error)
}

// Prompter asks the user for a value; ok is false when the request was cancelled.
type Prompter interface {
	Prompt(ctx context.Context, req domain.InputRequest) (value string, ok bool, err error)
}
