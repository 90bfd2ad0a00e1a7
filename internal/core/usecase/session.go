package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
	"github.com/aman3729/Credit-Score-sub000/internal/core/ports"
)

const defaultHistoryLimit = 50

type SessionDeps struct {
	Store         ports.SessionStore
	Ingestor      ports.FileIngestor
	Partners      ports.PartnerDirectory
	History       ports.UploadHistory
	Engine        *MappingEngine
	Profiles      *ProfileService
	Uploads       *UploadOrchestrator
	Retries       *RetryController
	Exporter      *FailedRecordExporter
	RetryMax      int
	DefaultEngine domain.ScoringEngine
}

// SessionUseCase implements ports.SessionService on top of the individual
// pipeline stages.
type SessionUseCase struct {
	store         ports.SessionStore
	ingestor      ports.FileIngestor
	partners      ports.PartnerDirectory
	history       ports.UploadHistory
	engine        *MappingEngine
	profiles      *ProfileService
	uploads       *UploadOrchestrator
	retries       *RetryController
	exporter      *FailedRecordExporter
	retryMax      int
	defaultEngine domain.ScoringEngine
	now           func() time.Time
}

func NewSessionUseCase(deps SessionDeps) *SessionUseCase {
	if deps.RetryMax <= 0 {
		deps.RetryMax = domain.DefaultRetryMax
	}
	if deps.DefaultEngine == "" {
		deps.DefaultEngine = domain.EngineDefault
	}
	return &SessionUseCase{
		store:         deps.Store,
		ingestor:      deps.Ingestor,
		partners:      deps.Partners,
		history:       deps.History,
		engine:        deps.Engine,
		profiles:      deps.Profiles,
		uploads:       deps.Uploads,
		retries:       deps.Retries,
		exporter:      deps.Exporter,
		retryMax:      deps.RetryMax,
		defaultEngine: deps.DefaultEngine,
		now:           time.Now,
	}
}

// CreateSession selects the file and builds its preview. A rejected file
// creates no session; a preview that cannot be parsed keeps the session in
// FileSelected and returns both the view and the parse error.
func (uc *SessionUseCase) CreateSession(ctx context.Context, file domain.FileHandle) (domain.SessionView, error) {
	s := domain.NewUploadSession(uuid.NewString(), uc.now().UTC())
	s.SetRetryMax(uc.retryMax)
	if err := s.SelectFile(file); err != nil {
		return domain.SessionView{}, err
	}
	handle, err := s.BeginPreview()
	if err != nil {
		return domain.SessionView{}, err
	}

	preview, err := uc.ingestor.Ingest(ctx, handle)
	if err != nil {
		var rejected *domain.FileValidationError
		if errors.As(err, &rejected) {
			return domain.SessionView{}, err
		}
		if failErr := s.FailPreview(err); failErr != nil {
			return domain.SessionView{}, fmt.Errorf("%w; mark preview failed: %v", err, failErr)
		}
		if putErr := uc.store.Put(ctx, s); putErr != nil {
			return domain.SessionView{}, fmt.Errorf("store session: %w", putErr)
		}
		return s.View(), err
	}

	if err := s.CompletePreview(preview, DetectFields(preview), uc.engine.ValidateFunc()); err != nil {
		return domain.SessionView{}, fmt.Errorf("complete preview: %w", err)
	}
	if err := uc.store.Put(ctx, s); err != nil {
		return domain.SessionView{}, fmt.Errorf("store session: %w", err)
	}
	return s.View(), nil
}

func (uc *SessionUseCase) GetSession(ctx context.Context, id string) (domain.SessionView, error) {
	s, err := uc.store.Get(ctx, id)
	if err != nil {
		return domain.SessionView{}, err
	}
	return s.View(), nil
}

// ResetSession clears the session and drops it from the store.
func (uc *SessionUseCase) ResetSession(ctx context.Context, id string) error {
	s, err := uc.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Reset(); err != nil {
		return err
	}
	return uc.store.Delete(ctx, id)
}

func (uc *SessionUseCase) SetPartner(ctx context.Context, id, partnerID string, engine domain.ScoringEngine) (domain.SessionView, error) {
	s, err := uc.store.Get(ctx, id)
	if err != nil {
		return domain.SessionView{}, err
	}
	partnerID = strings.TrimSpace(partnerID)
	if partnerID == "" {
		return domain.SessionView{}, &domain.GuardError{Reason: domain.GuardMissingPartner}
	}
	partner, err := uc.partners.Get(ctx, partnerID)
	if err != nil {
		return domain.SessionView{}, fmt.Errorf("lookup partner: %w", err)
	}
	if engine == "" {
		engine = uc.defaultEngine
	}
	if err := s.SetPartner(partner.ID, partner.Name, engine); err != nil {
		return domain.SessionView{}, err
	}
	return s.View(), nil
}

func (uc *SessionUseCase) AddMapping(ctx context.Context, id string, mapping domain.FieldMapping) (domain.SessionView, error) {
	return uc.edit(ctx, id, func(s *domain.UploadSession) error {
		return uc.engine.AddMapping(s, mapping)
	})
}

func (uc *SessionUseCase) UpdateMapping(ctx context.Context, id, target string, patch domain.FieldMappingPatch) (domain.SessionView, error) {
	return uc.edit(ctx, id, func(s *domain.UploadSession) error {
		return uc.engine.UpdateMapping(s, target, patch)
	})
}

func (uc *SessionUseCase) RemoveMapping(ctx context.Context, id, target string) (domain.SessionView, error) {
	return uc.edit(ctx, id, func(s *domain.UploadSession) error {
		return uc.engine.RemoveMapping(s, target)
	})
}

func (uc *SessionUseCase) ListProfiles(ctx context.Context, partnerID string) ([]domain.MappingProfile, error) {
	return uc.profiles.List(ctx, partnerID)
}

func (uc *SessionUseCase) ApplyProfile(ctx context.Context, id, profileID string) (domain.SessionView, error) {
	return uc.edit(ctx, id, func(s *domain.UploadSession) error {
		return uc.profiles.Apply(ctx, s, profileID)
	})
}

func (uc *SessionUseCase) SaveProfile(ctx context.Context, id, description string, prompter ports.Prompter) (*domain.MappingProfile, error) {
	s, err := uc.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.profiles.Save(ctx, s, description, prompter)
}

// Submit runs the upload. Progress is logged at debug level.
func (uc *SessionUseCase) Submit(ctx context.Context, id string) (domain.SessionView, error) {
	s, err := uc.store.Get(ctx, id)
	if err != nil {
		return domain.SessionView{}, err
	}
	_, err = uc.uploads.Submit(ctx, s, func(p domain.UploadProgress) {
		slog.Debug("upload_progress",
			"session_id", id,
			"sent_bytes", p.Sent,
			"total_bytes", p.Total,
			"percent", p.Percent,
		)
	})
	var failed *domain.UploadFailedError
	if err != nil && !errors.As(err, &failed) {
		return domain.SessionView{}, err
	}
	return s.View(), err
}

func (uc *SessionUseCase) Retry(ctx context.Context, id string, confirmer ports.Confirmer) (ports.RetryOutcome, error) {
	s, err := uc.store.Get(ctx, id)
	if err != nil {
		return ports.RetryOutcome{}, err
	}
	return uc.retries.Retry(ctx, s, confirmer)
}

func (uc *SessionUseCase) ExportFailed(ctx context.Context, id string) (string, error) {
	s, err := uc.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return uc.exporter.Export(ctx, s)
}

func (uc *SessionUseCase) ListPartners(ctx context.Context) ([]domain.Partner, error) {
	return uc.partners.List(ctx)
}

func (uc *SessionUseCase) ListUploads(ctx context.Context, partnerID string, limit int) ([]domain.UploadRecord, error) {
	if uc.history == nil {
		return nil, domain.WrapError(domain.ErrTemporary, "list uploads", errors.New("upload history is not configured"))
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	records, err := uc.history.ListByPartner(ctx, partnerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list upload history: %w", err)
	}
	return records, nil
}

func (uc *SessionUseCase) edit(ctx context.Context, id string, fn func(*domain.UploadSession) error) (domain.SessionView, error) {
	s, err := uc.store.Get(ctx, id)
	if err != nil {
		return domain.SessionView{}, err
	}
	if err := fn(s); err != nil {
		return domain.SessionView{}, err
	}
	return s.View(), nil
}
