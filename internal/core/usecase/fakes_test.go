package usecase

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
)

type gatewayFake struct {
	mu       sync.Mutex
	resp     *domain.ApplyResponse
	err      error
	block    bool
	progress [][2]int64
	requests []domain.ApplyRequest
}

func (f *gatewayFake) Apply(ctx context.Context, req domain.ApplyRequest, progress func(sent, total int64)) (*domain.ApplyResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	for _, p := range f.progress {
		progress(p[0], p[1])
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.resp, f.err
}

func (f *gatewayFake) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type publisherFake struct {
	events []domain.UploadEvent
	err    error
}

func (f *publisherFake) PublishUploadFinished(_ context.Context, event domain.UploadEvent) error {
	f.events = append(f.events, event)
	return f.err
}

type observerFake struct {
	uploads   []string
	decisions []string
}

func (f *observerFake) ObserveUpload(kind string, state domain.SessionState, _ *domain.UploadResult, _ int, _ float64) {
	f.uploads = append(f.uploads, kind+":"+string(state))
}

func (f *observerFake) ObserveRetryDecision(decision string) {
	f.decisions = append(f.decisions, decision)
}

type confirmerFake struct {
	answer bool
	err    error
	asked  []domain.ConfirmationRequest
}

func (f *confirmerFake) Confirm(_ context.Context, req domain.ConfirmationRequest) (bool, error) {
	f.asked = append(f.asked, req)
	return f.answer, f.err
}

type prompterFake struct {
	value string
	ok    bool
	calls int
}

func (f *prompterFake) Prompt(context.Context, domain.InputRequest) (string, bool, error) {
	f.calls++
	return f.value, f.ok, nil
}

type profileStoreFake struct {
	profiles  map[string][]domain.MappingProfile
	created   []domain.NewProfileRequest
	listCalls int
}

func (f *profileStoreFake) ListByPartner(_ context.Context, partnerID string) ([]domain.MappingProfile, error) {
	f.listCalls++
	return f.profiles[partnerID], nil
}

func (f *profileStoreFake) Create(_ context.Context, req domain.NewProfileRequest) (*domain.MappingProfile, error) {
	f.created = append(f.created, req)
	profile := domain.MappingProfile{
		ID:            "profile-" + req.Name,
		Name:          req.Name,
		Description:   req.Description,
		PartnerID:     req.PartnerID,
		PartnerName:   req.PartnerName,
		FileType:      req.FileType,
		FieldMappings: req.FieldMappings,
	}
	if f.profiles == nil {
		f.profiles = make(map[string][]domain.MappingProfile)
	}
	f.profiles[req.PartnerID] = append(f.profiles[req.PartnerID], profile)
	return &profile, nil
}

type partnerDirectoryFake struct{}

func (partnerDirectoryFake) List(context.Context) ([]domain.Partner, error) {
	return []domain.Partner{{ID: "bank-1", Name: "First Bank", Type: "bank"}}, nil
}

func (partnerDirectoryFake) Get(_ context.Context, id string) (domain.Partner, error) {
	if id != "bank-1" {
		return domain.Partner{}, domain.WrapError(domain.ErrNotFound, "get partner", io.EOF)
	}
	return domain.Partner{ID: "bank-1", Name: "First Bank", Type: "bank"}, nil
}

type storageFake struct {
	saved map[string]string
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = make(map[string]string)
	}
	f.saved[key] = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.saved[key])), nil
}

type sessionStoreFake struct {
	sessions map[string]*domain.UploadSession
}

func newSessionStoreFake() *sessionStoreFake {
	return &sessionStoreFake{sessions: make(map[string]*domain.UploadSession)}
}

func (f *sessionStoreFake) Put(_ context.Context, s *domain.UploadSession) error {
	f.sessions[s.ID()] = s
	return nil
}

func (f *sessionStoreFake) Get(_ context.Context, id string) (*domain.UploadSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get session", io.EOF)
	}
	return s, nil
}

func (f *sessionStoreFake) Delete(_ context.Context, id string) error {
	delete(f.sessions, id)
	return nil
}

// readyUploadSession returns a session that passes every submission guard.
func readyUploadSession(t *testing.T, engine *MappingEngine) *domain.UploadSession {
	t.Helper()
	s := domain.NewUploadSession("s-1", time.Now())
	body := `[{"phone":"0911","income":"5000"}]`
	if err := s.SelectFile(jsonFile(body)); err != nil {
		t.Fatalf("SelectFile() error = %v", err)
	}
	file, err := s.BeginPreview()
	if err != nil {
		t.Fatalf("BeginPreview() error = %v", err)
	}
	preview, err := NewIngestUseCase(nil, 0).Ingest(context.Background(), file)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if err := s.CompletePreview(preview, DetectFields(preview), engine.ValidateFunc()); err != nil {
		t.Fatalf("CompletePreview() error = %v", err)
	}
	if err := engine.AddMapping(s, domain.FieldMapping{SourceField: "phone", TargetField: "phoneNumber"}); err != nil {
		t.Fatalf("AddMapping() error = %v", err)
	}
	if err := engine.AddMapping(s, domain.FieldMapping{SourceField: "income", TargetField: "monthlyIncome", Transformation: domain.TransformNumberFormat}); err != nil {
		t.Fatalf("AddMapping() error = %v", err)
	}
	if err := s.SetPartner("bank-1", "First Bank", domain.EngineDefault); err != nil {
		t.Fatalf("SetPartner() error = %v", err)
	}
	if err := s.SelectMapping("map-1"); err != nil {
		t.Fatalf("SelectMapping() error = %v", err)
	}
	if s.State() != domain.StateReadyToSubmit {
		t.Fatalf("expected ready_to_submit, got %s", s.State())
	}
	return s
}

func intPtr(v int) *int { return &v }
