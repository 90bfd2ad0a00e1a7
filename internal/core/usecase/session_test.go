package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
)

type sessionHarness struct {
	uc      *SessionUseCase
	store   *sessionStoreFake
	gateway *gatewayFake
	storage *storageFake
}

func newSessionHarness() *sessionHarness {
	engine := NewMappingEngine(nil, nil)
	store := newSessionStoreFake()
	gateway := &gatewayFake{}
	storage := &storageFake{}
	uploads := newOrchestrator(gateway, nil, nil, time.Minute)
	uc := NewSessionUseCase(SessionDeps{
		Store:    store,
		Ingestor: NewIngestUseCase(nil, 0),
		Partners: partnerDirectoryFake{},
		Engine:   engine,
		Profiles: NewProfileService(&profileStoreFake{}, partnerDirectoryFake{}, engine),
		Uploads:  uploads,
		Retries:  NewRetryController(uploads, nil),
		Exporter: NewFailedRecordExporter(storage),
	})
	return &sessionHarness{uc: uc, store: store, gateway: gateway, storage: storage}
}

func TestCreateSessionRejectsInvalidFile(t *testing.T) {
	h := newSessionHarness()
	_, err := h.uc.CreateSession(context.Background(), domain.FileHandle{Name: "x.exe", Data: []byte("MZ")})
	var rejected *domain.FileValidationError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected FileValidationError, got %v", err)
	}
	if len(h.store.sessions) != 0 {
		t.Fatalf("expected no session for a rejected file")
	}
}

func TestCreateSessionKeepsFileOnParseError(t *testing.T) {
	h := newSessionHarness()
	view, err := h.uc.CreateSession(context.Background(), jsonFile(`{"broken":`))
	var parseErr *domain.PreviewParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected PreviewParseError, got %v", err)
	}
	if view.State != domain.StateFileSelected || view.File == nil || view.Preview != nil {
		t.Fatalf("expected file kept without preview, got %+v", view)
	}
	if _, ok := h.store.sessions[view.ID]; !ok {
		t.Fatalf("expected session to be stored")
	}
}

func TestHappyPathEndToEnd(t *testing.T) {
	h := newSessionHarness()
	ctx := context.Background()

	view, err := h.uc.CreateSession(ctx, jsonFile(`[{"name":"A","phone":"0911","income":"5000"}]`))
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if len(view.DetectedFields) != 3 || view.DetectedFields[0].SourceField != "name" {
		t.Fatalf("unexpected fields %+v", view.DetectedFields)
	}
	id := view.ID

	if _, err := h.uc.AddMapping(ctx, id, domain.FieldMapping{SourceField: "phone", TargetField: "phoneNumber"}); err != nil {
		t.Fatalf("AddMapping() error = %v", err)
	}
	view, err = h.uc.AddMapping(ctx, id, domain.FieldMapping{SourceField: "income", TargetField: "monthlyIncome"})
	if err != nil {
		t.Fatalf("AddMapping() error = %v", err)
	}
	if view.State != domain.StateReadyToSubmit || len(view.ValidationErrors) != 0 {
		t.Fatalf("expected ready_to_submit, got %s %+v", view.State, view.ValidationErrors)
	}

	if _, err := h.uc.Submit(ctx, id); err == nil {
		t.Fatalf("expected partner guard before partner is set")
	}
	if _, err := h.uc.SetPartner(ctx, id, "bank-1", ""); err != nil {
		t.Fatalf("SetPartner() error = %v", err)
	}
	h.store.sessions[id].SelectMapping("map-1")

	h.gateway.resp = &domain.ApplyResponse{
		Summary:       &domain.ApplySummary{TotalRecords: 1, MappedRecords: 0},
		FailedRecords: []domain.FailedRecord{{Record: domain.RawRecord{"phone": "0911"}, Message: "rejected"}},
	}
	view, err = h.uc.Submit(ctx, id)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if view.State != domain.StateCompleted || view.Result.Errors != 1 {
		t.Fatalf("unexpected view %+v", view)
	}

	key, err := h.uc.ExportFailed(ctx, id)
	if err != nil {
		t.Fatalf("ExportFailed() error = %v", err)
	}
	if !strings.HasPrefix(key, "failed_"+id+"_") || !strings.HasSuffix(key, ".json") {
		t.Fatalf("unexpected export key %s", key)
	}
	var exported []domain.FailedRecord
	if err := json.Unmarshal([]byte(h.storage.saved[key]), &exported); err != nil || len(exported) != 1 {
		t.Fatalf("unexpected export body %s", h.storage.saved[key])
	}
}

func TestSubmitFailureReturnsView(t *testing.T) {
	h := newSessionHarness()
	ctx := context.Background()
	s := readyUploadSession(t, NewMappingEngine(nil, nil))
	_ = h.store.Put(ctx, s)
	h.gateway.err = &domain.NetworkError{Operation: "apply", Err: errors.New("reset")}

	view, err := h.uc.Submit(ctx, s.ID())
	var failed *domain.UploadFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected UploadFailedError, got %v", err)
	}
	if view.State != domain.StateFailed || view.Message != domain.NoResponseMessage {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestSetPartnerUnknown(t *testing.T) {
	h := newSessionHarness()
	view, err := h.uc.CreateSession(context.Background(), jsonFile(`[{"a":1}]`))
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	_, err = h.uc.SetPartner(context.Background(), view.ID, "nobody", "")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResetSessionRemovesIt(t *testing.T) {
	h := newSessionHarness()
	view, err := h.uc.CreateSession(context.Background(), jsonFile(`[{"a":1}]`))
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if err := h.uc.ResetSession(context.Background(), view.ID); err != nil {
		t.Fatalf("ResetSession() error = %v", err)
	}
	if _, err := h.uc.GetSession(context.Background(), view.ID); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after reset, got %v", err)
	}
}

func TestListUploadsWithoutHistory(t *testing.T) {
	h := newSessionHarness()
	_, err := h.uc.ListUploads(context.Background(), "bank-1", 0)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

func TestSubmitCSVWithoutMappingIsGuarded(t *testing.T) {
	h := newSessionHarness()
	ctx := context.Background()
	file := domain.FileHandle{Name: "batch.csv", MimeType: "text/csv", Data: []byte("name,income\nAlice,5000\nBob,7000\n")}

	view, err := h.uc.CreateSession(ctx, file)
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if len(view.Preview.Records) != 2 || len(view.DetectedFields) != 2 {
		t.Fatalf("unexpected preview %+v fields %+v", view.Preview.Records, view.DetectedFields)
	}
	if _, err := h.uc.SetPartner(ctx, view.ID, "bank-1", ""); err != nil {
		t.Fatalf("SetPartner() error = %v", err)
	}

	_, err = h.uc.Submit(ctx, view.ID)
	var guard *domain.GuardError
	if !errors.As(err, &guard) || guard.Reason != domain.GuardMissingMapping {
		t.Fatalf("expected missing mapping guard, got %v", err)
	}
	if !strings.Contains(strings.ToLower(guard.Message()), "select a mapping") {
		t.Fatalf("unexpected guard message %q", guard.Message())
	}
	if h.gateway.calls() != 0 {
		t.Fatalf("expected no network call, got %d", h.gateway.calls())
	}
}

func TestNonNumericIncomeOnThirdRow(t *testing.T) {
	h := newSessionHarness()
	ctx := context.Background()
	body := `[{"phone":"0911","income":"5000"},{"phone":"0912","income":"6200"},{"phone":"0913","income":"abc"}]`

	view, err := h.uc.CreateSession(ctx, jsonFile(body))
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := h.uc.AddMapping(ctx, view.ID, domain.FieldMapping{SourceField: "phone", TargetField: "phoneNumber"}); err != nil {
		t.Fatalf("AddMapping() error = %v", err)
	}
	view, err = h.uc.AddMapping(ctx, view.ID, domain.FieldMapping{SourceField: "income", TargetField: "monthlyIncome"})
	if err != nil {
		t.Fatalf("AddMapping() error = %v", err)
	}

	if len(view.ValidationErrors) != 1 {
		t.Fatalf("expected one validation error, got %+v", view.ValidationErrors)
	}
	got := view.ValidationErrors[0]
	if got.RowIndex != 3 || got.Message != "Row 3: Field 'monthlyIncome' should be a number" {
		t.Fatalf("unexpected validation error %+v", got)
	}
	if view.State != domain.StateMappingInProgress {
		t.Fatalf("expected submission to stay blocked, got %s", view.State)
	}
}
