package scoring

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
	"github.com/aman3729/Credit-Score-sub000/internal/infrastructure/resilience"
)

func testClient(baseURL string) *Client {
	return New(baseURL, time.Second, resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}))
}

func TestApplySendsMultipartWithHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/schema-mapping/apply/map-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("autoScore") != "true" || q.Get("partnerId") != "bank-1" || q.Get("engine") != "ai" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("X-Upload-Id") != "up-1" || r.Header.Get("Accept") != "application/json" {
			t.Errorf("missing headers %v", r.Header)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			return
		}
		if r.FormValue("partnerId") != "bank-1" {
			t.Errorf("expected partnerId form field")
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			return
		}
		body, _ := io.ReadAll(file)
		if header.Filename != "batch.csv" || string(body) != "a,b\n1,2\n" {
			t.Errorf("unexpected file %s %q", header.Filename, body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"summary":{"totalRecords":3,"mappedRecords":2,"scoredRecords":2,"averageScore":640.5},"failedRecords":[{"record":{"a":"9"},"error":"bad phone","row":3}]}}`))
	}))
	defer srv.Close()

	var lastSent, lastTotal int64
	resp, err := testClient(srv.URL+"/api/").Apply(context.Background(), domain.ApplyRequest{
		MappingID:   "map-1",
		PartnerID:   "bank-1",
		Engine:      domain.EngineAI,
		UploadID:    "up-1",
		Filename:    "batch.csv",
		ContentType: "text/csv",
		Body:        []byte("a,b\n1,2\n"),
	}, func(sent, total int64) {
		lastSent, lastTotal = sent, total
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if resp.Summary == nil || resp.Summary.MappedRecords != 2 || resp.Summary.AverageScore != 640.5 {
		t.Fatalf("unexpected summary %+v", resp.Summary)
	}
	if len(resp.FailedRecords) != 1 || resp.FailedRecords[0].Message != "bad phone" || *resp.FailedRecords[0].Row != 3 {
		t.Fatalf("unexpected failed records %+v", resp.FailedRecords)
	}
	if lastTotal == 0 || lastSent != lastTotal {
		t.Fatalf("expected final progress at total, got %d/%d", lastSent, lastTotal)
	}
}

func TestApplyServerErrorCarriesBackendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Mapping not found"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Apply(context.Background(), domain.ApplyRequest{MappingID: "m", Body: []byte("x")}, nil)
	var serverErr *domain.ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if serverErr.StatusCode != http.StatusUnprocessableEntity || serverErr.UserMessage() != "Mapping not found" {
		t.Fatalf("unexpected server error %+v", serverErr)
	}
}

func TestApplyUnreachableIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := testClient(url).Apply(context.Background(), domain.ApplyRequest{MappingID: "m", Body: []byte("x")}, nil)
	var netErr *domain.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind")
	}
}

func TestApplyWithoutSummaryKeepsMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"Scoring engine unavailable"}`))
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).Apply(context.Background(), domain.ApplyRequest{MappingID: "m", Body: []byte("x")}, nil)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if resp.Summary != nil || resp.Message != "Scoring engine unavailable" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestApplyUndecodableBodyIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":"not an object"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Apply(context.Background(), domain.ApplyRequest{MappingID: "m", Body: []byte("x")}, nil)
	var malformed *domain.MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestApplyRetryCounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"successCount":1,"errorCount":1,"failedRecords":[{"record":{"id":2},"message":"still bad"}]}}`))
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).Apply(context.Background(), domain.ApplyRequest{MappingID: "m", Body: []byte("[]")}, nil)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if resp.SuccessCount == nil || *resp.SuccessCount != 1 || resp.ErrorCount == nil || *resp.ErrorCount != 1 {
		t.Fatalf("unexpected counts %+v", resp)
	}
}

func TestListProfilesRetriesTemporaryFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/schema-mapping/partner/bank-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"_id":"p1","name":"Default","partnerId":"bank-1","fileType":"csv","fieldMappings":[{"sourceField":"phone","targetField":"phoneNumber","transformation":"none","isRequired":true}]}]}`))
	}))
	defer srv.Close()

	profiles, err := testClient(srv.URL).ListByPartner(context.Background(), "bank-1")
	if err != nil {
		t.Fatalf("ListByPartner() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
	if len(profiles) != 1 || profiles[0].ID != "p1" || len(profiles[0].FieldMappings) != 1 {
		t.Fatalf("unexpected profiles %+v", profiles)
	}
}

func TestCreateProfileIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Create(context.Background(), domain.NewProfileRequest{Name: "x", PartnerID: "bank-1"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestCreateProfileUnwrapsData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/schema-mapping/create" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"p9","name":"Bank A","partnerId":"bank-1"}}`))
	}))
	defer srv.Close()

	profile, err := testClient(srv.URL).Create(context.Background(), domain.NewProfileRequest{Name: "Bank A", PartnerID: "bank-1"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if profile.ID != "p9" || profile.Name != "Bank A" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}
