package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/aman3729/Credit-Score-sub000/internal/config"
	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
	"github.com/aman3729/Credit-Score-sub000/internal/core/ports"
	"github.com/aman3729/Credit-Score-sub000/internal/observability/metrics"
)

const (
	serviceName      = "credit-upload-api"
	multipartMemory  = 32 << 20
	multipartSlack   = 1 << 20
	maxJSONBodyBytes = 1 << 20
)

type Router struct {
	cfg      config.Config
	sessions ports.SessionService
	metrics  *metrics.HTTPServerMetrics
	openAPI  []byte
	limiter  *rate.Limiter
}

// NewRouter fails when the embedded API description does not validate.
func NewRouter(cfg config.Config, sessions ports.SessionService, httpMetrics *metrics.HTTPServerMetrics) (*Router, error) {
	_, openAPI, err := loadOpenAPI(context.Background())
	if err != nil {
		return nil, err
	}
	var limiter *rate.Limiter
	if cfg.APIRateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.APIRateLimitRPS), max(cfg.APIRateLimitBurst, 1))
	}
	return &Router{
		cfg:      cfg,
		sessions: sessions,
		metrics:  httpMetrics,
		openAPI:  openAPI,
		limiter:  limiter,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", rt.healthz)
	r.Get("/openapi.json", rt.openAPIDocument)
	if rt.metrics != nil {
		r.Handle("/metrics", rt.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(rateLimitMiddleware(rt.limiter, rt.recordRateLimited))

		r.Get("/partners", rt.listPartners)
		r.Get("/partners/{partnerID}/profiles", rt.listProfiles)
		r.Get("/partners/{partnerID}/uploads", rt.listUploads)

		r.Post("/sessions", rt.createSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", rt.getSession)
			r.Delete("/", rt.resetSession)
			r.Put("/partner", rt.setPartner)
			r.Post("/mappings", rt.addMapping)
			r.Patch("/mappings/{target}", rt.updateMapping)
			r.Delete("/mappings/{target}", rt.removeMapping)
			r.Post("/profiles", rt.saveProfile)
			r.Post("/profiles/{profileID}/apply", rt.applyProfile)
			r.Post("/submit", rt.submit)
			r.Post("/retry", rt.retry)
			r.Post("/export", rt.exportFailed)
		})
	})

	if rt.metrics != nil {
		return rt.metrics.Middleware(serviceName, r)
	}
	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPIDocument(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rt.openAPI)
}

func (rt *Router) recordRateLimited(r *http.Request) {
	if rt.metrics != nil {
		rt.metrics.RecordRateLimited(serviceName, r.URL.Path)
	}
}

func (rt *Router) listPartners(w http.ResponseWriter, r *http.Request) {
	partners, err := rt.sessions.ListPartners(r.Context())
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, partners)
}

func (rt *Router) listProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := rt.sessions.ListProfiles(r.Context(), chi.URLParam(r, "partnerID"))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (rt *Router) listUploads(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "list uploads", fmt.Errorf("limit must be a positive integer")), nil)
			return
		}
		limit = n
	}
	records, err := rt.sessions.ListUploads(r.Context(), chi.URLParam(r, "partnerID"), limit)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (rt *Router) createSession(w http.ResponseWriter, r *http.Request) {
	limit := rt.cfg.MaxFileSizeBytes()
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartSlack)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("File exceeds the %d MB limit", rt.cfg.MaxFileSizeMB),
			})
			return
		}
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "parse upload form", err), nil)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "read upload form", fmt.Errorf("multipart field 'file' is required")), nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, fmt.Errorf("read uploaded file: %w", err), nil)
		return
	}

	view, err := rt.sessions.CreateSession(r.Context(), domain.FileHandle{
		Name:     header.Filename,
		Size:     header.Size,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		var session any
		if view.ID != "" {
			session = view
		}
		writeError(w, r, err, session)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	view, err := rt.sessions.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) resetSession(w http.ResponseWriter, r *http.Request) {
	if err := rt.sessions.ResetSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) setPartner(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PartnerID string               `json:"partnerId"`
		Engine    domain.ScoringEngine `json:"engine"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	engine := req.Engine
	if engine == "" {
		engine = domain.ScoringEngine(rt.cfg.ScoringEngine)
	}
	rt.respondView(w, r)(rt.sessions.SetPartner(r.Context(), chi.URLParam(r, "sessionID"), req.PartnerID, engine))
}

func (rt *Router) addMapping(w http.ResponseWriter, r *http.Request) {
	var mapping domain.FieldMapping
	if !decodeJSON(w, r, &mapping) {
		return
	}
	rt.respondView(w, r)(rt.sessions.AddMapping(r.Context(), chi.URLParam(r, "sessionID"), mapping))
}

func (rt *Router) updateMapping(w http.ResponseWriter, r *http.Request) {
	var patch domain.FieldMappingPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	rt.respondView(w, r)(rt.sessions.UpdateMapping(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "target"), patch))
}

func (rt *Router) removeMapping(w http.ResponseWriter, r *http.Request) {
	rt.respondView(w, r)(rt.sessions.RemoveMapping(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "target")))
}

func (rt *Router) applyProfile(w http.ResponseWriter, r *http.Request) {
	rt.respondView(w, r)(rt.sessions.ApplyProfile(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "profileID")))
}

func (rt *Router) saveProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        *string `json:"name"`
		Description string  `json:"description"`
		Cancel      bool    `json:"cancel"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	profile, err := rt.sessions.SaveProfile(r.Context(), chi.URLParam(r, "sessionID"), req.Description, staticPrompter{
		value:     req.Name,
		cancelled: req.Cancel,
	})
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (rt *Router) submit(w http.ResponseWriter, r *http.Request) {
	view, err := rt.sessions.Submit(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		var session any
		if view.ID != "" {
			session = view
		}
		writeError(w, r, err, session)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (rt *Router) retry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Confirm *bool `json:"confirm"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	outcome, err := rt.sessions.Retry(r.Context(), chi.URLParam(r, "sessionID"), staticConfirmer{answer: req.Confirm})
	if err != nil {
		var session any
		if outcome.Session.ID != "" {
			session = outcome.Session
		}
		writeError(w, r, err, session)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (rt *Router) exportFailed(w http.ResponseWriter, r *http.Request) {
	key, err := rt.sessions.ExportFailed(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (rt *Router) respondView(w http.ResponseWriter, r *http.Request) func(domain.SessionView, error) {
	return func(view domain.SessionView, err error) {
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "decode request", fmt.Errorf("invalid json: %w", err)), nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
