package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/accommodation-engine/internal/application/jobs"
	domai "github.com/bryanwahyu/accommodation-engine/internal/domain/ai"
	domain "github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/findings"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/itemmaster"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/joberrors"
	"github.com/bryanwahyu/accommodation-engine/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/accommodation-engine/internal/middleware"
)

// Submitter queues analysis jobs.
type Submitter interface {
	Submit(req domain.Request) (string, error)
}

// Deps are the collaborators the API reads from and writes to.
type Deps struct {
	Jobs       Submitter
	Results    domain.ResultRepository
	Findings   findings.Repository
	ItemMaster itemmaster.Repository
	JobErrors  joberrors.Repository
	Checkers   map[string]middleware.HealthChecker

	AllowedOrigins []string
	APIKeys        map[string]string
	// Limiter throttles submissions; nil disables it
	Limiter *middleware.RateLimiter
	Logger  *slog.Logger
}

type Router struct {
	deps   Deps
	logger *slog.Logger
}

func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{deps: deps, logger: logger}
	mux := chi.NewRouter()

	mux.Use(middleware.Metrics)
	mux.Use(middleware.Logging(logger))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(deps.Checkers))
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/health/ready", middleware.ReadinessHandler(deps.Checkers))
	mux.Handle("/metrics", middleware.MetricsHandler())

	mux.Route("/v1/analyses", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(deps.APIKeys))
		submit := http.Handler(r.wrap(r.handleSubmit))
		if deps.Limiter != nil {
			submit = middleware.RateLimit(deps.Limiter)(submit)
		}
		rt.Method(http.MethodPost, "/", submit)
		rt.Get("/{caseId}", r.wrap(r.handleResult))
		rt.Get("/{caseId}/findings", r.wrap(r.handleFindings))
		rt.Get("/{caseId}/item-master", r.wrap(r.handleItemMaster))
		rt.Get("/{caseId}/errors", r.wrap(r.handleJobErrors))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks client input errors.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var br badRequest
		switch {
		case errors.Is(err, sqlstore.ErrNotFound), errors.Is(err, sql.ErrNoRows):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, domai.ErrQuotaExceeded):
			http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
		case errors.As(err, &br),
			errors.Is(err, domain.ErrInvalidModuleType),
			errors.Is(err, domain.ErrInvalidPathway),
			errors.Is(err, domain.ErrNoDocuments):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, jobs.ErrClosed):
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		default:
			r.logger.Error("request failed", slog.String("path", req.URL.Path), slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

type documentBody struct {
	Filename string `json:"filename" validate:"required,max=255"`
	Content  string `json:"content"`
}

type analyzeBody struct {
	CaseID     string         `json:"case_id" validate:"required,caseid"`
	ModuleType string         `json:"module_type" validate:"required,oneof=k12 post_secondary tutoring"`
	Pathway    string         `json:"pathway" validate:"omitempty,oneof=simple complex"`
	Documents  []documentBody `json:"documents" validate:"required,min=1,dive"`
	Context    domain.Context `json:"context"`
}

// POST /v1/analyses
func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) error {
	var body analyzeBody
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, 32<<20)).Decode(&body); err != nil {
		return badRequest{err}
	}
	if err := middleware.ValidateStruct(body); err != nil {
		return badRequest{err}
	}

	module, err := domain.ParseModuleType(body.ModuleType)
	if err != nil {
		return err
	}
	pathway, err := domain.ParsePathway(body.Pathway)
	if err != nil {
		return err
	}
	docs := make([]domain.Document, 0, len(body.Documents))
	for _, d := range body.Documents {
		docs = append(docs, domain.Document{
			Filename: middleware.SanitizeString(d.Filename),
			Content:  d.Content,
		})
	}

	jobID, err := r.deps.Jobs.Submit(domain.Request{
		CaseID:     body.CaseID,
		ModuleType: module,
		Pathway:    pathway,
		Documents:  docs,
		Context:    body.Context,
	})
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   jobID,
		"case_id":  body.CaseID,
		"status":   "queued",
		"queuedAt": time.Now().UTC(),
	})
}

func caseParam(req *http.Request) (string, error) {
	caseID := chi.URLParam(req, "caseId")
	if err := middleware.ValidateCaseID(caseID); err != nil {
		return "", badRequest{err}
	}
	return caseID, nil
}

// GET /v1/analyses/{caseId}
func (r *Router) handleResult(w http.ResponseWriter, req *http.Request) error {
	caseID, err := caseParam(req)
	if err != nil {
		return err
	}
	res, err := r.deps.Results.LatestResult(req.Context(), caseID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /v1/analyses/{caseId}/findings
func (r *Router) handleFindings(w http.ResponseWriter, req *http.Request) error {
	caseID, err := caseParam(req)
	if err != nil {
		return err
	}
	list, err := r.deps.Findings.GetAssessmentFindings(req.Context(), caseID)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*findings.Finding{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/analyses/{caseId}/item-master
func (r *Router) handleItemMaster(w http.ResponseWriter, req *http.Request) error {
	caseID, err := caseParam(req)
	if err != nil {
		return err
	}
	list, err := r.deps.ItemMaster.ListItemMaster(req.Context(), caseID)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*itemmaster.ItemMasterRecord{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/analyses/{caseId}/errors?limit=20
func (r *Router) handleJobErrors(w http.ResponseWriter, req *http.Request) error {
	caseID, err := caseParam(req)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.deps.JobErrors.ListByCase(req.Context(), caseID, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	if list == nil {
		list = []*joberrors.JobError{}
	}
	return writeJSON(w, http.StatusOK, list)
}
