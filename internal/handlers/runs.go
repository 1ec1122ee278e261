package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/themizzi/retailcheck/internal/report"
	"github.com/themizzi/retailcheck/internal/repository"
	"github.com/themizzi/retailcheck/internal/services"
)

// RunsHandler lists recorded runs
type RunsHandler struct {
	runService services.RunService
	baseURL    string
	logger     *zap.Logger
}

// NewRunsHandler creates a new run listing handler. baseURL is the site the
// runs were made against and is shown in the page header.
func NewRunsHandler(runService services.RunService, baseURL string, logger *zap.Logger) *RunsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunsHandler{
		runService: runService,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// ServeHTTP handles GET /runs. Query parameters: scenario filters by name,
// limit caps the result size and format=json selects JSON output.
func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	scenario := query.Get("scenario")
	limit := repository.DefaultListLimit
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.runService.ListRuns(r.Context(), scenario, limit)
	if err != nil {
		h.logger.Error("failed to list runs", zap.String("scenario", scenario), zap.Error(err))
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	summary := report.NewSummary(runs, h.baseURL, time.Now())
	summary.RunLinkPrefix = "/runs/"

	if query.Get("format") == "json" {
		data, err := summary.MarshalJSON()
		if err != nil {
			h.logger.Error("failed to encode runs", zap.Error(err))
			http.Error(w, "Failed to encode runs", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderHTML(w, summary); err != nil {
		h.logger.Error("failed to render runs", zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// RunHandler shows a single run
type RunHandler struct {
	runService services.RunService
	logger     *zap.Logger
}

// NewRunHandler creates a new run detail handler
func NewRunHandler(runService services.RunService, logger *zap.Logger) *RunHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunHandler{runService: runService, logger: logger}
}

// ServeHTTP handles GET /runs/{id}
func (h *RunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Missing run ID", http.StatusBadRequest)
		return
	}

	run, err := h.runService.GetRun(r.Context(), id)
	if errors.Is(err, repository.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to get run", zap.String("run", id), zap.Error(err))
		http.Error(w, "Failed to get run", http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(report.NewRunRecord(run)); err != nil {
			h.logger.Error("failed to encode run", zap.String("run", id), zap.Error(err))
		}
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderRunHTML(w, run); err != nil {
		h.logger.Error("failed to render run", zap.String("run", id), zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
