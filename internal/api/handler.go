package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/report"
	"github.com/opencivic-data/heron/internal/repository"
	"github.com/opencivic-data/heron/internal/rules"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	engine  *rules.Engine
	version string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, version string) *Handler {
	return &Handler{
		repo:    repo,
		cache:   cache,
		bus:     bus,
		engine:  engine,
		version: version,
	}
}

// CreateAnalysisRequest is the request body for POST /v1/analyses.
type CreateAnalysisRequest struct {
	LicensesPath  string `json:"licensesPath"`
	ContractsPath string `json:"contractsPath"`
	TaxesPath     string `json:"taxesPath"`
}

// CreateAnalysisResponse is the response for POST /v1/analyses.
type CreateAnalysisResponse struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
}

// CreateAnalysis handles POST /v1/analyses. The run is recorded as
// pending and the request published to the bus; a runner picks it up
// asynchronously.
func (h *Handler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.LicensesPath == "" || req.ContractsPath == "" || req.TaxesPath == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "licensesPath, contractsPath, and taxesPath are required",
		})
		return
	}

	runID := uuid.New().String()

	run := &domain.AnalysisRun{
		ID:            runID,
		Status:        domain.RunStatusPending,
		LicensesPath:  req.LicensesPath,
		ContractsPath: req.ContractsPath,
		TaxesPath:     req.TaxesPath,
		StartedAt:     time.Now().UTC(),
	}

	if h.repo != nil {
		if err := h.repo.SaveRun(ctx, run); err != nil {
			slog.Error("failed to save run", "run_id", runID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to record analysis run",
			})
			return
		}
	}

	payload, err := json.Marshal(domain.AnalysisRequest{
		RunID:         runID,
		LicensesPath:  req.LicensesPath,
		ContractsPath: req.ContractsPath,
		TaxesPath:     req.TaxesPath,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to encode analysis request",
		})
		return
	}

	if err := h.bus.Publish(ctx, domain.TopicAnalysisRequested, payload); err != nil {
		slog.Error("failed to publish analysis request", "run_id", runID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to queue analysis run",
		})
		return
	}

	slog.Info("analysis run queued", "run_id", runID)
	writeJSON(w, http.StatusAccepted, CreateAnalysisResponse{
		RunID:  runID,
		Status: domain.RunStatusPending,
	})
}

// ListAnalyses handles GET /v1/analyses.
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a non-negative integer",
			})
			return
		}
		limit = n
	}

	runs, err := h.repo.ListRuns(ctx, limit)
	if err != nil {
		slog.Error("failed to list runs", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list analysis runs",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetAnalysis handles GET /v1/analyses/{id}.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	run, err := h.repo.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "analysis run not found",
			})
			return
		}
		slog.Error("failed to get run", "run_id", runID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get analysis run",
		})
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// GetReport handles GET /v1/analyses/{id}/report. The cache is checked
// before the repository; format=text returns the formatted text report,
// anything else the JSON document.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "id")

	var rep *domain.Report
	if h.cache != nil {
		cached, err := h.cache.GetReport(ctx, runID)
		if err != nil {
			slog.Warn("report cache read failed", "run_id", runID, "error", err)
		}
		rep = cached
	}

	if rep == nil {
		if h.repo == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "repository not available",
			})
			return
		}
		stored, err := h.repo.GetReport(ctx, runID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{
					"error": "report not found",
				})
				return
			}
			slog.Error("failed to get report", "run_id", runID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to get report",
			})
			return
		}
		rep = stored

		if h.cache != nil {
			if err := h.cache.SetReport(ctx, rep, time.Hour); err != nil {
				slog.Warn("report cache write failed", "run_id", runID, "error", err)
			}
		}
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(report.FormatText(rep)))
		return
	}

	writeJSON(w, http.StatusOK, rep)
}

// GetFindings handles GET /v1/analyses/{id}/findings.
func (h *Handler) GetFindings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "id")

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	findings, err := h.repo.GetFindings(ctx, runID)
	if err != nil {
		slog.Error("failed to get findings", "run_id", runID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get findings",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runId":    runID,
		"findings": findings,
		"count":    len(findings),
	})
}

// ListRules returns all loaded key-finding rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loaded := h.engine.LoadedRules()

	writeJSON(w, http.StatusOK, map[string]any{
		"rules": loaded,
		"count": len(loaded),
	})
}

// GetRule retrieves a loaded rule by ID.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	for _, rule := range h.engine.LoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating a key-finding rule.
type CreateRuleRequest struct {
	ID         string            `json:"id"`
	Category   string            `json:"category"`
	Expression string            `json:"expression"`
	Finding    string            `json:"finding"`
	Action     string            `json:"action"`
	Bands      []domain.RuleBand `json:"bands"`
}

// CreateRule compiles and loads a key-finding rule into the engine.
// Rules are engine-resident; restarting the server restores builtins.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Category == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, category, and expression are required",
		})
		return
	}

	rule := &domain.KeyFindingRule{
		ID:         req.ID,
		Category:   req.Category,
		Expression: req.Expression,
		Finding:    req.Finding,
		Action:     req.Action,
		Bands:      req.Bands,
		Enabled:    true,
	}

	if err := h.engine.LoadRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid rule expression: " + err.Error(),
		})
		return
	}

	slog.Info("rule loaded", "id", rule.ID, "category", rule.Category)
	writeJSON(w, http.StatusCreated, rule)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
