package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bindery/internal/config"
	"bindery/internal/logging"
	"bindery/internal/metrics"
	"bindery/internal/orchestrator"
	"bindery/internal/preflight"
	"bindery/internal/quarantine"
	"bindery/internal/registry"
)

// Deps carries the collaborators the API reads from. Every endpoint is
// read-only; mutations happen exclusively through the orchestrator.
type Deps struct {
	Config       *config.Config
	Registry     *registry.Registry
	Orchestrator *orchestrator.Orchestrator
	Metrics      *metrics.Store
	Logger       *slog.Logger
}

type handler struct {
	deps   Deps
	logger *slog.Logger
}

// NewHandler builds the HTTP API router.
func NewHandler(deps Deps) http.Handler {
	h := &handler{
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Get("/status", h.handleStatus)
		r.Get("/queue", h.handleQueue)
		r.Get("/failed", h.handleFailed)
		r.Get("/metrics", h.handleMetrics)
	})
	return r
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := h.deps.Orchestrator.Health()
	status := "ok"
	if !health.Running {
		status = "stopped"
	}
	if health.LastError != "" {
		status = "degraded"
	}
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Running:   health.Running,
		LastTick:  health.LastTick,
		TickCount: health.TickCount,
		LastError: health.LastError,
	})
}

func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	counts := h.deps.Registry.CountByStatus()
	jobCounts := make(map[string]int, len(counts))
	total := 0
	for status, count := range counts {
		jobCounts[string(status)] = count
		total += count
	}

	var deps []DependencyStatus
	for _, status := range preflight.CheckSystemDeps(h.deps.Config) {
		deps = append(deps, DependencyStatus{
			Name:      status.Name,
			Command:   status.Command,
			Optional:  status.Optional,
			Available: status.Available,
			Detail:    status.Detail,
		})
	}

	h.writeJSON(w, http.StatusOK, StatusResponse{
		Running:      h.deps.Orchestrator.Health().Running,
		PID:          os.Getpid(),
		InboxDir:     h.deps.Config.Paths.InboxDir,
		OutputDir:    h.deps.Config.Paths.OutputDir,
		JobCounts:    jobCounts,
		TotalTracked: total,
		Dependencies: deps,
	})
}

func (h *handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	var jobs []*registry.Job
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := registry.ParseStatus(raw)
		if !ok {
			h.writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
		jobs = h.deps.Registry.ListByStatus(status)
	} else {
		jobs = h.deps.Registry.Snapshot()
	}

	policy := h.deps.Registry.Policy()
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		view := JobView{
			Key:           job.Key,
			Path:          job.Path,
			Status:        string(job.Status),
			SizeBytes:     job.SizeBytes,
			Size:          humanize.IBytes(uint64(job.SizeBytes)),
			RetryCount:    job.RetryCount,
			MaxRetries:    job.MaxRetries,
			FailureReason: job.FailureReason,
			DiscoveredAt:  job.DiscoveredAt,
			UpdatedAt:     job.UpdatedAt,
		}
		if job.Status == registry.StatusNeedsRetry && job.LastRetryAt != nil {
			next := job.LastRetryAt.Add(policy.Delay(job.RetryCount))
			view.NextRetryAt = &next
		}
		views = append(views, view)
	}
	h.writeJSON(w, http.StatusOK, QueueResponse{Jobs: views})
}

func (h *handler) handleFailed(w http.ResponseWriter, r *http.Request) {
	records, err := quarantine.Scan(h.deps.Config.Paths.QuarantineDir)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]FailedRecord, 0, len(records))
	for _, record := range records {
		views = append(views, FailedRecord{
			JobKey:         record.JobKey,
			Path:           record.Path,
			FailedAt:       record.FailedAt,
			Classification: record.Classification,
			RetryCount:     record.RetryCount,
			MaxRetries:     record.MaxRetries,
			Reason:         record.Reason,
			RecoveryHint:   record.RecoveryHint,
		})
	}
	h.writeJSON(w, http.StatusOK, FailedResponse{Records: views})
}

func (h *handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if h.deps.Metrics == nil {
		h.writeJSON(w, http.StatusOK, MetricsResponse{})
		return
	}
	stats, err := h.deps.Metrics.Stats(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rows, err := h.deps.Metrics.Recent(r.Context(), 20)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	recent := make([]AttemptView, 0, len(rows))
	for _, row := range rows {
		recent = append(recent, AttemptView{
			JobKey:          row.JobKey,
			Outcome:         row.Outcome,
			DurationSeconds: row.DurationSeconds,
			SizeBytes:       row.SizeBytes,
			ErrorMessage:    row.ErrorMessage,
			RecordedAt:      row.RecordedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, MetricsResponse{
		TotalAttempts:        stats.TotalAttempts,
		Completed:            stats.Completed,
		Retried:              stats.Retried,
		FailedTerminally:     stats.FailedTerminally,
		SuccessRate:          stats.SuccessRate,
		TotalDurationSeconds: stats.TotalDurationSeconds,
		TotalOutputBytes:     stats.TotalOutputBytes,
		TotalOutput:          humanize.IBytes(uint64(stats.TotalOutputBytes)),
		Recent:               recent,
	})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
