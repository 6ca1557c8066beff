package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"clipturbo/internal/content"
	"clipturbo/internal/history"
	"clipturbo/internal/logging"
	"clipturbo/internal/render"
	"clipturbo/internal/services"
	"clipturbo/internal/workflow"
)

const maxBodyBytes = 1 << 20

// Workflows is the engine surface the API exposes.
type Workflows interface {
	Create(ctx context.Context, in workflow.Input, req content.Requirements, opts ...workflow.CreateOption) (string, error)
	Status(id string) (workflow.Snapshot, bool)
	Cancel(ctx context.Context, id string) bool
	ListActive() []workflow.Summary
}

// Renders is the render supervisor surface the API exposes.
type Renders interface {
	Status(id string) (render.JobStatus, bool)
	Cancel(id string) bool
	Snapshot() render.Snapshot
	Resources() (render.Resources, error)
}

// Archive is the read side of the history store.
type Archive interface {
	ListWorkflows(ctx context.Context, limit int) ([]history.WorkflowRecord, error)
	GetWorkflow(ctx context.Context, id string) (*history.WorkflowRecord, error)
	GetRender(ctx context.Context, jobID string) (*render.Result, error)
}

// Deps wires the router to the daemon's components. Archive and Status are
// optional.
type Deps struct {
	Workflows Workflows
	Renders   Renders
	Archive   Archive
	Status    func(ctx context.Context) DaemonStatus
	Token     string
	Logger    *slog.Logger
}

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

// NewRouter builds the HTTP handler for the control surface.
func NewRouter(deps Deps) http.Handler {
	h := &handlers{deps: deps, logger: logging.NewComponentLogger(deps.Logger, "api")}
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(recoverer(h.logger))
	r.Use(accessLog(h.logger))
	r.Use(authMiddleware(deps.Token))

	r.Get("/api/status", h.status)

	r.Route("/api/workflows", func(r chi.Router) {
		r.Post("/", h.createWorkflow)
		r.Get("/", h.listWorkflows)
		r.Get("/{id}", h.getWorkflow)
		r.Delete("/{id}", h.cancelWorkflow)
	})

	r.Get("/api/jobs/{id}", h.getJob)
	r.Delete("/api/jobs/{id}", h.cancelJob)
	r.Get("/api/queue", h.queue)
	r.Get("/api/history", h.history)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(h.logger, w, http.StatusNotFound, ErrorResponse{Error: "not found", Kind: "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(h.logger, w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
	})
	return r
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	if h.deps.Status == nil {
		writeJSON(h.logger, w, http.StatusOK, DaemonStatus{Running: true})
		return
	}
	writeJSON(h.logger, w, http.StatusOK, h.deps.Status(r.Context()))
}

func (h *handlers) createWorkflow(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, services.Wrap(services.ErrValidation, "api", "create workflow", "read body", err))
		return
	}
	sub, err := content.Parse(body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var opts []workflow.CreateOption
	if sub.WorkflowID != "" {
		opts = append(opts, workflow.WithID(sub.WorkflowID))
	}
	id, err := h.deps.Workflows.Create(r.Context(), workflow.Input{Topic: sub.Topic, Content: sub.Content}, sub.Requirements, opts...)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/workflows/"+id)
	writeJSON(h.logger, w, http.StatusCreated, CreateWorkflowResponse{ID: id})
}

func (h *handlers) listWorkflows(w http.ResponseWriter, _ *http.Request) {
	writeJSON(h.logger, w, http.StatusOK, WorkflowListResponse{Workflows: FromSummaries(h.deps.Workflows.ListActive())})
}

func (h *handlers) getWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if snap, ok := h.deps.Workflows.Status(id); ok {
		writeJSON(h.logger, w, http.StatusOK, FromSnapshot(snap))
		return
	}
	if h.deps.Archive != nil {
		rec, err := h.deps.Archive.GetWorkflow(r.Context(), id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if rec != nil {
			writeJSON(h.logger, w, http.StatusOK, FromRecord(*rec))
			return
		}
	}
	h.writeError(w, services.Wrap(services.ErrNotFound, "api", "workflow status", "workflow "+id+" not found", nil))
}

func (h *handlers) cancelWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.deps.Workflows.Status(id); !ok {
		h.writeError(w, services.Wrap(services.ErrNotFound, "api", "cancel workflow", "workflow "+id+" not found", nil))
		return
	}
	writeJSON(h.logger, w, http.StatusOK, CancelResponse{Cancelled: h.deps.Workflows.Cancel(r.Context(), id)})
}

func (h *handlers) getJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if st, ok := h.deps.Renders.Status(id); ok {
		writeJSON(h.logger, w, http.StatusOK, FromJobStatus(st))
		return
	}
	if h.deps.Archive != nil {
		res, err := h.deps.Archive.GetRender(r.Context(), id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if res != nil {
			writeJSON(h.logger, w, http.StatusOK, FromArchivedResult(*res))
			return
		}
	}
	h.writeError(w, services.Wrap(services.ErrNotFound, "api", "job status", "job "+id+" not found", nil))
}

func (h *handlers) cancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.deps.Renders.Status(id); !ok {
		h.writeError(w, services.Wrap(services.ErrNotFound, "api", "cancel job", "job "+id+" not found", nil))
		return
	}
	writeJSON(h.logger, w, http.StatusOK, CancelResponse{Cancelled: h.deps.Renders.Cancel(id)})
}

func (h *handlers) queue(w http.ResponseWriter, r *http.Request) {
	snap := h.deps.Renders.Snapshot()
	var resources *render.Resources
	if res, err := h.deps.Renders.Resources(); err != nil {
		logging.WithContext(r.Context(), h.logger).Debug("resource probe failed", logging.Error(err))
	} else {
		resources = &res
	}
	writeJSON(h.logger, w, http.StatusOK, FromQueue(snap, resources))
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	if h.deps.Archive == nil {
		writeJSON(h.logger, w, http.StatusOK, HistoryResponse{Workflows: []Workflow{}})
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, services.Wrap(services.ErrValidation, "api", "history", "limit must be a positive integer", nil))
			return
		}
		limit = parsed
	}
	records, err := h.deps.Archive.ListWorkflows(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := HistoryResponse{Workflows: make([]Workflow, 0, len(records))}
	for _, rec := range records {
		out.Workflows = append(out.Workflows, FromRecord(rec))
	}
	writeJSON(h.logger, w, http.StatusOK, out)
}

// StatusCode maps an error marker to an HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) writeError(w http.ResponseWriter, err error) {
	details := services.Details(err)
	writeJSON(h.logger, w, StatusCode(err), ErrorResponse{Error: details.Message, Kind: details.Kind})
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Error("failed to encode response", logging.Error(err))
	}
}
