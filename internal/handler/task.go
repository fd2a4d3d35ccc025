package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tasklist/tasklist-go/internal/middleware"
	"github.com/tasklist/tasklist-go/internal/model"
	"github.com/tasklist/tasklist-go/internal/service"
)

// TaskHandler handles HTTP requests for task operations.
type TaskHandler struct {
	service *service.TaskService
	logger  *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc *service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{service: svc, logger: logger}
}

// HandleListTasks handles GET /api/tasks requests.
func (h *TaskHandler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, service.ErrUnauthenticated)
		return
	}

	page := queryInt(r, "page")
	limit := queryInt(r, "limit")

	resp, err := h.service.List(r.Context(), id, page, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleGetTask handles GET /api/tasks/{id} requests.
func (h *TaskHandler) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, service.ErrUnauthenticated)
		return
	}

	resp, err := h.service.Get(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleCreateTask handles POST /api/tasks requests.
func (h *TaskHandler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, service.ErrUnauthenticated)
		return
	}

	var req model.TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Create(r.Context(), id, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleUpdateTask handles PUT /api/tasks/{id} requests.
func (h *TaskHandler) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, service.ErrUnauthenticated)
		return
	}

	var req model.TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Update(r.Context(), id, chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleDeleteTask handles DELETE /api/tasks/{id} requests.
func (h *TaskHandler) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, service.ErrUnauthenticated)
		return
	}

	if err := h.service.Delete(r.Context(), id, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

// queryInt returns 0 for a missing or malformed parameter so the service
// default applies.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
