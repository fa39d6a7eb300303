package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/OkanBey11/ToDoApiWithGemini/internal/logging"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/services"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/store"
)

const msgTaskNotFound = "todo not found"

// TaskHandler provides HTTP handlers for the caller's tasks.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler constructs a handler with the provided service.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// TaskRouter registers task routes on the given router. Every route requires
// authentication.
func TaskRouter(r chi.Router, taskService *services.TaskService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewTaskHandler(taskService)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", handler.ListTasks)
		r.Post("/todo", handler.CreateTask)
		r.Get("/todo/{todoID}", handler.GetTask)
		r.Put("/todo/{todoID}", handler.UpdateTask)
		r.Delete("/todo/{todoID}", handler.DeleteTask)
	})
}

// ListTasks returns every task owned by the caller.
//
//	@Summary	List tasks
//	@Tags		todo
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{array}		types.Task
//	@Failure	401	{object}	ErrorResponse
//	@Router		/todo/ [get]
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "unauthorized")
		return
	}

	tasks, err := h.taskService.List(r.Context(), identity.UserID)
	if err != nil {
		logging.FromRequest(r).WithError(err).Error("list tasks")
		writeError(w, http.StatusInternalServerError, "failed to list todos")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// GetTask returns one task of the caller.
//
//	@Summary	Get a task
//	@Tags		todo
//	@Security	BearerAuth
//	@Produce	json
//	@Param		todoID	path		int	true	"Task id"	minimum(1)
//	@Success	200		{object}	types.Task
//	@Failure	400		{object}	ErrorResponse
//	@Failure	401		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/todo/todo/{todoID} [get]
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	identity, taskID, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.Get(r.Context(), identity.UserID, taskID)
	if err != nil {
		h.writeTaskError(w, r, err, "fetch task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// CreateTask stores a new task owned by the caller. Any owner_id in the body
// is ignored.
//
//	@Summary	Create a task
//	@Tags		todo
//	@Security	BearerAuth
//	@Accept		json
//	@Produce	json
//	@Param		request	body		TaskRequest	true	"Task"
//	@Success	201		{object}	types.Task
//	@Failure	400		{object}	ErrorResponse
//	@Failure	401		{object}	ErrorResponse
//	@Failure	422		{object}	ValidationErrorResponse
//	@Router		/todo/todo [post]
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "unauthorized")
		return
	}

	var req TaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	task, err := h.taskService.Create(r.Context(), identity.UserID, req.input())
	if err != nil {
		h.writeTaskError(w, r, err, "create task")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// UpdateTask replaces the fields of one task of the caller.
//
//	@Summary	Update a task
//	@Tags		todo
//	@Security	BearerAuth
//	@Accept		json
//	@Param		todoID	path	int			true	"Task id"	minimum(1)
//	@Param		request	body	TaskRequest	true	"Task"
//	@Success	204
//	@Failure	400	{object}	ErrorResponse
//	@Failure	401	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Failure	422	{object}	ValidationErrorResponse
//	@Router		/todo/todo/{todoID} [put]
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	identity, taskID, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	var req TaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if _, err := h.taskService.Update(r.Context(), identity.UserID, taskID, req.input()); err != nil {
		h.writeTaskError(w, r, err, "update task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTask removes one task of the caller.
//
//	@Summary	Delete a task
//	@Tags		todo
//	@Security	BearerAuth
//	@Param		todoID	path	int	true	"Task id"	minimum(1)
//	@Success	204
//	@Failure	400	{object}	ErrorResponse
//	@Failure	401	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/todo/todo/{todoID} [delete]
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	identity, taskID, ok := h.identityAndID(w, r)
	if !ok {
		return
	}

	if err := h.taskService.Delete(r.Context(), identity.UserID, taskID); err != nil {
		h.writeTaskError(w, r, err, "delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) identityAndID(w http.ResponseWriter, r *http.Request) (Identity, int64, bool) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "unauthorized")
		return Identity{}, 0, false
	}
	taskID, err := parsePathID(r, "todoID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return Identity{}, 0, false
	}
	return identity, taskID, true
}

func (h *TaskHandler) writeTaskError(w http.ResponseWriter, r *http.Request, err error, action string) {
	if writeValidationError(w, err) {
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgTaskNotFound)
		return
	}
	logging.FromRequest(r).WithError(err).Error(action)
	writeError(w, http.StatusInternalServerError, "failed to "+action)
}

// TaskRequest is the client-controlled part of a task. Every field is
// required, PUT included.
type TaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Priority    int    `json:"priority" binding:"required"`
	Completed   *bool  `json:"complate" binding:"required"`
}

func (req TaskRequest) input() services.TaskInput {
	return services.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Completed:   req.Completed,
	}
}
