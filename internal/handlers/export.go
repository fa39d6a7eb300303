package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/OkanBey11/ToDoApiWithGemini/internal/logging"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/services"
	"github.com/OkanBey11/ToDoApiWithGemini/internal/storage"
)

// ExportHandler serves task snapshots kept in object storage.
type ExportHandler struct {
	exportService *services.ExportService
}

func NewExportHandler(exportService *services.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// ExportRouter registers export routes on the given router.
func ExportRouter(r chi.Router, exportService *services.ExportService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewExportHandler(exportService)

	r.With(authMiddleware).Post("/", handler.CreateExport)
	r.With(authMiddleware).Get("/{exportID}", handler.GetExport)
	r.With(authMiddleware).Delete("/{exportID}", handler.DeleteExport)
}

// CreateExport snapshots the caller's tasks.
//
//	@Summary	Export tasks
//	@Tags		exports
//	@Security	BearerAuth
//	@Produce	json
//	@Success	201	{object}	types.TaskExport
//	@Failure	401	{object}	ErrorResponse
//	@Failure	500	{object}	ErrorResponse
//	@Router		/todo/exports [post]
func (h *ExportHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "unauthorized")
		return
	}

	export, err := h.exportService.Create(r.Context(), identity.UserID)
	if err != nil {
		logging.FromRequest(r).WithError(err).Error("create export")
		writeError(w, http.StatusInternalServerError, "failed to create export")
		return
	}
	writeJSON(w, http.StatusCreated, export)
}

// GetExport streams a snapshot back to its owner.
//
//	@Summary	Download an export
//	@Tags		exports
//	@Security	BearerAuth
//	@Produce	json
//	@Param		exportID	path	string	true	"Export id (ULID)"
//	@Success	200
//	@Failure	400	{object}	ErrorResponse
//	@Failure	401	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/todo/exports/{exportID} [get]
func (h *ExportHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "unauthorized")
		return
	}

	rc, err := h.exportService.Open(r.Context(), identity.UserID, chi.URLParam(r, "exportID"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidExportID):
			writeError(w, http.StatusBadRequest, "invalid export id")
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, "export not found")
		default:
			logging.FromRequest(r).WithError(err).Error("open export")
			writeError(w, http.StatusInternalServerError, "failed to load export")
		}
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		logging.FromRequest(r).WithError(err).Warn("stream export")
	}
}

// DeleteExport removes one of the caller's snapshots.
//
//	@Summary	Delete an export
//	@Tags		exports
//	@Security	BearerAuth
//	@Param		exportID	path	string	true	"Export id (ULID)"
//	@Success	204
//	@Failure	400	{object}	ErrorResponse
//	@Failure	401	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/todo/exports/{exportID} [delete]
func (h *ExportHandler) DeleteExport(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "unauthorized")
		return
	}

	err := h.exportService.Delete(r.Context(), identity.UserID, chi.URLParam(r, "exportID"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, services.ErrInvalidExportID):
		writeError(w, http.StatusBadRequest, "invalid export id")
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "export not found")
	default:
		logging.FromRequest(r).WithError(err).Error("delete export")
		writeError(w, http.StatusInternalServerError, "failed to delete export")
	}
}
