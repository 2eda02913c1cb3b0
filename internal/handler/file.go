package handler

import (
	"log/slog"
	"net/http"

	models "mediafolders/internal/domain/models/explorer"
	explorerSvc "mediafolders/internal/domain/services/explorer"
	"mediafolders/internal/httputil"
)

// FileHandler handles file entry mutations
type FileHandler struct {
	mutations explorerSvc.MutationService
	logger    *slog.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(mutations explorerSvc.MutationService, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		mutations: mutations,
		logger:    logger,
	}
}

// CreateFile creates a file entry
// POST /api/files
func (h *FileHandler) CreateFile(w http.ResponseWriter, r *http.Request) {
	var req explorerSvc.CreateFileEntryRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.FolderID = models.NormalizeFolderID(req.FolderID)
	req.Actor = httputil.GetActor(r)

	entry, err := h.mutations.CreateFileEntry(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, entry)
}

// UpdateFile renames a file entry or toggles its published status
// PATCH /api/files/{id}
func (h *FileHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "File ID is required")
		return
	}

	var req explorerSvc.UpdateFileEntryRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Actor = httputil.GetActor(r)

	entry, err := h.mutations.UpdateFileEntry(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, entry)
}

// DeleteFile deletes a file entry
// DELETE /api/files/{id}
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "File ID is required")
		return
	}

	if err := h.mutations.DeleteFileEntry(r.Context(), id, httputil.GetActor(r)); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}

// MoveFile moves a file entry into another folder
// POST /api/files/{id}/move
func (h *FileHandler) MoveFile(w http.ResponseWriter, r *http.Request) {
	moveEntry(w, r, h.mutations, models.ItemKindFile)
}
