package handler

import (
	"log/slog"
	"net/http"

	models "mediafolders/internal/domain/models/explorer"
	explorerSvc "mediafolders/internal/domain/services/explorer"
	"mediafolders/internal/httputil"
)

// FolderHandler handles folder mutations
type FolderHandler struct {
	mutations explorerSvc.MutationService
	logger    *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(mutations explorerSvc.MutationService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		mutations: mutations,
		logger:    logger,
	}
}

// moveBody is the payload of the move endpoints. A null or "root" target moves to the root.
type moveBody struct {
	TargetID *string `json:"target_id"`
}

// updateFolderBody renames a folder; description follows PATCH semantics.
type updateFolderBody struct {
	Name        string                  `json:"name"`
	Description httputil.OptionalString `json:"description"`
}

// CreateFolder creates a new folder
// POST /api/folders
// Returns 201 if created, 409 with the existing sibling's id on a name collision
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req explorerSvc.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.ParentID = models.NormalizeFolderID(req.ParentID)
	req.Actor = httputil.GetActor(r)

	folder, err := h.mutations.CreateFolder(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// UpdateFolder renames a folder and optionally changes its description
// PATCH /api/folders/{id}
func (h *FolderHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Folder ID is required")
		return
	}

	var body updateFolderBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	folder, err := h.mutations.RenameFolder(r.Context(), id, &explorerSvc.RenameFolderRequest{
		Name:        body.Name,
		Description: body.Description.Patch(),
		Actor:       httputil.GetActor(r),
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// DeleteFolder deletes a folder and its subfolders, re-parenting their files
// DELETE /api/folders/{id}
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Folder ID is required")
		return
	}

	result, err := h.mutations.DeleteFolder(r.Context(), id, httputil.GetActor(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// MoveFolder moves a folder under a new parent
// POST /api/folders/{id}/move
func (h *FolderHandler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	moveEntry(w, r, h.mutations, models.ItemKindFolder)
}

// moveEntry is shared by the folder and file move endpoints.
func moveEntry(w http.ResponseWriter, r *http.Request, mutations explorerSvc.MutationService, kind models.ItemKind) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "ID is required")
		return
	}

	var body moveBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := mutations.MoveEntry(r.Context(), &explorerSvc.MoveRequest{
		Kind:     kind,
		EntryID:  id,
		TargetID: models.NormalizeFolderID(body.TargetID),
		Actor:    httputil.GetActor(r),
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}
