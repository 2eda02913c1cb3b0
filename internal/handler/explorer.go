package handler

import (
	"log/slog"
	"net/http"
	"strings"

	models "mediafolders/internal/domain/models/explorer"
	explorerSvc "mediafolders/internal/domain/services/explorer"
	"mediafolders/internal/httputil"
)

// ExplorerHandler serves the read side of the explorer: listings, the folder
// tree and search.
type ExplorerHandler struct {
	contents explorerSvc.ContentsService
	search   explorerSvc.SearchService
	tree     explorerSvc.TreeService
	logger   *slog.Logger
}

// NewExplorerHandler creates a new explorer handler
func NewExplorerHandler(
	contents explorerSvc.ContentsService,
	search explorerSvc.SearchService,
	tree explorerSvc.TreeService,
	logger *slog.Logger,
) *ExplorerHandler {
	return &ExplorerHandler{
		contents: contents,
		search:   search,
		tree:     tree,
		logger:   logger,
	}
}

// HealthCheck reports liveness
// GET /health
func (h *ExplorerHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListFolder returns one page of a folder's contents
// GET /api/explorer/folders/{id}?order=&bundles=&offset=&limit=&actions=
// GET /api/explorer/folders lists the root; {id} may also be "root".
func (h *ExplorerHandler) ListFolder(w http.ResponseWriter, r *http.Request) {
	order, err := orderParam(r)
	if err != nil {
		handleError(w, err)
		return
	}
	cursor, err := cursorParam(r)
	if err != nil {
		handleError(w, err)
		return
	}

	listing, err := h.contents.Resolve(r.Context(), &explorerSvc.ListRequest{
		FolderID:       models.FolderIDFromString(r.PathValue("id")),
		Filter:         bundlesParam(r),
		Order:          order,
		Cursor:         cursor,
		IncludeActions: httputil.QueryBool(r, "actions"),
		Actor:          httputil.GetActor(r),
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, listing)
}

// GetFolder returns a folder with its breadcrumb path
// GET /api/folders/{id}
func (h *ExplorerHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Folder ID is required")
		return
	}

	path, err := h.tree.FolderPath(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"folder": path[len(path)-1],
		"path":   path,
	})
}

// treeResponse pairs the nested tree with the trail to the active folder.
type treeResponse struct {
	*models.FolderTree
	ActiveTrail []string `json:"active_trail"`
}

// GetTree returns the nested folder tree
// GET /api/explorer/tree?root=&active=&order=
func (h *ExplorerHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	order, err := orderParam(r)
	if err != nil {
		handleError(w, err)
		return
	}

	tree, err := h.tree.BuildTree(r.Context(), folderParam(r, "root"), order)
	if err != nil {
		handleError(w, err)
		return
	}

	resp := treeResponse{FolderTree: tree, ActiveTrail: []string{}}
	if active := strings.TrimSpace(r.URL.Query().Get("active")); active != "" {
		resp.ActiveTrail = h.tree.ActiveTrail(tree, active)
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// Search matches folder and file names below a scope folder
// GET /api/explorer/search?q=&scope=&bundles=&order=
func (h *ExplorerHandler) Search(w http.ResponseWriter, r *http.Request) {
	order, err := orderParam(r)
	if err != nil {
		handleError(w, err)
		return
	}

	listing, err := h.search.Search(r.Context(), &explorerSvc.SearchRequest{
		ScopeID: folderParam(r, "scope"),
		Query:   r.URL.Query().Get("q"),
		Filter:  bundlesParam(r),
		Order:   order,
		Actor:   httputil.GetActor(r),
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, listing)
}
