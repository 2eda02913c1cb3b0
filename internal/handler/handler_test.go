package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"mediafolders/internal/config"
	models "mediafolders/internal/domain/models/explorer"
	explorerRepo "mediafolders/internal/domain/repositories/explorer"
	"mediafolders/internal/httputil"
	"mediafolders/internal/repository/memory"
	serviceAuth "mediafolders/internal/service/auth"
	serviceExplorer "mediafolders/internal/service/explorer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServer routes requests the way cmd/server does, over an in-memory store.
type testServer struct {
	t     *testing.T
	mem   *memory.Store
	actor models.Actor
	mux   *http.ServeMux
}

func newTestServer(t *testing.T, access explorerRepo.AccessChecker) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultExplorerConfig()

	mem := memory.NewStore()
	store := mem.ContentStore(access)
	cache := serviceExplorer.NewExplorerCache(100, logger)

	tree := serviceExplorer.NewTreeService(store.Folders, cfg, logger)
	contents := serviceExplorer.NewContentsService(store, cache, cfg, logger)
	search := serviceExplorer.NewSearchService(store, cache, cfg, logger)
	mutations := serviceExplorer.NewMutationService(store, mem.TxManager(), cache, cfg, logger)
	codec, err := serviceExplorer.NewWidgetStateCodec("handler-test-secret")
	require.NoError(t, err)

	explorer := NewExplorerHandler(contents, search, tree, logger)
	folders := NewFolderHandler(mutations, logger)
	files := NewFileHandler(mutations, logger)
	picker := NewPickerHandler(codec, contents, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", explorer.HealthCheck)
	mux.HandleFunc("GET /api/explorer/folders", explorer.ListFolder)
	mux.HandleFunc("GET /api/explorer/folders/{id}", explorer.ListFolder)
	mux.HandleFunc("GET /api/explorer/tree", explorer.GetTree)
	mux.HandleFunc("GET /api/explorer/search", explorer.Search)
	mux.HandleFunc("POST /api/explorer/picker", picker.BuildPicker)
	mux.HandleFunc("POST /api/explorer/picker/state", picker.SignState)
	mux.HandleFunc("POST /api/folders", folders.CreateFolder)
	mux.HandleFunc("GET /api/folders/{id}", explorer.GetFolder)
	mux.HandleFunc("PATCH /api/folders/{id}", folders.UpdateFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", folders.DeleteFolder)
	mux.HandleFunc("POST /api/folders/{id}/move", folders.MoveFolder)
	mux.HandleFunc("POST /api/files", files.CreateFile)
	mux.HandleFunc("PATCH /api/files/{id}", files.UpdateFile)
	mux.HandleFunc("DELETE /api/files/{id}", files.DeleteFile)
	mux.HandleFunc("POST /api/files/{id}/move", files.MoveFile)

	s := &testServer{t: t, mem: mem, mux: mux}
	s.seed()
	return s
}

// seed creates:
//
//	Finance (A)
//	  Archive (B)
//	    budget-2024.pdf (f1)
//	Marketing (C)
//	  banner.png (f2)
//	logo.svg (f3)
func (s *testServer) seed() {
	ctx := context.Background()
	for _, f := range []models.Folder{
		{ID: "A", Name: "Finance"},
		{ID: "B", ParentID: strPtr("A"), Name: "Archive"},
		{ID: "C", Name: "Marketing"},
	} {
		folder := f
		require.NoError(s.t, s.mem.Folders().Create(ctx, &folder))
	}
	for _, f := range []models.FileEntry{
		{ID: "f1", FolderID: strPtr("B"), Name: "budget-2024.pdf", Bundle: "document", FileRef: "public://budget-2024.pdf", Published: true},
		{ID: "f2", FolderID: strPtr("C"), Name: "banner.png", Bundle: "image", FileRef: "public://banner.png", Published: true},
		{ID: "f3", Name: "logo.svg", Bundle: "image", FileRef: "public://logo.svg", Published: true},
	} {
		entry := f
		require.NoError(s.t, s.mem.Files().Create(ctx, &entry))
	}
}

func strPtr(s string) *string { return &s }

// do sends a request as s.actor. A string body is sent verbatim, anything else as JSON.
func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req = httputil.WithActor(req, s.actor)

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func listingIDs(l models.Listing) []string {
	ids := make([]string, 0, len(l.Items))
	for _, it := range l.Items {
		ids = append(ids, it.ID())
	}
	return ids
}

// =============================================================================
// Read endpoints
// =============================================================================

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListFolder(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name    string
		path    string
		wantIDs []string
	}{
		{"root", "/api/explorer/folders", []string{"A", "C", "f3"}},
		{"root sentinel", "/api/explorer/folders/root", []string{"A", "C", "f3"}},
		{"folder", "/api/explorer/folders/A", []string{"B"}},
		{"descending", "/api/explorer/folders?order=az-desc", []string{"C", "A", "f3"}},
		{"bundle filter", "/api/explorer/folders/C?bundles=document", []string{}},
		{"repeated bundle", "/api/explorer/folders/C?bundle=image", []string{"f2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, tt.path, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantIDs, listingIDs(decode[models.Listing](t, rec)))
		})
	}
}

func TestListFolder_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"unknown folder", "/api/explorer/folders/nope", http.StatusNotFound},
		{"unknown order", "/api/explorer/folders?order=sideways", http.StatusBadRequest},
		{"negative offset", "/api/explorer/folders?offset=-1", http.StatusBadRequest},
		{"non-numeric limit", "/api/explorer/folders?limit=ten", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			problem := decode[map[string]interface{}](t, rec)
			assert.Equal(t, float64(tt.wantStatus), problem["status"])
		})
	}
}

func TestListFolder_Paging(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodGet, "/api/explorer/folders?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listing := decode[models.Listing](t, rec)
	assert.Equal(t, 1, listing.TotalFiles)
	assert.Nil(t, listing.LoadMore, "a single root file fits one page")
}

func TestGetFolder(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodGet, "/api/folders/B", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Folder models.Folder   `json:"folder"`
		Path   []models.Folder `json:"path"`
	}](t, rec)
	assert.Equal(t, "B", body.Folder.ID)
	require.Len(t, body.Path, 2)
	assert.Equal(t, "A", body.Path[0].ID)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/folders/nope", nil).Code)
}

func TestGetTree(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodGet, "/api/explorer/tree?active=B", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Folders []struct {
			Folder   models.Folder `json:"folder"`
			Children []struct {
				Folder models.Folder `json:"folder"`
			} `json:"children"`
		} `json:"folders"`
		ActiveTrail []string `json:"active_trail"`
	}](t, rec)

	require.Len(t, body.Folders, 2)
	assert.Equal(t, "A", body.Folders[0].Folder.ID)
	require.Len(t, body.Folders[0].Children, 1)
	assert.Equal(t, "B", body.Folders[0].Children[0].Folder.ID)
	assert.Equal(t, []string{"A", "B"}, body.ActiveTrail)

	rec = s.do(http.MethodGet, "/api/explorer/tree?root=A", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"active_trail":[]`)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/explorer/tree?root=nope", nil).Code)
}

func TestSearch(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodGet, "/api/explorer/search?q=BUDGET", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listing := decode[models.Listing](t, rec)
	assert.Equal(t, []string{"f1"}, listingIDs(listing))
	assert.NotEmpty(t, listing.Items[0].HighlightedName)

	rec = s.do(http.MethodGet, "/api/explorer/search?q=budget&scope=C", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[models.Listing](t, rec).Items, "search is scoped to the subtree")

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/explorer/search?q=%20", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/explorer/search?q=a&order=up", nil).Code)
}

// =============================================================================
// Mutations
// =============================================================================

func TestCreateFolder(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/api/folders", map[string]interface{}{"parent_id": "A", "name": "Invoices"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	folder := decode[models.Folder](t, rec)
	assert.Equal(t, "Invoices", folder.Name)
	assert.Equal(t, "A", *folder.ParentID)

	rec = s.do(http.MethodPost, "/api/folders", map[string]interface{}{"parent_id": "root", "name": "finance"})
	require.Equal(t, http.StatusConflict, rec.Code)
	problem := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "folder", problem["resource_type"])
	assert.Equal(t, "A", problem["resource_id"])

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/folders", `{"name":`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/folders", `{"name":"x","color":"red"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/folders", map[string]string{"name": "a/b"}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/folders", map[string]string{"name": "x", "parent_id": "nope"}).Code)
}

func TestUpdateFolder(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPatch, "/api/folders/A", `{"name":"Money","description":"budgets"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "budgets", decode[models.Folder](t, rec).Description)

	// Absent description is kept.
	rec = s.do(http.MethodPatch, "/api/folders/A", `{"name":"Money"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "budgets", decode[models.Folder](t, rec).Description)

	// null clears it.
	rec = s.do(http.MethodPatch, "/api/folders/A", `{"name":"Money","description":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[models.Folder](t, rec).Description)

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPatch, "/api/folders/A", `{"name":"marketing"}`).Code)
}

func TestDeleteFolder(t *testing.T) {
	s := newTestServer(t, nil)

	// Warm the root listing so the delete has to invalidate it.
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/explorer/folders", nil).Code)

	rec := s.do(http.MethodDelete, "/api/folders/A", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[struct {
		DeletedFolderIDs []string `json:"deleted_folder_ids"`
		ReparentedFiles  []string `json:"reparented_file_ids"`
		NewParentID      *string  `json:"new_parent_id"`
	}](t, rec)
	assert.Equal(t, []string{"B", "A"}, result.DeletedFolderIDs)
	assert.Equal(t, []string{"f1"}, result.ReparentedFiles)
	assert.Nil(t, result.NewParentID)

	rec = s.do(http.MethodGet, "/api/explorer/folders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"C", "f1", "f3"}, listingIDs(decode[models.Listing](t, rec)))

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/folders/A", nil).Code)
}

func TestMoveFolder(t *testing.T) {
	s := newTestServer(t, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, s.do(http.MethodPost, "/api/folders/A/move", `{"target_id":"B"}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(http.MethodPost, "/api/folders/A/move", `{"target_id":"A"}`).Code)

	rec := s.do(http.MethodPost, "/api/folders/B/move", `{"target_id":"C"}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/folders/B/move", `{"target_id":"root"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	b, err := s.mem.Folders().GetByID(context.Background(), "B")
	require.NoError(t, err)
	assert.Nil(t, b.ParentID)
}

func TestFileLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	s.actor = models.Actor{ID: "alice"}

	rec := s.do(http.MethodPost, "/api/files", map[string]interface{}{
		"folder_id": "C",
		"name":      "teaser",
		"bundle":    "remote_video",
		"link_url":  "https://example.com/watch?v=42",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decode[models.FileEntry](t, rec)
	assert.Equal(t, "alice", entry.OwnerID)
	assert.True(t, entry.Published)

	rec = s.do(http.MethodPatch, "/api/files/"+entry.ID, `{"name":"trailer","published":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "trailer", decode[models.FileEntry](t, rec).Name)

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPatch, "/api/files/"+entry.ID, `{"name":"BANNER.png"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPatch, "/api/files/"+entry.ID, `{}`).Code)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPost, "/api/files/"+entry.ID+"/move", `{"target_id":null}`).Code)
	moved, err := s.mem.Files().GetByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Nil(t, moved.FolderID)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/api/files/"+entry.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/files/"+entry.ID, nil).Code)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/files", map[string]string{"name": "x", "bundle": "image"}).Code)
}

func TestMutations_Forbidden(t *testing.T) {
	s := newTestServer(t, serviceAuth.NewPermissionAuthorizer())

	// Anonymous
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/folders", map[string]string{"name": "X"}).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/api/files/f3", nil).Code)

	// Reading stays open.
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/explorer/folders", nil).Code)

	s.actor = models.Actor{ID: "admin", Permissions: serviceAuth.AllPermissions()}
	assert.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/folders", map[string]string{"name": "X"}).Code)
}

// =============================================================================
// Picker
// =============================================================================

type signedState struct {
	State   models.WidgetState  `json:"state"`
	Params  map[string][]string `json:"params"`
	Encoded string              `json:"encoded"`
}

func (s *testServer) signState(body map[string]interface{}) signedState {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/explorer/picker/state", body)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[signedState](s.t, rec)
}

func TestSignState(t *testing.T) {
	s := newTestServer(t, nil)

	signed := s.signState(map[string]interface{}{
		"opener_id":      "field_media",
		"allowed_types":  []string{"image", "document"},
		"selected_type":  "image",
		"opener_context": map[string]string{"entity": "node/1"},
	})
	assert.True(t, signed.State.Unlimited(), "missing remaining_slots means unlimited")
	assert.Equal(t, []string{"document", "image"}, signed.State.AllowedTypes)
	assert.NotEmpty(t, signed.Encoded)
	assert.Equal(t, []string{signed.State.Hash}, signed.Params[models.ParamHash])

	rec := s.do(http.MethodPost, "/api/explorer/picker/state", map[string]interface{}{
		"opener_id":     "field_media",
		"allowed_types": []string{"image"},
		"selected_type": "document",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBuildPicker(t *testing.T) {
	s := newTestServer(t, nil)
	signed := s.signState(map[string]interface{}{
		"opener_id":       "field_media",
		"allowed_types":   []string{"image", "document"},
		"selected_type":   "image",
		"remaining_slots": 2,
	})

	type pickerBody struct {
		SelectedType  string             `json:"selected_type"`
		Filter        models.FilterSpec  `json:"filter"`
		AllowedFilter models.FilterSpec  `json:"allowed_filter"`
		Unlimited     bool               `json:"unlimited"`
		State         models.WidgetState `json:"state"`
		Listing       models.Listing     `json:"listing"`
	}

	t.Run("encoded state", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/explorer/picker", map[string]interface{}{
			"encoded":   signed.Encoded,
			"folder_id": "C",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode[pickerBody](t, rec)
		assert.Equal(t, "image", body.SelectedType)
		assert.Equal(t, []string{"image"}, body.Filter.Bundles)
		assert.ElementsMatch(t, []string{"image", "document"}, body.AllowedFilter.Bundles)
		assert.False(t, body.Unlimited)
		assert.Equal(t, 2, body.State.RemainingSlots)
		assert.Equal(t, []string{"f2"}, listingIDs(body.Listing))
	})

	t.Run("parameter map with type switch", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/explorer/picker", map[string]interface{}{
			"state":     signed.Params,
			"folder_id": "B",
			"type":      "document",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode[pickerBody](t, rec)
		assert.Equal(t, "document", body.SelectedType)
		assert.Equal(t, []string{"f1"}, listingIDs(body.Listing))
	})

	t.Run("type outside allowed", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/explorer/picker", map[string]interface{}{
			"state": signed.Params,
			"type":  "video",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("tampered state", func(t *testing.T) {
		params := map[string][]string{}
		for k, v := range signed.Params {
			params[k] = v
		}
		params[models.ParamRemainingSlots] = []string{"-1"}

		rec := s.do(http.MethodPost, "/api/explorer/picker", map[string]interface{}{"state": params})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		problem := decode[map[string]interface{}](t, rec)
		assert.Equal(t, "widget state is invalid or has been tampered with", problem["detail"])
	})

	t.Run("missing state", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/explorer/picker", `{}`).Code)
	})

	t.Run("malformed encoding", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/explorer/picker", map[string]string{"encoded": "%zz"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
