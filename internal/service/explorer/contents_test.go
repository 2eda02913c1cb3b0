package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"mediafolders/internal/domain"
	models "mediafolders/internal/domain/models/explorer"
	explorerSvc "mediafolders/internal/domain/services/explorer"
	serviceAuth "mediafolders/internal/service/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// LISTING SHAPE
// ============================================================================

func TestResolve_FoldersPrecedeFiles(t *testing.T) {
	f := newFixture(t)
	f.addFile("root-file", "", "aaa.png", "image")
	f.addFolder("Z", "", "zzz")
	f.addFolder("M", "", "mmm")

	listing, err := f.contents(nil).Resolve(f.ctx, &explorerSvc.ListRequest{})
	require.NoError(t, err)

	assert.Equal(t, []string{"M", "Z", "root-file"}, itemIDs(listing))
	assert.Equal(t, models.ItemKindFolder, listing.Items[0].Kind)
	assert.Equal(t, models.ItemKindFile, listing.Items[2].Kind)
	assert.Equal(t, 1, listing.TotalFiles)
	assert.Nil(t, listing.LoadMore)
}

func TestResolve_EmptyFolder(t *testing.T) {
	f := newFixture(t)
	f.addFolder("E", "", "Empty")

	listing, err := f.contents(nil).Resolve(f.ctx, &explorerSvc.ListRequest{FolderID: optID("E")})
	require.NoError(t, err)

	assert.Empty(t, listing.Items)
	assert.Zero(t, listing.TotalFiles)
	assert.Nil(t, listing.LoadMore, "an empty folder has no load-more marker")
}

func TestResolve_RootSentinelAndUnknownFolder(t *testing.T) {
	f := newFixture(t)
	f.addFolder("A", "", "A")
	f.addFile("in-a", "A", "inside.png", "image")
	f.addFile("at-root", "", "top.png", "image")

	listing, err := f.contents(nil).Resolve(f.ctx, &explorerSvc.ListRequest{FolderID: optID(models.RootID)})
	require.NoError(t, err)
	assert.Nil(t, listing.FolderID)
	assert.Equal(t, []string{"A", "at-root"}, itemIDs(listing))

	_, err = f.contents(nil).Resolve(f.ctx, &explorerSvc.ListRequest{FolderID: optID("missing")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolve_RejectsUnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.contents(nil).Resolve(f.ctx, &explorerSvc.ListRequest{Order: "sideways"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ============================================================================
// PAGINATION
// ============================================================================

func TestResolve_PaginationIsComplete(t *testing.T) {
	orders := []models.OrderSpec{
		models.OrderNameAsc,
		models.OrderNameDesc,
		models.OrderDateAsc,
		models.OrderDateDesc,
	}

	for _, order := range orders {
		t.Run(string(order), func(t *testing.T) {
			f := newFixture(t)
			f.addFolder("P", "", "Pictures")
			f.addFolder("S", "P", "Sub")
			// Names and creation times deliberately disagree on order.
			for i := 1; i <= 7; i++ {
				f.addFile(fmt.Sprintf("f%d", i), "P", fmt.Sprintf("%c-photo.png", 'h'-i), "image")
			}
			f.addFile("other", "", "elsewhere.png", "image")

			svc := f.contents(nil)
			full, err := svc.Resolve(f.ctx, &explorerSvc.ListRequest{
				FolderID: optID("P"),
				Order:    order,
				Cursor:   models.PageCursor{Limit: 100},
			})
			require.NoError(t, err)
			want := fileIDs(full.Files())
			require.Len(t, want, 7)

			var got []string
			cursor := models.PageCursor{Offset: 0, Limit: 3}
			for pages := 0; ; pages++ {
				require.Less(t, pages, 10, "pagination did not terminate")

				page, err := svc.Resolve(f.ctx, &explorerSvc.ListRequest{
					FolderID: optID("P"),
					Order:    order,
					Cursor:   cursor,
				})
				require.NoError(t, err)

				if cursor.Offset == 0 {
					require.Len(t, page.Folders(), 1)
				} else {
					assert.Empty(t, page.Folders(), "folders are listed on the first page only")
				}
				got = append(got, fileIDs(page.Files())...)

				if page.LoadMore == nil {
					break
				}
				cursor = models.PageCursor{Offset: page.LoadMore.NextOffset, Limit: page.LoadMore.Limit}
			}

			assert.Equal(t, want, got)
		})
	}
}

// pageThrough collects file ids from every page of the folder's listing.
func pageThrough(t *testing.T, svc *contentsService, folderID string, order models.OrderSpec, limit int) []string {
	t.Helper()
	var ids []string
	cursor := models.PageCursor{Limit: limit}
	for pages := 0; ; pages++ {
		require.Less(t, pages, 20, "pagination did not terminate")
		page, err := svc.Resolve(context.Background(), &explorerSvc.ListRequest{
			FolderID: optID(folderID),
			Order:    order,
			Cursor:   cursor,
		})
		require.NoError(t, err)
		ids = append(ids, fileIDs(page.Files())...)
		if page.LoadMore == nil {
			return ids
		}
		cursor = models.PageCursor{Offset: page.LoadMore.NextOffset, Limit: page.LoadMore.Limit}
	}
}

func TestResolve_TiedCreationTimesPageConsistently(t *testing.T) {
	f := newFixture(t)
	f.addFolder("P", "", "Pictures")
	same := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	for id, name := range map[string]string{"f1": "c.png", "f2": "a.png", "f3": "d.png", "f4": "b.png"} {
		f.addFile(id, "P", name, "image", createdAt(same))
	}
	svc := f.contents(nil)

	asc := pageThrough(t, svc, "P", models.OrderDateAsc, 100)
	desc := pageThrough(t, svc, "P", models.OrderDateDesc, 100)
	assert.Equal(t, []string{"f1", "f2", "f3", "f4"}, asc, "ties fall back to the id")
	assert.Equal(t, reversed(asc), desc)

	for _, limit := range []int{1, 2, 3} {
		assert.Equal(t, asc, pageThrough(t, svc, "P", models.OrderDateAsc, limit), "date-asc limit %d", limit)
		assert.Equal(t, desc, pageThrough(t, svc, "P", models.OrderDateDesc, limit), "date-desc limit %d", limit)
	}
}

func TestResolve_LoadMoreMarker(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.addFile(fmt.Sprintf("f%d", i), "", fmt.Sprintf("file-%d.png", i), "image")
	}

	tests := []struct {
		name     string
		cursor   models.PageCursor
		wantNext *models.LoadMore
		wantLen  int
	}{
		{name: "first page", cursor: models.PageCursor{Limit: 2}, wantNext: &models.LoadMore{NextOffset: 2, Limit: 2}, wantLen: 2},
		{name: "exact fit", cursor: models.PageCursor{Offset: 3, Limit: 2}, wantNext: nil, wantLen: 2},
		{name: "offset past the end", cursor: models.PageCursor{Offset: 10, Limit: 2}, wantNext: nil, wantLen: 0},
		{name: "negative offset is clamped", cursor: models.PageCursor{Offset: -4, Limit: 4}, wantNext: &models.LoadMore{NextOffset: 4, Limit: 4}, wantLen: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing, err := f.contents(nil).Resolve(f.ctx, &explorerSvc.ListRequest{Cursor: tt.cursor})
			require.NoError(t, err)
			assert.Len(t, listing.Files(), tt.wantLen)
			assert.Equal(t, tt.wantNext, listing.LoadMore)
			assert.Equal(t, 5, listing.TotalFiles)
		})
	}
}

// ============================================================================
// IDEMPOTENCE
// ============================================================================

func TestResolve_Idempotent(t *testing.T) {
	for _, withCache := range []bool{false, true} {
		t.Run(fmt.Sprintf("cache=%t", withCache), func(t *testing.T) {
			f := newFixture(t)
			f.addFolder("A", "", "Assets")
			f.addFolder("B", "A", "Brand")
			f.addFile("1", "A", "logo.svg", "image")
			f.addFile("2", "B", "guide.pdf", "document")

			var cache ListingCache
			if withCache {
				cache = NewExplorerCache(0, testLogger())
			}
			svc := f.contents(cache)
			req := &explorerSvc.ListRequest{FolderID: optID("A"), Order: models.OrderDateDesc}

			first, err := svc.Resolve(f.ctx, req)
			require.NoError(t, err)
			second, err := svc.Resolve(f.ctx, req)
			require.NoError(t, err)

			a, err := json.Marshal(first)
			require.NoError(t, err)
			b, err := json.Marshal(second)
			require.NoError(t, err)
			assert.Equal(t, string(a), string(b))
		})
	}
}

// ============================================================================
// FILTERING, COUNTS AND VISIBILITY
// ============================================================================

func TestResolve_BundleFilterAndChildCounts(t *testing.T) {
	f := newFixture(t)
	f.addFolder("A", "", "Assets")
	f.addFolder("B", "A", "Brand")
	f.addFile("a-img", "A", "hero.png", "image")
	f.addFile("b-img1", "B", "logo.png", "image")
	f.addFile("b-img2", "B", "mark.png", "image")
	f.addFile("b-doc", "B", "guide.pdf", "document")
	f.addFile("b-hidden", "B", "draft.png", "image", unpublished)
	f.addFile("root-doc", "", "readme.pdf", "document")

	tests := []struct {
		name      string
		filter    models.FilterSpec
		wantCount int
		wantFiles []string
	}{
		{name: "no filter", filter: models.FilterSpec{}, wantCount: 1 + 4, wantFiles: []string{"root-doc"}},
		{name: "images only", filter: models.NewFilterSpec("image"), wantCount: 1 + 3, wantFiles: []string{}},
		{name: "documents only", filter: models.NewFilterSpec("document"), wantCount: 1 + 1, wantFiles: []string{"root-doc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing, err := f.contents(nil).Resolve(f.ctx, &explorerSvc.ListRequest{Filter: tt.filter})
			require.NoError(t, err)

			require.Len(t, listing.Folders(), 1)
			assert.Equal(t, tt.wantCount, listing.Items[0].ChildCount)
			assert.Equal(t, tt.wantFiles, fileIDs(listing.Files()))
		})
	}
}

func TestResolve_DefaultFilterFromConfig(t *testing.T) {
	f := newFixture(t)
	f.cfg.DefaultBundles = []string{"image"}
	f.addFile("img", "", "photo.png", "image")
	f.addFile("doc", "", "notes.pdf", "document")

	listing, err := f.contents(nil).Resolve(f.ctx, &explorerSvc.ListRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"img"}, fileIDs(listing.Files()))

	listing, err = f.contents(nil).Resolve(f.ctx, &explorerSvc.ListRequest{Filter: models.NewFilterSpec("document")})
	require.NoError(t, err)
	assert.Equal(t, []string{"doc"}, fileIDs(listing.Files()))
}

func TestResolve_UnpublishedVisibility(t *testing.T) {
	f := newFixture(t).withAccess(serviceAuth.NewPermissionAuthorizer())
	f.addFile("pub", "", "a-public.png", "image")
	f.addFile("mine", "", "b-mine.png", "image", unpublished, ownedBy("alice"))
	f.addFile("theirs", "", "c-theirs.png", "image", unpublished, ownedBy("bob"))

	tests := []struct {
		name  string
		actor models.Actor
		want  []string
	}{
		{name: "anonymous", actor: models.Anonymous, want: []string{"pub"}},
		{name: "owner without permission", actor: models.Actor{ID: "alice"}, want: []string{"pub"}},
		{name: "owner with permission", actor: models.Actor{ID: "alice", Permissions: []string{serviceAuth.PermViewOwnUnpublished}}, want: []string{"pub", "mine"}},
		{name: "administrator", actor: models.Actor{ID: "root", Permissions: []string{serviceAuth.PermAdminister}}, want: []string{"pub"}},
	}

	cache := NewExplorerCache(0, testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing, err := f.contents(cache).Resolve(f.ctx, &explorerSvc.ListRequest{Actor: tt.actor})
			require.NoError(t, err)
			assert.Equal(t, tt.want, fileIDs(listing.Files()))
		})
	}
}

func TestResolve_Actions(t *testing.T) {
	t.Run("without access checker every action is offered", func(t *testing.T) {
		f := newFixture(t)
		f.addFolder("A", "", "A")
		f.addFile("1", "", "one.png", "image")

		listing, err := f.contents(nil).Resolve(f.ctx, &explorerSvc.ListRequest{IncludeActions: true})
		require.NoError(t, err)
		for _, it := range listing.Items {
			assert.Equal(t, []models.Action{models.ActionEdit, models.ActionDelete, models.ActionMove}, it.Actions)
		}
	})

	t.Run("actions follow the actor's permissions", func(t *testing.T) {
		f := newFixture(t).withAccess(serviceAuth.NewPermissionAuthorizer())
		f.addFolder("A", "", "A")
		f.addFile("mine", "", "mine.png", "image", ownedBy("alice"))
		f.addFile("theirs", "", "theirs.png", "image", ownedBy("bob"))

		actor := models.Actor{ID: "alice", Permissions: []string{serviceAuth.PermEditOwnMedia}}
		listing, err := f.contents(nil).Resolve(f.ctx, &explorerSvc.ListRequest{IncludeActions: true, Actor: actor})
		require.NoError(t, err)

		byID := map[string][]models.Action{}
		for _, it := range listing.Items {
			byID[it.ID()] = it.Actions
		}
		assert.Empty(t, byID["A"])
		assert.Equal(t, []models.Action{models.ActionEdit, models.ActionMove}, byID["mine"])
		assert.Empty(t, byID["theirs"])
	})
}
