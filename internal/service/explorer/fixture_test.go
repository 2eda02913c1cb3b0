package explorer

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"mediafolders/internal/config"
	models "mediafolders/internal/domain/models/explorer"
	explorerRepo "mediafolders/internal/domain/repositories/explorer"
	"mediafolders/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

// fixture wires the services to an in-memory store with readable ids.
type fixture struct {
	t     *testing.T
	ctx   context.Context
	mem   *memory.Store
	store explorerRepo.ContentStore
	cfg   *config.ExplorerConfig
	clock time.Time
}

func newFixture(t *testing.T, opts ...memory.Option) *fixture {
	t.Helper()
	mem := memory.NewStore(opts...)
	return &fixture{
		t:     t,
		ctx:   context.Background(),
		mem:   mem,
		store: mem.ContentStore(nil),
		cfg:   config.DefaultExplorerConfig(),
		clock: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// tick returns a strictly increasing timestamp so creation order is unambiguous.
func (f *fixture) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fixture) withAccess(access explorerRepo.AccessChecker) *fixture {
	f.store = f.mem.ContentStore(access)
	return f
}

// addFolder stores a folder; parentID "" places it at the root.
func (f *fixture) addFolder(id, parentID, name string) models.Folder {
	f.t.Helper()
	now := f.tick()
	folder := models.Folder{
		ID:        id,
		ParentID:  optID(parentID),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(f.t, f.mem.Folders().Create(f.ctx, &folder))
	return folder
}

// addFile stores a published attachment entry; folderID "" places it at the root.
func (f *fixture) addFile(id, folderID, name, bundle string, mutate ...func(*models.FileEntry)) models.FileEntry {
	f.t.Helper()
	now := f.tick()
	entry := models.FileEntry{
		ID:        id,
		FolderID:  optID(folderID),
		Name:      name,
		Bundle:    bundle,
		FileRef:   "public://" + name,
		Published: true,
		OwnerID:   "owner",
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, m := range mutate {
		m(&entry)
	}
	require.NoError(f.t, f.mem.Files().Create(f.ctx, &entry))
	return entry
}

func (f *fixture) getFile(id string) *models.FileEntry {
	f.t.Helper()
	entry, err := f.mem.Files().GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return entry
}

func (f *fixture) contents(cache ListingCache) *contentsService {
	return NewContentsService(f.store, cache, f.cfg, testLogger()).(*contentsService)
}

func (f *fixture) search(cache ListingCache) *searchService {
	return NewSearchService(f.store, cache, f.cfg, testLogger()).(*searchService)
}

func (f *fixture) tree() *treeService {
	return NewTreeService(f.store.Folders, f.cfg, testLogger()).(*treeService)
}

// mutations returns a coordinator whose clock advances with the fixture's.
func (f *fixture) mutations(cache ListingCache) *mutationService {
	svc := NewMutationService(f.store, f.mem.TxManager(), cache, f.cfg, testLogger()).(*mutationService)
	svc.now = f.tick
	return svc
}

func optID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func unpublished(e *models.FileEntry) { e.Published = false }

func createdAt(ts time.Time) func(*models.FileEntry) {
	return func(e *models.FileEntry) { e.CreatedAt, e.UpdatedAt = ts, ts }
}

func ownedBy(owner string) func(*models.FileEntry) {
	return func(e *models.FileEntry) { e.OwnerID = owner }
}

func itemIDs(l *models.Listing) []string {
	ids := make([]string, 0, len(l.Items))
	for _, it := range l.Items {
		ids = append(ids, it.ID())
	}
	return ids
}

func fileIDs(files []models.FileEntry) []string {
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	return ids
}
