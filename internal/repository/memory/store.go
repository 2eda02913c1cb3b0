// Package memory is an in-process content store. It backs the server when no
// database is configured and is the store used by service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"mediafolders/internal/domain"
	models "mediafolders/internal/domain/models/explorer"
	"mediafolders/internal/domain/repositories"
	explorerRepo "mediafolders/internal/domain/repositories/explorer"

	"github.com/google/uuid"
)

// Option configures a Store.
type Option func(*Store)

// WithoutRollback makes ExecTx run its function without snapshotting, like a
// store that has no transactions.
func WithoutRollback() Option {
	return func(s *Store) { s.noRollback = true }
}

// Store holds folders and file entries in maps guarded by one lock.
type Store struct {
	mu      sync.RWMutex
	folders map[string]models.Folder
	files   map[string]models.FileEntry

	noRollback bool

	faultMu sync.Mutex
	faults  map[string]*fault
}

type fault struct {
	skip int
	err  error
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		folders: make(map[string]models.Folder),
		files:   make(map[string]models.FileEntry),
		faults:  make(map[string]*fault),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Folders returns the folder repository view of the store.
func (s *Store) Folders() explorerRepo.FolderRepository { return &folderRepo{s: s} }

// Files returns the file entry repository view of the store.
func (s *Store) Files() explorerRepo.FileEntryRepository { return &fileRepo{s: s} }

// ContentStore bundles both repositories with an access checker.
func (s *Store) ContentStore(access explorerRepo.AccessChecker) explorerRepo.ContentStore {
	return explorerRepo.ContentStore{
		Folders: s.Folders(),
		Files:   s.Files(),
		Access:  access,
	}
}

// TxManager returns the store as a repositories.TransactionManager.
func (s *Store) TxManager() repositories.TransactionManager { return s }

type txKey struct{}

// ExecTx runs fn holding the store lock and restores the previous contents if
// it fails. Repository calls made with the context passed to fn run under that
// lock; other callers wait until the transaction ends. A nested ExecTx joins
// the outer transaction.
func (s *Store) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if s.noRollback || s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	folders := make(map[string]models.Folder, len(s.folders))
	for k, v := range s.folders {
		folders[k] = v
	}
	files := make(map[string]models.FileEntry, len(s.files))
	for k, v := range s.files {
		files[k] = v
	}

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.folders = folders
		s.files = files
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock takes the write lock unless ctx belongs to a transaction already
// holding it, and returns the matching unlock.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// InjectFault makes the named operation (e.g. "folders.delete", "files.update")
// succeed skip more times and then fail once with err.
func (s *Store) InjectFault(op string, skip int, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = &fault{skip: skip, err: err}
}

func (s *Store) checkFault(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	f, ok := s.faults[op]
	if !ok {
		return nil
	}
	if f.skip > 0 {
		f.skip--
		return nil
	}
	delete(s.faults, op)
	return f.err
}

func notFound(kind, id string) error {
	return &domain.NotFoundError{Message: fmt.Sprintf("%s %s not found", kind, id)}
}

func cloneID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func folderKey(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}

// folderExistsLocked reports whether id is nil (root) or an existing folder.
func (s *Store) folderExistsLocked(id *string) bool {
	if id == nil {
		return true
	}
	_, ok := s.folders[*id]
	return ok
}

type folderRepo struct {
	s *Store
}

func (r *folderRepo) Create(ctx context.Context, folder *models.Folder) error {
	if err := r.s.checkFault("folders.create"); err != nil {
		return err
	}
	defer r.s.lock(ctx)()

	if !r.s.folderExistsLocked(folder.ParentID) {
		return notFound("folder", folderKey(folder.ParentID))
	}
	if err := r.siblingConflictLocked(folder.ParentID, folder.Name, ""); err != nil {
		return err
	}
	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}
	stored := *folder
	stored.ParentID = cloneID(folder.ParentID)
	r.s.folders[folder.ID] = stored
	return nil
}

func (r *folderRepo) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	if err := r.s.checkFault("folders.get"); err != nil {
		return nil, err
	}
	defer r.s.rlock(ctx)()

	f, ok := r.s.folders[id]
	if !ok {
		return nil, notFound("folder", id)
	}
	f.ParentID = cloneID(f.ParentID)
	return &f, nil
}

func (r *folderRepo) Update(ctx context.Context, folder *models.Folder) error {
	if err := r.s.checkFault("folders.update"); err != nil {
		return err
	}
	defer r.s.lock(ctx)()

	current, ok := r.s.folders[folder.ID]
	if !ok {
		return notFound("folder", folder.ID)
	}
	if !r.s.folderExistsLocked(folder.ParentID) {
		return notFound("folder", folderKey(folder.ParentID))
	}
	if err := r.siblingConflictLocked(folder.ParentID, folder.Name, folder.ID); err != nil {
		return err
	}

	current.ParentID = cloneID(folder.ParentID)
	current.Name = folder.Name
	current.Description = folder.Description
	current.UpdatedAt = folder.UpdatedAt
	r.s.folders[folder.ID] = current
	return nil
}

func (r *folderRepo) Delete(ctx context.Context, id string) error {
	if err := r.s.checkFault("folders.delete"); err != nil {
		return err
	}
	defer r.s.lock(ctx)()

	if _, ok := r.s.folders[id]; !ok {
		return notFound("folder", id)
	}
	for _, f := range r.s.folders {
		if f.ParentID != nil && *f.ParentID == id {
			return &domain.ConflictError{Message: "cannot delete folder with subfolders", ResourceType: "folder", ResourceID: id}
		}
	}
	for _, f := range r.s.files {
		if f.FolderID != nil && *f.FolderID == id {
			return &domain.ConflictError{Message: "cannot delete folder with files", ResourceType: "folder", ResourceID: id}
		}
	}
	delete(r.s.folders, id)
	return nil
}

func (r *folderRepo) ListChildren(ctx context.Context, parentID *string) ([]models.Folder, error) {
	if err := r.s.checkFault("folders.list"); err != nil {
		return nil, err
	}
	defer r.s.rlock(ctx)()

	var out []models.Folder
	for _, f := range r.s.folders {
		if models.SameFolder(f.ParentID, parentID) {
			f.ParentID = cloneID(f.ParentID)
			out = append(out, f)
		}
	}
	sortFolders(out)
	return out, nil
}

func (r *folderRepo) ListSubtree(ctx context.Context, parentID *string) ([]models.Folder, error) {
	if err := r.s.checkFault("folders.subtree"); err != nil {
		return nil, err
	}
	defer r.s.rlock(ctx)()

	children := make(map[string][]models.Folder)
	for _, f := range r.s.folders {
		children[folderKey(f.ParentID)] = append(children[folderKey(f.ParentID)], f)
	}

	var out []models.Folder
	queue := []string{folderKey(parentID)}
	seen := make(map[string]bool)
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		level := children[key]
		sortFolders(level)
		for _, f := range level {
			if seen[f.ID] {
				continue
			}
			seen[f.ID] = true
			f.ParentID = cloneID(f.ParentID)
			out = append(out, f)
			queue = append(queue, f.ID)
		}
	}
	return out, nil
}

func (r *folderRepo) FindByName(ctx context.Context, parentID *string, name string) (*models.Folder, error) {
	defer r.s.rlock(ctx)()

	folded := models.FoldName(name)
	for _, f := range r.s.folders {
		if models.SameFolder(f.ParentID, parentID) && models.FoldName(f.Name) == folded {
			f.ParentID = cloneID(f.ParentID)
			return &f, nil
		}
	}
	return nil, nil
}

// siblingConflictLocked must be called with the write lock held, so the check
// and the following write are atomic.
// LockHierarchy is a no-op beyond fault injection: ExecTx already holds the
// store lock for the whole transaction.
func (r *folderRepo) LockHierarchy(ctx context.Context) error {
	return r.s.checkFault("folders.lock")
}

func (r *folderRepo) siblingConflictLocked(parentID *string, name, selfID string) error {
	folded := models.FoldName(name)
	for _, f := range r.s.folders {
		if f.ID != selfID && models.SameFolder(f.ParentID, parentID) && models.FoldName(f.Name) == folded {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists in this location", f.Name),
				ResourceType: "folder",
				ResourceID:   f.ID,
			}
		}
	}
	return nil
}

type fileRepo struct {
	s *Store
}

func (r *fileRepo) Create(ctx context.Context, entry *models.FileEntry) error {
	if err := r.s.checkFault("files.create"); err != nil {
		return err
	}
	defer r.s.lock(ctx)()

	if !r.s.folderExistsLocked(entry.FolderID) {
		return notFound("folder", folderKey(entry.FolderID))
	}
	if err := r.nameConflictLocked(entry.FolderID, entry.Name, ""); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	stored := *entry
	stored.FolderID = cloneID(entry.FolderID)
	r.s.files[entry.ID] = stored
	return nil
}

func (r *fileRepo) GetByID(ctx context.Context, id string) (*models.FileEntry, error) {
	if err := r.s.checkFault("files.get"); err != nil {
		return nil, err
	}
	defer r.s.rlock(ctx)()

	f, ok := r.s.files[id]
	if !ok {
		return nil, notFound("file", id)
	}
	f.FolderID = cloneID(f.FolderID)
	return &f, nil
}

func (r *fileRepo) Update(ctx context.Context, entry *models.FileEntry) error {
	if err := r.s.checkFault("files.update"); err != nil {
		return err
	}
	defer r.s.lock(ctx)()

	current, ok := r.s.files[entry.ID]
	if !ok {
		return notFound("file", entry.ID)
	}
	if !r.s.folderExistsLocked(entry.FolderID) {
		return notFound("folder", folderKey(entry.FolderID))
	}
	if err := r.nameConflictLocked(entry.FolderID, entry.Name, entry.ID); err != nil {
		return err
	}

	current.FolderID = cloneID(entry.FolderID)
	current.Name = entry.Name
	current.Published = entry.Published
	current.UpdatedAt = entry.UpdatedAt
	r.s.files[entry.ID] = current
	return nil
}

func (r *fileRepo) Delete(ctx context.Context, id string) error {
	if err := r.s.checkFault("files.delete"); err != nil {
		return err
	}
	defer r.s.lock(ctx)()

	if _, ok := r.s.files[id]; !ok {
		return notFound("file", id)
	}
	delete(r.s.files, id)
	return nil
}

func (r *fileRepo) Query(ctx context.Context, q explorerRepo.FileQuery) ([]models.FileEntry, int, error) {
	if err := r.s.checkFault("files.query"); err != nil {
		return nil, 0, err
	}
	matched := r.match(ctx, q)
	total := len(matched)

	start := q.Offset
	if start > total {
		start = total
	}
	end := total
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	return matched[start:end], total, nil
}

func (r *fileRepo) Count(ctx context.Context, q explorerRepo.FileQuery) (int, error) {
	if err := r.s.checkFault("files.count"); err != nil {
		return 0, err
	}
	return len(r.match(ctx, q)), nil
}

func (r *fileRepo) ListByFolder(ctx context.Context, folderID *string) ([]models.FileEntry, error) {
	if err := r.s.checkFault("files.list"); err != nil {
		return nil, err
	}
	defer r.s.rlock(ctx)()

	var out []models.FileEntry
	for _, f := range r.s.files {
		if models.SameFolder(f.FolderID, folderID) {
			f.FolderID = cloneID(f.FolderID)
			out = append(out, f)
		}
	}
	sortFiles(out, models.OrderDateAsc)
	return out, nil
}

func (r *fileRepo) FindByName(ctx context.Context, folderID *string, name string) (*models.FileEntry, error) {
	defer r.s.rlock(ctx)()

	folded := models.FoldName(name)
	for _, f := range r.s.files {
		if models.SameFolder(f.FolderID, folderID) && models.FoldName(f.Name) == folded {
			f.FolderID = cloneID(f.FolderID)
			return &f, nil
		}
	}
	return nil, nil
}

func (r *fileRepo) nameConflictLocked(folderID *string, name, selfID string) error {
	folded := models.FoldName(name)
	for _, f := range r.s.files {
		if f.ID != selfID && models.SameFolder(f.FolderID, folderID) && models.FoldName(f.Name) == folded {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a file named %q already exists in this location", f.Name),
				ResourceType: "file",
				ResourceID:   f.ID,
			}
		}
	}
	return nil
}

// match returns every entry satisfying q, sorted by q.Order with the id as tie-break.
func (r *fileRepo) match(ctx context.Context, q explorerRepo.FileQuery) []models.FileEntry {
	defer r.s.rlock(ctx)()

	scope := make(map[string]bool, len(q.FolderIDs))
	for _, id := range q.FolderIDs {
		scope[id] = true
	}
	bundles := make(map[string]bool, len(q.Bundles))
	for _, b := range q.Bundles {
		bundles[b] = true
	}
	needle := models.FoldName(q.NameContains)

	var out []models.FileEntry
	for _, f := range r.s.files {
		if !q.AllFolders {
			if f.FolderID == nil && !q.IncludeRoot {
				continue
			}
			if f.FolderID != nil && !scope[*f.FolderID] {
				continue
			}
		}
		if len(bundles) > 0 && !bundles[f.Bundle] {
			continue
		}
		if needle != "" && !strings.Contains(models.FoldName(f.Name), needle) {
			continue
		}
		if q.PublishedOnly && !f.Published && (q.VisibleTo == "" || f.OwnerID != q.VisibleTo) {
			continue
		}
		f.FolderID = cloneID(f.FolderID)
		out = append(out, f)
	}
	sortFiles(out, q.Order)
	return out
}

func sortFolders(folders []models.Folder) {
	sort.Slice(folders, func(i, j int) bool {
		a, b := models.FoldName(folders[i].Name), models.FoldName(folders[j].Name)
		if a != b {
			return a < b
		}
		return folders[i].ID < folders[j].ID
	})
}

// sortFiles orders by name or creation time, then id. Descending orders are
// the exact reverse of the ascending ones.
func sortFiles(files []models.FileEntry, order models.OrderSpec) {
	if !order.Valid() {
		order = models.DefaultOrder
	}
	less := func(a, b models.FileEntry) bool {
		if order.ByDate() {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		} else if fa, fb := models.FoldName(a.Name), models.FoldName(b.Name); fa != fb {
			return fa < fb
		}
		return a.ID < b.ID
	}
	sort.Slice(files, func(i, j int) bool {
		if order.Descending() {
			return less(files[j], files[i])
		}
		return less(files[i], files[j])
	})
}
