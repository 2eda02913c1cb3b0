package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"mediafolders/internal/config"
	"mediafolders/internal/domain"
	models "mediafolders/internal/domain/models/explorer"
	"mediafolders/internal/domain/repositories"
	explorerRepo "mediafolders/internal/domain/repositories/explorer"
	explorerSvc "mediafolders/internal/domain/services/explorer"
	"mediafolders/internal/metrics"
)

type mutationService struct {
	store     explorerRepo.ContentStore
	txManager repositories.TransactionManager
	cache     ListingCache
	cfg       *config.ExplorerConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewMutationService creates the mutation coordinator. cache may be nil.
func NewMutationService(
	store explorerRepo.ContentStore,
	txManager repositories.TransactionManager,
	cache ListingCache,
	cfg *config.ExplorerConfig,
	logger *slog.Logger,
) explorerSvc.MutationService {
	return &mutationService{
		store:     store,
		txManager: txManager,
		cache:     cache,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateFolder creates a folder under ParentID (nil = root).
func (s *mutationService) CreateFolder(ctx context.Context, req *explorerSvc.CreateFolderRequest) (folder *models.Folder, err error) {
	defer func() { recordOutcome("create_folder", err) }()

	if err := validateCreateFolderRequest(req); err != nil {
		return nil, err
	}

	parentID := models.NormalizeFolderID(req.ParentID)
	var parent *models.Folder
	if parentID != nil {
		parent, err = s.store.Folders.GetByID(ctx, *parentID)
		if err != nil {
			return nil, fmt.Errorf("parent folder: %w", err)
		}
	}
	if err := s.requireAccess(ctx, models.ActionCreate, models.Resource{Kind: models.ResourceFolder}, req.Actor); err != nil {
		return nil, err
	}

	if err := s.checkFolderName(ctx, parentID, req.Name, ""); err != nil {
		return nil, err
	}

	tags := s.chainTags(ctx, parentID)

	now := s.now()
	folder = &models.Folder{
		ParentID:    parentID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// The store re-checks uniqueness at write time; a concurrent create surfaces as a ConflictError here.
	if err := s.store.Folders.Create(ctx, folder); err != nil {
		return nil, err
	}

	s.invalidate(tags...)

	s.logger.Info("folder created",
		"id", folder.ID,
		"name", folder.Name,
		"parent_id", models.FolderKey(parentID),
		"parent_name", folderName(parent),
		"actor", req.Actor.ID,
	)
	return folder, nil
}

// RenameFolder renames a folder and optionally updates its description.
func (s *mutationService) RenameFolder(ctx context.Context, id string, req *explorerSvc.RenameFolderRequest) (folder *models.Folder, err error) {
	defer func() { recordOutcome("rename_folder", err) }()

	if err := validateRenameFolderRequest(req); err != nil {
		return nil, err
	}

	folder, err = s.store.Folders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, models.ActionEdit, models.FolderResource(folder), req.Actor); err != nil {
		return nil, err
	}

	if err := s.checkFolderName(ctx, folder.ParentID, req.Name, folder.ID); err != nil {
		return nil, err
	}

	tags := s.chainTags(ctx, &folder.ID)

	updated := *folder
	updated.Name = req.Name
	if req.Description != nil {
		updated.Description = *req.Description
	}
	updated.UpdatedAt = s.now()

	if err := s.store.Folders.Update(ctx, &updated); err != nil {
		return nil, err
	}

	s.invalidate(tags...)

	s.logger.Info("folder renamed",
		"id", updated.ID,
		"old_name", folder.Name,
		"name", updated.Name,
		"actor", req.Actor.ID,
	)
	return &updated, nil
}

// cascadePlan is computed before a cascading delete touches the store.
type cascadePlan struct {
	folder      *models.Folder
	newParentID *string
	// folders to delete, deepest first, ending with the folder itself
	folders []models.Folder
	// file id -> new name (same as old when no collision)
	files   []models.FileEntry
	renames map[string]string
}

// DeleteFolder deletes a folder and all of its subfolders. Every file in the
// deleted subtree is re-parented to the deleted folder's parent, renamed with
// a " (n)" suffix when the name is already taken there. No file is lost.
//
// The cascade runs in one transaction. If the store fails part way without
// rolling back, the remaining re-parent steps are retried and a
// reconciliation error is logged; the operation is still reported failed.
func (s *mutationService) DeleteFolder(ctx context.Context, id string, actor models.Actor) (result *explorerSvc.DeleteFolderResult, err error) {
	defer func() { recordOutcome("delete_folder", err) }()

	folder, err := s.store.Folders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, models.ActionDelete, models.FolderResource(folder), actor); err != nil {
		return nil, err
	}

	plan, err := s.planCascade(ctx, folder)
	if err != nil {
		return nil, err
	}

	tags := s.chainTags(ctx, &folder.ID)
	for _, f := range plan.folders {
		fid := f.ID
		tags = append(tags, FolderTag(&fid))
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		return s.applyCascade(ctx, plan)
	})
	if err != nil {
		// Whatever happened, cached listings of the subtree may now be wrong.
		s.invalidate(tags...)
		s.reconcileCascade(ctx, plan, err)
		return nil, fmt.Errorf("delete folder %s: %w", id, err)
	}

	s.invalidate(tags...)

	result = &explorerSvc.DeleteFolderResult{
		DeletedFolderIDs: make([]string, 0, len(plan.folders)),
		ReparentedFiles:  make([]string, 0, len(plan.files)),
		NewParentID:      plan.newParentID,
	}
	for _, f := range plan.folders {
		result.DeletedFolderIDs = append(result.DeletedFolderIDs, f.ID)
	}
	for _, f := range plan.files {
		result.ReparentedFiles = append(result.ReparentedFiles, f.ID)
		if plan.renames[f.ID] != f.Name {
			result.RenamedFiles = append(result.RenamedFiles, f.ID)
		}
	}

	s.logger.Info("folder deleted",
		"id", folder.ID,
		"name", folder.Name,
		"deleted_folders", len(result.DeletedFolderIDs),
		"reparented_files", len(result.ReparentedFiles),
		"renamed_files", len(result.RenamedFiles),
		"new_parent_id", models.FolderKey(plan.newParentID),
		"actor", actor.ID,
	)
	return result, nil
}

func (s *mutationService) planCascade(ctx context.Context, folder *models.Folder) (*cascadePlan, error) {
	subtree, err := s.store.Folders.ListSubtree(ctx, &folder.ID)
	if err != nil {
		return nil, fmt.Errorf("list subtree: %w", err)
	}

	// Depth of each folder relative to the deleted one, for deepest-first deletion.
	parentOf := make(map[string]string, len(subtree))
	for _, f := range subtree {
		if f.ParentID != nil {
			parentOf[f.ID] = *f.ParentID
		}
	}
	depth := func(id string) int {
		d := 0
		for cur := id; cur != folder.ID && d <= s.cfg.MaxTreeDepth; d++ {
			cur = parentOf[cur]
		}
		return d
	}
	ordered := append([]models.Folder(nil), subtree...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return depth(ordered[i].ID) > depth(ordered[j].ID)
	})
	ordered = append(ordered, *folder)

	plan := &cascadePlan{
		folder:      folder,
		newParentID: folder.ParentID,
		folders:     ordered,
		renames:     make(map[string]string),
	}

	existing, err := s.store.Files.ListByFolder(ctx, plan.newParentID)
	if err != nil {
		return nil, fmt.Errorf("list destination files: %w", err)
	}
	taken := make(map[string]struct{}, len(existing))
	for _, f := range existing {
		taken[foldName(f.Name)] = struct{}{}
	}

	// Files closest to the deleted folder keep their names first.
	for i := len(ordered) - 1; i >= 0; i-- {
		fid := ordered[i].ID
		files, err := s.store.Files.ListByFolder(ctx, &fid)
		if err != nil {
			return nil, fmt.Errorf("list files of %s: %w", fid, err)
		}
		for _, f := range Order(files, models.OrderDateAsc) {
			name := uniqueName(f.Name, f.ID, taken)
			taken[foldName(name)] = struct{}{}
			plan.renames[f.ID] = name
			plan.files = append(plan.files, f)
		}
	}
	return plan, nil
}

func (s *mutationService) applyCascade(ctx context.Context, plan *cascadePlan) error {
	now := s.now()
	for _, f := range plan.files {
		moved := f
		moved.FolderID = plan.newParentID
		moved.Name = plan.renames[f.ID]
		moved.UpdatedAt = now
		if err := s.store.Files.Update(ctx, &moved); err != nil {
			return fmt.Errorf("re-parent file %s: %w", f.ID, err)
		}
	}
	for _, f := range plan.folders {
		if err := s.store.Folders.Delete(ctx, f.ID); err != nil {
			return fmt.Errorf("delete folder %s: %w", f.ID, err)
		}
	}
	return nil
}

// reconcileCascade inspects the store after a failed cascade. A transactional
// store leaves nothing to do. Otherwise files stranded in folders that no
// longer exist are moved to the planned parent.
func (s *mutationService) reconcileCascade(ctx context.Context, plan *cascadePlan, cause error) {
	var stranded []models.FileEntry
	for _, f := range plan.files {
		current, err := s.store.Files.GetByID(ctx, f.ID)
		if err != nil {
			s.logger.Error("cascade reconciliation: cannot read file", "file_id", f.ID, "error", err)
			continue
		}
		if current.FolderID == nil || models.SameFolder(current.FolderID, plan.newParentID) {
			continue
		}
		if _, err := s.store.Folders.GetByID(ctx, *current.FolderID); errors.Is(err, domain.ErrNotFound) {
			stranded = append(stranded, *current)
		}
	}

	if len(stranded) == 0 {
		s.logger.Warn("folder delete failed, no partial state detected",
			"id", plan.folder.ID,
			"error", cause,
		)
		return
	}

	repaired := 0
	for _, f := range stranded {
		f.FolderID = plan.newParentID
		f.Name = plan.renames[f.ID]
		f.UpdatedAt = s.now()
		if err := s.store.Files.Update(ctx, &f); err != nil {
			s.logger.Error("cascade reconciliation: re-parent failed", "file_id", f.ID, "error", err)
			continue
		}
		repaired++
	}

	s.logger.Error("folder delete partially applied, reconciliation attempted",
		"id", plan.folder.ID,
		"stranded_files", len(stranded),
		"repaired_files", repaired,
		"error", cause,
	)
}

// MoveEntry moves a folder or a file entry into TargetID (nil = root).
func (s *mutationService) MoveEntry(ctx context.Context, req *explorerSvc.MoveRequest) (err error) {
	defer func() { recordOutcome("move_"+string(req.Kind), err) }()

	if err := validateMoveRequest(req); err != nil {
		return err
	}

	targetID := models.NormalizeFolderID(req.TargetID)
	if targetID != nil {
		if _, err := s.store.Folders.GetByID(ctx, *targetID); err != nil {
			return fmt.Errorf("target folder: %w", err)
		}
	}

	if req.Kind == models.ItemKindFolder {
		return s.moveFolder(ctx, req.EntryID, targetID, req.Actor)
	}
	return s.moveFile(ctx, req.EntryID, targetID, req.Actor)
}

func (s *mutationService) moveFolder(ctx context.Context, id string, targetID *string, actor models.Actor) error {
	folder, err := s.store.Folders.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireAccess(ctx, models.ActionMove, models.FolderResource(folder), actor); err != nil {
		return err
	}

	if err := s.validateNoCycle(ctx, id, targetID); err != nil {
		return err
	}
	if models.SameFolder(folder.ParentID, targetID) {
		return nil
	}
	if err := s.checkFolderName(ctx, targetID, folder.Name, folder.ID); err != nil {
		return err
	}

	tags := append(s.chainTags(ctx, &folder.ID), s.chainTags(ctx, targetID)...)

	oldParentID := folder.ParentID
	folder.ParentID = targetID
	folder.UpdatedAt = s.now()
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.store.Folders.LockHierarchy(ctx); err != nil {
			return err
		}
		// Another move may have committed since the first check.
		if err := s.validateNoCycle(ctx, id, targetID); err != nil {
			return err
		}
		return s.store.Folders.Update(ctx, folder)
	})
	if err != nil {
		return err
	}

	s.invalidate(tags...)

	s.logger.Info("folder moved",
		"id", folder.ID,
		"from", models.FolderKey(oldParentID),
		"to", models.FolderKey(targetID),
		"actor", actor.ID,
	)
	return nil
}

// validateNoCycle rejects moving a folder into itself or one of its descendants.
func (s *mutationService) validateNoCycle(ctx context.Context, folderID string, targetID *string) error {
	if targetID == nil {
		return nil
	}
	if *targetID == folderID {
		return &domain.InvalidMoveError{FolderID: folderID, TargetID: *targetID}
	}
	ancestors, err := folderPath(ctx, s.store.Folders, *targetID, s.cfg.MaxTreeDepth)
	if err != nil {
		return err
	}
	for _, a := range ancestors {
		if a.ID == folderID {
			return &domain.InvalidMoveError{FolderID: folderID, TargetID: *targetID}
		}
	}
	return nil
}

func (s *mutationService) moveFile(ctx context.Context, id string, targetID *string, actor models.Actor) error {
	file, err := s.store.Files.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireAccess(ctx, models.ActionMove, models.FileResource(file), actor); err != nil {
		return err
	}
	if models.SameFolder(file.FolderID, targetID) {
		return nil
	}
	if err := s.checkFileName(ctx, targetID, file.Name, file.ID); err != nil {
		return err
	}

	tags := append(s.chainTags(ctx, file.FolderID), s.chainTags(ctx, targetID)...)

	oldFolderID := file.FolderID
	file.FolderID = targetID
	file.UpdatedAt = s.now()
	if err := s.store.Files.Update(ctx, file); err != nil {
		return err
	}

	s.invalidate(tags...)

	s.logger.Info("file moved",
		"id", file.ID,
		"from", models.FolderKey(oldFolderID),
		"to", models.FolderKey(targetID),
		"actor", actor.ID,
	)
	return nil
}

// CreateFileEntry creates a file entry in FolderID (nil = root).
func (s *mutationService) CreateFileEntry(ctx context.Context, req *explorerSvc.CreateFileEntryRequest) (entry *models.FileEntry, err error) {
	defer func() { recordOutcome("create_file", err) }()

	if err := validateCreateFileEntryRequest(req); err != nil {
		return nil, err
	}

	folderID := models.NormalizeFolderID(req.FolderID)
	if folderID != nil {
		if _, err := s.store.Folders.GetByID(ctx, *folderID); err != nil {
			return nil, fmt.Errorf("folder: %w", err)
		}
	}
	if err := s.requireAccess(ctx, models.ActionCreate, models.Resource{Kind: models.ResourceFile, OwnerID: req.Actor.ID}, req.Actor); err != nil {
		return nil, err
	}
	if err := s.checkFileName(ctx, folderID, req.Name, ""); err != nil {
		return nil, err
	}

	tags := s.chainTags(ctx, folderID)

	published := true
	if req.Published != nil {
		published = *req.Published
	}
	now := s.now()
	entry = &models.FileEntry{
		FolderID:  folderID,
		Name:      req.Name,
		Bundle:    req.Bundle,
		FileRef:   req.FileRef,
		LinkURL:   req.LinkURL,
		Published: published,
		OwnerID:   req.Actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Files.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.invalidate(tags...)

	s.logger.Info("file entry created",
		"id", entry.ID,
		"name", entry.Name,
		"bundle", entry.Bundle,
		"folder_id", models.FolderKey(folderID),
		"link", entry.IsLink(),
		"actor", req.Actor.ID,
	)
	return entry, nil
}

// UpdateFileEntry renames an entry and/or changes its published status.
func (s *mutationService) UpdateFileEntry(ctx context.Context, id string, req *explorerSvc.UpdateFileEntryRequest) (entry *models.FileEntry, err error) {
	defer func() { recordOutcome("update_file", err) }()

	if err := validateUpdateFileEntryRequest(req); err != nil {
		return nil, err
	}

	entry, err = s.store.Files.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, models.ActionEdit, models.FileResource(entry), req.Actor); err != nil {
		return nil, err
	}

	if req.Name != nil {
		if err := s.checkFileName(ctx, entry.FolderID, *req.Name, entry.ID); err != nil {
			return nil, err
		}
		entry.Name = *req.Name
	}
	if req.Published != nil {
		entry.Published = *req.Published
	}
	entry.UpdatedAt = s.now()

	tags := s.chainTags(ctx, entry.FolderID)
	if err := s.store.Files.Update(ctx, entry); err != nil {
		return nil, err
	}

	s.invalidate(tags...)

	s.logger.Info("file entry updated",
		"id", entry.ID,
		"name", entry.Name,
		"published", entry.Published,
		"actor", req.Actor.ID,
	)
	return entry, nil
}

// DeleteFileEntry deletes a file entry.
func (s *mutationService) DeleteFileEntry(ctx context.Context, id string, actor models.Actor) (err error) {
	defer func() { recordOutcome("delete_file", err) }()

	entry, err := s.store.Files.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireAccess(ctx, models.ActionDelete, models.FileResource(entry), actor); err != nil {
		return err
	}

	tags := s.chainTags(ctx, entry.FolderID)
	if err := s.store.Files.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(tags...)

	s.logger.Info("file entry deleted",
		"id", id,
		"name", entry.Name,
		"folder_id", models.FolderKey(entry.FolderID),
		"actor", actor.ID,
	)
	return nil
}

// checkFolderName returns a ConflictError when another folder under parentID
// already uses name (case-insensitive). selfID is excluded from the check.
func (s *mutationService) checkFolderName(ctx context.Context, parentID *string, name, selfID string) error {
	existing, err := s.store.Folders.FindByName(ctx, parentID, name)
	if err != nil {
		return fmt.Errorf("check for duplicate names: %w", err)
	}
	if existing != nil && existing.ID != selfID {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("a folder named %q already exists in this location", existing.Name),
			ResourceType: "folder",
			ResourceID:   existing.ID,
		}
	}
	return nil
}

// checkFileName is checkFolderName for file entries. Files and folders use separate namespaces.
func (s *mutationService) checkFileName(ctx context.Context, folderID *string, name, selfID string) error {
	existing, err := s.store.Files.FindByName(ctx, folderID, name)
	if err != nil {
		return fmt.Errorf("check for duplicate names: %w", err)
	}
	if existing != nil && existing.ID != selfID {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("a file named %q already exists in this location", existing.Name),
			ResourceType: "file",
			ResourceID:   existing.ID,
		}
	}
	return nil
}

func (s *mutationService) requireAccess(ctx context.Context, action models.Action, res models.Resource, actor models.Actor) error {
	if s.store.Access == nil {
		return nil
	}
	ok, err := s.store.Access.CheckAccess(ctx, action, res, actor)
	if err != nil {
		return fmt.Errorf("check %s access: %w", action, err)
	}
	if !ok {
		return fmt.Errorf("%s %s %s: %w", action, res.Kind, res.ID, domain.ErrForbidden)
	}
	return nil
}

// chainTags returns the tags of folderID and all of its ancestors, plus the root.
// Listings of every ancestor show recursive counts and search the whole subtree,
// so a change anywhere below them invalidates them too. If the chain cannot be
// read the whole cache is flushed.
func (s *mutationService) chainTags(ctx context.Context, folderID *string) []string {
	tags := []string{FolderTag(nil)}
	if folderID == nil {
		return tags
	}
	chain, err := folderPath(ctx, s.store.Folders, *folderID, s.cfg.MaxTreeDepth)
	if err != nil {
		s.logger.Warn("cannot resolve folder ancestors, flushing listing cache",
			"folder_id", *folderID,
			"error", err,
		)
		return []string{TagListing}
	}
	for _, f := range chain {
		id := f.ID
		tags = append(tags, FolderTag(&id))
	}
	return tags
}

func (s *mutationService) invalidate(tags ...string) {
	if s.cache == nil || len(tags) == 0 {
		return
	}
	s.cache.Invalidate(tags...)
}

// uniqueName returns name, or name with a " (n)" suffix before the extension
// when its folded form is already taken.
func uniqueName(name, id string, taken map[string]struct{}) string {
	if _, ok := taken[foldName(name)]; !ok {
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; i <= config.MaxReparentSuffix; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if _, ok := taken[foldName(candidate)]; !ok {
			return candidate
		}
	}
	return fmt.Sprintf("%s (%s)%s", base, id, ext)
}

func folderName(f *models.Folder) string {
	if f == nil {
		return ""
	}
	return f.Name
}

func recordOutcome(operation string, err error) {
	switch {
	case err == nil:
		metrics.RecordMutation(operation, "ok")
	case errors.Is(err, domain.ErrConflict):
		metrics.RecordMutation(operation, "conflict")
	case errors.Is(err, domain.ErrInvalidMove), errors.Is(err, domain.ErrValidation):
		metrics.RecordMutation(operation, "invalid")
	case errors.Is(err, domain.ErrForbidden):
		metrics.RecordMutation(operation, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		metrics.RecordMutation(operation, "not_found")
	default:
		metrics.RecordMutation(operation, "error")
	}
}
