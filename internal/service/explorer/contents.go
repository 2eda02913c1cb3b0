package explorer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mediafolders/internal/config"
	models "mediafolders/internal/domain/models/explorer"
	explorerRepo "mediafolders/internal/domain/repositories/explorer"
	explorerSvc "mediafolders/internal/domain/services/explorer"
	"mediafolders/internal/metrics"
)

// contentsService implements the ContentsService interface
type contentsService struct {
	store  explorerRepo.ContentStore
	cache  ListingCache
	cfg    *config.ExplorerConfig
	logger *slog.Logger
}

// NewContentsService creates a folder contents resolver. cache may be nil.
func NewContentsService(
	store explorerRepo.ContentStore,
	cache ListingCache,
	cfg *config.ExplorerConfig,
	logger *slog.Logger,
) explorerSvc.ContentsService {
	return &contentsService{
		store:  store,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}
}

// Resolve lists the child folders and one page of published files of a folder.
//
// Folders come first and are only included on the first page (offset 0), so
// concatenating pages never repeats a folder. A LoadMore marker is attached
// while offset + fetched files < total matching files. The resolver performs
// no mutation and its output is deterministic for unchanged data.
func (s *contentsService) Resolve(ctx context.Context, req *explorerSvc.ListRequest) (*models.Listing, error) {
	folderID := models.NormalizeFolderID(req.FolderID)
	order := req.Order.OrDefault(s.cfg.DefaultOrder)
	if !order.Valid() {
		return nil, validationErrorf("unknown order %q", order)
	}
	filter := req.Filter
	if filter.IsEmpty() {
		filter = s.cfg.DefaultFilter()
	} else {
		filter = models.NewFilterSpec(filter.Bundles...)
	}
	cursor := req.Cursor.Normalize(s.cfg.PageSize, s.cfg.MaxPageSize)

	// Unknown ids are NotFound; only the root sentinel resolves to the root.
	if folderID != nil {
		if _, err := s.store.Folders.GetByID(ctx, *folderID); err != nil {
			return nil, err
		}
	}

	visibleTo, err := unpublishedVisibleTo(ctx, s.store.Access, req.Actor)
	if err != nil {
		return nil, err
	}

	key := CacheKey{
		Kind:     "list",
		FolderID: models.FolderKey(folderID),
		Order:    order,
		Filter:   filter.Key(),
		Offset:   cursor.Offset,
		Limit:    cursor.Limit,
		Actions:  req.IncludeActions,
	}
	if req.IncludeActions || visibleTo != "" {
		key.ActorID = req.Actor.ID
	}

	return cachedListing(ctx, s.cache, s.logger, key, []string{FolderTag(folderID)}, func(ctx context.Context) (*models.Listing, error) {
		return s.compute(ctx, folderID, filter, order, cursor, visibleTo, req.IncludeActions, req.Actor)
	})
}

func (s *contentsService) compute(
	ctx context.Context,
	folderID *string,
	filter models.FilterSpec,
	order models.OrderSpec,
	cursor models.PageCursor,
	visibleTo string,
	includeActions bool,
	actor models.Actor,
) (*models.Listing, error) {
	start := time.Now()
	defer func() { metrics.ObserveListing("list", time.Since(start)) }()

	items := make([]models.ListingItem, 0, cursor.Limit)

	// 1. Child folders with descendant counts (first page only)
	if cursor.Offset == 0 {
		folders, err := s.store.Folders.ListChildren(ctx, folderID)
		if err != nil {
			return nil, fmt.Errorf("list child folders: %w", err)
		}
		for _, f := range Order(folders, order) {
			count, err := s.descendantCount(ctx, f.ID, filter, visibleTo)
			if err != nil {
				return nil, err
			}
			folder := f
			items = append(items, models.ListingItem{
				Kind:       models.ItemKindFolder,
				Folder:     &folder,
				ChildCount: count,
			})
		}
	}

	// 2. One page of files
	q := explorerRepo.FileQuery{
		Bundles:       filter.Bundles,
		PublishedOnly: true,
		VisibleTo:     visibleTo,
		Order:         order,
		Offset:        cursor.Offset,
		Limit:         cursor.Limit,
	}
	if folderID == nil {
		q.IncludeRoot = true
	} else {
		q.FolderIDs = []string{*folderID}
	}
	files, total, err := s.store.Files.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}

	// 3. Files keep the store's order so page boundaries line up across requests
	for _, f := range files {
		file := f
		items = append(items, models.ListingItem{
			Kind: models.ItemKindFile,
			File: &file,
		})
	}

	listing := &models.Listing{
		FolderID:   folderID,
		Order:      order,
		Filter:     filter,
		Offset:     cursor.Offset,
		Items:      items,
		TotalFiles: total,
	}

	// 4. Truncation marker
	if cursor.Offset+len(files) < total {
		listing.LoadMore = &models.LoadMore{
			NextOffset: cursor.Offset + len(files),
			Limit:      cursor.Limit,
		}
	}

	// 5. Actions relevant to the actor
	if includeActions {
		if err := attachActions(ctx, s.store.Access, actor, listing.Items); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("folder listing computed",
		"folder_id", models.FolderKey(folderID),
		"order", order,
		"filter", filter.Key(),
		"offset", cursor.Offset,
		"items", len(items),
		"total_files", total,
	)

	return listing, nil
}

// descendantCount counts the subfolders and filter-matching visible files below a folder.
func (s *contentsService) descendantCount(ctx context.Context, folderID string, filter models.FilterSpec, visibleTo string) (int, error) {
	id := folderID
	subtree, err := s.store.Folders.ListSubtree(ctx, &id)
	if err != nil {
		return 0, fmt.Errorf("list subtree of %s: %w", folderID, err)
	}

	ids := make([]string, 0, len(subtree)+1)
	ids = append(ids, folderID)
	for _, f := range subtree {
		ids = append(ids, f.ID)
	}

	files, err := s.store.Files.Count(ctx, explorerRepo.FileQuery{
		FolderIDs:     ids,
		Bundles:       filter.Bundles,
		PublishedOnly: true,
		VisibleTo:     visibleTo,
	})
	if err != nil {
		return 0, fmt.Errorf("count files below %s: %w", folderID, err)
	}
	return len(subtree) + files, nil
}

// itemActions lists the operations that make sense for each kind of row.
var itemActions = map[models.ItemKind][]models.Action{
	models.ItemKindFolder: {models.ActionEdit, models.ActionDelete, models.ActionMove},
	models.ItemKindFile:   {models.ActionEdit, models.ActionDelete, models.ActionMove},
}

// attachActions keeps only the relevant actions the access checker allows.
func attachActions(ctx context.Context, access explorerRepo.AccessChecker, actor models.Actor, items []models.ListingItem) error {
	for i := range items {
		var res models.Resource
		if items[i].Folder != nil {
			res = models.FolderResource(items[i].Folder)
		} else {
			res = models.FileResource(items[i].File)
		}

		actions := []models.Action{}
		for _, a := range itemActions[items[i].Kind] {
			if access == nil {
				actions = append(actions, a)
				continue
			}
			ok, err := access.CheckAccess(ctx, a, res, actor)
			if err != nil {
				return fmt.Errorf("check %s access on %s %s: %w", a, res.Kind, res.ID, err)
			}
			if ok {
				actions = append(actions, a)
			}
		}
		items[i].Actions = actions
	}
	return nil
}

// unpublishedVisibleTo returns the actor id whose unpublished entries may be
// listed, or "" when only published entries are visible.
func unpublishedVisibleTo(ctx context.Context, access explorerRepo.AccessChecker, actor models.Actor) (string, error) {
	if access == nil || actor.ID == "" {
		return "", nil
	}
	ok, err := access.CheckAccess(ctx, models.ActionViewUnpublished, models.Resource{Kind: models.ResourceFile, OwnerID: actor.ID}, actor)
	if err != nil {
		return "", fmt.Errorf("check unpublished access: %w", err)
	}
	if !ok {
		return "", nil
	}
	return actor.ID, nil
}
