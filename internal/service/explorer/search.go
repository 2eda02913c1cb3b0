package explorer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mediafolders/internal/config"
	models "mediafolders/internal/domain/models/explorer"
	explorerRepo "mediafolders/internal/domain/repositories/explorer"
	explorerSvc "mediafolders/internal/domain/services/explorer"
	"mediafolders/internal/metrics"
)

// searchService implements the SearchService interface
type searchService struct {
	store  explorerRepo.ContentStore
	cache  ListingCache
	cfg    *config.ExplorerConfig
	logger *slog.Logger
}

// NewSearchService creates a search resolver. cache may be nil.
func NewSearchService(
	store explorerRepo.ContentStore,
	cache ListingCache,
	cfg *config.ExplorerConfig,
	logger *slog.Logger,
) explorerSvc.SearchService {
	return &searchService{
		store:  store,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}
}

// Search matches folder names and published file names within the subtree of
// ScopeID (nil = everything). Results are unpaginated; folders come first.
// An empty query is rejected rather than treated as match-all.
func (s *searchService) Search(ctx context.Context, req *explorerSvc.SearchRequest) (*models.Listing, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, validationErrorf("search query cannot be empty")
	}
	if len(query) > config.MaxSearchQueryLength {
		return nil, validationErrorf("search query exceeds %d characters", config.MaxSearchQueryLength)
	}

	scopeID := models.NormalizeFolderID(req.ScopeID)
	order := req.Order.OrDefault(s.cfg.DefaultOrder)
	if !order.Valid() {
		return nil, validationErrorf("unknown order %q", order)
	}
	filter := models.NewFilterSpec(req.Filter.Bundles...)

	if scopeID != nil {
		if _, err := s.store.Folders.GetByID(ctx, *scopeID); err != nil {
			return nil, err
		}
	}

	visibleTo, err := unpublishedVisibleTo(ctx, s.store.Access, req.Actor)
	if err != nil {
		return nil, err
	}

	key := CacheKey{
		Kind:     "search",
		FolderID: models.FolderKey(scopeID),
		Order:    order,
		Filter:   filter.Key(),
		Query:    query,
	}
	if visibleTo != "" {
		key.ActorID = req.Actor.ID
	}

	return cachedListing(ctx, s.cache, s.logger, key, []string{FolderTag(scopeID)}, func(ctx context.Context) (*models.Listing, error) {
		return s.compute(ctx, scopeID, query, filter, order, visibleTo)
	})
}

func (s *searchService) compute(ctx context.Context, scopeID *string, query string, filter models.FilterSpec, order models.OrderSpec, visibleTo string) (*models.Listing, error) {
	start := time.Now()
	defer func() { metrics.ObserveListing("search", time.Since(start)) }()

	// Folders below the scope (the scope itself is the container, not a match candidate)
	subtree, err := s.store.Folders.ListSubtree(ctx, scopeID)
	if err != nil {
		return nil, fmt.Errorf("list subtree: %w", err)
	}

	var matchedFolders []models.Folder
	for _, f := range subtree {
		if containsFold(f.Name, query) {
			matchedFolders = append(matchedFolders, f)
		}
	}

	q := explorerRepo.FileQuery{
		Bundles:       filter.Bundles,
		NameContains:  query,
		PublishedOnly: true,
		VisibleTo:     visibleTo,
		Order:         order,
	}
	if scopeID == nil {
		q.AllFolders = true
	} else {
		q.FolderIDs = make([]string, 0, len(subtree)+1)
		q.FolderIDs = append(q.FolderIDs, *scopeID)
		for _, f := range subtree {
			q.FolderIDs = append(q.FolderIDs, f.ID)
		}
	}
	files, total, err := s.store.Files.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search files: %w", err)
	}

	items := make([]models.ListingItem, 0, len(matchedFolders)+len(files))
	for _, f := range Order(matchedFolders, order) {
		folder := f
		items = append(items, models.ListingItem{
			Kind:            models.ItemKindFolder,
			Folder:          &folder,
			HighlightedName: Highlight(folder.Name, query, s.cfg.HighlightOpen, s.cfg.HighlightClose),
		})
	}
	for _, f := range Order(files, order) {
		file := f
		items = append(items, models.ListingItem{
			Kind:            models.ItemKindFile,
			File:            &file,
			HighlightedName: Highlight(file.Name, query, s.cfg.HighlightOpen, s.cfg.HighlightClose),
		})
	}

	s.logger.Debug("search computed",
		"scope_id", models.FolderKey(scopeID),
		"query", query,
		"folders", len(matchedFolders),
		"files", len(files),
	)

	return &models.Listing{
		FolderID:   scopeID,
		Order:      order,
		Filter:     filter,
		Items:      items,
		TotalFiles: total,
		Query:      query,
	}, nil
}
