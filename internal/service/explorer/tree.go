package explorer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"mediafolders/internal/config"
	"mediafolders/internal/domain"
	models "mediafolders/internal/domain/models/explorer"
	explorerRepo "mediafolders/internal/domain/repositories/explorer"
	explorerSvc "mediafolders/internal/domain/services/explorer"
)

// treeService implements the TreeService interface
type treeService struct {
	folderRepo explorerRepo.FolderRepository
	cfg        *config.ExplorerConfig
	logger     *slog.Logger
}

// NewTreeService creates a new tree service
func NewTreeService(
	folderRepo explorerRepo.FolderRepository,
	cfg *config.ExplorerConfig,
	logger *slog.Logger,
) explorerSvc.TreeService {
	return &treeService{
		folderRepo: folderRepo,
		cfg:        cfg,
		logger:     logger,
	}
}

// BuildTree builds the nested folder hierarchy below rootID.
// One ListChildren call is issued per folder, level by level, so the tree is
// always rebuilt from the store and never shared between requests.
func (s *treeService) BuildTree(ctx context.Context, rootID *string, order models.OrderSpec) (*models.FolderTree, error) {
	rootID = models.NormalizeFolderID(rootID)
	order = order.OrDefault(s.cfg.DefaultOrder)

	if rootID != nil {
		if _, err := s.folderRepo.GetByID(ctx, *rootID); err != nil {
			return nil, err
		}
	}

	children, err := s.buildLevel(ctx, rootID, order, 0)
	if err != nil {
		return nil, err
	}

	tree := &models.FolderTree{
		RootID:  rootID,
		Folders: children,
	}

	s.logger.Debug("folder tree built",
		"root_id", models.FolderKey(rootID),
		"folder_count", tree.Count(),
		"order", order,
	)

	return tree, nil
}

func (s *treeService) buildLevel(ctx context.Context, parentID *string, order models.OrderSpec, depth int) ([]*models.FolderTreeNode, error) {
	if depth >= s.cfg.MaxTreeDepth {
		s.logger.Warn("folder tree depth limit reached, not descending further",
			"parent_id", models.FolderKey(parentID),
			"max_depth", s.cfg.MaxTreeDepth,
		)
		return []*models.FolderTreeNode{}, nil
	}

	folders, err := s.folderRepo.ListChildren(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("list child folders of %s: %w", models.FolderKey(parentID), err)
	}

	ordered := Order(folders, order)
	nodes := make([]*models.FolderTreeNode, 0, len(ordered))
	for _, f := range ordered {
		id := f.ID
		children, err := s.buildLevel(ctx, &id, order, depth+1)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, &models.FolderTreeNode{
			Folder:   f,
			Children: children,
		})
	}
	return nodes, nil
}

// ActiveTrail returns the ids from the top of the tree down to activeID.
// An unreachable folder yields an empty trail; callers render at the root.
func (s *treeService) ActiveTrail(tree *models.FolderTree, activeID string) []string {
	return activeTrail(tree, activeID)
}

func activeTrail(tree *models.FolderTree, activeID string) []string {
	if tree == nil || activeID == "" || activeID == models.RootID {
		return []string{}
	}

	var path []string
	var search func(nodes []*models.FolderTreeNode) bool
	search = func(nodes []*models.FolderTreeNode) bool {
		for _, n := range nodes {
			path = append(path, n.Folder.ID)
			if n.Folder.ID == activeID || search(n.Children) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}

	if !search(tree.Folders) {
		return []string{}
	}
	return path
}

// FolderPath walks parent links from folderID up to the root.
func (s *treeService) FolderPath(ctx context.Context, folderID string) ([]models.Folder, error) {
	return folderPath(ctx, s.folderRepo, folderID, s.cfg.MaxTreeDepth)
}

// folderPath returns the ancestor chain root-most first, ending with folderID.
func folderPath(ctx context.Context, repo explorerRepo.FolderRepository, folderID string, maxDepth int) ([]models.Folder, error) {
	var chain []models.Folder
	currentID := folderID
	for depth := 0; ; depth++ {
		if depth > maxDepth {
			return nil, fmt.Errorf("%w: folder %s exceeds maximum depth %d", domain.ErrValidation, folderID, maxDepth)
		}
		folder, err := repo.GetByID(ctx, currentID)
		if err != nil {
			return nil, err
		}
		chain = append(chain, *folder)
		if folder.ParentID == nil {
			break
		}
		currentID = *folder.ParentID
	}

	slices.Reverse(chain)
	return chain, nil
}
