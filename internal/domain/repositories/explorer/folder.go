package explorer

import (
	"context"

	models "mediafolders/internal/domain/models/explorer"
)

// FolderRepository defines data access operations for folders.
// A nil parent or folder id always means the synthetic root.
type FolderRepository interface {
	// Create creates a new folder. Returns *domain.ConflictError when a sibling
	// folder with the same case-insensitive name exists at the time of the write.
	Create(ctx context.Context, folder *models.Folder) error

	// GetByID retrieves a folder by ID
	GetByID(ctx context.Context, id string) (*models.Folder, error)

	// Update updates name, description and parent.
	// Enforces sibling name uniqueness at write time like Create.
	Update(ctx context.Context, folder *models.Folder) error

	// Delete deletes a single folder row (no cascade)
	Delete(ctx context.Context, id string) error

	// ListChildren lists immediate child folders
	ListChildren(ctx context.Context, parentID *string) ([]models.Folder, error)

	// ListSubtree returns every folder below parentID (excluding parentID itself).
	// With a nil parentID it returns all folders.
	ListSubtree(ctx context.Context, parentID *string) ([]models.Folder, error)

	// FindByName finds a sibling by case-insensitive name. Returns nil, nil when absent.
	FindByName(ctx context.Context, parentID *string, name string) (*models.Folder, error)

	// LockHierarchy serializes structural changes (moves) until the current
	// transaction ends. Only meaningful inside TransactionManager.ExecTx.
	LockHierarchy(ctx context.Context) error
}
