package explorer

import (
	"context"

	models "mediafolders/internal/domain/models/explorer"
)

// FileQuery scopes, filters and pages a file entry query.
type FileQuery struct {
	// FolderIDs limits results to entries in these folders.
	FolderIDs []string
	// IncludeRoot adds unparented entries to the scope.
	IncludeRoot bool
	// AllFolders ignores FolderIDs/IncludeRoot and scans every entry.
	AllFolders bool

	// Bundles restricts entries to these type tags (empty = any).
	Bundles []string
	// NameContains is a case-insensitive substring match on the name.
	NameContains string

	// PublishedOnly hides unpublished entries, except those owned by VisibleTo.
	PublishedOnly bool
	VisibleTo     string

	Order  models.OrderSpec
	Offset int
	Limit  int // 0 = no limit
}

// FileEntryRepository defines data access operations for file entries
type FileEntryRepository interface {
	// Create creates a new file entry. Returns *domain.ConflictError on a
	// case-insensitive name collision within the same folder.
	Create(ctx context.Context, entry *models.FileEntry) error

	// GetByID retrieves a file entry by ID
	GetByID(ctx context.Context, id string) (*models.FileEntry, error)

	// Update updates an existing entry, enforcing name uniqueness like Create
	Update(ctx context.Context, entry *models.FileEntry) error

	// Delete deletes a file entry
	Delete(ctx context.Context, id string) error

	// Query returns one page of matching entries and the total number of matches.
	Query(ctx context.Context, q FileQuery) ([]models.FileEntry, int, error)

	// Count returns the number of matches without fetching rows.
	Count(ctx context.Context, q FileQuery) (int, error)

	// ListByFolder lists every entry in a folder regardless of status.
	ListByFolder(ctx context.Context, folderID *string) ([]models.FileEntry, error)

	// FindByName finds an entry in a folder by case-insensitive name. Returns nil, nil when absent.
	FindByName(ctx context.Context, folderID *string, name string) (*models.FileEntry, error)
}
