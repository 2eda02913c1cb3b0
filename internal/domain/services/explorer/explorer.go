package explorer

import (
	"context"

	models "mediafolders/internal/domain/models/explorer"
)

// TreeService builds the nested folder hierarchy and active trails.
type TreeService interface {
	// BuildTree builds the folder tree below rootID (nil = synthetic root)
	BuildTree(ctx context.Context, rootID *string, order models.OrderSpec) (*models.FolderTree, error)

	// ActiveTrail returns folder ids from the tree root down to activeID, or empty when unreachable
	ActiveTrail(tree *models.FolderTree, activeID string) []string

	// FolderPath returns the ancestor chain of a folder, root-most first, ending with the folder itself
	FolderPath(ctx context.Context, folderID string) ([]models.Folder, error)
}

// ContentsService resolves one folder view.
type ContentsService interface {
	Resolve(ctx context.Context, req *ListRequest) (*models.Listing, error)
}

// SearchService matches folder and file names within a folder subtree.
type SearchService interface {
	Search(ctx context.Context, req *SearchRequest) (*models.Listing, error)
}

// MutationService validates and applies folder and file mutations.
type MutationService interface {
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*models.Folder, error)
	RenameFolder(ctx context.Context, id string, req *RenameFolderRequest) (*models.Folder, error)
	DeleteFolder(ctx context.Context, id string, actor models.Actor) (*DeleteFolderResult, error)
	MoveEntry(ctx context.Context, req *MoveRequest) error
	CreateFileEntry(ctx context.Context, req *CreateFileEntryRequest) (*models.FileEntry, error)
	UpdateFileEntry(ctx context.Context, id string, req *UpdateFileEntryRequest) (*models.FileEntry, error)
	DeleteFileEntry(ctx context.Context, id string, actor models.Actor) error
}

// WidgetStateCodec signs and verifies picker parameters.
type WidgetStateCodec interface {
	Encode(openerID string, allowedTypes []string, selectedType string, remainingSlots int, openerContext map[string]string) (*models.WidgetState, error)
	Decode(raw map[string][]string) (*models.WidgetState, error)
}

// ListRequest parameterizes a folder listing.
type ListRequest struct {
	FolderID       *string           `json:"folder_id"` // nil = root
	Filter         models.FilterSpec `json:"filter"`
	Order          models.OrderSpec  `json:"order"`
	Cursor         models.PageCursor `json:"cursor"`
	IncludeActions bool              `json:"include_actions"`
	Actor          models.Actor      `json:"-"`
}

// SearchRequest parameterizes a name search. Query must be non-empty after trimming.
type SearchRequest struct {
	ScopeID *string           `json:"scope_id"` // nil = root
	Query   string            `json:"query"`
	Filter  models.FilterSpec `json:"filter"`
	Order   models.OrderSpec  `json:"order"`
	Actor   models.Actor      `json:"-"`
}

// CreateFolderRequest represents a folder creation request
type CreateFolderRequest struct {
	ParentID    *string      `json:"parent_id,omitempty"` // null for root
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Actor       models.Actor `json:"-"`
}

// RenameFolderRequest renames a folder and/or changes its description
type RenameFolderRequest struct {
	Name        string       `json:"name"`
	Description *string      `json:"description,omitempty"`
	Actor       models.Actor `json:"-"`
}

// DeleteFolderResult reports what a cascading delete touched.
type DeleteFolderResult struct {
	DeletedFolderIDs []string `json:"deleted_folder_ids"`
	ReparentedFiles  []string `json:"reparented_file_ids"`
	NewParentID      *string  `json:"new_parent_id"`
	RenamedFiles     []string `json:"renamed_file_ids,omitempty"`
}

// MoveRequest moves a folder or a file entry into a target folder (nil = root).
type MoveRequest struct {
	Kind     models.ItemKind `json:"kind"`
	EntryID  string          `json:"entry_id"`
	TargetID *string         `json:"target_id"`
	Actor    models.Actor    `json:"-"`
}

// CreateFileEntryRequest creates a file entry with either an attachment reference or a link.
type CreateFileEntryRequest struct {
	FolderID  *string      `json:"folder_id,omitempty"`
	Name      string       `json:"name"`
	Bundle    string       `json:"bundle"`
	FileRef   string       `json:"file_ref,omitempty"`
	LinkURL   string       `json:"link_url,omitempty"`
	Published *bool        `json:"published,omitempty"` // defaults to true
	Actor     models.Actor `json:"-"`
}

// UpdateFileEntryRequest renames an entry or toggles its status.
type UpdateFileEntryRequest struct {
	Name      *string      `json:"name,omitempty"`
	Published *bool        `json:"published,omitempty"`
	Actor     models.Actor `json:"-"`
}
