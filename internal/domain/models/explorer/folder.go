package explorer

import (
	"time"
)

// RootID is the sentinel used by callers (URLs, widget state) for the synthetic root.
// Internally the root is represented by a nil folder pointer.
const RootID = "root"

type Folder struct {
	ID          string    `json:"id" db:"id"`
	ParentID    *string   `json:"parent_id" db:"parent_id"` // NULL = root level
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// SortName, SortTime and SortID implement Orderable.
func (f Folder) SortName() string    { return f.Name }
func (f Folder) SortTime() time.Time { return f.CreatedAt }
func (f Folder) SortID() string      { return f.ID }
func (f Folder) IsRootLevel() bool   { return f.ParentID == nil }

// NormalizeFolderID maps the "" and "root" sentinels to nil.
func NormalizeFolderID(id *string) *string {
	if id == nil || *id == "" || *id == RootID {
		return nil
	}
	return id
}

// FolderIDFromString converts a caller supplied id into the internal representation.
func FolderIDFromString(id string) *string {
	return NormalizeFolderID(&id)
}

// FolderKey returns a stable string for a folder pointer, used in cache keys and tags.
func FolderKey(id *string) string {
	if id == nil {
		return RootID
	}
	return *id
}

// SameFolder reports whether two folder references point at the same folder.
func SameFolder(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
