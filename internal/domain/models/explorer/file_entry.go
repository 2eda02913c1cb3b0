package explorer

import (
	"time"
)

// FileEntry is a leaf media record, optionally placed inside a folder.
// Exactly one of FileRef and LinkURL is set.
type FileEntry struct {
	ID        string    `json:"id" db:"id"`
	FolderID  *string   `json:"folder_id" db:"folder_id"` // NULL = root level
	Name      string    `json:"name" db:"name"`
	Bundle    string    `json:"bundle" db:"bundle"`
	FileRef   string    `json:"file_ref,omitempty" db:"file_ref"`
	LinkURL   string    `json:"link_url,omitempty" db:"link_url"`
	Published bool      `json:"published" db:"published"`
	OwnerID   string    `json:"owner_id,omitempty" db:"owner_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (f FileEntry) SortName() string    { return f.Name }
func (f FileEntry) SortTime() time.Time { return f.CreatedAt }
func (f FileEntry) SortID() string      { return f.ID }

// IsLink reports whether the entry points at an external URL instead of an attachment.
func (f FileEntry) IsLink() bool {
	return f.LinkURL != ""
}
