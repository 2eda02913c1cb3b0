package explorer

// Action is an operation an actor may perform on a folder or file.
type Action string

const (
	ActionView            Action = "view"
	ActionViewUnpublished Action = "view_unpublished"
	ActionCreate          Action = "create"
	ActionEdit            Action = "edit"
	ActionDelete          Action = "delete"
	ActionMove            Action = "move"
)

// ResourceKind names the record type an access check is about.
type ResourceKind string

const (
	ResourceFolder ResourceKind = "folder"
	ResourceFile   ResourceKind = "file"
)

// Resource identifies the record an access check is evaluated against.
// ID is empty when the check concerns the kind in general (e.g. create).
type Resource struct {
	Kind    ResourceKind
	ID      string
	OwnerID string
}

// FolderResource describes a folder for access checks.
func FolderResource(f *Folder) Resource {
	if f == nil {
		return Resource{Kind: ResourceFolder}
	}
	return Resource{Kind: ResourceFolder, ID: f.ID}
}

// FileResource describes a file entry for access checks.
func FileResource(f *FileEntry) Resource {
	if f == nil {
		return Resource{Kind: ResourceFile}
	}
	return Resource{Kind: ResourceFile, ID: f.ID, OwnerID: f.OwnerID}
}

// Actor is the authenticated caller. Permission evaluation is delegated to the
// content store; the explorer only passes the actor through.
type Actor struct {
	ID          string   `json:"id"`
	Permissions []string `json:"permissions,omitempty"`
}

// Anonymous is the actor used when no credentials were presented.
var Anonymous = Actor{}

// HasPermission reports whether the actor carries the named permission string.
func (a Actor) HasPermission(p string) bool {
	for _, have := range a.Permissions {
		if have == p {
			return true
		}
	}
	return false
}
