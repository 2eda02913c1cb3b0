package explorer

import (
	"context"

	models "mediafolders/internal/domain/models/explorer"
)

// AccessChecker is the content store's permission capability.
// The explorer decides which actions are relevant; the checker decides whether they are allowed.
type AccessChecker interface {
	CheckAccess(ctx context.Context, action models.Action, resource models.Resource, actor models.Actor) (bool, error)
}

// ContentStore bundles the collaborators the explorer reads from and writes to.
type ContentStore struct {
	Folders FolderRepository
	Files   FileEntryRepository
	Access  AccessChecker
}
