package auth

import (
	"context"

	models "mediafolders/internal/domain/models/explorer"
	explorerRepo "mediafolders/internal/domain/repositories/explorer"
)

// Permission strings carried by actors (JWT "permissions" claim).
const (
	PermAdminister         = "administer media"
	PermManageFolders      = "manage media folders"
	PermCreateMedia        = "create media"
	PermEditAnyMedia       = "edit any media"
	PermEditOwnMedia       = "edit own media"
	PermDeleteAnyMedia     = "delete any media"
	PermDeleteOwnMedia     = "delete own media"
	PermViewOwnUnpublished = "view own unpublished media"
)

// PermissionAuthorizer implements AccessChecker from the actor's permission
// strings and resource ownership. It never touches the store.
//
// Folders are shared structure: every folder mutation needs PermManageFolders.
// File entries follow the any/own split, where "own" means the actor created it.
type PermissionAuthorizer struct{}

// NewPermissionAuthorizer creates a new permission-based authorizer
func NewPermissionAuthorizer() explorerRepo.AccessChecker {
	return &PermissionAuthorizer{}
}

// CheckAccess reports whether actor may perform action on resource.
func (a *PermissionAuthorizer) CheckAccess(_ context.Context, action models.Action, resource models.Resource, actor models.Actor) (bool, error) {
	if action == models.ActionView {
		return true, nil
	}
	if actor.ID == "" {
		return false, nil
	}
	if actor.HasPermission(PermAdminister) {
		return true, nil
	}

	if action == models.ActionViewUnpublished {
		return actor.HasPermission(PermViewOwnUnpublished), nil
	}

	if resource.Kind == models.ResourceFolder {
		switch action {
		case models.ActionCreate, models.ActionEdit, models.ActionDelete, models.ActionMove:
			return actor.HasPermission(PermManageFolders), nil
		}
		return false, nil
	}

	owner := resource.OwnerID != "" && resource.OwnerID == actor.ID
	switch action {
	case models.ActionCreate:
		return actor.HasPermission(PermCreateMedia), nil
	case models.ActionEdit, models.ActionMove:
		return actor.HasPermission(PermEditAnyMedia) || (owner && actor.HasPermission(PermEditOwnMedia)), nil
	case models.ActionDelete:
		return actor.HasPermission(PermDeleteAnyMedia) || (owner && actor.HasPermission(PermDeleteOwnMedia)), nil
	}
	return false, nil
}

// AllPermissions lists every permission; used for the development actor.
func AllPermissions() []string {
	return []string{PermAdminister}
}
