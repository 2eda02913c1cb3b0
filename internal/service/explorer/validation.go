package explorer

import (
	"fmt"
	"regexp"
	"strings"

	"mediafolders/internal/config"
	"mediafolders/internal/domain"
	models "mediafolders/internal/domain/models/explorer"
	explorerSvc "mediafolders/internal/domain/services/explorer"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var (
	noSlashes  = regexp.MustCompile(`^[^/\\]+$`)
	bundleName = regexp.MustCompile(`^[a-z0-9_\-]+$`)
)

func validationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

func nameRules(maxLen int, kind string) []validation.Rule {
	return []validation.Rule{
		validation.Required.Error(kind + " name cannot be empty"),
		validation.RuneLength(1, maxLen),
		validation.Match(noSlashes).Error(kind + " name cannot contain slashes"),
	}
}

// validateCreateFolderRequest validates a folder creation request
func validateCreateFolderRequest(req *explorerSvc.CreateFolderRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	return wrapValidation(validation.ValidateStruct(req,
		validation.Field(&req.Name, nameRules(config.MaxFolderNameLength, "folder")...),
		validation.Field(&req.Description, validation.RuneLength(0, config.MaxDescriptionLength)),
	))
}

// validateRenameFolderRequest validates a folder rename request
func validateRenameFolderRequest(req *explorerSvc.RenameFolderRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	rules := []*validation.FieldRules{
		validation.Field(&req.Name, nameRules(config.MaxFolderNameLength, "folder")...),
	}
	if req.Description != nil {
		rules = append(rules, validation.Field(&req.Description, validation.RuneLength(0, config.MaxDescriptionLength)))
	}
	return wrapValidation(validation.ValidateStruct(req, rules...))
}

// validateCreateFileEntryRequest validates a file entry creation request.
// Exactly one of FileRef and LinkURL must be supplied.
func validateCreateFileEntryRequest(req *explorerSvc.CreateFileEntryRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Bundle = strings.TrimSpace(req.Bundle)
	req.FileRef = strings.TrimSpace(req.FileRef)
	req.LinkURL = strings.TrimSpace(req.LinkURL)

	if (req.FileRef == "") == (req.LinkURL == "") {
		return validationErrorf("exactly one of file_ref or link_url is required")
	}

	return wrapValidation(validation.ValidateStruct(req,
		validation.Field(&req.Name, nameRules(config.MaxFileNameLength, "file")...),
		validation.Field(&req.Bundle,
			validation.Required,
			validation.Length(1, config.MaxBundleLength),
			validation.Match(bundleName).Error("bundle must be lowercase letters, digits, dashes or underscores"),
		),
		validation.Field(&req.LinkURL, is.URL),
	))
}

// validateUpdateFileEntryRequest validates a file entry update request
func validateUpdateFileEntryRequest(req *explorerSvc.UpdateFileEntryRequest) error {
	if req.Name == nil && req.Published == nil {
		return validationErrorf("at least one field must be provided")
	}
	if req.Name == nil {
		return nil
	}
	name := strings.TrimSpace(*req.Name)
	req.Name = &name
	return wrapValidation(validation.ValidateStruct(req,
		validation.Field(&req.Name, nameRules(config.MaxFileNameLength, "file")...),
	))
}

// validateMoveRequest validates a move request
func validateMoveRequest(req *explorerSvc.MoveRequest) error {
	return wrapValidation(validation.ValidateStruct(req,
		validation.Field(&req.EntryID, validation.Required),
		validation.Field(&req.Kind, validation.Required, validation.In(models.ItemKindFolder, models.ItemKindFile)),
	))
}
