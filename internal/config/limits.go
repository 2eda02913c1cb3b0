package config

const (
	// MaxFolderNameLength is the maximum length for folder names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxFolderNameLength = 255

	// MaxFileNameLength is the maximum length for file entry names.
	// Same as folder names for consistency.
	MaxFileNameLength = 255

	// MaxDescriptionLength bounds folder descriptions.
	MaxDescriptionLength = 4096

	// MaxBundleLength bounds bundle/type tags.
	MaxBundleLength = 64

	// DefaultPageSize is the number of files returned per listing page.
	DefaultPageSize = 50

	// MaxPageSize caps client supplied page sizes.
	MaxPageSize = 500

	// MaxTreeDepth bounds tree recursion. Folder depth is bounded by UI
	// convention; the cap only matters if the parent graph is corrupted.
	MaxTreeDepth = 64

	// MaxSearchQueryLength bounds search input.
	MaxSearchQueryLength = 255

	// MaxReparentSuffix bounds the " (n)" suffixes tried when a re-parented
	// file collides with an existing sibling after a cascade delete.
	MaxReparentSuffix = 1000
)
