package config

const (
	// MaxDocumentNameLength is the maximum length for original file names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxDocumentNameLength = 255

	// MaxFolderNameLength is the maximum length for folder names.
	MaxFolderNameLength = 255

	// MaxDescriptionLength bounds document descriptions
	MaxDescriptionLength = 2000

	// MaxTagLength and MaxTagsPerDocument bound document tags
	MaxTagLength       = 50
	MaxTagsPerDocument = 20

	// MaxFolderDepth bounds every ancestry walk. A chain longer than this is
	// treated as corrupt (a cycle) rather than followed.
	MaxFolderDepth = 64

	// MaxBulkMoveItems bounds a single BulkMove call
	MaxBulkMoveItems = 500

	// DefaultUserHistoryLimit and MaxUserHistoryLimit bound GetUserHistory
	DefaultUserHistoryLimit = 50
	MaxUserHistoryLimit     = 500
)
