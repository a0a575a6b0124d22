package libstore

import "io"

// CreateLibraryRequest contains parameters for creating a new library
type CreateLibraryRequest struct {
	Key         string
	DisplayName string
	CreatedBy   string
}

// ListLibrariesRequest contains parameters for listing libraries
type ListLibrariesRequest struct {
	Org            string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// CreateBlockRequest contains parameters for creating a block in a library.
// Data is optional; when set it is uploaded to StorageBackendName.
type CreateBlockRequest struct {
	LibraryKey         string
	BlockType          string
	BlockID            string // generated when empty
	DisplayName        string
	Data               io.Reader
	MimeType           string
	StorageBackendName string
}

// DeleteLibraryRequest contains parameters for deleting a library and its blocks
type DeleteLibraryRequest struct {
	Key    string
	Actor  string
	DryRun bool
}

// DeleteBlockRequest contains parameters for deleting a single block
type DeleteBlockRequest struct {
	Key   string
	Actor string
}
