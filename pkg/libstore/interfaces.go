package libstore

import (
	"context"
	"io"
	"time"
)

// BlobStore defines the interface for block payload storage backends
type BlobStore interface {
	// Upload stores the payload under objectKey
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams uploads content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download returns the payload stored under objectKey
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the payload. Missing objects yield ErrBlobNotFound.
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// Repository defines the interface for library and block persistence.
//
// Deletes are soft and idempotent: deleting a record that already carries a
// deletion marker succeeds without changing it.
type Repository interface {
	// Library operations
	CreateLibrary(ctx context.Context, library *Library) error
	// GetLibrary returns the library even when deleted; check DeletedAt.
	GetLibrary(ctx context.Context, key LibraryKey) (*Library, error)
	ListLibraries(ctx context.Context, filters LibraryListFilters) ([]*Library, error)
	CountLibraries(ctx context.Context, filters LibraryCountFilters) (int64, error)
	DeleteLibrary(ctx context.Context, key LibraryKey, actor string) error

	// Block operations
	CreateBlock(ctx context.Context, block *Block) error
	GetBlock(ctx context.Context, key UsageKey) (*Block, error)
	// ListBlocks returns the live blocks of a library, oldest first.
	ListBlocks(ctx context.Context, key LibraryKey) ([]*Block, error)
	DeleteBlock(ctx context.Context, key UsageKey, actor string) error
}

// EventSink defines the interface for event handling
type EventSink interface {
	LibraryCreated(ctx context.Context, library *Library) error
	LibraryDeleted(ctx context.Context, key LibraryKey, actor string) error
	BlockCreated(ctx context.Context, block *Block) error
	BlockDeleted(ctx context.Context, key UsageKey, actor string) error
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}
