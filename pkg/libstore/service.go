package libstore

import (
	"context"
	"io"
)

// Service defines the main interface for the library store
type Service interface {
	// Library operations
	CreateLibrary(ctx context.Context, req CreateLibraryRequest) (*Library, error)
	GetLibrary(ctx context.Context, key string) (*Library, error)
	ListLibraries(ctx context.Context, req ListLibrariesRequest) ([]*Library, error)
	CountLibraries(ctx context.Context, filters LibraryCountFilters) (int64, error)

	// DeleteLibrary deletes every block of the library and then the library.
	// The returned result is non-nil whenever the key resolved to a library,
	// including when err reports a failure part way through.
	DeleteLibrary(ctx context.Context, req DeleteLibraryRequest) (*DeletionResult, error)

	// Block operations
	CreateBlock(ctx context.Context, req CreateBlockRequest) (*Block, error)
	GetBlock(ctx context.Context, key string) (*Block, error)
	GetLibraryBlocks(ctx context.Context, key string) (*LibraryBlocks, error)
	DownloadBlockData(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteBlock(ctx context.Context, req DeleteBlockRequest) error

	// Storage backend operations
	RegisterBackend(name string, backend BlobStore)
	GetBackend(name string) (BlobStore, error)
}
