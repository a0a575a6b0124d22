package libstore

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrInvalidKey indicates a key string could not be parsed
	ErrInvalidKey = errors.New("invalid key")

	// ErrNotLibraryKey indicates a well-formed key that does not address a library
	ErrNotLibraryKey = errors.New("not a library key")

	// ErrLibraryNotFound indicates a library was not found
	ErrLibraryNotFound = errors.New("library not found")

	// ErrLibraryExists indicates a library with the same key already exists
	ErrLibraryExists = errors.New("library already exists")

	// ErrLibraryDeleted indicates the library has been deleted
	ErrLibraryDeleted = errors.New("library deleted")

	// ErrBlockNotFound indicates a block was not found
	ErrBlockNotFound = errors.New("block not found")

	// ErrBlockExists indicates a block with the same usage key already exists
	ErrBlockExists = errors.New("block already exists")

	// ErrBlobNotFound indicates a payload is missing from its blob store
	ErrBlobNotFound = errors.New("blob not found")

	// ErrStorageBackendNotFound indicates a storage backend was not found
	ErrStorageBackendNotFound = errors.New("storage backend not found")
)

// KeyError reports a key that was rejected before any store access.
type KeyError struct {
	Key string
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("key %q: %v", e.Key, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// LibraryError represents an error related to library operations
type LibraryError struct {
	Key LibraryKey
	Op  string
	Err error
}

func (e *LibraryError) Error() string {
	return fmt.Sprintf("library operation %s failed for library %s: %v", e.Op, e.Key, e.Err)
}

func (e *LibraryError) Unwrap() error {
	return e.Err
}

// BlockError represents an error related to block operations
type BlockError struct {
	Key UsageKey
	Op  string
	Err error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block operation %s failed for block %s: %v", e.Op, e.Key, e.Err)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
