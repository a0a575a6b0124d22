package libstore

import (
	"time"
)

// Library represents a reusable collection of content blocks managed
// independently of a course.
type Library struct {
	Key         LibraryKey `json:"-"`
	DisplayName string     `json:"display_name"`
	CreatedBy   string     `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	DeletedBy   string     `json:"deleted_by,omitempty"`
}

// IsDeleted reports whether the library carries a deletion marker.
func (l *Library) IsDeleted() bool {
	return l.DeletedAt != nil
}

// Block represents an individual content unit belonging to a library.
//
// A block may carry a payload (for example the HTML of an html block) stored
// in a blob backend; StorageBackendName and DataKey are empty otherwise.
type Block struct {
	Key                UsageKey   `json:"-"`
	DisplayName        string     `json:"display_name,omitempty"`
	StorageBackendName string     `json:"storage_backend_name,omitempty"`
	DataKey            string     `json:"data_key,omitempty"`
	MimeType           string     `json:"mime_type,omitempty"`
	Size               int64      `json:"size,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty"`
	DeletedBy          string     `json:"deleted_by,omitempty"`
}

// IsDeleted reports whether the block carries a deletion marker.
func (b *Block) IsDeleted() bool {
	return b.DeletedAt != nil
}

// HasPayload reports whether the block has data in a blob store.
func (b *Block) HasPayload() bool {
	return b.DataKey != ""
}

// BlockSummary is one entry of the library blocks view.
type BlockSummary struct {
	ID          string `json:"id"`
	BlockType   string `json:"block_type"`
	DisplayName string `json:"display_name,omitempty"`
}

// LibraryBlocks is the library blocks view: a library with the full,
// ordered list of its live blocks.
type LibraryBlocks struct {
	LibraryID   string         `json:"library_id"`
	DisplayName string         `json:"display_name"`
	Blocks      []BlockSummary `json:"blocks"`
}

// DeletionResult reports the outcome of deleting one library.
type DeletionResult struct {
	LibraryKey     LibraryKey `json:"-"`
	Actor          string     `json:"actor"`
	DryRun         bool       `json:"dry_run"`
	AlreadyDeleted bool       `json:"already_deleted"`
	LibraryDeleted bool       `json:"library_deleted"`
	// Blocks enumerated before deletion started
	Blocks []UsageKey `json:"-"`
	// Blocks whose records were deleted
	DeletedBlocks []UsageKey `json:"-"`
	CompletedAt   time.Time  `json:"completed_at"`
}

// LibraryListFilters defines filtering options for listing libraries
type LibraryListFilters struct {
	Org            *string
	IncludeDeleted bool
	Limit          *int
	Offset         *int
}

// LibraryCountFilters defines filtering options for counting libraries
type LibraryCountFilters struct {
	Org            *string
	IncludeDeleted bool
}
