package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tendant/library-store/pkg/libstore"
)

// Repository implements libstore.Repository using in-memory storage
type Repository struct {
	mu              sync.RWMutex
	libraries       map[libstore.LibraryKey]*libstore.Library
	blocks          map[libstore.UsageKey]*libstore.Block
	blocksByLibrary map[libstore.LibraryKey][]libstore.UsageKey // insertion order
}

// New creates a new in-memory repository
func New() libstore.Repository {
	return &Repository{
		libraries:       make(map[libstore.LibraryKey]*libstore.Library),
		blocks:          make(map[libstore.UsageKey]*libstore.Block),
		blocksByLibrary: make(map[libstore.LibraryKey][]libstore.UsageKey),
	}
}

// Library operations

func (r *Repository) CreateLibrary(ctx context.Context, library *libstore.Library) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.libraries[library.Key]; exists {
		return libstore.ErrLibraryExists
	}

	// Create a copy to avoid external modifications
	libraryCopy := *library
	r.libraries[library.Key] = &libraryCopy
	return nil
}

func (r *Repository) GetLibrary(ctx context.Context, key libstore.LibraryKey) (*libstore.Library, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	library, exists := r.libraries[key]
	if !exists {
		return nil, libstore.ErrLibraryNotFound
	}

	libraryCopy := *library
	return &libraryCopy, nil
}

func (r *Repository) ListLibraries(ctx context.Context, filters libstore.LibraryListFilters) ([]*libstore.Library, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*libstore.Library
	for _, library := range r.libraries {
		if !matches(library, filters.Org, filters.IncludeDeleted) {
			continue
		}
		libraryCopy := *library
		result = append(result, &libraryCopy)
	}

	// Sort by created_at, then key, so pagination is stable
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Key.String() < result[j].Key.String()
	})

	offset := 0
	if filters.Offset != nil && *filters.Offset > 0 {
		offset = *filters.Offset
	}
	if offset >= len(result) {
		return []*libstore.Library{}, nil
	}
	result = result[offset:]

	if filters.Limit != nil && *filters.Limit >= 0 && *filters.Limit < len(result) {
		result = result[:*filters.Limit]
	}

	return result, nil
}

func (r *Repository) CountLibraries(ctx context.Context, filters libstore.LibraryCountFilters) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, library := range r.libraries {
		if matches(library, filters.Org, filters.IncludeDeleted) {
			count++
		}
	}
	return count, nil
}

func (r *Repository) DeleteLibrary(ctx context.Context, key libstore.LibraryKey, actor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	library, exists := r.libraries[key]
	if !exists {
		return libstore.ErrLibraryNotFound
	}
	if library.DeletedAt != nil {
		return nil
	}

	now := time.Now().UTC()
	library.DeletedAt = &now
	library.DeletedBy = actor
	library.UpdatedAt = now
	return nil
}

// Block operations

func (r *Repository) CreateBlock(ctx context.Context, block *libstore.Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	library, exists := r.libraries[block.Key.Library]
	if !exists {
		return libstore.ErrLibraryNotFound
	}
	if library.DeletedAt != nil {
		return libstore.ErrLibraryDeleted
	}
	if _, exists := r.blocks[block.Key]; exists {
		return libstore.ErrBlockExists
	}

	blockCopy := *block
	r.blocks[block.Key] = &blockCopy
	r.blocksByLibrary[block.Key.Library] = append(r.blocksByLibrary[block.Key.Library], block.Key)
	return nil
}

func (r *Repository) GetBlock(ctx context.Context, key libstore.UsageKey) (*libstore.Block, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	block, exists := r.blocks[key]
	if !exists {
		return nil, libstore.ErrBlockNotFound
	}

	blockCopy := *block
	return &blockCopy, nil
}

func (r *Repository) ListBlocks(ctx context.Context, key libstore.LibraryKey) ([]*libstore.Block, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.libraries[key]; !exists {
		return nil, libstore.ErrLibraryNotFound
	}

	result := []*libstore.Block{}
	for _, usageKey := range r.blocksByLibrary[key] {
		block := r.blocks[usageKey]
		if block == nil || block.DeletedAt != nil {
			continue
		}
		blockCopy := *block
		result = append(result, &blockCopy)
	}
	return result, nil
}

func (r *Repository) DeleteBlock(ctx context.Context, key libstore.UsageKey, actor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	block, exists := r.blocks[key]
	if !exists {
		return libstore.ErrBlockNotFound
	}
	if block.DeletedAt != nil {
		return nil
	}

	now := time.Now().UTC()
	block.DeletedAt = &now
	block.DeletedBy = actor
	block.UpdatedAt = now
	return nil
}

func matches(library *libstore.Library, org *string, includeDeleted bool) bool {
	if !includeDeleted && library.DeletedAt != nil {
		return false
	}
	if org != nil && library.Key.Org != *org {
		return false
	}
	return true
}
