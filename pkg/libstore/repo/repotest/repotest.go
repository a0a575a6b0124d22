// Package repotest holds behavior checks shared by every libstore.Repository
// implementation.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/library-store/pkg/libstore"
)

// Factory returns an empty repository for one subtest.
type Factory func(t *testing.T) libstore.Repository

// Run exercises the repository contract against repositories built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("LibraryLifecycle", func(t *testing.T) { testLibraryLifecycle(t, newRepo(t)) })
	t.Run("ListAndCount", func(t *testing.T) { testListAndCount(t, newRepo(t)) })
	t.Run("BlockLifecycle", func(t *testing.T) { testBlockLifecycle(t, newRepo(t)) })
	t.Run("BlocksOfDeletedLibrary", func(t *testing.T) { testBlocksOfDeletedLibrary(t, newRepo(t)) })
}

// NewLibrary builds a library record created at the given offset from a fixed base time.
func NewLibrary(org, slug string, offset time.Duration) *libstore.Library {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(offset)
	return &libstore.Library{
		Key:         libstore.LibraryKey{Org: org, Library: slug},
		DisplayName: slug + " library",
		CreatedBy:   "tester",
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

// NewBlock builds a block record in lib.
func NewBlock(lib libstore.LibraryKey, blockType, blockID string) *libstore.Block {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &libstore.Block{
		Key:         lib.MakeUsageKey(blockType, blockID),
		DisplayName: blockID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func testLibraryLifecycle(t *testing.T, repo libstore.Repository) {
	ctx := context.Background()
	lib := NewLibrary("OpenedX", "lib1", 0)

	require.NoError(t, repo.CreateLibrary(ctx, lib))
	assert.ErrorIs(t, repo.CreateLibrary(ctx, lib), libstore.ErrLibraryExists)

	got, err := repo.GetLibrary(ctx, lib.Key)
	require.NoError(t, err)
	assert.Equal(t, lib.Key, got.Key)
	assert.Equal(t, "lib1 library", got.DisplayName)
	assert.Equal(t, "tester", got.CreatedBy)
	assert.False(t, got.IsDeleted())

	require.NoError(t, repo.DeleteLibrary(ctx, lib.Key, "alice"))
	got, err = repo.GetLibrary(ctx, lib.Key)
	require.NoError(t, err)
	require.True(t, got.IsDeleted())
	assert.Equal(t, "alice", got.DeletedBy)
	firstDeletedAt := *got.DeletedAt

	// Second delete keeps the original marker
	require.NoError(t, repo.DeleteLibrary(ctx, lib.Key, "bob"))
	got, err = repo.GetLibrary(ctx, lib.Key)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.DeletedBy)
	assert.True(t, firstDeletedAt.Equal(*got.DeletedAt))

	missing := libstore.LibraryKey{Org: "OpenedX", Library: "missing"}
	_, err = repo.GetLibrary(ctx, missing)
	assert.ErrorIs(t, err, libstore.ErrLibraryNotFound)
	assert.ErrorIs(t, repo.DeleteLibrary(ctx, missing, "alice"), libstore.ErrLibraryNotFound)
}

func testListAndCount(t *testing.T, repo libstore.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.CreateLibrary(ctx, NewLibrary("OrgA", "one", 1*time.Minute)))
	require.NoError(t, repo.CreateLibrary(ctx, NewLibrary("OrgA", "two", 2*time.Minute)))
	require.NoError(t, repo.CreateLibrary(ctx, NewLibrary("OrgB", "three", 3*time.Minute)))
	require.NoError(t, repo.CreateLibrary(ctx, NewLibrary("OrgA", "four", 4*time.Minute)))
	require.NoError(t, repo.DeleteLibrary(ctx, libstore.LibraryKey{Org: "OrgA", Library: "two"}, "alice"))

	all, err := repo.ListLibraries(ctx, libstore.LibraryListFilters{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"library-v1:OrgA+one",
		"library-v1:OrgB+three",
		"library-v1:OrgA+four",
	}, keys(all))

	org := "OrgA"
	orgA, err := repo.ListLibraries(ctx, libstore.LibraryListFilters{Org: &org, IncludeDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"library-v1:OrgA+one",
		"library-v1:OrgA+two",
		"library-v1:OrgA+four",
	}, keys(orgA))

	limit, offset := 1, 1
	page, err := repo.ListLibraries(ctx, libstore.LibraryListFilters{Limit: &limit, Offset: &offset})
	require.NoError(t, err)
	assert.Equal(t, []string{"library-v1:OrgB+three"}, keys(page))

	beyond := 10
	empty, err := repo.ListLibraries(ctx, libstore.LibraryListFilters{Offset: &beyond})
	require.NoError(t, err)
	assert.Empty(t, empty)

	count, err := repo.CountLibraries(ctx, libstore.LibraryCountFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = repo.CountLibraries(ctx, libstore.LibraryCountFilters{Org: &org, IncludeDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func testBlockLifecycle(t *testing.T, repo libstore.Repository) {
	ctx := context.Background()
	lib := NewLibrary("OpenedX", "lib1", 0)
	require.NoError(t, repo.CreateLibrary(ctx, lib))

	b1 := NewBlock(lib.Key, "html", "b1")
	b1.StorageBackendName = "memory"
	b1.DataKey = "libraries/OpenedX/lib1/html/b1"
	b1.MimeType = "text/html"
	b1.Size = 42
	b2 := NewBlock(lib.Key, "problem", "b2")
	b3 := NewBlock(lib.Key, "video", "b3")
	for _, b := range []*libstore.Block{b1, b2, b3} {
		require.NoError(t, repo.CreateBlock(ctx, b))
	}
	assert.ErrorIs(t, repo.CreateBlock(ctx, b1), libstore.ErrBlockExists)

	orphan := NewBlock(libstore.LibraryKey{Org: "OpenedX", Library: "nope"}, "html", "x")
	assert.ErrorIs(t, repo.CreateBlock(ctx, orphan), libstore.ErrLibraryNotFound)

	got, err := repo.GetBlock(ctx, b1.Key)
	require.NoError(t, err)
	assert.Equal(t, b1.Key, got.Key)
	assert.Equal(t, "memory", got.StorageBackendName)
	assert.Equal(t, b1.DataKey, got.DataKey)
	assert.Equal(t, "text/html", got.MimeType)
	assert.Equal(t, int64(42), got.Size)

	blocks, err := repo.ListBlocks(ctx, lib.Key)
	require.NoError(t, err)
	assert.Equal(t, []libstore.UsageKey{b1.Key, b2.Key, b3.Key}, blockKeys(blocks))

	require.NoError(t, repo.DeleteBlock(ctx, b2.Key, "alice"))
	require.NoError(t, repo.DeleteBlock(ctx, b2.Key, "bob"))
	got, err = repo.GetBlock(ctx, b2.Key)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted())
	assert.Equal(t, "alice", got.DeletedBy)

	blocks, err = repo.ListBlocks(ctx, lib.Key)
	require.NoError(t, err)
	assert.Equal(t, []libstore.UsageKey{b1.Key, b3.Key}, blockKeys(blocks))

	missing := lib.Key.MakeUsageKey("html", "missing")
	_, err = repo.GetBlock(ctx, missing)
	assert.ErrorIs(t, err, libstore.ErrBlockNotFound)
	assert.ErrorIs(t, repo.DeleteBlock(ctx, missing, "alice"), libstore.ErrBlockNotFound)

	_, err = repo.ListBlocks(ctx, libstore.LibraryKey{Org: "OpenedX", Library: "nope"})
	assert.ErrorIs(t, err, libstore.ErrLibraryNotFound)
}

func testBlocksOfDeletedLibrary(t *testing.T, repo libstore.Repository) {
	ctx := context.Background()
	lib := NewLibrary("OpenedX", "gone", 0)
	require.NoError(t, repo.CreateLibrary(ctx, lib))
	require.NoError(t, repo.DeleteLibrary(ctx, lib.Key, "alice"))

	assert.ErrorIs(t, repo.CreateBlock(ctx, NewBlock(lib.Key, "html", "late")), libstore.ErrLibraryDeleted)

	blocks, err := repo.ListBlocks(ctx, lib.Key)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func keys(libraries []*libstore.Library) []string {
	out := make([]string, 0, len(libraries))
	for _, l := range libraries {
		out = append(out, l.Key.String())
	}
	return out
}

func blockKeys(blocks []*libstore.Block) []libstore.UsageKey {
	out := make([]libstore.UsageKey, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.Key)
	}
	return out
}
