package libstore_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/library-store/pkg/libstore"
	"github.com/tendant/library-store/pkg/libstore/repo/memory"
	memorystorage "github.com/tendant/library-store/pkg/libstore/storage/memory"
)

const libKey = "library-v1:OpenedX+lib1"

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []libstore.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []libstore.Option{},
			expectError: true,
		},
		{
			name: "with repository should succeed",
			options: []libstore.Option{
				libstore.WithRepository(memory.New()),
			},
		},
		{
			name: "with repository and blob store should succeed",
			options: []libstore.Option{
				libstore.WithRepository(memory.New()),
				libstore.WithBlobStore("memory", memorystorage.New()),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := libstore.New(tt.options...)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

// recordingSink records lifecycle events in order
type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) LibraryCreated(ctx context.Context, library *libstore.Library) error {
	r.add("library_created " + library.Key.String())
	return nil
}

func (r *recordingSink) LibraryDeleted(ctx context.Context, key libstore.LibraryKey, actor string) error {
	r.add("library_deleted " + key.String() + " " + actor)
	return nil
}

func (r *recordingSink) BlockCreated(ctx context.Context, block *libstore.Block) error {
	r.add("block_created " + block.Key.String())
	return nil
}

func (r *recordingSink) BlockDeleted(ctx context.Context, key libstore.UsageKey, actor string) error {
	r.add("block_deleted " + key.String() + " " + actor)
	return nil
}

// flakyStore fails deletes of one object key until healed
type flakyStore struct {
	libstore.BlobStore
	mu      sync.Mutex
	failKey string
}

func (f *flakyStore) Delete(ctx context.Context, objectKey string) error {
	f.mu.Lock()
	fail := f.failKey != "" && objectKey == f.failKey
	f.mu.Unlock()
	if fail {
		return errors.New("backend unavailable")
	}
	return f.BlobStore.Delete(ctx, objectKey)
}

func (f *flakyStore) heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failKey = ""
}

// barrierStore holds every upload until parties uploads have arrived
type barrierStore struct {
	libstore.BlobStore
	arrived sync.WaitGroup
}

func newBarrierStore(parties int) *barrierStore {
	b := &barrierStore{BlobStore: memorystorage.New()}
	b.arrived.Add(parties)
	return b
}

func (b *barrierStore) UploadWithParams(ctx context.Context, reader io.Reader, params libstore.UploadParams) error {
	b.arrived.Done()
	b.arrived.Wait()
	return b.BlobStore.UploadWithParams(ctx, reader, params)
}

type fixture struct {
	svc   libstore.Service
	repo  libstore.Repository
	blobs libstore.BlobStore
	sink  *recordingSink
}

func newFixture(t *testing.T, opts ...libstore.Option) *fixture {
	t.Helper()
	f := &fixture{
		repo:  memory.New(),
		blobs: memorystorage.New(),
		sink:  &recordingSink{},
	}
	options := append([]libstore.Option{
		libstore.WithRepository(f.repo),
		libstore.WithBlobStore("memory", f.blobs),
		libstore.WithEventSink(f.sink),
	}, opts...)
	svc, err := libstore.New(options...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

// seedLibrary creates libKey with blocks b1 (html, with payload) and b2 (problem).
func (f *fixture) seedLibrary(t *testing.T) (b1, b2 *libstore.Block) {
	t.Helper()
	ctx := context.Background()

	_, err := f.svc.CreateLibrary(ctx, libstore.CreateLibraryRequest{Key: libKey, DisplayName: "Library One", CreatedBy: "author"})
	require.NoError(t, err)

	b1, err = f.svc.CreateBlock(ctx, libstore.CreateBlockRequest{
		LibraryKey:  libKey,
		BlockType:   "html",
		BlockID:     "b1",
		DisplayName: "Intro",
		Data:        strings.NewReader("<p>intro</p>"),
		MimeType:    "text/html",
	})
	require.NoError(t, err)

	b2, err = f.svc.CreateBlock(ctx, libstore.CreateBlockRequest{
		LibraryKey: libKey,
		BlockType:  "problem",
		BlockID:    "b2",
	})
	require.NoError(t, err)
	return b1, b2
}

func TestDeleteLibrary_RemovesLibraryAndBlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1, b2 := f.seedLibrary(t)

	result, err := f.svc.DeleteLibrary(ctx, libstore.DeleteLibraryRequest{Key: libKey, Actor: "alice"})
	require.NoError(t, err)
	assert.True(t, result.LibraryDeleted)
	assert.False(t, result.AlreadyDeleted)
	assert.Equal(t, "alice", result.Actor)
	assert.Equal(t, []libstore.UsageKey{b1.Key, b2.Key}, result.Blocks)
	assert.Equal(t, []libstore.UsageKey{b1.Key, b2.Key}, result.DeletedBlocks)
	assert.False(t, result.CompletedAt.IsZero())

	lib, err := f.svc.GetLibrary(ctx, libKey)
	require.NoError(t, err)
	assert.True(t, lib.IsDeleted())
	assert.Equal(t, "alice", lib.DeletedBy)

	for _, key := range []libstore.UsageKey{b1.Key, b2.Key} {
		block, err := f.repo.GetBlock(ctx, key)
		require.NoError(t, err)
		assert.True(t, block.IsDeleted(), key.String())
	}

	// Payload is gone from the blob store
	_, err = f.blobs.Download(ctx, b1.DataKey)
	assert.ErrorIs(t, err, libstore.ErrBlobNotFound)

	_, err = f.svc.GetLibraryBlocks(ctx, libKey)
	assert.ErrorIs(t, err, libstore.ErrLibraryDeleted)

	remaining, err := f.svc.ListLibraries(ctx, libstore.ListLibrariesRequest{})
	require.NoError(t, err)
	assert.Empty(t, remaining)

	assert.Equal(t, []string{
		"library_created library-v1:OpenedX+lib1",
		"block_created lib-block-v1:OpenedX+lib1+type@html+block@b1",
		"block_created lib-block-v1:OpenedX+lib1+type@problem+block@b2",
		"block_deleted lib-block-v1:OpenedX+lib1+type@html+block@b1 alice",
		"block_deleted lib-block-v1:OpenedX+lib1+type@problem+block@b2 alice",
		"library_deleted library-v1:OpenedX+lib1 alice",
	}, f.sink.events)
}

func TestDeleteLibrary_CourseKeyRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLibrary(t)

	result, err := f.svc.DeleteLibrary(ctx, libstore.DeleteLibraryRequest{Key: "course-v1:OpenedX+DemoX+2024"})
	assert.ErrorIs(t, err, libstore.ErrNotLibraryKey)
	assert.Nil(t, result)

	view, err := f.svc.GetLibraryBlocks(ctx, libKey)
	require.NoError(t, err)
	assert.Len(t, view.Blocks, 2)
}

func TestDeleteLibrary_InvalidKey(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.DeleteLibrary(context.Background(), libstore.DeleteLibraryRequest{Key: "not a key"})
	assert.ErrorIs(t, err, libstore.ErrInvalidKey)
}

func TestDeleteLibrary_UnknownLibrary(t *testing.T) {
	var hookOps []string
	f := newFixture(t, libstore.WithHooks(&libstore.Hooks{
		OnError: []libstore.ErrorHook{func(hctx *libstore.HookContext, op string, err error) {
			hookOps = append(hookOps, op)
		}},
	}))
	ctx := context.Background()
	f.seedLibrary(t)

	result, err := f.svc.DeleteLibrary(ctx, libstore.DeleteLibraryRequest{Key: "library-v1:OpenedX+missing"})
	assert.ErrorIs(t, err, libstore.ErrLibraryNotFound)
	assert.Nil(t, result)
	assert.Equal(t, []string{"delete_library"}, hookOps)

	var libErr *libstore.LibraryError
	require.ErrorAs(t, err, &libErr)
	assert.Equal(t, "missing", libErr.Key.Library)

	count, err := f.svc.CountLibraries(ctx, libstore.LibraryCountFilters{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDeleteLibrary_AlreadyDeletedIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedLibrary(t)

	_, err := f.svc.DeleteLibrary(ctx, libstore.DeleteLibraryRequest{Key: libKey, Actor: "alice"})
	require.NoError(t, err)
	eventsAfterFirst := len(f.sink.events)

	result, err := f.svc.DeleteLibrary(ctx, libstore.DeleteLibraryRequest{Key: libKey, Actor: "bob"})
	require.NoError(t, err)
	assert.True(t, result.AlreadyDeleted)
	assert.False(t, result.LibraryDeleted)
	assert.Empty(t, result.DeletedBlocks)
	assert.Len(t, f.sink.events, eventsAfterFirst)

	lib, err := f.svc.GetLibrary(ctx, libKey)
	require.NoError(t, err)
	assert.Equal(t, "alice", lib.DeletedBy)
}

func TestDeleteLibrary_DryRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1, b2 := f.seedLibrary(t)

	result, err := f.svc.DeleteLibrary(ctx, libstore.DeleteLibraryRequest{Key: libKey, DryRun: true})
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.False(t, result.LibraryDeleted)
	assert.Equal(t, libstore.DefaultActor, result.Actor)
	assert.Equal(t, []libstore.UsageKey{b1.Key, b2.Key}, result.Blocks)
	assert.Empty(t, result.DeletedBlocks)

	lib, err := f.svc.GetLibrary(ctx, libKey)
	require.NoError(t, err)
	assert.False(t, lib.IsDeleted())

	rc, err := f.svc.DownloadBlockData(ctx, b1.Key.String())
	require.NoError(t, err)
	rc.Close()
}

func TestDeleteLibrary_EmptyLibrary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateLibrary(ctx, libstore.CreateLibraryRequest{Key: "library-v1:OpenedX+empty"})
	require.NoError(t, err)

	result, err := f.svc.DeleteLibrary(ctx, libstore.DeleteLibraryRequest{Key: "library-v1:OpenedX+empty"})
	require.NoError(t, err)
	assert.True(t, result.LibraryDeleted)
	assert.Empty(t, result.Blocks)
}

func TestDeleteLibrary_BeforeHookVetoes(t *testing.T) {
	veto := errors.New("library is referenced by a course")
	f := newFixture(t, libstore.WithHooks(&libstore.Hooks{
		BeforeLibraryDelete: []libstore.BeforeLibraryDeleteHook{
			func(hctx *libstore.HookContext, library *libstore.Library, blocks []*libstore.Block) error {
				if len(blocks) > 0 {
					return veto
				}
				return nil
			},
		},
	}))
	ctx := context.Background()
	f.seedLibrary(t)

	result, err := f.svc.DeleteLibrary(ctx, libstore.DeleteLibraryRequest{Key: libKey})
	assert.ErrorIs(t, err, veto)
	require.NotNil(t, result)
	assert.Len(t, result.Blocks, 2)
	assert.Empty(t, result.DeletedBlocks)

	view, err := f.svc.GetLibraryBlocks(ctx, libKey)
	require.NoError(t, err)
	assert.Len(t, view.Blocks, 2)
}

func TestDeleteLibrary_AfterHookSeesResult(t *testing.T) {
	var seen *libstore.DeletionResult
	f := newFixture(t, libstore.WithHooks(&libstore.Hooks{
		AfterLibraryDelete: []libstore.AfterLibraryDeleteHook{
			func(hctx *libstore.HookContext, result *libstore.DeletionResult) error {
				seen = result
				return errors.New("notification failed")
			},
		},
	}))
	ctx := context.Background()
	f.seedLibrary(t)

	result, err := f.svc.DeleteLibrary(ctx, libstore.DeleteLibraryRequest{Key: libKey})
	require.NoError(t, err)
	assert.Same(t, result, seen)
	assert.True(t, result.LibraryDeleted)
}

func TestDeleteLibrary_PartialFailureCanBeRetried(t *testing.T) {
	repo := memory.New()
	store := &flakyStore{BlobStore: memorystorage.New()}
	svc, err := libstore.New(libstore.WithRepository(repo), libstore.WithBlobStore("memory", store))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.CreateLibrary(ctx, libstore.CreateLibraryRequest{Key: libKey})
	require.NoError(t, err)
	first, err := svc.CreateBlock(ctx, libstore.CreateBlockRequest{LibraryKey: libKey, BlockType: "problem", BlockID: "b0"})
	require.NoError(t, err)
	withData, err := svc.CreateBlock(ctx, libstore.CreateBlockRequest{
		LibraryKey: libKey, BlockType: "html", BlockID: "b1", Data: strings.NewReader("x"),
	})
	require.NoError(t, err)
	store.failKey = withData.DataKey

	result, err := svc.DeleteLibrary(ctx, libstore.DeleteLibraryRequest{Key: libKey})
	require.Error(t, err)
	var storageErr *libstore.StorageError
	assert.ErrorAs(t, err, &storageErr)
	require.NotNil(t, result)
	assert.Equal(t, []libstore.UsageKey{first.Key}, result.DeletedBlocks)
	assert.False(t, result.LibraryDeleted)

	lib, err := repo.GetLibrary(ctx, first.Key.Library)
	require.NoError(t, err)
	assert.False(t, lib.IsDeleted())

	store.heal()
	result, err = svc.DeleteLibrary(ctx, libstore.DeleteLibraryRequest{Key: libKey})
	require.NoError(t, err)
	assert.Equal(t, []libstore.UsageKey{withData.Key}, result.DeletedBlocks)
	assert.True(t, result.LibraryDeleted)
}

func TestDeleteLibrary_MissingPayloadIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1, _ := f.seedLibrary(t)

	require.NoError(t, f.blobs.Delete(ctx, b1.DataKey))

	result, err := f.svc.DeleteLibrary(ctx, libstore.DeleteLibraryRequest{Key: libKey})
	require.NoError(t, err)
	assert.True(t, result.LibraryDeleted)
	assert.Len(t, result.DeletedBlocks, 2)
}

func TestCreateBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1, b2 := f.seedLibrary(t)

	assert.Equal(t, "memory", b1.StorageBackendName)
	assert.True(t, strings.HasPrefix(b1.DataKey, "libraries/OpenedX/lib1/html/b1/"), b1.DataKey)
	assert.Equal(t, int64(len("<p>intro</p>")), b1.Size)
	assert.Equal(t, "text/html", b1.MimeType)
	assert.False(t, b2.HasPayload())

	generated, err := f.svc.CreateBlock(ctx, libstore.CreateBlockRequest{LibraryKey: libKey, BlockType: "video"})
	require.NoError(t, err)
	assert.Len(t, generated.Key.BlockID, 32)

	_, err = f.svc.CreateBlock(ctx, libstore.CreateBlockRequest{LibraryKey: libKey, BlockType: "html", BlockID: "b1"})
	assert.ErrorIs(t, err, libstore.ErrBlockExists)

	_, err = f.svc.CreateBlock(ctx, libstore.CreateBlockRequest{LibraryKey: libKey, BlockType: "bad type", BlockID: "x"})
	assert.ErrorIs(t, err, libstore.ErrInvalidKey)

	_, err = f.svc.CreateBlock(ctx, libstore.CreateBlockRequest{
		LibraryKey: libKey, BlockType: "html", BlockID: "x", Data: strings.NewReader("x"), StorageBackendName: "s3",
	})
	assert.ErrorIs(t, err, libstore.ErrStorageBackendNotFound)

	_, err = f.svc.CreateBlock(ctx, libstore.CreateBlockRequest{LibraryKey: "library-v1:OpenedX+missing", BlockType: "html"})
	assert.ErrorIs(t, err, libstore.ErrLibraryNotFound)

	_, err = f.svc.DeleteLibrary(ctx, libstore.DeleteLibraryRequest{Key: libKey})
	require.NoError(t, err)
	_, err = f.svc.CreateBlock(ctx, libstore.CreateBlockRequest{LibraryKey: libKey, BlockType: "html"})
	assert.ErrorIs(t, err, libstore.ErrLibraryDeleted)
}

func TestCreateBlock_DuplicateKeepsExistingPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1, _ := f.seedLibrary(t)

	_, err := f.svc.CreateBlock(ctx, libstore.CreateBlockRequest{
		LibraryKey: libKey, BlockType: "html", BlockID: "b1", Data: strings.NewReader("replacement"),
	})
	assert.ErrorIs(t, err, libstore.ErrBlockExists)

	rc, err := f.svc.DownloadBlockData(ctx, b1.Key.String())
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "<p>intro</p>", string(data))
}

func TestCreateBlock_ConcurrentDuplicateKeepsWinnerPayload(t *testing.T) {
	blobs := newBarrierStore(2)
	svc, err := libstore.New(
		libstore.WithRepository(memory.New()),
		libstore.WithBlobStore("memory", blobs),
	)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = svc.CreateLibrary(ctx, libstore.CreateLibraryRequest{Key: libKey})
	require.NoError(t, err)

	payloads := []string{"<p>first</p>", "<p>second</p>"}
	blocks := make([]*libstore.Block, len(payloads))
	errs := make([]error, len(payloads))
	var wg sync.WaitGroup
	for i, payload := range payloads {
		i, payload := i, payload
		wg.Add(1)
		go func() {
			defer wg.Done()
			blocks[i], errs[i] = svc.CreateBlock(ctx, libstore.CreateBlockRequest{
				LibraryKey: libKey, BlockType: "html", BlockID: "race", Data: strings.NewReader(payload),
			})
		}()
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "only one create may succeed")
			winner = i
		} else {
			assert.ErrorIs(t, err, libstore.ErrBlockExists)
		}
	}
	require.NotEqual(t, -1, winner, "one create must succeed")

	rc, err := svc.DownloadBlockData(ctx, blocks[winner].Key.String())
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payloads[winner], string(data))
}

func TestGetLibraryBlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1, b2 := f.seedLibrary(t)

	view, err := f.svc.GetLibraryBlocks(ctx, libKey)
	require.NoError(t, err)
	assert.Equal(t, libKey, view.LibraryID)
	assert.Equal(t, "Library One", view.DisplayName)
	assert.Equal(t, []libstore.BlockSummary{
		{ID: b1.Key.String(), BlockType: "html", DisplayName: "Intro"},
		{ID: b2.Key.String(), BlockType: "problem"},
	}, view.Blocks)

	_, err = f.svc.GetLibraryBlocks(ctx, "course-v1:OpenedX+DemoX+2024")
	assert.ErrorIs(t, err, libstore.ErrNotLibraryKey)
}

func TestDownloadBlockData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1, b2 := f.seedLibrary(t)

	rc, err := f.svc.DownloadBlockData(ctx, b1.Key.String())
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "<p>intro</p>", string(data))

	_, err = f.svc.DownloadBlockData(ctx, b2.Key.String())
	assert.ErrorIs(t, err, libstore.ErrBlobNotFound)

	require.NoError(t, f.svc.DeleteBlock(ctx, libstore.DeleteBlockRequest{Key: b1.Key.String()}))
	_, err = f.svc.DownloadBlockData(ctx, b1.Key.String())
	assert.ErrorIs(t, err, libstore.ErrBlockNotFound)
}

func TestDeleteBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1, b2 := f.seedLibrary(t)

	require.NoError(t, f.svc.DeleteBlock(ctx, libstore.DeleteBlockRequest{Key: b1.Key.String(), Actor: "alice"}))
	require.NoError(t, f.svc.DeleteBlock(ctx, libstore.DeleteBlockRequest{Key: b1.Key.String(), Actor: "bob"}))

	block, err := f.svc.GetBlock(ctx, b1.Key.String())
	require.NoError(t, err)
	assert.Equal(t, "alice", block.DeletedBy)

	view, err := f.svc.GetLibraryBlocks(ctx, libKey)
	require.NoError(t, err)
	require.Len(t, view.Blocks, 1)
	assert.Equal(t, b2.Key.String(), view.Blocks[0].ID)

	err = f.svc.DeleteBlock(ctx, libstore.DeleteBlockRequest{Key: "lib-block-v1:OpenedX+lib1+type@html+block@nope"})
	assert.ErrorIs(t, err, libstore.ErrBlockNotFound)

	err = f.svc.DeleteBlock(ctx, libstore.DeleteBlockRequest{Key: libKey})
	assert.ErrorIs(t, err, libstore.ErrInvalidKey)
}

func TestDeleteBlock_BeforeHookVetoes(t *testing.T) {
	veto := errors.New("locked")
	f := newFixture(t, libstore.WithHooks(&libstore.Hooks{
		BeforeBlockDelete: []libstore.BeforeBlockDeleteHook{
			func(hctx *libstore.HookContext, block *libstore.Block) error { return veto },
		},
	}))
	ctx := context.Background()
	b1, _ := f.seedLibrary(t)

	err := f.svc.DeleteBlock(ctx, libstore.DeleteBlockRequest{Key: b1.Key.String()})
	assert.ErrorIs(t, err, veto)

	_, err = f.blobs.GetObjectMeta(ctx, b1.DataKey)
	assert.NoError(t, err)
}

func TestListLibraries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, key := range []string{"library-v1:OrgA+one", "library-v1:OrgA+two", "library-v1:OrgB+three"} {
		_, err := f.svc.CreateLibrary(ctx, libstore.CreateLibraryRequest{Key: key})
		require.NoError(t, err)
	}

	_, err := f.svc.CreateLibrary(ctx, libstore.CreateLibraryRequest{Key: "library-v1:OrgA+one"})
	assert.ErrorIs(t, err, libstore.ErrLibraryExists)

	_, err = f.svc.CreateLibrary(ctx, libstore.CreateLibraryRequest{Key: "course-v1:OrgA+C+R"})
	assert.ErrorIs(t, err, libstore.ErrNotLibraryKey)

	libs, err := f.svc.ListLibraries(ctx, libstore.ListLibrariesRequest{Org: "OrgA"})
	require.NoError(t, err)
	assert.Len(t, libs, 2)
	// Display name defaults to the slug
	assert.Equal(t, "one", libs[0].DisplayName)

	libs, err = f.svc.ListLibraries(ctx, libstore.ListLibrariesRequest{Limit: 1, Offset: 2})
	require.NoError(t, err)
	require.Len(t, libs, 1)
}

func TestGetBackend(t *testing.T) {
	f := newFixture(t)

	backend, err := f.svc.GetBackend("memory")
	require.NoError(t, err)
	assert.NotNil(t, backend)

	_, err = f.svc.GetBackend("missing")
	assert.ErrorIs(t, err, libstore.ErrStorageBackendNotFound)

	f.svc.RegisterBackend("other", memorystorage.New())
	_, err = f.svc.GetBackend("other")
	assert.NoError(t, err)
}
