package libstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/library-store/pkg/libstore/objectkey"
)

// DefaultActor is recorded on deletions when the caller supplies no actor.
const DefaultActor = "system"

// service implements the Service interface
type service struct {
	repository     Repository
	blobStores     map[string]BlobStore
	defaultBackend string
	eventSink      EventSink
	hooks          *Hooks
	keyGenerator   objectkey.Generator
	logger         *slog.Logger
	now            func() time.Time
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds a blob storage backend. The first backend added becomes
// the default unless WithDefaultBackend is used.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
		if s.defaultBackend == "" {
			s.defaultBackend = name
		}
	}
}

// WithDefaultBackend names the backend used for block payloads when a request does not pick one
func WithDefaultBackend(name string) Option {
	return func(s *service) {
		s.defaultBackend = name
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithHooks sets lifecycle hooks
func WithHooks(hooks *Hooks) Option {
	return func(s *service) {
		s.hooks = hooks
	}
}

// WithObjectKeyGenerator sets the generator used for block payload keys
func WithObjectKeyGenerator(gen objectkey.Generator) Option {
	return func(s *service) {
		s.keyGenerator = gen
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores: make(map[string]BlobStore),
		now:        func() time.Time { return time.Now().UTC() },
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.keyGenerator == nil {
		s.keyGenerator = objectkey.NewDefaultGenerator()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "libstore")

	return s, nil
}

// Library operations

func (s *service) CreateLibrary(ctx context.Context, req CreateLibraryRequest) (*Library, error) {
	key, err := ParseLibraryKey(req.Key)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = key.Library
	}

	now := s.now()
	library := &Library{
		Key:         key,
		DisplayName: displayName,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repository.CreateLibrary(ctx, library); err != nil {
		return nil, &LibraryError{Key: key, Op: "create", Err: err}
	}

	if s.eventSink != nil {
		if err := s.eventSink.LibraryCreated(ctx, library); err != nil {
			s.logger.WarnContext(ctx, "Event sink failed", "event", "library_created", "err", err)
		}
	}

	return library, nil
}

func (s *service) GetLibrary(ctx context.Context, key string) (*Library, error) {
	lk, err := ParseLibraryKey(key)
	if err != nil {
		return nil, err
	}
	library, err := s.repository.GetLibrary(ctx, lk)
	if err != nil {
		return nil, &LibraryError{Key: lk, Op: "get", Err: err}
	}
	return library, nil
}

func (s *service) ListLibraries(ctx context.Context, req ListLibrariesRequest) ([]*Library, error) {
	filters := LibraryListFilters{IncludeDeleted: req.IncludeDeleted}
	if req.Org != "" {
		org := req.Org
		filters.Org = &org
	}
	if req.Limit > 0 {
		limit := req.Limit
		filters.Limit = &limit
	}
	if req.Offset > 0 {
		offset := req.Offset
		filters.Offset = &offset
	}
	return s.repository.ListLibraries(ctx, filters)
}

func (s *service) CountLibraries(ctx context.Context, filters LibraryCountFilters) (int64, error) {
	return s.repository.CountLibraries(ctx, filters)
}

func (s *service) DeleteLibrary(ctx context.Context, req DeleteLibraryRequest) (*DeletionResult, error) {
	key, err := ParseLibraryKey(req.Key)
	if err != nil {
		return nil, err
	}
	actor := req.Actor
	if actor == "" {
		actor = DefaultActor
	}

	library, err := s.repository.GetLibrary(ctx, key)
	if err != nil {
		return nil, s.fail(ctx, "delete_library", &LibraryError{Key: key, Op: "get", Err: err})
	}

	result := &DeletionResult{LibraryKey: key, Actor: actor, DryRun: req.DryRun}
	if library.IsDeleted() {
		result.AlreadyDeleted = true
		result.CompletedAt = s.now()
		s.logger.InfoContext(ctx, "Library already deleted", "library", key.String(), "deleted_by", library.DeletedBy)
		return result, nil
	}

	// Enumerate every child before touching anything.
	blocks, err := s.repository.ListBlocks(ctx, key)
	if err != nil {
		return result, s.fail(ctx, "delete_library", &LibraryError{Key: key, Op: "list_blocks", Err: err})
	}
	for _, block := range blocks {
		result.Blocks = append(result.Blocks, block.Key)
	}
	s.logger.InfoContext(ctx, "Deleting library", "library", key.String(), "blocks", len(blocks), "actor", actor, "dry_run", req.DryRun)

	if req.DryRun {
		result.CompletedAt = s.now()
		return result, nil
	}

	if err := s.hooks.executeBeforeLibraryDelete(ctx, library, blocks); err != nil {
		return result, s.fail(ctx, "delete_library", &LibraryError{Key: key, Op: "before_delete", Err: err})
	}

	for _, block := range blocks {
		if err := s.deleteBlock(ctx, block, actor); err != nil {
			return result, s.fail(ctx, "delete_library", &LibraryError{Key: key, Op: "delete_block", Err: err})
		}
		result.DeletedBlocks = append(result.DeletedBlocks, block.Key)
	}

	if err := s.repository.DeleteLibrary(ctx, key, actor); err != nil {
		return result, s.fail(ctx, "delete_library", &LibraryError{Key: key, Op: "delete", Err: err})
	}
	result.LibraryDeleted = true
	result.CompletedAt = s.now()

	if s.eventSink != nil {
		if err := s.eventSink.LibraryDeleted(ctx, key, actor); err != nil {
			s.logger.WarnContext(ctx, "Event sink failed", "event", "library_deleted", "err", err)
		}
	}
	if err := s.hooks.executeAfterLibraryDelete(ctx, result); err != nil {
		s.hooks.executeOnError(ctx, "after_library_delete", err)
		s.logger.WarnContext(ctx, "After-delete hook failed", "library", key.String(), "err", err)
	}

	return result, nil
}

// Block operations

func (s *service) CreateBlock(ctx context.Context, req CreateBlockRequest) (*Block, error) {
	lk, err := ParseLibraryKey(req.LibraryKey)
	if err != nil {
		return nil, err
	}

	library, err := s.repository.GetLibrary(ctx, lk)
	if err != nil {
		return nil, &LibraryError{Key: lk, Op: "create_block", Err: err}
	}
	if library.IsDeleted() {
		return nil, &LibraryError{Key: lk, Op: "create_block", Err: ErrLibraryDeleted}
	}

	blockID := req.BlockID
	if blockID == "" {
		blockID = NewBlockID()
	}
	key := lk.MakeUsageKey(req.BlockType, blockID)
	if err := key.Validate(); err != nil {
		return nil, err
	}
	// Payload keys derive from the usage key, so a duplicate must be caught before upload
	if _, err := s.repository.GetBlock(ctx, key); err == nil {
		return nil, &BlockError{Key: key, Op: "create", Err: ErrBlockExists}
	} else if !errors.Is(err, ErrBlockNotFound) {
		return nil, &BlockError{Key: key, Op: "create", Err: err}
	}

	now := s.now()
	block := &Block{
		Key:         key,
		DisplayName: req.DisplayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if req.Data != nil {
		if err := s.uploadPayload(ctx, block, req); err != nil {
			return nil, err
		}
	}

	if err := s.repository.CreateBlock(ctx, block); err != nil {
		if block.HasPayload() {
			if backend, berr := s.GetBackend(block.StorageBackendName); berr == nil {
				_ = backend.Delete(ctx, block.DataKey)
			}
		}
		return nil, &BlockError{Key: key, Op: "create", Err: err}
	}

	if s.eventSink != nil {
		if err := s.eventSink.BlockCreated(ctx, block); err != nil {
			s.logger.WarnContext(ctx, "Event sink failed", "event", "block_created", "err", err)
		}
	}

	return block, nil
}

func (s *service) uploadPayload(ctx context.Context, block *Block, req CreateBlockRequest) error {
	backendName := req.StorageBackendName
	if backendName == "" {
		backendName = s.defaultBackend
	}
	backend, err := s.GetBackend(backendName)
	if err != nil {
		return &BlockError{Key: block.Key, Op: "upload", Err: err}
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	dataKey := s.keyGenerator.GenerateKey(objectkey.KeyMetadata{
		Org:       block.Key.Library.Org,
		Library:   block.Key.Library.Library,
		BlockType: block.Key.BlockType,
		BlockID:   block.Key.BlockID,
		// A fresh revision per upload keeps a losing concurrent create from
		// removing the winner's payload during cleanup.
		Revision: NewBlockID(),
	})

	counter := &countingReader{r: req.Data}
	if err := backend.UploadWithParams(ctx, counter, UploadParams{ObjectKey: dataKey, MimeType: mimeType}); err != nil {
		return &StorageError{Backend: backendName, Key: dataKey, Op: "upload", Err: err}
	}

	block.StorageBackendName = backendName
	block.DataKey = dataKey
	block.MimeType = mimeType
	block.Size = counter.n
	return nil
}

func (s *service) GetBlock(ctx context.Context, key string) (*Block, error) {
	uk, err := ParseUsageKey(key)
	if err != nil {
		return nil, err
	}
	block, err := s.repository.GetBlock(ctx, uk)
	if err != nil {
		return nil, &BlockError{Key: uk, Op: "get", Err: err}
	}
	return block, nil
}

// GetLibraryBlocks returns the library blocks view for a live library.
func (s *service) GetLibraryBlocks(ctx context.Context, key string) (*LibraryBlocks, error) {
	lk, err := ParseLibraryKey(key)
	if err != nil {
		return nil, err
	}

	library, err := s.repository.GetLibrary(ctx, lk)
	if err != nil {
		return nil, &LibraryError{Key: lk, Op: "blocks", Err: err}
	}
	if library.IsDeleted() {
		return nil, &LibraryError{Key: lk, Op: "blocks", Err: ErrLibraryDeleted}
	}

	blocks, err := s.repository.ListBlocks(ctx, lk)
	if err != nil {
		return nil, &LibraryError{Key: lk, Op: "blocks", Err: err}
	}

	view := &LibraryBlocks{
		LibraryID:   lk.String(),
		DisplayName: library.DisplayName,
		Blocks:      make([]BlockSummary, 0, len(blocks)),
	}
	for _, block := range blocks {
		view.Blocks = append(view.Blocks, BlockSummary{
			ID:          block.Key.String(),
			BlockType:   block.Key.BlockType,
			DisplayName: block.DisplayName,
		})
	}
	return view, nil
}

func (s *service) DownloadBlockData(ctx context.Context, key string) (io.ReadCloser, error) {
	uk, err := ParseUsageKey(key)
	if err != nil {
		return nil, err
	}
	block, err := s.repository.GetBlock(ctx, uk)
	if err != nil {
		return nil, &BlockError{Key: uk, Op: "download", Err: err}
	}
	if block.IsDeleted() {
		return nil, &BlockError{Key: uk, Op: "download", Err: ErrBlockNotFound}
	}
	if !block.HasPayload() {
		return nil, &BlockError{Key: uk, Op: "download", Err: ErrBlobNotFound}
	}

	backend, err := s.GetBackend(block.StorageBackendName)
	if err != nil {
		return nil, &BlockError{Key: uk, Op: "download", Err: err}
	}
	reader, err := backend.Download(ctx, block.DataKey)
	if err != nil {
		return nil, &StorageError{Backend: block.StorageBackendName, Key: block.DataKey, Op: "download", Err: err}
	}
	return reader, nil
}

func (s *service) DeleteBlock(ctx context.Context, req DeleteBlockRequest) error {
	uk, err := ParseUsageKey(req.Key)
	if err != nil {
		return err
	}
	actor := req.Actor
	if actor == "" {
		actor = DefaultActor
	}

	block, err := s.repository.GetBlock(ctx, uk)
	if err != nil {
		return s.fail(ctx, "delete_block", &BlockError{Key: uk, Op: "get", Err: err})
	}
	if block.IsDeleted() {
		return nil
	}
	if err := s.deleteBlock(ctx, block, actor); err != nil {
		return s.fail(ctx, "delete_block", err)
	}
	return nil
}

// deleteBlock removes the payload, then the record. A payload that is already
// gone does not fail the deletion.
func (s *service) deleteBlock(ctx context.Context, block *Block, actor string) error {
	if err := s.hooks.executeBeforeBlockDelete(ctx, block); err != nil {
		return &BlockError{Key: block.Key, Op: "before_delete", Err: err}
	}

	if block.HasPayload() {
		backend, err := s.GetBackend(block.StorageBackendName)
		if err != nil {
			return &BlockError{Key: block.Key, Op: "delete_payload", Err: err}
		}
		if err := backend.Delete(ctx, block.DataKey); err != nil && !errors.Is(err, ErrBlobNotFound) {
			return &StorageError{Backend: block.StorageBackendName, Key: block.DataKey, Op: "delete", Err: err}
		}
	}

	if err := s.repository.DeleteBlock(ctx, block.Key, actor); err != nil {
		return &BlockError{Key: block.Key, Op: "delete", Err: err}
	}
	s.logger.DebugContext(ctx, "Block deleted", "block", block.Key.String())

	if s.eventSink != nil {
		if err := s.eventSink.BlockDeleted(ctx, block.Key, actor); err != nil {
			s.logger.WarnContext(ctx, "Event sink failed", "event", "block_deleted", "err", err)
		}
	}
	if err := s.hooks.executeAfterBlockDelete(ctx, block.Key); err != nil {
		s.hooks.executeOnError(ctx, "after_block_delete", err)
	}
	return nil
}

// Storage backend operations

func (s *service) RegisterBackend(name string, backend BlobStore) {
	s.blobStores[name] = backend
	if s.defaultBackend == "" {
		s.defaultBackend = name
	}
}

func (s *service) GetBackend(name string) (BlobStore, error) {
	backend, exists := s.blobStores[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrStorageBackendNotFound, name)
	}
	return backend, nil
}

func (s *service) fail(ctx context.Context, operation string, err error) error {
	s.hooks.executeOnError(ctx, operation, err)
	s.logger.ErrorContext(ctx, "Operation failed", "op", operation, "err", err)
	return err
}

// NewBlockID returns a random 32 character hex block identifier.
func NewBlockID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
