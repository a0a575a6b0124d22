package presets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/tendant/library-store/pkg/libstore"
	"github.com/tendant/library-store/pkg/libstore/config"
	memoryrepo "github.com/tendant/library-store/pkg/libstore/repo/memory"
	fsstorage "github.com/tendant/library-store/pkg/libstore/storage/fs"
	memorystorage "github.com/tendant/library-store/pkg/libstore/storage/memory"
)

// Configuration Presets
//
// Ready-made service setups for local development, tests and production.

// FixtureLibraryKey is the library seeded by WithTestFixtures.
const FixtureLibraryKey = "library-v1:DemoX+fixtures"

// NewDevelopment creates a service configured for local development.
//
// Features:
//   - In-memory database (instant startup, no setup required)
//   - Filesystem storage at ./dev-data/ for block payloads
//   - Event logging enabled
//
// The returned cleanup function removes the storage directory.
//
// Example:
//
//	svc, cleanup, err := presets.NewDevelopment()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup()
func NewDevelopment(opts ...DevelopmentOption) (libstore.Service, func(), error) {
	cfg := &devConfig{storageDir: "./dev-data"}
	for _, opt := range opts {
		opt(cfg)
	}

	fsBackend, err := fsstorage.New(fsstorage.Config{BaseDir: cfg.storageDir})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create filesystem storage: %w", err)
	}

	svc, err := libstore.New(
		libstore.WithRepository(memoryrepo.New()),
		libstore.WithBlobStore("fs", fsBackend),
		libstore.WithEventSink(libstore.NewLoggingEventSink(nil)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create service: %w", err)
	}

	cleanup := func() {
		os.RemoveAll(cfg.storageDir)
	}
	return svc, cleanup, nil
}

// NewTesting creates a service for unit and integration tests: in-memory
// repository and storage, no event logging. It fails the test on setup errors.
//
// Example:
//
//	func TestMyFeature(t *testing.T) {
//	    svc := presets.NewTesting(t, presets.WithTestFixtures())
//	    ...
//	}
func NewTesting(t testing.TB, opts ...TestingOption) libstore.Service {
	t.Helper()

	cfg := &testConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	svc, err := libstore.New(
		libstore.WithRepository(memoryrepo.New()),
		libstore.WithBlobStore("memory", memorystorage.New()),
		libstore.WithEventSink(libstore.NewNoopEventSink()),
		libstore.WithHooks(cfg.hooks),
	)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}

	if cfg.fixtures {
		if err := seedFixtures(context.Background(), svc); err != nil {
			t.Fatalf("failed to seed fixtures: %v", err)
		}
	}
	return svc
}

// seedFixtures creates FixtureLibraryKey with an html block carrying a
// payload, a problem block and a video block.
func seedFixtures(ctx context.Context, svc libstore.Service) error {
	if _, err := svc.CreateLibrary(ctx, libstore.CreateLibraryRequest{
		Key:         FixtureLibraryKey,
		DisplayName: "Fixtures",
		CreatedBy:   "presets",
	}); err != nil {
		return err
	}

	blocks := []libstore.CreateBlockRequest{
		{BlockType: "html", BlockID: "intro", DisplayName: "Introduction", Data: strings.NewReader("<p>Welcome</p>"), MimeType: "text/html"},
		{BlockType: "problem", BlockID: "quiz1", DisplayName: "Quiz"},
		{BlockType: "video", BlockID: "lecture1", DisplayName: "Lecture"},
	}
	for _, req := range blocks {
		req.LibraryKey = FixtureLibraryKey
		if _, err := svc.CreateBlock(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// NewProduction creates a service from LIBSTORE_* environment variables.
//
// A persistent database and storage backend are required: memory for either
// is rejected. The returned close function releases database handles.
func NewProduction(opts ...config.Option) (libstore.Service, func() error, error) {
	cfg, err := config.Load(append([]config.Option{config.WithEnv()}, opts...)...)
	if err != nil {
		return nil, nil, err
	}

	if cfg.DatabaseType == config.DatabaseMemory {
		return nil, nil, fmt.Errorf("production preset requires a postgres or sqlite database (memory not allowed)")
	}
	for _, backend := range cfg.StorageBackends {
		if backend.Name == cfg.DefaultStorageBackend && backend.Type == "memory" {
			return nil, nil, fmt.Errorf("production preset requires persistent storage (s3 or fs, not memory)")
		}
	}

	svc, err := cfg.BuildService()
	if err != nil {
		_ = cfg.Close()
		return nil, nil, err
	}
	return svc, cfg.Close, nil
}

// devConfig holds development preset configuration
type devConfig struct {
	storageDir string
}

// testConfig holds testing preset configuration
type testConfig struct {
	fixtures bool
	hooks    *libstore.Hooks
}

// DevelopmentOption is a functional option for NewDevelopment
type DevelopmentOption func(*devConfig)

// WithDevStorage sets the development storage directory
func WithDevStorage(dir string) DevelopmentOption {
	return func(cfg *devConfig) {
		cfg.storageDir = dir
	}
}

// TestingOption is a functional option for NewTesting
type TestingOption func(*testConfig)

// WithTestFixtures seeds FixtureLibraryKey and its blocks
func WithTestFixtures() TestingOption {
	return func(cfg *testConfig) {
		cfg.fixtures = true
	}
}

// WithTestHooks installs deletion hooks on the test service
func WithTestHooks(hooks *libstore.Hooks) TestingOption {
	return func(cfg *testConfig) {
		cfg.hooks = hooks
	}
}
