package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/library-store/pkg/libstore"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DatabaseMemory, cfg.DatabaseType)
	assert.Equal(t, "memory", cfg.DefaultStorageBackend)
	assert.True(t, cfg.EnableEventLogging)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{name: "empty port", opts: []Option{WithPort("")}, wantErr: true},
		{name: "unknown database", opts: []Option{WithDatabase("mysql", "x")}, wantErr: true},
		{name: "postgres without url", opts: []Option{WithDatabase(DatabasePostgres, "")}, wantErr: true},
		{name: "sqlite", opts: []Option{WithDatabase(DatabaseSQLite, "sqlite://./data/lib.db")}},
		{name: "missing default backend", opts: []Option{WithDefaultStorage("s3")}, wantErr: true},
		{name: "s3 backend as default", opts: []Option{WithS3Storage("", "blocks", ""), WithDefaultStorage("s3")}},
		{name: "fs without dir", opts: []Option{WithFilesystemStorage("fs", "")}, wantErr: true},
		{name: "bad log level", opts: []Option{WithLogLevel("loud")}, wantErr: true},
		{name: "nil option ignored", opts: []Option{nil, WithPort("9090")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opts...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	for input, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLogLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}

func TestBuildService_SQLiteAndFilesystem(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(
		WithDatabase(DatabaseSQLite, "sqlite://"+filepath.Join(dir, "libstore.db")),
		WithFilesystemStorage("fs", filepath.Join(dir, "blobs")),
		WithDefaultStorage("fs"),
		WithEventLogging(false),
	)
	require.NoError(t, err)

	svc, err := cfg.BuildService()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, cfg.Close()) })

	ctx := context.Background()
	_, err = svc.CreateLibrary(ctx, libstore.CreateLibraryRequest{Key: "library-v1:OpenedX+lib1"})
	require.NoError(t, err)
	block, err := svc.CreateBlock(ctx, libstore.CreateBlockRequest{
		LibraryKey: "library-v1:OpenedX+lib1",
		BlockType:  "html",
		BlockID:    "b1",
		Data:       strings.NewReader("<p>x</p>"),
	})
	require.NoError(t, err)
	assert.Equal(t, "fs", block.StorageBackendName)

	result, err := svc.DeleteLibrary(ctx, libstore.DeleteLibraryRequest{Key: "library-v1:OpenedX+lib1", Actor: "tester"})
	require.NoError(t, err)
	assert.True(t, result.LibraryDeleted)
	assert.Len(t, result.DeletedBlocks, 1)
}

func TestBuildService_UnsupportedBackend(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.StorageBackends = append(cfg.StorageBackends, StorageBackendConfig{Name: "ftp", Type: "ftp"})

	_, err = cfg.BuildService()
	assert.Error(t, err)
}

func TestBuildService_FailureLeavesDatabaseForClose(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(
		WithDatabase(DatabaseSQLite, "sqlite://"+filepath.Join(dir, "libstore.db")),
		WithEventLogging(false),
	)
	require.NoError(t, err)
	cfg.StorageBackends = append(cfg.StorageBackends, StorageBackendConfig{Name: "ftp", Type: "ftp"})

	_, err = cfg.BuildService()
	require.Error(t, err)
	assert.Len(t, cfg.closers, 1, "sqlite repository is opened before storage backends")

	assert.NoError(t, cfg.Close())
	assert.Empty(t, cfg.closers)
}

func TestSQLitePath(t *testing.T) {
	assert.Equal(t, "/var/lib/libstore.db", SQLitePath("sqlite:///var/lib/libstore.db"))
	assert.Equal(t, "./libstore.db", SQLitePath("sqlite://./libstore.db"))
}
