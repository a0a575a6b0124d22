package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/library-store/pkg/libstore"
	"github.com/tendant/library-store/pkg/libstore/presets"
)

func newTestCLI(t *testing.T, stdin string) (*cli, *bytes.Buffer) {
	t.Helper()
	svc := presets.NewTesting(t)

	ctx := context.Background()
	for _, key := range []string{"library-v1:OpenedX+lib1", "library-v1:OpenedX+lib2", "library-v1:Other+lib3"} {
		_, err := svc.CreateLibrary(ctx, libstore.CreateLibraryRequest{Key: key, DisplayName: strings.ToUpper(key[len(key)-4:])})
		require.NoError(t, err)
		_, err = svc.CreateBlock(ctx, libstore.CreateBlockRequest{
			LibraryKey: key, BlockType: "html", BlockID: "intro", Data: strings.NewReader("<p>x</p>"),
		})
		require.NoError(t, err)
	}

	out := &bytes.Buffer{}
	return &cli{stdout: out, stderr: out, stdin: strings.NewReader(stdin), svc: svc}, out
}

func run(c *cli, args ...string) error {
	return c.execute(context.Background(), args)
}

func TestDelete_Confirmed(t *testing.T) {
	c, out := newTestCLI(t, "y\n")

	require.NoError(t, run(c, "delete", "library-v1:OpenedX+lib1", "--actor", "ops"))
	assert.Contains(t, out.String(), "Deleted library-v1:OpenedX+lib1 (1 blocks)")

	lib, err := c.svc.GetLibrary(context.Background(), "library-v1:OpenedX+lib1")
	require.NoError(t, err)
	assert.True(t, lib.IsDeleted())
	assert.Equal(t, "ops", lib.DeletedBy)
}

func TestDelete_Aborted(t *testing.T) {
	c, out := newTestCLI(t, "n\n")

	require.NoError(t, run(c, "delete", "library-v1:OpenedX+lib1"))
	assert.Contains(t, out.String(), "Aborted")

	lib, err := c.svc.GetLibrary(context.Background(), "library-v1:OpenedX+lib1")
	require.NoError(t, err)
	assert.False(t, lib.IsDeleted())
}

func TestDelete_NoInputFails(t *testing.T) {
	c, _ := newTestCLI(t, "")
	assert.Error(t, run(c, "delete", "library-v1:OpenedX+lib1"))
}

func TestDelete_DryRunSkipsPrompt(t *testing.T) {
	c, out := newTestCLI(t, "")

	require.NoError(t, run(c, "delete", "library-v1:OpenedX+lib1", "--dry-run"))
	assert.Contains(t, out.String(), "Would delete library-v1:OpenedX+lib1 (1 blocks)")
	assert.Contains(t, out.String(), "lib-block-v1:OpenedX+lib1+type@html+block@intro")
	assert.NotContains(t, out.String(), "[y/N]")
}

func TestDelete_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no key", args: []string{"delete", "--yes"}},
		{name: "key and all", args: []string{"delete", "library-v1:OpenedX+lib1", "--all", "--yes"}},
		{name: "org without all", args: []string{"delete", "library-v1:OpenedX+lib1", "--org", "OpenedX", "--yes"}},
		{name: "course key", args: []string{"delete", "course-v1:OpenedX+DemoX+2024", "--yes"}},
		{name: "unknown library", args: []string{"delete", "library-v1:OpenedX+missing", "--yes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCLI(t, "")
			assert.Error(t, run(c, tt.args...))
		})
	}
}

func TestDelete_CourseKeyFailsBeforePrompt(t *testing.T) {
	c, out := newTestCLI(t, "y\n")

	err := run(c, "delete", "course-v1:OpenedX+DemoX+2024")
	assert.ErrorIs(t, err, libstore.ErrNotLibraryKey)
	assert.NotContains(t, out.String(), "[y/N]")
}

func TestExecute_ClosesConfigOnFailure(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LIBSTORE_DATABASE_URL", "sqlite://"+filepath.Join(dir, "lib.db"))
	t.Setenv("LIBSTORE_STORAGE_URL", "file://"+filepath.Join(dir, "blobs"))
	t.Setenv("LIBSTORE_EVENT_LOGGING", "false")

	out := &bytes.Buffer{}
	c := &cli{stdout: out, stderr: out, stdin: strings.NewReader("")}

	err := run(c, "delete", "library-v1:OpenedX+missing", "--yes")
	assert.ErrorIs(t, err, libstore.ErrLibraryNotFound)
	require.NotNil(t, c.svc)
	assert.Nil(t, c.cfg)

	// the sqlite handle was released along with the configuration
	_, err = c.svc.ListLibraries(context.Background(), libstore.ListLibrariesRequest{})
	assert.Error(t, err)
}

func TestDelete_AllByOrgWithReport(t *testing.T) {
	c, out := newTestCLI(t, "")
	dir := t.TempDir()

	require.NoError(t, run(c, "delete", "--all", "--org", "OpenedX", "--yes", "--report-dir", dir))
	assert.Contains(t, out.String(), "2 libraries found, 2 processed, 0 failed")

	ctx := context.Background()
	for key, wantDeleted := range map[string]bool{
		"library-v1:OpenedX+lib1": true,
		"library-v1:OpenedX+lib2": true,
		"library-v1:Other+lib3":   false,
	} {
		lib, err := c.svc.GetLibrary(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, wantDeleted, lib.IsDeleted(), key)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// header, then one block row and one library row per library
	assert.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "library_key,"))
}

func TestList(t *testing.T) {
	c, out := newTestCLI(t, "")

	require.NoError(t, run(c, "list", "--org", "Other"))
	assert.Contains(t, out.String(), "KEY")
	assert.Contains(t, out.String(), "library-v1:Other+lib3")
	assert.NotContains(t, out.String(), "library-v1:OpenedX+lib1")

	out.Reset()
	require.NoError(t, run(c, "list", "--json"))
	var items []libraryJSON
	require.NoError(t, json.Unmarshal(out.Bytes(), &items))
	assert.Len(t, items, 3)
}

func TestBlocks(t *testing.T) {
	c, out := newTestCLI(t, "")

	require.NoError(t, run(c, "blocks", "library-v1:OpenedX+lib2"))
	assert.Contains(t, out.String(), "library-v1:OpenedX+lib2 (LIB2): 1 blocks")
	assert.Contains(t, out.String(), "lib-block-v1:OpenedX+lib2+type@html+block@intro")

	out.Reset()
	require.NoError(t, run(c, "blocks", "library-v1:OpenedX+lib2", "--json"))
	var view libstore.LibraryBlocks
	require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	assert.Len(t, view.Blocks, 1)

	assert.Error(t, run(c, "blocks"))
}
