package libstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/library-store/pkg/libstore"
)

func TestParseContextKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind libstore.KeyKind
		wantErr  error
	}{
		{name: "library", input: "library-v1:OpenedX+lib1", wantKind: libstore.KindLibrary},
		{name: "course", input: "course-v1:OpenedX+DemoX+2024", wantKind: libstore.KindCourse},
		{name: "surrounding space", input: "  library-v1:OpenedX+lib1 ", wantKind: libstore.KindLibrary},
		{name: "no prefix", input: "OpenedX+lib1", wantErr: libstore.ErrInvalidKey},
		{name: "unknown prefix", input: "block-v1:OpenedX+lib1", wantErr: libstore.ErrInvalidKey},
		{name: "library with three parts", input: "library-v1:OpenedX+lib1+extra", wantErr: libstore.ErrInvalidKey},
		{name: "course with two parts", input: "course-v1:OpenedX+DemoX", wantErr: libstore.ErrInvalidKey},
		{name: "empty part", input: "library-v1:OpenedX+", wantErr: libstore.ErrInvalidKey},
		{name: "illegal character", input: "library-v1:Open edX+lib1", wantErr: libstore.ErrInvalidKey},
		{name: "empty", input: "", wantErr: libstore.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := libstore.ParseContextKey(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				var keyErr *libstore.KeyError
				assert.ErrorAs(t, err, &keyErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, key.Kind())
		})
	}
}

func TestContextKey_LibraryKey(t *testing.T) {
	ck, err := libstore.ParseContextKey("library-v1:OpenedX+lib1")
	require.NoError(t, err)
	lk, err := ck.LibraryKey()
	require.NoError(t, err)
	assert.Equal(t, libstore.LibraryKey{Org: "OpenedX", Library: "lib1"}, lk)
	assert.Equal(t, "library-v1:OpenedX+lib1", ck.String())

	ck, err = libstore.ParseContextKey("course-v1:OpenedX+DemoX+2024")
	require.NoError(t, err)
	_, err = ck.LibraryKey()
	assert.ErrorIs(t, err, libstore.ErrNotLibraryKey)
	assert.Equal(t, "course-v1:OpenedX+DemoX+2024", ck.String())
}

func TestParseLibraryKey(t *testing.T) {
	lk, err := libstore.ParseLibraryKey("library-v1:OpenedX+lib1")
	require.NoError(t, err)
	assert.Equal(t, "library-v1:OpenedX+lib1", lk.String())
	assert.False(t, lk.IsZero())
	assert.True(t, libstore.LibraryKey{}.IsZero())

	_, err = libstore.ParseLibraryKey("course-v1:OpenedX+DemoX+2024")
	assert.ErrorIs(t, err, libstore.ErrNotLibraryKey)
	assert.NotErrorIs(t, err, libstore.ErrInvalidKey)

	_, err = libstore.ParseLibraryKey("library-v1:broken")
	assert.ErrorIs(t, err, libstore.ErrInvalidKey)
}

func TestUsageKey(t *testing.T) {
	lk := libstore.LibraryKey{Org: "OpenedX", Library: "lib1"}
	uk := lk.MakeUsageKey("html", "b1")
	assert.Equal(t, "lib-block-v1:OpenedX+lib1+type@html+block@b1", uk.String())
	require.NoError(t, uk.Validate())

	parsed, err := libstore.ParseUsageKey(uk.String())
	require.NoError(t, err)
	assert.Equal(t, uk, parsed)

	bad := []string{
		"lib-block-v1:OpenedX+lib1+html+block@b1",
		"lib-block-v1:OpenedX+lib1+type@html+b1",
		"lib-block-v1:OpenedX+lib1+type@html",
		"library-v1:OpenedX+lib1",
		"lib-block-v1:OpenedX+lib1+type@+block@b1",
	}
	for _, s := range bad {
		_, err := libstore.ParseUsageKey(s)
		assert.ErrorIs(t, err, libstore.ErrInvalidKey, s)
	}

	assert.ErrorIs(t, lk.MakeUsageKey("html", "bad/id").Validate(), libstore.ErrInvalidKey)
}

func TestKeyKind_String(t *testing.T) {
	assert.Equal(t, "course", libstore.KindCourse.String())
	assert.Equal(t, "library", libstore.KindLibrary.String())
	assert.Equal(t, "unknown", libstore.KeyKind(0).String())
}
