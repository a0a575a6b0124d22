package fs

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCloser struct {
	bytes.Buffer
	closed bool
}

func (f *failingCloser) Close() error {
	f.closed = true
	return errors.New("disk full")
}

func TestCopyAndClose_ReturnsCloseError(t *testing.T) {
	file := &failingCloser{}

	err := copyAndClose(file, strings.NewReader("<p>x</p>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.True(t, file.closed)
	assert.Equal(t, "<p>x</p>", file.String())
}
