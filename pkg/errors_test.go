package dupelink

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	err := newError(ErrRead, "/data/file", "failed to open file", fs.ErrPermission)

	assert.Equal(t, "ReadError: /data/file: failed to open file: permission denied", err.Error())
	assert.Equal(t, "failed to open file: permission denied", err.Message())
	assert.ErrorIs(t, err, fs.ErrPermission)
}

func TestError_IsKind(t *testing.T) {
	var err error = newErrorf(ErrTraversal, "/x", "broken")
	wrapped := fmt.Errorf("walking: %w", err)

	assert.True(t, errors.Is(wrapped, KindError(ErrTraversal)))
	assert.False(t, errors.Is(wrapped, KindError(ErrRead)))
	assert.Equal(t, ErrTraversal, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, ErrTraversal))

	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}
