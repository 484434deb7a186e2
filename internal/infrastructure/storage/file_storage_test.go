package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalFileStorage_SaveReadDelete(t *testing.T) {
	base := t.TempDir()
	s := NewLocalFileStorage(base, zap.NewNop())
	ctx := context.Background()

	key := "drafts/42/1001_receipt.pdf"
	require.NoError(t, s.Save(ctx, key, []byte("%PDF-1.7")))
	assert.True(t, s.Exists(ctx, key))
	assert.FileExists(t, filepath.Join(base, "drafts", "42", "1001_receipt.pdf"))

	content, err := s.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7"), content)

	// overwrite replaces content
	require.NoError(t, s.Save(ctx, key, []byte("v2")))
	content, err = s.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), content)

	require.NoError(t, s.Delete(ctx, key))
	assert.False(t, s.Exists(ctx, key))
	require.NoError(t, s.Delete(ctx, key))

	_, err = s.Read(ctx, key)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLocalFileStorage_NoTempFilesLeft(t *testing.T) {
	base := t.TempDir()
	s := NewLocalFileStorage(base, zap.NewNop())

	require.NoError(t, s.Save(context.Background(), "a/b.txt", []byte("x")))

	entries, err := os.ReadDir(filepath.Join(base, "a"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.txt", entries[0].Name())
}

func TestLocalFileStorage_RejectsEscapingKeys(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx := context.Background()

	for _, key := range []string{"../outside.txt", "drafts/../../x", "", "."} {
		err := s.Save(ctx, key, []byte("x"))
		assert.Error(t, err, "key %q", key)
		assert.False(t, s.Exists(ctx, key))
	}

	err := s.Save(ctx, "../outside.txt", []byte("x"))
	assert.True(t, errors.Is(err, ErrPathEscapes))
}

func TestLocalFileStorage_CancelledContext(t *testing.T) {
	s := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Save(ctx, "a.txt", []byte("x")), context.Canceled)
	_, err := s.Read(ctx, "a.txt")
	assert.ErrorIs(t, err, context.Canceled)
}
