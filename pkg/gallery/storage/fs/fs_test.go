package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fsstorage "github.com/artgrove/gallery/pkg/gallery/storage/fs"
)

func newTestStore(t *testing.T) (*fsstorage.Store, string) {
	t.Helper()

	dir := t.TempDir()
	store, err := fsstorage.New(fsstorage.Config{BaseDir: dir, URLPrefix: "/media"})
	require.NoError(t, err)
	return store, dir
}

func TestNew(t *testing.T) {
	t.Run("missing base directory fails", func(t *testing.T) {
		_, err := fsstorage.New(fsstorage.Config{})
		assert.Error(t, err)
	})

	t.Run("base directory is created", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "media")
		_, err := fsstorage.New(fsstorage.Config{BaseDir: dir})
		require.NoError(t, err)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestUploadAndDelete(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	ref, err := store.Upload(ctx, []byte("media payload"))
	require.NoError(t, err)
	assert.NotEmpty(t, ref.ID)
	assert.Equal(t, "/media/"+ref.ID, ref.URL)

	data, err := os.ReadFile(filepath.Join(dir, ref.ID))
	require.NoError(t, err)
	assert.Equal(t, []byte("media payload"), data)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, store.Delete(ctx, ref.ID))
	_, err = os.Stat(filepath.Join(dir, ref.ID))
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteUnknown(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.Delete(context.Background(), "no-such-object")
	assert.Error(t, err)
}

func TestDeleteStripsPathComponents(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	outside := filepath.Join(filepath.Dir(dir), "victim")
	require.NoError(t, os.WriteFile(outside, []byte("keep me"), 0o644))

	// A traversal id must not reach outside the base directory.
	err := store.Delete(ctx, "../victim")
	assert.Error(t, err)

	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestUploadCancelledContext(t *testing.T) {
	store, dir := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Upload(ctx, []byte("never stored"))
	assert.Error(t, err)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}
