package blob

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreSaveAndDelete(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	ref, err := store.Save(KindPost, strings.NewReader("audio-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "posts/"), "ref %q should live under its kind", ref)
	assert.Equal(t, "/uploads/"+ref, store.URL(ref))

	abs := filepath.Join(store.baseDir, filepath.FromSlash(ref))
	data, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))

	require.NoError(t, store.Delete(ref))
	_, err = os.Stat(abs)
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStoreDeleteMissingIsNoop(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	assert.NoError(t, store.Delete("posts/never-existed.webm"))
}

func TestLocalStoreDeleteRejectsEscapes(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	assert.Error(t, store.Delete("../etc/passwd"))
	assert.Error(t, store.Delete("/etc/passwd"))
}

func TestLocalStoreURLEmptyRef(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	assert.Empty(t, store.URL(""))
}
