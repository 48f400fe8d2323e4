package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key, err := store.Save("tenant-a/job-1.csv", []byte("Day,Start,End\n"))
	require.NoError(t, err)
	require.Equal(t, "tenant-a/job-1.csv", key)

	f, err := store.Open(key)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "Day,Start,End\n", string(data))
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../outside.csv", "/etc/passwd", "a/../../b.csv", "."} {
		_, err := store.Save(key, []byte("x"))
		require.Error(t, err, "key %q should be rejected", key)
	}
}

func TestLocalStorageRemoveMissingFile(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Remove("tenant-a/gone.pdf"))
}

func TestLocalStorageSweep(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("tenant-a/stale.csv", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("tenant-a/fresh.csv", []byte("new"))
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "tenant-a", "stale.csv"), past, past))

	removed, err := store.Sweep(time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = store.Open("tenant-a/stale.csv")
	require.Error(t, err)

	f, err := store.Open("tenant-a/fresh.csv")
	require.NoError(t, err)
	require.NoError(t, f.Close())
}
