package local_fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS_PutAndDelete(t *testing.T) {
	dir := t.TempDir()
	client, err := NewClient(&Config{SavePath: dir, CustomPath: "archive"})
	require.NoError(t, err)

	key, err := client.Put(context.Background(), "room-1/20240101.json", []byte(`{"a":1}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "archive/room-1/20240101.json", key)

	data, err := os.ReadFile(filepath.Join(dir, "archive", "room-1", "20240101.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	require.NoError(t, client.Delete(context.Background(), "room-1/20240101.json"))
	_, err = os.Stat(filepath.Join(dir, "archive", "room-1", "20240101.json"))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	assert.NoError(t, client.Delete(context.Background(), "room-1/20240101.json"))
}

func TestLocalFS_RequiresSavePath(t *testing.T) {
	_, err := NewClient(&Config{})
	assert.Error(t, err)
}

func TestLocalFS_CancelledContext(t *testing.T) {
	client, err := NewClient(&Config{SavePath: t.TempDir()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Put(ctx, "x.json", []byte("{}"), "application/json")
	assert.ErrorIs(t, err, context.Canceled)
}
