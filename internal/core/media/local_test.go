package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_Save(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "/media")
	require.NoError(t, err)

	key, err := store.Save(context.Background(), "Me At The Beach.PNG", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "profile_images/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "/media/"+key, store.URL(key))
	assert.Empty(t, store.URL(""))

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestLocalStore_SaveTwiceUsesDistinctKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/media/")
	require.NoError(t, err)

	a, err := store.Save(context.Background(), "a.jpg", "image/jpeg", strings.NewReader("1"))
	require.NoError(t, err)
	b, err := store.Save(context.Background(), "a.jpg", "image/jpeg", strings.NewReader("2"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestObjectNameDropsOddExtensions(t *testing.T) {
	name := objectName("archive.verylongextension")
	assert.NotContains(t, name, ".")
}
