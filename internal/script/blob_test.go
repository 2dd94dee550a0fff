package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStoreRoundTrip(t *testing.T) {
	store := NewBlobStore()

	url := store.Create("console.log(1)", "application/javascript")
	require.True(t, IsBlobURL(url))
	assert.Equal(t, 1, store.Len())

	content, contentType, err := store.Get(url)
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", content)
	assert.Equal(t, "application/javascript", contentType)

	store.Revoke(url)
	assert.Equal(t, 0, store.Len())

	_, _, err = store.Get(url)
	assert.ErrorIs(t, err, ErrBlobNotFound)

	// revoking again is a no-op
	store.Revoke(url)
}

func TestBlobStoreSniffsContentType(t *testing.T) {
	store := NewBlobStore()
	url := store.Create("plain text content", "")

	_, contentType, err := store.Get(url)
	require.NoError(t, err)
	assert.NotEmpty(t, contentType)
}

func TestBlobStoreObserver(t *testing.T) {
	var seen []int
	store := NewBlobStore().WithObserver(func(outstanding int) {
		seen = append(seen, outstanding)
	})

	a := store.Create("a", "text/plain")
	store.Create("b", "text/plain")
	store.Revoke(a)

	assert.Equal(t, []int{1, 2, 1}, seen)
}

func TestBlobURLForID(t *testing.T) {
	store := NewBlobStore()
	url := store.Create("x", "text/plain")

	id := url[len("blob:hoist/"):]
	assert.Equal(t, url, BlobURLForID(id))
}
