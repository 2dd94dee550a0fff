package script

import (
	"errors"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ErrBlobNotFound is returned for unknown or revoked blob URLs.
var ErrBlobNotFound = errors.New("blob not found")

const blobScheme = "blob:hoist/"

// BlobStore is the in-memory object-URL registry wrapped script code is
// installed into. Entries live until explicitly revoked; the pipeline
// revokes anything it decides not to use so stale fetches leave nothing
// outstanding.
type BlobStore struct {
	mu       sync.RWMutex
	blobs    map[string]blob
	observer func(outstanding int)
}

type blob struct {
	content     string
	contentType string
}

// NewBlobStore creates an empty store.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]blob)}
}

// WithObserver registers a callback receiving the number of outstanding
// blobs after every create and revoke (feeds the monitoring gauge).
func (s *BlobStore) WithObserver(fn func(outstanding int)) *BlobStore {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
	return s
}

// Create registers content under a fresh blob URL and returns the URL.
// The declared content type wins; when empty it is sniffed.
func (s *BlobStore) Create(content, contentType string) string {
	if contentType == "" {
		contentType = mimetype.Detect([]byte(content)).String()
	}
	url := blobScheme + uuid.New().String()

	s.mu.Lock()
	s.blobs[url] = blob{content: content, contentType: contentType}
	observer, outstanding := s.observer, len(s.blobs)
	s.mu.Unlock()

	if observer != nil {
		observer(outstanding)
	}
	return url
}

// Get returns the content and content type stored under the URL.
func (s *BlobStore) Get(url string) (string, string, error) {
	s.mu.RLock()
	b, ok := s.blobs[url]
	s.mu.RUnlock()
	if !ok {
		return "", "", ErrBlobNotFound
	}
	return b.content, b.contentType, nil
}

// Revoke frees the resource behind the URL. Revoking an unknown URL is a
// no-op.
func (s *BlobStore) Revoke(url string) {
	s.mu.Lock()
	delete(s.blobs, url)
	observer, outstanding := s.observer, len(s.blobs)
	s.mu.Unlock()

	if observer != nil {
		observer(outstanding)
	}
}

// Len returns the number of outstanding blobs.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// IsBlobURL reports whether the URL points into a blob store.
func IsBlobURL(url string) bool {
	return strings.HasPrefix(url, blobScheme)
}

// BlobURLForID rebuilds the blob URL for a bare resource identifier, the
// inverse of the HTTP path mapping the resource host uses.
func BlobURLForID(id string) string {
	return blobScheme + id
}
