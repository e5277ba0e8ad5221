// Package preview issues transient preview references for selected files.
// A reference is a URL path that stays valid until it is revoked; it is the
// server-side counterpart of a browser object URL.
package preview

import (
	"errors"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultPrefix is the URL path under which previews are served.
const DefaultPrefix = "/api/v1/previews/"

// ErrNotFound is returned for unknown or revoked previews.
var ErrNotFound = errors.New("preview not found")

// Preview is the content behind a reference.
type Preview struct {
	Name        string
	ContentType string
	Content     []byte
}

// Store holds the previews of one widget.
type Store struct {
	prefix string

	mu    sync.RWMutex
	items map[string]Preview
}

// NewStore returns an empty Store issuing references under prefix.
func NewStore(prefix string) *Store {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{prefix: prefix, items: make(map[string]Preview)}
}

// Create registers content and returns its reference together with the
// content type sniffed from the bytes.
func (s *Store) Create(name string, content []byte) (ref, contentType string) {
	id := uuid.NewString()
	contentType = mimetype.Detect(content).String()

	s.mu.Lock()
	s.items[id] = Preview{
		Name:        name,
		ContentType: contentType,
		Content:     content,
	}
	s.mu.Unlock()

	return s.prefix + id, contentType
}

// Revoke releases a reference. Unknown references are ignored.
func (s *Store) Revoke(ref string) {
	id, ok := strings.CutPrefix(ref, s.prefix)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// RevokeAll releases every reference issued by the store.
func (s *Store) RevokeAll() {
	s.mu.Lock()
	clear(s.items)
	s.mu.Unlock()
}

// Open returns the preview registered under id.
func (s *Store) Open(id string) (Preview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.items[id]
	if !ok {
		return Preview{}, ErrNotFound
	}
	return p, nil
}

// Len reports the number of live references.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
