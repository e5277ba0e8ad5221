package preview

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallest valid PNG signature plus IHDR chunk header
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestCreateAndOpen(t *testing.T) {
	s := NewStore(DefaultPrefix)

	ref, contentType := s.Create("cat.png", pngHeader)
	require.True(t, strings.HasPrefix(ref, DefaultPrefix))
	assert.Equal(t, "image/png", contentType)

	id := strings.TrimPrefix(ref, DefaultPrefix)
	p, err := s.Open(id)
	require.NoError(t, err)
	assert.Equal(t, "cat.png", p.Name)
	assert.Equal(t, "image/png", p.ContentType)
	assert.Equal(t, pngHeader, p.Content)
	assert.Equal(t, 1, s.Len())
}

func TestCreateIssuesDistinctReferences(t *testing.T) {
	s := NewStore(DefaultPrefix)

	a, _ := s.Create("same.txt", []byte("a"))
	b, _ := s.Create("same.txt", []byte("a"))

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, s.Len())
}

func TestRevoke(t *testing.T) {
	s := NewStore("/previews")
	ref, _ := s.Create("notes.txt", []byte("plain text"))
	require.True(t, strings.HasPrefix(ref, "/previews/"))

	s.Revoke(ref)

	_, err := s.Open(strings.TrimPrefix(ref, "/previews/"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, s.Len())

	// revoking twice, or something foreign, is a no-op
	s.Revoke(ref)
	s.Revoke("/elsewhere/123")
	assert.Zero(t, s.Len())
}

func TestRevokeAll(t *testing.T) {
	s := NewStore(DefaultPrefix)
	for i := 0; i < 3; i++ {
		s.Create("f", []byte{byte(i)})
	}

	s.RevokeAll()

	assert.Zero(t, s.Len())
}

func TestOpenUnknown(t *testing.T) {
	_, err := NewStore(DefaultPrefix).Open("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
