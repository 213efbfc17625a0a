package record

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrubRemovesReservedKeys(t *testing.T) {
	in := map[string]any{
		"name":      "Acme",
		"id":        "forged",
		"createdAt": "1999-01-01T00:00:00Z",
		"createdBy": "mallory@example.com",
		"updatedAt": "1999-01-01T00:00:00Z",
		"updatedBy": "mallory@example.com",
	}
	out := Scrub(in)
	assert.Equal(t, Record{"name": "Acme"}, out)
	// the input map is untouched
	assert.Equal(t, "forged", in["id"])
}

func TestStorePutGetRoundTrip(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put("acc-1", Record{"name": "Acme", "status": "active"}))

	got, err := s.Get("acc-1")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", got["id"])
	assert.Equal(t, "Acme", got["name"])
	assert.Equal(t, "active", got["status"])
}

func TestStoreGetUnknownIsNotFound(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStoreRejectsUnsafeIDs(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"", ".", "..", "../escape", "a/b", ".hidden", "a b"} {
		if err := s.Put(id, Record{}); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("Put(%q) = %v, want ErrInvalidID", id, err)
		}
		if _, err := s.Get(id); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("Get(%q) = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestStoreListSortedAndSkipsGarbage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Put("b", Record{"name": "second"}))
	require.NoError(t, s.Put("a", Record{"name": "first"}))

	// files the store must ignore
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	recs, err := s.List()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0]["id"])
	assert.Equal(t, "b", recs[1]["id"])
}

func TestStoreListEmptyDir(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	recs, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, recs)
}
