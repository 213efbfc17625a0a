package record

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrInvalidID = errors.New("invalid record id")
)

// Record is a keyed JSON document. Mutation is wholesale: callers replace
// the stored file, last write wins.
type Record map[string]any

// Reserved keys are server-owned; caller-supplied values for them are
// discarded before any merge so a body field can never overwrite a stamp.
var reservedKeys = []string{"id", "createdAt", "createdBy", "updatedAt", "updatedBy"}

// Scrub returns a copy of the caller's fields with reserved keys removed.
func Scrub(in map[string]any) Record {
	out := make(Record, len(in))
	for k, v := range in {
		out[k] = v
	}
	for _, k := range reservedKeys {
		delete(out, k)
	}
	return out
}

// Store persists one JSON file per record id under a type-specific
// directory; the id is the filename stem.
type Store struct {
	mu  sync.RWMutex
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func validID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	for _, ch := range id {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '-' || ch == '_' || ch == '.':
		default:
			return false
		}
	}
	return !strings.HasPrefix(id, ".")
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) Get(id string) (Record, error) {
	if !validID(id) {
		return nil, ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	rec["id"] = id
	return rec, nil
}

func (s *Store) Put(id string, rec Record) error {
	if !validID(id) {
		return ErrInvalidID
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.WriteFile(s.path(id), b, 0o644)
}

// List reads every record in the directory, skipping files that are not
// valid JSON objects. Order is stable: sorted by id.
func (s *Store) List() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, err
	}

	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		b, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(b, &rec); err != nil || rec == nil {
			continue
		}
		rec["id"] = id
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := out[i]["id"].(string)
		b, _ := out[j]["id"].(string)
		return a < b
	})
	return out, nil
}

// Ping reports whether the backing directory is reachable.
func (s *Store) Ping() error {
	_, err := os.Stat(s.dir)
	return err
}
