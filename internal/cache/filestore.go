package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/vk/pkgresolve/internal/address"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the document FileStore keeps under the work directory.
const DefaultFileName = "cache.yaml"

const fileVersion = 1

type document struct {
	Version int              `yaml:"version"`
	Entries map[string]Entry `yaml:"entries"`
}

// FileStore keeps every entry in one YAML document. The document is read
// once when the store is opened and rewritten in full on every Put.
type FileStore struct {
	mu      sync.Mutex
	path    string
	entries map[string]Entry
}

// OpenFileStore opens (or starts) the store at <workDir>/cache.yaml.
func OpenFileStore(workDir string) (*FileStore, error) {
	root := strings.TrimSpace(workDir)
	if root == "" {
		return nil, fmt.Errorf("work directory is required")
	}
	s := &FileStore{
		path:    filepath.Join(root, DefaultFileName),
		entries: map[string]Entry{},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the location of the YAML document.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(_ context.Context, addr address.Address) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[addr.Spec()]
	return e, ok, nil
}

func (s *FileStore) Put(ctx context.Context, addr address.Address, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[addr.Spec()] = e
	return s.persistLocked()
}

func (s *FileStore) Delete(ctx context.Context, addr address.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[addr.Spec()]; !ok {
		return nil
	}
	delete(s.entries, addr.Spec())
	return s.persistLocked()
}

// Len returns the number of stored entries.
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Keys returns the stored address specs, sorted.
func (s *FileStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *FileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading cache %s: %w", s.path, err)
	}
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parsing cache %s: %w", s.path, err)
	}
	if doc.Version != 0 && doc.Version != fileVersion {
		return fmt.Errorf("cache %s has unsupported version %d", s.path, doc.Version)
	}
	if doc.Entries != nil {
		s.entries = doc.Entries
	}
	return nil
}

func (s *FileStore) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	raw, err := yaml.Marshal(document{Version: fileVersion, Entries: s.entries})
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), DefaultFileName+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
