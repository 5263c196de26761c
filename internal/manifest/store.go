package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound marks a manifest name with no manifest file behind it.
var ErrNotFound = errors.New("MAN_NOT_FOUND: no manifest for that name")

// Store loads manifests by name from a directory of <name>.toml files.
// Manifests are loaded fresh on every call; nothing is cached.
type Store struct {
	dir string
}

func OpenStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string { return s.dir }

// Load reads the manifest for name. Names are bare tool names, never
// paths: anything with a separator is rejected outright.
func (s *Store) Load(name string) (Manifest, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return Manifest{}, fmt.Errorf("MAN_NAME: invalid manifest name %q", name)
	}
	path := filepath.Join(s.dir, name+".toml")
	m, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Manifest{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return Manifest{}, err
	}
	if m.Meta.Name != name {
		return Manifest{}, fmt.Errorf("MAN_NAME: manifest %s declares name %q", path, m.Meta.Name)
	}
	return m, nil
}

// List loads every manifest in the store, sorted by name. A single broken
// manifest fails the listing: a store with malformed entries needs fixing,
// not skipping.
func (s *Store) List() ([]Manifest, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("MAN_STORE: %w", err)
	}
	manifests := make([]Manifest, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		m, err := Load(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	sort.Slice(manifests, func(i, j int) bool { return manifests[i].Meta.Name < manifests[j].Meta.Name })
	return manifests, nil
}
