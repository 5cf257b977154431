package fixture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotExist is returned by a Store that has no document for a name.
var ErrNotExist = errors.New("fixture does not exist")

// Store is the fixture-storage collaborator: it maps a name to raw bytes.
type Store interface {
	Load(name string) ([]byte, error)
}

// DirStore reads fixtures from a directory. A name without extension is
// tried as .json, .yaml and .yml in that order.
type DirStore struct {
	Dir string
}

var extensions = []string{"", ".json", ".yaml", ".yml"}

func (s DirStore) Load(name string) ([]byte, error) {
	_, b, err := s.open(name)
	return b, err
}

// Path returns the file that backs name, used for extension-based parsing.
func (s DirStore) Path(name string) (string, error) {
	p, _, err := s.open(name)
	return p, err
}

func (s DirStore) open(name string) (string, []byte, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || clean == ".." || filepath.IsAbs(clean) ||
		strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", nil, fmt.Errorf("%w: %s", ErrNotExist, name)
	}
	for _, ext := range extensions {
		if ext != "" && filepath.Ext(clean) != "" {
			break
		}
		p := filepath.Join(s.Dir, clean+ext)
		b, err := os.ReadFile(p)
		if err == nil {
			return p, b, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("read %s: %w", p, err)
		}
	}
	return "", nil, fmt.Errorf("%w: %s", ErrNotExist, name)
}

// MapStore is an in-memory Store keyed by fixture name.
type MapStore map[string][]byte

func (m MapStore) Load(name string) ([]byte, error) {
	b, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, name)
	}
	return b, nil
}
