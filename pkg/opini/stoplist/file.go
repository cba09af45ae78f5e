package stoplist

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk stoplist format.
type File struct {
	Terms []string `yaml:"terms"`
}

// LoadFile reads a YAML stoplist (`terms: [...]`) into a Set.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("stoplist: parse %s: %w", path, err)
	}

	return NewSet(f.Terms), nil
}

// SaveFile writes the set's terms as a YAML stoplist, sorted.
func SaveFile(path string, s *Set) error {
	data, err := yaml.Marshal(File{Terms: s.All()})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
