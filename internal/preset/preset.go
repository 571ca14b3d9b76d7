// Package preset stores named groups of filename prefixes. A preset is
// applied to a selection as a group toggle; the store only keeps them.
package preset

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"betra/internal/errors"
	"betra/internal/log"

	"gopkg.in/yaml.v3"
)

// Preset is a named set of filename prefixes.
type Preset struct {
	Name     string
	Prefixes []string
}

// Parse builds a preset from a display name and a comma-separated prefix
// list. Blank prefixes are dropped.
func Parse(name, csv string) (Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Preset{}, errors.NewPresetError("preset name is required", name, errors.InvalidPreset, nil)
	}

	var prefixes []string
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	if len(prefixes) == 0 {
		return Preset{}, errors.NewPresetError("preset needs at least one prefix", name, errors.InvalidPreset, nil)
	}
	return Preset{Name: name, Prefixes: prefixes}, nil
}

// Matches reports whether filename starts with any prefix of p.
func (p Preset) Matches(filename string) bool {
	for _, prefix := range p.Prefixes {
		if strings.HasPrefix(filename, prefix) {
			return true
		}
	}
	return false
}

// IsZero reports whether p is an unused slot.
func (p Preset) IsZero() bool {
	return p.Name == "" && len(p.Prefixes) == 0
}

// String returns the comma-separated prefix list.
func (p Preset) String() string {
	return strings.Join(p.Prefixes, ", ")
}

// Defaults returns the built-in presets.
func Defaults() []Preset {
	return []Preset{
		{Name: "Oberleitung", Prefixes: []string{"2.3.1", "2.3.2", "2.3.3", "2.3.4", "2.3.5", "2.3.6", "4.3.0", "5.3.20"}},
		{Name: "Baugleis", Prefixes: []string{"3.0.", "3.1.", "3.2.", "5.1.11", "5.3.14", "5.3.15", "5.3.16", "5.3.17", "5.3.18", "5.3.21"}},
		{Name: "BÜ", Prefixes: []string{"5.1.22", "5.1.23", "5.1.24", "5.1.25", "5.1.26", "5.1.27", "5.1.28", "5.3.11"}},
		{Name: "Lfst (Pkt. 3)", Prefixes: []string{"3.1.", "3.2."}},
		{Name: "VorGWB", Prefixes: []string{"5.1.20", "5.1.21"}},
		{Name: "UntArb", Prefixes: []string{"5.3.4", "5.3.6"}},
	}
}

// Store is a fixed number of preset slots persisted as YAML.
type Store struct {
	path  string
	slots []Preset
}

type fileSlot struct {
	Name     string `yaml:"name"`
	Prefixes string `yaml:"prefixes"`
}

type storeFile struct {
	Presets []fileSlot `yaml:"presets"`
}

// New returns a store with slots empty slots backed by path.
func New(path string, slots int) *Store {
	return &Store{path: path, slots: make([]Preset, slots)}
}

// Load reads the store at path. A missing file yields the built-in presets.
func Load(path string, slots int) (*Store, error) {
	s := New(path, slots)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			copy(s.slots, Defaults())
			return s, nil
		}
		return nil, errors.NewFileError("failed to read preset store", path, errors.FileAccessDenied, err)
	}

	var f storeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.NewConfigError("failed to parse preset store", path, errors.InvalidConfig, err)
	}

	if len(f.Presets) > slots {
		log.LogWithFields(log.F("path", path), log.F("stored", len(f.Presets)), log.F("slots", slots)).
			Warn("preset store holds more presets than slots, extra presets ignored")
		f.Presets = f.Presets[:slots]
	}
	for i, fs := range f.Presets {
		if fs.Name == "" && strings.TrimSpace(fs.Prefixes) == "" {
			continue
		}
		p, err := Parse(fs.Name, fs.Prefixes)
		if err != nil {
			return nil, errors.Wrapf(err, "preset slot %d", i+1)
		}
		s.slots[i] = p
	}
	return s, nil
}

// Save writes the store to its path, creating parent directories.
func (s *Store) Save() error {
	f := storeFile{Presets: make([]fileSlot, len(s.slots))}
	for i, p := range s.slots {
		f.Presets[i] = fileSlot{Name: p.Name, Prefixes: p.String()}
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal presets: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.NewFileError("failed to create preset directory", filepath.Dir(s.path), errors.FileAccessDenied, err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return errors.NewFileError("failed to write preset store", s.path, errors.FileAccessDenied, err)
	}
	return nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Slots returns the number of slots.
func (s *Store) Slots() int {
	return len(s.slots)
}

// Set stores p in the 1-based slot. A zero preset clears the slot.
func (s *Store) Set(slot int, p Preset) error {
	if slot < 1 || slot > len(s.slots) {
		return errors.NewPresetError(fmt.Sprintf("slot must be between 1 and %d", len(s.slots)), p.Name, errors.InvalidPreset, nil)
	}
	if !p.IsZero() {
		for i, other := range s.slots {
			if i != slot-1 && other.Name == p.Name {
				return errors.NewPresetError("preset name already used in slot "+strconv.Itoa(i+1), p.Name, errors.InvalidPreset, nil)
			}
		}
	}
	s.slots[slot-1] = p
	return nil
}

// Get returns the preset in the 1-based slot.
func (s *Store) Get(slot int) (Preset, bool) {
	if slot < 1 || slot > len(s.slots) || s.slots[slot-1].IsZero() {
		return Preset{}, false
	}
	return s.slots[slot-1], true
}

// Lookup finds a preset by name or slot number.
func (s *Store) Lookup(key string) (Preset, error) {
	if n, err := strconv.Atoi(key); err == nil {
		if p, ok := s.Get(n); ok {
			return p, nil
		}
	}
	for _, p := range s.slots {
		if !p.IsZero() && strings.EqualFold(p.Name, key) {
			return p, nil
		}
	}
	return Preset{}, errors.NewPresetError("preset not found", key, errors.PresetNotFound, nil)
}

// All returns every slot in order, unused slots included.
func (s *Store) All() []Preset {
	out := make([]Preset, len(s.slots))
	copy(out, s.slots)
	return out
}
