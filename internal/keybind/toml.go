package keybind

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// presetFile is the on-disk shape of a keybinding preset:
//
//	[bindings]
//	swap = ["x", "Tab"]
//	sync_now = "s"
type presetFile struct {
	Bindings map[string]any `toml:"bindings"`
}

// ParseTOML reads a preset document into normalized overrides.
func ParseTOML(data []byte) (map[Action][]string, error) {
	var p presetFile
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse keybinding preset: %w", err)
	}
	return Normalize(p.Bindings), nil
}

// LoadTOML reads a preset file from disk.
func LoadTOML(path string) (map[Action][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keybinding preset: %w", err)
	}
	return ParseTOML(data)
}
