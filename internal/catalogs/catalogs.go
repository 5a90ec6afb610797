// Package catalogs holds the command preset catalog offered when building menus.
package catalogs

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"craftkit.ai/internal/menu"
)

//go:embed presets.yaml
var builtinPresets []byte

// AllCategories selects every preset in ByCategory.
const AllCategories = "all"

type Preset struct {
	ID       string `yaml:"id" json:"id"`
	Label    string `yaml:"label" json:"label"`
	Command  string `yaml:"command" json:"command"`
	Category string `yaml:"category" json:"category"`
}

// Item converts the preset into a menu entry.
func (p Preset) Item() menu.Item {
	return menu.Item{Label: p.Label, Command: p.Command}
}

type Catalog struct {
	Presets []Preset          `json:"presets"`
	ByID    map[string]Preset `json:"-"`

	// Categories in first-seen order.
	Categories []string `json:"categories"`
	Digest     string   `json:"digest"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Builtin returns the embedded catalog.
func Builtin() (*Catalog, error) {
	return parse("presets.yaml", builtinPresets)
}

// Load reads a catalog file, or the embedded catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Builtin()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(path, raw)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func parse(name string, raw []byte) (*Catalog, error) {
	var f presetFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	c := &Catalog{
		Presets: f.Presets,
		ByID:    make(map[string]Preset, len(f.Presets)),
		Digest:  sha256Hex(raw),
	}
	seenCat := map[string]bool{}
	for i, p := range f.Presets {
		if p.ID == "" {
			return nil, fmt.Errorf("%s: preset %d: empty id", name, i)
		}
		if p.Command == "" {
			return nil, fmt.Errorf("%s: preset %s: empty command", name, p.ID)
		}
		if _, dup := c.ByID[p.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate preset id %s", name, p.ID)
		}
		if p.Category == AllCategories {
			return nil, fmt.Errorf("%s: preset %s: category %q is reserved", name, p.ID, AllCategories)
		}
		c.ByID[p.ID] = p
		if !seenCat[p.Category] {
			seenCat[p.Category] = true
			c.Categories = append(c.Categories, p.Category)
		}
	}
	return c, nil
}

// ByCategory filters presets, keeping catalog order. "" and AllCategories select everything.
func (c *Catalog) ByCategory(category string) []Preset {
	if category == "" || category == AllCategories {
		return append([]Preset(nil), c.Presets...)
	}
	var out []Preset
	for _, p := range c.Presets {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Items resolves preset ids to menu items in the given order.
func (c *Catalog) Items(ids ...string) ([]menu.Item, error) {
	out := make([]menu.Item, 0, len(ids))
	var missing []string
	for _, id := range ids {
		p, ok := c.ByID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, p.Item())
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("unknown presets: %v", missing)
	}
	return out, nil
}
