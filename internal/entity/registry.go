package entity

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Descriptor declares how one entity type binds to the data API: its
// view/edit relation pair, the view-only columns to strip before writes, and
// the defaults used when an inline table adds a row.
type Descriptor struct {
	Name      string         `yaml:"name"`
	ViewTable string         `yaml:"view_table"`
	EditTable string         `yaml:"edit_table"`
	StripKeys []string       `yaml:"strip_keys"`
	Defaults  map[string]any `yaml:"defaults"`
	// Geometry marks entities whose records carry a geom column.
	Geometry bool `yaml:"geometry"`
	// AdminOnly lists fields shown only to the admin role. Display gate
	// only; the data API enforces real authorization.
	AdminOnly []string `yaml:"admin_only"`
	// KeyColumn overrides uuid for entities addressed by a natural key.
	KeyColumn string `yaml:"key_column"`
}

type Registry struct {
	byName map[string]Descriptor
	order  []string
}

type registryFile struct {
	Entities []Descriptor `yaml:"entities"`
}

// Load reads the entity declarations from a YAML file.
func Load(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open entity registry: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) (*Registry, error) {
	var file registryFile
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode entity registry: %w", err)
	}
	if len(file.Entities) == 0 {
		return nil, fmt.Errorf("entity registry declares no entities")
	}

	reg := &Registry{byName: make(map[string]Descriptor, len(file.Entities))}
	for _, d := range file.Entities {
		if d.Name == "" {
			return nil, fmt.Errorf("entity with empty name")
		}
		if _, dup := reg.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate entity %q", d.Name)
		}
		if d.ViewTable == "" {
			d.ViewTable = "view_" + d.Name
		}
		if d.EditTable == "" {
			d.EditTable = "edit_" + d.Name
		}
		if d.KeyColumn == "" {
			d.KeyColumn = "uuid"
		}
		reg.byName[d.Name] = d
		reg.order = append(reg.order, d.Name)
	}
	return reg, nil
}

func (r *Registry) Get(name string) (Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// All returns descriptors in declaration order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}
