package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overrideFile is the YAML shape for catalog overrides. Entries replace the
// built-in profile with the same identifier; identifiers outside the
// enumerated sets are rejected so a typo cannot silently add a profile.
type overrideFile struct {
	Dialects []DialectProfile `yaml:"dialects"`
	Personas []PersonaProfile `yaml:"personas"`
}

// Load returns a catalog with the built-in profiles, optionally overridden
// from the YAML file at path. An empty path or a missing file yields the
// built-in catalog unchanged.
func Load(path string) (*Catalog, error) {
	c := New()
	if path == "" {
		return c, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog overrides: %w", err)
	}

	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog overrides: %w", err)
	}

	for _, d := range f.Dialects {
		if _, ok := c.dialects[d.ID]; !ok {
			return nil, fmt.Errorf("unknown dialect in overrides: %q", d.ID)
		}
		c.dialects[d.ID] = d
	}
	for _, p := range f.Personas {
		if _, ok := c.personas[p.ID]; !ok {
			return nil, fmt.Errorf("unknown persona in overrides: %q", p.ID)
		}
		c.personas[p.ID] = p
	}

	return c, nil
}
