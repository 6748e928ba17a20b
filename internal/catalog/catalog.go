// Package catalog holds the survey definitions that seed public/db.json.
//
// The default catalog is embedded at build time and decoded once per process.
// An alternative file with the same schema can be loaded with FromFile.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

var (
	ErrEmptyCatalog   = errors.New("catalog has no surveys")
	ErrMissingID      = errors.New("survey id is required")
	ErrDuplicateID    = errors.New("duplicate survey id")
	ErrMalformedUUID  = errors.New("malformed uuid survey id")
	ErrNegativePayout = errors.New("payout must not be negative")
	ErrNoItems        = errors.New("survey has no items")
)

// Catalog models catalog.yaml.
type Catalog struct {
	Surveys []Definition `yaml:"surveys" json:"surveys"`
}

// Definition is one survey as declared, before a generation run stamps it.
type Definition struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Payout      int    `yaml:"payout" json:"payout"`
	Currency    string `yaml:"currency" json:"currency"`
	Premium     bool   `yaml:"premium" json:"premium"`
	Status      string `yaml:"status" json:"status"`
	Items       []Item `yaml:"items" json:"items"`
}

type Item struct {
	Prompt  string   `yaml:"prompt" json:"prompt"`
	Options []string `yaml:"options" json:"options"`
}

const (
	KindUUID = "uuid"
	KindSlug = "slug"
)

var loadEmbedded = sync.OnceValues(func() (*Catalog, error) {
	c, err := FromYAML(embedded)
	if err != nil {
		return nil, fmt.Errorf("embedded catalog: %w", err)
	}
	return c, nil
})

// Default returns a copy of the embedded catalog.
func Default() (*Catalog, error) {
	c, err := loadEmbedded()
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// Load reads the catalog at path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	return FromFile(path)
}

// FromFile reads YAML catalog from the given path.
func FromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("catalog %s not found", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates a catalog from raw YAML bytes. Unknown keys
// are rejected.
func FromYAML(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("invalid catalog yaml: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the shape of the catalog. Status values and option counts
// are not enforced.
func (c *Catalog) Validate() error {
	if len(c.Surveys) == 0 {
		return ErrEmptyCatalog
	}
	seen := make(map[string]int, len(c.Surveys))
	for i, s := range c.Surveys {
		if s.ID == "" {
			return fmt.Errorf("survey #%d: %w", i+1, ErrMissingID)
		}
		if prev, ok := seen[s.ID]; ok {
			return fmt.Errorf("survey #%d %q (first declared at #%d): %w", i+1, s.ID, prev, ErrDuplicateID)
		}
		seen[s.ID] = i + 1
		if hasUUIDShape(s.ID) {
			if _, err := uuid.Parse(s.ID); err != nil {
				return fmt.Errorf("survey %q: %w", s.ID, ErrMalformedUUID)
			}
		}
		if s.Payout < 0 {
			return fmt.Errorf("survey %q: %w", s.ID, ErrNegativePayout)
		}
		if len(s.Items) == 0 {
			return fmt.Errorf("survey %q: %w", s.ID, ErrNoItems)
		}
	}
	return nil
}

// Warnings lists items offering fewer than two options.
func (c *Catalog) Warnings() []string {
	var out []string
	for _, s := range c.Surveys {
		for i, it := range s.Items {
			if len(it.Options) < 2 {
				out = append(out, fmt.Sprintf("survey %s item %d offers %d option(s)", s.ID, i+1, len(it.Options)))
			}
		}
	}
	return out
}

// Clone returns a deep copy so callers can never mutate the shared catalog.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{Surveys: make([]Definition, len(c.Surveys))}
	for i, s := range c.Surveys {
		items := make([]Item, len(s.Items))
		for j, it := range s.Items {
			opts := make([]string, len(it.Options))
			copy(opts, it.Options)
			items[j] = Item{Prompt: it.Prompt, Options: opts}
		}
		s.Items = items
		out.Surveys[i] = s
	}
	return out
}

// Kind reports whether id is a UUID or a human-readable slug.
func Kind(id string) string {
	if hasUUIDShape(id) {
		if _, err := uuid.Parse(id); err == nil {
			return KindUUID
		}
	}
	return KindSlug
}

// hasUUIDShape matches the canonical 8-4-4-4-12 layout without checking hex.
func hasUUIDShape(id string) bool {
	if len(id) != 36 {
		return false
	}
	for i := 0; i < len(id); i++ {
		dash := i == 8 || i == 13 || i == 18 || i == 23
		if dash != (id[i] == '-') {
			return false
		}
	}
	return true
}
