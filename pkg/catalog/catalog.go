// Package catalog loads and validates the dork catalog.
//
// The catalog is an all-or-nothing document: one malformed entry rejects the
// whole load so that category counts downstream stay trustworthy.
package catalog

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Roska-x/Ninjutsu/pkg/errors"
)

// Risk is the declared severity of a dork entry.
type Risk string

const (
	RiskHigh   Risk = "high"
	RiskMedium Risk = "medium"
	RiskLow    Risk = "low"
	RiskInfo   Risk = "info"
)

// Valid reports whether the severity is one of the recognized values.
func (r Risk) Valid() bool {
	switch r {
	case RiskHigh, RiskMedium, RiskLow, RiskInfo:
		return true
	}
	return false
}

// DorkEntry is one catalogued dork definition. Entries are immutable once
// loaded; identity is ID.
type DorkEntry struct {
	ID       string   `yaml:"id"`
	Category string   `yaml:"category"`
	Title    string   `yaml:"title"`
	Query    string   `yaml:"query"`
	Risk     Risk     `yaml:"risk"`
	Tags     []string `yaml:"tags"`
}

// HasTag reports whether the entry carries the given tag.
func (d DorkEntry) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

type catalogDocument struct {
	Dorks []DorkEntry `yaml:"dorks"`
}

// Catalog is a validated, read-only set of dork entries.
type Catalog struct {
	entries []DorkEntry
	byID    map[string]DorkEntry
}

// Load reads and validates a catalog document from a file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates a raw catalog document. Any schema violation fails the
// whole parse with a ValidationError.
func Parse(data []byte) (*Catalog, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewValidationError("", "", err.Error())
	}
	if len(doc.Dorks) == 0 {
		return nil, errors.NewValidationError("", "dorks", "catalog contains no entries")
	}

	byID := make(map[string]DorkEntry, len(doc.Dorks))
	for _, d := range doc.Dorks {
		if err := validateEntry(d); err != nil {
			return nil, err
		}
		if _, dup := byID[d.ID]; dup {
			return nil, errors.NewValidationError(d.ID, "id", "duplicate id")
		}
		byID[d.ID] = d
	}

	return &Catalog{entries: doc.Dorks, byID: byID}, nil
}

func validateEntry(d DorkEntry) error {
	ref := d.ID
	if ref == "" {
		ref = d.Title
	}
	switch {
	case d.ID == "":
		return errors.NewValidationError(ref, "id", "missing required field")
	case d.Category == "":
		return errors.NewValidationError(ref, "category", "missing required field")
	case d.Title == "":
		return errors.NewValidationError(ref, "title", "missing required field")
	case d.Query == "":
		return errors.NewValidationError(ref, "query", "missing required field")
	case d.Risk == "":
		return errors.NewValidationError(ref, "risk", "missing required field")
	case !d.Risk.Valid():
		return errors.NewValidationError(ref, "risk", fmt.Sprintf("unrecognized severity %q", d.Risk))
	}
	return nil
}

// Entries returns all entries in document order.
func (c *Catalog) Entries() []DorkEntry {
	out := make([]DorkEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries in the catalog.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Categories returns the sorted set of category names present in the catalog.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range c.entries {
		if !seen[d.Category] {
			seen[d.Category] = true
			out = append(out, d.Category)
		}
	}
	sort.Strings(out)
	return out
}

// ByCategory returns all entries that belong to the given category.
func (c *Catalog) ByCategory(category string) []DorkEntry {
	var out []DorkEntry
	for _, d := range c.entries {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// ByTag returns all entries carrying the given tag.
func (c *Catalog) ByTag(tag string) []DorkEntry {
	var out []DorkEntry
	for _, d := range c.entries {
		if d.HasTag(tag) {
			out = append(out, d)
		}
	}
	return out
}

// ByID returns a single entry by its unique id.
func (c *Catalog) ByID(id string) (DorkEntry, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Search returns entries whose title, query or tags contain the term,
// case-insensitively.
func (c *Catalog) Search(term string) []DorkEntry {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	var out []DorkEntry
	for _, d := range c.entries {
		haystack := strings.ToLower(d.Title + " " + d.Query + " " + strings.Join(d.Tags, " "))
		if strings.Contains(haystack, term) {
			out = append(out, d)
		}
	}
	return out
}

var placeholderPattern = regexp.MustCompile(`\{[a-zA-Z_][a-zA-Z0-9_]*\}`)

// Expand substitutes {name} placeholders in a query template. Placeholders
// without a value expand to the empty string rather than failing, so a
// template stays usable with partial inputs.
func Expand(template string, placeholders map[string]string) string {
	expanded := placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		return placeholders[name]
	})

	// Collapse whitespace left behind by empty substitutions.
	return strings.Join(strings.Fields(expanded), " ")
}
