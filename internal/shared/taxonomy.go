package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var defaultTaxonomy []byte

type Taxonomy struct {
	Categories []string `yaml:"categories" json:"categories"`
	TagOptions []string `yaml:"tag_options" json:"tag_options"`
}

// LoadTaxonomy reads path, or the built-in taxonomy when path is empty.
func LoadTaxonomy(path string) (Taxonomy, error) {
	b := defaultTaxonomy
	if path != "" {
		var err error
		if b, err = os.ReadFile(path); err != nil {
			return Taxonomy{}, fmt.Errorf("read taxonomy: %w", err)
		}
	}
	return ParseTaxonomy(b)
}

func ParseTaxonomy(b []byte) (Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(b, &t); err != nil {
		return Taxonomy{}, fmt.Errorf("parse taxonomy: %w", err)
	}
	t.Categories = dedupe(t.Categories, false)
	t.TagOptions = dedupe(t.TagOptions, true)
	if len(t.Categories) == 0 {
		return Taxonomy{}, fmt.Errorf("taxonomy has no categories")
	}
	return t, nil
}

// dedupe trims entries and drops blanks and repeats, keeping first-seen order.
func dedupe(in []string, lower bool) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if lower {
			s = strings.ToLower(s)
		}
		k := strings.ToLower(s)
		if s == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
