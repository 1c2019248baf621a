package core

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AllSubcategories in an auto_description list matches every subcategory.
const AllSubcategories = "*"

//go:embed catalog.yaml
var defaultCatalogYAML []byte

var ErrUnknownCategory = errors.New("unknown category")

// Category is one entry of the vocabulary offered to the user.
type Category struct {
	Name            string   `yaml:"name"`
	Subcategories   []string `yaml:"subcategories"`
	FreeText        bool     `yaml:"free_text"`
	AutoDescription []string `yaml:"auto_description"`
	AutoText        string   `yaml:"auto_text"`
}

// Catalog holds the categories of each kind.
type Catalog struct {
	Expense []Category `yaml:"expense"`
	Income  []Category `yaml:"income"`
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog file, or returns the default one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that every kind has categories and that each category
// can produce a subcategory.
func (c *Catalog) Validate() error {
	var errs []string
	for _, k := range Kinds() {
		cats := c.Categories(k)
		if len(cats) == 0 {
			errs = append(errs, fmt.Sprintf("%s: no categories", k))
		}
		seen := make(map[string]bool)
		for _, cat := range cats {
			name := strings.TrimSpace(cat.Name)
			switch {
			case name == "":
				errs = append(errs, fmt.Sprintf("%s: category without name", k))
			case seen[strings.ToLower(name)]:
				errs = append(errs, fmt.Sprintf("%s: duplicate category %q", k, name))
			case len(cat.Subcategories) == 0 && !cat.FreeText:
				errs = append(errs, fmt.Sprintf("%s/%s: needs subcategories or free_text", k, name))
			}
			seen[strings.ToLower(name)] = true
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid catalog: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Catalog) Categories(k Kind) []Category {
	switch k {
	case Expense:
		return c.Expense
	case Income:
		return c.Income
	default:
		return nil
	}
}

func (c *Catalog) CategoryNames(k Kind) []string {
	cats := c.Categories(k)
	names := make([]string, len(cats))
	for i, cat := range cats {
		names[i] = cat.Name
	}
	return names
}

// Lookup finds a category by name, case-insensitively.
func (c *Catalog) Lookup(k Kind, name string) (Category, error) {
	name = strings.TrimSpace(name)
	for _, cat := range c.Categories(k) {
		if strings.EqualFold(cat.Name, name) {
			return cat, nil
		}
	}
	return Category{}, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

// MatchSubcategory returns the canonical spelling of s when it is one of the
// enumerated subcategories.
func (cat Category) MatchSubcategory(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, sub := range cat.Subcategories {
		if strings.EqualFold(sub, s) {
			return sub, true
		}
	}
	return "", false
}

// AutoDescriptionFor returns the rule text when the description prompt is
// skipped for sub.
func (cat Category) AutoDescriptionFor(sub string) (string, bool) {
	for _, rule := range cat.AutoDescription {
		if rule == AllSubcategories || strings.EqualFold(rule, sub) {
			if cat.AutoText != "" {
				return cat.AutoText, true
			}
			return cat.Name + " - " + sub, true
		}
	}
	return "", false
}
