package menu

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"restaurant-system/internal/domain"
)

//go:embed menu.yaml
var defaultMenu []byte

// AllCategories matches every item in Filter.
const AllCategories = "All"

type Item struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Price       float64  `yaml:"price" json:"price"`
	Image       string   `yaml:"image" json:"image"`
	Category    string   `yaml:"category" json:"category"`
	Dietary     []string `yaml:"dietary" json:"dietary,omitempty"`
	Rating      float64  `yaml:"rating" json:"rating,omitempty"`
}

// OrderItem converts a menu entry into a line with the given quantity.
func (it Item) OrderItem(qty int) domain.OrderItem {
	return domain.OrderItem{
		Name:        it.Name,
		Quantity:    qty,
		Price:       it.Price,
		Image:       it.Image,
		Description: it.Description,
		Category:    it.Category,
		Dietary:     it.Dietary,
	}
}

type Catalog struct {
	Categories []string `yaml:"categories" json:"categories"`
	Items      []Item   `yaml:"items" json:"items"`
	QuickAdd   []Item   `yaml:"quick_add" json:"quick_add"`

	byID map[string]Item
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) { return Parse(defaultMenu) }

func Parse(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse menu: %w", err)
	}
	c.byID = make(map[string]Item, len(c.Items)+len(c.QuickAdd))
	for _, it := range append(append([]Item{}, c.Items...), c.QuickAdd...) {
		if it.ID == "" {
			return nil, fmt.Errorf("menu item %q has no id", it.Name)
		}
		if _, dup := c.byID[it.ID]; dup {
			return nil, fmt.Errorf("duplicate menu id %q", it.ID)
		}
		c.byID[it.ID] = it
	}
	return &c, nil
}

func (c *Catalog) Lookup(id string) (Item, bool) {
	it, ok := c.byID[id]
	return it, ok
}

// Filter returns the menu items whose name, description, category or a
// dietary tag contains query (case-insensitive), restricted to category
// unless it is empty or All. Quick-add items are not part of the result.
func (c *Catalog) Filter(query, category string) []Item {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []Item{}
	for _, it := range c.Items {
		if category != "" && category != AllCategories && it.Category != category {
			continue
		}
		if q != "" && !matches(it, q) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func matches(it Item, q string) bool {
	if strings.Contains(strings.ToLower(it.Name), q) ||
		strings.Contains(strings.ToLower(it.Description), q) ||
		strings.Contains(strings.ToLower(it.Category), q) {
		return true
	}
	for _, tag := range it.Dietary {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
