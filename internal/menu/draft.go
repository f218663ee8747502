package menu

import (
	"sort"
	"strings"

	"restaurant-system/internal/domain"
)

// Draft is the order being composed at a terminal. Lines are keyed by menu
// id plus customizations and kept in the order they were first added.
type Draft struct {
	keys  []string
	lines map[string]domain.OrderItem
}

func NewDraft() *Draft { return &Draft{lines: map[string]domain.OrderItem{}} }

// LineKey identifies a draft line. An uncustomized line is keyed by the bare
// menu id; customizations are compared as a set.
func LineKey(id string, customizations []string) string {
	if len(customizations) == 0 {
		return id
	}
	cs := append([]string(nil), customizations...)
	sort.Strings(cs)
	return id + "|" + strings.Join(cs, "|")
}

// Add puts one more of it into the draft.
func (d *Draft) Add(it Item) { d.AddN(it, 1, nil) }

// AddN merges qty of it into the line with the same customizations, or
// starts a new line.
func (d *Draft) AddN(it Item, qty int, customizations []string) {
	if qty <= 0 {
		return
	}
	key := LineKey(it.ID, customizations)
	line, ok := d.lines[key]
	if !ok {
		d.keys = append(d.keys, key)
		line = it.OrderItem(0)
		if len(customizations) > 0 {
			line.Customizations = append([]string(nil), customizations...)
		}
	}
	line.Quantity += qty
	d.lines[key] = line
}

// Remove takes one away from the line under key and drops it at zero.
func (d *Draft) Remove(key string) {
	line, ok := d.lines[key]
	if !ok {
		return
	}
	if line.Quantity > 1 {
		line.Quantity--
		d.lines[key] = line
		return
	}
	d.Delete(key)
}

func (d *Draft) Delete(key string) {
	if _, ok := d.lines[key]; !ok {
		return
	}
	delete(d.lines, key)
	for i, v := range d.keys {
		if v == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

func (d *Draft) Items() []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(d.keys))
	for _, k := range d.keys {
		out = append(out, d.lines[k])
	}
	return out
}

func (d *Draft) Total() float64 { return domain.ItemsTotal(d.Items()) }
func (d *Draft) Count() int     { return domain.ItemsCount(d.Items()) }
func (d *Draft) Empty() bool    { return len(d.keys) == 0 }
