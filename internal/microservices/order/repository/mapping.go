package repository

import (
	"fmt"
	"strconv"
	"time"

	"restaurant-system/internal/domain"
	"restaurant-system/internal/store"
)

// orderFromRow maps a snake_case orders row (with embedded order_items, if
// selected) to the domain shape.
func orderFromRow(row store.Record) domain.Order {
	o := domain.Order{
		ID:           asString(row["id"]),
		TableID:      asInt(row["table_id"]),
		Status:       domain.OrderStatus(asString(row["status"])),
		SpecialNotes: asString(row["special_notes"]),
		CreatedAt:    asTime(row["created_at"]),
		Total:        asFloat(row["total"]),
		Items:        []domain.OrderItem{},
	}
	o.IsParcel = o.TableID == domain.ParcelTableID

	if children, ok := row[itemsTable].([]store.Record); ok {
		for _, ch := range children {
			o.Items = append(o.Items, itemFromRow(ch))
		}
	}
	return o
}

func itemFromRow(row store.Record) domain.OrderItem {
	return domain.OrderItem{
		ID:             asString(row["id"]),
		Name:           asString(row["name"]),
		Quantity:       asInt(row["quantity"]),
		Price:          asFloat(row["price"]),
		Image:          asString(row["image_url"]),
		Customizations: asStrings(row["customizations"]),
	}
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func asInt(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case float64:
		return int(x)
	case string:
		n, _ := strconv.Atoi(x)
		return n
	}
	return 0
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		f, _ := strconv.ParseFloat(x, 64)
		return f
	}
	return 0
}

func asTime(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		t, _ := time.Parse(time.RFC3339Nano, x)
		return t
	}
	return time.Time{}
}

func asStrings(v any) []string {
	switch x := v.(type) {
	case []string:
		if len(x) == 0 {
			return nil
		}
		out := make([]string, len(x))
		copy(out, x)
		return out
	case []any:
		var out []string
		for _, e := range x {
			out = append(out, asString(e))
		}
		return out
	}
	return nil
}
