package notion

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ClientProperty is the select property every row is scoped by
const ClientProperty = "Client"

// Filter is a Notion filter object
type Filter map[string]interface{}

// ClientFilter limits a query to one client's rows
func ClientFilter(name string) Filter {
	return Filter{
		"property": ClientProperty,
		"select":   map[string]interface{}{"equals": name},
	}
}

// And combines filters, dropping nil ones
func And(filters ...Filter) Filter {
	var out []Filter
	for _, f := range filters {
		if f != nil {
			out = append(out, f)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return Filter{"and": out}
}

// BuildFilter turns a front-end filter triple into a Notion filter.
// It returns nil for anything that would touch the Client property.
func BuildFilter(property, condition, value string) Filter {

	if property == "" || condition == "" || strings.EqualFold(property, ClientProperty) {
		return nil
	}

	f := Filter{"property": property}
	lower := strings.ToLower(property)

	switch condition {
	case "equals":
		switch {
		case strings.Contains(lower, "date"):
			f["date"] = map[string]interface{}{"equals": value}
		case strings.Contains(lower, "number"), strings.Contains(lower, "price"):
			f["number"] = map[string]interface{}{"equals": parseNumber(value)}
		default:
			f["rich_text"] = map[string]interface{}{"equals": value}
		}
	case "checkbox":
		f["checkbox"] = map[string]interface{}{"equals": true}
	case "not_checkbox":
		f["checkbox"] = map[string]interface{}{"equals": false}
	case "is_empty":
		f["rich_text"] = map[string]interface{}{"is_empty": true}
	case "is_not_empty":
		f["rich_text"] = map[string]interface{}{"is_not_empty": true}
	default:
		f["rich_text"] = map[string]interface{}{"contains": value}
	}

	return f
}

// SortBy returns a one element sort, or nil when no property is given
func SortBy(property, direction string) []Sort {
	if property == "" {
		return nil
	}
	if direction != "descending" {
		direction = "ascending"
	}
	return []Sort{{Property: property, Direction: direction}}
}

// leadingNumber matches the decimal number a value starts with
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// parseNumber reads the leading decimal of value, or 0 when there is none.
// NaN and infinities never reach the filter: they cannot be encoded as JSON.
func parseNumber(value string) float64 {
	n, err := strconv.ParseFloat(leadingNumber.FindString(strings.TrimSpace(value)), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}
