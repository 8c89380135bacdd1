package formrt

import (
	"net/url"
	"sort"
	"strings"
)

// ReservedParams are consumed by the embedding layer and never reach recall.
var ReservedParams = map[string]bool{
	"mode":          true,
	"theme":         true,
	"lang":          true,
	"language":      true,
	"hide_progress": true,
	"progress_bar":  true,
	"embed":         true,
	"transparent":   true,
	"autofocus":     true,
	"origin":        true,
}

// StripReservedParams returns a copy of params without reserved names.
func StripReservedParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for name, value := range params {
		if ReservedParams[strings.ToLower(name)] {
			continue
		}
		out[name] = value
	}
	return out
}

// ParamsFromQuery merges static embed params with a query string. Query
// values win; only the first value of a repeated name is used.
func ParamsFromQuery(static map[string]string, query url.Values) map[string]string {
	out := make(map[string]string, len(static)+len(query))
	for name, value := range static {
		out[name] = value
	}
	for name, values := range query {
		if len(values) > 0 {
			out[name] = values[0]
		}
	}
	return StripReservedParams(out)
}

// SortFields returns a copy of fields ordered by OrderIndex. Ties keep their input order.
func SortFields(fields []Field) []Field {
	sorted := make([]Field, len(fields))
	copy(sorted, fields)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrderIndex < sorted[j].OrderIndex
	})
	return sorted
}
