package syncer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/erclient/pkg/erclient"
)

// FieldMap maps a destination column to a dotted path in the event's JSON,
// e.g. "species" -> "event_details.species".
type FieldMap map[string]string

// ParseFieldMap reads "column=path" pairs.
func ParseFieldMap(pairs []string) (FieldMap, error) {
	fm := FieldMap{}
	for _, p := range pairs {
		col, path, ok := strings.Cut(p, "=")
		col, path = strings.TrimSpace(col), strings.TrimSpace(path)
		if !ok || col == "" || path == "" {
			return nil, fmt.Errorf("field map entry %q: want column=path", p)
		}
		if isBaseColumn(col) {
			return nil, fmt.Errorf("field map entry %q: %s is a built-in column", p, col)
		}
		fm[col] = path
	}
	return fm, nil
}

var baseColumns = []string{
	"id", "serial_number", "event_type", "title", "state", "priority",
	"latitude", "longitude", "event_time", "updated_at", "details",
}

func isBaseColumn(c string) bool {
	for _, b := range baseColumns {
		if b == c {
			return true
		}
	}
	return false
}

// Columns returns the base columns followed by the mapped ones in sorted order.
func (fm FieldMap) Columns() []string {
	extra := make([]string, 0, len(fm))
	for c := range fm {
		extra = append(extra, c)
	}
	sort.Strings(extra)
	return append(append([]string{}, baseColumns...), extra...)
}

// Row flattens ev into values matching Columns().
func (fm FieldMap) Row(ev erclient.Event) ([]any, error) {
	details := "{}"
	if len(ev.EventDetails) > 0 {
		b, err := json.Marshal(ev.EventDetails)
		if err != nil {
			return nil, fmt.Errorf("event %s details: %w", ev.ID, err)
		}
		details = string(b)
	}

	var lat, lon any
	if ev.Location != nil {
		lat = coord(ev.Location.Latitude)
		lon = coord(ev.Location.Longitude)
	}

	row := []any{
		ev.ID, ev.SerialNumber, ev.EventType, ev.Title, ev.State, ev.Priority,
		lat, lon, timeOrNil(ev.Time), timeOrNil(ev.UpdatedAt), details,
	}
	if len(fm) == 0 {
		return row, nil
	}

	var doc map[string]any
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", ev.ID, err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("event %s: %w", ev.ID, err)
	}
	for _, col := range fm.Columns()[len(baseColumns):] {
		row = append(row, lookup(doc, fm[col]))
	}
	return row, nil
}

// coord fixes a WGS84 ordinate at 6 decimal places (~0.1 m).
func coord(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f).Round(6)
}

func timeOrNil(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC()
}

// lookup walks a dotted path; nested objects and arrays come back as JSON text.
func lookup(doc map[string]any, path string) any {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	switch v := cur.(type) {
	case map[string]any, []any:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return v
	}
}
