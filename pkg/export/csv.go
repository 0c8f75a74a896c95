package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/erclient/pkg/erclient"
)

var observationHeader = []string{
	"id", "recorded_at", "latitude", "longitude", "source", "manufacturer_id", "subject_name",
}

// WriteObservationsCSV writes one row per observation in input order.
func WriteObservationsCSV(w io.Writer, obs []erclient.Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(observationHeader); err != nil {
		return err
	}
	for _, o := range obs {
		rec := []string{
			o.ID,
			formatTime(o.RecordedAt),
			formatCoord(o.Location.Latitude),
			formatCoord(o.Location.Longitude),
			o.Source,
			o.ManufacturerID,
			o.SubjectName,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var eventHeader = []string{
	"id", "serial_number", "event_type", "title", "state", "priority",
	"time", "updated_at", "latitude", "longitude",
}

// WriteEventsCSV writes fixed event columns followed by every event_details key
// seen across events, flattened with dots and sorted ("details.count", "details.species.name").
func WriteEventsCSV(w io.Writer, events []erclient.Event) error {
	flat := make([]map[string]string, len(events))
	keys := map[string]struct{}{}
	for i, ev := range events {
		flat[i] = map[string]string{}
		flatten("details", ev.EventDetails, flat[i])
		for k := range flat[i] {
			keys[k] = struct{}{}
		}
	}
	detailCols := make([]string, 0, len(keys))
	for k := range keys {
		detailCols = append(detailCols, k)
	}
	sort.Strings(detailCols)

	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string{}, eventHeader...), detailCols...)); err != nil {
		return err
	}
	for i, ev := range events {
		var lat, lon string
		if ev.Location != nil {
			lat, lon = formatCoord(ev.Location.Latitude), formatCoord(ev.Location.Longitude)
		}
		rec := []string{
			ev.ID,
			strconv.FormatInt(ev.SerialNumber, 10),
			ev.EventType,
			ev.Title,
			ev.State,
			strconv.Itoa(ev.Priority),
			formatTimePtr(ev.Time),
			formatTimePtr(ev.UpdatedAt),
			lat,
			lon,
		}
		for _, k := range detailCols {
			rec = append(rec, flat[i][k])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func flatten(prefix string, v any, out map[string]string) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			flatten(prefix+"."+k, child, out)
		}
	case nil:
		if prefix != "details" {
			out[prefix] = ""
		}
	case string:
		out[prefix] = t
	case float64:
		out[prefix] = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		out[prefix] = strconv.FormatBool(t)
	case []any:
		b, _ := json.Marshal(t)
		out[prefix] = string(b)
	default:
		out[prefix] = fmt.Sprint(t)
	}
}

// formatCoord renders degrees at a fixed 6 decimal places.
func formatCoord(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(6)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
