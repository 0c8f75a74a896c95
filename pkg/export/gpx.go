// Package export converts EarthRanger tracks, observations and events to GPX and CSV.
package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/Checker-Finance/erclient/pkg/erclient"
)

const creator = "erclient"

type gpxDoc struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr"`
	XMLNS   string   `xml:"xmlns,attr"`
	Tracks  []gpxTrk `xml:"trk"`
}

type gpxTrk struct {
	Name     string      `xml:"name,omitempty"`
	Type     string      `xml:"type,omitempty"`
	Segments []gpxTrkSeg `xml:"trkseg"`
}

type gpxTrkSeg struct {
	Points []gpxPt `xml:"trkpt"`
}

type gpxPt struct {
	Lat  string  `xml:"lat,attr"`
	Lon  string  `xml:"lon,attr"`
	Time *string `xml:"time,omitempty"`
}

// WriteTracksGPX writes one <trk> per feature with a single <trkseg>.
// Malformed coordinates are skipped and reported together in the returned error.
func WriteTracksGPX(w io.Writer, track *erclient.Track) error {
	if track == nil {
		return fmt.Errorf("export: nil track")
	}
	var errs *multierror.Error
	doc := newDoc()
	for fi, f := range track.Features {
		seg := gpxTrkSeg{}
		times := f.Properties.CoordinateProperties.Times
		for i, c := range f.Geometry.Coordinates {
			if len(c) < 2 {
				errs = multierror.Append(errs, fmt.Errorf("feature %d point %d: want [lon, lat], got %v", fi, i, c))
				continue
			}
			pt := gpxPt{Lat: formatCoord(c[1]), Lon: formatCoord(c[0])}
			if i < len(times) {
				pt.Time = timeString(times[i])
			}
			seg.Points = append(seg.Points, pt)
		}
		doc.Tracks = append(doc.Tracks, gpxTrk{
			Name:     f.Properties.Title,
			Type:     f.Properties.SubjectSubtype,
			Segments: []gpxTrkSeg{seg},
		})
	}
	if err := encode(w, doc); err != nil {
		return err
	}
	return errs.ErrorOrNil()
}

// WriteObservationsGPX writes observations as one track ordered by recorded_at.
func WriteObservationsGPX(w io.Writer, name string, obs []erclient.Observation) error {
	sorted := append([]erclient.Observation(nil), obs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RecordedAt.Before(sorted[j].RecordedAt) })

	seg := gpxTrkSeg{}
	for _, o := range sorted {
		seg.Points = append(seg.Points, gpxPt{
			Lat:  formatCoord(o.Location.Latitude),
			Lon:  formatCoord(o.Location.Longitude),
			Time: timeString(o.RecordedAt),
		})
	}
	doc := newDoc()
	doc.Tracks = []gpxTrk{{Name: name, Segments: []gpxTrkSeg{seg}}}
	return encode(w, doc)
}

func newDoc() gpxDoc {
	return gpxDoc{Version: "1.1", Creator: creator, XMLNS: "http://www.topografix.com/GPX/1/1"}
}

func encode(w io.Writer, doc gpxDoc) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("export: encode gpx: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func timeString(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
