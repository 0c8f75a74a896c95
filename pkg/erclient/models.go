package erclient

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Location is a WGS84 point.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BBox filters by bounding box; it encodes as west,south,east,north.
type BBox struct {
	West, South, East, North float64
}

func (b BBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.West, b.South, b.East, b.North)
}

type Note struct {
	ID        string     `json:"id,omitempty"`
	Text      string     `json:"text"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type FileRef struct {
	ID        string     `json:"id,omitempty"`
	Filename  string     `json:"filename,omitempty"`
	URL       string     `json:"url,omitempty"`
	Comment   string     `json:"comment,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Event is an activity report.
type Event struct {
	ID           string          `json:"id,omitempty"`
	SerialNumber int64           `json:"serial_number,omitempty"`
	EventType    string          `json:"event_type,omitempty"`
	Title        string          `json:"title,omitempty"`
	Priority     int             `json:"priority,omitempty"`
	State        string          `json:"state,omitempty"`
	Location     *Location       `json:"location,omitempty"`
	Time         *time.Time      `json:"time,omitempty"`
	CreatedAt    *time.Time      `json:"created_at,omitempty"`
	UpdatedAt    *time.Time      `json:"updated_at,omitempty"`
	EventDetails map[string]any  `json:"event_details,omitempty"`
	Notes        []Note          `json:"notes,omitempty"`
	Files        []FileRef       `json:"files,omitempty"`
	ReportedBy   json.RawMessage `json:"reported_by,omitempty"`
	IsCollection bool            `json:"is_collection,omitempty"`
}

type EventCategory struct {
	ID       string `json:"id,omitempty"`
	Value    string `json:"value"`
	Display  string `json:"display"`
	IsActive bool   `json:"is_active"`
}

type EventType struct {
	ID       string         `json:"id,omitempty"`
	Value    string         `json:"value"`
	Display  string         `json:"display"`
	Category *EventCategory `json:"category,omitempty"`
	IsActive bool           `json:"is_active"`
	Ordernum int            `json:"ordernum,omitempty"`
}

// Subject is a tracked entity (animal, vehicle, ranger).
type Subject struct {
	ID               string          `json:"id,omitempty"`
	Name             string          `json:"name,omitempty"`
	SubjectType      string          `json:"subject_type,omitempty"`
	SubjectSubtype   string          `json:"subject_subtype,omitempty"`
	IsActive         *bool           `json:"is_active,omitempty"`
	LastPosition     json.RawMessage `json:"last_position,omitempty"`
	LastPositionDate *time.Time      `json:"last_position_date,omitempty"`
	AdditionalData   map[string]any  `json:"additional,omitempty"`
	UpdatedAt        *time.Time      `json:"updated_at,omitempty"`
}

type SubjectGroup struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Subjects  []Subject      `json:"subjects,omitempty"`
	Subgroups []SubjectGroup `json:"subgroups,omitempty"`
}

// Source is a device or feed producing observations.
type Source struct {
	ID             string         `json:"id,omitempty"`
	SourceType     string         `json:"source_type,omitempty"`
	ManufacturerID string         `json:"manufacturer_id,omitempty"`
	Model          string         `json:"model_name,omitempty"`
	Provider       string         `json:"provider,omitempty"`
	AdditionalData map[string]any `json:"additional,omitempty"`
}

// SubjectSource links a source to a subject over a time range.
type SubjectSource struct {
	ID             string          `json:"id,omitempty"`
	Source         string          `json:"source"`
	AssignedRange  json.RawMessage `json:"assigned_range,omitempty"`
	AdditionalData map[string]any  `json:"additional,omitempty"`
}

// Observation is one fix reported by a source.
type Observation struct {
	ID             string         `json:"id,omitempty"`
	Location       Location       `json:"location"`
	RecordedAt     time.Time      `json:"recorded_at"`
	Source         string         `json:"source,omitempty"`
	ManufacturerID string         `json:"manufacturer_id,omitempty"`
	SubjectName    string         `json:"subject_name,omitempty"`
	SubjectType    string         `json:"subject_type,omitempty"`
	AdditionalData map[string]any `json:"additional,omitempty"`
	Exclusion      *int           `json:"exclusion_flags,omitempty"`
}

// Track is a subject's path as a GeoJSON FeatureCollection of LineStrings.
type Track struct {
	Type     string         `json:"type"`
	Features []TrackFeature `json:"features"`
}

type TrackFeature struct {
	Type       string          `json:"type"`
	Geometry   LineString      `json:"geometry"`
	Properties TrackProperties `json:"properties"`
}

// LineString coordinates are [longitude, latitude] pairs.
type LineString struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

type TrackProperties struct {
	ID                   string `json:"id,omitempty"`
	Title                string `json:"title,omitempty"`
	SubjectType          string `json:"subject_type,omitempty"`
	SubjectSubtype       string `json:"subject_subtype,omitempty"`
	CoordinateProperties struct {
		Times []time.Time `json:"times"`
	} `json:"coordinateProperties"`
}

type PatrolSegment struct {
	ID         string          `json:"id,omitempty"`
	PatrolType string          `json:"patrol_type,omitempty"`
	Leader     json.RawMessage `json:"leader,omitempty"`
	TimeRange  *TimeRange      `json:"time_range,omitempty"`
}

type TimeRange struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

type Patrol struct {
	ID             string          `json:"id,omitempty"`
	SerialNumber   int64           `json:"serial_number,omitempty"`
	Title          string          `json:"title,omitempty"`
	State          string          `json:"state,omitempty"`
	Priority       int             `json:"priority,omitempty"`
	Objective      string          `json:"objective,omitempty"`
	PatrolSegments []PatrolSegment `json:"patrol_segments,omitempty"`
	Notes          []Note          `json:"notes,omitempty"`
	Files          []FileRef       `json:"files,omitempty"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
}

type PatrolType struct {
	ID       string `json:"id,omitempty"`
	Value    string `json:"value"`
	Display  string `json:"display"`
	IsActive bool   `json:"is_active"`
}

type Message struct {
	ID             string          `json:"id,omitempty"`
	MessageType    string          `json:"message_type,omitempty"`
	Text           string          `json:"text"`
	Sender         json.RawMessage `json:"sender,omitempty"`
	Receiver       json.RawMessage `json:"receiver,omitempty"`
	DeviceLocation *Location       `json:"device_location,omitempty"`
	MessageTime    *time.Time      `json:"message_time,omitempty"`
	Read           bool            `json:"read,omitempty"`
	AdditionalData map[string]any  `json:"additional,omitempty"`
}

type AlertRule struct {
	ID          string          `json:"id,omitempty"`
	Title       string          `json:"title"`
	IsActive    bool            `json:"is_active"`
	ReportTypes []string        `json:"reportTypes,omitempty"`
	Conditions  json.RawMessage `json:"conditions,omitempty"`
	Schedule    json.RawMessage `json:"schedule,omitempty"`
}

type User struct {
	ID          string          `json:"id"`
	Username    string          `json:"username"`
	FirstName   string          `json:"first_name,omitempty"`
	LastName    string          `json:"last_name,omitempty"`
	Email       string          `json:"email,omitempty"`
	IsSuperuser bool            `json:"is_superuser,omitempty"`
	Permissions json.RawMessage `json:"permissions,omitempty"`
}
