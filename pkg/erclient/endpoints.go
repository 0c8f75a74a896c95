package erclient

import "net/http"

var eventFilters = []string{
	"state", "event_type", "event_category", "since", "until",
	"updated_since", "updated_until", "bbox", "include_notes",
	"include_related_events", "include_files", "include_details",
	"include_updates", "sort_by", "is_collection",
}

var eventDetailFlags = []string{
	"include_details", "include_updates", "include_notes",
	"include_related_events", "include_files",
}

var (
	epEvents          = Endpoint{Name: "events.list", Method: http.MethodGet, Path: "activity/events", Params: eventFilters, Retry: true}
	epEvent           = Endpoint{Name: "events.get", Method: http.MethodGet, Path: "activity/event/%s", Params: eventDetailFlags, Retry: true}
	epEventCreate     = Endpoint{Name: "events.create", Method: http.MethodPost, Path: "activity/events"}
	epEventPatch      = Endpoint{Name: "events.patch", Method: http.MethodPatch, Path: "activity/event/%s"}
	epEventDelete     = Endpoint{Name: "events.delete", Method: http.MethodDelete, Path: "activity/event/%s"}
	epEventNote       = Endpoint{Name: "events.note", Method: http.MethodPost, Path: "activity/event/%s/notes"}
	epEventFile       = Endpoint{Name: "events.file", Method: http.MethodPost, Path: "activity/event/%s/files/"}
	epEventTypes      = Endpoint{Name: "eventtypes.list", Method: http.MethodGet, Path: "activity/events/eventtypes", Params: []string{"include_inactive", "include_schema"}, Retry: true}
	epEventCategories = Endpoint{Name: "eventcategories.list", Method: http.MethodGet, Path: "activity/events/categories", Params: []string{"include_inactive"}, Retry: true}
	epEventTypeSchema = Endpoint{Name: "eventtypes.schema", Method: http.MethodGet, Path: "activity/events/schema/eventtype/%s", Retry: true}

	epSubjects       = Endpoint{Name: "subjects.list", Method: http.MethodGet, Path: "subjects", Params: []string{"subject_group", "include_inactive", "bbox", "name", "updated_since", "subject_type"}, Retry: true}
	epSubject        = Endpoint{Name: "subjects.get", Method: http.MethodGet, Path: "subject/%s", Retry: true}
	epSubjectPatch   = Endpoint{Name: "subjects.patch", Method: http.MethodPatch, Path: "subject/%s"}
	epSubjectSources = Endpoint{Name: "subjects.sources", Method: http.MethodGet, Path: "subject/%s/sources", Retry: true}
	epSubjectGroups  = Endpoint{Name: "subjectgroups.list", Method: http.MethodGet, Path: "subjectgroups", Params: []string{"include_inactive", "include_hidden", "flat", "group_name"}, Retry: true}
	epSubjectTracks  = Endpoint{Name: "subjects.tracks", Method: http.MethodGet, Path: "subject/%s/tracks", Params: []string{"since", "until"}, Retry: true}

	epSources             = Endpoint{Name: "sources.list", Method: http.MethodGet, Path: "sources", Params: []string{"manufacturer_id", "provider_key"}, Retry: true}
	epSource              = Endpoint{Name: "sources.get", Method: http.MethodGet, Path: "source/%s", Retry: true}
	epSourceCreate        = Endpoint{Name: "sources.create", Method: http.MethodPost, Path: "sources"}
	epSubjectSourceCreate = Endpoint{Name: "subjects.sources.create", Method: http.MethodPost, Path: "subject/%s/sources"}

	epObservations      = Endpoint{Name: "observations.list", Method: http.MethodGet, Path: "observations", Params: []string{"source_id", "subject_id", "since", "until", "filter", "include_details", "created_after"}, Retry: true}
	epObservationCreate = Endpoint{Name: "observations.create", Method: http.MethodPost, Path: "observations", Retry: true}
	epSensorStatus      = Endpoint{Name: "sensors.status", Method: http.MethodPost, Path: "sensors/%s/%s/status", Retry: true}

	epAlertRules      = Endpoint{Name: "alerts.list", Method: http.MethodGet, Path: "activity/alerts", Retry: true}
	epAlertRuleCreate = Endpoint{Name: "alerts.create", Method: http.MethodPost, Path: "activity/alerts"}

	epPatrols        = Endpoint{Name: "patrols.list", Method: http.MethodGet, Path: "activity/patrols", Params: []string{"status", "filter"}, Retry: true}
	epPatrol         = Endpoint{Name: "patrols.get", Method: http.MethodGet, Path: "activity/patrols/%s", Retry: true}
	epPatrolCreate   = Endpoint{Name: "patrols.create", Method: http.MethodPost, Path: "activity/patrols"}
	epPatrolPatch    = Endpoint{Name: "patrols.patch", Method: http.MethodPatch, Path: "activity/patrols/%s"}
	epPatrolTypes    = Endpoint{Name: "patroltypes.list", Method: http.MethodGet, Path: "activity/patrols/types", Retry: true}
	epPatrolSegments = Endpoint{Name: "patrols.segments", Method: http.MethodGet, Path: "activity/patrols/segments", Retry: true}

	epMessages      = Endpoint{Name: "messages.list", Method: http.MethodGet, Path: "messages", Params: []string{"subject_id", "source_id", "since", "until", "read"}, Retry: true}
	epMessageCreate = Endpoint{Name: "messages.create", Method: http.MethodPost, Path: "messages"}

	epMe = Endpoint{Name: "users.me", Method: http.MethodGet, Path: "user/me", Retry: true}
)
