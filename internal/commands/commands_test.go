package commands

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/erclient/pkg/erclient"
)

func newTestCommand(t *testing.T, h http.HandlerFunc) (*Command, *cli.MockUi, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ui := cli.NewMockUi()
	out := &bytes.Buffer{}
	return &Command{
		Log: zap.NewNop(),
		UI:  ui,
		NewClient: func(context.Context) (*erclient.Client, error) {
			return erclient.New(erclient.Config{BaseURL: srv.URL, Token: "static", RetryAttempts: 1}, erclient.WithLogger(zap.NewNop()))
		},
		Stdout: out,
	}, ui, out
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func TestTracks_WritesGPX(t *testing.T) {
	base, ui, out := newTestCommand(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1.0/subject/s-1/tracks", r.URL.Path)
		assert.Equal(t, "2026-01-01T00:00:00Z", r.URL.Query().Get("since"))
		writeJSON(w, `{"data":{"type":"FeatureCollection","features":[{"type":"Feature",
			"geometry":{"type":"LineString","coordinates":[[36.1,-1.2],[36.2,-1.3]]},
			"properties":{"title":"Ngozi","coordinateProperties":{"times":["2026-01-02T00:00:00Z","2026-01-02T01:00:00Z"]}}}]}}`)
	})

	cmd := &TracksCommand{Command: base}
	code := cmd.Run([]string{"-subject", "s-1", "-since", "2026-01-01"})
	require.Equal(t, 0, code, ui.ErrorWriter.String())

	assert.Contains(t, out.String(), "<gpx")
	assert.Contains(t, out.String(), `lat="-1.200000"`)
	assert.Contains(t, ui.OutputWriter.String(), "wrote 1 track(s)")
}

func TestTracks_RequiresSubject(t *testing.T) {
	base, ui, _ := newTestCommand(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected, got %s", r.URL.Path)
	})
	cmd := &TracksCommand{Command: base}
	assert.Equal(t, 1, cmd.Run(nil))
	assert.Contains(t, ui.ErrorWriter.String(), "subject flag is required")
}

func TestTracks_BadTimeFlag(t *testing.T) {
	base, ui, _ := newTestCommand(t, func(http.ResponseWriter, *http.Request) {})
	cmd := &TracksCommand{Command: base}
	assert.Equal(t, 1, cmd.Run([]string{"-subject", "s", "-since", "yesterday"}))
	assert.Contains(t, ui.ErrorWriter.String(), "error parsing flags")
}

func TestEvents_WritesCSV(t *testing.T) {
	base, ui, out := newTestCommand(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1.0/activity/events", r.URL.Path)
		assert.Equal(t, []string{"new", "active"}, r.URL.Query()["state"])
		writeJSON(w, `{"data":{"count":2,"next":null,"results":[
			{"id":"e-1","serial_number":1,"event_type":"rhino","state":"new","event_details":{"count":3}},
			{"id":"e-2","serial_number":2,"event_type":"fire","state":"active"}]}}`)
	})

	cmd := &EventsCommand{Command: base}
	require.Equal(t, 0, cmd.Run([]string{"-state", "new,active"}), ui.ErrorWriter.String())

	rows, err := csv.NewReader(strings.NewReader(out.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, "details.count", rows[0][len(rows[0])-1])
	assert.Equal(t, "e-2", rows[2][0])
}

func TestEvents_APIErrorExitsNonZero(t *testing.T) {
	base, ui, _ := newTestCommand(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		writeJSON(w, `{"status":{"code":403,"detail":"nope"}}`)
	})
	cmd := &EventsCommand{Command: base}
	assert.Equal(t, 1, cmd.Run(nil))
	assert.Contains(t, ui.ErrorWriter.String(), "fetch events")
}

func TestObservations_FormatValidation(t *testing.T) {
	base, ui, _ := newTestCommand(t, func(http.ResponseWriter, *http.Request) {})
	cmd := &ObservationsCommand{Command: base}
	assert.Equal(t, 1, cmd.Run([]string{"-subject", "s-1", "-format", "kml"}))
	assert.Contains(t, ui.ErrorWriter.String(), "format must be gpx or csv")
}

func TestObservations_CSV(t *testing.T) {
	base, ui, out := newTestCommand(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "s-1", r.URL.Query().Get("subject_id"))
		writeJSON(w, `{"data":{"next":null,"results":[
			{"id":"o-1","recorded_at":"2026-01-02T00:00:00Z","location":{"latitude":-1.5,"longitude":36.25},"source":"src"}]}}`)
	})
	cmd := &ObservationsCommand{Command: base}
	require.Equal(t, 0, cmd.Run([]string{"-subject", "s-1", "-format", "csv"}), ui.ErrorWriter.String())
	assert.Contains(t, out.String(), "o-1,2026-01-02T00:00:00Z,-1.500000,36.250000,src")
}

func TestProfiles_ListsToStdout(t *testing.T) {
	base, ui, out := newTestCommand(t, func(http.ResponseWriter, *http.Request) {})
	base.Profiles = func(context.Context) ([]string, error) { return []string{"mara", "serengeti"}, nil }

	cmd := &ProfilesCommand{Command: base}
	require.Equal(t, 0, cmd.Run(nil), ui.ErrorWriter.String())
	assert.Equal(t, "mara\nserengeti\n", out.String())
}

func TestProfiles_BackendError(t *testing.T) {
	base, ui, _ := newTestCommand(t, func(http.ResponseWriter, *http.Request) {})
	base.Profiles = func(context.Context) ([]string, error) {
		return nil, errors.New("profile discovery needs ER_SECRETS_SOURCE=aws")
	}

	cmd := &ProfilesCommand{Command: base}
	assert.Equal(t, 1, cmd.Run(nil))
	assert.Contains(t, ui.ErrorWriter.String(), "ER_SECRETS_SOURCE=aws")
}

func TestCommandContext_CancelledByInterrupt(t *testing.T) {
	ctx, stop := (&Command{}).context()
	defer stop()

	p, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	require.NoError(t, p.Signal(os.Interrupt))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by interrupt")
	}
}

func TestEvents_ClientSeesCancellableContext(t *testing.T) {
	base, ui, _ := newTestCommand(t, func(http.ResponseWriter, *http.Request) {})
	base.NewClient = func(ctx context.Context) (*erclient.Client, error) {
		assert.NotNil(t, ctx.Done(), "export context must be cancellable")
		return nil, errors.New("stop here")
	}

	cmd := &EventsCommand{Command: base}
	assert.Equal(t, 1, cmd.Run(nil))
	assert.Contains(t, ui.ErrorWriter.String(), "stop here")
}

func TestFactory_HasAllCommands(t *testing.T) {
	f := Factory(&Command{})
	for _, name := range []string{"tracks", "events", "observations", "profiles"} {
		c, err := f[name]()
		require.NoError(t, err)
		assert.NotEmpty(t, c.Synopsis())
		assert.Contains(t, c.Help(), "Usage: er-export "+name)
	}
}
