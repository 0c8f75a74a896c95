package syncer

import (
	"context"
	"iter"
	"time"

	"github.com/Checker-Finance/erclient/pkg/erclient"
)

// EventSource yields updated events in chunks.
type EventSource interface {
	UpdatedEvents(ctx context.Context, since time.Time, states []string, chunk int) iter.Seq2[[]erclient.Event, error]
}

// ClientSource reads events through an erclient.Client, oldest update first.
type ClientSource struct {
	Client *erclient.Client
}

func (s ClientSource) UpdatedEvents(ctx context.Context, since time.Time, states []string, chunk int) iter.Seq2[[]erclient.Event, error] {
	params := erclient.Params{
		"sort_by":         "updated_at",
		"include_details": true,
		"include_notes":   false,
	}
	if !since.IsZero() {
		params["updated_since"] = since
	}
	if len(states) > 0 {
		params["state"] = states
	}
	return s.Client.Events(params, erclient.PageOptions{PageSize: chunk}).Batches(ctx, chunk)
}
var _ EventSource = ClientSource{}
