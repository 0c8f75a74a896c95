package erclient

import (
	"context"

	"github.com/goccy/go-json"
)

func (c *Client) Sources(params Params, opts PageOptions) *Pager[Source] {
	return list[Source](c, epSources, params, opts)
}

func (c *Client) GetSource(ctx context.Context, id string) (*Source, error) {
	return do[*Source](ctx, c, c.request(epSource, nil, id))
}

func (c *Client) PostSource(ctx context.Context, src Source) (*Source, error) {
	req := c.request(epSourceCreate, nil)
	req.JSON = src
	return do[*Source](ctx, c, req)
}

// PostSubjectSource assigns a source to a subject.
func (c *Client) PostSubjectSource(ctx context.Context, subjectID string, link SubjectSource) (*SubjectSource, error) {
	req := c.request(epSubjectSourceCreate, nil, subjectID)
	req.JSON = link
	return do[*SubjectSource](ctx, c, req)
}

// Observations lists observations filtered by source_id, subject_id, since, until, ...
func (c *Client) Observations(params Params, opts PageOptions) *Pager[Observation] {
	return list[Observation](c, epObservations, params, opts)
}

// PostObservation records one observation. The server answers 409 for a
// duplicate; callers that treat duplicates as success check errors.Is(err, ErrConflict).
func (c *Client) PostObservation(ctx context.Context, obs Observation) (*Observation, error) {
	req := c.request(epObservationCreate, nil)
	req.JSON = obs
	return do[*Observation](ctx, c, req)
}

// PostObservations sends a batch in one request.
func (c *Client) PostObservations(ctx context.Context, obs []Observation) (json.RawMessage, error) {
	req := c.request(epObservationCreate, nil)
	req.JSON = obs
	env, err := c.transport.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	return env.Body, nil
}

// PostSensorObservation pushes a payload to a sensor handler, e.g. ("generic", "my-provider").
func (c *Client) PostSensorObservation(ctx context.Context, handler, provider string, payload any) (json.RawMessage, error) {
	req := c.request(epSensorStatus, nil, handler, provider)
	req.JSON = payload
	env, err := c.transport.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	return env.Body, nil
}
