package erclient

import (
	"context"
	"iter"
	"time"
)

func (c *Client) Subjects(params Params, opts PageOptions) *Pager[Subject] {
	return list[Subject](c, epSubjects, params, opts)
}

func (c *Client) GetSubject(ctx context.Context, id string) (*Subject, error) {
	return do[*Subject](ctx, c, c.request(epSubject, nil, id))
}

func (c *Client) PatchSubject(ctx context.Context, id string, patch map[string]any) (*Subject, error) {
	req := c.request(epSubjectPatch, nil, id)
	req.JSON = patch
	return do[*Subject](ctx, c, req)
}

func (c *Client) SubjectSources(ctx context.Context, subjectID string) ([]Source, error) {
	return do[[]Source](ctx, c, c.request(epSubjectSources, nil, subjectID))
}

func (c *Client) SubjectGroups(ctx context.Context, params Params) ([]SubjectGroup, error) {
	return do[[]SubjectGroup](ctx, c, c.request(epSubjectGroups, params))
}

// GetSubjectTracks returns the subject's track between since and until. Zero
// times are omitted and the server default window applies.
func (c *Client) GetSubjectTracks(ctx context.Context, subjectID string, since, until time.Time) (*Track, error) {
	return do[*Track](ctx, c, c.request(epSubjectTracks, Params{"since": since, "until": until}, subjectID))
}

// GetSubjectTracksBulk fetches tracks for many subjects on the worker pool and
// yields them as they complete. Result.Index refers to subjectIDs.
func (c *Client) GetSubjectTracksBulk(ctx context.Context, subjectIDs []string, since, until time.Time) iter.Seq[Result[*Track]] {
	return FanOut(ctx, c.cfg.FanOutWorkers, len(subjectIDs), func(ctx context.Context, i int) (*Track, error) {
		return c.GetSubjectTracks(ctx, subjectIDs[i], since, until)
	})
}
