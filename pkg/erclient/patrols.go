package erclient

import "context"

func (c *Client) Patrols(params Params, opts PageOptions) *Pager[Patrol] {
	return list[Patrol](c, epPatrols, params, opts)
}

func (c *Client) GetPatrol(ctx context.Context, id string) (*Patrol, error) {
	return do[*Patrol](ctx, c, c.request(epPatrol, nil, id))
}

func (c *Client) PostPatrol(ctx context.Context, p Patrol) (*Patrol, error) {
	req := c.request(epPatrolCreate, nil)
	req.JSON = p
	return do[*Patrol](ctx, c, req)
}

func (c *Client) PatchPatrol(ctx context.Context, id string, patch map[string]any) (*Patrol, error) {
	req := c.request(epPatrolPatch, nil, id)
	req.JSON = patch
	return do[*Patrol](ctx, c, req)
}

func (c *Client) PatrolTypes(ctx context.Context) ([]PatrolType, error) {
	return do[[]PatrolType](ctx, c, c.request(epPatrolTypes, nil))
}

func (c *Client) PatrolSegments(opts PageOptions) *Pager[PatrolSegment] {
	return list[PatrolSegment](c, epPatrolSegments, nil, opts)
}
