package erclient

import (
	"context"
	"time"
)

// Future is the pending result of an AsyncClient call.
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	val    T
	err    error
}

// spawn starts fn on its own goroutine under a context derived from ctx.
func spawn[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future[T]{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(f.done)
		defer cancel()
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Await blocks until the call finishes or ctx ends. Ending ctx cancels the
// in-flight call.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		f.cancel()
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed when the result is ready.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Cancel aborts the call; Await then returns its cancellation error.
func (f *Future[T]) Cancel() { f.cancel() }

// AsyncClient runs every call on its own goroutine and hands back a Future.
// Its connect and read timeouts are the only bounds on a call.
type AsyncClient struct {
	c *Client
}

// NewAsync builds an AsyncClient. ConnectTimeout and ReadTimeout default to
// 3.1s and 20s.
func NewAsync(cfg Config, opts ...Option) (*AsyncClient, error) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	c, err := build(cfg, cooperativeStrategy{}, opts)
	if err != nil {
		return nil, err
	}
	return &AsyncClient{c: c}, nil
}

func (a *AsyncClient) Call(ctx context.Context, req *Request) *Future[*Envelope] {
	return spawn(ctx, func(ctx context.Context) (*Envelope, error) {
		return a.c.Call(ctx, req)
	})
}

func (a *AsyncClient) Login(ctx context.Context) *Future[struct{}] {
	return spawn(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.c.Login(ctx)
	})
}

func (a *AsyncClient) GetEvent(ctx context.Context, id string, params Params) *Future[*Event] {
	return spawn(ctx, func(ctx context.Context) (*Event, error) {
		return a.c.GetEvent(ctx, id, params)
	})
}

func (a *AsyncClient) PostEvent(ctx context.Context, ev Event) *Future[*Event] {
	return spawn(ctx, func(ctx context.Context) (*Event, error) {
		return a.c.PostEvent(ctx, ev)
	})
}

// Events collects every matching event.
func (a *AsyncClient) Events(ctx context.Context, params Params, opts PageOptions) *Future[[]Event] {
	return spawn(ctx, func(ctx context.Context) ([]Event, error) {
		return a.c.Events(params, opts).Collect(ctx)
	})
}

func (a *AsyncClient) GetSubject(ctx context.Context, id string) *Future[*Subject] {
	return spawn(ctx, func(ctx context.Context) (*Subject, error) {
		return a.c.GetSubject(ctx, id)
	})
}

func (a *AsyncClient) Subjects(ctx context.Context, params Params, opts PageOptions) *Future[[]Subject] {
	return spawn(ctx, func(ctx context.Context) ([]Subject, error) {
		return a.c.Subjects(params, opts).Collect(ctx)
	})
}

func (a *AsyncClient) GetSubjectTracks(ctx context.Context, subjectID string, since, until time.Time) *Future[*Track] {
	return spawn(ctx, func(ctx context.Context) (*Track, error) {
		return a.c.GetSubjectTracks(ctx, subjectID, since, until)
	})
}

func (a *AsyncClient) Observations(ctx context.Context, params Params, opts PageOptions) *Future[[]Observation] {
	return spawn(ctx, func(ctx context.Context) ([]Observation, error) {
		return a.c.Observations(params, opts).Collect(ctx)
	})
}

func (a *AsyncClient) PostObservation(ctx context.Context, obs Observation) *Future[*Observation] {
	return spawn(ctx, func(ctx context.Context) (*Observation, error) {
		return a.c.PostObservation(ctx, obs)
	})
}

func (a *AsyncClient) Patrols(ctx context.Context, params Params, opts PageOptions) *Future[[]Patrol] {
	return spawn(ctx, func(ctx context.Context) ([]Patrol, error) {
		return a.c.Patrols(params, opts).Collect(ctx)
	})
}

func (a *AsyncClient) Me(ctx context.Context) *Future[*User] {
	return spawn(ctx, func(ctx context.Context) (*User, error) {
		return a.c.Me(ctx)
	})
}
