package erclient

import (
	"context"
	"net/http"
)

// strategy decides how the Transport waits on a network exchange.
type strategy interface {
	do(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error)
	name() string
}

// blockingStrategy runs the exchange on the caller's goroutine.
type blockingStrategy struct{}

func (blockingStrategy) do(_ context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	return client.Do(req)
}

func (blockingStrategy) name() string { return "blocking" }

// cooperativeStrategy runs each exchange on its own goroutine and returns as
// soon as the awaiting context ends, even if the connection is still stuck in
// dial or TLS. The abandoned response, if one arrives, is closed.
type cooperativeStrategy struct{}

func (cooperativeStrategy) do(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	type result struct {
		resp *http.Response
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := client.Do(req)
		ch <- result{resp, err}
	}()

	select {
	case r := <-ch:
		return r.resp, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.resp != nil {
				_ = r.resp.Body.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (cooperativeStrategy) name() string { return "cooperative" }
