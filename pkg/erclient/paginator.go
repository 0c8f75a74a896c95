package erclient

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
)

// DefaultPageSize is the page size assumed when the caller does not set one.
const DefaultPageSize = 100

// continuationParams are checked in this order on a next link.
var continuationParams = []string{"page", "cursor", "offset"}

// Page is one list response.
type Page[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Results  []T    `json:"results"`
}

// PageOptions controls iteration.
//   - Page > 0 fetches exactly that page and stops.
//   - PageSize sets page_size on every request.
//   - MaxResults > 0 stops after that many records without requesting more pages.
type PageOptions struct {
	Page       int
	PageSize   int
	MaxResults int
}

// Pager lazily walks a paged list endpoint.
type Pager[T any] struct {
	t       *Transport
	req     Request
	opts    PageOptions
	workers int
}

func newPager[T any](t *Transport, req Request, opts PageOptions, workers int) *Pager[T] {
	return &Pager[T]{t: t, req: req, opts: opts, workers: workers}
}

// fixedQuery is the caller's filters plus page_size, and page when explicit.
func (p *Pager[T]) fixedQuery() url.Values {
	q := cloneValues(p.req.Query)
	if p.opts.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(p.opts.PageSize))
	}
	if p.opts.Page > 0 {
		q.Set("page", strconv.Itoa(p.opts.Page))
	}
	return q
}

// Pages yields whole pages in server order. A failed request is yielded once
// and ends iteration.
func (p *Pager[T]) Pages(ctx context.Context) iter.Seq2[*Page[T], error] {
	return func(yield func(*Page[T], error) bool) {
		fixed := p.fixedQuery()
		req := p.req
		req.Query = fixed
		var lastNext string

		for {
			env, err := p.t.Call(ctx, &req)
			if err != nil {
				yield(nil, err)
				return
			}
			page, err := decodePage[T](env.Body)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(page, nil) {
				return
			}

			if p.opts.Page > 0 || page.Next == "" || page.Next == lastNext {
				return
			}
			lastNext = page.Next

			param, value, ok := continuation(page.Next)
			if !ok {
				// No recognised parameter: follow the link as given.
				req = p.req
				req.Path, req.Query = page.Next, nil
				continue
			}
			q := cloneValues(fixed)
			for _, k := range continuationParams {
				q.Del(k)
			}
			q.Set(param, value)
			req = p.req
			req.Query = q
		}
	}
}

// All yields records one at a time.
func (p *Pager[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		n := 0
		for page, err := range p.Pages(ctx) {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range page.Results {
				if !yield(item, nil) {
					return
				}
				n++
				if p.opts.MaxResults > 0 && n >= p.opts.MaxResults {
					return
				}
			}
		}
	}
}

// Batches yields slices of size records; the last may be shorter. When size
// exceeds the effective page size, page_size is raised to size.
func (p *Pager[T]) Batches(ctx context.Context, size int) iter.Seq2[[]T, error] {
	size = max(size, 1)
	q := *p
	effective := q.opts.PageSize
	if effective <= 0 {
		effective = DefaultPageSize
	}
	if size > effective {
		q.opts.PageSize = size
	}

	return func(yield func([]T, error) bool) {
		batch := make([]T, 0, size)
		for item, err := range q.All(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			batch = append(batch, item)
			if len(batch) == size {
				if !yield(batch, nil) {
					return
				}
				batch = make([]T, 0, size)
			}
		}
		if len(batch) > 0 {
			yield(batch, nil)
		}
	}
}

// Collect drains All into a slice.
func (p *Pager[T]) Collect(ctx context.Context) ([]T, error) {
	var out []T
	for item, err := range p.All(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Parallel fetches the first page, then requests the remaining page numbers
// concurrently and yields pages as they complete, so order across pages is
// not preserved. MaxResults limits how many pages are requested.
// Only endpoints with page-number pagination and a count support this.
func (p *Pager[T]) Parallel(ctx context.Context) iter.Seq2[*Page[T], error] {
	return func(yield func(*Page[T], error) bool) {
		first := *p
		first.opts.Page = 1
		var head *Page[T]
		for page, err := range first.Pages(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			head = page
		}
		if !yield(head, nil) || head.Next == "" {
			return
		}

		size := p.opts.PageSize
		if size <= 0 {
			size = len(head.Results)
		}
		total := head.Count
		if p.opts.MaxResults > 0 {
			total = min(total, p.opts.MaxResults)
		}
		if size == 0 || total <= size {
			return
		}
		pages := (total + size - 1) / size

		for r := range FanOut(ctx, p.workers, pages-1, func(ctx context.Context, i int) (*Page[T], error) {
			one := *p
			one.opts.Page = i + 2
			one.opts.PageSize = size
			var got *Page[T]
			for page, err := range one.Pages(ctx) {
				if err != nil {
					return nil, err
				}
				got = page
			}
			return got, nil
		}) {
			if !yield(r.Value, r.Err) {
				return
			}
		}
	}
}

// decodePage accepts either a paged object or a bare array (a single final page).
func decodePage[T any](body json.RawMessage) (*Page[T], error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode page: %w", err)
		}
		return &Page[T]{Count: len(items), Results: items}, nil
	}
	var page Page[T]
	if len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, fmt.Errorf("decode page: %w", err)
		}
	}
	return &page, nil
}

// continuation finds the first of page, cursor, offset on a next link.
func continuation(next string) (param, value string, ok bool) {
	u, err := url.Parse(next)
	if err != nil {
		return "", "", false
	}
	q := u.Query()
	for _, name := range continuationParams {
		if v := q.Get(name); v != "" {
			return name, v, true
		}
	}
	return "", "", false
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+2)
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
