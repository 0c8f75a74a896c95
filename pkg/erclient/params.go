package erclient

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"time"
)

// Params are caller-supplied query filters. Each endpoint declares which keys
// it accepts; others are dropped before the request is built.
type Params map[string]any

// Endpoint declares one API operation.
type Endpoint struct {
	Name    string
	Method  string
	// Path is relative to the versioned root and may hold %s placeholders.
	Path    string
	Version string
	Params  []string
	Retry   bool
}

// NewRequest renders the endpoint into a Request. It returns the filter keys
// that were not accepted.
func (e Endpoint) NewRequest(params Params, args ...string) (*Request, []string) {
	path := e.Path
	if len(args) > 0 {
		escaped := make([]any, len(args))
		for i, a := range args {
			escaped[i] = url.PathEscape(a)
		}
		path = fmt.Sprintf(e.Path, escaped...)
	}

	query := url.Values{}
	var dropped []string
	for key, v := range params {
		if !slices.Contains(e.Params, key) {
			dropped = append(dropped, key)
			continue
		}
		for _, s := range encodeParam(v) {
			query.Add(key, s)
		}
	}
	slices.Sort(dropped)

	return &Request{
		Endpoint: e.Name,
		Method:   e.Method,
		Path:     path,
		Version:  e.Version,
		Query:    query,
		Retry:    e.Retry,
	}, dropped
}

// encodeParam renders a filter value. Empty values are omitted; slices repeat the key.
func encodeParam(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if x == "" {
			return nil
		}
		return []string{x}
	case []string:
		return slices.DeleteFunc(slices.Clone(x), func(s string) bool { return s == "" })
	case bool:
		return []string{strconv.FormatBool(x)}
	case int:
		return []string{strconv.Itoa(x)}
	case int64:
		return []string{strconv.FormatInt(x, 10)}
	case float64:
		return []string{strconv.FormatFloat(x, 'f', -1, 64)}
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return []string{x.UTC().Format(time.RFC3339)}
	case *time.Time:
		if x == nil || x.IsZero() {
			return nil
		}
		return []string{x.UTC().Format(time.RFC3339)}
	case fmt.Stringer:
		return []string{x.String()}
	default:
		return []string{fmt.Sprint(x)}
	}
}
