package erclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// Kind classifies an API failure. Callers branch on it with errors.Is against
// the sentinel errors below, or with KindOf.
type Kind int

const (
	KindUnknown Kind = iota
	KindBadCredentials
	KindPermissionDenied
	KindNotFound
	KindBadRequest
	KindRateLimitExceeded
	KindInternalError
	KindServiceUnreachable
	KindConflict
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindBadCredentials:     "bad credentials",
	KindPermissionDenied:   "permission denied",
	KindNotFound:           "not found",
	KindBadRequest:         "bad request",
	KindRateLimitExceeded:  "rate limit exceeded",
	KindInternalError:      "internal server error",
	KindServiceUnreachable: "service unreachable",
	KindConflict:           "conflict",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var (
	ErrAPI                = errors.New("erclient: api error")
	ErrBadCredentials     = errors.New("erclient: bad credentials")
	ErrPermissionDenied   = errors.New("erclient: permission denied")
	ErrNotFound           = errors.New("erclient: not found")
	ErrBadRequest         = errors.New("erclient: bad request")
	ErrRateLimitExceeded  = errors.New("erclient: rate limit exceeded")
	ErrInternalError      = errors.New("erclient: internal server error")
	ErrServiceUnreachable = errors.New("erclient: service unreachable")
	ErrConflict           = errors.New("erclient: conflict")

	ErrUnsupportedVersion = errors.New("erclient: unsupported api version")
)

var kindSentinels = map[Kind]error{
	KindUnknown:            ErrAPI,
	KindBadCredentials:     ErrBadCredentials,
	KindPermissionDenied:   ErrPermissionDenied,
	KindNotFound:           ErrNotFound,
	KindBadRequest:         ErrBadRequest,
	KindRateLimitExceeded:  ErrRateLimitExceeded,
	KindInternalError:      ErrInternalError,
	KindServiceUnreachable: ErrServiceUnreachable,
	KindConflict:           ErrConflict,
}

// unknownReason is the detail used when the response carries none.
const unknownReason = "unknown reason"

// APIError is the single error type produced at the HTTP boundary.
// StatusCode is zero for network-level failures, in which case Err holds the cause.
type APIError struct {
	Kind       Kind
	StatusCode int
	Detail     string
	Body       []byte
	Method     string
	URL        string
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("erclient: ")
	b.WriteString(e.Kind.String())
	if e.StatusCode != 0 || e.Method != "" {
		b.WriteString(" (")
		if e.StatusCode != 0 {
			fmt.Fprintf(&b, "%d", e.StatusCode)
		}
		if e.Method != "" {
			if e.StatusCode != 0 {
				b.WriteByte(' ')
			}
			b.WriteString(e.Method)
			b.WriteByte(' ')
			b.WriteString(e.URL)
		}
		b.WriteByte(')')
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the kind sentinel and the transport cause, if any.
func (e *APIError) Unwrap() []error {
	errs := []error{kindSentinels[e.Kind]}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ResponseBody returns the raw response text.
func (e *APIError) ResponseBody() string { return string(e.Body) }

// MapError converts a non-2xx response into an *APIError. It returns nil for 2xx.
func MapError(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	return &APIError{
		Kind:       kindForStatus(statusCode),
		StatusCode: statusCode,
		Detail:     extractDetail(body),
		Body:       body,
	}
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindBadCredentials
	case http.StatusForbidden:
		return KindPermissionDenied
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusTooManyRequests:
		return KindRateLimitExceeded
	case http.StatusInternalServerError:
		return KindInternalError
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindServiceUnreachable
	case http.StatusConflict:
		return KindConflict
	default:
		return KindUnknown
	}
}

// extractDetail looks for status.detail, then detail. Each level is decoded
// on its own so a non-object "status" does not hide a top-level detail.
func extractDetail(body []byte) string {
	var top map[string]json.RawMessage
	if len(body) == 0 || json.Unmarshal(body, &top) != nil {
		return unknownReason
	}
	var status map[string]json.RawMessage
	if raw, ok := top["status"]; ok && json.Unmarshal(raw, &status) == nil {
		if d := detailText(status["detail"]); d != "" {
			return d
		}
	}
	if d := detailText(top["detail"]); d != "" {
		return d
	}
	return unknownReason
}

// detailText renders a detail value: strings verbatim, other JSON as text.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// networkError wraps a transport-level failure.
func networkError(method, url string, err error) *APIError {
	return &APIError{
		Kind:   KindServiceUnreachable,
		Method: method,
		URL:    url,
		Err:    err,
	}
}

// KindOf returns the Kind carried by err, or KindUnknown when err is not an *APIError.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is an *APIError of kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == k
}
