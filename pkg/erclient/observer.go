package erclient

import "time"

// Observer receives client telemetry. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveRequest(endpoint, method string, status int, elapsed time.Duration)
	ObserveGrant(grantType string, ok bool)
	ObserveRetry(endpoint string, attempt int)
	ObserveBreakerState(name, state string)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, string, int, time.Duration) {}
func (nopObserver) ObserveGrant(string, bool)                         {}
func (nopObserver) ObserveRetry(string, int)                          {}
func (nopObserver) ObserveBreakerState(string, string)                {}
