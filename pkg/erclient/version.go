package erclient

import (
	"fmt"
	"strings"
)

// DefaultVersion is used when neither the client nor the request names one.
const DefaultVersion = "v1.0"

var versionAliases = map[string]string{
	"v1":   "v1.0",
	"v1.0": "v1.0",
	"v2":   "v2.0",
	"v2.0": "v2.0",
}

// NormalizeVersion maps a caller-supplied version to its canonical path segment.
// Unknown versions fail rather than falling back to a default.
func NormalizeVersion(v string) (string, error) {
	canonical, ok := versionAliases[strings.ToLower(strings.TrimSpace(v))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedVersion, v)
	}
	return canonical, nil
}
