package common

import (
	"os"
	"strings"
)

// Replaceable for tests.
var osHostname = os.Hostname

// ShortHostname is the local host name up to the first dot.
func ShortHostname() (string, error) {
	h, err := osHostname()
	if err != nil {
		return "", err
	}
	short, _, _ := strings.Cut(h, ".")
	return short, nil
}

// RewriteLocalhost replaces every "localhost" element of a comma separated host expression with
// the short local host name.
func RewriteLocalhost(expr string) (string, error) {
	if !strings.Contains(expr, "localhost") {
		return expr, nil
	}
	short, err := ShortHostname()
	if err != nil {
		return "", err
	}
	parts := strings.Split(expr, ",")
	for i, part := range parts {
		if part == "localhost" {
			parts[i] = short
		}
	}
	return strings.Join(parts, ","), nil
}
