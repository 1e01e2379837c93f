// Package version provides the client version string.
package version

import "fmt"

const (
	major      = 0
	minor      = 1
	patch      = 0
	preRelease = "pre"
)

// String returns the full version of the app.
func String() string {
	if preRelease != "" {
		return fmt.Sprintf("%d.%d.%d-%s", major, minor, patch, preRelease)
	}
	return fmt.Sprintf("%d.%d.%d", major, minor, patch)
}
