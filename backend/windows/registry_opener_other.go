//go:build !windows

package windows

import "fmt"

// SystemRegistryOpener stands in for the Windows-only implementation on
// every other GOOS, so cmd/pahkatctl/wiring.go, which imports all three
// backend packages, still compiles cross-platform. Selecting the windows
// platform on another GOOS reaches OpenKey, which always returns an error.
type SystemRegistryOpener struct{}

func (SystemRegistryOpener) OpenKey(hive Hive, path string) (string, bool, error) {
	return "", false, fmt.Errorf("windows registry access is unavailable on this platform")
}
