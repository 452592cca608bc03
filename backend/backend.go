// Package backend defines the platform backend contract of spec.md §4.6
// and a construction-time selection strategy, grounded on the teacher's
// provider factory pattern (GitHub vs GitLab client selection) mapped
// onto macOS/Windows/prefix backend selection.
package backend

import (
	"context"

	"github.com/divvun/pahkat-go/pkgkey"
	"github.com/divvun/pahkat-go/repoindex"
	"github.com/divvun/pahkat-go/status"
)

// Target is the install scope a backend action applies to. It is an
// alias of status.Target: status.ReceiptLookup (embedded in Backend
// below) needs the type too, and status cannot import this package
// without an import cycle, so the type lives there and is re-exported
// here under its original name.
type Target = status.Target

const (
	TargetSystem = status.TargetSystem
	TargetUser   = status.TargetUser
)

// State is the backend action state machine of spec.md §4.6.
type State string

const (
	StateFetching   State = "fetching"
	StateInstalling State = "installing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Backend is implemented once per platform (macOS, Windows, prefix) and
// once more by a fake for tests. DownloadPath reports where the backend
// expects the downloaded artifact to already sit; Install and Uninstall
// operate on it; Status reports the currently installed version, if any.
type Backend interface {
	Name() string
	DownloadPath(key pkgkey.Key, pkg repoindex.PackageDescriptor, cacheDir string) (string, error)
	Install(ctx context.Context, key pkgkey.Key, pkg repoindex.PackageDescriptor, artifactPath string, target Target) error
	Uninstall(ctx context.Context, key pkgkey.Key, pkg repoindex.PackageDescriptor, target Target) error
	status.ReceiptLookup
}

// Factory holds backends registered by name and returns one on request,
// so the platform in use is a runtime choice (also letting tests inject
// a fake). store.New takes the chosen Backend directly, and
// cmd/pahkatctl picks its backend with its own switch, not with Factory.
type Factory struct {
	backends map[string]Backend
}

// NewFactory registers the given backends by their Name().
func NewFactory(backends ...Backend) *Factory {
	f := &Factory{backends: make(map[string]Backend)}
	for _, b := range backends {
		f.backends[b.Name()] = b
	}
	return f
}

// Create returns the backend registered under name.
func (f *Factory) Create(name string) (Backend, bool) {
	b, ok := f.backends[name]
	return b, ok
}
