// Package transaction implements the transaction engine of spec.md §4.7:
// it executes an ordered action list produced by the dependency resolver,
// downloading and invoking the backend for each non-no-op action,
// stopping immediately on the first failure.
package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/divvun/pahkat-go/backend"
	"github.com/divvun/pahkat-go/dependency"
	"github.com/divvun/pahkat-go/download"
	"github.com/divvun/pahkat-go/metrics"
	"github.com/divvun/pahkat-go/pahkaterr"
	"github.com/divvun/pahkat-go/pkgkey"
	"github.com/divvun/pahkat-go/repoindex"
	"github.com/google/uuid"
)

// EventKind discriminates the events a transaction emits.
type EventKind string

const (
	EventProgress   EventKind = "progress"
	EventCompletion EventKind = "completion"
	EventFailure    EventKind = "failure"
)

// Event is one observation emitted while a transaction runs.
type Event struct {
	TransactionID string
	Kind          EventKind
	Key           pkgkey.Key
	BytesDone     int64
	BytesTotal    int64
	Status        backend.State
	Err           error
}

// Sink receives transaction events. Implementations must not block for
// long, since the engine emits synchronously from its own goroutine.
type Sink func(Event)

// Package is what the engine needs to act on one resolved action: its
// descriptor (for installer/dependency data) and the package cache
// directory downloads land in.
type Package struct {
	Descriptor repoindex.PackageDescriptor
	CacheDir   string
}

// PackageLookup resolves an action's key to its descriptor and cache dir.
type PackageLookup func(key pkgkey.Key) (Package, bool)

// Engine runs transactions against one backend.
type Engine struct {
	backend  backend.Backend
	download *download.Engine
	metrics  *metrics.Registry
	target   backend.Target
}

// New constructs an Engine.
func New(b backend.Backend, downloader *download.Engine, target backend.Target, opts ...Option) *Engine {
	e := &Engine{backend: b, download: downloader, target: target}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithMetrics attaches a metrics registry to record transaction counters.
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = m }
}

// Run executes actions in order, emitting events to sink. It stops at
// the first failing action (fail-stop); already-completed actions are
// not rolled back.
func (e *Engine) Run(ctx context.Context, actions []dependency.Action, lookup PackageLookup, sink Sink) error {
	if sink == nil {
		sink = func(Event) {}
	}
	txID := uuid.NewString()
	start := time.Now()

	for _, action := range actions {
		if action.NoOp {
			sink(Event{TransactionID: txID, Kind: EventCompletion, Key: action.Key, Status: backend.StateDone})
			continue
		}

		pkg, ok := lookup(action.Key)
		if !ok {
			err := pahkaterr.New(pahkaterr.InstallPkgNotInCache, fmt.Errorf("no package data for %s", action.Key.String())).WithKey(action.Key)
			sink(Event{TransactionID: txID, Kind: EventFailure, Key: action.Key, Status: backend.StateFailed, Err: err})
			e.recordResult("failed", start)
			return err
		}

		artifactPath, err := e.backend.DownloadPath(action.Key, pkg.Descriptor, pkg.CacheDir)
		if err != nil {
			sink(Event{TransactionID: txID, Kind: EventFailure, Key: action.Key, Status: backend.StateFailed, Err: err})
			e.recordResult("failed", start)
			return err
		}

		downloadURL := installerURL(pkg.Descriptor)
		if downloadURL != "" {
			sink(Event{TransactionID: txID, Kind: EventProgress, Key: action.Key, Status: backend.StateFetching})
			downloaded, err := e.download.Download(ctx, downloadURL, pkg.CacheDir, func(p download.Progress) {
				sink(Event{TransactionID: txID, Kind: EventProgress, Key: action.Key, BytesDone: p.Done, BytesTotal: p.Total, Status: backend.StateFetching})
			})
			if err != nil {
				sink(Event{TransactionID: txID, Kind: EventFailure, Key: action.Key, Status: backend.StateFailed, Err: err})
				e.recordResult("failed", start)
				return err
			}
			artifactPath = downloaded
		}

		sink(Event{TransactionID: txID, Kind: EventProgress, Key: action.Key, Status: backend.StateInstalling})
		if err := e.backend.Install(ctx, action.Key, pkg.Descriptor, artifactPath, e.target); err != nil {
			sink(Event{TransactionID: txID, Kind: EventFailure, Key: action.Key, Status: backend.StateFailed, Err: err})
			e.recordResult("failed", start)
			return err
		}

		sink(Event{TransactionID: txID, Kind: EventCompletion, Key: action.Key, Status: backend.StateDone})
	}

	e.recordResult("ok", start)
	return nil
}

// RunUninstall mirrors Run for a reverse-dependency-ordered uninstall
// closure.
func (e *Engine) RunUninstall(ctx context.Context, actions []dependency.Action, lookup PackageLookup, sink Sink) error {
	if sink == nil {
		sink = func(Event) {}
	}
	txID := uuid.NewString()
	start := time.Now()

	for _, action := range actions {
		pkg, ok := lookup(action.Key)
		if !ok {
			err := pahkaterr.New(pahkaterr.UninstallNativeToolFailed, fmt.Errorf("no package data for %s", action.Key.String())).WithKey(action.Key)
			sink(Event{TransactionID: txID, Kind: EventFailure, Key: action.Key, Status: backend.StateFailed, Err: err})
			e.recordResult("failed", start)
			return err
		}

		sink(Event{TransactionID: txID, Kind: EventProgress, Key: action.Key, Status: backend.StateInstalling})
		if err := e.backend.Uninstall(ctx, action.Key, pkg.Descriptor, e.target); err != nil {
			sink(Event{TransactionID: txID, Kind: EventFailure, Key: action.Key, Status: backend.StateFailed, Err: err})
			e.recordResult("failed", start)
			return err
		}

		sink(Event{TransactionID: txID, Kind: EventCompletion, Key: action.Key, Status: backend.StateDone})
	}

	e.recordResult("ok", start)
	return nil
}

func (e *Engine) recordResult(status string, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.TransactionsTotal.WithLabelValues(status).Inc()
	e.metrics.TransactionStepTime.WithLabelValues("transaction", status).Observe(time.Since(start).Seconds())
}

func installerURL(pkg repoindex.PackageDescriptor) string {
	if pkg.Installer == nil {
		return ""
	}
	switch pkg.Installer.Kind {
	case repoindex.InstallerMacOSPkg:
		if pkg.Installer.MacOS != nil {
			return pkg.Installer.MacOS.URL
		}
	case repoindex.InstallerWindows:
		if pkg.Installer.Windows != nil {
			return pkg.Installer.Windows.URL
		}
	case repoindex.InstallerTarball:
		if pkg.Installer.Tarball != nil {
			return pkg.Installer.Tarball.URL
		}
	}
	return ""
}
