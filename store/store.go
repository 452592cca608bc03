// Package store wires config, repoindex, status, dependency, download,
// backend, and transaction together into the single public contract spec.md
// §6 describes: the union of the config, repo-loading, resolve, and
// transaction operations a caller (here, cmd/pahkatctl) drives directly.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/divvun/pahkat-go/backend"
	"github.com/divvun/pahkat-go/config"
	"github.com/divvun/pahkat-go/dependency"
	"github.com/divvun/pahkat-go/download"
	"github.com/divvun/pahkat-go/metrics"
	"github.com/divvun/pahkat-go/pahkaterr"
	"github.com/divvun/pahkat-go/pkgkey"
	"github.com/divvun/pahkat-go/repoindex"
	"github.com/divvun/pahkat-go/status"
	"github.com/divvun/pahkat-go/transaction"
)

// PackageStore is the facade a caller drives: it owns the config store,
// the repo loader's in-memory view of all configured repos, and the
// selected platform backend.
type PackageStore struct {
	cfg      *config.Store
	loader   *repoindex.Loader
	backend  backend.Backend
	download *download.Engine
	metrics  *metrics.Registry
	logger   *slog.Logger
	platform string
	target   backend.Target

	repos []*repoindex.LoadedRepository
}

// Option configures a PackageStore at construction.
type Option func(*PackageStore)

// WithLogger overrides the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *PackageStore) { s.logger = logger }
}

// WithMetrics attaches a shared metrics registry.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *PackageStore) { s.metrics = m }
}

// New constructs a PackageStore bound to cfg, using b as the platform
// backend and platform/target to scope status and install actions.
func New(cfg *config.Store, b backend.Backend, platform string, target backend.Target, opts ...Option) *PackageStore {
	s := &PackageStore{
		cfg:      cfg,
		backend:  b,
		platform: platform,
		target:   target,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.loader = repoindex.NewLoader(cfg.RepoCachePath(), repoindex.WithLogger(s.logger))
	s.download = download.New(download.WithMetrics(s.metrics))
	return s
}

// RefreshRepos reloads every repo configured in cfg, replacing the
// store's in-memory view.
func (s *PackageStore) RefreshRepos(ctx context.Context) error {
	records := s.cfg.Repos()
	repos := make([]*repoindex.LoadedRepository, 0, len(records))
	for _, rec := range records {
		repo, err := s.loader.Load(ctx, rec.URL, rec.Channel)
		if err != nil {
			return err
		}
		repos = append(repos, repo)
	}
	s.repos = repos
	return nil
}

// Repos returns the config's repo list, unchanged from spec.md §4.1.
func (s *PackageStore) Repos() []config.RepoRecord {
	return s.cfg.Repos()
}

// AddRepo adds a repo to config.
func (s *PackageStore) AddRepo(record config.RepoRecord) error {
	return s.cfg.AddRepo(record)
}

// RemoveRepo removes a repo from config, dropping its cache.
func (s *PackageStore) RemoveRepo(record config.RepoRecord) error {
	return s.cfg.RemoveRepo(record)
}

// Status resolves the status of a single package.
func (s *PackageStore) Status(id string) (status.Result, error) {
	key, pkg, _, err := s.findPackage(id)
	if err != nil {
		return status.Result{}, err
	}
	skippedVersion, skippedOK := s.cfg.SkippedPackage(key)
	return status.Resolve(key, pkg, s.platform, s.backend, s.target, skippedVersion, skippedOK)
}

// ResolveInstall expands the install closure for id.
func (s *PackageStore) ResolveInstall(id string) ([]dependency.Action, error) {
	return s.dependencyResolver().ResolveInstall(id)
}

// ResolveUninstall expands the uninstall closure for id.
func (s *PackageStore) ResolveUninstall(id string) ([]dependency.Action, error) {
	return s.dependencyResolver().ResolveUninstall(id)
}

// Install resolves and runs an install transaction for id, streaming
// events to sink.
func (s *PackageStore) Install(ctx context.Context, id string, sink transaction.Sink) error {
	actions, err := s.ResolveInstall(id)
	if err != nil {
		return err
	}
	engine := transaction.New(s.backend, s.download, s.target, transaction.WithMetrics(s.metrics))
	return engine.Run(ctx, actions, s.packageLookup, sink)
}

// Uninstall resolves and runs an uninstall transaction for id.
func (s *PackageStore) Uninstall(ctx context.Context, id string, sink transaction.Sink) error {
	actions, err := s.ResolveUninstall(id)
	if err != nil {
		return err
	}
	engine := transaction.New(s.backend, s.download, s.target, transaction.WithMetrics(s.metrics))
	return engine.RunUninstall(ctx, actions, s.packageLookup, sink)
}

func (s *PackageStore) dependencyResolver() *dependency.Resolver {
	repos := make([]dependency.Repository, 0, len(s.repos))
	for _, r := range s.repos {
		repos = append(repos, dependency.Repository{URL: r.URL, Channel: r.Channel, Packages: r.Packages})
	}
	return dependency.New(repos, s.backend, s.platform, s.target)
}

func (s *PackageStore) packageLookup(key pkgkey.Key) (transaction.Package, bool) {
	for _, r := range s.repos {
		if r.URL != key.BaseURL || r.Channel != key.Channel {
			continue
		}
		if pkg, ok := r.Package(key.ID); ok {
			return transaction.Package{Descriptor: pkg, CacheDir: s.cfg.PackageCachePath()}, true
		}
	}
	return transaction.Package{}, false
}

func (s *PackageStore) findPackage(id string) (pkgkey.Key, repoindex.PackageDescriptor, *repoindex.LoadedRepository, error) {
	for _, r := range s.repos {
		if pkg, ok := r.Package(id); ok {
			return pkgkey.New(r.URL, id, r.Channel), pkg, r, nil
		}
	}
	return pkgkey.Key{}, repoindex.PackageDescriptor{}, nil, pahkaterr.New(pahkaterr.ResolvePackageNotFound, fmt.Errorf("package %q not found in any loaded repository", id))
}
