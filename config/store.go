// Package config implements the store engine's config store: a single
// persistent TOML document guarded by a readers-writer lock, read
// through on load and write through on every mutation, exactly as
// described by spec.md §4.1.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/divvun/pahkat-go/cachekey"
	"github.com/divvun/pahkat-go/metrics"
	"github.com/divvun/pahkat-go/pkgkey"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Store is the capability object exposing the config API of spec.md
// §4.1. It is safe for concurrent use by multiple goroutines within one
// process; concurrent processes writing the same document are not
// supported (spec.md §5).
type Store struct {
	mu         sync.RWMutex
	path       string
	data       document
	readOnly   bool
	logger     *slog.Logger
	metrics    *metrics.Registry
}

// Option configures a Store at construction.
type Option func(*Store)

// WithLogger overrides the store's logger (default: slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics attaches a metrics.Registry so every successful mutation
// is counted.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Store) { s.metrics = reg }
}

// ReadOnly marks the store read-only: every mutator fails with
// pahkaterr.ConfigReadOnly without touching disk or in-memory state.
func ReadOnly() Option {
	return func(s *Store) { s.readOnly = true }
}

func newStore(path string, data document, opts []Option) *Store {
	s := &Store{
		path:   path,
		data:   data.normalized(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultConfigPath returns the OS-standard config document path.
func DefaultConfigPath() string { return defaultConfigPath() }

// New creates a fresh config document at path, rooted at cachePath (or
// the OS-standard cache directory if cachePath is empty). It does not
// read any existing file at path; the first mutation writes it.
func New(path, cachePath string, opts ...Option) *Store {
	doc := defaultDocument()
	if cachePath != "" {
		doc.CachePath = cachePath
	}
	return newStore(path, doc, opts)
}

// LoadOrDefault reads the document at DefaultConfigPath(). On any I/O or
// parse error it falls back to a default document, and always ensures
// the package and repo cache sub-directories exist before returning.
func LoadOrDefault(opts ...Option) *Store {
	s, err := Load(defaultConfigPath(), opts...)
	if err != nil {
		s = newStore(defaultConfigPath(), defaultDocument(), opts)
		s.logger.Warn("config: falling back to default document", "error", err)
	}

	if err := os.MkdirAll(s.PackageCachePath(), 0o755); err != nil {
		s.logger.Warn("config: could not create package cache dir", "error", err)
	}
	if err := os.MkdirAll(s.RepoCachePath(), 0o755); err != nil {
		s.logger.Warn("config: could not create repo cache dir", "error", err)
	}

	return s
}

// Load reads and parses the document at path. Callers that just want
// "load if present, default otherwise" should use LoadOrDefault.
func Load(path string, opts ...Option) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errIO(err)
	}

	var tdoc tomlDocument
	if _, err := toml.Decode(string(raw), &tdoc); err != nil {
		return nil, errParse(err)
	}
	doc, err := documentFromTOML(tdoc)
	if err != nil {
		return nil, errParse(err)
	}
	doc = doc.normalized()

	for _, r := range doc.Repos {
		if err := validate.Struct(r); err != nil {
			return nil, errParse(fmt.Errorf("invalid repo record %+v: %w", r, err))
		}
	}

	return newStore(path, doc, opts), nil
}

// save serializes the whole document and writes it to disk. The write
// happens while the exclusive lock is held by the caller (every mutator
// below calls save() under s.mu), satisfying "no partial writes visible
// to readers".
func (s *Store) save() error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s.data.toTOML()); err != nil {
		return errIO(err)
	}
	raw := buf.Bytes()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errIO(err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json.tmp")
	if err != nil {
		return errIO(err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errIO(err)
	}
	if err := tmp.Close(); err != nil {
		return errIO(err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return errIO(err)
	}

	return nil
}

// mutate runs fn under the exclusive lock, then saves. fn mutates
// s.data directly; if it returns an error the document is left
// unchanged on disk (the in-memory mutation already applied is still
// considered authoritative per spec.md §4.1 — callers that need
// rollback semantics should validate before calling a mutator).
func (s *Store) mutate(mutatorName string, fn func(*document) error) error {
	if s.readOnly {
		return errReadOnly()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(&s.data); err != nil {
		return err
	}

	if err := s.save(); err != nil {
		s.logger.Error("config: write failed", "mutator", mutatorName, "error", err)
		return err
	}

	s.logger.Debug("config: mutation applied", "mutator", mutatorName)
	if s.metrics != nil {
		s.metrics.ConfigWritesTotal.WithLabelValues(mutatorName).Inc()
	}
	return nil
}

// PackageCachePath is cache_path/packages.
func (s *Store) PackageCachePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filepath.Join(s.data.CachePath, "packages")
}

// RepoCachePath is cache_path/repos.
func (s *Store) RepoCachePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filepath.Join(s.data.CachePath, "repos")
}

// SetCacheBase updates the cache base path.
func (s *Store) SetCacheBase(path string) error {
	return s.mutate("set_cache_base", func(d *document) error {
		d.CachePath = path
		return nil
	})
}

// Repos returns a snapshot of the configured repositories, in order.
func (s *Store) Repos() []RepoRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RepoRecord, len(s.data.Repos))
	copy(out, s.data.Repos)
	return out
}

// AddRepo appends a repo record. Adding a repo with an existing URL
// replaces its channel (spec.md §3 "Repo record" uniqueness rule).
func (s *Store) AddRepo(record RepoRecord) error {
	if err := validate.Struct(record); err != nil {
		return errParse(err)
	}
	return s.mutate("add_repo", func(d *document) error {
		for i, r := range d.Repos {
			if r.Equal(record) {
				d.Repos[i] = record
				return nil
			}
		}
		d.Repos = append(d.Repos, record)
		return nil
	})
}

// RemoveRepo removes the repo record matching record's URL and deletes
// its on-disk cache directory. Absence of the directory is not an error.
func (s *Store) RemoveRepo(record RepoRecord) error {
	var cacheDir string
	err := s.mutate("remove_repo", func(d *document) error {
		idx := -1
		for i, r := range d.Repos {
			if r.Equal(record) {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil
		}
		cacheDir = filepath.Join(d.CachePath, "repos", cachekey.Hash(d.Repos[idx].URL, d.Repos[idx].Channel))
		d.Repos = append(d.Repos[:idx], d.Repos[idx+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	if cacheDir != "" {
		if rmErr := os.RemoveAll(cacheDir); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return errIO(rmErr)
		}
	}
	return nil
}

// UpdateRepo replaces the repo record at index positionally. index is
// found by the caller through a prior Repos() read; an out-of-range
// index fails the call.
func (s *Store) UpdateRepo(index int, record RepoRecord) error {
	if err := validate.Struct(record); err != nil {
		return errParse(err)
	}
	return s.mutate("update_repo", func(d *document) error {
		if index < 0 || index >= len(d.Repos) {
			return errParse(fmt.Errorf("repo index %d out of range (len=%d)", index, len(d.Repos)))
		}
		d.Repos[index] = record
		return nil
	})
}

// UIValue returns the stored UI setting, or ("", false) if unset.
func (s *Store) UIValue(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data.UI[key]
	return v, ok
}

// SetUIValue stores a UI setting. Passing an empty value clears the key
// rather than storing an empty string, matching "set_ui_value(key,
// value|clear)" in spec.md §4.1.
func (s *Store) SetUIValue(key, value string) error {
	return s.mutate("set_ui_value", func(d *document) error {
		if value == "" {
			delete(d.UI, key)
			return nil
		}
		d.UI[key] = value
		return nil
	})
}

// SkippedPackage returns the pinned version for key, if any.
func (s *Store) SkippedPackage(key pkgkey.Key) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data.SkippedPackages[key]
	return v, ok
}

// AddSkippedPackage pins key at version.
func (s *Store) AddSkippedPackage(key pkgkey.Key, version string) error {
	return s.mutate("add_skipped_package", func(d *document) error {
		d.SkippedPackages[key] = version
		return nil
	})
}

// RemoveSkippedPackage un-pins key.
func (s *Store) RemoveSkippedPackage(key pkgkey.Key) error {
	return s.mutate("remove_skipped_package", func(d *document) error {
		delete(d.SkippedPackages, key)
		return nil
	})
}
