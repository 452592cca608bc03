package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/divvun/pahkat-go/pkgkey"
)

// RepoRecord is a user-configuration entry: a repository URL plus a
// chosen channel. URL alone is the uniqueness key within a document.
type RepoRecord struct {
	URL     string `toml:"url" validate:"required,url"`
	Channel string `toml:"channel" validate:"required"`
}

// Equal compares two records by URL only, matching the config store's
// "URL alone is the key" uniqueness rule.
func (r RepoRecord) Equal(other RepoRecord) bool {
	return r.URL == other.URL
}

// document is the single persistent document described by spec.md §6,
// held in memory with SkippedPackages keyed by the parsed pkgkey.Key
// rather than its string form. Missing fields default to empty
// collections on load.
type document struct {
	Repos           []RepoRecord
	SkippedPackages map[pkgkey.Key]string
	CachePath       string
	UI              map[string]string
}

// skippedPackageEntry is the on-disk TOML shape of one skipped-package
// pin. TOML tables key on plain strings, so the document's
// map[pkgkey.Key]string is flattened to a list of entries for
// persistence rather than relying on the key type's text marshaling
// being honored as a table key.
type skippedPackageEntry struct {
	Key     string `toml:"key"`
	Version string `toml:"version"`
}

// tomlDocument is the on-disk TOML encoding of document.
type tomlDocument struct {
	Repos           []RepoRecord          `toml:"repos"`
	SkippedPackages []skippedPackageEntry `toml:"skipped_packages"`
	CachePath       string                `toml:"cache_path"`
	UI              map[string]string     `toml:"ui"`
}

func (d document) toTOML() tomlDocument {
	entries := make([]skippedPackageEntry, 0, len(d.SkippedPackages))
	for key, version := range d.SkippedPackages {
		entries = append(entries, skippedPackageEntry{Key: key.String(), Version: version})
	}
	return tomlDocument{
		Repos:           d.Repos,
		SkippedPackages: entries,
		CachePath:       d.CachePath,
		UI:              d.UI,
	}
}

func documentFromTOML(t tomlDocument) (document, error) {
	skipped := make(map[pkgkey.Key]string, len(t.SkippedPackages))
	for _, entry := range t.SkippedPackages {
		key, err := pkgkey.Parse(entry.Key)
		if err != nil {
			return document{}, fmt.Errorf("skipped_packages entry %q: %w", entry.Key, err)
		}
		skipped[key] = entry.Version
	}
	return document{
		Repos:           t.Repos,
		SkippedPackages: skipped,
		CachePath:       t.CachePath,
		UI:              t.UI,
	}, nil
}

func defaultDocument() document {
	return document{
		Repos:           []RepoRecord{},
		SkippedPackages: map[pkgkey.Key]string{},
		CachePath:       defaultCachePath(),
		UI:              map[string]string{},
	}
}

// defaultCachePath mirrors the OS-standard user cache directory with the
// product name appended (spec.md §6).
func defaultCachePath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "Pahkat")
}

// defaultConfigPath mirrors the OS-standard user config directory with
// the product name appended, used by LoadOrDefault.
func defaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "Pahkat", "config.toml")
}

func (d document) normalized() document {
	if d.SkippedPackages == nil {
		d.SkippedPackages = map[pkgkey.Key]string{}
	}
	if d.UI == nil {
		d.UI = map[string]string{}
	}
	if d.Repos == nil {
		d.Repos = []RepoRecord{}
	}
	if d.CachePath == "" {
		d.CachePath = defaultCachePath()
	}
	return d
}
