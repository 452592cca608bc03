// Package repoindex implements the repo loader of spec.md §4.2: it
// fetches a repository's root index and per-package indexes over the
// network, caches them to disk keyed by a stable hash of (URL, channel),
// and produces an in-memory LoadedRepository.
package repoindex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/divvun/pahkat-go/cachekey"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/go-playground/validator/v10"
)

// defaultInMemoryCacheSize bounds the loader's in-process LRU cache of
// LoadedRepository snapshots. Sized generously: spec.md §3 describes
// loaded repositories as cached "for process lifetime... evicted only
// by restart", so this is a safety bound against pathological callers,
// not a real eviction policy under normal use.
const defaultInMemoryCacheSize = 256

// Loader fetches and caches repository indexes.
type Loader struct {
	client   *http.Client
	cacheDir string
	logger   *slog.Logger

	mem    *lru.Cache[string, *LoadedRepository]
	keyed  *keyedMutex
	validate *validator.Validate
}

// Option configures a Loader at construction.
type Option func(*Loader)

// WithHTTPClient overrides the HTTP client used to fetch indexes.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithLogger overrides the loader's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader constructs a Loader that caches fetched indexes under
// cacheDir (typically config.Store.RepoCachePath()).
func NewLoader(cacheDir string, opts ...Option) *Loader {
	mem, _ := lru.New[string, *LoadedRepository](defaultInMemoryCacheSize)

	l := &Loader{
		client:   &http.Client{Timeout: 30 * time.Second},
		cacheDir: cacheDir,
		logger:   slog.Default(),
		mem:      mem,
		keyed:    newKeyedMutex(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches (or reads from cache) the repository at url on channel.
// Load fails only if both network and cache are unavailable for the
// root index; a loaded repository containing zero packages is legal.
func (l *Loader) Load(ctx context.Context, url, channel string) (*LoadedRepository, error) {
	baseURL := ensureTrailingSlash(url)
	hash := cachekey.Hash(baseURL, channel)

	if cached, ok := l.mem.Get(hash); ok {
		return cached, nil
	}

	unlock := l.keyed.lock(hash)
	defer unlock()

	// Another goroutine may have populated the cache while we waited.
	if cached, ok := l.mem.Get(hash); ok {
		return cached, nil
	}

	repoCacheDir := filepath.Join(l.cacheDir, hash)

	root, err := l.fetchRoot(ctx, baseURL, repoCacheDir)
	if err != nil {
		return nil, err
	}
	if err := l.validate.Struct(root); err != nil {
		return nil, errParse(fmt.Errorf("root index: %w", err))
	}

	packages := make(map[string]PackageDescriptor, len(root.Packages))
	for _, id := range root.Packages {
		pkg, err := l.fetchPackage(ctx, baseURL, channel, root.DefaultChannel, id, repoCacheDir)
		if err != nil {
			l.logger.Warn("repoindex: skipping package that failed to load",
				"repo", baseURL, "package", id, "error", err)
			continue
		}
		packages[id] = pkg
	}

	loaded := &LoadedRepository{
		Root:     root,
		Packages: packages,
		CacheDir: repoCacheDir,
		URL:      baseURL,
		Channel:  channel,
	}

	l.mem.Add(hash, loaded)
	return loaded, nil
}

func (l *Loader) fetchRoot(ctx context.Context, baseURL, repoCacheDir string) (RootIndex, error) {
	cachePath := filepath.Join(repoCacheDir, "index.json")

	data, err := l.fetch(ctx, baseURL+"index.json")
	if err != nil {
		l.logger.Debug("repoindex: root fetch failed, falling back to cache", "url", baseURL, "error", err)
		data, cacheErr := os.ReadFile(cachePath)
		if cacheErr != nil {
			return RootIndex{}, errNetwork(fmt.Errorf("fetch failed (%v) and no cache at %s (%v)", err, cachePath, cacheErr))
		}
		var root RootIndex
		if err := json.Unmarshal(data, &root); err != nil {
			return RootIndex{}, errParse(err)
		}
		return root, nil
	}

	if err := writeCacheFile(cachePath, data); err != nil {
		l.logger.Warn("repoindex: failed to write root index cache", "path", cachePath, "error", err)
	}

	var root RootIndex
	if err := json.Unmarshal(data, &root); err != nil {
		return RootIndex{}, errParse(err)
	}
	return root, nil
}

func (l *Loader) fetchPackage(ctx context.Context, baseURL, channel, defaultChannel, id, repoCacheDir string) (PackageDescriptor, error) {
	filename := "index.json"
	if channel != defaultChannel {
		filename = "index." + channel + ".json"
	}

	remotePath := fmt.Sprintf("%spackages/%s/%s", baseURL, id, filename)
	cachePath := filepath.Join(repoCacheDir, "packages", id, filename)

	data, err := l.fetch(ctx, remotePath)
	if err != nil {
		cached, cacheErr := os.ReadFile(cachePath)
		if cacheErr != nil {
			return PackageDescriptor{}, errNetwork(fmt.Errorf("fetch %s failed (%v) and no cache (%v)", remotePath, err, cacheErr))
		}
		data = cached
	} else if writeErr := writeCacheFile(cachePath, data); writeErr != nil {
		l.logger.Warn("repoindex: failed to write package cache", "path", cachePath, "error", writeErr)
	}

	var pkg PackageDescriptor
	if err := json.Unmarshal(data, &pkg); err != nil {
		return PackageDescriptor{}, errParse(err)
	}
	if err := l.validate.Struct(pkg); err != nil {
		return PackageDescriptor{}, errParse(err)
	}
	return pkg, nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

func ensureTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
