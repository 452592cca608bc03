package repoindex

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repo/index.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"name": {"en": "Test Repo"},
			"description": {"en": "desc"},
			"base_url": "https://pahkat.example/repo/",
			"primary_filter": "category",
			"default_channel": "stable",
			"channels": ["stable", "beta"],
			"categories": {},
			"packages": ["foo"]
		}`)
	})
	mux.HandleFunc("/repo/packages/foo/index.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "foo", "version": "1.0.0"}`)
	})
	return httptest.NewServer(mux)
}

func TestLoadFetchesRootAndPackages(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	loader := NewLoader(t.TempDir())
	repo, err := loader.Load(context.Background(), srv.URL+"/repo/", "stable")
	require.NoError(t, err)

	assert.Equal(t, "stable", repo.Root.DefaultChannel)
	pkg, ok := repo.Package("foo")
	require.True(t, ok)
	assert.Equal(t, "1.0.0", pkg.Version)
}

func TestLoadFallsBackToCacheOnNetworkFailure(t *testing.T) {
	srv := testServer(t)
	cacheDir := t.TempDir()

	loader := NewLoader(cacheDir)
	_, err := loader.Load(context.Background(), srv.URL+"/repo/", "stable")
	require.NoError(t, err)

	// Force a fresh loader (bypassing the in-memory LRU) pointed at the
	// same cache dir, then kill the server: it must still succeed from disk.
	srv.Close()

	loader2 := NewLoader(cacheDir)
	repo, err := loader2.Load(context.Background(), srv.URL+"/repo/", "stable")
	require.NoError(t, err)
	_, ok := repo.Package("foo")
	assert.True(t, ok)
}

func TestLoadFailsWithNoNetworkAndNoCache(t *testing.T) {
	loader := NewLoader(t.TempDir())
	_, err := loader.Load(context.Background(), "http://127.0.0.1:1/repo/", "stable")
	assert.Error(t, err)
}

func TestLoadEmptyPackagesIsLegal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repo/index.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"base_url": "https://pahkat.example/repo/",
			"primary_filter": "category",
			"default_channel": "stable",
			"channels": ["stable"],
			"packages": []
		}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	loader := NewLoader(t.TempDir())
	repo, err := loader.Load(context.Background(), srv.URL+"/repo/", "stable")
	require.NoError(t, err)
	assert.Empty(t, repo.Packages)
}

func TestLoadWritesRootIndexIntoCacheDir(t *testing.T) {
	srv := testServer(t)
	defer srv.Close()

	cacheDir := t.TempDir()
	loader := NewLoader(cacheDir)
	repo, err := loader.Load(context.Background(), srv.URL+"/repo/", "stable")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(repo.CacheDir, "index.json"))
	assert.NoError(t, err)
}
