package store

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/divvun/pahkat-go/backend"
	"github.com/divvun/pahkat-go/config"
	"github.com/divvun/pahkat-go/pkgkey"
	"github.com/divvun/pahkat-go/repoindex"
	"github.com/divvun/pahkat-go/status"
	"github.com/divvun/pahkat-go/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	installed map[string]string
}

func (f *fakeBackend) Name() string { return "fake" }
func (f *fakeBackend) DownloadPath(key pkgkey.Key, pkg repoindex.PackageDescriptor, cacheDir string) (string, error) {
	return cacheDir + "/" + pkg.ID, nil
}
func (f *fakeBackend) Install(ctx context.Context, key pkgkey.Key, pkg repoindex.PackageDescriptor, artifactPath string, target backend.Target) error {
	if f.installed == nil {
		f.installed = map[string]string{}
	}
	f.installed[key.ID] = pkg.Version
	return nil
}
func (f *fakeBackend) Uninstall(ctx context.Context, key pkgkey.Key, pkg repoindex.PackageDescriptor, target backend.Target) error {
	delete(f.installed, key.ID)
	return nil
}
func (f *fakeBackend) Installed(key pkgkey.Key, pkg repoindex.PackageDescriptor, target backend.Target) (status.Receipt, bool, error) {
	v, ok := f.installed[key.ID]
	if !ok {
		return status.Receipt{}, false, nil
	}
	return status.Receipt{Version: v}, true, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repo/index.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"base_url": "https://pahkat.example/repo/",
			"primary_filter": "category",
			"default_channel": "stable",
			"channels": ["stable"],
			"packages": ["foo"]
		}`)
	})
	mux.HandleFunc("/repo/packages/foo/index.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id": "foo",
			"version": "1.0.0",
			"installer": {"kind": "tarball", "tarball": {"url": "https://example.com/foo.tar.zst"}}
		}`)
	})
	return httptest.NewServer(mux)
}

func newTestStore(t *testing.T, srv *httptest.Server) (*PackageStore, *fakeBackend) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.New(dir+"/config.toml", dir+"/cache")
	require.NoError(t, cfg.AddRepo(config.RepoRecord{URL: srv.URL + "/repo/", Channel: "stable"}))

	fb := &fakeBackend{}
	s := New(cfg, fb, "linux", backend.TargetUser)
	require.NoError(t, s.RefreshRepos(context.Background()))
	return s, fb
}

func TestStatusResolvesNotInstalled(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	s, _ := newTestStore(t, srv)
	res, err := s.Status("foo")
	require.NoError(t, err)
	assert.Equal(t, status.StateNotInstalled, res.State)
}

func TestInstallRunsTransaction(t *testing.T) {
	artifactSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("artifact"))
	}))
	defer artifactSrv.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/repo/index.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"base_url": "https://pahkat.example/repo/",
			"primary_filter": "category",
			"default_channel": "stable",
			"channels": ["stable"],
			"packages": ["foo"]
		}`)
	})
	mux.HandleFunc("/repo/packages/foo/index.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"id": "foo",
			"version": "1.0.0",
			"installer": {"kind": "tarball", "tarball": {"url": "%s/foo.tar.zst"}}
		}`, artifactSrv.URL)
	})
	repoSrv := httptest.NewServer(mux)
	defer repoSrv.Close()

	s, fb := newTestStore(t, repoSrv)
	err := s.Install(context.Background(), "foo", nil)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", fb.installed["foo"])
}
