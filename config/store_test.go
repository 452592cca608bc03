package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/divvun/pahkat-go/cachekey"
	"github.com/divvun/pahkat-go/pkgkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	s := newStore(path, defaultDocument(), nil)
	s.data.CachePath = filepath.Join(dir, "cache")
	return s, path
}

func TestAddRemoveRepo(t *testing.T) {
	s, path := newTestStore(t)

	record := RepoRecord{URL: "https://x.example/repo/", Channel: "stable"}
	require.NoError(t, s.AddRepo(record))
	assert.Equal(t, []RepoRecord{record}, s.Repos())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []RepoRecord{record}, reloaded.Repos())

	require.NoError(t, s.RemoveRepo(record))
	assert.Empty(t, s.Repos())
}

func TestAddRepoReplacesChannelOnSameURL(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.AddRepo(RepoRecord{URL: "https://x.example/repo/", Channel: "stable"}))
	require.NoError(t, s.AddRepo(RepoRecord{URL: "https://x.example/repo/", Channel: "beta"}))

	repos := s.Repos()
	require.Len(t, repos, 1)
	assert.Equal(t, "beta", repos[0].Channel)
}

func TestUpdateRepoOutOfRangeFails(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.UpdateRepo(3, RepoRecord{URL: "https://x.example/repo/", Channel: "stable"})
	assert.Error(t, err)
}

func TestRemoveRepoDeletesCacheDir(t *testing.T) {
	s, _ := newTestStore(t)
	record := RepoRecord{URL: "https://x.example/repo/", Channel: "stable"}
	require.NoError(t, s.AddRepo(record))

	cacheDir := filepath.Join(s.RepoCachePath(), cachekey.Hash(record.URL, record.Channel))
	require.NoError(t, os.MkdirAll(cacheDir, 0o755))

	require.NoError(t, s.RemoveRepo(record))
	assert.NoDirExists(t, cacheDir)
}

func TestSkippedPackageLifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	key := pkgkey.New("https://x.example/repo/", "foo", "stable")

	_, ok := s.SkippedPackage(key)
	assert.False(t, ok)

	require.NoError(t, s.AddSkippedPackage(key, "1.2.3"))
	v, ok := s.SkippedPackage(key)
	require.True(t, ok)
	assert.Equal(t, "1.2.3", v)

	require.NoError(t, s.RemoveSkippedPackage(key))
	_, ok = s.SkippedPackage(key)
	assert.False(t, ok)
}

func TestUIValueClearsOnEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.SetUIValue("theme", "dark"))
	v, ok := s.UIValue("theme")
	require.True(t, ok)
	assert.Equal(t, "dark", v)

	require.NoError(t, s.SetUIValue("theme", ""))
	_, ok = s.UIValue("theme")
	assert.False(t, ok)
}

func TestReadOnlyStoreRejectsMutation(t *testing.T) {
	s, _ := newTestStore(t)
	s.readOnly = true

	err := s.AddRepo(RepoRecord{URL: "https://x.example/repo/", Channel: "stable"})
	assert.Error(t, err)
}

func TestDefaultDocumentStoreWithMissingFileHasNoRepos(t *testing.T) {
	dir := t.TempDir()
	s := newStore(filepath.Join(dir, "nope", "config.toml"), defaultDocument(), nil)
	assert.Empty(t, s.Repos())
}
