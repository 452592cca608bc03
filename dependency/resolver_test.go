package dependency

import (
	"testing"

	"github.com/divvun/pahkat-go/pahkaterr"
	"github.com/divvun/pahkat-go/pkgkey"
	"github.com/divvun/pahkat-go/repoindex"
	"github.com/divvun/pahkat-go/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	installed map[string]string
}

func (f fakeLookup) Installed(key pkgkey.Key, pkg repoindex.PackageDescriptor, target status.Target) (status.Receipt, bool, error) {
	v, ok := f.installed[key.ID]
	if !ok {
		return status.Receipt{}, false, nil
	}
	return status.Receipt{Version: v}, true, nil
}

func tarballPkg(id, version string, deps map[string]string) repoindex.PackageDescriptor {
	return repoindex.PackageDescriptor{
		ID:           id,
		Version:      version,
		Dependencies: deps,
		Installer: &repoindex.Installer{
			Kind:    repoindex.InstallerTarball,
			Tarball: &repoindex.TarballInstaller{URL: "https://example.com/" + id + ".tar.zst"},
		},
	}
}

func TestResolveInstallSimpleChain(t *testing.T) {
	repo := Repository{
		URL:     "https://pahkat.example/repo/",
		Channel: "stable",
		Packages: map[string]repoindex.PackageDescriptor{
			"app": tarballPkg("app", "1.0.0", map[string]string{"lib": ""}),
			"lib": tarballPkg("lib", "2.0.0", nil),
		},
	}
	r := New([]Repository{repo}, fakeLookup{installed: map[string]string{}}, "linux", status.TargetSystem)

	actions, err := r.ResolveInstall("app")
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "lib", actions[0].Key.ID)
	assert.Equal(t, "app", actions[1].Key.ID)
	assert.Equal(t, 1, actions[0].Depth)
	assert.Equal(t, 0, actions[1].Depth)
}

func TestResolveInstallMarksUpToDateAsNoOp(t *testing.T) {
	repo := Repository{
		URL:     "https://pahkat.example/repo/",
		Channel: "stable",
		Packages: map[string]repoindex.PackageDescriptor{
			"app": tarballPkg("app", "1.0.0", nil),
		},
	}
	r := New([]Repository{repo}, fakeLookup{installed: map[string]string{"app": "1.0.0"}}, "linux", status.TargetSystem)

	actions, err := r.ResolveInstall("app")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.True(t, actions[0].NoOp)
	assert.Equal(t, status.StateUpToDate, actions[0].CurrentStatus)
}

func TestResolveInstallDetectsCycle(t *testing.T) {
	repo := Repository{
		URL:     "https://pahkat.example/repo/",
		Channel: "stable",
		Packages: map[string]repoindex.PackageDescriptor{
			"a": tarballPkg("a", "1.0.0", map[string]string{"b": ""}),
			"b": tarballPkg("b", "1.0.0", map[string]string{"a": ""}),
		},
	}
	r := New([]Repository{repo}, fakeLookup{installed: map[string]string{}}, "linux", status.TargetSystem)

	_, err := r.ResolveInstall("a")
	require.Error(t, err)
	assert.True(t, pahkaterr.Is(err, pahkaterr.ResolveCycle))
}

func TestResolveInstallMissingPackage(t *testing.T) {
	repo := Repository{
		URL:      "https://pahkat.example/repo/",
		Channel:  "stable",
		Packages: map[string]repoindex.PackageDescriptor{},
	}
	r := New([]Repository{repo}, fakeLookup{installed: map[string]string{}}, "linux", status.TargetSystem)

	_, err := r.ResolveInstall("ghost")
	require.Error(t, err)
	assert.True(t, pahkaterr.Is(err, pahkaterr.ResolvePackageNotFound))
}

func TestResolveInstallUnsatisfiableVersionPredicate(t *testing.T) {
	repo := Repository{
		URL:     "https://pahkat.example/repo/",
		Channel: "stable",
		Packages: map[string]repoindex.PackageDescriptor{
			"app": tarballPkg("app", "1.0.0", map[string]string{"lib": ">=3.0.0"}),
			"lib": tarballPkg("lib", "2.0.0", nil),
		},
	}
	r := New([]Repository{repo}, fakeLookup{installed: map[string]string{}}, "linux", status.TargetSystem)

	_, err := r.ResolveInstall("app")
	require.Error(t, err)
	assert.True(t, pahkaterr.Is(err, pahkaterr.ResolveVersionNotFound))
}

func TestResolveUninstallIncludesDependents(t *testing.T) {
	repo := Repository{
		URL:     "https://pahkat.example/repo/",
		Channel: "stable",
		Packages: map[string]repoindex.PackageDescriptor{
			"app": tarballPkg("app", "1.0.0", map[string]string{"lib": ""}),
			"lib": tarballPkg("lib", "2.0.0", nil),
		},
	}
	r := New([]Repository{repo}, fakeLookup{installed: map[string]string{"app": "1.0.0", "lib": "2.0.0"}}, "linux", status.TargetSystem)

	actions, err := r.ResolveUninstall("lib")
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "app", actions[0].Key.ID)
	assert.Equal(t, "lib", actions[1].Key.ID)
}

func TestResolveUninstallSkipsNotInstalled(t *testing.T) {
	repo := Repository{
		URL:     "https://pahkat.example/repo/",
		Channel: "stable",
		Packages: map[string]repoindex.PackageDescriptor{
			"app": tarballPkg("app", "1.0.0", map[string]string{"lib": ""}),
			"lib": tarballPkg("lib", "2.0.0", nil),
		},
	}
	r := New([]Repository{repo}, fakeLookup{installed: map[string]string{"lib": "2.0.0"}}, "linux", status.TargetSystem)

	actions, err := r.ResolveUninstall("lib")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "lib", actions[0].Key.ID)
}
