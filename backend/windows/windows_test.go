package windows

import (
	"context"
	"testing"

	"github.com/divvun/pahkat-go/backend"
	"github.com/divvun/pahkat-go/pahkaterr"
	"github.com/divvun/pahkat-go/pkgkey"
	"github.com/divvun/pahkat-go/repoindex"
	"github.com/divvun/pahkat-go/syscmd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	values map[Hive]map[string]string
}

func (f fakeRegistry) OpenKey(hive Hive, path string) (string, bool, error) {
	v, ok := f.values[hive][path]
	return v, ok, nil
}

func testKey(t *testing.T) pkgkey.Key {
	t.Helper()
	return pkgkey.New("https://pahkat.example/repo/", "foo", "stable")
}

func msiPkg() repoindex.PackageDescriptor {
	return repoindex.PackageDescriptor{
		ID:      "foo",
		Version: "1.0.0",
		Installer: &repoindex.Installer{
			Kind: repoindex.InstallerWindows,
			Windows: &repoindex.WindowsInstaller{
				URL:           "https://example.com/foo.msi",
				ProductCode:   "{ABCDEF00-0000-0000-0000-000000000000}",
				InstallerType: "msi",
			},
		},
	}
}

func TestWindowsInstallUsesMsiexec(t *testing.T) {
	runner := syscmd.NewFakeRunner()
	runner.OnCommand("msiexec", syscmd.Response{})

	b := New(runner, fakeRegistry{})
	err := b.Install(context.Background(), testKey(t), msiPkg(), `C:\cache\foo.msi`, backend.TargetSystem)
	require.NoError(t, err)
	require.Len(t, runner.Invocations, 1)
	assert.Equal(t, "msiexec", runner.Invocations[0].Name)
	assert.Contains(t, runner.Invocations[0].Args, `C:\cache\foo.msi`)
}

func TestWindowsInstallFailsOnNonZeroExit(t *testing.T) {
	runner := syscmd.NewFakeRunner()
	runner.OnCommand("msiexec", syscmd.Response{Err: assert.AnError, Stderr: []byte("install failed")})

	b := New(runner, fakeRegistry{})
	err := b.Install(context.Background(), testKey(t), msiPkg(), `C:\cache\foo.msi`, backend.TargetSystem)
	require.Error(t, err)
	assert.True(t, pahkaterr.Is(err, pahkaterr.InstallNativeToolFailed))
}

func TestWindowsInstalledReadsRegistry(t *testing.T) {
	pkg := msiPkg()
	path := uninstallKeyPath(pkg.Installer.Windows.ProductCode)
	reg := fakeRegistry{values: map[Hive]map[string]string{
		HiveLocalMachine: {path: "1.0.0"},
	}}

	b := New(syscmd.NewFakeRunner(), reg)
	receipt, ok, err := b.Installed(testKey(t), pkg, backend.TargetSystem)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1.0.0", receipt.Version)
}

func TestWindowsNotInstalled(t *testing.T) {
	b := New(syscmd.NewFakeRunner(), fakeRegistry{})
	_, ok, err := b.Installed(testKey(t), msiPkg(), backend.TargetSystem)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWindowsInstalledIsScopedToTarget(t *testing.T) {
	pkg := msiPkg()
	path := uninstallKeyPath(pkg.Installer.Windows.ProductCode)
	reg := fakeRegistry{values: map[Hive]map[string]string{
		HiveLocalMachine: {path: "1.0.0"},
	}}
	b := New(syscmd.NewFakeRunner(), reg)

	_, ok, err := b.Installed(testKey(t), pkg, backend.TargetUser)
	require.NoError(t, err)
	assert.False(t, ok, "a system-hive receipt must not be visible when queried under target: user")

	_, ok, err = b.Installed(testKey(t), pkg, backend.TargetSystem)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWindowsUninstallRunsMsiexec(t *testing.T) {
	runner := syscmd.NewFakeRunner()
	runner.OnCommand("msiexec", syscmd.Response{})

	b := New(runner, fakeRegistry{})
	err := b.Uninstall(context.Background(), testKey(t), msiPkg(), backend.TargetSystem)
	require.NoError(t, err)
	require.Len(t, runner.Invocations, 1)
	assert.Contains(t, runner.Invocations[0].Args, "/x")
}
