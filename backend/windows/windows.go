// Package windows implements the Windows backend of spec.md §4.6:
// installs via the silent-install arguments of an MSI/EXE installer,
// reads the uninstall registry key for status, and runs the registered
// uninstall command on removal.
package windows

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/divvun/pahkat-go/backend"
	"github.com/divvun/pahkat-go/pahkaterr"
	"github.com/divvun/pahkat-go/pkgkey"
	"github.com/divvun/pahkat-go/repoindex"
	"github.com/divvun/pahkat-go/status"
	"github.com/divvun/pahkat-go/syscmd"
)

// Hive names a registry hive without depending on
// golang.org/x/sys/windows/registry, so this package (and its tests)
// compile on any host; only the production RegistryOpener implementation
// in registry_opener.go requires GOOS=windows.
type Hive int

const (
	HiveLocalMachine Hive = iota
	HiveCurrentUser
)

// RegistryOpener abstracts reading the uninstall registry key so tests
// can substitute a fake hive without a real Windows host.
type RegistryOpener interface {
	OpenKey(hive Hive, path string) (value string, present bool, err error)
}

// Backend implements backend.Backend for Windows MSI/EXE installers.
type Backend struct {
	runner syscmd.Runner
	reg    RegistryOpener
}

// New constructs a Windows Backend.
func New(runner syscmd.Runner, reg RegistryOpener) *Backend {
	return &Backend{runner: runner, reg: reg}
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return "windows" }

// DownloadPath implements backend.Backend.
func (b *Backend) DownloadPath(key pkgkey.Key, pkg repoindex.PackageDescriptor, cacheDir string) (string, error) {
	if pkg.Installer == nil || pkg.Installer.Windows == nil {
		return "", pahkaterr.New(pahkaterr.StatusWrongInstallerType, fmt.Errorf("package %s has no windows installer", pkg.ID)).WithKey(key)
	}
	ext := ".exe"
	if pkg.Installer.Windows.InstallerType == "msi" {
		ext = ".msi"
	}
	return filepath.Join(cacheDir, pkg.ID+ext), nil
}

// Install runs the installer executable with its silent-install
// arguments (or type-derived defaults); a non-zero exit is a failure.
func (b *Backend) Install(ctx context.Context, key pkgkey.Key, pkg repoindex.PackageDescriptor, artifactPath string, target backend.Target) error {
	if pkg.Installer == nil || pkg.Installer.Windows == nil {
		return pahkaterr.New(pahkaterr.StatusWrongInstallerType, fmt.Errorf("package %s has no windows installer", pkg.ID)).WithKey(key)
	}
	w := pkg.Installer.Windows

	args := w.SilentInstallArgs
	if len(args) == 0 {
		args = defaultInstallArgs(w.InstallerType, artifactPath)
	}

	name := artifactPath
	if w.InstallerType == "msi" {
		name = "msiexec"
		args = append([]string{"/i", artifactPath}, args...)
	}

	_, stderr, err := b.runner.Run(ctx, name, args, nil)
	if err != nil {
		return pahkaterr.New(pahkaterr.InstallNativeToolFailed, err).WithKey(key).WithStderr(stderr)
	}
	return nil
}

// Uninstall runs the registered uninstall command plus silent args.
func (b *Backend) Uninstall(ctx context.Context, key pkgkey.Key, pkg repoindex.PackageDescriptor, target backend.Target) error {
	if pkg.Installer == nil || pkg.Installer.Windows == nil {
		return pahkaterr.New(pahkaterr.StatusWrongInstallerType, fmt.Errorf("package %s has no windows installer", pkg.ID)).WithKey(key)
	}
	w := pkg.Installer.Windows

	args := w.SilentUninstallArgs
	if w.InstallerType == "msi" {
		args = append([]string{"/x", w.ProductCode}, args...)
		_, stderr, err := b.runner.Run(ctx, "msiexec", args, nil)
		if err != nil {
			return pahkaterr.New(pahkaterr.UninstallNativeToolFailed, err).WithKey(key).WithStderr(stderr)
		}
		return nil
	}

	_, stderr, err := b.runner.Run(ctx, w.ProductCode, args, nil)
	if err != nil {
		return pahkaterr.New(pahkaterr.UninstallNativeToolFailed, err).WithKey(key).WithStderr(stderr)
	}
	return nil
}

// Installed implements status.ReceiptLookup by reading the uninstall
// registry key at pkg's product code under the hive matched to target:
// LOCAL_MACHINE for a system install, CURRENT_USER for a user install.
// It never checks the other hive — a package installed for one target
// must report not-installed when queried against the other.
func (b *Backend) Installed(key pkgkey.Key, pkg repoindex.PackageDescriptor, target backend.Target) (status.Receipt, bool, error) {
	if pkg.Installer == nil || pkg.Installer.Windows == nil {
		return status.Receipt{}, false, pahkaterr.New(pahkaterr.StatusWrongInstallerType, fmt.Errorf("package %s has no windows installer", pkg.ID)).WithKey(key)
	}

	hive := HiveLocalMachine
	if target == backend.TargetUser {
		hive = HiveCurrentUser
	}

	path := uninstallKeyPath(pkg.Installer.Windows.ProductCode)
	version, present, err := b.reg.OpenKey(hive, path)
	if err != nil {
		return status.Receipt{}, false, pahkaterr.New(pahkaterr.StatusParsingVersion, err).WithKey(key)
	}
	if !present {
		return status.Receipt{}, false, nil
	}
	return status.Receipt{Version: version}, true, nil
}

func uninstallKeyPath(productCode string) string {
	return `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall\` + productCode
}

func defaultInstallArgs(installerType, artifactPath string) []string {
	switch installerType {
	case "inno":
		return []string{"/VERYSILENT", "/SUPPRESSMSGBOXES", "/NORESTART"}
	default:
		return []string{"/qn", "/norestart"}
	}
}
