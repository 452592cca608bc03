// Package status implements the package status resolver of spec.md §4.3:
// given a package descriptor, the host platform, and a receipt lookup, it
// decides whether a package is not installed, up to date, needs an update,
// skipped, or unresolvable because of a missing/mismatched installer.
package status

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/divvun/pahkat-go/pahkaterr"
	"github.com/divvun/pahkat-go/pkgkey"
	"github.com/divvun/pahkat-go/repoindex"
)

// Target is the install scope a status query applies to. It is defined
// here (rather than in package backend) so both status and backend can
// use it without an import cycle; backend.Target is an alias of this
// type.
type Target string

const (
	TargetSystem Target = "system"
	TargetUser   Target = "user"
)

// State is the outcome of resolving a package's install status.
type State string

const (
	StateNotInstalled   State = "not_installed"
	StateUpToDate       State = "up_to_date"
	StateRequiresUpdate State = "requires_update"
	StateSkipped        State = "skipped"
)

// Receipt is the minimal native-install record a backend reports for a
// package key, independent of which backend produced it.
type Receipt struct {
	Version string
}

// ReceiptLookup reports the currently installed version of a package, if
// any, scoped to target. Backends implement this directly; status never
// touches native tooling itself. The full descriptor is passed alongside
// the key because native receipt lookups key off installer-specific
// identifiers (a macOS bundle id, a Windows product code) that the key
// alone doesn't carry.
type ReceiptLookup interface {
	Installed(key pkgkey.Key, pkg repoindex.PackageDescriptor, target Target) (Receipt, bool, error)
}

// Result is the resolved status of one package. Err is set when
// resolution failed (e.g. missing or mismatched installer, unparsable
// version); State is the zero value in that case.
type Result struct {
	Key             pkgkey.Key
	State           State
	InstalledVersion string
	TargetVersion   string
	Err             error
}

// Resolve determines the status of pkg (identified by key) on platform,
// consulting lookup for any existing native receipt under target. When
// skippedOK is set and the installed receipt version equals
// skippedVersion, the package resolves to StateSkipped.
func Resolve(key pkgkey.Key, pkg repoindex.PackageDescriptor, platform string, lookup ReceiptLookup, target Target, skippedVersion string, skippedOK bool) (Result, error) {
	if pkg.Installer == nil {
		return Result{}, pahkaterr.New(pahkaterr.StatusNoInstaller, fmt.Errorf("package %s has no installer", pkg.ID)).WithKey(key)
	}
	if err := checkInstallerMatchesPlatform(pkg, platform); err != nil {
		return Result{}, err
	}

	targetVersion, err := semver.NewVersion(pkg.Version)
	if err != nil {
		return Result{}, pahkaterr.New(pahkaterr.StatusParsingVersion, err).WithKey(key)
	}

	receipt, installed, err := lookup.Installed(key, pkg, target)
	if err != nil {
		return Result{}, err
	}

	if !installed {
		return Result{Key: key, State: StateNotInstalled, TargetVersion: targetVersion.String()}, nil
	}

	if skippedOK && skippedVersion == receipt.Version {
		return Result{Key: key, State: StateSkipped, InstalledVersion: receipt.Version, TargetVersion: targetVersion.String()}, nil
	}

	installedVersion, err := semver.NewVersion(receipt.Version)
	if err != nil {
		return Result{}, pahkaterr.New(pahkaterr.StatusParsingVersion, fmt.Errorf("installed receipt version %q: %w", receipt.Version, err)).WithKey(key)
	}

	if installedVersion.Equal(targetVersion) || installedVersion.GreaterThan(targetVersion) {
		return Result{Key: key, State: StateUpToDate, InstalledVersion: installedVersion.String(), TargetVersion: targetVersion.String()}, nil
	}

	return Result{Key: key, State: StateRequiresUpdate, InstalledVersion: installedVersion.String(), TargetVersion: targetVersion.String()}, nil
}

func checkInstallerMatchesPlatform(pkg repoindex.PackageDescriptor, platform string) error {
	switch platform {
	case "macos":
		if pkg.Installer.Kind != repoindex.InstallerMacOSPkg {
			return pahkaterr.New(pahkaterr.StatusWrongInstallerType, fmt.Errorf("package %s has installer kind %q, want macos", pkg.ID, pkg.Installer.Kind))
		}
	case "windows":
		if pkg.Installer.Kind != repoindex.InstallerWindows {
			return pahkaterr.New(pahkaterr.StatusWrongInstallerType, fmt.Errorf("package %s has installer kind %q, want windows", pkg.ID, pkg.Installer.Kind))
		}
	default:
		if pkg.Installer.Kind != repoindex.InstallerTarball {
			return pahkaterr.New(pahkaterr.StatusWrongInstallerType, fmt.Errorf("package %s has installer kind %q, want tarball", pkg.ID, pkg.Installer.Kind))
		}
	}
	return nil
}
