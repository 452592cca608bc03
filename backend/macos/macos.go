// Package macos implements the macOS backend of spec.md §4.6: installs
// via the OS installer tool, reads receipts via pkgutil's plist output,
// and uninstalls by replaying the receipt's recorded paths.
package macos

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/divvun/pahkat-go/backend"
	"github.com/divvun/pahkat-go/pahkaterr"
	"github.com/divvun/pahkat-go/pkgkey"
	"github.com/divvun/pahkat-go/repoindex"
	"github.com/divvun/pahkat-go/status"
	"github.com/divvun/pahkat-go/syscmd"
)

// Backend implements backend.Backend for macOS .pkg installers.
type Backend struct {
	runner syscmd.Runner
}

// New constructs a macOS Backend using runner for all native tool calls.
func New(runner syscmd.Runner) *Backend {
	return &Backend{runner: runner}
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return "macos" }

// DownloadPath implements backend.Backend.
func (b *Backend) DownloadPath(key pkgkey.Key, pkg repoindex.PackageDescriptor, cacheDir string) (string, error) {
	if pkg.Installer == nil || pkg.Installer.MacOS == nil {
		return "", pahkaterr.New(pahkaterr.StatusWrongInstallerType, fmt.Errorf("package %s has no macos installer", pkg.ID)).WithKey(key)
	}
	return filepath.Join(cacheDir, pkg.ID+".pkg"), nil
}

// Install invokes `installer` with the downloaded .pkg, mapping target to
// the tool's -target flag (a per-user home directory for user, the local
// volume for system).
func (b *Backend) Install(ctx context.Context, key pkgkey.Key, pkg repoindex.PackageDescriptor, artifactPath string, target backend.Target) error {
	if pkg.Installer == nil || pkg.Installer.MacOS == nil {
		return pahkaterr.New(pahkaterr.StatusWrongInstallerType, fmt.Errorf("package %s has no macos installer", pkg.ID)).WithKey(key)
	}

	installTarget := "/"
	if target == backend.TargetUser {
		installTarget = "CurrentUserHomeDirectory"
	}

	_, stderr, err := b.runner.Run(ctx, "installer", []string{
		"-pkg", artifactPath,
		"-target", installTarget,
	}, nil)
	if err != nil {
		return pahkaterr.New(pahkaterr.InstallNativeToolFailed, err).WithKey(key).WithStderr(stderr)
	}
	return nil
}

// Uninstall consults the receipt, deletes recorded files then empty
// directories in depth-descending order, then forgets the receipt.
func (b *Backend) Uninstall(ctx context.Context, key pkgkey.Key, pkg repoindex.PackageDescriptor, target backend.Target) error {
	if pkg.Installer == nil || pkg.Installer.MacOS == nil {
		return pahkaterr.New(pahkaterr.StatusWrongInstallerType, fmt.Errorf("package %s has no macos installer", pkg.ID)).WithKey(key)
	}
	bundleID := pkg.Installer.MacOS.BundleID

	volume, err := volumeArgs(target)
	if err != nil {
		return pahkaterr.New(pahkaterr.UninstallNativeToolFailed, err).WithKey(key)
	}

	stdout, stderr, err := b.runner.Run(ctx, "pkgutil", append([]string{"--files", bundleID}, volume...), nil)
	if err != nil {
		return pahkaterr.New(pahkaterr.UninstallNativeToolFailed, err).WithKey(key).WithStderr(stderr)
	}

	var files, dirs []string
	for _, line := range strings.Split(string(stdout), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, "/") {
			dirs = append(dirs, strings.TrimSuffix(line, "/"))
		} else {
			files = append(files, line)
		}
	}

	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return pahkaterr.New(pahkaterr.UninstallNativeToolFailed, err).WithKey(key)
		}
	}

	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], "/") > strings.Count(dirs[j], "/")
	})
	for _, d := range dirs {
		_ = os.Remove(d)
	}

	_, stderr, err = b.runner.Run(ctx, "pkgutil", append([]string{"--forget", bundleID}, volume...), nil)
	if err != nil {
		return pahkaterr.New(pahkaterr.UninstallNativeToolFailed, err).WithKey(key).WithStderr(stderr)
	}
	return nil
}

// volumeArgs returns the pkgutil arguments that scope a receipt query
// or mutation to target: the system volume by default, or the current
// user's home directory for a user-scoped install, matching the
// `-target CurrentUserHomeDirectory` install used in Install.
func volumeArgs(target backend.Target) ([]string, error) {
	if target != backend.TargetUser {
		return nil, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving user home for pkgutil --volume: %w", err)
	}
	return []string{"--volume", home}, nil
}

// plistDict mirrors the subset of `pkgutil --pkg-info-plist` output we
// need: a top-level <dict> containing a "pkg-version" string keyed
// alongside "pkgid". No plist library exists in the retrieved corpus, so
// this decodes the XML directly (see DESIGN.md).
type plistDict struct {
	XMLName xml.Name `xml:"plist"`
	Dict    struct {
		Keys    []string `xml:"key"`
		Strings []string `xml:"string"`
	} `xml:"dict"`
}

// Installed implements status.ReceiptLookup by shelling out to
// `pkgutil --pkg-info-plist` for pkg's bundle id, scoped to target's
// receipt volume, and parsing the resulting bundle-id → version mapping.
func (b *Backend) Installed(key pkgkey.Key, pkg repoindex.PackageDescriptor, target backend.Target) (status.Receipt, bool, error) {
	if pkg.Installer == nil || pkg.Installer.MacOS == nil {
		return status.Receipt{}, false, pahkaterr.New(pahkaterr.StatusWrongInstallerType, fmt.Errorf("package %s has no macos installer", pkg.ID)).WithKey(key)
	}
	bundleID := pkg.Installer.MacOS.BundleID

	volume, err := volumeArgs(target)
	if err != nil {
		return status.Receipt{}, false, pahkaterr.New(pahkaterr.StatusParsingVersion, err).WithKey(key)
	}

	stdout, _, err := b.runner.Run(context.Background(), "pkgutil", append([]string{"--pkg-info-plist", bundleID}, volume...), nil)
	if err != nil {
		return status.Receipt{}, false, nil
	}

	var dict plistDict
	if err := xml.Unmarshal(stdout, &dict); err != nil {
		return status.Receipt{}, false, pahkaterr.New(pahkaterr.StatusParsingVersion, err)
	}

	for i, k := range dict.Dict.Keys {
		if k == "pkg-version" && i < len(dict.Dict.Strings) {
			return status.Receipt{Version: dict.Dict.Strings[i]}, true, nil
		}
	}
	return status.Receipt{}, false, nil
}
