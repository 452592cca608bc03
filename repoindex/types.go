package repoindex

// RootIndex is the root `index.json` document of a repository, as
// described by spec.md §6.
type RootIndex struct {
	Name            map[string]string `json:"name"`
	Description     map[string]string `json:"description"`
	BaseURL         string            `json:"base_url" validate:"required,url"`
	PrimaryFilter   string            `json:"primary_filter" validate:"required,oneof=category language"`
	DefaultChannel  string            `json:"default_channel" validate:"required"`
	Channels        []string          `json:"channels"`
	Categories      map[string]string `json:"categories"`

	// Packages enumerates the package ids this repository publishes; the
	// loader fetches `packages/<id>/index.json` (default channel) or
	// `packages/<id>/index.<channel>.json` for each one.
	// spec.md §4.2 is silent on the exact discovery mechanism — this
	// field is the concrete resolution (see DESIGN.md).
	Packages []string `json:"packages"`
}

// PlatformPredicate names a supported host platform and an optional
// version comparator (e.g. ">=10.15").
type PlatformPredicate struct {
	Platform   string `json:"platform" validate:"required,oneof=macos windows linux"`
	Comparator string `json:"comparator,omitempty"`
}

// InstallerKind discriminates the three installer variants of spec.md §3.
type InstallerKind string

const (
	InstallerMacOSPkg InstallerKind = "macos"
	InstallerWindows  InstallerKind = "windows"
	InstallerTarball  InstallerKind = "tarball"
)

// MacOSInstaller is the macOS-pkg installer variant.
type MacOSInstaller struct {
	URL                 string   `json:"url" validate:"required,url"`
	BundleID            string   `json:"bundleId" validate:"required"`
	Targets             []string `json:"targets" validate:"required,dive,oneof=system user"`
	SizeOnDisk          int64    `json:"size"`
	DownloadSize        int64    `json:"downloadSize"`
	RequiresRebootInstall   bool `json:"requiresRebootInstall"`
	RequiresRebootUninstall bool `json:"requiresRebootUninstall"`
	Signature           string   `json:"signature,omitempty"`
}

// WindowsInstaller is the Windows MSI/EXE installer variant.
type WindowsInstaller struct {
	URL                     string   `json:"url" validate:"required,url"`
	ProductCode             string   `json:"productCode" validate:"required"`
	InstallerType           string   `json:"installerType,omitempty" validate:"omitempty,oneof=msi inno"`
	SilentInstallArgs       []string `json:"silentInstallArgs,omitempty"`
	SilentUninstallArgs     []string `json:"silentUninstallArgs,omitempty"`
	SizeOnDisk              int64    `json:"size"`
	DownloadSize            int64    `json:"downloadSize"`
	RequiresRebootInstall   bool     `json:"requiresRebootInstall"`
	RequiresRebootUninstall bool     `json:"requiresRebootUninstall"`
	Signature               string   `json:"signature,omitempty"`
}

// TarballInstaller is the portable prefix-backend installer variant. Its
// artifact is a zstd-compressed tarball (see DESIGN.md for why this
// substitutes the original xz format).
type TarballInstaller struct {
	URL          string `json:"url" validate:"required,url"`
	DownloadSize int64  `json:"downloadSize"`
	InstalledSize int64 `json:"installedSize"`
}

// Installer is a tagged union over the three installer variants. Exactly
// one of the typed fields is populated, matching Kind.
type Installer struct {
	Kind    InstallerKind     `json:"kind"`
	MacOS   *MacOSInstaller   `json:"macos,omitempty"`
	Windows *WindowsInstaller `json:"windows,omitempty"`
	Tarball *TarballInstaller `json:"tarball,omitempty"`
}

// PackageDescriptor is immutable once loaded, per spec.md §3.
type PackageDescriptor struct {
	ID                 string              `json:"id" validate:"required"`
	Name               map[string]string   `json:"name"`
	Description        map[string]string   `json:"description"`
	Version            string              `json:"version" validate:"required,semver"`
	Category           string              `json:"category,omitempty"`
	Languages          []string            `json:"languages,omitempty"`
	Platforms          []PlatformPredicate `json:"platforms,omitempty" validate:"dive"`
	Dependencies       map[string]string   `json:"dependencies,omitempty"`
	VirtualDependencies map[string]string  `json:"virtualDependencies,omitempty"`
	Installer          *Installer          `json:"installer,omitempty"`
}

// LoadedRepository is the in-memory snapshot produced by Loader.Load. Its
// Packages map is read-only after construction; a refresh produces a new
// snapshot, it never mutates an existing one in place.
type LoadedRepository struct {
	Root      RootIndex
	Packages  map[string]PackageDescriptor
	CacheDir  string
	URL       string
	Channel   string
}

// Package looks up a descriptor by id.
func (r *LoadedRepository) Package(id string) (PackageDescriptor, bool) {
	pkg, ok := r.Packages[id]
	return pkg, ok
}
