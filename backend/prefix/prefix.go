// Package prefix implements the prefix backend of spec.md §4.6: installs
// a zstd-compressed tarball into a user-chosen sandbox directory and
// tracks installed files and versions in a private SQLite receipt
// database.
package prefix

import (
	"archive/tar"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/divvun/pahkat-go/backend"
	"github.com/divvun/pahkat-go/pahkaterr"
	"github.com/divvun/pahkat-go/pkgkey"
	"github.com/divvun/pahkat-go/repoindex"
	"github.com/divvun/pahkat-go/status"
	"github.com/klauspost/compress/zstd"
)

// Backend implements backend.Backend for the prefix sandbox. One Backend
// instance is bound to a single prefix directory.
type Backend struct {
	dir string
	db  *sql.DB
}

// New opens (or creates) the receipt database under dir/.pahkat-prefix.db
// and returns a Backend rooted at dir.
func New(dir string) (*Backend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("prefix: create prefix dir: %w", err)
	}
	db, err := openReceiptDB(filepath.Join(dir, ".pahkat-prefix.db"))
	if err != nil {
		return nil, err
	}
	return &Backend{dir: dir, db: db}, nil
}

// Close releases the receipt database handle.
func (b *Backend) Close() error {
	return b.db.Close()
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return "prefix" }

// DownloadPath implements backend.Backend.
func (b *Backend) DownloadPath(key pkgkey.Key, pkg repoindex.PackageDescriptor, cacheDir string) (string, error) {
	if pkg.Installer == nil || pkg.Installer.Tarball == nil {
		return "", pahkaterr.New(pahkaterr.StatusWrongInstallerType, fmt.Errorf("package %s has no tarball installer", pkg.ID)).WithKey(key)
	}
	return filepath.Join(cacheDir, pkg.ID+".tar.zst"), nil
}

// Install decompresses the zstd tarball and extracts its entries into the
// prefix, recording the file list and version in the receipt database.
// target is ignored: the prefix backend only ever targets {user}.
func (b *Backend) Install(ctx context.Context, key pkgkey.Key, pkg repoindex.PackageDescriptor, artifactPath string, target backend.Target) error {
	if pkg.Installer == nil || pkg.Installer.Tarball == nil {
		return pahkaterr.New(pahkaterr.StatusWrongInstallerType, fmt.Errorf("package %s has no tarball installer", pkg.ID)).WithKey(key)
	}

	f, err := os.Open(artifactPath)
	if err != nil {
		return pahkaterr.New(pahkaterr.InstallNativeToolFailed, err).WithKey(key)
	}
	defer f.Close()

	decoder, err := zstd.NewReader(f)
	if err != nil {
		return pahkaterr.New(pahkaterr.InstallNativeToolFailed, err).WithKey(key)
	}
	defer decoder.Close()

	var entries []string
	tr := tar.NewReader(decoder)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return pahkaterr.New(pahkaterr.InstallNativeToolFailed, err).WithKey(key)
		}

		destPath := filepath.Join(b.dir, hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(destPath, 0o755); err != nil {
				return pahkaterr.New(pahkaterr.InstallNativeToolFailed, err).WithKey(key)
			}
			entries = append(entries, hdr.Name+"/")
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
				return pahkaterr.New(pahkaterr.InstallNativeToolFailed, err).WithKey(key)
			}
			out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return pahkaterr.New(pahkaterr.InstallNativeToolFailed, err).WithKey(key)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return pahkaterr.New(pahkaterr.InstallNativeToolFailed, err).WithKey(key)
			}
			out.Close()
			entries = append(entries, hdr.Name)
		}
	}

	if err := b.recordReceipt(key, pkg.Version, entries); err != nil {
		return pahkaterr.New(pahkaterr.InstallNativeToolFailed, err).WithKey(key)
	}
	return nil
}

// Uninstall reads the recorded file list and removes files, then empty
// directories (deepest first).
func (b *Backend) Uninstall(ctx context.Context, key pkgkey.Key, pkg repoindex.PackageDescriptor, target backend.Target) error {
	entries, err := b.receiptEntries(key)
	if err != nil {
		return pahkaterr.New(pahkaterr.UninstallNativeToolFailed, err).WithKey(key)
	}

	var files, dirs []string
	for _, e := range entries {
		if strings.HasSuffix(e, "/") {
			dirs = append(dirs, strings.TrimSuffix(e, "/"))
		} else {
			files = append(files, e)
		}
	}

	for _, f := range files {
		if err := os.Remove(filepath.Join(b.dir, f)); err != nil && !os.IsNotExist(err) {
			return pahkaterr.New(pahkaterr.UninstallNativeToolFailed, err).WithKey(key)
		}
	}

	sort.Slice(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], "/") > strings.Count(dirs[j], "/")
	})
	for _, d := range dirs {
		_ = os.Remove(filepath.Join(b.dir, d))
	}

	if err := b.forgetReceipt(key); err != nil {
		return pahkaterr.New(pahkaterr.UninstallNativeToolFailed, err).WithKey(key)
	}
	return nil
}

// Installed implements status.ReceiptLookup by querying the receipt
// database. target is ignored for the same reason as in Install: the
// prefix backend only ever targets {user}.
func (b *Backend) Installed(key pkgkey.Key, pkg repoindex.PackageDescriptor, target backend.Target) (status.Receipt, bool, error) {
	var version string
	err := b.db.QueryRow(`SELECT version FROM packages WHERE key = ?`, key.String()).Scan(&version)
	if err == sql.ErrNoRows {
		return status.Receipt{}, false, nil
	}
	if err != nil {
		return status.Receipt{}, false, err
	}
	return status.Receipt{Version: version}, true, nil
}

func (b *Backend) recordReceipt(key pkgkey.Key, version string, entries []string) error {
	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO packages (key, version, installed_at) VALUES (?, ?, ?)`,
		key.String(), version, time.Now().Unix()); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM receipt_files WHERE package_key = ?`, key.String()); err != nil {
		return err
	}
	for _, e := range entries {
		isDir := 0
		path := e
		if strings.HasSuffix(e, "/") {
			isDir = 1
			path = strings.TrimSuffix(e, "/")
		}
		if _, err := tx.Exec(`INSERT INTO receipt_files (package_key, path, is_dir) VALUES (?, ?, ?)`,
			key.String(), path, isDir); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (b *Backend) receiptEntries(key pkgkey.Key) ([]string, error) {
	rows, err := b.db.Query(`SELECT path, is_dir FROM receipt_files WHERE package_key = ?`, key.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []string
	for rows.Next() {
		var path string
		var isDir int
		if err := rows.Scan(&path, &isDir); err != nil {
			return nil, err
		}
		if isDir == 1 {
			path += "/"
		}
		entries = append(entries, path)
	}
	return entries, rows.Err()
}

func (b *Backend) forgetReceipt(key pkgkey.Key) error {
	if _, err := b.db.Exec(`DELETE FROM receipt_files WHERE package_key = ?`, key.String()); err != nil {
		return err
	}
	_, err := b.db.Exec(`DELETE FROM packages WHERE key = ?`, key.String())
	return err
}
