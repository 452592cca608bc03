// Package pahkaterr implements the error taxonomy shared by every
// component of the package store engine. Every component surfaces its
// own Kind; the transaction engine wraps component errors with the
// offending package key before handing them to a caller.
package pahkaterr

import (
	"fmt"

	"github.com/divvun/pahkat-go/pkgkey"
)

// Kind discriminates the error taxonomy of the store engine's error
// handling design.
type Kind string

const (
	ConfigReadOnly Kind = "config/read-only"
	ConfigIO       Kind = "config/io"
	ConfigParse    Kind = "config/parse"

	RepoNetwork Kind = "repo/network"
	RepoParse   Kind = "repo/parse"

	StatusNoInstaller       Kind = "status/no-installer"
	StatusWrongInstallerType Kind = "status/wrong-installer-type"
	StatusParsingVersion    Kind = "status/parsing-version"

	ResolvePackageNotFound Kind = "resolve/package-not-found"
	ResolveVersionNotFound Kind = "resolve/version-not-found"
	ResolveCycle           Kind = "resolve/cycle"

	DownloadIO        Kind = "download/io"
	DownloadNetwork   Kind = "download/network"
	DownloadCancelled Kind = "download/cancelled"

	InstallPkgNotInCache    Kind = "install/pkg-not-in-cache"
	InstallNativeToolFailed Kind = "install/native-tool-failed"

	UninstallNativeToolFailed Kind = "uninstall/native-tool-failed"
)

// Error is the tagged sum type every public operation returns on
// failure. Key and Stderr are populated only where applicable.
type Error struct {
	Kind   Kind
	Key    *pkgkey.Key
	Stderr []byte
	Err    error
}

// New constructs an Error of the given kind wrapping cause. cause may be
// nil when the kind is self-descriptive (e.g. ResolveCycle).
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

// WithKey returns a copy of e annotated with the offending package key.
// Used by the transaction engine and resolvers to attach context without
// requiring every call site to thread the key through manually.
func (e *Error) WithKey(key pkgkey.Key) *Error {
	cp := *e
	cp.Key = &key
	return &cp
}

// WithStderr returns a copy of e carrying captured subprocess stderr,
// used by the native-tool install/uninstall error kinds.
func (e *Error) WithStderr(stderr []byte) *Error {
	cp := *e
	cp.Stderr = stderr
	return &cp
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Key != nil {
		msg += fmt.Sprintf(" (%s)", e.Key.String())
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	if len(e.Stderr) > 0 {
		msg += fmt.Sprintf(" [stderr: %s]", truncate(e.Stderr, 512))
	}
	return msg
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether err is a *Error of the given kind, unwrapping
// through any wrapping in between.
func Is(err error, kind Kind) bool {
	for err != nil {
		if pe, ok := err.(*Error); ok {
			return pe.Kind == kind
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
