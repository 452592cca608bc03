// Package dependency implements the dependency resolver of spec.md §4.4:
// it expands a root package key into an ordered closure of actions needed
// to satisfy an install or uninstall, crossing repository boundaries and
// detecting cycles.
package dependency

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/divvun/pahkat-go/pahkaterr"
	"github.com/divvun/pahkat-go/pkgkey"
	"github.com/divvun/pahkat-go/repoindex"
	"github.com/divvun/pahkat-go/status"
)

// Action is one entry of a resolved closure.
type Action struct {
	Key             pkgkey.Key
	RequiredVersion string
	CurrentStatus   status.State
	Depth           int
	NoOp            bool
}

// Repository is the minimal view the resolver needs of a loaded repo: a
// lookup by package id plus the base URL/channel used to build keys.
type Repository struct {
	URL      string
	Channel  string
	Packages map[string]repoindex.PackageDescriptor
}

// ReceiptLookup is re-exported so callers can pass the same backend
// implementation used for status resolution.
type ReceiptLookup = status.ReceiptLookup

// Resolver expands dependency closures across a fixed, ordered set of
// repositories (config's repo list order is the tie-break order).
type Resolver struct {
	repos    []Repository
	lookup   ReceiptLookup
	platform string
	target   status.Target
}

// New constructs a Resolver over repos, in config-list order (first match
// wins when a package id exists in more than one repo). target scopes every
// status lookup the resolver performs while expanding a closure.
func New(repos []Repository, lookup ReceiptLookup, platform string, target status.Target) *Resolver {
	return &Resolver{repos: repos, lookup: lookup, platform: platform, target: target}
}

// ResolveInstall expands the dependency closure required to install id,
// returning an ordered list with the root last. Already up-to-date
// dependencies are retained in the list, marked NoOp.
func (r *Resolver) ResolveInstall(id string) ([]Action, error) {
	visited := make(map[string]bool)
	stack := make(map[string]bool)
	var order []Action

	var visit func(id string, depth int) error
	visit = func(id string, depth int) error {
		if stack[id] {
			return pahkaterr.New(pahkaterr.ResolveCycle, fmt.Errorf("dependency cycle at %q", id))
		}
		if visited[id] {
			return nil
		}
		stack[id] = true
		defer delete(stack, id)

		key, pkg, repo, err := r.lookupPackage(id)
		if err != nil {
			return err
		}

		for depID, constraintStr := range pkg.Dependencies {
			if err := r.checkConstraintSatisfiable(depID, constraintStr); err != nil {
				return err
			}
			if err := visit(depID, depth+1); err != nil {
				return err
			}
		}

		res, err := status.Resolve(key, pkg, r.platform, r.lookup, r.target, "", false)
		if err != nil {
			return err
		}

		visited[id] = true
		order = append(order, Action{
			Key:             key,
			RequiredVersion: pkg.Version,
			CurrentStatus:   res.State,
			Depth:           depth,
			NoOp:            res.State == status.StateUpToDate,
		})
		_ = repo
		return nil
	}

	if err := visit(id, 0); err != nil {
		return nil, err
	}
	return order, nil
}

// ResolveUninstall reverse-expands the closure: every loaded package whose
// dependency closure contains id, root last. No-op (not-installed)
// packages are skipped entirely.
func (r *Resolver) ResolveUninstall(id string) ([]Action, error) {
	dependents := make(map[string][]string)
	for _, repo := range r.repos {
		for pkgID, pkg := range repo.Packages {
			for depID := range pkg.Dependencies {
				dependents[depID] = append(dependents[depID], pkgID)
			}
		}
	}

	visited := make(map[string]bool)
	var order []Action

	var visit func(id string, depth int) error
	visit = func(id string, depth int) error {
		if visited[id] {
			return nil
		}
		visited[id] = true

		for _, dependentID := range dependents[id] {
			if err := visit(dependentID, depth+1); err != nil {
				return err
			}
		}

		key, pkg, _, err := r.lookupPackage(id)
		if err != nil {
			return err
		}
		res, err := status.Resolve(key, pkg, r.platform, r.lookup, r.target, "", false)
		if err != nil {
			return err
		}
		if res.State == status.StateNotInstalled {
			return nil
		}

		order = append(order, Action{
			Key:             key,
			RequiredVersion: pkg.Version,
			CurrentStatus:   res.State,
			Depth:           depth,
		})
		return nil
	}

	if err := visit(id, 0); err != nil {
		return nil, err
	}
	// Root last: visit appends every dependent before the package it
	// depends on, so order already ends with id.
	return order, nil
}

func (r *Resolver) lookupPackage(id string) (pkgkey.Key, repoindex.PackageDescriptor, Repository, error) {
	for _, repo := range r.repos {
		if pkg, ok := repo.Packages[id]; ok {
			key := pkgkey.New(repo.URL, id, repo.Channel)
			return key, pkg, repo, nil
		}
	}
	return pkgkey.Key{}, repoindex.PackageDescriptor{}, Repository{}, pahkaterr.New(pahkaterr.ResolvePackageNotFound, fmt.Errorf("package %q not found in any loaded repository", id))
}

func (r *Resolver) checkConstraintSatisfiable(id, constraintStr string) error {
	_, pkg, _, err := r.lookupPackage(id)
	if err != nil {
		return err
	}
	if constraintStr == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(constraintStr)
	if err != nil {
		return pahkaterr.New(pahkaterr.ResolveVersionNotFound, fmt.Errorf("invalid version predicate %q for %q: %w", constraintStr, id, err))
	}
	version, err := semver.NewVersion(pkg.Version)
	if err != nil {
		return pahkaterr.New(pahkaterr.ResolveVersionNotFound, fmt.Errorf("package %q has unparsable version %q: %w", id, pkg.Version, err))
	}
	if !constraint.Check(version) {
		return pahkaterr.New(pahkaterr.ResolveVersionNotFound, fmt.Errorf("package %q version %q does not satisfy %q", id, pkg.Version, constraintStr))
	}
	return nil
}
