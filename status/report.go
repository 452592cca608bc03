package status

import (
	"sync"

	"github.com/divvun/pahkat-go/pkgkey"
	"github.com/divvun/pahkat-go/repoindex"
)

// query is one package to resolve status for.
type query struct {
	Key      pkgkey.Key
	Pkg      repoindex.PackageDescriptor
	Platform string
	Target   Target
}

// ResolveBatch resolves the status of many packages concurrently, one
// goroutine per query, and returns results in the same order as queries.
// Modeled on a fan-out-then-join report pattern: independent lookups run
// in parallel, results are collected once all goroutines finish.
func ResolveBatch(queries []query, lookup ReceiptLookup, skipped func(pkgkey.Key) (string, bool)) []Result {
	results := make([]Result, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q query) {
			defer wg.Done()
			skippedVersion, skippedOK := skipped(q.Key)
			res, err := Resolve(q.Key, q.Pkg, q.Platform, lookup, q.Target, skippedVersion, skippedOK)
			if err != nil {
				res = Result{Key: q.Key, Err: err}
			}
			results[i] = res
		}(i, q)
	}
	wg.Wait()

	return results
}

// NewQuery builds a query for ResolveBatch.
func NewQuery(key pkgkey.Key, pkg repoindex.PackageDescriptor, platform string, target Target) query {
	return query{Key: key, Pkg: pkg, Platform: platform, Target: target}
}
