// Package dataloader resolves delayed fixups by batch loading the principals
// that tracked dependents reference but that are not tracked yet.
//
// # Basic Usage
//
// Register a batch function per relationship. It receives the distinct
// missing keys and returns whatever principals it found, in any order:
//
//	loaded, err := dataloader.Resolve(ctx, tr,
//	    dataloader.Loader{
//	        Relationship: catalog.CategoryProducts,
//	        Load: func(ctx context.Context, keys [][]any) ([]any, error) {
//	            return store.CategoriesByID(ctx, keys)
//	        },
//	    },
//	)
//
// Loaders run concurrently. The principals they return are attached as
// Unchanged once every loader has finished, so fixup links them to their
// dependents on the tracker's own goroutine.
package dataloader

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/fixup"
	"github.com/syssam/fixup/graph"
	"github.com/syssam/fixup/tracking"
)

// ErrNotFound is reported for keys a batch function returned no principal for.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from an entity.
type KeyFunc[K comparable, V any] func(V) K

// BatchFunc loads the principals with the given keys. Each key holds one
// value per key property of the principal kind.
type BatchFunc func(ctx context.Context, keys [][]any) ([]any, error)

// Loader binds a batch function to a relationship by name.
type Loader struct {
	Relationship string
	Load         BatchFunc
}

// Result reports the outcome of one loader.
type Result struct {
	Relationship string
	Keys         [][]any
	// Entries are the attached principals, in key order.
	Entries []*tracking.Entry
	// Errs holds ErrNotFound for every key no principal was returned for.
	Errs []error
}

// Missing returns the distinct foreign keys of tracked dependents in r that
// reference no tracked principal, in attach order.
func Missing(tr *tracking.Tracker, r *graph.Relationship) [][]any {
	var (
		keys [][]any
		seen = make(map[string]bool)
	)
	for _, e := range tr.Entries() {
		if e.Type() != r.Dependent || !e.State().IsFixupTarget() {
			continue
		}
		fk := e.ForeignKey(r)
		k, ok := tracking.EncodeKey(fk...)
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		if _, ok := tr.Find(r.Principal, fk...); ok {
			continue
		}
		keys = append(keys, fk)
	}
	return keys
}

// Resolve runs the loaders for their relationships and attaches the loaded
// principals as Unchanged. Loaders with no missing keys are not called.
// Objects that are not of the principal kind fail the call with a
// configuration error and nothing is attached.
func Resolve(ctx context.Context, tr *tracking.Tracker, loaders ...Loader) ([]Result, error) {
	g := tr.Graph()
	rels := make([]*graph.Relationship, len(loaders))
	results := make([]Result, len(loaders))
	for i, l := range loaders {
		r, ok := g.Relationship(l.Relationship)
		if !ok {
			return nil, fixup.NewConfigError(l.Relationship, "", "relationship is not part of the model")
		}
		rels[i] = r
		results[i] = Result{Relationship: r.Name, Keys: Missing(tr, r)}
	}
	loaded := make([][]any, len(loaders))
	grp, ctx := errgroup.WithContext(ctx)
	for i, l := range loaders {
		if len(results[i].Keys) == 0 {
			continue
		}
		grp.Go(func() error {
			values, err := l.Load(ctx, results[i].Keys)
			if err != nil {
				return fmt.Errorf("dataloader: load %s: %w", l.Relationship, err)
			}
			loaded[i] = values
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	ordered := make([][]any, len(loaders))
	for i, r := range rels {
		for _, v := range loaded[i] {
			if t, ok := g.TypeOf(v); !ok || t != r.Principal {
				return nil, fixup.NewConfigError(r.Principal.Name, r.Name, "loader returned %T", v)
			}
		}
		keys := make([]string, len(results[i].Keys))
		for j, k := range results[i].Keys {
			keys[j], _ = tracking.EncodeKey(k...)
		}
		ordered[i], results[i].Errs = OrderByKeys(keys, loaded[i], func(v any) string {
			k, _ := tracking.EncodeKey(r.Principal.KeyOf(v)...)
			return k
		})
	}
	for i := range results {
		for _, v := range ordered[i] {
			if v == nil {
				results[i].Entries = append(results[i].Entries, nil)
				continue
			}
			e, err := tr.Attach(v, fixup.Unchanged)
			if err != nil {
				return results, err
			}
			results[i].Entries = append(results[i].Entries, e)
		}
	}
	return results, nil
}

// OrderByKeys reorders values to match the order of keys. Missing values are
// zero with ErrNotFound at their position.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}
