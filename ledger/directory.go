package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// PackageDirectory maps package aliases to concrete package IDs. Lookups
// happen at submission time, so implementations may reach over the network;
// they must be safe for concurrent use.
type PackageDirectory interface {
	ResolvePackage(ctx context.Context, alias string) (string, error)
}

// UnknownPackageError reports an alias the directory has no binding for.
type UnknownPackageError struct {
	Alias string
}

func (e *UnknownPackageError) Error() string {
	return fmt.Sprintf("unknown package alias %q", e.Alias)
}

// StaticDirectory is a fixed alias table. The zero value resolves nothing.
type StaticDirectory map[string]string

// ResolvePackage looks the alias up in the table.
func (d StaticDirectory) ResolvePackage(_ context.Context, alias string) (string, error) {
	id, ok := d[alias]
	if !ok {
		return "", &UnknownPackageError{Alias: alias}
	}
	return id, nil
}

// Aliases returns the bound aliases in sorted order.
func (d StaticDirectory) Aliases() []string {
	aliases := make([]string, 0, len(d))
	for alias := range d {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// CachingDirectory memoizes successful resolutions of an inner directory.
// Failed lookups are not cached, so a directory that learns new packages
// over time keeps working. Safe for concurrent use.
type CachingDirectory struct {
	inner PackageDirectory

	mu    sync.Mutex
	cache map[string]string
}

// NewCachingDirectory wraps inner with a resolution cache.
func NewCachingDirectory(inner PackageDirectory) *CachingDirectory {
	return &CachingDirectory{inner: inner, cache: make(map[string]string)}
}

// ResolvePackage returns the cached binding or consults the inner
// directory. The inner call runs unlocked; concurrent misses on the same
// alias may both reach the inner directory, and the last answer wins.
func (d *CachingDirectory) ResolvePackage(ctx context.Context, alias string) (string, error) {
	d.mu.Lock()
	if id, ok := d.cache[alias]; ok {
		d.mu.Unlock()
		return id, nil
	}
	d.mu.Unlock()

	id, err := d.inner.ResolvePackage(ctx, alias)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	d.cache[alias] = id
	d.mu.Unlock()
	return id, nil
}

// Forget drops a cached binding, forcing the next lookup through to the
// inner directory.
func (d *CachingDirectory) Forget(alias string) {
	d.mu.Lock()
	delete(d.cache, alias)
	d.mu.Unlock()
}
