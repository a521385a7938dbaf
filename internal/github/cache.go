package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// Lister is the slice of Client the cache needs; tests substitute a fake.
type Lister interface {
	ListRepositories(ctx context.Context) ([]Repository, error)
}

// ErrUnknownRepository is returned by Resolve for names that are not in
// the repository list.
var ErrUnknownRepository = errors.New("unknown repository")

// ErrCachePersist marks a successful fetch whose cache file could not be
// written. The returned list is fresh; only the on-disk copy is missing.
var ErrCachePersist = errors.New("repository cache not persisted")

// cacheFile is the on-disk shape, shared with nothing else.
type cacheFile struct {
	Timestamp int64        `json:"timestamp"`
	Repos     []Repository `json:"repos"`
}

// Cache is the TTL-bounded repository list: reads come from a JSON file on
// disk while it is fresh, and fall through to the GitHub API otherwise.
// The cache survives restarts deliberately; the file is the source of
// truth between refreshes.
type Cache struct {
	lister Lister
	path   string
	ttl    time.Duration

	mu sync.Mutex
}

// NewCache builds a Cache persisting to path with the given TTL.
func NewCache(lister Lister, path string, ttl time.Duration) *Cache {
	return &Cache{lister: lister, path: path, ttl: ttl}
}

// Repositories returns the repository list and its remaining freshness.
// A fresh cache file answers without touching the network; otherwise the
// list is fetched and the file rewritten. When the fetch fails but a stale
// file exists, the stale list is returned alongside the error so the
// picker can still render.
func (c *Cache) Repositories(ctx context.Context) ([]Repository, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, age, ok := c.read()
	if ok && age < c.ttl {
		return cached.Repos, c.ttl - age, nil
	}

	repos, err := c.lister.ListRepositories(ctx)
	if err != nil {
		if ok {
			return cached.Repos, 0, fmt.Errorf("refresh repository list: %w", err)
		}
		return nil, 0, fmt.Errorf("fetch repository list: %w", err)
	}

	if err := c.write(repos); err != nil {
		return repos, c.ttl, fmt.Errorf("%w: %v", ErrCachePersist, err)
	}
	return repos, c.ttl, nil
}

// Resolve maps a repository name to its owner-qualified full name.
func (c *Cache) Resolve(ctx context.Context, name string) (string, error) {
	repos, _, err := c.Repositories(ctx)
	if err != nil && repos == nil {
		return "", err
	}
	for _, r := range repos {
		if r.Name == name {
			return r.FullName, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownRepository, name)
}

// Invalidate drops the cache file so the next read fetches fresh.
func (c *Cache) Invalidate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.Remove(c.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear repository cache: %w", err)
	}
	return nil
}

func (c *Cache) read() (cacheFile, time.Duration, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return cacheFile{}, 0, false
	}
	var cached cacheFile
	if err := json.Unmarshal(data, &cached); err != nil {
		return cacheFile{}, 0, false
	}
	return cached, time.Since(time.Unix(cached.Timestamp, 0)), true
}

func (c *Cache) write(repos []Repository) error {
	data, err := json.Marshal(cacheFile{Timestamp: time.Now().Unix(), Repos: repos})
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o600)
}
