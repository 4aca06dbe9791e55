// internal/secretstore/client.go
//
// Read-through cache in front of a remote secret store.
//
// Context
// -------
//   - A secret group is a named JSON object of string keys and values held by
//     the remote store (AWS Secrets Manager or Vault KV-v2).
//   - The first FetchGroup for a name performs one backend call and stores
//     the decoded map.  Every later call for that name is served from memory
//     for the life of the process.  There is no TTL and no invalidation;
//     Reset is the only way to drop entries.
//   - Concurrent first fetches for the same name share one backend call via
//     singleflight.  Different names never block each other.  The shared
//     call runs detached from any one caller's context, bounded by
//     FetchTimeout; each caller stops waiting when its own context ends.
//   - FetchRaw and PutRaw bypass the string view for whole-group
//     read-modify-write, keeping each value's JSON type.
//
// Public workflow
// ---------------
//  1. be, err := secretstore.NewAWS(ctx, opts)     // during boot.
//  2. cli := secretstore.New(be)
//  3. v := cli.Value(ctx, "AppSecrets", "jwt_secret", "")
package secretstore

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yanizio/fleetapp/internal/metrics"
)

// Backend performs the network call for one group.  Implementations must
// translate native errors into ErrNotFound, ErrAccessDenied, and
// ErrUnsupportedFormat where they apply.
type Backend interface {
	Name() string
	FetchGroup(ctx context.Context, group string) (map[string]string, error)
}

// FetchTimeout bounds one shared backend call.
const FetchTimeout = 30 * time.Second

// RawReader is implemented by backends that can return a group with its
// JSON value types intact.
type RawReader interface {
	FetchRaw(ctx context.Context, group string) (RawGroup, error)
}

// Writer is implemented by backends that can store a full group.  created
// reports whether the group did not exist before the write.
type Writer interface {
	PutRaw(ctx context.Context, group string, values RawGroup) (created bool, err error)
}

// Client is safe for concurrent use.  Create once at startup and pass it to
// whatever needs secrets.  Zero value is invalid.
type Client struct {
	backend Backend
	sfg     singleflight.Group

	cacheMu sync.RWMutex
	cache   map[string]map[string]string // group name → decoded values.
}

// New wraps backend with an empty cache.
func New(backend Backend) *Client {
	return &Client{
		backend: backend,
		cache:   make(map[string]map[string]string),
	}
}

// Backend returns the wrapped backend.
func (c *Client) Backend() Backend { return c.backend }

// FetchGroup returns the values of group, fetching them on first use.  The
// returned map is a copy; callers may modify it freely.
func (c *Client) FetchGroup(ctx context.Context, group string) (map[string]string, error) {
	if vals, ok := c.cached(group); ok {
		metrics.SecretCacheHitsTotal.Inc()
		return maps.Clone(vals), nil
	}

	ch := c.sfg.DoChan(group, func() (any, error) {
		// Double-check after the singleflight barrier.
		if vals, ok := c.cached(group); ok {
			return vals, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), FetchTimeout)
		defer cancel()

		vals, err := c.backend.FetchGroup(fetchCtx, group)
		metrics.SecretFetchTotal.WithLabelValues(c.backend.Name(), Classify(err).String()).Inc()
		if err != nil {
			return nil, err
		}
		if vals == nil {
			vals = map[string]string{}
		}
		c.store(group, vals)
		return vals, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return maps.Clone(res.Val.(map[string]string)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Lookup returns one key from group.  Store failures are returned as they
// came from FetchGroup; a missing key yields ErrKeyNotFound.
func (c *Client) Lookup(ctx context.Context, group, key string) (string, error) {
	vals, err := c.FetchGroup(ctx, group)
	if err != nil {
		return "", err
	}
	v, ok := vals[key]
	if !ok {
		return "", groupErr(ErrKeyNotFound, group, nil)
	}
	return v, nil
}

// Value is the best-effort form of Lookup: any failure, including a missing
// key, yields def.
func (c *Client) Value(ctx context.Context, group, key, def string) string {
	v, err := c.Lookup(ctx, group, key)
	if err != nil {
		return def
	}
	return v
}

// FetchRaw reads group straight from the backend, bypassing the cache, with
// every value in its stored JSON form.
func (c *Client) FetchRaw(ctx context.Context, group string) (RawGroup, error) {
	r, ok := c.backend.(RawReader)
	if !ok {
		return nil, fmt.Errorf("%s backend cannot read raw groups", c.backend.Name())
	}
	raw, err := r.FetchRaw(ctx, group)
	metrics.SecretFetchTotal.WithLabelValues(c.backend.Name(), Classify(err).String()).Inc()
	return raw, err
}

// PutRaw writes values as the full content of group and replaces the cache
// entry.  It fails when the backend is read-only.
func (c *Client) PutRaw(ctx context.Context, group string, values RawGroup) (bool, error) {
	w, ok := c.backend.(Writer)
	if !ok {
		return false, errReadOnly(c.backend.Name())
	}
	created, err := w.PutRaw(ctx, group, values)
	if err != nil {
		return false, err
	}
	if vals, err := stringValues(group, values); err == nil {
		c.store(group, vals)
	} else {
		c.drop(group)
	}
	return created, nil
}

// PutGroup writes string values as the full content of group.
func (c *Client) PutGroup(ctx context.Context, group string, values map[string]string) (bool, error) {
	return c.PutRaw(ctx, group, rawFromStrings(values))
}

// Reset drops every cached group.
func (c *Client) Reset() {
	c.cacheMu.Lock()
	c.cache = make(map[string]map[string]string)
	c.cacheMu.Unlock()
}

func (c *Client) cached(group string) (map[string]string, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	vals, ok := c.cache[group]
	return vals, ok
}

func (c *Client) store(group string, vals map[string]string) {
	c.cacheMu.Lock()
	c.cache[group] = vals
	c.cacheMu.Unlock()
}

func (c *Client) drop(group string) {
	c.cacheMu.Lock()
	delete(c.cache, group)
	c.cacheMu.Unlock()
}
