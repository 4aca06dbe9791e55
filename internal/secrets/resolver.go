// Package secrets resolves named secret keys for the service.
//
// Resolution order for a key:
//
//  1. An environment variable named by upper-casing the key.  A non-empty
//     value wins and no remote call is made.
//  2. The app or deployment secret group in the remote store.
//  3. The caller's default.
//
// Resolve never fails.  Every outcome is a Result that records where the
// value came from and, when the default was used, why.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/fleetapp/internal/metrics"
	"github.com/yanizio/fleetapp/internal/secretstore"
)

// Default group names, used when the corresponding env variable is unset.
const (
	DefaultAppGroup        = "AppSecrets"
	DefaultDeploymentGroup = "DeploymentSecrets"

	AppGroupEnv        = "APP_SECRETS_NAME"
	DeploymentGroupEnv = "DEPLOYMENT_SECRETS_NAME"
)

// ErrStoreUnavailable wraps a failure to construct the store client.
var ErrStoreUnavailable = errors.New("secret store unavailable")

// Source tells where a resolved value came from.
type Source int

const (
	SourceDefault Source = iota
	SourceEnv
	SourceStore
)

func (s Source) String() string {
	switch s {
	case SourceEnv:
		return "env"
	case SourceStore:
		return "store"
	default:
		return "default"
	}
}

// Result is the outcome of one resolution.  Reason is nil unless Source is
// SourceDefault.
type Result struct {
	Key    string
	Group  string
	Value  string
	Source Source
	Reason error
}

// UsedDefault reports whether the caller's default was returned.
func (r Result) UsedDefault() bool { return r.Source == SourceDefault }

// String never shows Value.  A non-empty value prints as [REDACTED].
func (r Result) String() string {
	value := ""
	if r.Value != "" {
		value = redacted
	}
	s := fmt.Sprintf("%s from %s (group %q): %s", r.Key, r.Source, r.Group, value)
	if r.Reason != nil {
		s += " reason: " + r.Reason.Error()
	}
	return s
}

// GoString covers %#v.
func (r Result) GoString() string { return "secrets.Result{" + r.String() + "}" }

const redacted = "[REDACTED]"

// Lookuper is the part of *secretstore.Client the resolver needs.
type Lookuper interface {
	Lookup(ctx context.Context, group, key string) (string, error)
}

// Opener builds the store client.  It is called lazily on the first lookup
// that needs the store and again after a failure.
type Opener func(ctx context.Context) (Lookuper, error)

// Resolver is safe for concurrent use.
type Resolver struct {
	getenv func(string) string
	open   Opener

	mu    sync.Mutex
	store Lookuper
}

// Option customises New.
type Option func(*Resolver)

// WithGetenv replaces os.Getenv, mainly for tests.
func WithGetenv(fn func(string) string) Option {
	return func(r *Resolver) { r.getenv = fn }
}

// WithStore uses an already built store and skips the Opener.
func WithStore(store Lookuper) Option {
	return func(r *Resolver) { r.store = store }
}

// New returns a Resolver that opens the store with open.
func New(open Opener, opts ...Option) *Resolver {
	r := &Resolver{getenv: os.Getenv, open: open}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve looks key up in the app group.
func (r *Resolver) Resolve(ctx context.Context, key, def string) Result {
	return r.resolve(ctx, r.AppGroup(), key, def)
}

// ResolveApp is an alias of Resolve.
func (r *Resolver) ResolveApp(ctx context.Context, key, def string) Result {
	return r.Resolve(ctx, key, def)
}

// ResolveDeployment looks key up in the deployment group.
func (r *Resolver) ResolveDeployment(ctx context.Context, key, def string) Result {
	return r.resolve(ctx, r.DeploymentGroup(), key, def)
}

// AppGroup returns the configured app group name.
func (r *Resolver) AppGroup() string {
	return r.envOr(AppGroupEnv, DefaultAppGroup)
}

// DeploymentGroup returns the configured deployment group name.
func (r *Resolver) DeploymentGroup() string {
	return r.envOr(DeploymentGroupEnv, DefaultDeploymentGroup)
}

func (r *Resolver) resolve(ctx context.Context, group, key, def string) Result {
	res := Result{Key: key, Group: group, Value: def, Source: SourceDefault}

	// An empty override is indistinguishable from unset and falls through.
	if v := r.getenv(strings.ToUpper(key)); v != "" {
		res.Value, res.Source = v, SourceEnv
		res.Group = ""
		return r.done(res)
	}

	store, err := r.storeClient(ctx)
	if err != nil {
		res.Reason = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		return r.done(res)
	}

	v, err := store.Lookup(ctx, group, key)
	if err != nil {
		res.Reason = err
		return r.done(res)
	}
	res.Value, res.Source = v, SourceStore
	return r.done(res)
}

func (r *Resolver) storeClient(ctx context.Context) (Lookuper, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store != nil {
		return r.store, nil
	}
	if r.open == nil {
		return nil, errors.New("no store configured")
	}
	s, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	r.store = s
	return s, nil
}

func (r *Resolver) done(res Result) Result {
	metrics.SecretResolveTotal.WithLabelValues(res.Source.String()).Inc()
	if res.Reason != nil && !errors.Is(res.Reason, secretstore.ErrKeyNotFound) {
		zap.S().Warnw("secret resolved to default",
			"key", res.Key,
			"group", res.Group,
			"kind", secretstore.Classify(res.Reason).String(),
			"reason", res.Reason,
		)
	}
	return res
}

func (r *Resolver) envOr(name, def string) string {
	if v := r.getenv(name); v != "" {
		return v
	}
	return def
}
