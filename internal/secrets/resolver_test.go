package secrets

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/fleetapp/internal/secretstore"
)

// memBackend is an in-memory secretstore.Backend.
type memBackend struct {
	groups map[string]map[string]string
	errs   map[string]error
	calls  int32
}

func (m *memBackend) Name() string { return "mem" }

func (m *memBackend) FetchGroup(_ context.Context, group string) (map[string]string, error) {
	atomic.AddInt32(&m.calls, 1)
	if err := m.errs[group]; err != nil {
		return nil, err
	}
	vals, ok := m.groups[group]
	if !ok {
		return nil, secretstore.ErrNotFound
	}
	return vals, nil
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func storeWith(be *memBackend) Opener {
	cli := secretstore.New(be)
	return func(context.Context) (Lookuper, error) { return cli, nil }
}

func TestResolveEnvOverrideSkipsStore(t *testing.T) {
	opened := false
	r := New(func(context.Context) (Lookuper, error) {
		opened = true
		return nil, errors.New("unreachable")
	}, WithGetenv(envMap(map[string]string{"JWT_SECRET": "abc"})))

	res := r.Resolve(context.Background(), "jwt_secret", "")
	assert.Equal(t, "abc", res.Value)
	assert.Equal(t, SourceEnv, res.Source)
	assert.NoError(t, res.Reason)
	assert.False(t, opened, "env override must not touch the store")
}

func TestResolveFromStore(t *testing.T) {
	be := &memBackend{groups: map[string]map[string]string{
		"AppSecrets": {"jwt_secret": "xyz"},
	}}
	r := New(storeWith(be), WithGetenv(envMap(nil)))

	res := r.Resolve(context.Background(), "jwt_secret", "fallback")
	assert.Equal(t, "xyz", res.Value)
	assert.Equal(t, SourceStore, res.Source)
	assert.Equal(t, "AppSecrets", res.Group)
	assert.False(t, res.UsedDefault())
}

func TestResolveMissingKeyUsesDefault(t *testing.T) {
	be := &memBackend{groups: map[string]map[string]string{
		"AppSecrets": {"other": "v"},
	}}
	r := New(storeWith(be), WithGetenv(envMap(nil)))

	res := r.Resolve(context.Background(), "jwt_secret", "fallback")
	assert.Equal(t, "fallback", res.Value)
	assert.True(t, res.UsedDefault())
	assert.ErrorIs(t, res.Reason, secretstore.ErrKeyNotFound)
}

func TestResolveStoreErrorsUseDefault(t *testing.T) {
	for name, err := range map[string]error{
		"not found":          secretstore.ErrNotFound,
		"access denied":      secretstore.ErrAccessDenied,
		"unsupported format": secretstore.ErrUnsupportedFormat,
		"unrecoverable":      errors.New("connection reset by peer"),
	} {
		t.Run(name, func(t *testing.T) {
			be := &memBackend{errs: map[string]error{"AppSecrets": err}}
			r := New(storeWith(be), WithGetenv(envMap(nil)))

			res := r.Resolve(context.Background(), "jwt_secret", "fallback")
			assert.Equal(t, "fallback", res.Value)
			assert.Equal(t, SourceDefault, res.Source)
			assert.ErrorIs(t, res.Reason, err)
		})
	}
}

func TestResolveOpenFailureUsesDefault(t *testing.T) {
	var attempts int
	r := New(func(context.Context) (Lookuper, error) {
		attempts++
		return nil, errors.New("no credentials")
	}, WithGetenv(envMap(nil)))

	res := r.Resolve(context.Background(), "jwt_secret", "fallback")
	assert.Equal(t, "fallback", res.Value)
	assert.ErrorIs(t, res.Reason, ErrStoreUnavailable)

	_ = r.Resolve(context.Background(), "jwt_secret", "fallback")
	assert.Equal(t, 2, attempts, "a failed open is retried on the next lookup")
}

func TestResolveEmptyOverrideFallsThrough(t *testing.T) {
	be := &memBackend{groups: map[string]map[string]string{
		"AppSecrets": {"jwt_secret": "xyz"},
	}}
	r := New(storeWith(be), WithGetenv(envMap(map[string]string{"JWT_SECRET": ""})))

	res := r.Resolve(context.Background(), "jwt_secret", "")
	assert.Equal(t, "xyz", res.Value)
	assert.Equal(t, SourceStore, res.Source)
}

func TestResolveGroupNames(t *testing.T) {
	be := &memBackend{groups: map[string]map[string]string{
		"CustomApp":    {"jwt_secret": "app"},
		"CustomDeploy": {"ec2_host": "10.0.0.1"},
	}}
	env := envMap(map[string]string{
		AppGroupEnv:        "CustomApp",
		DeploymentGroupEnv: "CustomDeploy",
	})
	r := New(storeWith(be), WithGetenv(env))
	ctx := context.Background()

	assert.Equal(t, "app", r.ResolveApp(ctx, "jwt_secret", "").Value)
	dep := r.ResolveDeployment(ctx, "ec2_host", "")
	assert.Equal(t, "10.0.0.1", dep.Value)
	assert.Equal(t, "CustomDeploy", dep.Group)
}

func TestResolveDefaultGroupNames(t *testing.T) {
	r := New(nil, WithGetenv(envMap(nil)))
	assert.Equal(t, DefaultAppGroup, r.AppGroup())
	assert.Equal(t, DefaultDeploymentGroup, r.DeploymentGroup())

	res := r.Resolve(context.Background(), "jwt_secret", "d")
	require.True(t, res.UsedDefault())
	assert.ErrorIs(t, res.Reason, ErrStoreUnavailable)
}

func TestResolveOneFetchPerGroup(t *testing.T) {
	be := &memBackend{groups: map[string]map[string]string{
		"AppSecrets": {"jwt_secret": "xyz", "api_keys": "k1,k2"},
	}}
	r := New(storeWith(be), WithGetenv(envMap(nil)))
	ctx := context.Background()

	r.Resolve(ctx, "jwt_secret", "")
	r.Resolve(ctx, "api_keys", "")
	r.Resolve(ctx, "database_password", "")
	assert.Equal(t, int32(1), atomic.LoadInt32(&be.calls))
}

func TestResultFormattingRedactsValue(t *testing.T) {
	res := Result{Key: "jwt_secret", Group: "AppSecrets", Value: "hunter2", Source: SourceStore}

	for _, verb := range []string{"%s", "%v", "%+v", "%#v"} {
		out := fmt.Sprintf(verb, res)
		assert.NotContains(t, out, "hunter2", verb)
		assert.Contains(t, out, "[REDACTED]", verb)
		assert.Contains(t, out, "jwt_secret", verb)
	}

	wrapped := fmt.Sprintf("%v", []Result{res})
	assert.NotContains(t, wrapped, "hunter2")

	empty := Result{Key: "api_keys", Source: SourceDefault, Reason: secretstore.ErrKeyNotFound}
	out := empty.String()
	assert.NotContains(t, out, "[REDACTED]")
	assert.Contains(t, out, "default")
	assert.Contains(t, out, "reason")
}
