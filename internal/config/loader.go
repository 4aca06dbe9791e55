// internal/config/loader.go
//
// Settings loader and process-wide cache.
//
/*
Context
--------
`Load()` builds one immutable `Settings` from three layers (highest
precedence last):

  1. Built-in defaults (see `defaults()`).
  2. Optional YAML file named by `SETTINGS_FILE`.
  3. Environment variables, lower-cased (`APP_NAME → app_name`).  Empty
     variables are skipped, so `AWS_REGION=` keeps the default.

After the merge, the probe decides whether remote-secrets mode is on.  When
it is, each sensitive field is resolved through the secret resolver.  A
resolver miss or store failure leaves the field empty and logs a warning;
it never fails the load.

`Get()` caches the first successful load in an `atomic.Pointer` and returns
the same instance on every later call until `Reset()`.

Instrumentation
---------------
  • DEBUG span  – settings file read.
  • WARN  spans – sensitive field left empty after a remote miss.
  • INFO  span  – final "settings loaded" with non-sensitive highlights.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/fleetapp/internal/secrets"
)

// SettingsFileEnv names the optional YAML layer.
const SettingsFileEnv = "SETTINGS_FILE"

// Keys of the sensitive fields in the app secret group.
const (
	KeyDatabasePassword = "database_password"
	KeyJWTSecret        = "jwt_secret"
	KeyAPIKeys          = "api_keys"
)

// SecretResolver is the part of *secrets.Resolver the loader needs.
type SecretResolver interface {
	Resolve(ctx context.Context, key, def string) secrets.Result
}

// Loader assembles Settings.  The zero value uses DefaultProbe and
// DefaultResolver.
type Loader struct {
	Probe       *Probe
	NewResolver func(*Settings) SecretResolver
}

// flat mirrors every recognised key.  Everything is read as a string and
// converted in build() so boolean parsing stays under our control.
type flat struct {
	AppName               string `koanf:"app_name"`
	Environment           string `koanf:"environment"`
	Debug                 string `koanf:"debug"`
	APIPrefix             string `koanf:"api_v1_prefix"`
	ListenAddr            string `koanf:"listen_addr"`
	LogDir                string `koanf:"log_dir"`
	AWSRegion             string `koanf:"aws_region"`
	AWSAccessKeyID        string `koanf:"aws_access_key_id"`
	AWSSecretAccessKey    string `koanf:"aws_secret_access_key"`
	AWSSessionToken       string `koanf:"aws_session_token"`
	SecretsEndpoint       string `koanf:"secrets_endpoint"`
	SecretsBackend        string `koanf:"secrets_backend"`
	AppSecretsName        string `koanf:"app_secrets_name"`
	DeploymentSecretsName string `koanf:"deployment_secrets_name"`
	VaultMount            string `koanf:"vault_mount"`
	DatabaseDSN           string `koanf:"database_dsn"`
	DatabasePassword      string `koanf:"database_password"`
	JWTSecret             string `koanf:"jwt_secret"`
	APIKeys               string `koanf:"api_keys"`
}

var knownKeys = map[string]struct{}{
	"app_name": {}, "environment": {}, "debug": {}, "api_v1_prefix": {},
	"listen_addr": {}, "log_dir": {}, "aws_region": {},
	"aws_access_key_id": {}, "aws_secret_access_key": {}, "aws_session_token": {},
	"secrets_endpoint": {}, "secrets_backend": {}, "app_secrets_name": {},
	"deployment_secrets_name": {}, "vault_mount": {}, "database_dsn": {},
	"database_password": {}, "jwt_secret": {}, "api_keys": {},
}

func defaults() flat {
	return flat{
		AppName:               "FastAPI AWS App",
		Environment:           "development",
		Debug:                 "true",
		APIPrefix:             "/api/v1",
		ListenAddr:            ":8000",
		AWSRegion:             "us-east-1",
		SecretsBackend:        "aws",
		AppSecretsName:        secrets.DefaultAppGroup,
		DeploymentSecretsName: secrets.DefaultDeploymentGroup,
	}
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads every layer, resolves sensitive fields when remote-secrets mode
// is on, and validates the result.  It does not touch the process cache.
func Load(ctx context.Context) (*Settings, error) {
	return Loader{}.Load(ctx)
}

// Load is the configurable form of the package-level Load.
func (l Loader) Load(ctx context.Context) (*Settings, error) {
	k := koanf.New(".")

	if path := os.Getenv(SettingsFileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			zap.S().Errorw("settings file load failed", "file", path, "err", err)
			return nil, fmt.Errorf("settings file %s: %w", path, err)
		}
		zap.S().Debugw("settings file loaded", "file", path)
	}

	if err := k.Load(env.ProviderWithValue("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("settings env overlay: %w", err)
	}

	raw := defaults()
	if err := k.Unmarshal("", &raw); err != nil {
		return nil, fmt.Errorf("settings unmarshal: %w", err)
	}

	s, err := build(raw)
	if err != nil {
		return nil, err
	}

	probe := DefaultProbe()
	if l.Probe != nil {
		probe = *l.Probe
	}
	s.Secrets.Enabled = probe.RemoteSecretsEnabled()

	if s.Secrets.Enabled {
		newResolver := l.NewResolver
		if newResolver == nil {
			newResolver = DefaultResolver
		}
		resolveSensitive(ctx, s, newResolver(s))
	}

	if err := validateStruct(s); err != nil {
		return nil, fmt.Errorf("settings validation: %w", err)
	}

	zap.S().Infow("settings loaded",
		"app", s.AppName,
		"environment", s.Environment,
		"debug", s.Debug,
		"region", s.AWS.Region,
		"remote_secrets", s.Secrets.Enabled,
		"backend", s.Secrets.Backend,
	)
	return s, nil
}

// envKey maps an environment variable onto a settings key.  Unknown names
// and empty values are dropped.
func envKey(name, value string) (string, any) {
	key := strings.ToLower(name)
	if _, ok := knownKeys[key]; !ok || value == "" {
		return "", nil
	}
	return key, value
}

func build(raw flat) (*Settings, error) {
	debug, err := parseBool(raw.Debug)
	if err != nil {
		return nil, fmt.Errorf("settings debug: %w", err)
	}

	return &Settings{
		AppName:     raw.AppName,
		Environment: raw.Environment,
		Debug:       debug,
		APIPrefix:   raw.APIPrefix,
		HTTP:        HTTP{ListenAddr: raw.ListenAddr},
		Log:         Log{Dir: raw.LogDir},
		AWS: AWS{
			Region:          raw.AWSRegion,
			AccessKeyID:     raw.AWSAccessKeyID,
			SecretAccessKey: Secret(raw.AWSSecretAccessKey),
			SessionToken:    Secret(raw.AWSSessionToken),
			Endpoint:        raw.SecretsEndpoint,
		},
		Secrets: SecretsMode{
			Backend:         strings.ToLower(raw.SecretsBackend),
			AppGroup:        raw.AppSecretsName,
			DeploymentGroup: raw.DeploymentSecretsName,
			VaultMount:      raw.VaultMount,
		},
		Database: Database{
			DSN:      raw.DatabaseDSN,
			Password: Secret(raw.DatabasePassword),
		},
		JWTSecret: Secret(raw.JWTSecret),
		APIKeys:   Secret(raw.APIKeys),
	}, nil
}

// resolveSensitive fills the three sensitive fields from r.  Defaults are
// empty, so a miss leaves the field unset.
func resolveSensitive(ctx context.Context, s *Settings, r SecretResolver) {
	fields := []struct {
		key string
		dst *Secret
	}{
		{KeyDatabasePassword, &s.Database.Password},
		{KeyJWTSecret, &s.JWTSecret},
		{KeyAPIKeys, &s.APIKeys},
	}

	for _, f := range fields {
		res := r.Resolve(ctx, f.key, "")
		*f.dst = Secret(res.Value)
		// The record keeps provenance only; the value lives in *f.dst.
		rec := res
		rec.Value = ""
		s.resolutions = append(s.resolutions, rec)
		if res.UsedDefault() {
			zap.S().Warnw("sensitive setting left empty",
				"key", f.key,
				"group", res.Group,
				"reason", res.Reason,
			)
		}
	}
}

// parseBool accepts the usual spellings: true/false, 1/0, yes/no, on/off.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on", "t", "y":
		return true, nil
	case "false", "0", "no", "off", "f", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

/*──────────────────────────── process cache ───────────────────────────────*/

var (
	current atomic.Pointer[Settings]
	loadMu  sync.Mutex
)

// Get returns the cached Settings, loading them on first use.  Two calls
// without an intervening Reset return the same pointer.
func Get(ctx context.Context) (*Settings, error) {
	if s := current.Load(); s != nil {
		return s, nil
	}
	loadMu.Lock()
	defer loadMu.Unlock()
	if s := current.Load(); s != nil {
		return s, nil
	}
	s, err := Load(ctx)
	if err != nil {
		return nil, err
	}
	current.Store(s)
	return s, nil
}

// Reset drops the cached Settings.  The next Get loads a new instance.
func Reset() { current.Store(nil) }
