// internal/secretstore/vault.go
//
// HashiCorp Vault KV-v2 backend.
//
// Context
// -------
//   - Each secret group maps to one KV-v2 secret at <mount>/<group>.
//   - The token is read once at startup.  Groups are cached for the process
//     lifetime by Client, so no renewal loop is needed here.
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   – scheme and host of the Vault server.
// • VAULT_TOKEN  – token (falls back to ~/.vault-token via the SDK).
package secretstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	vault "github.com/hashicorp/vault/api"
)

// DefaultVaultMount is the KV-v2 mount used when VaultOptions.Mount is empty.
const DefaultVaultMount = "secret"

// VaultOptions configures NewVault.  Empty fields defer to the SDK's own
// environment handling.
type VaultOptions struct {
	Address string
	Token   string
	Mount   string
}

// Vault implements Backend, RawReader, and Writer.
type Vault struct {
	kv    *vault.KVv2
	mount string
}

// NewVault constructs a Vault API client.
func NewVault(opts VaultOptions) (*Vault, error) {
	cfg := vault.DefaultConfig()
	if cfg.Error != nil {
		return nil, fmt.Errorf("vault env cfg: %w", cfg.Error)
	}
	if opts.Address != "" {
		cfg.Address = opts.Address
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if opts.Token != "" {
		apiCli.SetToken(opts.Token)
	}

	mount := opts.Mount
	if mount == "" {
		mount = DefaultVaultMount
	}
	return &Vault{kv: apiCli.KVv2(mount), mount: mount}, nil
}

func (v *Vault) Name() string { return "vault" }

// FetchGroup reads the latest version of <mount>/<group>.
func (v *Vault) FetchGroup(ctx context.Context, group string) (map[string]string, error) {
	raw, err := v.FetchRaw(ctx, group)
	if err != nil {
		return nil, err
	}
	return stringValues(group, raw)
}

// FetchRaw reads the latest version and re-encodes each value as JSON.  The
// SDK decodes numbers as json.Number, so they round-trip unchanged.
func (v *Vault) FetchRaw(ctx context.Context, group string) (RawGroup, error) {
	sec, err := v.kv.Get(ctx, group)
	if err != nil {
		return nil, translateVault(err, group)
	}
	if sec == nil || sec.Data == nil {
		return nil, groupErr(ErrNotFound, group, nil)
	}

	out := make(RawGroup, len(sec.Data))
	for k, val := range sec.Data {
		b, err := json.Marshal(val)
		if err != nil {
			return nil, groupErr(ErrUnsupportedFormat, group, err)
		}
		out[k] = b
	}
	return out, nil
}

// PutRaw writes a new version.  created is true when the write produced
// version 1.
func (v *Vault) PutRaw(ctx context.Context, group string, values RawGroup) (bool, error) {
	data := make(map[string]any, len(values))
	for k, raw := range values {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var val any
		if err := dec.Decode(&val); err != nil {
			return false, fmt.Errorf("encode group %s: key %s: %w", group, k, err)
		}
		data[k] = val
	}
	sec, err := v.kv.Put(ctx, group, data)
	if err != nil {
		return false, translateVault(err, group)
	}
	return sec != nil && sec.VersionMetadata != nil && sec.VersionMetadata.Version == 1, nil
}

func translateVault(err error, group string) error {
	if errors.Is(err, vault.ErrSecretNotFound) {
		return groupErr(ErrNotFound, group, err)
	}
	var respErr *vault.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusForbidden, http.StatusUnauthorized:
			return groupErr(ErrAccessDenied, group, err)
		case http.StatusNotFound:
			return groupErr(ErrNotFound, group, err)
		}
	}
	return err
}
