// internal/config/store.go
//
// Secret store wiring: backend selection from Settings and a resolver whose
// group names follow Settings rather than the raw environment.

package config

import (
	"context"
	"fmt"
	"os"

	"github.com/yanizio/fleetapp/internal/secrets"
	"github.com/yanizio/fleetapp/internal/secretstore"
)

// OpenStore builds the secret store client selected by s.Secrets.Backend.
func OpenStore(ctx context.Context, s *Settings) (*secretstore.Client, error) {
	switch s.Secrets.Backend {
	case "", "aws":
		be, err := secretstore.NewAWS(ctx, secretstore.AWSOptions{
			Region:          s.AWS.Region,
			AccessKeyID:     s.AWS.AccessKeyID,
			SecretAccessKey: s.AWS.SecretAccessKey.Reveal(),
			SessionToken:    s.AWS.SessionToken.Reveal(),
			Endpoint:        s.AWS.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return secretstore.New(be), nil
	case "vault":
		be, err := secretstore.NewVault(secretstore.VaultOptions{Mount: s.Secrets.VaultMount})
		if err != nil {
			return nil, err
		}
		return secretstore.New(be), nil
	default:
		return nil, fmt.Errorf("unknown secrets backend %q", s.Secrets.Backend)
	}
}

// DefaultResolver builds a resolver over OpenStore.  Group names come from
// s, so a YAML-configured group is honoured the same as the env variable.
func DefaultResolver(s *Settings) SecretResolver {
	return NewResolver(s, func(ctx context.Context) (secrets.Lookuper, error) {
		cli, err := OpenStore(ctx, s)
		if err != nil {
			return nil, err
		}
		return cli, nil
	}, nil)
}

// NewResolver wires open and getenv into a resolver whose group names follow
// s.  A nil getenv means os.Getenv.
func NewResolver(s *Settings, open secrets.Opener, getenv func(string) string) *secrets.Resolver {
	base := getenv
	opts := []secrets.Option{secrets.WithGetenv(func(name string) string {
		switch name {
		case secrets.AppGroupEnv:
			return s.Secrets.AppGroup
		case secrets.DeploymentGroupEnv:
			return s.Secrets.DeploymentGroup
		}
		if base == nil {
			return os.Getenv(name)
		}
		return base(name)
	})}
	return secrets.New(open, opts...)
}
