// internal/config/model.go
//
// Typed settings model.
//
// Context
// -------
// These structs are the immutable snapshot `Load()` builds from three
// layers (built-in defaults, optional YAML file, process environment).
// Sensitive fields hold a `Secret`, which prints as `[REDACTED]`, so a
// Settings value can be logged with %v without leaking credentials.
//
// A Settings instance is never mutated after Load returns it.  A new load
// produces a new instance.
//
// Notes
// -----
//   • Validation tags are checked by validator.go right after the snapshot
//     is assembled.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "github.com/yanizio/fleetapp/internal/secrets"

//
// Secret
//

// Secret is a sensitive string.  Use Reveal to read the raw value.
type Secret string

const redacted = "[REDACTED]"

// String implements fmt.Stringer.  Empty secrets print as "".
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// GoString covers %#v.
func (s Secret) GoString() string { return s.String() }

// Reveal returns the raw value.
func (s Secret) Reveal() string { return string(s) }

// IsSet reports whether the secret holds a non-empty value.
func (s Secret) IsSet() bool { return s != "" }

//
// Sections
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `validate:"required,hostname_port"`
}

// Log holds logger tunables.  An empty Dir disables the file sink.
type Log struct {
	Dir string
}

// AWS holds the region and optional static credentials for the secret
// store client.  Empty credentials defer to the SDK default chain.
type AWS struct {
	Region          string `validate:"required"`
	AccessKeyID     string
	SecretAccessKey Secret
	SessionToken    Secret
	Endpoint        string
}

// SecretsMode describes remote-secrets mode.
type SecretsMode struct {
	Enabled         bool
	Backend         string `validate:"oneof=aws vault"`
	AppGroup        string `validate:"required"`
	DeploymentGroup string `validate:"required"`
	VaultMount      string
}

// Database holds the optional DSN template and its password.  The template
// lives in plain config; the password comes from the secret store when
// remote-secrets mode is on.
type Database struct {
	DSN      string
	Password Secret
}

//
// Root aggregate
//

// Settings is the immutable aggregate returned by Load.
type Settings struct {
	AppName     string `validate:"required"`
	Environment string `validate:"required"`
	Debug       bool
	APIPrefix   string `validate:"required,startswith=/"`

	HTTP     HTTP
	Log      Log
	AWS      AWS
	Secrets  SecretsMode
	Database Database

	JWTSecret Secret
	APIKeys   Secret

	resolutions []secrets.Result
}

// Resolutions returns the outcome of each remote resolution performed while
// loading.  It is empty when remote-secrets mode is off.  Value is always
// empty in the records; read the resolved secret from its Settings field.
func (s *Settings) Resolutions() []secrets.Result {
	out := make([]secrets.Result, len(s.resolutions))
	copy(out, s.resolutions)
	return out
}
