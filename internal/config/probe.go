// internal/config/probe.go
//
// Remote-secrets mode probe.
//
// Context
// -------
// cloud-init writes MarkerPath on provisioned compute, so the same binary
// turns remote secrets on in the fleet and off on a laptop.  USE_SECRETS_MANAGER
// forces the mode on anywhere.  Stat and Getenv are injectable so tests never
// touch the real filesystem.

package config

import (
	"os"
	"strings"
)

// MarkerPath is written by cloud-init on provisioned compute.  Its presence
// means the process runs on the fleet and remote-secrets mode should be on.
const MarkerPath = "/var/lib/cloud/data/instance-id"

// OverrideEnv force-enables remote-secrets mode when truthy.
const OverrideEnv = "USE_SECRETS_MANAGER"

// Probe decides whether remote-secrets mode is on.  Its inputs are a stat
// function and an env lookup, so tests can run it without a filesystem.
//
// The result is true when the marker exists OR the override variable is
// truthy.  A falsy override does not disable the mode on provisioned hosts.
type Probe struct {
	MarkerPath string
	Stat       func(string) (os.FileInfo, error)
	Getenv     func(string) string
}

// DefaultProbe inspects the real filesystem and environment.
func DefaultProbe() Probe {
	return Probe{MarkerPath: MarkerPath, Stat: os.Stat, Getenv: os.Getenv}
}

// RemoteSecretsEnabled evaluates the probe.
func (p Probe) RemoteSecretsEnabled() bool {
	return p.markerPresent() || Truthy(p.getenv(OverrideEnv))
}

func (p Probe) markerPresent() bool {
	if p.MarkerPath == "" || p.Stat == nil {
		return false
	}
	_, err := p.Stat(p.MarkerPath)
	return err == nil
}

func (p Probe) getenv(name string) string {
	if p.Getenv == nil {
		return ""
	}
	return p.Getenv(name)
}

// Truthy reports whether s is "true", "1", or "yes", ignoring case and
// surrounding space.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
