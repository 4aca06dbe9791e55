// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// `Load` calls `validateStruct` once the Settings snapshot is assembled.
// Any tag mismatch aborts startup, so the binary never serves requests with
// a malformed API prefix, an unknown secrets backend, or a bad listen
// address.

package config

import "github.com/go-playground/validator/v10"

var v = validator.New()

// validateStruct returns the first validation error, or nil on success.
func validateStruct(s *Settings) error {
	return v.Struct(s)
}
