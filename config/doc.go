// Package config loads and validates the client configuration.
//
// Configuration is layered: built-in defaults, then an optional TOML file
// (cowork.toml by default), then COWORK_* environment variables. Validation
// happens once at load time; a malformed endpoint or missing identity is a
// startup configuration error, not something discovered mid-connection.
package config
