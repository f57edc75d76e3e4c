package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cowork.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestValidateFile_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
host = "realtime.cowork.test"
scheme = "wss"
user_id = "u1"
token = "secret"
log_level = "debug"
`)

	result := validateFile(path)
	if !result.Valid {
		t.Errorf("Expected config to be valid, got errors: %v", result.Errors)
	}
	if result.File != "cowork.toml" {
		t.Errorf("Expected file name cowork.toml, got %s", result.File)
	}

	found := false
	for _, info := range result.Errors {
		if strings.Contains(info, "wss://realtime.cowork.test") {
			found = true
		}
	}
	if !found {
		t.Error("Expected endpoint summary in informational output")
	}
}

func TestValidateFile_MissingFile(t *testing.T) {
	result := validateFile(filepath.Join(t.TempDir(), "nope.toml"))
	if result.Valid {
		t.Error("Expected missing file to be invalid")
	}
}

func TestValidateFile_InvalidTOML(t *testing.T) {
	result := validateFile(writeConfig(t, `host = [broken`))
	if result.Valid {
		t.Error("Expected malformed TOML to be invalid")
	}
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], "Invalid TOML") {
		t.Errorf("Expected TOML parse error, got %v", result.Errors)
	}
}

func TestValidateFile_MissingRequiredFields(t *testing.T) {
	result := validateFile(writeConfig(t, `
scheme = "wss"
log_level = "info"
`))
	if result.Valid {
		t.Error("Expected config without host and user_id to be invalid")
	}
}

func TestValidateFile_HostWithScheme(t *testing.T) {
	result := validateFile(writeConfig(t, `
host = "wss://realtime.cowork.test"
user_id = "u1"
`))
	if result.Valid {
		t.Error("Expected URL-shaped host to be invalid")
	}

	found := false
	for _, msg := range result.Errors {
		if strings.Contains(msg, "must not include a scheme") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected scheme-in-host error, got %v", result.Errors)
	}
}

func TestValidateFile_BadLogLevel(t *testing.T) {
	result := validateFile(writeConfig(t, `
host = "realtime.cowork.test"
user_id = "u1"
log_level = "verbose"
`))
	if result.Valid {
		t.Error("Expected unknown log_level to be invalid")
	}
}

func TestValidateFile_MissingTokenIsNoteOnly(t *testing.T) {
	result := validateFile(writeConfig(t, `
host = "realtime.cowork.test"
user_id = "u1"
`))
	if !result.Valid {
		t.Errorf("Expected config without token to remain valid, got %v", result.Errors)
	}

	found := false
	for _, msg := range result.Errors {
		if strings.Contains(msg, "unauthenticated") {
			found = true
		}
	}
	if !found {
		t.Error("Expected unauthenticated note in output")
	}
}

func TestValidateFile_BadScheme(t *testing.T) {
	result := validateFile(writeConfig(t, `
host = "realtime.cowork.test"
scheme = "https"
user_id = "u1"
`))
	if result.Valid {
		t.Error("Expected non-websocket scheme to be invalid")
	}
}
