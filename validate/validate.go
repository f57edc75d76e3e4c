// Command validate provides a small CLI that validates cowork.toml
// configuration files. It checks:
//   - TOML structure
//   - Presence of host and user_id
//   - Scheme is ws or wss
//   - Host is a bare authority, not a URL
//   - log_level is one of debug, info, warn, error
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/cowork-labs/cowork-core/config"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateFile loads and validates a single cowork.toml file. It performs
// structural checks and the same field validation the client applies at
// startup, plus lint-style checks for mistakes the client would only
// surface at connect time.
func validateFile(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	cfg := config.Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid TOML: %v", err))
		return result
	}

	if err := cfg.Validate(); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}

	// The host field is an authority only; the scheme field carries the
	// protocol. A pasted URL is the most common mistake.
	if strings.Contains(cfg.Host, "://") {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("host must not include a scheme, got %q", cfg.Host))
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		// The client itself falls back to info; flag it here so typos
		// do not silently drop debug logging.
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid log_level %q (want debug, info, warn, or error)", cfg.LogLevel))
	}

	if cfg.Token == "" {
		result.Errors = append(result.Errors, "note: no token configured, connection will be unauthenticated")
	}

	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Endpoint: %s://%s", cfg.Scheme, cfg.Host))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ User: %s", cfg.UserID))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Log level: %s", cfg.LogLevel))
	}

	return result
}

// main validates the files named on the command line, or cowork.toml in
// the current directory when none are given, printing a concise report
// and exiting with non-zero status if any are invalid.
func main() {
	files := os.Args[1:]
	if len(files) == 0 {
		files = []string{config.DefaultFile}
	}

	allValid := true
	for _, file := range files {
		result := validateFile(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
