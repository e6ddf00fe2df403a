package config

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CheckAPIKey verifies whether the presented key matches the configured
// gateway credential. A configured value starting with "$2" is treated as
// a bcrypt hash, anything else as a plain key. An empty configuration
// disables the check and admits everyone.
func CheckAPIKey(cfg *Config, candidate string) bool {
	if cfg == nil {
		return false
	}
	configured := cfg.Security.APIKey
	if configured == "" {
		return true
	}
	if candidate == "" {
		return false
	}
	if strings.HasPrefix(configured, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(candidate)) == nil
	}
	return candidate == configured
}

// APIKeyValidator returns a closure suitable for middleware validation.
func APIKeyValidator(cfg *Config) func(string) bool {
	return func(candidate string) bool {
		return CheckAPIKey(cfg, candidate)
	}
}
