package config

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCheckAPIKeyPlain(t *testing.T) {
	cfg := &Config{}
	cfg.Security.APIKey = "secret"
	require.True(t, CheckAPIKey(cfg, "secret"))
	require.False(t, CheckAPIKey(cfg, "other"))
	require.False(t, CheckAPIKey(cfg, ""), "empty candidate must not validate against configured key")
}

func TestCheckAPIKeyHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &Config{}
	cfg.Security.APIKey = string(hash)
	require.True(t, CheckAPIKey(cfg, "secret"))
	require.False(t, CheckAPIKey(cfg, "other"))
}

func TestCheckAPIKeyUnset(t *testing.T) {
	cfg := &Config{}
	require.True(t, CheckAPIKey(cfg, ""), "unset key must admit everyone")
	require.True(t, CheckAPIKey(cfg, "anything"))
}
