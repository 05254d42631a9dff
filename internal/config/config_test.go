package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8787,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Bus: BusConfig{Embedded: true},
		Auth: AuthConfig{
			ClientID:       "client",
			AllowedDomains: []string{"lioncrest.vc"},
			TokenLifetime:  Duration(time.Hour),
		},
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("rejects invalid port", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive shutdown timeout", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.ShutdownTimeout = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("requires bus url when not embedded", func(t *testing.T) {
		cfg := validConfig()
		cfg.Bus = BusConfig{Embedded: false, URL: ""}
		assert.Error(t, cfg.Validate())
	})

	t.Run("requires at least one allowed domain", func(t *testing.T) {
		cfg := validConfig()
		cfg.Auth.AllowedDomains = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects address-shaped allowed domain", func(t *testing.T) {
		cfg := validConfig()
		cfg.Auth.AllowedDomains = []string{"user@lioncrest.vc"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive token lifetime", func(t *testing.T) {
		cfg := validConfig()
		cfg.Auth.TokenLifetime = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("bogus")))
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("super-secret-key")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "super-secret-key", s.Value())
	assert.True(t, s.IsSet())

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `"[REDACTED]"`, string(out))

	var empty Secret
	assert.Equal(t, "", empty.String())
	assert.False(t, empty.IsSet())
}
