package adldap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 636, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, uint32(500), cfg.PageSize)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("ADLDAP_HOST", "dc1.ldap.example.com")
	t.Setenv("ADLDAP_PORT", "3269")
	t.Setenv("ADLDAP_USERNAME", "svc-bind")
	t.Setenv("ADLDAP_PASSWORD", "hunter2")
	t.Setenv("ADLDAP_PAGESIZE", "250")
	t.Setenv("ADLDAP_TIMEOUT", "5s")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "dc1.ldap.example.com", cfg.Host)
	assert.Equal(t, 3269, cfg.Port)
	assert.Equal(t, "svc-bind", cfg.Username)
	assert.Equal(t, uint32(250), cfg.PageSize)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("ADLDAP_HOST", "dc1.ldap.example.com")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 636, cfg.Port)
	assert.Equal(t, uint32(500), cfg.PageSize)
}

func TestConfigFromEnvBadPort(t *testing.T) {
	t.Setenv("ADLDAP_PORT", "not-a-port")

	_, err := ConfigFromEnv()
	assert.Error(t, err)
}

func TestConfigFromEnvMissingDotenvIgnored(t *testing.T) {
	_, err := ConfigFromEnv("testdata/does-not-exist.env")
	assert.NoError(t, err)
}
