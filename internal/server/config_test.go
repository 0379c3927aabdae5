package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	config := GetDefaultConfig()

	assert.Equal(t, "0.0.0.0", config.Host)
	assert.Equal(t, 8080, config.Port)
	assert.Equal(t, "0.0.0.0:8080", config.GetAddress())
	assert.Equal(t, "/api/v1", config.APIPrefix)
	assert.Equal(t, "X-Tenant-ID", config.TenantHeader)
	assert.NotNil(t, config.Database)
	assert.NoError(t, config.Validate())
}

func TestConfigValidation(t *testing.T) {
	t.Run("Invalid port", func(t *testing.T) {
		config := GetDefaultConfig()
		config.Port = 0
		assert.Error(t, config.Validate())
	})

	t.Run("Page size inversion", func(t *testing.T) {
		config := GetDefaultConfig()
		config.DefaultPageSize = 200
		config.MaxPageSize = 100
		assert.Error(t, config.Validate())
	})

	t.Run("Non-positive shutdown timeout", func(t *testing.T) {
		config := GetDefaultConfig()
		config.ShutdownTimeout = 0
		assert.Error(t, config.Validate())
	})
}
