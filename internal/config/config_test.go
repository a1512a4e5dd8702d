package config

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_SOURCE", "postgres://localhost/backoffice")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "@daily", cfg.OverdueSchedule)
}

func TestLoadMemoryDriverWithoutDatabase(t *testing.T) {
	t.Setenv("DB_SOURCE", "")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", DriverMemory)
	t.Setenv("OVERDUE_SCHEDULE", "")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Empty(t, cfg.OverdueSchedule)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"missing database": {"DB_SOURCE": "", "JWT_SECRET": "x"},
		"missing secret":   {"DB_SOURCE": "postgres://db", "JWT_SECRET": ""},
		"unknown driver":   {"DB_SOURCE": "postgres://db", "JWT_SECRET": "x", "STORE_DRIVER": "mongo"},
		"bad log level":    {"DB_SOURCE": "postgres://db", "JWT_SECRET": "x", "LOG_LEVEL": "loud"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
