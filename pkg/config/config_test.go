package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadFeatureToggles(t *testing.T) {
	toggles := loadFeatureToggles([]string{
		"FEATURE_AUTO_ESCALATION=true",
		"FEATURE_ESCALATION_NOTIFICATIONS=false",
		"FEATURE_BROKEN=maybe",
		"PATH=/usr/bin",
		"NOEQUALS",
	})

	assert.Len(t, toggles, 3)
	assert.True(t, toggles["AUTO_ESCALATION"])
	assert.False(t, toggles["ESCALATION_NOTIFICATIONS"])
	assert.False(t, toggles["BROKEN"], "invalid boolean should be treated as disabled")
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("FSMS_TEST_INT", "12")
	t.Setenv("FSMS_TEST_BAD_INT", "twelve")
	t.Setenv("FSMS_TEST_BOOL", "true")

	assert.Equal(t, 12, getEnvAsInt("FSMS_TEST_INT", 1))
	assert.Equal(t, 1, getEnvAsInt("FSMS_TEST_BAD_INT", 1))
	assert.Equal(t, 7, getEnvAsInt("FSMS_TEST_UNSET_INT", 7))
	assert.True(t, getEnvAsBool("FSMS_TEST_BOOL", false))
	assert.Equal(t, "fallback", getEnv("FSMS_TEST_UNSET", "fallback"))
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	original := Cfg
	defer func() { Cfg = original }()

	t.Setenv("JWT_TOKEN_LIFESPAN_HOURS", "2")
	t.Setenv("DB_SSL_ENABLE", "true")
	t.Setenv("FEATURE_AUTO_ESCALATION", "1")
	os.Unsetenv("FILE_STORAGE_PROVIDER")

	LoadConfig()

	assert.Equal(t, 2*time.Hour, Cfg.JWTTokenLifespan)
	assert.True(t, Cfg.EnableDBSSL)
	assert.True(t, Cfg.FeatureToggles["AUTO_ESCALATION"])
	assert.Contains(t, Cfg.DSN(), "sslmode=require")
	assert.Contains(t, Cfg.DatabaseURL(), "?sslmode=require")
}
