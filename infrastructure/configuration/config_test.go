package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfiguration(t *testing.T) {
	t.Run("defaults_applied", func(t *testing.T) {
		require.NotZero(t, C.App.Port)
		assert.NotEmpty(t, C.Database.Vendor)
		assert.Positive(t, C.Publisher.MaxConcurrentPlatforms)
		assert.Positive(t, C.Scheduler.BatchSize)
	})

	t.Run("publisher_durations", func(t *testing.T) {
		p := Publisher{AttemptTimeoutSeconds: 120, HTTPTimeoutSeconds: 15, MediaPollIntervalSeconds: 2}
		assert.Equal(t, 2*time.Minute, p.AttemptTimeout())
		assert.Equal(t, 15*time.Second, p.HTTPTimeout())
		assert.Equal(t, 2*time.Second, p.MediaPollInterval())
	})
}

func TestInitPublisher_EnvOverridesAndDefaults(t *testing.T) {
	t.Setenv("PUBLISHER_MAX_CONCURRENT_PLATFORMS", "7")
	t.Setenv("PUBLISHER_HTTP_TIMEOUT_SECONDS", "not-a-number")

	cfg := Config{Publisher: Publisher{AttemptTimeoutSeconds: 30}}
	initPublisher(&cfg)

	assert.Equal(t, 7, cfg.Publisher.MaxConcurrentPlatforms)
	assert.Equal(t, 30, cfg.Publisher.AttemptTimeoutSeconds)
	assert.Equal(t, 15, cfg.Publisher.HTTPTimeoutSeconds)
	assert.Equal(t, 90, cfg.Publisher.MediaPollTimeoutSeconds)
}

func TestInitDatabase_Vendor(t *testing.T) {
	t.Setenv("DB_VENDOR", "MySQL")
	cfg := Config{}
	initDatabase(&cfg)
	assert.Equal(t, "mysql", cfg.Database.Vendor)
	assert.Equal(t, "3306", cfg.Database.MySql.Port)
}

func TestGetPlatformOAuth_EnvPrecedence(t *testing.T) {
	saved := C.OAuth
	t.Cleanup(func() { C.OAuth = saved })

	C.OAuth.LinkedIn = OAuthClient{ClientID: "from-file", ClientSecret: "YOUR_SECRET"}
	t.Setenv("LINKEDIN_CLIENT_SECRET", "")
	got := GetPlatformOAuth("linkedin")
	assert.Equal(t, "from-file", got.ClientID)
	assert.Empty(t, got.ClientSecret)

	t.Setenv("LINKEDIN_CLIENT_ID", "from-env")
	assert.Equal(t, "from-env", GetPlatformOAuth("LinkedIn").ClientID)

	C.OAuth.Meta = OAuthClient{ClientID: "meta-app"}
	assert.Equal(t, "meta-app", GetPlatformOAuth("instagram").ClientID)
}

func TestLoadEnvFromFile_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("BRANDHUB_A=file\nBRANDHUB_B=\"quoted\"\n"), 0o600))

	t.Setenv("BRANDHUB_A", "process")
	LoadEnvFromFile(path, filepath.Join(dir, "missing.env"))
	t.Cleanup(func() { os.Unsetenv("BRANDHUB_B") })

	assert.Equal(t, "process", os.Getenv("BRANDHUB_A"))
	assert.Equal(t, "quoted", os.Getenv("BRANDHUB_B"))
}
