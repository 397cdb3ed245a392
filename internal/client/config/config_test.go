package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://localhost:5000/api", c.APIBaseURL)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, ".webtoz/session.db", c.StorePath)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}
	t.Setenv("WEBTOZ_API_URL", "")

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://localhost:5000/api", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"api_base_url":    "http://json:1/api",
		"request_timeout": "3s",
	})
	t.Setenv("WEBTOZ_API_URL", "http://env:1/api")
	os.Args = []string{"testbin", "-c", path, "-a", "http://flag:1/api"}

	cfg := LoadConfig()

	assert.Equal(t, "http://flag:1/api", cfg.APIBaseURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, ".webtoz/session.db", cfg.StorePath)
}

func TestParseEnv(t *testing.T) {
	t.Setenv("WEBTOZ_API_URL", "http://api.example.com/api")

	cfg := &Config{APIBaseURL: "default"}
	parseEnv(cfg)

	assert.Equal(t, "http://api.example.com/api", cfg.APIBaseURL)
}
