package config

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 1280, cfg.Render.Width)
	assert.Equal(t, log.InfoLevel, cfg.Level())
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "render.toml", `
backend = "headless"
frames = 4

[window]
title = "demo"

[render]
width = 640
height = 480
gamma = 2.0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "headless", cfg.Backend)
	assert.Equal(t, 4, cfg.Frames)
	assert.Equal(t, "demo", cfg.Window.Title)
	assert.Equal(t, 640, cfg.Render.Width)
	assert.Equal(t, float32(2), cfg.Render.Gamma)
	assert.Equal(t, float32(1), cfg.Render.Exposure, "unset keys keep their defaults")
}

func TestUnknownKey(t *testing.T) {
	path := writeFile(t, "render.toml", "backnd = \"opengl\"\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	path := writeFile(t, "render.toml", "[render]\nwidth = 640\n")
	t.Setenv("RENDER_WIDTH", "320")
	t.Setenv("RENDER_EXPOSURE", "1.5")
	t.Setenv("RENDER_BACKEND", "headless")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Render.Width)
	assert.Equal(t, float32(1.5), cfg.Render.Exposure)
	assert.Equal(t, "headless", cfg.Backend)
}

func TestEnvFile(t *testing.T) {
	env := writeFile(t, ".env", "RENDER_MODEL=bunny.obj\nRENDER_FRAMES=2\n")
	t.Cleanup(func() {
		os.Unsetenv("RENDER_MODEL")
		os.Unsetenv("RENDER_FRAMES")
	})

	cfg, err := Load("", env, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "bunny.obj", cfg.Model)
	assert.Equal(t, 2, cfg.Frames)
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	cfg := Default()
	env := map[string]string{"RENDER_HEIGHT": "tall", "RENDER_GAMMA": "x"}
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RENDER_HEIGHT")
	assert.Contains(t, err.Error(), "RENDER_GAMMA")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty backend", func(c *Config) { c.Backend = "" }},
		{"zero width", func(c *Config) { c.Render.Width = 0 }},
		{"zero gamma", func(c *Config) { c.Render.Gamma = 0 }},
		{"zero white level", func(c *Config) { c.Render.WhiteLevel = 0 }},
		{"negative frames", func(c *Config) { c.Frames = -1 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
