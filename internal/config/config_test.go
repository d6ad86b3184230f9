package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "sportsight.toml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Signal.Stride)
	assert.Equal(t, 25, cfg.Signal.PixelThreshold)
	assert.InDelta(t, 0.1, cfg.Signal.SignificanceFloor, 1e-9)
	assert.InDelta(t, 85, cfg.Segment.Percentile, 1e-9)
	assert.Equal(t, 30, cfg.Segment.GapTolerance)
	assert.Equal(t, 5, cfg.Segment.MaxSegments)
}

func TestLoad_Layering(t *testing.T) {
	path := writeTOML(t, `
[signal]
stride = 3
pixel_threshold = 30

[segment]
max_segments = 8

[caption]
azure_endpoint = "https://file.openai.azure.com"
`)
	cfg, err := load(path, env.Options{Environment: map[string]string{
		"SPORTSIGHT_STRIDE":           "7",
		"AZURE_OPENAI_ENDPOINT":       "https://env.openai.azure.com",
		"AZURE_OPENAI_AD_TOKEN":       "tok",
		"DEPLOYMENT_NAME":             "commentary",
		"HUGGINGFACEHUB_ACCESS_TOKEN": "hf",
	}})
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Signal.Stride, "env beats file")
	assert.Equal(t, 30, cfg.Signal.PixelThreshold, "file beats default")
	assert.Equal(t, 8, cfg.Segment.MaxSegments)
	assert.Equal(t, 320, cfg.Signal.AnalysisWidth, "default kept")
	assert.Equal(t, "https://env.openai.azure.com", cfg.Caption.AzureEndpoint)
	assert.Equal(t, "tok", cfg.Caption.AzureCredential)
	assert.Equal(t, "commentary", cfg.Caption.AzureDeployment)
	assert.Equal(t, "2024-02-15-preview", cfg.Caption.AzureAPIVersion)
	assert.Equal(t, "hf", cfg.Caption.HFToken)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := load("", env.Options{Environment: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeTOML(t, "[signal]\nstrid = 3\n")
	_, err := load(path, env.Options{Environment: map[string]string{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signal.strid")
}

func TestLoad_BadEnvValue(t *testing.T) {
	_, err := load("", env.Options{Environment: map[string]string{"SPORTSIGHT_STRIDE": "five"}})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"stride zero", func(c *Config) { c.Signal.Stride = 0 }},
		{"pixel threshold too high", func(c *Config) { c.Signal.PixelThreshold = 256 }},
		{"pixel threshold negative", func(c *Config) { c.Signal.PixelThreshold = -1 }},
		{"negative floor", func(c *Config) { c.Signal.SignificanceFloor = -0.1 }},
		{"percentile above 100", func(c *Config) { c.Segment.Percentile = 101 }},
		{"negative gap", func(c *Config) { c.Segment.GapTolerance = -1 }},
		{"no segments", func(c *Config) { c.Segment.MaxSegments = 0 }},
		{"zero min clip", func(c *Config) { c.Segment.ClipMinSeconds = 0 }},
		{"min above max", func(c *Config) { c.Segment.ClipMinSeconds = 20 }},
		{"http azure endpoint", func(c *Config) { c.Caption.AzureEndpoint = "http://x.openai.azure.com" }},
		{"azure endpoint with query", func(c *Config) { c.Caption.AzureEndpoint = "https://x.openai.azure.com?k=v" }},
		{"empty input", func(c *Config) { c.Paths.Input = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestDerivedParams(t *testing.T) {
	cfg := Default()
	cfg.Caption.TimeoutSeconds = 3

	assert.Equal(t, 5, cfg.DecodeOptions().Stride)
	assert.Equal(t, 25, cfg.MotionParams().PixelThreshold)
	assert.InDelta(t, 15, cfg.SegmentParams().MaxClipSec, 1e-9)
	assert.Equal(t, "3s", cfg.AzureOpenAI().Timeout.String())
	assert.False(t, cfg.AzureOpenAI().BearerAuth, "api-key header by default")

	cfg.Caption.AzureBearerAuth = true
	assert.True(t, cfg.AzureOpenAI().BearerAuth)
}
