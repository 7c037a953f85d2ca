package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, float64(60), cfg.FPS)
	assert.True(t, cfg.Performances.Enabled)
	assert.Equal(t, 200, cfg.Performances.SamplesCount)
	assert.Equal(t, 4*time.Second, cfg.Performances.SampleDuration)
	assert.NoError(t, cfg.Validate())
}

func TestFrameDuration(t *testing.T) {
	for _, fps := range []float64{1, 10, 24, 30, 59.94, 60, 144} {
		cfg := Default()
		cfg.FPS = fps

		expectedMs := 1000 / fps
		actualMs := float64(cfg.FrameDuration()) / float64(time.Millisecond)
		assert.InDelta(t, expectedMs, actualMs, 1e-6, "fps=%v", fps)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:   "zero sample duration disables duration closing",
			mutate: func(c *Config) { c.Performances.SampleDuration = 0 },
		},
		{
			name:    "zero fps",
			mutate:  func(c *Config) { c.FPS = 0 },
			wantErr: ErrInvalidFPS,
		},
		{
			name:    "negative fps",
			mutate:  func(c *Config) { c.FPS = -30 },
			wantErr: ErrInvalidFPS,
		},
		{
			name:    "NaN fps",
			mutate:  func(c *Config) { c.FPS = math.NaN() },
			wantErr: ErrInvalidFPS,
		},
		{
			name:    "infinite fps",
			mutate:  func(c *Config) { c.FPS = math.Inf(1) },
			wantErr: ErrInvalidFPS,
		},
		{
			name:    "zero samples count",
			mutate:  func(c *Config) { c.Performances.SamplesCount = 0 },
			wantErr: ErrInvalidSamplesCount,
		},
		{
			name: "samples count is checked even with sampling disabled",
			mutate: func(c *Config) {
				c.Performances.Enabled = false
				c.Performances.SamplesCount = -1
			},
			wantErr: ErrInvalidSamplesCount,
		},
		{
			name:    "negative sample duration",
			mutate:  func(c *Config) { c.Performances.SampleDuration = -time.Second },
			wantErr: ErrInvalidSampleDuration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frameperf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("full file", func(t *testing.T) {
		path := writeConfig(t, `
fps: 30
performances:
  enabled: false
  samples_count: 50
  sample_duration: 1500ms
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, float64(30), cfg.FPS)
		assert.False(t, cfg.Performances.Enabled)
		assert.Equal(t, 50, cfg.Performances.SamplesCount)
		assert.Equal(t, 1500*time.Millisecond, cfg.Performances.SampleDuration)
	})

	t.Run("missing keys keep defaults", func(t *testing.T) {
		path := writeConfig(t, "fps: 24\n")
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, float64(24), cfg.FPS)
		assert.True(t, cfg.Performances.Enabled)
		assert.Equal(t, DefaultSamplesCount, cfg.Performances.SamplesCount)
		assert.Equal(t, DefaultSampleDuration, cfg.Performances.SampleDuration)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		path := writeConfig(t, "fps: 0\n")
		_, err := Load(path)
		assert.ErrorIs(t, err, ErrInvalidFPS)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfig(t, "fps: [nope\n")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
