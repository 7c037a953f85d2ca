package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidFPS            = errors.New("fps must be a finite number greater than zero")
	ErrInvalidSamplesCount   = errors.New("samples count must be greater than zero")
	ErrInvalidSampleDuration = errors.New("sample duration must not be negative")
)

// Defaults. With everything running smoothly the sample count closes windows
// before the duration does: 1000ms / 60fps * 200 samples = 3333ms < 4000ms.
const (
	DefaultFPS            = 60
	DefaultSamplesCount   = 200
	DefaultSampleDuration = 4 * time.Second
)

// Config holds the throttling and sampling settings of a scheduler.
type Config struct {
	FPS          float64      `yaml:"fps"`          // target tick rate
	Performances Performances `yaml:"performances"` // ratio sampling
}

// Performances controls how the performance ratio is sampled.
// SamplesCount and SampleDuration are used concurrently: a window closes on
// whichever limit is hit first. A zero SampleDuration leaves only the count.
type Performances struct {
	Enabled        bool          `yaml:"enabled"`
	SamplesCount   int           `yaml:"samples_count"`
	SampleDuration time.Duration `yaml:"sample_duration"`
}

// Default returns a Config populated with standard defaults.
func Default() Config {
	return Config{
		FPS: DefaultFPS,
		Performances: Performances{
			Enabled:        true,
			SamplesCount:   DefaultSamplesCount,
			SampleDuration: DefaultSampleDuration,
		},
	}
}

// Validate rejects settings that would produce degenerate frame durations
// or windows that never close.
func (c Config) Validate() error {
	if c.FPS <= 0 || math.IsNaN(c.FPS) || math.IsInf(c.FPS, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidFPS, c.FPS)
	}
	if c.Performances.SamplesCount <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSamplesCount, c.Performances.SamplesCount)
	}
	if c.Performances.SampleDuration < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidSampleDuration, c.Performances.SampleDuration)
	}
	return nil
}

// FrameDuration returns the target duration of a single tick, 1000/fps ms.
func (c Config) FrameDuration() time.Duration {
	return time.Duration(float64(time.Second) / c.FPS)
}

// Load reads a YAML configuration file. Keys missing from the file keep
// their default values; the result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}
