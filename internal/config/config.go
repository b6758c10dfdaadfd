// Package config loads the voxphys service configuration from YAML or JSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/voxphys/internal/core/observability/log"
	"github.com/zeusync/voxphys/internal/core/systems/physics"
	"github.com/zeusync/voxphys/internal/telemetry"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Log        log.Config       `json:"log" yaml:"log"`
	Physics    physics.Config   `json:"physics" yaml:"physics"`
	Simulation Simulation       `json:"simulation" yaml:"simulation"`
	Telemetry  telemetry.Config `json:"telemetry" yaml:"telemetry"`
}

// Simulation drives the tick loop of the demo driver.
type Simulation struct {
	TickRate float64 `json:"tick_rate" yaml:"tick_rate"`
	// Ticks stops the loop after that many ticks; zero runs until interrupted.
	Ticks uint64 `json:"ticks" yaml:"ticks"`
	Scene Scene  `json:"scene" yaml:"scene"`
}

// Scene describes the world the driver populates.
type Scene struct {
	Seed       uint64 `json:"seed" yaml:"seed"`
	HalfChunks int32  `json:"half_chunks" yaml:"half_chunks"`
	GroundZ    int32  `json:"ground_z" yaml:"ground_z"`
	Pillars    int    `json:"pillars" yaml:"pillars"`
	Walkers    int    `json:"walkers" yaml:"walkers"`
	Arrows     int    `json:"arrows" yaml:"arrows"`
	Ships      int    `json:"ships" yaml:"ships"`
	// Pool is the side length of a water pool at the origin; zero disables it.
	Pool int32 `json:"pool" yaml:"pool"`
}

func Default() Config {
	return Config{
		Log:     log.Config{Level: "info", Encoding: "json", Sampling: true},
		Physics: physics.DefaultConfig(),
		Simulation: Simulation{
			TickRate: 30,
			Scene: Scene{
				Seed:       1,
				HalfChunks: 2,
				GroundZ:    10,
				Pillars:    24,
				Walkers:    64,
				Arrows:     8,
				Ships:      1,
				Pool:       8,
			},
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	var all error
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		all = errors.Join(all, err)
	}
	all = errors.Join(all, c.Physics.Validate(), c.Telemetry.Validate(), c.Simulation.validate())
	if all != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, all)
	}
	return nil
}

func (s Simulation) validate() error {
	switch {
	case !(s.TickRate > 0):
		return fmt.Errorf("simulation: tick_rate %v must be positive", s.TickRate)
	case s.Scene.HalfChunks <= 0:
		return fmt.Errorf("simulation: half_chunks %d must be positive", s.Scene.HalfChunks)
	case s.Scene.Pillars < 0 || s.Scene.Walkers < 0 || s.Scene.Arrows < 0 || s.Scene.Ships < 0 || s.Scene.Pool < 0:
		return errors.New("simulation: scene counts must not be negative")
	}
	return nil
}

// LoadYAML decodes YAML over the defaults. Unknown keys are rejected.
func LoadYAML(r io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	return c, c.Validate()
}

// LoadJSON decodes JSON over the defaults. Unknown keys are rejected.
func LoadJSON(r io.Reader) (Config, error) {
	c := Default()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode json: %w", err)
	}
	return c, c.Validate()
}

// Load reads path, choosing the decoder by extension. An empty path yields
// the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		c := Default()
		return c, c.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadJSON(f)
	}
	return LoadYAML(f)
}
