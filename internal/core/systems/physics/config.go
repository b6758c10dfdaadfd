package physics

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidMass    = errors.New("physics: mass must be strictly positive")
	ErrInvalidDensity = errors.New("physics: density must be strictly positive")
	ErrInvalidScale   = errors.New("physics: scale must be strictly positive")
	ErrNoTerrain      = errors.New("physics: terrain volume is required")
	ErrInvalidDelta   = errors.New("physics: tick delta must be positive and finite")
	ErrInvalidConfig  = errors.New("physics: invalid config")
)

const (
	// MinCollisionDist bounds the relative displacement covered by one
	// pushback sub-step.
	MinCollisionDist = 0.3
	// ElasticForceCoefficient scales the pushback impulse by penetration depth.
	ElasticForceCoefficient = 400.0
	// MaxPushbackBoundary disables pushback for entities moving so fast their
	// swept bounds would dominate the pass.
	MaxPushbackBoundary = 128.0

	// SweepIncrement is the largest per-axis step of the box-voxel sweep.
	SweepIncrement = 0.3
	// MaxSweepIncrements caps the increments of a single sweep.
	MaxSweepIncrements = 100
	// MaxResolveAttempts caps the resolutions in a sweep before the entity is
	// treated as stuck.
	MaxResolveAttempts = 16

	// MaxIntegrationDt is the longest step the integrator applies at once.
	MaxIntegrationDt = 1.0 / 10.0

	voxelRadiusFraction = 0.1
	maxCapsuleRadius    = 0.45
	minCapsuleHeight    = 1.2
	maxCapsuleHeight    = 1.95

	blockHopMinOverlap = 0.1
	blockHopProbe      = 1.05
	blockHopNudge      = 0.05
	floorSnapProbe     = 1.1
	wallProbe          = 0.01

	epsilon = 1e-6
)

// Config holds the tunables of the physics engine.
type Config struct {
	Gravity      float64 `yaml:"gravity" json:"gravity"`
	AirDensity   float64 `yaml:"air_density" json:"air_density"`
	WaterDensity float64 `yaml:"water_density" json:"water_density"`
	LavaDensity  float64 `yaml:"lava_density" json:"lava_density"`
	// GroundFriction is the fraction of velocity lost per 1/60 s on the ground.
	GroundFriction float64 `yaml:"ground_friction" json:"ground_friction"`
	// Workers bounds the parallelism of every pass; zero uses GOMAXPROCS.
	Workers int `yaml:"workers" json:"workers"`
	// Debug turns on NaN assertions that fail the tick and the per-tick
	// state digest.
	Debug bool `yaml:"debug" json:"debug"`
}

func DefaultConfig() Config {
	return Config{
		Gravity:        25,
		AirDensity:     1.225,
		WaterDensity:   999.1026,
		LavaDensity:    2500,
		GroundFriction: 0.15,
	}
}

func (c Config) Validate() error {
	switch {
	case math.IsNaN(c.Gravity) || c.Gravity < 0:
		return fmt.Errorf("%w: gravity %v", ErrInvalidConfig, c.Gravity)
	case !(c.AirDensity > 0) || !(c.WaterDensity > 0) || !(c.LavaDensity > 0):
		return fmt.Errorf("%w: fluid densities must be positive", ErrInvalidConfig)
	case !(c.GroundFriction >= 0 && c.GroundFriction <= 1):
		return fmt.Errorf("%w: ground friction %v not in [0, 1]", ErrInvalidConfig, c.GroundFriction)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}
