package physics

import (
	"time"

	"github.com/zeusync/voxphys/internal/core/observability/log"
)

// TickMetrics summarizes one tick.
type TickMetrics struct {
	Tick     uint64 `json:"tick"`
	Entities int    `json:"entities"`

	EntityEntityChecks     uint64 `json:"entity_entity_checks"`
	EntityEntityCollisions uint64 `json:"entity_entity_collisions"`
	StuckEntities          int    `json:"stuck_entities"`
	Landings               int    `json:"landings"`
	ProjectileHits         int    `json:"projectile_hits"`
	CommittedWrites        int    `json:"committed_writes"`
	Carriers               int    `json:"carriers"`
	FineGridOverflow       int    `json:"fine_grid_overflow"`

	CacheTime     time.Duration `json:"cache_ns"`
	PushbackTime  time.Duration `json:"pushback_ns"`
	IntegrateTime time.Duration `json:"integrate_ns"`
	CarrierTime   time.Duration `json:"carrier_pass_ns"`
	TerrainTime   time.Duration `json:"terrain_pass_ns"`
	Duration      time.Duration `json:"duration_ns"`

	// Digest fingerprints the committed state at the end of the tick. It is
	// only computed with Debug set.
	Digest uint64 `json:"digest,omitempty"`
}

func (m TickMetrics) fields() []log.Field {
	return []log.Field{
		log.Uint64("tick", m.Tick),
		log.Int("entities", m.Entities),
		log.Uint64("ee_checks", m.EntityEntityChecks),
		log.Uint64("ee_collisions", m.EntityEntityCollisions),
		log.Int("stuck", m.StuckEntities),
		log.Int("landings", m.Landings),
		log.Int("projectile_hits", m.ProjectileHits),
		log.Int("writes", m.CommittedWrites),
		log.Duration("duration", m.Duration),
	}
}

// pushbackStats are accumulated per worker during the pushback pass.
type pushbackStats struct {
	checks     uint64
	collisions uint64
}
