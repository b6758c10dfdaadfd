package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/voxphys/internal/core/models"
	"github.com/zeusync/voxphys/internal/core/terrain"
)

// Collider is the closed set of collision shapes. Exactly one variant is held
// per entity and it selects the narrow-phase branch.
type Collider interface {
	// BoundingRadius is the unscaled horizontal radius enclosing the shape.
	BoundingRadius() float64
	// ZLimits are the unscaled vertical extents relative to the entity origin.
	ZLimits() (zMin, zMax float64)
	isCollider()
}

// CapsulePrism is a horizontal segment swept by a circle and extruded
// vertically. Used for creatures.
type CapsulePrism struct {
	P0, P1 mgl64.Vec2
	Radius float64
	ZMin   float64
	ZMax   float64
}

// Voxel refers to a voxel volume in the collider manifest. Radius and Height
// describe the footprint of that volume and are filled in from the manifest
// when the entity is spawned.
type Voxel struct {
	ID     string
	Radius float64
	Height float64
}

// Point is a degenerate shape used for projectiles.
type Point struct{}

func (c CapsulePrism) BoundingRadius() float64 {
	return c.Radius + math.Max(c.P0.Len(), c.P1.Len())
}

func (c CapsulePrism) ZLimits() (float64, float64) { return c.ZMin, c.ZMax }

func (v Voxel) BoundingRadius() float64 { return v.Radius }

func (v Voxel) ZLimits() (float64, float64) { return 0, v.Height }

func (Point) BoundingRadius() float64 { return 0 }

func (Point) ZLimits() (float64, float64) { return 0, 0 }

func (CapsulePrism) isCollider() {}
func (Voxel) isCollider()        {}
func (Point) isCollider()        {}

// VoxelShape builds the collider for an entity carrying the given volume.
func VoxelShape(id string, vv VoxelVolume) Voxel {
	return Voxel{ID: id, Radius: vv.Radius, Height: vv.Height}
}

type BodyKind uint8

const (
	BodyHumanoid BodyKind = iota
	BodyQuadruped
	BodyBird
	BodyFish
	BodyShip
	BodyObject
	BodyArrow
)

// Body describes the physical silhouette of an entity.
type Body struct {
	Kind BodyKind
	// Dimensions are the full extents of the body along x, y and z.
	Dimensions mgl64.Vec3
}

// Height is the unscaled vertical extent.
func (b Body) Height() float64 { return b.Dimensions[2] }

// FloorSnaps reports whether the body is pulled onto the ground when it walks
// off small drops. Free-floating objects and ships are exempt.
func (b Body) FloorSnaps() bool {
	switch b.Kind {
	case BodyShip, BodyObject, BodyArrow, BodyBird, BodyFish:
		return false
	default:
		return true
	}
}

// DragCoefficient is the dimensionless drag coefficient of the silhouette.
func (b Body) DragCoefficient() float64 {
	switch b.Kind {
	case BodyHumanoid:
		return 0.8
	case BodyQuadruped:
		return 0.9
	case BodyBird:
		return 0.4
	case BodyFish:
		return 0.1
	case BodyShip:
		return 1.2
	case BodyArrow:
		return 0.2
	default:
		return 0.9
	}
}

type CharacterKind uint8

const (
	CharacterIdle CharacterKind = iota
	CharacterDodge
	CharacterGlide
	CharacterClimb
)

// Wings parameterize lift while gliding.
type Wings struct {
	AspectRatio  float64
	PlanformArea float64
	// Ori is the orientation of the wing; its local z axis is the wing normal.
	Ori mgl64.Quat
}

type CharacterState struct {
	Kind  CharacterKind
	Wings *Wings
}

// hitboxScale halves the effective height of dodging and gliding characters.
func (cs *CharacterState) hitboxScale() float64 {
	if cs != nil && (cs.Kind == CharacterDodge || cs.Kind == CharacterGlide) {
		return 0.5
	}
	return 1
}

func (cs *CharacterState) climbing() bool {
	return cs != nil && cs.Kind == CharacterClimb
}

func (cs *CharacterState) forcedMovement() bool {
	return cs != nil && cs.Kind == CharacterDodge
}

func (cs *CharacterState) wings() *Wings {
	if cs != nil && cs.Kind == CharacterGlide {
		return cs.Wings
	}
	return nil
}

type FluidKind uint8

const (
	FluidNone FluidKind = iota
	FluidAir
	FluidLiquid
)

// Fluid is the medium an entity is in. Air carries the entity elevation,
// liquids carry the submersion depth measured from the entity origin.
type Fluid struct {
	Kind      FluidKind
	Liquid    terrain.LiquidKind
	Depth     float64
	Elevation float64
	// Vel is the flow velocity of the medium.
	Vel mgl64.Vec3
}

func AirFluid(elevation float64) Fluid {
	return Fluid{Kind: FluidAir, Elevation: elevation}
}

func LiquidFluid(kind terrain.LiquidKind, depth float64) Fluid {
	return Fluid{Kind: FluidLiquid, Liquid: kind, Depth: depth}
}

func (f Fluid) Present() bool  { return f.Kind != FluidNone }
func (f Fluid) IsLiquid() bool { return f.Kind == FluidLiquid }

// PhysicsState is the per-tick contact classification of an entity. It is
// rebuilt from scratch by the terrain pass every tick.
type PhysicsState struct {
	OnGround    bool
	GroundBlock terrain.Block
	OnCeiling   bool
	OnWall      bool
	// WallDir points from the entity toward the wall(s) it touches; the wall
	// surface normal is its negation.
	WallDir   mgl64.Vec3
	InFluid   Fluid
	GroundVel mgl64.Vec3
	// Carrier is the voxel carrier the entity stands on; zero on terrain.
	Carrier  models.EntityID
	Touching map[models.EntityID]struct{}
}

func newPhysicsState() PhysicsState {
	return PhysicsState{Touching: make(map[models.EntityID]struct{})}
}

// OnSurface reports whether the entity rests against any surface.
func (s *PhysicsState) OnSurface() bool {
	return s.OnGround || s.OnCeiling || s.OnWall
}

// Touches reports whether other was touched during the last pushback pass.
func (s *PhysicsState) Touches(other models.EntityID) bool {
	_, ok := s.Touching[other]
	return ok
}

func (s *PhysicsState) setGround(b terrain.Block) {
	s.OnGround = true
	s.GroundBlock = b
}

// PreviousPhysCache is the derived per-entity geometry computed at the start
// of a tick. It is the only data parallel readers consult about other
// entities, and it is never written while a pass reads it.
type PreviousPhysCache struct {
	VelocityDt mgl64.Vec3
	// Center of the sphere bounding the entity over the tick's path.
	Center            mgl64.Vec3
	CollisionBoundary float64
	Scale             float64
	ScaledRadius      float64
	// NeighborhoodRadius is the circle radius swept along the prism origins.
	NeighborhoodRadius float64
	// Origins are the world-rotated, scaled prism endpoints relative to the
	// entity position. Only set for capsule prisms.
	Origins    [2]mgl64.Vec2
	HasOrigins bool
	// ZLimits are scaled and adjusted for the character state.
	ZLimits [2]float64

	// Pos and Ori are recorded at the end of the previous tick.
	Pos mgl64.Vec3
	Ori mgl64.Quat

	WasOnGround  bool
	WasOnSurface bool
	PrevFluid    Fluid
}
