package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/voxphys/internal/core/models"
	"github.com/zeusync/voxphys/internal/core/terrain"
)

func TestPushbackIncrements(t *testing.T) {
	require.Equal(t, 1, pushbackIncrements(mgl64.Vec3{}, mgl64.Vec3{}))
	require.Equal(t, 1, pushbackIncrements(mgl64.Vec3{0.1, 0, 0}, mgl64.Vec3{}))

	prev := 0
	for k := 0; k < 10; k++ {
		rel := MinCollisionDist*float64(k) + MinCollisionDist/2
		n := pushbackIncrements(mgl64.Vec3{rel / 2, 0, 0}, mgl64.Vec3{-rel / 2, 0, 0})
		require.Equal(t, k+1, n)
		require.Greater(t, n, prev)
		prev = n
	}
}

func TestClosestPoints(t *testing.T) {
	seg := func(x0, y0, x1, y1 float64) [2]mgl64.Vec2 {
		return [2]mgl64.Vec2{{x0, y0}, {x1, y1}}
	}
	tests := []struct {
		name         string
		a, b         [2]mgl64.Vec2
		wantA, wantB mgl64.Vec2
	}{
		{"points", seg(0, 0, 0, 0), seg(3, 4, 3, 4), mgl64.Vec2{0, 0}, mgl64.Vec2{3, 4}},
		{"point and segment", seg(1, 2, 1, 2), seg(0, 0, 4, 0), mgl64.Vec2{1, 2}, mgl64.Vec2{1, 0}},
		{"parallel segments", seg(0, 1, 2, 1), seg(0, 0, 2, 0), mgl64.Vec2{0, 1}, mgl64.Vec2{0, 0}},
		{"crossing segments", seg(-1, 0, 1, 0), seg(0, -1, 0, 1), mgl64.Vec2{0, 0}, mgl64.Vec2{0, 0}},
		{"clamped to endpoints", seg(0, 0, 1, 0), seg(3, -1, 3, 1), mgl64.Vec2{1, 0}, mgl64.Vec2{3, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := closestPoints(tt.a[0], tt.a[1], tt.b[0], tt.b[1])
			require.InDelta(t, 0, a.Sub(tt.wantA).Len(), 1e-9)
			require.InDelta(t, 0, b.Sub(tt.wantB).Len(), 1e-9)
		})
	}
}

func stationaryBody(id models.EntityID, pos mgl64.Vec3, radius, mass float64) pushbackBody {
	c := cacheFor(PreviousPhysCache{}, &PhysicsState{}, CapsulePrism{Radius: radius, ZMax: 1.8}, nil,
		pos, mgl64.Vec3{}, mgl64.QuatIdent(), 1, testDt)
	return pushbackBody{id: id, pos: pos, cache: &c, mass: mass}
}

func TestResolvePairStationaryOverlap(t *testing.T) {
	a := stationaryBody(1, mgl64.Vec3{0, 0, 0}, 1, 80)
	b := stationaryBody(2, mgl64.Vec3{1.5, 0, 0}, 1, 80)

	touchedA, fa := resolvePair(&a, &b)
	touchedB, fb := resolvePair(&b, &a)
	require.True(t, touchedA)
	require.True(t, touchedB)

	// 400 * overlap 0.5 * equal mass share 0.5 over a single sub-step.
	requireVecInDelta(t, mgl64.Vec3{-100, 0, 0}, fa, 1e-9)
	requireVecInDelta(t, mgl64.Vec3{100, 0, 0}, fb, 1e-9)
}

func TestResolvePairMassShare(t *testing.T) {
	light := stationaryBody(1, mgl64.Vec3{0, 0, 0}, 1, 20)
	heavy := stationaryBody(2, mgl64.Vec3{0, 1.5, 0}, 1, 60)

	_, onLight := resolvePair(&light, &heavy)
	_, onHeavy := resolvePair(&heavy, &light)
	require.InDelta(t, 3*onHeavy.Len(), onLight.Len(), 1e-9)
}

func TestResolvePairCoincident(t *testing.T) {
	a := stationaryBody(1, mgl64.Vec3{2, 2, 0}, 0.5, 80)
	b := stationaryBody(2, mgl64.Vec3{2, 2, 0}, 0.5, 80)

	_, fa := resolvePair(&a, &b)
	_, fb := resolvePair(&b, &a)
	require.NotEqual(t, mgl64.Vec3{}, fa)
	requireVecInDelta(t, fa.Mul(-1), fb, 1e-12)
}

func TestResolvePairSkips(t *testing.T) {
	t.Run("disjoint vertical ranges", func(t *testing.T) {
		a := stationaryBody(1, mgl64.Vec3{0, 0, 0}, 1, 80)
		b := stationaryBody(2, mgl64.Vec3{0.5, 0, 5}, 1, 80)
		touched, f := resolvePair(&a, &b)
		require.False(t, touched)
		require.Equal(t, mgl64.Vec3{}, f)
	})
	t.Run("inert side only touches", func(t *testing.T) {
		a := stationaryBody(1, mgl64.Vec3{0, 0, 0}, 1, 80)
		b := stationaryBody(2, mgl64.Vec3{0.5, 0, 0}, 1, 80)
		b.inert = true
		touched, f := resolvePair(&a, &b)
		require.True(t, touched)
		require.Equal(t, mgl64.Vec3{}, f)
	})
	t.Run("out of reach", func(t *testing.T) {
		a := stationaryBody(1, mgl64.Vec3{0, 0, 0}, 1, 80)
		b := stationaryBody(2, mgl64.Vec3{2, 0, 0}, 1, 80)
		touched, _ := resolvePair(&a, &b)
		require.False(t, touched)
	})
}

func TestResolvePairFastCrossing(t *testing.T) {
	// Moving 6 units through each other in one tick still registers contact.
	a := stationaryBody(1, mgl64.Vec3{-3, 0, 0}, 0.4, 80)
	b := stationaryBody(2, mgl64.Vec3{3, 0, 0}, 0.4, 80)
	a.cache.VelocityDt = mgl64.Vec3{6, 0, 0}
	b.cache.VelocityDt = mgl64.Vec3{-6, 0, 0}

	touched, _ := resolvePair(&a, &b)
	require.True(t, touched)
}

func TestMutualPushbackScenario(t *testing.T) {
	e := newEngine(t, flatWorld(), nil)
	spec := func(x float64) EntitySpec {
		s := walkerSpec(mgl64.Vec3{x, 0.5, 10}, mgl64.Vec3{})
		s.Collider = CapsulePrism{Radius: 1, ZMax: 1.8}
		return s
	}
	a := spawn(t, e, spec(-0.75))
	b := spawn(t, e, spec(0.75))

	m, err := e.Tick(t.Context(), testDt)
	require.NoError(t, err)
	require.Equal(t, uint64(2), m.EntityEntityCollisions)

	// Each side receives 400 * 0.5 * 0.5 per second of overlap and moves
	// for one tick at that speed before ground friction is applied.
	dv := ElasticForceCoefficient * 0.5 * 0.5 * testDt
	shift := dv * testDt
	requireVecInDelta(t, mgl64.Vec3{-0.75 - shift, 0.5, 10}, position(e, a), 1e-9)
	requireVecInDelta(t, mgl64.Vec3{0.75 + shift, 0.5, 10}, position(e, b), 1e-9)

	friction := applyFriction(mgl64.Vec3{dv, 0, 0}, e.Config().GroundFriction, testDt)[0]
	require.InDelta(t, -friction, velocity(e, a)[0], 1e-9)
	require.InDelta(t, friction, velocity(e, b)[0], 1e-9)

	stateA := physicsState(e, a)
	require.True(t, stateA.Touches(b))
	require.True(t, stateA.OnGround)
	require.Equal(t, terrain.Rock, stateA.GroundBlock.Kind)
}
