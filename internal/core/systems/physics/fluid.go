package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/voxphys/internal/core/terrain"
)

const (
	// liquidDragSpeed is the reference speed turning quadratic liquid drag
	// into the linear coefficient of the exponential model.
	liquidDragSpeed = 1.0

	stallAngle        = 25 * math.Pi / 180
	wingEfficiency    = 0.85
	wingParasiticDrag = 0.02
)

func (c Config) liquidDensity(kind terrain.LiquidKind) float64 {
	if kind == terrain.LiquidLava {
		return c.LavaDensity
	}
	return c.WaterDensity
}

// FluidDensity is the effective density around a body of the given height.
// Partially submerged bodies blend liquid and air by the submerged fraction.
func (c Config) FluidDensity(f Fluid, height float64) float64 {
	if !f.IsLiquid() {
		return c.AirDensity
	}
	r := 1.0
	if height > epsilon {
		r = mgl64.Clamp(f.Depth/height, 0, 1)
	} else if f.Depth <= 0 {
		r = 0
	}
	return r*c.liquidDensity(f.Liquid) + (1-r)*c.AirDensity
}

// ProjectedArea is the silhouette area of the body's ellipsoid seen along dir.
func (b Body) ProjectedArea(dir mgl64.Vec3, scale float64) float64 {
	a := b.Dimensions[0] * scale / 2
	bb := b.Dimensions[1] * scale / 2
	c := b.Dimensions[2] * scale / 2
	x := bb * c * dir[0]
	y := a * c * dir[1]
	z := a * bb * dir[2]
	return math.Pi * math.Sqrt(x*x+y*y+z*z)
}

// DragCoefficientLiquid is the linear drag coefficient, in mass per second,
// used by the exponential liquid model. Frontal area is averaged over the
// three axes since the flow direction changes during the decay.
func (b Body) DragCoefficientLiquid(fluidDensity, scale float64) float64 {
	area := (b.ProjectedArea(mgl64.Vec3{1, 0, 0}, scale) +
		b.ProjectedArea(mgl64.Vec3{0, 1, 0}, scale) +
		b.ProjectedArea(mgl64.Vec3{0, 0, 1}, scale)) / 3
	return 0.5 * fluidDensity * b.DragCoefficient() * area * liquidDragSpeed
}

// AerodynamicForces returns the force of air flowing past the body with
// velocity relFlow. Wings add lift and induced drag.
func (b Body) AerodynamicForces(relFlow mgl64.Vec3, fluidDensity float64, wings *Wings, scale float64) mgl64.Vec3 {
	speed := relFlow.Len()
	if speed < epsilon {
		return mgl64.Vec3{}
	}
	dir := relFlow.Mul(1 / speed)
	q := 0.5 * fluidDensity * speed * speed

	force := dir.Mul(q * b.DragCoefficient() * b.ProjectedArea(dir, scale))
	if wings == nil || wings.AspectRatio <= 0 || wings.PlanformArea <= 0 {
		return force
	}

	normal := wings.Ori.Rotate(mgl64.Vec3{0, 0, 1})
	aoa := math.Asin(mgl64.Clamp(dir.Dot(normal), -1, 1))
	aoa = mgl64.Clamp(aoa, -stallAngle, stallAngle)

	ar := wings.AspectRatio
	cl := 2 * math.Pi * ar / (ar + 2) * aoa
	cd := wingParasiticDrag + cl*cl/(math.Pi*wingEfficiency*ar)

	lift := normal.Sub(dir.Mul(dir.Dot(normal)))
	if l := lift.Len(); l > epsilon {
		force = force.Add(lift.Mul(q * wings.PlanformArea * cl / l))
	}
	return force.Add(dir.Mul(q * wings.PlanformArea * cd))
}
