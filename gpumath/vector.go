// Package gpumath implements the fixed math core shared by the clipper, the
// triangle setup stage and the rasterizer: vertex vectors, the adjoint-matrix
// edge equation derivation, the Z interpolation equation, the viewport and
// bounding-box computations, barycentric attribute interpolation, the tile
// evaluator and the precomputed MSAA sample tables.
//
// All incremental and setup arithmetic is carried in float64 to match the
// source simulator's precision choice (spec §4.4); only the final depth
// conversion narrows to the configured depth-bit integer precision.
package gpumath

// Vec4 is a 4-component vertex attribute (position or a shader varying).
type Vec4 [4]float32

// Equation is a linear form a*x + b*y + c sampled at a raster position; c is
// always the value of the equation at the *current* raster (x,y), per the
// SetupTriangle invariant in spec §3.
type Equation struct {
	A, B, C float64
}

// At evaluates the equation assuming C already represents the value at (x,y);
// it is the equation's current sample value.
func (e Equation) At() float64 { return e.C }

// Step returns the equation with C updated for a move of (dx,dy) in raster
// space, per spec §4.4: new c = c + a*dx + b*dy.
func (e Equation) Step(dx, dy float64) Equation {
	e.C += e.A*dx + e.B*dy
	return e
}

// Scaled returns a copy of e with all three coefficients multiplied by k;
// used when flipping facing (negate) or biasing the Z equation in viewport
// adjustment.
func (e Equation) Scaled(k float64) Equation {
	return Equation{A: e.A * k, B: e.B * k, C: e.C * k}
}

func (e Equation) negate() Equation { return e.Scaled(-1) }

// Add combines two equations coefficient-wise.
func (e Equation) Add(o Equation) Equation {
	return Equation{A: e.A + o.A, B: e.B + o.B, C: e.C + o.C}
}
