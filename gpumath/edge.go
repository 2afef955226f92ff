package gpumath

// FaceMode selects which vertex winding is considered front-facing.
type FaceMode int

const (
	FaceCW FaceMode = iota
	FaceCCW
)

// SetupMatrix computes the three edge equations of a triangle from the
// homogeneous (x, y, w) components of its three vertex positions, following
// spec §4.2 step 2: the adjoint of the homogeneous [X Y W] matrix via the
// yzx/zxy swizzle cross products. Column i of the result is edge_i = (A_i,
// B_i, C_i), the edge opposite vertex i (zero along that edge, positive
// towards vertex i for a CCW-wound, viewport-space triangle).
func SetupMatrix(v1, v2, v3 Vec4) (e1, e2, e3 Equation) {
	x := [3]float64{float64(v1[0]), float64(v2[0]), float64(v3[0])}
	y := [3]float64{float64(v1[1]), float64(v2[1]), float64(v3[1])}
	w := [3]float64{float64(v1[3]), float64(v2[3]), float64(v3[3])}

	a := cross3(y, w)
	b := cross3(w, x)
	c := cross3(x, y)

	e1 = Equation{A: a[0], B: b[0], C: c[0]}
	e2 = Equation{A: a[1], B: b[1], C: c[1]}
	e3 = Equation{A: a[2], B: b[2], C: c[2]}
	return
}

// cross3 computes the component-wise cross product of two 3-vectors using
// the cyclic yzx/zxy swizzle construction: result[i] = p[j]*q[k] - p[k]*q[j]
// for the cyclic permutation (i,j,k) of (0,1,2).
func cross3(p, q [3]float64) [3]float64 {
	yzx := func(v [3]float64) [3]float64 { return [3]float64{v[1], v[2], v[0]} }
	zxy := func(v [3]float64) [3]float64 { return [3]float64{v[2], v[0], v[1]} }
	py, qz := yzx(p), zxy(q)
	pz, qy := zxy(p), yzx(q)
	return [3]float64{
		py[0]*qz[0] - pz[0]*qy[0],
		py[1]*qz[1] - pz[1]*qy[1],
		py[2]*qz[2] - pz[2]*qy[2],
	}
}

// FlipFacing negates all three edge equations in place, used when the
// configured front-face winding combined with the pixel-coordinate
// convention requires inverting the edges (spec §4.2 step 3).
func FlipFacing(e1, e2, e3 Equation) (Equation, Equation, Equation) {
	return e1.negate(), e2.negate(), e3.negate()
}

// ShouldFlip reports whether edges must be flipped for the given face mode
// and pixel convention, per spec §4.2 step 3: flip if
// (frontFace==CW && !d3d9Pixel) || (frontFace==CCW && d3d9Pixel).
func ShouldFlip(face FaceMode, d3d9Pixel bool) bool {
	return (face == FaceCW && !d3d9Pixel) || (face == FaceCCW && d3d9Pixel)
}

// Area returns the triangle's signed area approximation: dot(C, W), the sum
// of each edge equation's C coefficient weighted by the corresponding
// vertex's homogeneous W (spec §4.2 step 5).
func Area(e1, e2, e3 Equation, v1, v2, v3 Vec4) float64 {
	return e1.C*float64(v1[3]) + e2.C*float64(v2[3]) + e3.C*float64(v3[3])
}

// InterpolationEquation derives the Z-interpolation equation from the three
// edge equations and the three vertices' Z values, treating the edges as a
// basis (spec §4.2 step 4): each edge equation evaluates to the triangle area
// at its own vertex and zero at the other two, so Zeq = sum_i (z_i/area) *
// edge_i.
func InterpolationEquation(e1, e2, e3 Equation, z1, z2, z3 float64, area float64) Equation {
	if area == 0 {
		return Equation{}
	}
	inv := 1.0 / area
	return Equation{
		A: (e1.A*z1 + e2.A*z2 + e3.A*z3) * inv,
		B: (e1.B*z1 + e2.B*z2 + e3.B*z3) * inv,
		C: (e1.C*z1 + e2.C*z2 + e3.C*z3) * inv,
	}
}

// ApplyViewport translates an already screen-space-valued set of equations by
// the viewport origin (x0,y0). The vertex attribute positions the core
// accepts (spec §3) are produced by an upstream, out-of-scope
// PrimitiveAssembly stage already in device pixel coordinates (see the
// concrete scenarios in spec §8, which hand in raw pixel coordinates such as
// (10,10)); this function only accounts for a viewport whose origin is not
// the screen origin, translating c by -(a*x0 + b*y0) so the equation still
// reads zero at the same triangle edge once x,y are interpreted relative to
// the viewport's own coordinate frame.
func ApplyViewport(e Equation, x0, y0 float64) Equation {
	e.C -= e.A*x0 + e.B*y0
	return e
}

// HalfPixelShift offsets an equation's sample point by (+0.5,+0.5) pixels,
// the OpenGL rasterization convention from spec §4.2 step 6.
func HalfPixelShift(e Equation) Equation {
	e.C += e.A*0.5 + e.B*0.5
	return e
}

// BoundingBox computes the integer pixel bounding box of a triangle's three
// screen-space positions (spec §4.2 step 7), before scissor clamping.
func BoundingBox(v1, v2, v3 Vec4) (xMin, yMin, xMax, yMax int32) {
	minF := func(a, b, c float32) float32 {
		m := a
		if b < m {
			m = b
		}
		if c < m {
			m = c
		}
		return m
	}
	maxF := func(a, b, c float32) float32 {
		m := a
		if b > m {
			m = b
		}
		if c > m {
			m = c
		}
		return m
	}
	xMin = int32(minF(v1[0], v2[0], v3[0]))
	xMax = int32(maxF(v1[0], v2[0], v3[0])) + 1
	yMin = int32(minF(v1[1], v2[1], v3[1]))
	yMax = int32(maxF(v1[1], v2[1], v3[1])) + 1
	return
}

// ClampToScissor clamps a bounding box to the scissor rectangle, per spec
// §4.2 step 7.
func ClampToScissor(xMin, yMin, xMax, yMax, scX0, scY0, scX1, scY1 int32) (int32, int32, int32, int32) {
	if xMin < scX0 {
		xMin = scX0
	}
	if yMin < scY0 {
		yMin = scY0
	}
	if xMax > scX1 {
		xMax = scX1
	}
	if yMax > scY1 {
		yMax = scY1
	}
	if xMax < xMin {
		xMax = xMin
	}
	if yMax < yMin {
		yMax = yMin
	}
	return xMin, yMin, xMax, yMax
}

// NonHomogeneous computes a vertex's non-homogeneous (perspective-divided)
// position, used for derivation-like math (spec §3 "Non-homogeneous position
// per vertex").
func NonHomogeneous(v Vec4) Vec4 {
	if v[3] == 0 {
		return v
	}
	invW := 1 / v[3]
	return Vec4{v[0] * invW, v[1] * invW, v[2] * invW, 1}
}

// ScreenPercent computes the fraction of viewport pixels the triangle's
// bounding box occupies, used as the triangle's "screen-percent" scalar flag
// (spec §3).
func ScreenPercent(xMin, yMin, xMax, yMax int32, viewportW, viewportH int32) float64 {
	if viewportW <= 0 || viewportH <= 0 {
		return 0
	}
	area := float64(xMax-xMin) * float64(yMax-yMin)
	return area / (float64(viewportW) * float64(viewportH))
}
