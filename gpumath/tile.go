package gpumath

// TileTest is the coarse tile/edge classification used to cull or accept a
// hierarchical tile against a triangle's edge equations, per spec §4.5.
type TileTest int

const (
	// TileOutside means every sample in the tile fails at least one edge.
	TileOutside TileTest = iota
	// TileIntersects means the tile straddles at least one edge: some
	// samples may pass and some may fail, so it must be subdivided further
	// or scanned sample-by-sample once it reaches stamp size.
	TileIntersects
	// TileInside means every sample in the tile passes every edge.
	TileInside
)

// EvaluateTile classifies a square tile of the given size against a single
// edge equation by testing the tile's four corners (spec §4.5's conservative
// 4-corner test): if all four corners are on the inside (>=0) half-plane the
// tile is fully inside that edge; if all four are outside, the tile is fully
// outside; otherwise the edge crosses the tile.
func EvaluateTile(e Equation, x, y float64, size float64) TileTest {
	c00 := e.A*x + e.B*y + e.C
	c10 := e.A*(x+size) + e.B*y + e.C
	c01 := e.A*x + e.B*(y+size) + e.C
	c11 := e.A*(x+size) + e.B*(y+size) + e.C

	allIn := c00 >= 0 && c10 >= 0 && c01 >= 0 && c11 >= 0
	allOut := c00 < 0 && c10 < 0 && c01 < 0 && c11 < 0

	switch {
	case allIn:
		return TileInside
	case allOut:
		return TileOutside
	default:
		return TileIntersects
	}
}

// EvaluateTileCorners classifies a tile from four already-computed corner
// values of one edge equation, the corner-sharing form of EvaluateTile used
// by the recursive subdivision: a parent's nine subdivision samples cover all
// four children's corners, so each child is classified without re-evaluating
// the equation.
func EvaluateTileCorners(c00, c10, c01, c11 float64) TileTest {
	allIn := c00 >= 0 && c10 >= 0 && c01 >= 0 && c11 >= 0
	allOut := c00 < 0 && c10 < 0 && c01 < 0 && c11 < 0

	switch {
	case allIn:
		return TileInside
	case allOut:
		return TileOutside
	default:
		return TileIntersects
	}
}

// SubTileSamples evaluates an equation at the nine corner points of a tile's
// 2x2 subdivision: the tile's own four corners plus the edge midpoints and
// the center, indexed [row][col] with a half-tile spacing of size/2. The
// union of the four children's corner sets is exactly this nine-point grid
// (spec §4.3(b): "generate 4 children by sampling 9 points").
func SubTileSamples(e Equation, x, y, size float64) [3][3]float64 {
	half := size / 2
	var out [3][3]float64
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			out[row][col] = e.A*(x+float64(col)*half) + e.B*(y+float64(row)*half) + e.C
		}
	}
	return out
}

// ChildCorners returns the four [row][col] indices into a SubTileSamples grid
// that form child i's corners, children ordered top-left, top-right,
// bottom-left, bottom-right. Corner order within a child is c00, c10, c01,
// c11 to match EvaluateTileCorners.
func ChildCorners(child int) [4][2]int {
	base := [4][2]int{
		{0, 0}, {0, 1}, {1, 0}, {1, 1},
	}[child]
	r, c := base[0], base[1]
	return [4][2]int{
		{r, c}, {r, c + 1}, {r + 1, c}, {r + 1, c + 1},
	}
}

// ClassifyChildren runs the corner test for all four children of a tile from
// its nine-point sample grid.
func ClassifyChildren(samples [3][3]float64) [4]TileTest {
	var out [4]TileTest
	for child := 0; child < 4; child++ {
		idx := ChildCorners(child)
		out[child] = EvaluateTileCorners(
			samples[idx[0][0]][idx[0][1]],
			samples[idx[1][0]][idx[1][1]],
			samples[idx[2][0]][idx[2][1]],
			samples[idx[3][0]][idx[3][1]],
		)
	}
	return out
}

// CombineTileTests folds per-edge tile classifications into the triangle-wide
// verdict: outside if any edge rejects the whole tile, inside only if every
// edge accepts the whole tile, intersecting otherwise.
func CombineTileTests(tests ...TileTest) TileTest {
	sawIntersect := false
	for _, t := range tests {
		if t == TileOutside {
			return TileOutside
		}
		if t == TileIntersects {
			sawIntersect = true
		}
	}
	if sawIntersect {
		return TileIntersects
	}
	return TileInside
}

// StampSample is a single 2x2-stamp sample position, relative to the stamp's
// origin pixel, used by Stamp2x2 below and by the MSAA SamplePattern tables
// (spec §4.6).
type StampSample struct {
	DX, DY float64 // offset from the stamp's pixel origin, in pixels
}

// Stamp2x2 is the fixed quad-pixel sampling pattern a stamp evaluates in one
// step: top-left, top-right, bottom-left, bottom-right.
var Stamp2x2 = [4]StampSample{
	{DX: 0, DY: 0},
	{DX: 1, DY: 0},
	{DX: 0, DY: 1},
	{DX: 1, DY: 1},
}

// EvaluateStamp evaluates a single edge equation at the four pixel centers of
// a 2x2 stamp anchored at (x,y), returning one coverage bit per pixel in
// stamp order (spec §4.6).
func EvaluateStamp(e Equation, x, y float64) [4]bool {
	var covered [4]bool
	for i, s := range Stamp2x2 {
		v := e.A*(x+s.DX) + e.B*(y+s.DY) + e.C
		covered[i] = v >= 0
	}
	return covered
}

// CombineStampCoverage ANDs per-edge stamp coverage into the final per-pixel
// inside/outside verdict for a stamp.
func CombineStampCoverage(edges ...[4]bool) [4]bool {
	var out [4]bool
	for i := range out {
		out[i] = true
	}
	for _, e := range edges {
		for i := range out {
			out[i] = out[i] && e[i]
		}
	}
	return out
}

// Barycentric computes the three barycentric weights from a sample's three
// edge values: r = 1/(f0+f1+f2), w_i = r*f_i (spec §4.7). The per-sample sum
// — not the triangle's area — is the normalizer, so the weights stay exact
// for perspective (non-unit w) vertices, where the edge values no longer sum
// to the area. Perspective correction of the attributes themselves remains
// the shader's responsibility via per-vertex 1/w. Grounded on the teacher's
// rasterizeTriangle weight computation, generalized from screen-space
// winding to fixed edge equations.
func Barycentric(f1, f2, f3 float64) (w1, w2, w3 float64) {
	sum := f1 + f2 + f3
	if sum == 0 {
		return 0, 0, 0
	}
	r := 1.0 / sum
	return r * f1, r * f2, r * f3
}

// InterpolateVec4 blends three per-vertex attribute vectors by barycentric
// weight, component-wise (spec §4.7: attribute_k = sum_i w_i * p_i^k).
func InterpolateVec4(w1, w2, w3 float64, a1, a2, a3 Vec4) Vec4 {
	var out Vec4
	for i := 0; i < 4; i++ {
		out[i] = float32(w1*float64(a1[i]) + w2*float64(a2[i]) + w3*float64(a3[i]))
	}
	return out
}
