package gpumath

// SampleOffset is one multisample position within a pixel, expressed in
// 1/128-pixel units. Every supported pattern's offsets lie strictly inside
// (0,128) so no sample ever lands exactly on a pixel border.
type SampleOffset struct {
	X, Y uint8
}

// SampleTable is the precomputed offset table for one MSAA sample count,
// together with the coordinate-wise extremes of its offsets. The extremes are
// stored rather than recomputed so the rasterizer can clip a fragment's
// sub-sample bounding box without touching the per-sample loop.
type SampleTable struct {
	Offsets                []SampleOffset
	MinX, MinY, MaxX, MaxY uint8
}

// The rotated/staggered-grid sample layouts for 2x, 4x, 6x and 8x
// multisampling, in 1/128-pixel units. Horizontal and vertical edges must not
// alias identically, so no two samples share an X or a Y coordinate within a
// table.
var (
	samples2x = SampleTable{
		Offsets: []SampleOffset{
			{X: 32, Y: 32},
			{X: 96, Y: 96},
		},
		MinX: 32, MinY: 32, MaxX: 96, MaxY: 96,
	}
	samples4x = SampleTable{
		Offsets: []SampleOffset{
			{X: 48, Y: 16},
			{X: 112, Y: 48},
			{X: 16, Y: 80},
			{X: 80, Y: 112},
		},
		MinX: 16, MinY: 16, MaxX: 112, MaxY: 112,
	}
	samples6x = SampleTable{
		Offsets: []SampleOffset{
			{X: 21, Y: 14},
			{X: 63, Y: 21},
			{X: 106, Y: 35},
			{X: 22, Y: 78},
			{X: 64, Y: 92},
			{X: 107, Y: 113},
		},
		MinX: 21, MinY: 14, MaxX: 107, MaxY: 113,
	}
	samples8x = SampleTable{
		Offsets: []SampleOffset{
			{X: 72, Y: 40},
			{X: 56, Y: 88},
			{X: 104, Y: 72},
			{X: 40, Y: 24},
			{X: 24, Y: 104},
			{X: 8, Y: 56},
			{X: 88, Y: 120},
			{X: 120, Y: 8},
		},
		MinX: 8, MinY: 8, MaxX: 120, MaxY: 120,
	}

	// centerSample is the single-sample "pattern": the pixel center.
	centerSample = SampleTable{
		Offsets: []SampleOffset{{X: 64, Y: 64}},
		MinX:    64, MinY: 64, MaxX: 64, MaxY: 64,
	}
)

// TableForCount returns the sample table for an MSAA count of n and reports
// whether n is one of the supported counts {1,2,4,6,8}. n==1 denotes
// single-sample rendering at the pixel center.
func TableForCount(n int) (SampleTable, bool) {
	switch n {
	case 1:
		return centerSample, true
	case 2:
		return samples2x, true
	case 4:
		return samples4x, true
	case 6:
		return samples6x, true
	case 8:
		return samples8x, true
	default:
		return SampleTable{}, false
	}
}

// SamplePattern is a sample table converted to fractional pixel offsets, the
// form the per-sample evaluation loops consume.
type SamplePattern []StampSample

// Pattern converts the table's 1/128-unit offsets to fractional pixels.
func (t SampleTable) Pattern() SamplePattern {
	out := make(SamplePattern, len(t.Offsets))
	for i, o := range t.Offsets {
		out[i] = StampSample{DX: float64(o.X) / 128, DY: float64(o.Y) / 128}
	}
	return out
}

// SamplesForCount returns the fractional-pixel offset pattern for an MSAA
// sample count of n, and reports whether n is supported.
func SamplesForCount(n int) (SamplePattern, bool) {
	t, ok := TableForCount(n)
	if !ok {
		return nil, false
	}
	return t.Pattern(), true
}

// EvaluateEdgeAtSamples evaluates an edge equation at every sample offset of
// a pixel anchored at (x,y), returning one bool per sample: true if that
// sample is on the inside half-plane.
func EvaluateEdgeAtSamples(e Equation, x, y float64, pattern SamplePattern) []bool {
	out := make([]bool, len(pattern))
	for i, s := range pattern {
		v := e.A*(x+s.DX) + e.B*(y+s.DY) + e.C
		out[i] = v >= 0
	}
	return out
}

// CombineSampleCoverage ANDs the per-sample coverage of every edge of a
// triangle, producing the final per-sample inside mask for a pixel.
func CombineSampleCoverage(edges ...[]bool) []bool {
	if len(edges) == 0 {
		return nil
	}
	out := make([]bool, len(edges[0]))
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

// CoverageMask packs a per-sample boolean coverage slice into a bitmask, one
// bit per sample, sample 0 in the low bit.
func CoverageMask(samples []bool) uint32 {
	var mask uint32
	for i, c := range samples {
		if c {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// CoverageCount returns the number of set bits in a coverage mask, used to
// weight the resolved color by the fraction of samples covered.
func CoverageCount(mask uint32, total int) int {
	n := 0
	for i := 0; i < total; i++ {
		if mask&(1<<uint(i)) != 0 {
			n++
		}
	}
	return n
}
