package raster

import (
	"github.com/oxcore/rastercore/gpumath"
	"github.com/oxcore/rastercore/setup"
)

// Tile is the transient record of one square region of the hierarchical scan
// (spec §3 "Tile"): a region of size 2^Level anchored at (X0,Y0), the batch
// of triangles being walked, a per-triangle "inside tile" flag, and the edge
// equation values sampled at the tile's origin. Tiles are produced by
// subdivision and consumed or discarded within one scan step; nothing
// retains one across steps.
type Tile struct {
	X0, Y0 int32
	Level  uint32 // size = 1<<Level

	Tris   []*setup.Triangle
	Inside []bool // per-triangle: not yet trivially rejected at this tile

	// Samples holds, per triangle, the (e1,e2,e3,zeq) values at (X0,Y0).
	Samples []sampleVec
}

// LiveCount reports how many of the tile's triangles are still inside.
func (t *Tile) LiveCount() int {
	n := 0
	for _, in := range t.Inside {
		if in {
			n++
		}
	}
	return n
}

// evaluateTileEdges runs the conservative 4-corner tile test (spec §4.5)
// against all three edge equations of tri, returning the combined verdict.
func evaluateTileEdges(tri *setup.Triangle, x0, y0 float64, size float64) gpumath.TileTest {
	t1 := gpumath.EvaluateTile(tri.E1, x0, y0, size)
	t2 := gpumath.EvaluateTile(tri.E2, x0, y0, size)
	t3 := gpumath.EvaluateTile(tri.E3, x0, y0, size)
	return gpumath.CombineTileTests(t1, t2, t3)
}

// nextPowerOfTwo returns the smallest power of two >= n (n > 0).
func nextPowerOfTwo(n int32) uint32 {
	size := uint32(1)
	for int32(size) < n {
		size <<= 1
	}
	return size
}

// levelOf returns L such that 1<<L == size (size must be a power of two).
func levelOf(size uint32) uint32 {
	l := uint32(0)
	for size > 1 {
		size >>= 1
		l++
	}
	return l
}

// subdivide generates a tile's four children (spec §4.3(b)): each triangle
// still inside the parent is evaluated against the nine-point subdivision
// sample grid, each child keeps the per-triangle flag for triangles its own
// four corners do not reject, and children with no live triangle are
// discarded. Children are produced top-left, top-right, bottom-left,
// bottom-right.
func subdivide(parent *Tile) []*Tile {
	size := float64(int32(1) << parent.Level)
	half := int32(1) << (parent.Level - 1)

	// Per-triangle, per-edge nine-point grids; computed once, shared by all
	// four children (spec §8: "the union of sample points of the 4 children
	// equals the 9-point sample set used by the evaluator").
	type triGrid struct {
		e1, e2, e3 [3][3]float64
		verdicts   [4]gpumath.TileTest
	}
	grids := make([]triGrid, len(parent.Tris))
	for i, tri := range parent.Tris {
		if !parent.Inside[i] {
			continue
		}
		g := &grids[i]
		g.e1 = gpumath.SubTileSamples(tri.E1, float64(parent.X0), float64(parent.Y0), size)
		g.e2 = gpumath.SubTileSamples(tri.E2, float64(parent.X0), float64(parent.Y0), size)
		g.e3 = gpumath.SubTileSamples(tri.E3, float64(parent.X0), float64(parent.Y0), size)
		v1 := gpumath.ClassifyChildren(g.e1)
		v2 := gpumath.ClassifyChildren(g.e2)
		v3 := gpumath.ClassifyChildren(g.e3)
		for child := 0; child < 4; child++ {
			g.verdicts[child] = gpumath.CombineTileTests(v1[child], v2[child], v3[child])
		}
	}

	offsets := [4][2]int32{{0, 0}, {half, 0}, {0, half}, {half, half}}
	var out []*Tile
	for child := 0; child < 4; child++ {
		c := &Tile{
			X0:      parent.X0 + offsets[child][0],
			Y0:      parent.Y0 + offsets[child][1],
			Level:   parent.Level - 1,
			Tris:    parent.Tris,
			Inside:  make([]bool, len(parent.Tris)),
			Samples: make([]sampleVec, len(parent.Tris)),
		}
		live := false
		corner := gpumath.ChildCorners(child)[0]
		for i, tri := range parent.Tris {
			if !parent.Inside[i] || grids[i].verdicts[child] == gpumath.TileOutside {
				continue
			}
			c.Inside[i] = true
			live = true
			c.Samples[i] = sampleVec{
				grids[i].e1[corner[0]][corner[1]],
				grids[i].e2[corner[0]][corner[1]],
				grids[i].e3[corner[0]][corner[1]],
				tri.Zeq.A*float64(c.X0) + tri.Zeq.B*float64(c.Y0) + tri.Zeq.C,
			}
		}
		if live {
			out = append(out, c)
		}
	}
	return out
}

// expandToLevel subdivides every tile in tiles down to stopLevel, discarding
// trivially rejected children along the way. Tiles already at or below
// stopLevel pass through unchanged. Traversal is breadth-first so fragment
// emission order is deterministic given the child ordering (spec §4.3,
// "fragment emission order is deterministic").
func expandToLevel(tiles []*Tile, stopLevel uint32) []*Tile {
	var out []*Tile
	queue := tiles
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if t.Level <= stopLevel {
			out = append(out, t)
			continue
		}
		queue = append(queue, subdivide(t)...)
	}
	return out
}

// hierarchicalBatch is the recursive hierarchical walk of spec §4.3(b) over a
// batch of one or more triangles: a single top-level tile covering the batch
// bounding box (rounded up to the scan-tile grid) descends to scanLevel; each
// surviving scan tile is handed to the expansion step that subdivides down to
// genLevel (the generation tile); gen tiles expand to stamp-level (2x2) tiles
// from which fragments are emitted. Results are returned per triangle, in
// batch order, so the caller can preserve setup order across triangles.
func (r *Rasterizer) hierarchicalBatch(tris []*setup.Triangle) [][]Fragment {
	perTri := make([][]Fragment, len(tris))

	xMin, yMin, xMax, yMax := int32(0), int32(0), int32(0), int32(0)
	first := true
	inside := make([]bool, len(tris))
	samples := make([]sampleVec, len(tris))
	anyLive := false
	for i, tri := range tris {
		if tri.Area == 0 || tri.BBoxXMax <= tri.BBoxXMin || tri.BBoxYMax <= tri.BBoxYMin {
			continue
		}
		inside[i] = true
		anyLive = true
		if first || tri.BBoxXMin < xMin {
			xMin = tri.BBoxXMin
		}
		if first || tri.BBoxYMin < yMin {
			yMin = tri.BBoxYMin
		}
		if first || tri.BBoxXMax > xMax {
			xMax = tri.BBoxXMax
		}
		if first || tri.BBoxYMax > yMax {
			yMax = tri.BBoxYMax
		}
		first = false
	}
	if !anyLive {
		return perTri
	}

	scanLevel := levelOf(nextPowerOfTwo(r.cfg.ScanTileWidth))
	genLevel := levelOf(nextPowerOfTwo(r.cfg.GenTileWidth))
	if genLevel < 1 {
		genLevel = 1
	}
	if scanLevel < genLevel {
		scanLevel = genLevel
	}

	topSize := nextPowerOfTwo(maxI32(xMax-xMin, yMax-yMin))
	topLevel := levelOf(topSize)
	if topLevel < scanLevel {
		topLevel = scanLevel
	}

	for i, tri := range tris {
		if inside[i] {
			samples[i] = sampleVec{
				tri.E1.A*float64(xMin) + tri.E1.B*float64(yMin) + tri.E1.C,
				tri.E2.A*float64(xMin) + tri.E2.B*float64(yMin) + tri.E2.C,
				tri.E3.A*float64(xMin) + tri.E3.B*float64(yMin) + tri.E3.C,
				tri.Zeq.A*float64(xMin) + tri.Zeq.B*float64(yMin) + tri.Zeq.C,
			}
		}
	}
	top := &Tile{X0: xMin, Y0: yMin, Level: topLevel, Tris: tris, Inside: inside, Samples: samples}

	scanTiles := expandToLevel([]*Tile{top}, scanLevel)
	genTiles := expandToLevel(scanTiles, genLevel)
	stamps := expandToLevel(genTiles, 1)

	for _, st := range stamps {
		for i, tri := range st.Tris {
			if !st.Inside[i] {
				continue
			}
			if st.X0 > tri.BBoxXMax || st.Y0 > tri.BBoxYMax {
				continue
			}
			// The stamp's edge values come from the subdivision's own
			// sample propagation, not a fresh evaluation: the tile carried
			// its origin edge samples down from the parent's nine-point grid
			// (spec §4.4's symbolic c maintenance). The Z sample was
			// evaluated directly at the tile's origin when the tile was made.
			eqs := setup.Equations{
				E1:  gpumath.Equation{A: tri.E1.A, B: tri.E1.B, C: st.Samples[i][0]},
				E2:  gpumath.Equation{A: tri.E2.A, B: tri.E2.B, C: st.Samples[i][1]},
				E3:  gpumath.Equation{A: tri.E3.A, B: tri.E3.B, C: st.Samples[i][2]},
				Zeq: gpumath.Equation{A: tri.Zeq.A, B: tri.Zeq.B, C: st.Samples[i][3]},
			}
			perTri[i] = append(perTri[i], emitStampEqs(tri, eqs, st.X0, st.Y0, r.cfg.DepthConvention, r.cfg.DepthBits, r.pattern)...)
		}
	}
	return perTri
}

func maxI32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
