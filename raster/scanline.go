package raster

import (
	"github.com/oxcore/rastercore/gpumath"
	"github.com/oxcore/rastercore/setup"
)

// scanWalker carries the tiled-scanline traversal state (spec §4.3(a)): the
// current stamp position, the row-advance direction, and the emitted
// fragments. The triangle's own Equations are kept stepped to (x,y)
// throughout, so every Save snapshots genuinely incremental c values and
// every Restore reloads them (spec §4.4).
type scanWalker struct {
	tri       *setup.Triangle
	conv      DepthConvention
	depthBits uint32
	pattern   gpumath.SamplePattern

	scanW, scanH int32
	overW        int32

	x, y    int32
	rowStep int32 // +2 (one stamp row) downward; -2 after a bottom-border start

	frags []Fragment
}

// tiledScanlineWalk runs the scanline-mode state machine of spec §4.3(a):
// start at the top-most vertex snapped to the scan-tile grid with direction
// CENTER; walk each stamp row leftward then (via the Right save) rightward;
// while traveling, save the row neighbor orthogonal to the travel direction,
// as a scan-tile save when the position crosses an over-tile boundary and as
// a stamp save otherwise; when the current travel direction runs out of
// coverage, consult the saves in priority Right -> Up -> Down -> over-tile.
// If the CENTER start misses the triangle entirely, the TOP_BORDER,
// LEFT_BORDER and BOTTOM_BORDER searches walk the bounding-box edges for the
// first covered scan tile.
//
// Only the row neighbor ahead of the row-advance direction is ever saved:
// the walk starts from the triangle's top (or, after a BOTTOM_BORDER start,
// its bottom), so the opposite neighbor has already been visited and saving
// it would re-enter completed rows.
func (r *Rasterizer) tiledScanlineWalk(tri *setup.Triangle) []Fragment {
	if tri.Area == 0 || tri.BBoxXMax <= tri.BBoxXMin || tri.BBoxYMax <= tri.BBoxYMin {
		tri.LastFragment = true
		return nil
	}

	w := &scanWalker{
		tri:       tri,
		conv:      r.cfg.DepthConvention,
		depthBits: r.cfg.DepthBits,
		pattern:   r.pattern,
		scanW:     r.cfg.ScanTileWidth,
		scanH:     r.cfg.ScanTileHeight,
		overW:     r.cfg.OverTileWidth,
		rowStep:   2,
	}

	startX, startY, ok := w.findStart()
	if !ok {
		tri.LastFragment = true
		return nil
	}

	// Move the equation state from the raster origin to the start position;
	// from here on every move is incremental.
	tri.Step(float64(startX), float64(startY))
	w.x, w.y = startX, startY

	w.run()

	if len(w.frags) > 0 {
		w.frags[len(w.frags)-1].LastFragment = true
	}
	tri.LastFragment = true
	return w.frags
}

// findStart locates the initial scan position: the top-most vertex snapped to
// the scan-tile grid (direction CENTER), falling back to the border searches
// when the snapped tile has no coverage.
func (w *scanWalker) findStart() (int32, int32, bool) {
	tri := w.tri
	tri.Direction = setup.DirCenter

	topX, topY := tri.V[0][0], tri.V[0][1]
	for _, v := range tri.V[1:] {
		if v[1] < topY {
			topX, topY = v[0], v[1]
		}
	}
	x := clampI32(snapDown(int32(topX), w.scanW), tri.BBoxXMin, tri.BBoxXMax)
	y := clampI32(snapDown(int32(topY), w.scanH), tri.BBoxYMin, tri.BBoxYMax)

	if w.tileCoveredAbs(x, y, w.scanW) {
		return x, y, true
	}

	// TOP_BORDER: scan the top bounding-box row left to right.
	tri.Direction = setup.DirTopBorder
	yTop := tri.BBoxYMin
	for bx := snapDown(tri.BBoxXMin, w.scanW); bx <= tri.BBoxXMax; bx += w.scanW {
		if w.tileCoveredAbs(bx, yTop, w.scanW) {
			return clampI32(bx, tri.BBoxXMin, tri.BBoxXMax), yTop, true
		}
	}

	// LEFT_BORDER: scan the left column top to bottom.
	tri.Direction = setup.DirLeftBorder
	xLeft := tri.BBoxXMin
	for by := snapDown(tri.BBoxYMin, w.scanH); by <= tri.BBoxYMax; by += w.scanH {
		if w.tileCoveredAbs(xLeft, by, w.scanH) {
			return xLeft, clampI32(by, tri.BBoxYMin, tri.BBoxYMax), true
		}
	}

	// BOTTOM_BORDER: scan the bottom row; a hit here means the triangle lies
	// below the snapped start, so the walk proceeds upward.
	tri.Direction = setup.DirBottomBorder
	yBot := snapDown(tri.BBoxYMax-1, w.scanH)
	for bx := snapDown(tri.BBoxXMin, w.scanW); bx <= tri.BBoxXMax; bx += w.scanW {
		if w.tileCoveredAbs(bx, yBot, w.scanW) {
			w.rowStep = -2
			return clampI32(bx, tri.BBoxXMin, tri.BBoxXMax), clampI32(yBot, tri.BBoxYMin, tri.BBoxYMax), true
		}
	}
	return 0, 0, false
}

// run drives the row loop: each iteration treats (x,y) as a row entry, saves
// the right half, walks left, then consults the save slots until none remain.
func (w *scanWalker) run() {
	for {
		entry := w.x
		w.saveRightHalf(entry)

		if w.rowStep > 0 {
			w.tri.Direction = setup.DirCenterLeft
		} else {
			w.tri.Direction = setup.DirUpLeft
		}
		w.walkRow(-2)

		slot, ok := w.nextSave()
		if !ok {
			return
		}
		if slot == setup.SaveRight || slot == setup.SaveTileRight {
			w.tri.Direction = setup.DirRight
			w.walkRow(+2)
			slot, ok = w.nextSave()
			if !ok {
				return
			}
		}
		// A row save: (x,y) is now the next row's entry.
		switch slot {
		case setup.SaveDown, setup.SaveTileDown:
			w.tri.Direction = setup.DirDown
		case setup.SaveUp, setup.SaveTileUp:
			w.tri.Direction = setup.DirUp
		}
	}
}

// walkRow travels dx per step from the current position, emitting covered
// stamps and posting row-advance saves, until coverage runs out past the
// first covered stamp or the bounding box ends. Stamps before the first
// covered one are skipped but not terminal, so a snapped start that lands
// short of the triangle still finds it.
func (w *scanWalker) walkRow(dx int32) {
	seen := false
	for w.x >= w.tri.BBoxXMin-1 && w.x <= w.tri.BBoxXMax {
		if w.stampCovered() {
			seen = true
			w.frags = append(w.frags, emitStampEqs(w.tri, w.tri.Equations, w.x, w.y, w.conv, w.depthBits, w.pattern)...)
			w.saveRowNeighbor()
		} else if seen {
			break
		}
		w.move(dx, 0)
	}
}

// saveRightHalf posts the row's rightward resume point, one stamp right of
// the entry, so the Right save restores past the stamps the leftward walk
// already emitted.
func (w *scanWalker) saveRightHalf(entry int32) {
	if entry+2 > w.tri.BBoxXMax {
		return
	}
	w.move(2, 0)
	slot := setup.SaveRight
	if w.crossesOverTile(w.x) {
		slot = setup.SaveTileRight
	}
	_ = w.tri.Save(slot, w.x, w.y) // an occupied slot keeps its earlier save
	w.move(-2, 0)
}

// saveRowNeighbor posts the scan-tile neighbor orthogonal to the current
// travel: the next row in the row-advance direction. The save is a scan-tile
// save when the position's scan-tile column sits on an over-tile boundary,
// and a pixel-stamp save otherwise (spec §4.3(a): "A 'tile save' is
// distinguished from a 'stamp save' by whether (x/tileWidth) crosses an
// over-tile boundary").
func (w *scanWalker) saveRowNeighbor() {
	ny := w.y + w.rowStep
	if ny < w.tri.BBoxYMin-1 || ny > w.tri.BBoxYMax {
		return
	}
	// One row-advance save per row: a second save for the same row — even in
	// the other granularity's slot — would re-enter the row once both were
	// restored.
	if w.rowStep > 0 {
		if w.tri.SlotValid(setup.SaveDown) || w.tri.SlotValid(setup.SaveTileDown) {
			return
		}
	} else {
		if w.tri.SlotValid(setup.SaveUp) || w.tri.SlotValid(setup.SaveTileUp) {
			return
		}
	}
	var slot setup.Slot
	switch {
	case w.rowStep > 0 && w.crossesOverTile(w.x):
		slot = setup.SaveTileDown
	case w.rowStep > 0:
		slot = setup.SaveDown
	case w.crossesOverTile(w.x):
		slot = setup.SaveTileUp
	default:
		slot = setup.SaveUp
	}
	w.move(0, w.rowStep)
	_ = w.tri.Save(slot, w.x, w.y)
	w.move(0, -w.rowStep)
}

// nextSave restores the highest-priority valid save slot — Right, then Up,
// then Down, then the over-tile (scan-tile) slots in the same order — and
// reports whether one existed.
func (w *scanWalker) nextSave() (setup.Slot, bool) {
	order := []setup.Slot{
		setup.SaveRight, setup.SaveUp, setup.SaveDown,
		setup.SaveTileRight, setup.SaveTileUp, setup.SaveTileDown,
	}
	for _, slot := range order {
		if !w.tri.SlotValid(slot) {
			continue
		}
		x, y, err := w.tri.Restore(slot)
		if err != nil {
			return 0, false
		}
		w.x, w.y = x, y
		return slot, true
	}
	return 0, false
}

// move steps the walker and the triangle's equation state together, keeping
// the incremental-c invariant (spec §3: "edge equations' c component always
// represents the value at the current raster (x,y)").
func (w *scanWalker) move(dx, dy int32) {
	w.x += dx
	w.y += dy
	w.tri.Step(float64(dx), float64(dy))
}

// stampCovered runs the four-corner test over the current 2x2 stamp using
// only the equations' current values and coefficients — no absolute
// re-evaluation (spec §4.4).
func (w *scanWalker) stampCovered() bool {
	eqs := w.tri.Equations
	for _, e := range []gpumath.Equation{eqs.E1, eqs.E2, eqs.E3} {
		if gpumath.EvaluateTileCorners(e.C, e.C+2*e.A, e.C+2*e.B, e.C+2*e.A+2*e.B) == gpumath.TileOutside {
			return false
		}
	}
	return true
}

// tileCoveredAbs tests a scan-tile-sized region at an absolute position,
// used only before the incremental walk begins (the start and border
// searches), while the equations still sit at the raster origin.
func (w *scanWalker) tileCoveredAbs(x, y, size int32) bool {
	return evaluateTileEdges(w.tri, float64(x), float64(y), float64(size)) != gpumath.TileOutside
}

// crossesOverTile reports whether x's scan-tile column lands on an over-tile
// boundary.
func (w *scanWalker) crossesOverTile(x int32) bool {
	if w.scanW <= 0 || w.overW <= w.scanW {
		return false
	}
	tilesPerOver := w.overW / w.scanW
	if tilesPerOver <= 0 {
		return false
	}
	return (x/w.scanW)%tilesPerOver == 0
}

func snapDown(v, grid int32) int32 {
	if grid <= 0 {
		return v
	}
	if v < 0 {
		return -((-v + grid - 1) / grid) * grid
	}
	return (v / grid) * grid
}

func clampI32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
