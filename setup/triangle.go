// Package setup implements the SetupTriangle stage (spec §3, §4.2): deriving
// edge and Z-interpolation equations from a triangle's vertices, computing
// its bounding boxes, and owning the scan-state save slots the rasterizer
// uses to resume a walk across pixel stamps and scan tiles.
package setup

import (
	"fmt"
	"sync/atomic"

	"github.com/oxcore/rastercore/gpumath"
)

// Slot names the eight scan-state save slots: four pixel-stamp slots and
// four scan-tile slots (spec §3, "Scan save-slots").
type Slot int

const (
	SaveUp Slot = iota
	SaveDown
	SaveLeft
	SaveRight
	SaveTileUp
	SaveTileDown
	SaveTileLeft
	SaveTileRight
	slotCount
)

// Direction is the rasterizer's current scan-travel direction (spec §4.10).
type Direction int

const (
	DirCenter Direction = iota
	DirLeft
	DirRight
	DirUp
	DirDown
	DirUpLeft
	DirUpRight
	DirDownLeft
	DirDownRight
	DirCenterLeft
	DirCenterRight
	DirTopBorder
	DirLeftBorder
	DirBottomBorder
)

// ScanMode overrides the rasterizer's configured walk for one triangle; the
// default defers to the rasterizer's own mode (spec §4.3: "two modes,
// selectable per triangle").
type ScanMode int

const (
	ScanModeDefault ScanMode = iota
	ScanModeHierarchical
	ScanModeScanline
)

// Equations bundles the three edge equations and the Z-interpolation
// equation as they stand at one raster position.
type Equations struct {
	E1, E2, E3, Zeq gpumath.Equation
}

// Step advances every equation in the bundle by (dx,dy), per the incremental
// update rule in spec §4.4.
func (e Equations) Step(dx, dy float64) Equations {
	return Equations{
		E1:  e.E1.Step(dx, dy),
		E2:  e.E2.Step(dx, dy),
		E3:  e.E3.Step(dx, dy),
		Zeq: e.Zeq.Step(dx, dy),
	}
}

// saveSlot holds one save point: the equation state and resume position, and
// whether it currently carries a saved (not yet restored) position.
type saveSlot struct {
	valid bool
	x, y  int32
	eqs   Equations
}

// Config carries the viewport/rasterization-convention parameters setup
// needs (spec §6, configuration-time options relevant to SetupTriangle).
type Config struct {
	D3D9PixelConvention bool
	D3D9RasterRules     bool
	FrontFace           gpumath.FaceMode
	ViewportX0          float64
	ViewportY0          float64
	ScissorX0, ScissorY0 int32
	ScissorX1, ScissorY1 int32
	SubpixelBits        uint32
}

// Triangle is the root per-primitive record (spec §3 "SetupTriangle").
type Triangle struct {
	ID uint64

	V     [3]gpumath.Vec4
	Attrs [3][]gpumath.Vec4

	Equations

	NonHomogeneous [3]gpumath.Vec4

	BBoxXMin, BBoxYMin, BBoxXMax, BBoxYMax int32
	SubpixelXMin, SubpixelYMin, SubpixelXMax, SubpixelYMax int64

	Area          float64
	ScreenPercent float64
	PreBound      bool
	LastFragment  bool
	FirstStamp    bool
	Direction     Direction
	ScanMode      ScanMode

	saves      [slotCount]saveSlot
	activeSlot Slot
	hasActive  bool

	refcount int32
}

// New derives a SetupTriangle from three vertex positions and per-vertex
// attribute vectors, following spec §4.2 steps 1-8.
func New(id uint64, v1, v2, v3 gpumath.Vec4, attrs [3][]gpumath.Vec4, viewportW, viewportH int32, cfg Config) *Triangle {
	if cfg.D3D9PixelConvention {
		// Flip y about the viewport so the coordinates stay in pixel space;
		// the facing flip this implies is handled by ShouldFlip below.
		v1[1] = float32(viewportH) - v1[1]
		v2[1] = float32(viewportH) - v2[1]
		v3[1] = float32(viewportH) - v3[1]
	}

	e1, e2, e3 := gpumath.SetupMatrix(v1, v2, v3)
	if gpumath.ShouldFlip(cfg.FrontFace, cfg.D3D9PixelConvention) {
		e1, e2, e3 = gpumath.FlipFacing(e1, e2, e3)
	}

	area := gpumath.Area(e1, e2, e3, v1, v2, v3)
	zeq := gpumath.InterpolationEquation(e1, e2, e3, float64(v1[2]), float64(v2[2]), float64(v3[2]), area)

	e1 = gpumath.ApplyViewport(e1, cfg.ViewportX0, cfg.ViewportY0)
	e2 = gpumath.ApplyViewport(e2, cfg.ViewportX0, cfg.ViewportY0)
	e3 = gpumath.ApplyViewport(e3, cfg.ViewportX0, cfg.ViewportY0)
	zeq = gpumath.ApplyViewport(zeq, cfg.ViewportX0, cfg.ViewportY0)

	if !cfg.D3D9RasterRules {
		e1 = gpumath.HalfPixelShift(e1)
		e2 = gpumath.HalfPixelShift(e2)
		e3 = gpumath.HalfPixelShift(e3)
		zeq = gpumath.HalfPixelShift(zeq)
	}

	xMin, yMin, xMax, yMax := gpumath.BoundingBox(v1, v2, v3)
	xMin, yMin, xMax, yMax = gpumath.ClampToScissor(xMin, yMin, xMax, yMax, cfg.ScissorX0, cfg.ScissorY0, cfg.ScissorX1, cfg.ScissorY1)

	scale := int64(1) << cfg.SubpixelBits
	t := &Triangle{
		ID:    id,
		V:     [3]gpumath.Vec4{v1, v2, v3},
		Attrs: attrs,
		Equations: Equations{E1: e1, E2: e2, E3: e3, Zeq: zeq},
		NonHomogeneous: [3]gpumath.Vec4{
			gpumath.NonHomogeneous(v1),
			gpumath.NonHomogeneous(v2),
			gpumath.NonHomogeneous(v3),
		},
		BBoxXMin:     xMin,
		BBoxYMin:     yMin,
		BBoxXMax:     xMax,
		BBoxYMax:     yMax,
		SubpixelXMin: int64(xMin) * scale,
		SubpixelYMin: int64(yMin) * scale,
		SubpixelXMax: int64(xMax) * scale,
		SubpixelYMax: int64(yMax) * scale,
		Area:          area,
		ScreenPercent: gpumath.ScreenPercent(xMin, yMin, xMax, yMax, viewportW, viewportH),
		FirstStamp:    true,
		Direction:     DirCenter,
		refcount:      1,
	}
	return t
}

// NewFromPrebound derives a SetupTriangle from vertices plus edge/Z equation
// coefficients and an area computed upstream — the second setup entry point
// of the original rasterizer (preBound + setupEdgeEquations), used when a
// driver replay has already done the adjoint-matrix math. The equations are
// taken as already in screen pixel coordinates; only the bounding boxes,
// non-homogeneous positions and scalar flags are computed here.
func NewFromPrebound(id uint64, v1, v2, v3 gpumath.Vec4, attrs [3][]gpumath.Vec4, e1, e2, e3, zeq gpumath.Equation, area float64, viewportW, viewportH int32, cfg Config) *Triangle {
	xMin, yMin, xMax, yMax := gpumath.BoundingBox(v1, v2, v3)
	xMin, yMin, xMax, yMax = gpumath.ClampToScissor(xMin, yMin, xMax, yMax, cfg.ScissorX0, cfg.ScissorY0, cfg.ScissorX1, cfg.ScissorY1)

	scale := int64(1) << cfg.SubpixelBits
	return &Triangle{
		ID:        id,
		V:         [3]gpumath.Vec4{v1, v2, v3},
		Attrs:     attrs,
		Equations: Equations{E1: e1, E2: e2, E3: e3, Zeq: zeq},
		NonHomogeneous: [3]gpumath.Vec4{
			gpumath.NonHomogeneous(v1),
			gpumath.NonHomogeneous(v2),
			gpumath.NonHomogeneous(v3),
		},
		BBoxXMin:      xMin,
		BBoxYMin:      yMin,
		BBoxXMax:      xMax,
		BBoxYMax:      yMax,
		SubpixelXMin:  int64(xMin) * scale,
		SubpixelYMin:  int64(yMin) * scale,
		SubpixelXMax:  int64(xMax) * scale,
		SubpixelYMax:  int64(yMax) * scale,
		Area:          area,
		ScreenPercent: gpumath.ScreenPercent(xMin, yMin, xMax, yMax, viewportW, viewportH),
		PreBound:      true,
		FirstStamp:    true,
		Direction:     DirCenter,
		refcount:      1,
	}
}

// InvertFacing flips the triangle's facing by negating all three edge
// equations and the signed area, the invertTriangleFacing helper two-sided
// lighting paths use.
func (t *Triangle) InvertFacing() {
	t.E1, t.E2, t.E3 = gpumath.FlipFacing(t.E1, t.E2, t.E3)
	t.Area = -t.Area
}

// SetPolygonOffset biases the triangle's interpolated depth by
// factor*maxZSlope + unit*2^-24, folded into the Z equation's c so every
// subsequent sample carries the offset.
func (t *Triangle) SetPolygonOffset(factor, unit float64) {
	slope := t.Zeq.A
	if t.Zeq.B > slope {
		slope = t.Zeq.B
	}
	if s := -t.Zeq.A; s > slope {
		slope = s
	}
	if s := -t.Zeq.B; s > slope {
		slope = s
	}
	t.Zeq.C += factor*slope + unit/(1<<24)
}

// Save records the current equation state and resume position into slot,
// marking it valid. It is an invariant violation to save into a slot that
// already carries an unreloaded save (spec §7: "emitting to a setup slot
// that is already occupied").
func (t *Triangle) Save(slot Slot, x, y int32) error {
	s := &t.saves[slot]
	if s.valid {
		return fmt.Errorf("setup: invariant violation: triangle %d save slot %d already occupied", t.ID, slot)
	}
	s.valid = true
	s.x, s.y = x, y
	s.eqs = t.Equations
	return nil
}

// Restore reloads slot as the active raster position, clearing its valid bit
// (spec §3: "reloading a save clears that slot's valid bit") and returns the
// resume (x,y).
func (t *Triangle) Restore(slot Slot) (x, y int32, err error) {
	s := &t.saves[slot]
	if !s.valid {
		return 0, 0, fmt.Errorf("setup: invariant violation: triangle %d restore from empty save slot %d", t.ID, slot)
	}
	t.Equations = s.eqs
	x, y = s.x, s.y
	s.valid = false
	t.activeSlot = slot
	t.hasActive = true
	return x, y, nil
}

// SlotValid reports whether slot currently carries a saved position.
func (t *Triangle) SlotValid(slot Slot) bool { return t.saves[slot].valid }

// AnySaveValid reports whether any save slot still carries a resumable
// position, used by the rasterizer to decide whether lastFragment should be
// set (spec §4.3: "Set lastFragment ... when no saves remain").
func (t *Triangle) AnySaveValid() bool {
	for _, s := range t.saves {
		if s.valid {
			return true
		}
	}
	return false
}

// Step advances the triangle's active equation state by (dx,dy), per spec
// §4.4.
func (t *Triangle) Step(dx, dy float64) {
	t.Equations = t.Equations.Step(dx, dy)
}

// Retain increments the triangle's reference count (spec §3 ownership:
// "reference-counted sharing or equivalent ownership chain").
func (t *Triangle) Retain() {
	atomic.AddInt32(&t.refcount, 1)
}

// Release decrements the reference count and reports whether it reached
// zero, meaning the triangle has no more owners and its resources (and any
// arena slot) may be reclaimed.
func (t *Triangle) Release() bool {
	return atomic.AddInt32(&t.refcount, -1) == 0
}

// RefCount reports the current reference count, for diagnostics and tests.
func (t *Triangle) RefCount() int32 {
	return atomic.LoadInt32(&t.refcount)
}
