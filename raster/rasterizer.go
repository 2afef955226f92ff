package raster

import (
	"fmt"

	"github.com/oxcore/rastercore/gpumath"
	"github.com/oxcore/rastercore/setup"
)

// Mode selects between the two rasterization walks spec §4.3 documents as
// equally admissible (spec §9 Open Questions: "the default mode is not
// prescribed"). This implementation defaults callers to ModeHierarchical via
// DefaultConfig, but exposes both, selectable per triangle.
type Mode int

const (
	ModeHierarchical Mode = iota
	ModeScanline
)

// Config is the rasterizer's configuration-time option set (spec §6,
// rasterizer-relevant subset).
type Config struct {
	Mode            Mode
	ScanTileWidth   int32
	ScanTileHeight  int32
	OverTileWidth   int32
	OverTileHeight  int32
	GenTileWidth    int32
	GenTileHeight   int32
	MSAASamples     int // 1, 2, 4, 6, or 8
	DepthBits       uint32
	DepthConvention DepthConvention
}

// DefaultConfig returns a Config matching the common single-sample, 24-bit
// depth, OpenGL-rules configuration named in spec §6's example.
func DefaultConfig() Config {
	return Config{
		Mode:            ModeHierarchical,
		ScanTileWidth:   8,
		ScanTileHeight:  8,
		OverTileWidth:   32,
		OverTileHeight:  32,
		GenTileWidth:    4,
		GenTileHeight:   4,
		MSAASamples:     1,
		DepthBits:       24,
		DepthConvention: DepthOpenGL,
	}
}

// Rasterizer drives SetupTriangles through tile traversal, stamp generation
// and fragment emission (spec §2 "Rasterizer").
type Rasterizer struct {
	cfg     Config
	pattern gpumath.SamplePattern
}

// New validates cfg and returns a Rasterizer. An unsupported MSAA sample
// count is an illegal configuration, fatal at construction (spec §7).
func New(cfg Config) (*Rasterizer, error) {
	pattern, ok := gpumath.SamplesForCount(cfg.MSAASamples)
	if !ok {
		return nil, fmt.Errorf("raster: illegal configuration: unsupported MSAA sample count %d", cfg.MSAASamples)
	}
	if cfg.DepthBits == 0 || cfg.DepthBits > 32 {
		return nil, fmt.Errorf("raster: illegal configuration: depth-bit precision %d out of range", cfg.DepthBits)
	}
	if cfg.ScanTileWidth <= 0 || cfg.ScanTileHeight <= 0 {
		return nil, fmt.Errorf("raster: illegal configuration: scan tile %dx%d must be positive", cfg.ScanTileWidth, cfg.ScanTileHeight)
	}
	if cfg.GenTileWidth <= 0 || cfg.GenTileWidth > cfg.ScanTileWidth {
		return nil, fmt.Errorf("raster: illegal configuration: gen tile width %d must be in (0, scan tile width %d]", cfg.GenTileWidth, cfg.ScanTileWidth)
	}
	var active gpumath.SamplePattern
	if cfg.MSAASamples > 1 {
		active = pattern
	}
	return &Rasterizer{cfg: cfg, pattern: active}, nil
}

// Rasterize walks tri to completion, returning every emitted Fragment (spec
// §4.3). A degenerate triangle (area==0) emits no fragments and sets
// lastFragment immediately (spec §8 boundary behavior).
func (r *Rasterizer) Rasterize(tri *setup.Triangle) []Fragment {
	mode := r.cfg.Mode
	switch tri.ScanMode {
	case setup.ScanModeScanline:
		mode = ModeScanline
	case setup.ScanModeHierarchical:
		mode = ModeHierarchical
	}
	if mode == ModeScanline {
		return r.tiledScanlineWalk(tri)
	}
	frags := r.hierarchicalBatch([]*setup.Triangle{tri})[0]
	if len(frags) > 0 {
		frags[len(frags)-1].LastFragment = true
	}
	tri.LastFragment = true
	return frags
}

// MicroTriangleFastPath returns tri's fragments when its bounding box is at
// most one stamp (2x2 pixels) in both dimensions and its area is non-zero:
// the hierarchical descent is skipped and the single stamp at the bounding
// box's origin is evaluated directly. For any larger or degenerate triangle
// it returns nil. This is the
// micro-triangle fast path supplemented from the original source's dual
// setup entry points (a pre-bound, already-tiny triangle never needs tile
// subdivision).
func (r *Rasterizer) MicroTriangleFastPath(tri *setup.Triangle) []Fragment {
	w := tri.BBoxXMax - tri.BBoxXMin
	h := tri.BBoxYMax - tri.BBoxYMin
	if w > 2 || h > 2 || tri.Area == 0 {
		return nil
	}
	frags := emitStampAt(tri, tri.BBoxXMin, tri.BBoxYMin, r.cfg.DepthConvention, r.cfg.DepthBits, r.pattern)
	if len(frags) > 0 {
		frags[len(frags)-1].LastFragment = true
	}
	tri.LastFragment = true
	return frags
}

// ScanBatch evaluates every triangle in tris against the same hierarchical
// tile walk — the multi-triangle batch variant from spec §4.3(b): each tile
// carries the whole batch with a per-triangle "still inside" flag, so a tile
// rejected for one triangle keeps subdividing for the others. The combined
// output lists each triangle's fragments as a contiguous run in setup order
// (spec §4.3: "across triangles, the Rasterizer preserves the order in which
// triangles were setup").
func (r *Rasterizer) ScanBatch(tris []*setup.Triangle) []Fragment {
	perTri := r.hierarchicalBatch(tris)
	var all []Fragment
	for i, frags := range perTri {
		if len(frags) > 0 {
			frags[len(frags)-1].LastFragment = true
		}
		tris[i].LastFragment = true
		all = append(all, frags...)
	}
	return all
}

// SelectTwoSidedColor implements the original source's two-sided color /
// invert-facing helper (supplemented from original_source, spec non-goals do
// not exclude it): when the triangle was flipped for facing, the back-face
// color should be used instead of the front-face one.
func SelectTwoSidedColor(tri *setup.Triangle, flipped bool, front, back gpumath.Vec4) gpumath.Vec4 {
	if flipped {
		return back
	}
	return front
}
