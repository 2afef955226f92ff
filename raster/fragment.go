// Package raster implements the Rasterizer (spec §4.3, §4.5-§4.7): driving a
// SetupTriangle through hierarchical or tiled-scanline tile traversal, stamp
// generation, MSAA sample evaluation and fragment emission.
package raster

import "github.com/oxcore/rastercore/setup"

// MSAASample holds the per-sub-sample coverage and depth for one fragment
// when multisampling is enabled (spec §3 "Fragment", §4.6 MSAA).
type MSAASample struct {
	Coverage      uint32
	Zc            []uint32
	CentroidX     float64
	CentroidY     float64
}

// Fragment is emitted at tile level 0 (spec §3 "Fragment").
type Fragment struct {
	X, Y           int32
	Zc             uint32
	E1, E2, E3, Zw float64
	InsideTriangle bool
	Owner          *setup.Triangle
	MSAA           *MSAASample
	LastFragment   bool
}

// DepthConvention selects how a Z-equation sample in equation-space maps to
// the fragment's converted integer depth (spec §4.4).
type DepthConvention int

const (
	DepthD3D9    DepthConvention = iota // z already in [0,1]
	DepthOpenGL                         // z in [-1,1], mapped to [0,1]
)

// ConvertDepth narrows a Z-equation sample to the configured depth-bit
// integer precision, per spec §4.4's final conversion step.
func ConvertDepth(z float64, conv DepthConvention, depthBits uint32) uint32 {
	if conv == DepthOpenGL {
		z = (z + 1) / 2
	}
	if z < 0 {
		z = 0
	}
	if z > 1 {
		z = 1
	}
	max := float64((uint64(1) << depthBits) - 1)
	return uint32(z*max + 0.5)
}

// InDepthRange reports whether a raw (pre-conversion) Z sample lies within
// the valid clip-space depth range for the configured convention, the extra
// check spec §4.6 requires alongside the inside-edge predicate.
func InDepthRange(z float64, conv DepthConvention) bool {
	if conv == DepthOpenGL {
		return z >= -1 && z <= 1
	}
	return z >= 0 && z <= 1
}

// InsideEdge implements the deterministic top-left tie-break rule from spec
// §4.6: a sample is on the inside of an edge if its value is strictly
// positive, or zero with the edge's a-coefficient positive, or zero with
// a==0 and b non-negative.
func InsideEdge(value, a, b float64) bool {
	if value > 0 {
		return true
	}
	if value < 0 {
		return false
	}
	if a > 0 {
		return true
	}
	return a == 0 && b >= 0
}
