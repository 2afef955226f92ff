package raster

import (
	"github.com/oxcore/rastercore/gpumath"
	"github.com/oxcore/rastercore/setup"
)

// sampleVec is the four equation values (e1,e2,e3,zeq) evaluated at one
// sample point, the "sample" of spec §4.6.
type sampleVec [4]float64

func currentSample(eqs setup.Equations) sampleVec {
	return sampleVec{eqs.E1.At(), eqs.E2.At(), eqs.E3.At(), eqs.Zeq.At()}
}

func aVec(eqs setup.Equations) sampleVec {
	return sampleVec{eqs.E1.A, eqs.E2.A, eqs.E3.A, eqs.Zeq.A}
}

func bVec(eqs setup.Equations) sampleVec {
	return sampleVec{eqs.E1.B, eqs.E2.B, eqs.E3.B, eqs.Zeq.B}
}

func (s sampleVec) add(o sampleVec) sampleVec {
	return sampleVec{s[0] + o[0], s[1] + o[1], s[2] + o[2], s[3] + o[3]}
}

// generateStamp computes the four sample vectors of a 2x2 stamp whose anchor
// pixel is the equations' current raster position, in the order (x,y),
// (x+1,y), (x,y+1), (x+1,y+1), per spec §4.6: "s1=s0+a, s2=s0+b, s3=s0+a+b".
func generateStamp(eqs setup.Equations) [4]sampleVec {
	s0 := currentSample(eqs)
	a := aVec(eqs)
	b := bVec(eqs)
	return [4]sampleVec{s0, s0.add(a), s0.add(b), s0.add(a).add(b)}
}

// evaluateStampInside applies the inside-edge predicate (with top-left tie
// rule) and the depth-range check to one stamp's four samples, returning one
// verdict per pixel in stamp order.
func evaluateStampInside(eqs setup.Equations, samples [4]sampleVec, conv DepthConvention) [4]bool {
	var inside [4]bool
	for i, s := range samples {
		in := InsideEdge(s[0], eqs.E1.A, eqs.E1.B) &&
			InsideEdge(s[1], eqs.E2.A, eqs.E2.B) &&
			InsideEdge(s[2], eqs.E3.A, eqs.E3.B) &&
			InDepthRange(s[3], conv)
		inside[i] = in
	}
	return inside
}

// emitStamp builds the four Fragment records for one 2x2 stamp at pixel
// origin (x,y). eqs must already carry the equation values at (x,y) — the
// incremental-c invariant from spec §3/§4.4.
func emitStamp(tri *setup.Triangle, eqs setup.Equations, x, y int32, conv DepthConvention, depthBits uint32) [4]Fragment {
	samples := generateStamp(eqs)
	inside := evaluateStampInside(eqs, samples, conv)

	offsets := [4][2]int32{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	var frags [4]Fragment
	for i, s := range samples {
		frags[i] = Fragment{
			X:              x + offsets[i][0],
			Y:              y + offsets[i][1],
			Zc:             ConvertDepth(s[3], conv, depthBits),
			E1:             s[0],
			E2:             s[1],
			E3:             s[2],
			Zw:             s[3],
			InsideTriangle: inside[i],
			Owner:          tri,
		}
	}
	return frags
}

// emitStampMSAA additionally evaluates the configured MSAA sample pattern
// for each pixel in the stamp (spec §4.6). Coverage can be non-zero even when
// the pixel-center predicate misses, so the sub-samples are always evaluated.
func emitStampMSAA(tri *setup.Triangle, eqs setup.Equations, x, y int32, conv DepthConvention, depthBits uint32, pattern gpumath.SamplePattern) [4]Fragment {
	frags := emitStamp(tri, eqs, x, y, conv, depthBits)
	offsets := [4][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	for i := range frags {
		pixelEqs := eqs.Step(offsets[i][0], offsets[i][1])
		frags[i].MSAA = evaluateMSAA(pixelEqs, float64(frags[i].X), float64(frags[i].Y), conv, depthBits, pattern)
		frags[i].InsideTriangle = frags[i].InsideTriangle || frags[i].MSAA.Coverage != 0
	}
	return frags
}

// evaluateMSAA samples the N sub-pixel positions of pattern within the pixel
// whose equation values eqs carries, producing per-sample coverage, per-sample
// depth, and the centroid of the covered samples (spec §4.6, GLOSSARY "MSAA
// centroid"). (x,y) is the pixel origin, used only for the centroid's
// absolute coordinates.
func evaluateMSAA(eqs setup.Equations, x, y float64, conv DepthConvention, depthBits uint32, pattern gpumath.SamplePattern) *MSAASample {
	n := len(pattern)
	zc := make([]uint32, n)
	var coverage uint32
	var sumX, sumY float64
	covered := 0

	for i, s := range pattern {
		v1 := eqs.E1.C + eqs.E1.A*s.DX + eqs.E1.B*s.DY
		v2 := eqs.E2.C + eqs.E2.A*s.DX + eqs.E2.B*s.DY
		v3 := eqs.E3.C + eqs.E3.A*s.DX + eqs.E3.B*s.DY
		zw := eqs.Zeq.C + eqs.Zeq.A*s.DX + eqs.Zeq.B*s.DY

		in := InsideEdge(v1, eqs.E1.A, eqs.E1.B) &&
			InsideEdge(v2, eqs.E2.A, eqs.E2.B) &&
			InsideEdge(v3, eqs.E3.A, eqs.E3.B) &&
			InDepthRange(zw, conv)

		zc[i] = ConvertDepth(zw, conv, depthBits)
		if in {
			coverage |= 1 << uint(i)
			sumX += s.DX
			sumY += s.DY
			covered++
		}
	}

	m := &MSAASample{Coverage: coverage, Zc: zc}
	if covered > 0 {
		m.CentroidX = x + sumX/float64(covered)
		m.CentroidY = y + sumY/float64(covered)
	}
	return m
}

// emitStampAt emits the stamp anchored at absolute (x,y) — all four
// fragments when any of its pixels is inside, nothing otherwise — for a
// triangle whose Equations still sit at the raster origin — the
// hierarchical walk never steps the triangle's own equation state, so the
// stamp's equation values are derived by a symbolic step from the origin
// (spec §4.4).
func emitStampAt(tri *setup.Triangle, x, y int32, conv DepthConvention, depthBits uint32, pattern gpumath.SamplePattern) []Fragment {
	eqs := tri.Equations.Step(float64(x), float64(y))
	return emitStampEqs(tri, eqs, x, y, conv, depthBits, pattern)
}

// emitStampEqs emits one full stamp at (x,y) given equation state already
// stepped there — the form the scanline walk uses, since it maintains the
// incremental-c invariant itself. All four fragments are emitted, outside
// pixels with InsideTriangle false (spec §6: "For each stamp: four Fragment
// records"); a stamp with no coverage at all produces nothing.
func emitStampEqs(tri *setup.Triangle, eqs setup.Equations, x, y int32, conv DepthConvention, depthBits uint32, pattern gpumath.SamplePattern) []Fragment {
	var stamp [4]Fragment
	if pattern == nil {
		stamp = emitStamp(tri, eqs, x, y, conv, depthBits)
	} else {
		stamp = emitStampMSAA(tri, eqs, x, y, conv, depthBits, pattern)
	}
	any := false
	for _, f := range stamp {
		if f.InsideTriangle {
			any = true
			break
		}
	}
	if !any {
		return nil
	}
	return stamp[:]
}
