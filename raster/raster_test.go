package raster

import (
	"math"
	"testing"

	"github.com/oxcore/rastercore/gpumath"
	"github.com/oxcore/rastercore/setup"
)

func defaultSetupConfig() setup.Config {
	return setup.Config{
		FrontFace:       gpumath.FaceCCW,
		D3D9RasterRules: true,
		ScissorX0:       0,
		ScissorY0:       0,
		ScissorX1:       16,
		ScissorY1:       16,
		SubpixelBits:    4,
	}
}

func TestSinglePixelTriangleScenario(t *testing.T) {
	// Spec §8 scenario 2.
	v1 := gpumath.Vec4{10, 10, 0, 1}
	v2 := gpumath.Vec4{11, 10, 0, 1}
	v3 := gpumath.Vec4{10, 11, 0, 1}
	tri := setup.New(1, v1, v2, v3, [3][]gpumath.Vec4{}, 16, 16, defaultSetupConfig())

	cfg := DefaultConfig()
	cfg.DepthConvention = DepthD3D9
	r, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	frags := r.Rasterize(tri)
	var inside []Fragment
	for _, f := range frags {
		if f.InsideTriangle {
			inside = append(inside, f)
		}
	}
	if len(inside) != 1 {
		t.Fatalf("got %d inside fragments, want exactly 1", len(inside))
	}
	f := inside[0]
	if f.X != 10 || f.Y != 10 {
		t.Fatalf("fragment at (%d,%d), want (10,10)", f.X, f.Y)
	}
	if f.Zc != 0 {
		t.Fatalf("Zc = %d, want 0", f.Zc)
	}
	if !frags[len(frags)-1].LastFragment {
		t.Fatal("expected the final emitted fragment to carry lastFragment")
	}
}

func TestStampQuadScenario(t *testing.T) {
	// Spec §8 scenario 3: vertices (0,0,0.5,1),(2,0,0.5,1),(0,2,0.5,1),
	// viewport 4x4, expect a stamp at (0,0) covering 3 of 4 pixels.
	v1 := gpumath.Vec4{0, 0, 0.5, 1}
	v2 := gpumath.Vec4{2, 0, 0.5, 1}
	v3 := gpumath.Vec4{0, 2, 0.5, 1}
	cfg := defaultSetupConfig()
	cfg.ScissorX1, cfg.ScissorY1 = 4, 4
	tri := setup.New(1, v1, v2, v3, [3][]gpumath.Vec4{}, 4, 4, cfg)

	rc := DefaultConfig()
	rc.DepthConvention = DepthD3D9
	r, err := New(rc)
	if err != nil {
		t.Fatal(err)
	}

	frags := r.Rasterize(tri)
	if len(frags) != 4 {
		t.Fatalf("got %d fragments, want the full 4-fragment stamp", len(frags))
	}
	inside, outside := 0, 0
	for _, f := range frags {
		if f.InsideTriangle {
			inside++
		} else {
			outside++
			if f.X != 1 || f.Y != 1 {
				t.Fatalf("outside pixel at (%d,%d), want the far corner (1,1)", f.X, f.Y)
			}
		}
	}
	if inside != 3 || outside != 1 {
		t.Fatalf("got %d inside / %d outside fragments, want 3 / 1", inside, outside)
	}
}

func TestDegenerateTriangleEmitsNoFragments(t *testing.T) {
	v1 := gpumath.Vec4{1, 1, 0, 1}
	v2 := gpumath.Vec4{2, 2, 0, 1}
	v3 := gpumath.Vec4{3, 3, 0, 1} // collinear: zero area
	tri := setup.New(1, v1, v2, v3, [3][]gpumath.Vec4{}, 16, 16, defaultSetupConfig())

	r, err := New(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	frags := r.Rasterize(tri)
	if len(frags) != 0 {
		t.Fatalf("degenerate triangle produced %d fragments, want 0", len(frags))
	}
	if !tri.LastFragment {
		t.Fatal("expected lastFragment to be set for a degenerate triangle")
	}
}

func TestMSAA4CentroidMatchesCoveredMean(t *testing.T) {
	// Spec §8 scenario 4.
	v1 := gpumath.Vec4{0, 0, 0.5, 1}
	v2 := gpumath.Vec4{2, 0, 0.5, 1}
	v3 := gpumath.Vec4{0, 2, 0.5, 1}
	cfg := defaultSetupConfig()
	cfg.ScissorX1, cfg.ScissorY1 = 4, 4
	tri := setup.New(1, v1, v2, v3, [3][]gpumath.Vec4{}, 4, 4, cfg)

	rc := DefaultConfig()
	rc.MSAASamples = 4
	rc.DepthConvention = DepthD3D9
	r, err := New(rc)
	if err != nil {
		t.Fatal(err)
	}

	pattern, _ := gpumath.SamplesForCount(4)
	frags := r.Rasterize(tri)
	foundPartial := false
	for _, f := range frags {
		if f.MSAA == nil {
			t.Fatal("expected every fragment to carry an MSAA sample under MSAA=4")
		}
		// Check the incremental per-sample depths and the centroid against a
		// direct absolute evaluation of the triangle's equations.
		var sumX, sumY float64
		covered := 0
		for i, s := range pattern {
			px, py := float64(f.X)+s.DX, float64(f.Y)+s.DY
			zw := tri.Zeq.A*px + tri.Zeq.B*py + tri.Zeq.C
			if f.MSAA.Coverage&(1<<uint(i)) != 0 {
				want := ConvertDepth(zw, rc.DepthConvention, rc.DepthBits)
				if diff := int64(f.MSAA.Zc[i]) - int64(want); diff < -1 || diff > 1 {
					t.Fatalf("pixel (%d,%d) sample %d Zc = %d, direct evaluation gives %d", f.X, f.Y, i, f.MSAA.Zc[i], want)
				}
				sumX += s.DX
				sumY += s.DY
				covered++
			}
		}
		if covered > 0 {
			wantCX := float64(f.X) + sumX/float64(covered)
			wantCY := float64(f.Y) + sumY/float64(covered)
			if math.Abs(f.MSAA.CentroidX-wantCX) > 1e-9 || math.Abs(f.MSAA.CentroidY-wantCY) > 1e-9 {
				t.Fatalf("pixel (%d,%d) centroid (%v,%v), want mean of covered samples (%v,%v)",
					f.X, f.Y, f.MSAA.CentroidX, f.MSAA.CentroidY, wantCX, wantCY)
			}
		}
		if covered > 0 && covered < 4 {
			foundPartial = true
		}
	}
	if !foundPartial {
		t.Fatal("expected at least one partially covered pixel in the MSAA4 stamp")
	}
}

func TestMicroTriangleFastPath(t *testing.T) {
	v1 := gpumath.Vec4{10, 10, 0, 1}
	v2 := gpumath.Vec4{11, 10, 0, 1}
	v3 := gpumath.Vec4{10, 11, 0, 1}
	tri := setup.New(1, v1, v2, v3, [3][]gpumath.Vec4{}, 16, 16, defaultSetupConfig())

	r, err := New(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	frags := r.MicroTriangleFastPath(tri)
	if len(frags) == 0 {
		t.Fatal("expected the micro-triangle fast path to emit fragments for a 1x1 bbox triangle")
	}
}

// insideSet collects the (x,y) pixels of the inside fragments of a stream.
func insideSet(frags []Fragment) map[[2]int32]bool {
	out := make(map[[2]int32]bool)
	for _, f := range frags {
		if f.InsideTriangle {
			out[[2]int32{f.X, f.Y}] = true
		}
	}
	return out
}

func TestScanlineModeMatchesHierarchicalCoverage(t *testing.T) {
	// Both walks must agree on which pixels are inside (spec §9 Open
	// Question: either mode satisfies the spec).
	v1 := gpumath.Vec4{1, 1, 0.25, 1}
	v2 := gpumath.Vec4{13, 2, 0.25, 1}
	v3 := gpumath.Vec4{3, 12, 0.25, 1}

	cfg := defaultSetupConfig()
	hierTri := setup.New(1, v1, v2, v3, [3][]gpumath.Vec4{}, 16, 16, cfg)
	scanTri := setup.New(2, v1, v2, v3, [3][]gpumath.Vec4{}, 16, 16, cfg)

	rc := DefaultConfig()
	rc.DepthConvention = DepthD3D9
	hier, err := New(rc)
	if err != nil {
		t.Fatal(err)
	}
	rc.Mode = ModeScanline
	scan, err := New(rc)
	if err != nil {
		t.Fatal(err)
	}

	hierSet := insideSet(hier.Rasterize(hierTri))
	scanSet := insideSet(scan.Rasterize(scanTri))

	if len(hierSet) == 0 {
		t.Fatal("hierarchical walk found no coverage for a clearly visible triangle")
	}
	for p := range hierSet {
		if !scanSet[p] {
			t.Errorf("pixel (%d,%d) covered hierarchically but missed by the scanline walk", p[0], p[1])
		}
	}
	for p := range scanSet {
		if !hierSet[p] {
			t.Errorf("pixel (%d,%d) covered by the scanline walk but not hierarchically", p[0], p[1])
		}
	}
	if !scanTri.LastFragment {
		t.Fatal("scanline walk must set lastFragment when its saves are exhausted")
	}
}

func TestScanlinePerTriangleModeOverride(t *testing.T) {
	v1 := gpumath.Vec4{2, 2, 0, 1}
	v2 := gpumath.Vec4{10, 2, 0, 1}
	v3 := gpumath.Vec4{2, 10, 0, 1}
	tri := setup.New(1, v1, v2, v3, [3][]gpumath.Vec4{}, 16, 16, defaultSetupConfig())
	tri.ScanMode = setup.ScanModeScanline

	r, err := New(DefaultConfig()) // hierarchical default; override wins
	if err != nil {
		t.Fatal(err)
	}
	frags := r.Rasterize(tri)
	if len(insideSet(frags)) == 0 {
		t.Fatal("per-triangle scanline override produced no coverage")
	}
}

func TestScanBatchPreservesSetupOrder(t *testing.T) {
	cfg := defaultSetupConfig()
	t1 := setup.New(1, gpumath.Vec4{1, 1, 0, 1}, gpumath.Vec4{5, 1, 0, 1}, gpumath.Vec4{1, 5, 0, 1}, [3][]gpumath.Vec4{}, 16, 16, cfg)
	t2 := setup.New(2, gpumath.Vec4{9, 9, 0, 1}, gpumath.Vec4{14, 9, 0, 1}, gpumath.Vec4{9, 14, 0, 1}, [3][]gpumath.Vec4{}, 16, 16, cfg)

	r, err := New(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	frags := r.ScanBatch([]*setup.Triangle{t1, t2})
	if len(frags) == 0 {
		t.Fatal("batch scan produced no fragments")
	}

	seenSecond := false
	for _, f := range frags {
		switch f.Owner.ID {
		case 2:
			seenSecond = true
		case 1:
			if seenSecond {
				t.Fatal("batch output interleaved triangles; setup order must be preserved")
			}
		}
	}
	if !t1.LastFragment || !t2.LastFragment {
		t.Fatal("both batch triangles should be marked lastFragment after the scan")
	}

	// The batch walk must agree with per-triangle walks.
	s1 := setup.New(3, gpumath.Vec4{1, 1, 0, 1}, gpumath.Vec4{5, 1, 0, 1}, gpumath.Vec4{1, 5, 0, 1}, [3][]gpumath.Vec4{}, 16, 16, cfg)
	soloSet := insideSet(r.Rasterize(s1))
	batchT1 := make(map[[2]int32]bool)
	for _, f := range frags {
		if f.Owner.ID == 1 && f.InsideTriangle {
			batchT1[[2]int32{f.X, f.Y}] = true
		}
	}
	if len(batchT1) != len(soloSet) {
		t.Fatalf("batch coverage for triangle 1 has %d pixels, solo walk has %d", len(batchT1), len(soloSet))
	}
}

func TestFragmentZcWithinDepthRange(t *testing.T) {
	// Spec §8 invariant: converted Z lies in [0, 2^depthBits - 1].
	v1 := gpumath.Vec4{1, 1, 0.9, 1}
	v2 := gpumath.Vec4{9, 1, 0.1, 1}
	v3 := gpumath.Vec4{1, 9, 0.5, 1}
	tri := setup.New(1, v1, v2, v3, [3][]gpumath.Vec4{}, 16, 16, defaultSetupConfig())

	cfg := DefaultConfig()
	cfg.DepthConvention = DepthD3D9
	r, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	limit := uint32(1)<<cfg.DepthBits - 1
	for _, f := range r.Rasterize(tri) {
		if f.Zc > limit {
			t.Fatalf("fragment Zc %d exceeds 2^%d-1", f.Zc, cfg.DepthBits)
		}
	}
}

func TestUnsupportedMSAACountRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MSAASamples = 3
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for an unsupported MSAA sample count")
	}
}
