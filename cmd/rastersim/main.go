// rastersim drives a gpucore.Core headlessly against a single triangle
// (and, optionally, a batch of standalone vertices), clocking it to
// completion and reporting the fragment and vertex-output counts produced.
// It exists to exercise the core end-to-end the way ie32to64 exercises the
// assembler translation: a small, flag-configured command-line front end
// rather than a test harness.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/oxcore/rastercore/gpucore"
	"github.com/oxcore/rastercore/gpumath"
	"github.com/oxcore/rastercore/raster"
	"github.com/oxcore/rastercore/shader"
	"github.com/oxcore/rastercore/streamer"
)

func main() {
	viewportW := flag.Int("width", 640, "viewport width in pixels")
	viewportH := flag.Int("height", 480, "viewport height in pixels")
	maxTriangles := flag.Int("max-triangles", 64, "max simultaneously active setup triangles")
	msaa := flag.Int("msaa", 1, "MSAA sample count (1, 2, 4, 6 or 8)")
	rasterMode := flag.String("raster-mode", "hierarchical", "rasterization walk: hierarchical or scanline")
	cycles := flag.Int("cycles", 64, "number of cycles to clock the core")
	parallel := flag.Bool("parallel", false, "clock the triangle and vertex paths concurrently")
	vertexBatch := flag.Int("vertices", 0, "also stream N indexed vertices through the shader")
	icache := flag.Bool("icache", false, "memoize decoded shader instructions")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "rastersim: clock a rastercore.Core against one triangle\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	mode := raster.ModeHierarchical
	if *rasterMode == "scanline" {
		mode = raster.ModeScanline
	}

	cfg := gpucore.Apply(gpucore.DefaultConfig(),
		gpucore.WithViewport(int32(*viewportW), int32(*viewportH)),
		gpucore.WithMaxActiveTriangles(*maxTriangles),
		gpucore.WithMSAASamples(*msaa),
		gpucore.WithRasterMode(mode),
		gpucore.WithParallel(*parallel),
		gpucore.WithInstructionCache(*icache),
	)

	assembly := &singleTriangle{
		tri: gpucore.TriangleSetupInput{
			ID: 1,
			V: [3]gpumath.Vec4{
				{float32(*viewportW) * 0.25, float32(*viewportH) * 0.25, 0, 1},
				{float32(*viewportW) * 0.75, float32(*viewportH) * 0.25, 0, 1},
				{float32(*viewportW) * 0.25, float32(*viewportH) * 0.75, 0, 1},
			},
		},
	}
	frags := &fragmentCounter{}
	verts := &vertexCounter{}

	deps := gpucore.Deps{
		Assembly:          assembly,
		FragSink:          frags,
		VertSink:          verts,
		FragmentProgram:   []shader.Instr{{Op: shader.OpEND}},
		FragmentTempCount: 0,
	}

	var loader *streamer.Loader
	if *vertexBatch > 0 {
		var dcache *shader.DecodeCache
		if *icache {
			dcache = shader.NewDecodeCache()
		}
		vertexProg, err := shader.DecodeProgram([]shader.Instr{{Op: shader.OpEND}}, dcache)
		if err != nil {
			fmt.Fprintln(os.Stderr, "rastersim:", err)
			os.Exit(1)
		}
		cache, err := streamer.NewOutputCache(*vertexBatch)
		if err != nil {
			fmt.Fprintln(os.Stderr, "rastersim:", err)
			os.Exit(1)
		}
		fetch := func(index uint32) [][4]float32 {
			return [][4]float32{{float32(index), float32(index), 0, 1}}
		}
		loader, err = streamer.NewLoader(cache, fetch, vertexProg, 0)
		if err != nil {
			fmt.Fprintln(os.Stderr, "rastersim:", err)
			os.Exit(1)
		}
		indices := make([]uint32, *vertexBatch)
		for i := range indices {
			indices[i] = uint32(i)
		}
		if err := loader.Begin(indices); err != nil {
			fmt.Fprintln(os.Stderr, "rastersim:", err)
			os.Exit(1)
		}
		deps.VertexSource = loader
	}

	core, err := gpucore.New(cfg, deps)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rastersim:", err)
		os.Exit(1)
	}

	ctx := context.Background()
	for i := 0; i < *cycles; i++ {
		if err := core.Clock(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "rastersim:", err)
			os.Exit(1)
		}
	}

	fmt.Printf("fragments emitted: %d\n", frags.count)
	fmt.Printf("vertex/fragment outputs committed: %d\n", verts.count)
	fmt.Printf("free setup slots at end: %d/%d\n", core.FreeSetupSlots(), *maxTriangles)
	if loader != nil {
		fmt.Printf("vertices shaded: %d\n", loader.ShadedCount())
	}
}

type singleTriangle struct {
	tri  gpucore.TriangleSetupInput
	sent bool
}

func (s *singleTriangle) Next(cycle uint64) (gpucore.TriangleSetupInput, bool) {
	if s.sent {
		return gpucore.TriangleSetupInput{}, false
	}
	s.sent = true
	return s.tri, true
}

type fragmentCounter struct{ count int }

func (f *fragmentCounter) AcceptFragment(frag raster.Fragment) { f.count++ }

type vertexCounter struct{ count int }

func (v *vertexCounter) AcceptVertex(out shader.Output) { v.count++ }
