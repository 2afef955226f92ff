package gpucore

import (
	"context"
	"testing"

	"github.com/oxcore/rastercore/bus"
	"github.com/oxcore/rastercore/gpumath"
	"github.com/oxcore/rastercore/raster"
	"github.com/oxcore/rastercore/shader"
	"github.com/oxcore/rastercore/streamer"
)

// scriptedAssembly hands out a fixed list of triangles, one per cycle, then
// reports nothing more.
type scriptedAssembly struct {
	tris []TriangleSetupInput
	next int
}

func (s *scriptedAssembly) Next(cycle uint64) (TriangleSetupInput, bool) {
	if s.next >= len(s.tris) {
		return TriangleSetupInput{}, false
	}
	t := s.tris[s.next]
	s.next++
	return t, true
}

type fragmentCollector struct {
	frags []raster.Fragment
}

func (c *fragmentCollector) AcceptFragment(f raster.Fragment) { c.frags = append(c.frags, f) }

type vertexCollector struct {
	outs []shader.Output
}

func (c *vertexCollector) AcceptVertex(o shader.Output) { c.outs = append(c.outs, o) }

func TestCoreRejectsOffscreenTriangle(t *testing.T) {
	// Spec §8 scenario 1: a triangle entirely outside the view frustum must
	// produce zero fragments.
	cfg := DefaultConfig()
	assembly := &scriptedAssembly{tris: []TriangleSetupInput{
		{
			ID: 1,
			V: [3]gpumath.Vec4{
				{100, 100, 0, 1},
				{101, 100, 0, 1},
				{100, 101, 0, 1},
			},
		},
	}}
	sink := &fragmentCollector{}
	core, err := New(cfg, Deps{Assembly: assembly, FragSink: sink})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if err := core.Clock(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if len(sink.frags) != 0 {
		t.Fatalf("got %d fragments for an off-screen triangle, want 0", len(sink.frags))
	}
}

func TestCoreEmitsFragmentsForOnScreenTriangle(t *testing.T) {
	// Spec §8 scenario 2: a triangle covering exactly one pixel. The
	// scenario's integer sample coordinates are the D3D9 rasterization
	// rules; under the OpenGL half-pixel shift this triangle's single pixel
	// center lands exactly on its diagonal edge and the top-left rule
	// excludes it.
	cfg := Apply(DefaultConfig(), WithViewport(16, 16), WithMaxActiveTriangles(4), WithD3D9RasterizationRules(true))
	assembly := &scriptedAssembly{tris: []TriangleSetupInput{
		{
			ID: 1,
			V: [3]gpumath.Vec4{
				{10, 10, 0, 1},
				{11, 10, 0, 1},
				{10, 11, 0, 1},
			},
		},
	}}
	sink := &fragmentCollector{}
	core, err := New(cfg, Deps{Assembly: assembly, FragSink: sink})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if err := core.Clock(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if len(sink.frags) == 0 {
		t.Fatalf("got 0 fragments for an on-screen triangle, want at least 1")
	}
	if core.FreeSetupSlots() != cfg.MaxActiveTriangles {
		t.Fatalf("FreeSetupSlots() = %d after drain, want all %d slots back", core.FreeSetupSlots(), cfg.MaxActiveTriangles)
	}
}

func TestCoreShadesFragmentsThroughFrontEnd(t *testing.T) {
	cfg := Apply(DefaultConfig(), WithViewport(16, 16), WithMaxActiveTriangles(4), WithThreadCount(4), WithWavefrontWidth(4))
	assembly := &scriptedAssembly{tris: []TriangleSetupInput{
		{
			ID: 1,
			V: [3]gpumath.Vec4{
				{0, 0, 0, 1},
				{8, 0, 0, 1},
				{0, 8, 0, 1},
			},
		},
	}}
	vertOut := &vertexCollector{}
	core, err := New(cfg, Deps{
		Assembly:          assembly,
		VertSink:          vertOut,
		FragmentProgram:   []shader.Instr{{Op: shader.OpEND}},
		FragmentTempCount: 0,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 8; i++ {
		if err := core.Clock(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if len(vertOut.outs) == 0 {
		t.Fatalf("got 0 shaded outputs, want at least 1 fragment program commit")
	}
}

func TestInstructionCacheMemoizesDecode(t *testing.T) {
	// Spec §6's "instruction-cache storing decoded instructions (on/off)"
	// option: with the cache on, identical static instructions decode to the
	// same record; with it off, every decode is fresh.
	instrs := []shader.Instr{{Op: shader.OpMOV}, {Op: shader.OpEND}}

	onCore, err := New(Apply(DefaultConfig(), WithInstructionCache(true)), Deps{Assembly: &scriptedAssembly{}})
	if err != nil {
		t.Fatal(err)
	}
	p1, err := onCore.DecodeProgram(instrs)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := onCore.DecodeProgram(instrs)
	if err != nil {
		t.Fatal(err)
	}
	if p1[0] != p2[0] || p1[1] != p2[1] {
		t.Fatal("with the instruction cache on, repeated decodes should return the memoized records")
	}

	offCore, err := New(DefaultConfig(), Deps{Assembly: &scriptedAssembly{}})
	if err != nil {
		t.Fatal(err)
	}
	q1, err := offCore.DecodeProgram(instrs)
	if err != nil {
		t.Fatal(err)
	}
	q2, err := offCore.DecodeProgram(instrs)
	if err != nil {
		t.Fatal(err)
	}
	if q1[0] == q2[0] {
		t.Fatal("with the instruction cache off, every decode should be fresh")
	}
}

func TestCoreShadesVerticesThroughStreamer(t *testing.T) {
	// The vertex path of spec §2's dataflow: StreamerLoader -> front end ->
	// vertex output, with the output cache deduplicating the shared edge of
	// two triangles.
	cfg := Apply(DefaultConfig(), WithThreadCount(8), WithWavefrontWidth(4))

	cache, err := streamer.NewOutputCache(8)
	if err != nil {
		t.Fatal(err)
	}
	program, err := shader.DecodeProgram([]shader.Instr{
		{
			Op:     shader.OpMOV,
			Src1:   shader.Operand{Bank: shader.BankIN, Index: 0, Swizzle: shader.IdentitySwizzle},
			Result: shader.ResultOperand{Bank: shader.BankOUT, Index: 0, Mask: shader.FullMask},
		},
		{Op: shader.OpEND},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	fetch := func(index uint32) [][4]float32 {
		return [][4]float32{{float32(index), 0, 0, 1}}
	}
	loader, err := streamer.NewLoader(cache, fetch, program, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := loader.Begin([]uint32{0, 1, 2, 1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	verts := &vertexCollector{}
	core, err := New(cfg, Deps{Assembly: &scriptedAssembly{}, VertexSource: loader, VertSink: verts})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 8; i++ {
		if err := core.Clock(ctx); err != nil {
			t.Fatal(err)
		}
	}

	if len(verts.outs) != 4 {
		t.Fatalf("got %d shaded vertices, want 4 (two deduplicated by the output cache)", len(verts.outs))
	}
	hits, misses := cache.Stats()
	if hits != 2 || misses != 4 {
		t.Fatalf("cache stats %d hits / %d misses, want 2 / 4", hits, misses)
	}
	for _, o := range verts.outs {
		want := [4]float32{float32(o.Input.ID), 0, 0, 1}
		if o.Out[0] != want {
			t.Fatalf("vertex %d output %v, want %v", o.Input.ID, o.Out[0], want)
		}
	}
	if !loader.Done() {
		t.Fatal("loader should have drained its index stream")
	}
}

func TestIllegalConfigRejectedAtConstruction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ViewportW = 0
	if _, err := New(cfg, Deps{Assembly: &scriptedAssembly{}}); err == nil {
		t.Fatal("New with zero viewport width, want an error")
	}
}

func TestMemoryControllerRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	core, err := New(cfg, Deps{Assembly: &scriptedAssembly{}, MemCtl: alwaysAcceptMemCtl{}})
	if err != nil {
		t.Fatal(err)
	}
	req, err := core.IssueMemoryRead(0, 0x1000, 64)
	if err != nil {
		t.Fatal(err)
	}
	if core.OutstandingMemoryRequests() != 1 {
		t.Fatalf("OutstandingMemoryRequests() = %d, want 1", core.OutstandingMemoryRequests())
	}
	if _, err := core.CompleteMemoryRead(0, bus.Response{Ticket: req.Ticket}); err != nil {
		t.Fatal(err)
	}
	if core.OutstandingMemoryRequests() != 0 {
		t.Fatalf("OutstandingMemoryRequests() = %d after Complete, want 0", core.OutstandingMemoryRequests())
	}
}

func TestMemoryControllerBackPressureWhenNotAccepting(t *testing.T) {
	cfg := DefaultConfig()
	core, err := New(cfg, Deps{Assembly: &scriptedAssembly{}, MemCtl: neverAcceptMemCtl{}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := core.IssueMemoryRead(0, 0x1000, 64); err == nil {
		t.Fatal("IssueMemoryRead with a non-accepting controller, want an error")
	}
}

type alwaysAcceptMemCtl struct{}

func (alwaysAcceptMemCtl) State(cycle uint64) bus.State { return bus.Both }

type neverAcceptMemCtl struct{}

func (neverAcceptMemCtl) State(cycle uint64) bus.State { return bus.None }
