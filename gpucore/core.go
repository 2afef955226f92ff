package gpucore

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/oxcore/rastercore/bus"
	"github.com/oxcore/rastercore/clipper"
	"github.com/oxcore/rastercore/gpumath"
	"github.com/oxcore/rastercore/raster"
	"github.com/oxcore/rastercore/setup"
	"github.com/oxcore/rastercore/shader"
	"github.com/oxcore/rastercore/signal"
)

// Deps bundles every external collaborator a Core needs (spec §6's
// interfaces) plus the fragment program it runs per fragment input. The
// program is handed over in static form; New decodes it, through a shared
// decode cache when the instruction-cache option is on (spec §6). Vertex
// programs travel with the VertexSource, which can share the core's cache
// via DecodeProgram.
type Deps struct {
	Assembly     PrimitiveAssembly
	VertexSource VertexSource // optional
	FragSink     FragmentSink
	VertSink     VertexSink
	Sampler      Sampler // optional
	Logger       Logger  // optional, defaults to stdLogger
	MemCtl       MemoryController

	FragmentProgram   []shader.Instr
	FragmentTempCount int
}

// MemoryController is the narrow interface to the external memory subsystem
// (spec §6 "From MemoryController (input)", "To MemoryController (output)"):
// the core only ever sees the {NONE,READ_ACCEPT,WRITE_ACCEPT,BOTH} state
// signal and ticketed transactions, never DRAM timing (spec §1).
type MemoryController interface {
	State(cycle uint64) bus.State
}

// Core owns a Clipper, a SetupTriangle arena, a Rasterizer and a unified
// ShaderFrontEnd, and drives the full dataflow of spec §2 one cycle at a
// time via Clock. Every inter-stage edge the spec names a "signal" (§5,
// "Trace/Signal fabric") is carried by a signal.Channel with the configured
// latency/bandwidth, so back-pressure and delivery timing are modeled the
// same way between every pair of stages.
type Core struct {
	cfg Config
	log Logger

	clip   *clipper.Clipper
	arena  *setup.Arena
	raster *raster.Rasterizer
	front  *shader.ShaderFrontEnd
	param  *shader.ParamBank
	busCtl *bus.Controller
	memCtl MemoryController

	assembly     PrimitiveAssembly
	vertexSource VertexSource
	fragSink     FragmentSink
	vertSink     VertexSink

	setupEdge    *signal.Channel[TriangleSetupInput]
	fragmentEdge *signal.Channel[raster.Fragment]

	// handles and triangles track live setup-arena slots by triangle ID so
	// the last in-flight fragment's release can free the slot (spec §3:
	// lifetime ends at lastFragment once all consumers have released).
	handles   map[uint64]setup.Handle
	triangles map[uint64]*setup.Triangle

	decodeCache       *shader.DecodeCache // nil when the instruction cache is off
	fragmentProgram   []*shader.DecodedInstr
	fragmentTempCount int

	// frontMu serializes LoadInput between the triangle and vertex paths
	// when Clock runs them on separate goroutines (cfg.Parallel); the
	// thread-table scan inside LoadInput is not otherwise safe to share.
	frontMu sync.Mutex

	cycle       uint64
	nextInputID uint64
}

// New validates cfg and builds a Core wired to deps. An illegal
// configuration is fatal at construction (spec §7).
func New(cfg Config, deps Deps) (*Core, error) {
	if err := cfg.IllegalConfig(); err != nil {
		return nil, err
	}
	if deps.Assembly == nil {
		return nil, Fatal("gpucore", fmt.Errorf("Deps.Assembly is required"))
	}

	cl := clipper.New(cfg.clipperDepth())
	cl.Reset()
	if err := cl.BeginDraw(); err != nil {
		return nil, Fatal("gpucore", err)
	}

	arena := setup.NewArena(cfg.MaxActiveTriangles)

	rz, err := raster.New(cfg.Raster)
	if err != nil {
		return nil, err
	}

	param := &shader.ParamBank{}
	fe, err := shader.NewFrontEnd(cfg.Shader, param, deps.Sampler)
	if err != nil {
		return nil, err
	}

	setupEdge, err := signal.New[TriangleSetupInput](1, cfg.MaxActiveTriangles)
	if err != nil {
		return nil, Fatal("gpucore", err)
	}
	// Rasterize returns a triangle's entire fragment stream in one call
	// rather than modeling the stamp-by-stamp cycle timing internal to the
	// Rasterizer (spec §4.3-§4.6 describe that timing, but §2's dataflow
	// only requires the Rasterizer->ShaderFrontEnd edge to honor a fixed
	// latency, not a fixed per-cycle fragment count); the edge's bandwidth
	// is therefore sized to the largest triangle the arena can hold at once
	// rather than a small per-cycle stamp quota; a stamp-accurate emission
	// schedule is left as a finer-grained Rasterizer internal.
	fragmentBandwidth := cfg.ViewportW * cfg.ViewportH
	if fragmentBandwidth < 4 {
		fragmentBandwidth = 4
	}
	fragmentEdge, err := signal.New[raster.Fragment](1, int(fragmentBandwidth))
	if err != nil {
		return nil, Fatal("gpucore", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = defaultLogger()
	}

	// The instruction-cache option (spec §6): decoded instructions are
	// memoized across programs when on, redecoded per program when off.
	var decodeCache *shader.DecodeCache
	if cfg.Shader.InstructionCache {
		decodeCache = shader.NewDecodeCache()
	}
	var fragProgram []*shader.DecodedInstr
	if len(deps.FragmentProgram) > 0 {
		fragProgram, err = shader.DecodeProgram(deps.FragmentProgram, decodeCache)
		if err != nil {
			return nil, Fatal("gpucore", err)
		}
	}

	return &Core{
		cfg:               cfg,
		log:               logger,
		clip:              cl,
		arena:             arena,
		raster:            rz,
		front:             fe,
		param:             param,
		busCtl:            bus.NewController(),
		memCtl:            deps.MemCtl,
		assembly:          deps.Assembly,
		vertexSource:      deps.VertexSource,
		fragSink:          deps.FragSink,
		vertSink:          deps.VertSink,
		setupEdge:         setupEdge,
		fragmentEdge:      fragmentEdge,
		handles:           make(map[uint64]setup.Handle),
		triangles:         make(map[uint64]*setup.Triangle),
		decodeCache:       decodeCache,
		fragmentProgram:   fragProgram,
		fragmentTempCount: deps.FragmentTempCount,
	}, nil
}

// DecodeProgram decodes a static instruction sequence for a caller-built
// vertex source, through the core's shared decode cache when the
// instruction-cache option is on (spec §6) and freshly otherwise.
func (c *Core) DecodeProgram(instrs []shader.Instr) ([]*shader.DecodedInstr, error) {
	return shader.DecodeProgram(instrs, c.decodeCache)
}

// FreeSetupSlots reports the back-pressure value a PrimitiveAssembly should
// see (spec §6: "the core sends a back-pressure 'request N' signal when it
// has N free setup slots").
func (c *Core) FreeSetupSlots() int { return c.arena.FreeSlots() }

// ActiveTriangles reports how many setup triangles still have in-flight
// fragments holding references.
func (c *Core) ActiveTriangles() int { return len(c.triangles) }

// LoadParams installs the shared, read-only PARAM bank contents (spec §5's
// two-partition primary/secondary layout) a shader program addresses.
func (c *Core) LoadParams(primary, secondary [][4]float32) {
	c.param.Primary = primary
	c.param.Secondary = secondary
}

// IssueMemoryRead requests size bytes at address from the external memory
// controller (spec §6 "To MemoryController (output)"). It returns a capacity
// back-pressure error, not a fatal one, when the controller's current state
// signal (spec §6 "From MemoryController (input)") does not accept a read
// this cycle — the caller is expected to retry on a later cycle, the same
// non-blocking discipline the shader front end's LoadInput uses.
func (c *Core) IssueMemoryRead(cycle uint64, address, size uint32) (bus.Request, error) {
	if c.memCtl == nil {
		return bus.Request{}, fmt.Errorf("gpucore: no MemoryController configured")
	}
	if !c.memCtl.State(cycle).Accepts(bus.ReadReq) {
		return bus.Request{}, fmt.Errorf("gpucore: capacity back-pressure: memory controller not accepting reads")
	}
	return c.busCtl.Issue(address, size, bus.ReadReq, nil), nil
}

// CompleteMemoryRead retires an outstanding request by matching resp's
// ticket. An unknown ticket is a fatal protocol violation (spec §7).
func (c *Core) CompleteMemoryRead(cycle uint64, resp bus.Response) (bus.Request, error) {
	req, err := c.busCtl.Complete(resp)
	if err != nil {
		return bus.Request{}, FatalAt("gpucore", cycle, err)
	}
	return req, nil
}

// OutstandingMemoryRequests reports how many issued memory transactions are
// still awaiting a response.
func (c *Core) OutstandingMemoryRequests() int { return c.busCtl.Outstanding() }

// Clock advances the core by exactly one cycle, running the triangle path
// (Clipper -> Setup -> Rasterizer -> fragment ShaderInputs), the vertex path
// (VertexSource -> vertex ShaderInputs) and the front end's fetch step, in
// that order. When cfg.Parallel is set, the triangle and vertex paths run on
// separate goroutines behind an errgroup.Group cycle barrier (spec §5's
// documented "implementation freedom" for per-component cycle-local
// parallelism) since they touch disjoint state (the triangle arena vs. the
// vertex program path) until both feed the same front end, which Step then
// drains single-threaded.
func (c *Core) Clock(ctx context.Context) error {
	cycle := c.cycle

	if c.cfg.Parallel {
		g, _ := errgroup.WithContext(ctx)
		g.Go(func() error { return c.clockTrianglePath(cycle) })
		g.Go(func() error { return c.clockVertexPath(cycle) })
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		if err := c.clockTrianglePath(cycle); err != nil {
			return err
		}
		if err := c.clockVertexPath(cycle); err != nil {
			return err
		}
	}

	outs := c.front.Step(cycle)
	for _, out := range outs {
		c.dispatchOutput(out)
	}
	// The sinks above consume outputs unconditionally, so the front end's
	// output channel drains as fast as it commits; a consumer that cannot
	// keep up would instead drain fewer slots per cycle and leave threads
	// blocked at END (spec §4.8, "the output channel is full").
	c.front.DrainOutput(len(outs))
	c.front.UnblockOutput()

	c.cycle++
	return nil
}

func (c *Core) clockTrianglePath(cycle uint64) error {
	// Drain fragments that arrived this cycle (sent by a prior cycle's
	// admitTriangle, delayed by the fragment edge's configured latency)
	// before admitting new triangles, so the edge's FIFO order matches
	// setup order (spec §4.3, "the Rasterizer preserves the order in which
	// triangles were setup").
	for _, f := range c.fragmentEdge.Recv(cycle) {
		if err := c.loadFragmentInput(cycle, f); err != nil {
			return err
		}
	}

	if c.arena.FreeSlots() > 0 {
		if in, ok := c.assembly.Next(cycle); ok {
			c.setupEdge.Send(cycle, in)
		}
	}
	for _, in := range c.setupEdge.Recv(cycle) {
		if err := c.admitTriangle(cycle, in); err != nil {
			return err
		}
	}
	return nil
}

// admitTriangle runs one TriangleSetupInput through Clipper -> Setup ->
// Rasterizer and enqueues its fragments onto the rasterizer-to-shader edge.
func (c *Core) admitTriangle(cycle uint64, in TriangleSetupInput) error {
	if !c.clip.Accept(in.V[0], in.V[1], in.V[2]) {
		return nil // trivial reject is a normal outcome, spec §4.1
	}

	tri := setup.New(in.ID, in.V[0], in.V[1], in.V[2], in.Attrs, c.cfg.ViewportW, c.cfg.ViewportH, c.cfg.setupConfig())
	handle, err := c.arena.Allocate(tri)
	if err != nil {
		return FatalAt("gpucore", cycle, err)
	}
	c.handles[in.ID] = handle
	c.triangles[in.ID] = tri

	// Each in-flight fragment holds its own reference to the triangle; the
	// arena's construction reference is dropped once the whole stream is on
	// the edge, so the slot frees when the last fragment is consumed (spec
	// §3: "lifetime ends when the Rasterizer declares its lastFragment AND
	// all downstream consumers have released it").
	frags := c.raster.Rasterize(tri)
	for _, f := range frags {
		tri.Retain()
		c.fragmentEdge.Send(cycle, f)
	}
	if tri.Release() {
		return c.freeTriangle(cycle, tri)
	}
	return nil
}

func (c *Core) freeTriangle(cycle uint64, tri *setup.Triangle) error {
	handle, ok := c.handles[tri.ID]
	if !ok {
		return FatalAt("gpucore", cycle, fmt.Errorf("release of untracked triangle %d", tri.ID))
	}
	if err := c.arena.Free(handle); err != nil {
		return FatalAt("gpucore", cycle, err)
	}
	delete(c.handles, tri.ID)
	delete(c.triangles, tri.ID)
	return nil
}

func (c *Core) loadFragmentInput(cycle uint64, f raster.Fragment) error {
	if c.fragSink != nil {
		c.fragSink.AcceptFragment(f)
	}
	if c.fragmentProgram != nil {
		attrs := interpolateFragmentAttrs(f)
		in := &shader.ShaderInput{
			ID:         c.nextID(),
			Mode:       shader.ModeFragment,
			Attributes: attrs,
			Kill:       !f.InsideTriangle,
		}
		c.frontMu.Lock()
		_, err := c.front.LoadInput(cycle, in, c.fragmentProgram, c.fragmentTempCount)
		c.frontMu.Unlock()
		if err != nil {
			c.log.Printf("gpucore: cycle %d: fragment input dropped: %v", cycle, err)
		}
	}
	if f.Owner != nil && f.Owner.Release() {
		return c.freeTriangle(cycle, f.Owner)
	}
	return nil
}

func (c *Core) clockVertexPath(cycle uint64) error {
	if c.vertexSource == nil {
		return nil
	}
	for {
		in, prog, temps, ok := c.vertexSource.NextVertex(cycle)
		if !ok {
			return nil
		}
		c.frontMu.Lock()
		_, err := c.front.LoadInput(cycle, in, prog, temps)
		c.frontMu.Unlock()
		if err != nil {
			// Back-pressure: hand the vertex back to a source that can
			// reissue it (the streamer squashes its speculative cache line).
			if sq, ok := c.vertexSource.(interface{ SquashVertex(*shader.ShaderInput) }); ok {
				sq.SquashVertex(in)
			}
			return nil
		}
	}
}

func (c *Core) dispatchOutput(out shader.Output) {
	if c.vertSink != nil {
		c.vertSink.AcceptVertex(out)
	}
	// A VertexSource that caches shaded outputs (the streamer's output
	// cache) learns its speculatively allocated line committed here.
	if committer, ok := c.vertexSource.(interface{ CommitVertex(shader.Output) }); ok {
		committer.CommitVertex(out)
	}
}

func (c *Core) nextID() uint64 {
	c.nextInputID++
	return c.nextInputID
}

// interpolateFragmentAttrs runs spec §4.7's barycentric attribute
// interpolation over a Fragment's already-evaluated edge samples.
func interpolateFragmentAttrs(f raster.Fragment) [][4]float32 {
	tri := f.Owner
	if tri == nil || len(tri.Attrs[0]) == 0 {
		return nil
	}
	w1, w2, w3 := gpumath.Barycentric(f.E1, f.E2, f.E3)
	if w1 == 0 && w2 == 0 && w3 == 0 {
		return nil
	}

	n := len(tri.Attrs[0])
	out := make([][4]float32, n)
	for k := 0; k < n; k++ {
		out[k] = [4]float32(gpumath.InterpolateVec4(w1, w2, w3, tri.Attrs[0][k], tri.Attrs[1][k], tri.Attrs[2][k]))
	}
	return out
}
