package gpucore

import (
	"github.com/oxcore/rastercore/gpumath"
	"github.com/oxcore/rastercore/raster"
	"github.com/oxcore/rastercore/shader"
)

// TriangleSetupInput is the record a PrimitiveAssembly hands the core (spec
// §6, "From PrimitiveAssembly (input)"): three vertex attribute vectors, a
// triangle ID and a last-in-batch flag.
type TriangleSetupInput struct {
	ID          uint64
	V           [3]gpumath.Vec4
	Attrs       [3][]gpumath.Vec4
	LastInBatch bool
}

// PrimitiveAssembly is the narrow, consumer-defined interface the core
// depends on for triangle input (spec §4's "PrimitiveAssembly (interface
// only) ... consumed contract only"). Next returns false once the assembly
// has nothing more to offer this cycle; it is never required to block.
type PrimitiveAssembly interface {
	Next(cycle uint64) (TriangleSetupInput, bool)
}

// VertexSource is the StreamerLoader-equivalent interface feeding the
// vertex-input side of the unified front end (spec §2 dataflow: "StreamerLoader
// -> ShaderFrontEnd(vertex input)").
type VertexSource interface {
	NextVertex(cycle uint64) (*shader.ShaderInput, []*shader.DecodedInstr, int, bool)
}

// FragmentSink is the downstream consumer of the core's fragment/vertex
// output stream (spec §6, "To downstream consumer (output)"): framebuffer
// color-writing and Z-compare hardware are explicitly out of scope (spec
// §1), so the core only ever hands a Fragment (with its owning
// SetupTriangle reference still attached) to this interface.
type FragmentSink interface {
	AcceptFragment(frag raster.Fragment)
}

// VertexSink receives one ShaderInput result per shaded vertex (spec §6).
type VertexSink interface {
	AcceptVertex(out shader.Output)
}

// Sampler resolves a texture fetch for the shader front end; re-exported
// here so callers configuring a Core don't need to import the shader
// package directly just to supply one.
type Sampler = shader.Sampler
