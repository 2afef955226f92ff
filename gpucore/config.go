// Package gpucore wires the Clipper, SetupTriangle arena, Rasterizer and
// unified ShaderFrontEnd into the single discrete-event core spec §2
// describes: Clipper -> Rasterizer(setup -> scan -> stamp -> fragment) ->
// ShaderFrontEnd(fragment input) -> ShaderEmulator -> out, with a second,
// concurrently-fed path for vertex ShaderInputs driven by a
// PrimitiveAssembly-adjacent vertex source into the same unified front end
// (spec §2 dataflow).
//
// Every dependency this package needs from an external system (the
// triangle/vertex source, the fragment/vertex-output consumer, texture
// sampling) is a narrow Go interface, the way gviegas-neo3's gpu/scene
// packages wrap a native graphics API behind a small consumer-defined
// interface rather than a concrete struct (see DESIGN.md).
package gpucore

import (
	"github.com/oxcore/rastercore/clipper"
	"github.com/oxcore/rastercore/gpumath"
	"github.com/oxcore/rastercore/raster"
	"github.com/oxcore/rastercore/setup"
	"github.com/oxcore/rastercore/shader"
)

// Config is the core's full configuration-time option set (spec §6, "CLI /
// Config"): the union of the clipper/setup/rasterizer/shader option sets,
// plus the arena capacity and viewport/scissor geometry shared across all of
// them.
type Config struct {
	ViewportW, ViewportH int32
	ScissorX0, ScissorY0 int32
	ScissorX1, ScissorY1 int32

	MaxActiveTriangles int

	D3D9PixelConvention bool
	D3D9DepthRange      bool
	D3D9RasterRules     bool
	FrontFace           gpumath.FaceMode
	SubpixelBits        uint32

	Raster raster.Config
	Shader shader.Config

	// Parallel enables per-component cycle-local goroutines behind a cycle
	// barrier for Clock (spec §5: "implementation freedom... per-component
	// cycle-local parallelism with a cycle barrier"), supervised by
	// golang.org/x/sync/errgroup.
	Parallel bool
}

// DefaultConfig returns a Config matching spec §6's example configuration:
// OpenGL pixel/depth/raster conventions, CCW front face, 24-bit depth,
// single-sample, hierarchical rasterization.
func DefaultConfig() Config {
	return Config{
		ViewportW:          640,
		ViewportH:          480,
		ScissorX1:          640,
		ScissorY1:          480,
		MaxActiveTriangles: 64,
		SubpixelBits:       4,
		FrontFace:          gpumath.FaceCCW,
		Raster:             raster.DefaultConfig(),
		Shader: shader.Config{
			ThreadCount:    64,
			BufferCount:    16,
			ResourceUnits:  256,
			WavefrontWidth: 4,
			Scheduling:     shader.SchedLockStep,
			TextureUnits:   8,
			MSAASamples:    1,
		},
	}
}

func (c Config) clipperDepth() clipper.DepthConvention {
	if c.D3D9DepthRange {
		return clipper.DepthZeroOne
	}
	return clipper.DepthNegOneOne
}

func (c Config) setupConfig() setup.Config {
	return setup.Config{
		D3D9PixelConvention: c.D3D9PixelConvention,
		D3D9RasterRules:     c.D3D9RasterRules,
		FrontFace:           c.FrontFace,
		ScissorX0:           c.ScissorX0,
		ScissorY0:           c.ScissorY0,
		ScissorX1:           c.ScissorX1,
		ScissorY1:           c.ScissorY1,
		SubpixelBits:        c.SubpixelBits,
	}
}
