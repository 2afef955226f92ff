package gpucore

import (
	"github.com/oxcore/rastercore/gpumath"
	"github.com/oxcore/rastercore/raster"
	"github.com/oxcore/rastercore/shader"
)

// Option mutates a Config at construction time, the functional-options idiom
// SPEC_FULL.md's ambient stack section grounds on the teacher's own
// constructor style (NewVoodooEngine, NewCoprocessorManager take constructor
// args rather than a parsed-flags struct).
type Option func(*Config)

// WithViewport sets the viewport dimensions and resets the scissor rectangle
// to cover the whole viewport.
func WithViewport(w, h int32) Option {
	return func(c *Config) {
		c.ViewportW, c.ViewportH = w, h
		c.ScissorX0, c.ScissorY0, c.ScissorX1, c.ScissorY1 = 0, 0, w, h
	}
}

// WithScissor overrides the scissor rectangle independently of the viewport.
func WithScissor(x0, y0, x1, y1 int32) Option {
	return func(c *Config) {
		c.ScissorX0, c.ScissorY0, c.ScissorX1, c.ScissorY1 = x0, y0, x1, y1
	}
}

// WithScanTile sets the rasterizer's scan-tile dimensions.
func WithScanTile(w, h int32) Option {
	return func(c *Config) { c.Raster.ScanTileWidth, c.Raster.ScanTileHeight = w, h }
}

// WithOverTile sets the rasterizer's over-tile dimensions.
func WithOverTile(w, h int32) Option {
	return func(c *Config) { c.Raster.OverTileWidth, c.Raster.OverTileHeight = w, h }
}

// WithGenTile sets the rasterizer's gen-tile dimensions.
func WithGenTile(w, h int32) Option {
	return func(c *Config) { c.Raster.GenTileWidth, c.Raster.GenTileHeight = w, h }
}

// WithMSAASamples sets the MSAA sample count for both the rasterizer and the
// shader front end, which must agree (spec §6).
func WithMSAASamples(n int) Option {
	return func(c *Config) {
		c.Raster.MSAASamples = n
		c.Shader.MSAASamples = n
	}
}

// WithDepthBits sets the converted-depth integer precision.
func WithDepthBits(bits uint32) Option {
	return func(c *Config) { c.Raster.DepthBits = bits }
}

// WithRasterMode selects tiled-scanline or hierarchical rasterization (spec
// §9 Open Question: default is hierarchical, both selectable).
func WithRasterMode(m raster.Mode) Option {
	return func(c *Config) { c.Raster.Mode = m }
}

// WithD3D9PixelConvention toggles the D3D9 y-flip pixel convention.
func WithD3D9PixelConvention(on bool) Option {
	return func(c *Config) { c.D3D9PixelConvention = on }
}

// WithD3D9DepthRange toggles between the D3D9 [0,1] and OpenGL [-1,1] depth
// ranges, keeping the clipper and rasterizer's conventions in lockstep.
func WithD3D9DepthRange(on bool) Option {
	return func(c *Config) {
		c.D3D9DepthRange = on
		if on {
			c.Raster.DepthConvention = raster.DepthD3D9
		} else {
			c.Raster.DepthConvention = raster.DepthOpenGL
		}
	}
}

// WithD3D9RasterizationRules toggles the half-pixel sample-center shift.
func WithD3D9RasterizationRules(on bool) Option {
	return func(c *Config) { c.D3D9RasterRules = on }
}

// WithFrontFace selects which winding is front-facing.
func WithFrontFace(mode gpumath.FaceMode) Option {
	return func(c *Config) { c.FrontFace = mode }
}

// WithMaxActiveTriangles sets the setup arena's capacity.
func WithMaxActiveTriangles(n int) Option {
	return func(c *Config) { c.MaxActiveTriangles = n }
}

// WithSubpixelBits sets the subpixel fixed-point precision used for
// bounding-box computation.
func WithSubpixelBits(bits uint32) Option {
	return func(c *Config) { c.SubpixelBits = bits }
}

// WithThreadCount sets the shader front end's thread table size.
func WithThreadCount(n int) Option {
	return func(c *Config) { c.Shader.ThreadCount = n }
}

// WithWavefrontWidth sets the lock-step wavefront width.
func WithWavefrontWidth(n int) Option {
	return func(c *Config) { c.Shader.WavefrontWidth = n }
}

// WithScheduling selects the front end's fetch discipline.
func WithScheduling(mode shader.SchedulingMode) Option {
	return func(c *Config) { c.Shader.Scheduling = mode }
}

// WithInputBuffers sets the shader front end's input-buffer count (spec §4.8's
// B).
func WithInputBuffers(n int) Option {
	return func(c *Config) { c.Shader.BufferCount = n }
}

// WithResourceUnits sets the shader front end's resource-unit pool (spec
// §4.8's R).
func WithResourceUnits(n int) Option {
	return func(c *Config) { c.Shader.ResourceUnits = n }
}

// WithLockStep selects wavefront lock-step fetch.
func WithLockStep() Option {
	return func(c *Config) { c.Shader.Scheduling = shader.SchedLockStep }
}

// WithThreadWindow selects thread-window fetch with the given window size.
func WithThreadWindow(windowSize int) Option {
	return func(c *Config) {
		c.Shader.Scheduling = shader.SchedThreadWindow
		c.Shader.WindowSize = windowSize
	}
}

// WithSwapOnBlock selects swap-on-block fetch.
func WithSwapOnBlock() Option {
	return func(c *Config) { c.Shader.Scheduling = shader.SchedSwapOnBlock }
}

// WithScalarCoIssue toggles the SIMD+scalar dual fetch slot under lock-step.
func WithScalarCoIssue(on bool) Option {
	return func(c *Config) { c.Shader.ScalarCoIssue = on }
}

// WithFetchDelay sets the cycles a thread stays unfetchable after an issue
// under thread-window scheduling.
func WithFetchDelay(cycles uint64) Option {
	return func(c *Config) { c.Shader.FetchDelayCycles = cycles }
}

// WithTextureLatency sets the modeled memory round-trip latency for texture
// accesses.
func WithTextureLatency(cycles uint64) Option {
	return func(c *Config) { c.Shader.TextureLatency = cycles }
}

// WithTextureUnits sets the shader front end's texture queue capacity.
func WithTextureUnits(n int) Option {
	return func(c *Config) { c.Shader.TextureUnits = n }
}

// WithInstructionCache selects whether program construction should memoize
// decoded instructions via a shared shader.DecodeCache (spec §6's
// instruction-cache configuration option).
func WithInstructionCache(on bool) Option {
	return func(c *Config) { c.Shader.InstructionCache = on }
}

// WithParallel enables per-component cycle-local parallelism for Clock (spec
// §5's documented implementation freedom), backed by golang.org/x/sync/errgroup.
func WithParallel(on bool) Option {
	return func(c *Config) { c.Parallel = on }
}

// Apply folds a list of Options onto base and returns the result.
func Apply(base Config, opts ...Option) Config {
	for _, opt := range opts {
		opt(&base)
	}
	return base
}
