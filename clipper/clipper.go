// Package clipper implements the trivial triangle rejection stage (spec
// §4.1): a triangle is dropped only when all three vertices fail the same
// frustum half-space test, never partially clipped. Non-trivial clipping is
// explicitly out of scope; the downstream scissor bounding box in the setup
// package absorbs any in-frustum excess.
package clipper

import (
	"fmt"

	"github.com/oxcore/rastercore/gpumath"
)

// State is the clipper's command state machine (spec §4.10).
type State int

const (
	StateReset State = iota
	StateReady
	StateDraw
	StateEnd
)

// DepthConvention selects which half-space test bounds Z.
type DepthConvention int

const (
	// DepthZeroOne bounds z in [0, w] (D3D9 depth range).
	DepthZeroOne DepthConvention = iota
	// DepthNegOneOne bounds z in [-w, w] (OpenGL depth range).
	DepthNegOneOne
)

// Clipper holds the small amount of configuration the frustum test needs and
// tracks the RESET -> READY -> DRAW -> END -> READY command state machine.
type Clipper struct {
	state State
	depth DepthConvention
}

// New returns a Clipper in the RESET state.
func New(depth DepthConvention) *Clipper {
	return &Clipper{state: StateReset, depth: depth}
}

// State reports the current command state.
func (c *Clipper) State() State { return c.state }

// Reset transitions the clipper back to READY, as on a RESET command.
func (c *Clipper) Reset() { c.state = StateReady }

// BeginDraw transitions READY -> DRAW; it is an invariant violation to begin
// drawing from any other state.
func (c *Clipper) BeginDraw() error {
	if c.state != StateReady {
		return fmt.Errorf("clipper: invariant violation: BeginDraw from state %v, want READY", c.state)
	}
	c.state = StateDraw
	return nil
}

// End transitions DRAW -> END -> READY, matching spec §4.10.
func (c *Clipper) End() error {
	if c.state != StateDraw {
		return fmt.Errorf("clipper: invariant violation: End from state %v, want DRAW", c.state)
	}
	c.state = StateEnd
	c.state = StateReady
	return nil
}

// Accept runs the trivial frustum reject test (spec §4.1) against the three
// homogeneous vertex positions and reports whether the triangle survives
// (true) or should be dropped (false). Rejection is a normal outcome, not an
// error (spec §4.1, "Failure semantics: none").
func (c *Clipper) Accept(v1, v2, v3 gpumath.Vec4) bool {
	for _, test := range c.halfSpaceTests() {
		if test(v1) && test(v2) && test(v3) {
			return false
		}
	}
	return true
}

func (c *Clipper) halfSpaceTests() []func(gpumath.Vec4) bool {
	tests := []func(gpumath.Vec4) bool{
		func(v gpumath.Vec4) bool { return v[0] < -v[3] },
		func(v gpumath.Vec4) bool { return v[0] > v[3] },
		func(v gpumath.Vec4) bool { return v[1] < -v[3] },
		func(v gpumath.Vec4) bool { return v[1] > v[3] },
		func(v gpumath.Vec4) bool { return v[2] > v[3] },
	}
	switch c.depth {
	case DepthZeroOne:
		tests = append(tests, func(v gpumath.Vec4) bool { return v[2] < 0 })
	case DepthNegOneOne:
		tests = append(tests, func(v gpumath.Vec4) bool { return v[2] < -v[3] })
	}
	return tests
}
