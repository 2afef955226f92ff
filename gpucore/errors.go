package gpucore

import "fmt"

// FatalError is the single-diagnostic-line invariant-violation report spec
// §7 requires: "a single diagnostic line naming the component, cycle (if
// relevant), and the violated invariant." It wraps the underlying error with
// %w so callers can still errors.Is/errors.As through to it, matching the
// teacher's own fmt.Errorf-based wrapping (no third-party error-annotation
// library appears anywhere in the retrieved pack; see DESIGN.md).
type FatalError struct {
	Component string
	Cycle     uint64
	HasCycle  bool
	Err       error
}

func (e *FatalError) Error() string {
	if e.HasCycle {
		return fmt.Sprintf("%s: cycle %d: invariant violation: %v", e.Component, e.Cycle, e.Err)
	}
	return fmt.Sprintf("%s: invariant violation: %v", e.Component, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal builds a FatalError with no cycle context, for construction-time
// invariant violations (spec §7: "Illegal configuration ... fatal at
// construction").
func Fatal(component string, err error) error {
	return &FatalError{Component: component, Err: err}
}

// FatalAt builds a FatalError tagged with the cycle the violation occurred
// on, for runtime invariant violations.
func FatalAt(component string, cycle uint64, err error) error {
	return &FatalError{Component: component, Cycle: cycle, HasCycle: true, Err: err}
}

// IllegalConfig reports whether cfg is internally consistent enough to build
// a Core from (spec §7: "Illegal configuration (e.g. indicesCycle !=
// loaderUnits*slIndicesCycle): fatal at construction"). It returns a
// FatalError describing the first inconsistency found, or nil.
func (c Config) IllegalConfig() error {
	if c.ViewportW <= 0 || c.ViewportH <= 0 {
		return Fatal("gpucore", fmt.Errorf("viewport dimensions must be positive, got %dx%d", c.ViewportW, c.ViewportH))
	}
	if c.MaxActiveTriangles <= 0 {
		return Fatal("gpucore", fmt.Errorf("max active triangles must be positive, got %d", c.MaxActiveTriangles))
	}
	if c.Shader.TextureUnits > 0 && c.Shader.WavefrontWidth > 4 {
		// A wavefront larger than the fixed derivation-quad size (spec §6:
		// "derivation quad size (fixed 4)") can never satisfy a DDX/DDY
		// stall: no combination of lanes forms a valid 2x2 quad.
		return Fatal("gpucore", fmt.Errorf("wavefront width %d exceeds the fixed derivation quad size of 4", c.Shader.WavefrontWidth))
	}
	return nil
}
