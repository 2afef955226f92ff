package shader

// InputMode is the ShaderInput payload kind (spec §3).
type InputMode int

const (
	ModeVertex InputMode = iota
	ModeFragment
	ModeTriangle
	ModeMicroTriFragment
)

// ShaderInput is one unit of work handed to the front end (spec §3).
type ShaderInput struct {
	ID          uint64
	Unit        int
	Entry       int
	Attributes  [][4]float32
	Mode        InputMode
	Kill        bool
	LastInBatch bool

	// Timing counters (spec §8: "shading latency ... difference between the
	// cycle its ShaderInput was loaded and the cycle its output was
	// committed").
	LoadedCycle    uint64
	CommittedCycle uint64
}

// Latency reports the shading latency recorded for a committed input.
func (s *ShaderInput) Latency() uint64 {
	if s.CommittedCycle < s.LoadedCycle {
		return 0
	}
	return s.CommittedCycle - s.LoadedCycle
}

// Output is the committed result of one ShaderInput's execution: its final
// OUT-bank register contents plus per-sample kill/Z-export state.
type Output struct {
	Input   *ShaderInput
	Out     [][4]float32
	Kill    []bool
	ZExport []float32
}
