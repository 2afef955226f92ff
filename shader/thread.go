package shader

// ThreadState is the shader thread state machine (spec §4.10): FREE ->
// FILLED(input present) -> READY -> EXECUTING -> (BLOCKED <-> READY)* -> END
// -> DRAINING -> FREE.
type ThreadState int

const (
	ThreadFree ThreadState = iota
	ThreadFilled
	ThreadReady
	ThreadExecuting
	ThreadBlocked
	ThreadEnd
	ThreadDraining
)

// BlockReason names why a thread is BLOCKED (spec §4.8).
type BlockReason int

const (
	BlockNone BlockReason = iota
	BlockTexture
	BlockDerivation
	BlockOutputFull
)

// thread is one shader thread slot (spec §3 "ThreadEntry").
type thread struct {
	state            ThreadState
	blockReason      BlockReason
	input            *ShaderInput
	ctx              *ExecContext
	pc               int
	instructionCount int
	nextFetchCycle   uint64
	repeat           bool
	zExported        bool
	tempUnits        int
}

// gradX computes the dFdx output for all four lanes of a 2x2 quad: lanes are
// ordered (0,0),(1,0),(0,1),(1,1) as in the rasterizer's stamp order, so
// dFdx = lane1 - lane0 for the top row and lane3 - lane2 for the bottom row.
func gradX(inputs [4][4]float32) [4][4]float32 {
	var out [4][4]float32
	for c := 0; c < 4; c++ {
		dTop := inputs[1][c] - inputs[0][c]
		dBot := inputs[3][c] - inputs[2][c]
		out[0][c], out[1][c] = dTop, dTop
		out[2][c], out[3][c] = dBot, dBot
	}
	return out
}

// gradY computes the dFdy output analogously across the quad's two columns.
func gradY(inputs [4][4]float32) [4][4]float32 {
	var out [4][4]float32
	for c := 0; c < 4; c++ {
		dLeft := inputs[2][c] - inputs[0][c]
		dRight := inputs[3][c] - inputs[1][c]
		out[0][c], out[2][c] = dLeft, dLeft
		out[1][c], out[3][c] = dRight, dRight
	}
	return out
}
