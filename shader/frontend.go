package shader

import (
	"fmt"

	"golang.org/x/sync/semaphore"
)

// SchedulingMode selects one of the three fetch disciplines from spec §4.8.
type SchedulingMode int

const (
	SchedLockStep SchedulingMode = iota
	SchedThreadWindow
	SchedSwapOnBlock
)

// Sampler resolves a texture fetch; it stands in for the out-of-scope
// texture unit hardware (spec §1: the real texture/memory backend is an
// external collaborator reached through the bus).
type Sampler func(sampler int, coords [4]float32) [4]float32

// Config is the front end's configuration-time option set (spec §6, shader
// subset).
type Config struct {
	ThreadCount      int
	BufferCount      int
	ResourceUnits    int
	WavefrontWidth   int
	Scheduling       SchedulingMode
	ScalarCoIssue    bool
	WindowSize       int
	FetchDelayCycles uint64
	TextureUnits     int
	MSAASamples      int

	// TextureLatency is the cycle count between a texture access becoming
	// complete (all stamp fragments posted) and its results arriving from
	// the sampler, modeling the memory round trip the real texture unit
	// performs. Zero selects the one-cycle minimum.
	TextureLatency uint64

	// OutputCapacity bounds the downstream output channel: threads reaching
	// END block (spec §4.8: "the output channel is full") until the consumer
	// drains committed outputs via DrainOutput. Zero means unbounded.
	OutputCapacity int

	// InstructionCache selects whether callers building a program with
	// DecodeProgram should pass a shared DecodeCache (on) or nil (off); the
	// front end itself is agnostic to which, since it only ever consumes an
	// already-decoded []*DecodedInstr.
	InstructionCache bool
}

// texAccess is one texture access in flight to memory: the queue entry, the
// issuing instruction, the owning thread per stamp slot, and the cycle the
// results arrive.
type texAccess struct {
	entry      *TextureQueueEntry
	instr      *DecodedInstr
	lanes      [4]int // thread id per stamp slot; -1 for replicated slots
	readyCycle uint64
}

// quadGather collects the four lanes of a 2x2 derivation quad across fetch
// cycles, keyed by the quad's base thread (thread &^ 3). Spec §4.9: "on
// receiving the fourth, the four output vectors are computed ... and written
// back in one shot".
type quadGather struct {
	instr  *DecodedInstr
	posted [4]bool
	inputs [4][4]float32
}

func (q *quadGather) complete() bool {
	return q.posted[0] && q.posted[1] && q.posted[2] && q.posted[3]
}

// ShaderFrontEnd is the thread table and fetch scheduler (spec §2, §4.8).
//
// Input buffers and per-thread resource units (spec §4.8: "a new ShaderInput
// consumes one free thread slot, a share of R proportional to the program's
// declared TEMP usage, and one of the B buffers") are tracked with
// golang.org/x/sync/semaphore.Weighted rather than a bare counter: TryAcquire
// gives the same non-blocking capacity back-pressure check spec §7 requires
// ("capacity back-pressure ... the producer stalls; no exceptions or
// surfaced errors") while the weighted semaphore also supports a context-
// blocking Acquire for callers that want to wait on a resource-unit share
// becoming free instead of polling.
type ShaderFrontEnd struct {
	cfg      Config
	threads  []thread
	programs [][]*DecodedInstr

	buffers   *semaphore.Weighted
	resources *semaphore.Weighted
	param     *ParamBank
	textures  *TextureQueue
	sampler   Sampler

	inflight []*texAccess
	quads    map[int]*quadGather

	// texGather collects a fragment stamp's texture posts across fetch
	// cycles when the quad's threads are not issued together (thread-window
	// and swap-on-block modes), keyed by the quad base thread.
	texGather map[int]*texAccess

	pendingOut  int // committed outputs not yet drained downstream
	windowStart int // rotating scan origin for thread-window fetch
	current     int // active thread for swap-on-block fetch
	cycle       uint64
}

// NewFrontEnd validates cfg and returns a ShaderFrontEnd with every thread
// FREE. An illegal configuration (e.g. a wavefront width that doesn't divide
// the thread count under lock-step scheduling) is fatal at construction
// (spec §7).
func NewFrontEnd(cfg Config, param *ParamBank, sampler Sampler) (*ShaderFrontEnd, error) {
	if cfg.ThreadCount <= 0 {
		return nil, fmt.Errorf("shader: illegal configuration: thread count must be > 0")
	}
	if cfg.Scheduling == SchedLockStep {
		if cfg.WavefrontWidth <= 0 || cfg.ThreadCount%cfg.WavefrontWidth != 0 {
			return nil, fmt.Errorf("shader: illegal configuration: thread count %d not a multiple of wavefront width %d", cfg.ThreadCount, cfg.WavefrontWidth)
		}
	}
	if cfg.Scheduling == SchedThreadWindow && cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("shader: illegal configuration: thread-window scheduling needs a positive window size")
	}
	if cfg.TextureLatency == 0 {
		cfg.TextureLatency = 1
	}
	return &ShaderFrontEnd{
		cfg:       cfg,
		threads:   make([]thread, cfg.ThreadCount),
		programs:  make([][]*DecodedInstr, cfg.ThreadCount),
		buffers:   semaphore.NewWeighted(int64(cfg.BufferCount)),
		resources: semaphore.NewWeighted(int64(cfg.ResourceUnits)),
		param:     param,
		textures:  NewTextureQueue(cfg.TextureUnits),
		sampler:   sampler,
		quads:     make(map[int]*quadGather),
		texGather: make(map[int]*texAccess),
	}, nil
}

// FreeThreadCount reports how many thread slots are FREE.
func (f *ShaderFrontEnd) FreeThreadCount() int {
	n := 0
	for i := range f.threads {
		if f.threads[i].state == ThreadFree {
			n++
		}
	}
	return n
}

// TextureQueueFree reports the texture queue's free-slot count, for the
// back-pressure checks spec §5 names ("guarded by free/wait counts").
func (f *ShaderFrontEnd) TextureQueueFree() int { return f.textures.FreeCount() }

// LoadInput claims a free thread for input, consuming one of the B input
// buffers and tempCount resource units (spec §4.8: "a share of R
// proportional to the program's declared TEMP usage"). It returns a
// capacity back-pressure error (non-fatal, spec §7) if no thread, buffer or
// resource unit is available.
func (f *ShaderFrontEnd) LoadInput(cycle uint64, input *ShaderInput, program []*DecodedInstr, tempCount int) (int, error) {
	if !f.buffers.TryAcquire(1) {
		return -1, fmt.Errorf("shader: capacity back-pressure: no free input buffer")
	}
	if !f.resources.TryAcquire(int64(tempCount)) {
		f.buffers.Release(1)
		return -1, fmt.Errorf("shader: capacity back-pressure: insufficient resource units")
	}
	idx := -1
	for i := range f.threads {
		if f.threads[i].state == ThreadFree {
			idx = i
			break
		}
	}
	if idx == -1 {
		f.resources.Release(int64(tempCount))
		f.buffers.Release(1)
		return -1, fmt.Errorf("shader: capacity back-pressure: no free thread")
	}

	regCount := len(input.Attributes)
	if regCount == 0 {
		regCount = 1
	}
	tempRegs := tempCount
	if tempRegs == 0 {
		tempRegs = 1
	}
	samples := f.cfg.MSAASamples
	if samples <= 0 {
		samples = 1
	}
	regs := NewRegisterFile(regCount, regCount, tempRegs, 4, 4)
	for i, a := range input.Attributes {
		if i < len(regs.In) {
			regs.In[i] = a
		}
	}

	input.LoadedCycle = cycle
	f.threads[idx] = thread{
		state: ThreadReady,
		input: input,
		ctx: &ExecContext{
			Regs:      regs,
			Param:     f.param,
			ParamPart: ParamPrimary,
			Kill:      make([]bool, samples),
			ZExport:   make([]float32, samples),
			Textures:  f.textures,
			ThreadID:  idx,
		},
		tempUnits: tempCount,
	}
	f.programs[idx] = program
	return idx, nil
}

// DrainOutput tells the front end the downstream consumer accepted n
// committed outputs, freeing output-channel slots and letting threads
// blocked at END retry (spec §4.8 unblock: "output drain frees a slot").
func (f *ShaderFrontEnd) DrainOutput(n int) {
	f.pendingOut -= n
	if f.pendingOut < 0 {
		f.pendingOut = 0
	}
}

func (f *ShaderFrontEnd) outputSpace() int {
	if f.cfg.OutputCapacity <= 0 {
		return len(f.threads) + 1
	}
	return f.cfg.OutputCapacity - f.pendingOut
}

// Step advances the scheduler by one cycle: texture accesses whose memory
// round trip completed this cycle deliver their results and unblock their
// threads, then the configured fetch discipline issues instructions. It
// returns the outputs of any threads that reached END and committed this
// cycle.
func (f *ShaderFrontEnd) Step(cycle uint64) []Output {
	f.cycle = cycle
	f.completeTextures(cycle)

	switch f.cfg.Scheduling {
	case SchedLockStep:
		return f.stepLockStep(cycle)
	case SchedThreadWindow:
		return f.stepThreadWindow(cycle)
	default:
		return f.stepSwapOnBlock(cycle)
	}
}

// completeTextures delivers every in-flight texture access whose readyCycle
// has arrived: all four result registers are written (only the first for a
// vertex-texture access), the posting threads unblock, and their PCs advance
// past the texture instruction (spec §4.9, §4.8 "Unblock: texture sample
// returns for all stamp fragments").
func (f *ShaderFrontEnd) completeTextures(cycle uint64) {
	remaining := f.inflight[:0]
	for _, acc := range f.inflight {
		if acc.readyCycle > cycle {
			remaining = append(remaining, acc)
			continue
		}
		var results [4][4]float32
		if f.sampler != nil {
			for i := range results {
				results[i] = f.sampler(acc.entry.Sampler, acc.entry.Coords[i])
			}
		}
		_ = f.textures.Complete(acc.entry, results)

		for slot, tid := range acc.lanes {
			if tid < 0 {
				continue
			}
			t := &f.threads[tid]
			t.ctx.writeResult(acc.instr.Result, results[slot])
			if t.state == ThreadBlocked && t.blockReason == BlockTexture {
				t.state = ThreadReady
				t.blockReason = BlockNone
			}
			t.pc++
			t.instructionCount++
			if acc.entry.VertexTextureAccess {
				break
			}
		}
	}
	f.inflight = remaining
}

// --- lock-step -------------------------------------------------------------

func (f *ShaderFrontEnd) stepLockStep(cycle uint64) []Output {
	var outs []Output
	w := f.cfg.WavefrontWidth
	for base := 0; base < len(f.threads); base += w {
		lanes := make([]int, 0, w)
		for i := 0; i < w; i++ {
			lanes = append(lanes, base+i)
		}
		if f.wavefrontAtEnd(lanes) {
			if f.outputSpace() >= blockedOnOutput(f.threads, lanes) {
				outs = append(outs, f.commitWavefront(lanes, cycle)...)
			}
			continue
		}
		if !f.wavefrontReady(lanes) {
			continue
		}
		program := f.programs[lanes[0]]
		pc := f.threads[lanes[0]].pc
		if pc >= len(program) {
			continue
		}
		instr := program[pc]

		issued, committed := f.issueWavefront(lanes, instr, cycle)
		outs = append(outs, committed...)

		// Scalar co-issue: a SIMD slot and a scalar slot fetched together
		// (spec §4.8: "one SIMD + one scalar, when scalar co-issue is
		// enabled").
		if issued && f.cfg.ScalarCoIssue && !isScalarOp(instr.Op) && f.wavefrontReady(lanes) {
			npc := f.threads[lanes[0]].pc
			if npc < len(program) && isScalarOp(program[npc].Op) {
				_, co := f.issueWavefront(lanes, program[npc], cycle)
				outs = append(outs, co...)
			}
		}
	}
	return outs
}

// wavefrontReady reports whether every lane is runnable at a shared PC —
// spec §8's lock-step invariant ("at any cycle all lanes share the same
// PC") holds by construction because advancement is per-wavefront.
func (f *ShaderFrontEnd) wavefrontReady(lanes []int) bool {
	for _, li := range lanes {
		st := f.threads[li].state
		if st != ThreadReady && st != ThreadExecuting {
			return false
		}
	}
	first := f.threads[lanes[0]].pc
	for _, li := range lanes[1:] {
		if f.threads[li].pc != first {
			return false
		}
	}
	return true
}

// wavefrontAtEnd reports whether the wavefront sits at END waiting on output
// space (every lane either ended this wavefront's program or is blocked on
// the full output channel).
func (f *ShaderFrontEnd) wavefrontAtEnd(lanes []int) bool {
	any := false
	for _, li := range lanes {
		t := &f.threads[li]
		if t.state == ThreadBlocked && t.blockReason == BlockOutputFull {
			any = true
			continue
		}
		if t.state != ThreadFree {
			return false
		}
	}
	return any
}

// issueWavefront executes instr for every lane, handling the wavefront-wide
// opcodes (JMP, END, TEX family, DDX/DDY) specially. It reports whether the
// wavefront advanced (false when it blocked) and returns any outputs
// committed by an END.
func (f *ShaderFrontEnd) issueWavefront(lanes []int, instr *DecodedInstr, cycle uint64) (bool, []Output) {
	switch {
	case instr.Op == OpEND:
		if f.outputSpace() < len(lanes) {
			for _, li := range lanes {
				f.threads[li].state = ThreadBlocked
				f.threads[li].blockReason = BlockOutputFull
			}
			return false, nil
		}
		return true, f.commitWavefront(lanes, cycle)

	case instr.Op == OpJMP:
		// The condition is AND-reduced across every lane of the wavefront
		// (spec §4.9: "JMP fires per wavefront").
		all := true
		for _, li := range lanes {
			p := f.threads[li].ctx.Regs.Pred[instr.Result.PredReg]
			if instr.Result.InvertPredicate {
				p = !p
			}
			if !p {
				all = false
			}
		}
		for _, li := range lanes {
			t := &f.threads[li]
			if all {
				t.pc += instr.JumpOffset
			} else {
				t.pc++
			}
			t.instructionCount++
		}
		return true, nil

	case instr.Op.IsTextureOp():
		f.issueTexture(lanes, instr, cycle)
		return false, nil

	case instr.Op.IsDerivationOp():
		advanced := true
		for _, li := range lanes {
			if !f.postDerivation(li, instr) {
				advanced = false
			}
		}
		return advanced, nil

	default:
		for _, li := range lanes {
			t := &f.threads[li]
			t.ctx.run(instr)
			t.pc++
			t.instructionCount++
		}
		return true, nil
	}
}

func (f *ShaderFrontEnd) commitWavefront(lanes []int, cycle uint64) []Output {
	var outs []Output
	for _, li := range lanes {
		t := &f.threads[li]
		if t.state == ThreadFree {
			continue
		}
		outs = append(outs, f.commit(li, cycle))
	}
	return outs
}

func blockedOnOutput(threads []thread, lanes []int) int {
	n := 0
	for _, li := range lanes {
		if threads[li].state == ThreadBlocked && threads[li].blockReason == BlockOutputFull {
			n++
		}
	}
	return n
}

// isScalarOp reports whether op occupies the scalar issue slot: the
// transcendental and address-load family, which reduce to one lane value.
func isScalarOp(op Opcode) bool {
	switch op {
	case OpRCP, OpRSQ, OpEX2, OpLG2, OpEXP, OpLOG, OpSIN, OpCOS, OpARL:
		return true
	default:
		return false
	}
}

// --- texture issue ---------------------------------------------------------

// issueTexture posts the lanes' texture operands to the shared queue. A
// fragment stamp's four lanes share one entry; a vertex input gets its own
// entry with the first element replicated (spec §4.9). The posting threads
// block until the access's memory round trip delivers results.
func (f *ShaderFrontEnd) issueTexture(lanes []int, instr *DecodedInstr, cycle uint64) {
	vertex := f.threads[lanes[0]].input != nil && f.threads[lanes[0]].input.Mode == ModeVertex

	if vertex {
		// One access per lane, replicated. The whole wavefront needs a slot
		// each or none posts: a partial post would leave the lanes' PCs
		// permanently diverged under lock-step.
		if f.textures.FreeCount() < len(lanes) {
			return
		}
		for _, li := range lanes {
			t := &f.threads[li]
			coords := t.ctx.readOperand(instr.Src1)
			params := t.ctx.readOperand(instr.Src2)
			entry, err := f.textures.Post(nil, 0, instr, instr.Src3.Index, instr.Op, coords, params, true)
			if err != nil {
				// Queue full: the thread stays READY at the texture
				// instruction and retries on a later cycle (spec §7,
				// capacity back-pressure).
				continue
			}
			t.state = ThreadBlocked
			t.blockReason = BlockTexture
			f.inflight = append(f.inflight, &texAccess{
				entry:      entry,
				instr:      instr,
				lanes:      [4]int{li, -1, -1, -1},
				readyCycle: cycle + f.cfg.TextureLatency,
			})
		}
		return
	}

	var entry *TextureQueueEntry
	acc := &texAccess{instr: instr, lanes: [4]int{-1, -1, -1, -1}}
	for slot, li := range lanes {
		t := &f.threads[li]
		coords := t.ctx.readOperand(instr.Src1)
		params := t.ctx.readOperand(instr.Src2)
		e, err := f.textures.Post(entry, slot, instr, instr.Src3.Index, instr.Op, coords, params, false)
		if err != nil {
			return // queue full; whole wavefront retries
		}
		entry = e
		acc.lanes[slot] = li
		t.state = ThreadBlocked
		t.blockReason = BlockTexture
	}
	if entry == nil || !entry.Ready() {
		return
	}
	acc.entry = entry
	acc.readyCycle = cycle + f.cfg.TextureLatency
	f.inflight = append(f.inflight, acc)
}

// issueTextureSingle posts one thread's texture operand outside lock-step:
// a vertex input gets its own replicated access immediately, while a
// fragment joins its 2x2 quad's shared entry (base thread = tid &^ 3),
// which goes to memory once the fourth quad thread has posted.
func (f *ShaderFrontEnd) issueTextureSingle(tid int, instr *DecodedInstr, cycle uint64) {
	t := &f.threads[tid]
	if t.input != nil && t.input.Mode == ModeVertex {
		coords := t.ctx.readOperand(instr.Src1)
		params := t.ctx.readOperand(instr.Src2)
		entry, err := f.textures.Post(nil, 0, instr, instr.Src3.Index, instr.Op, coords, params, true)
		if err != nil {
			return // queue full; retries on a later fetch
		}
		t.state = ThreadBlocked
		t.blockReason = BlockTexture
		f.inflight = append(f.inflight, &texAccess{
			entry:      entry,
			instr:      instr,
			lanes:      [4]int{tid, -1, -1, -1},
			readyCycle: cycle + f.cfg.TextureLatency,
		})
		return
	}

	base := tid &^ 3
	acc, ok := f.texGather[base]
	if !ok {
		acc = &texAccess{instr: instr, lanes: [4]int{-1, -1, -1, -1}}
		f.texGather[base] = acc
	}
	slot := tid & 3
	coords := t.ctx.readOperand(instr.Src1)
	params := t.ctx.readOperand(instr.Src2)
	e, err := f.textures.Post(acc.entry, slot, instr, instr.Src3.Index, instr.Op, coords, params, false)
	if err != nil {
		return // queue full; thread stays ready and retries
	}
	acc.entry = e
	acc.lanes[slot] = tid
	t.state = ThreadBlocked
	t.blockReason = BlockTexture

	if acc.entry.Ready() {
		acc.readyCycle = cycle + f.cfg.TextureLatency
		f.inflight = append(f.inflight, acc)
		delete(f.texGather, base)
	}
}

// --- derivation ------------------------------------------------------------

// postDerivation contributes thread tid's operand to its 2x2 quad (base
// thread = tid &^ 3, spec §4.9) and reports whether the instruction
// completed for tid this call. On the fourth post the gradient is computed
// and written back for all four quad threads in one shot.
func (f *ShaderFrontEnd) postDerivation(tid int, instr *DecodedInstr) bool {
	base := tid &^ 3
	q, ok := f.quads[base]
	if !ok {
		q = &quadGather{instr: instr}
		f.quads[base] = q
	}
	lane := tid & 3
	t := &f.threads[tid]
	q.posted[lane] = true
	q.inputs[lane] = t.ctx.readOperand(instr.Src1)

	if !q.complete() {
		t.state = ThreadBlocked
		t.blockReason = BlockDerivation
		return false
	}

	var grads [4][4]float32
	if instr.Op == OpDDX {
		grads = gradX(q.inputs)
	} else {
		grads = gradY(q.inputs)
	}
	for l := 0; l < 4; l++ {
		qt := &f.threads[base+l]
		qt.ctx.writeResult(instr.Result, grads[l])
		if qt.state == ThreadBlocked && qt.blockReason == BlockDerivation {
			qt.state = ThreadReady
			qt.blockReason = BlockNone
		}
		qt.pc++
		qt.instructionCount++
	}
	delete(f.quads, base)
	return true
}

// --- thread-window and swap-on-block ---------------------------------------

// stepThreadWindow scans up to windowSize threads from a rotating origin for
// a ready thread, issues that thread's instruction, and marks the thread not
// fetchable for fetchDelay cycles (spec §4.8 mode 2).
func (f *ShaderFrontEnd) stepThreadWindow(cycle uint64) []Output {
	n := len(f.threads)
	window := f.cfg.WindowSize
	if window > n {
		window = n
	}
	for i := 0; i < window; i++ {
		idx := (f.windowStart + i) % n
		t := &f.threads[idx]
		if t.state != ThreadReady || t.nextFetchCycle > cycle {
			continue
		}
		outs := f.issueSingle(idx, cycle)
		f.threads[idx].nextFetchCycle = cycle + f.cfg.FetchDelayCycles
		f.windowStart = (idx + 1) % n
		return outs
	}
	f.windowStart = (f.windowStart + window) % n
	return nil
}

// stepSwapOnBlock keeps the current thread active until it blocks, and only
// then searches for another ready thread (spec §4.8 mode 3).
func (f *ShaderFrontEnd) stepSwapOnBlock(cycle uint64) []Output {
	n := len(f.threads)
	if f.threads[f.current].state != ThreadReady {
		found := false
		for i := 1; i <= n; i++ {
			idx := (f.current + i) % n
			if f.threads[idx].state == ThreadReady {
				f.current = idx
				found = true
				break
			}
		}
		if !found {
			return nil
		}
	}
	return f.issueSingle(f.current, cycle)
}

// issueSingle executes one instruction for thread idx, handling the blocking
// opcodes per-thread: texture posts join the quad-shared queue entry,
// derivations gather across the thread's 2x2 quad, and END commits when the
// output channel has room.
func (f *ShaderFrontEnd) issueSingle(idx int, cycle uint64) []Output {
	t := &f.threads[idx]
	program := f.programs[idx]
	if t.pc >= len(program) {
		return nil
	}
	instr := program[t.pc]

	switch {
	case instr.Op == OpEND:
		if f.outputSpace() < 1 {
			t.state = ThreadBlocked
			t.blockReason = BlockOutputFull
			return nil
		}
		return []Output{f.commit(idx, cycle)}

	case instr.Op == OpJMP:
		p := t.ctx.Regs.Pred[instr.Result.PredReg]
		if instr.Result.InvertPredicate {
			p = !p
		}
		if p {
			t.pc += instr.JumpOffset
		} else {
			t.pc++
		}
		t.instructionCount++
		return nil

	case instr.Op.IsTextureOp():
		f.issueTextureSingle(idx, instr, cycle)
		return nil

	case instr.Op.IsDerivationOp():
		f.postDerivation(idx, instr)
		return nil

	default:
		t.ctx.run(instr)
		t.pc++
		t.instructionCount++
		return nil
	}
}

// UnblockOutput re-readies threads blocked on a full output channel; called
// after DrainOutput frees space. Lock-step wavefronts retry via
// wavefrontAtEnd instead.
func (f *ShaderFrontEnd) UnblockOutput() {
	if f.outputSpace() < 1 {
		return
	}
	for i := range f.threads {
		t := &f.threads[i]
		if t.state == ThreadBlocked && t.blockReason == BlockOutputFull {
			t.state = ThreadReady
			t.blockReason = BlockNone
		}
	}
}

func (f *ShaderFrontEnd) commit(idx int, cycle uint64) Output {
	t := &f.threads[idx]
	t.state = ThreadDraining
	t.input.CommittedCycle = cycle
	out := Output{
		Input:   t.input,
		Out:     append([][4]float32(nil), t.ctx.Regs.Out...),
		Kill:    append([]bool(nil), t.ctx.Kill...),
		ZExport: append([]float32(nil), t.ctx.ZExport...),
	}
	f.pendingOut++
	f.resources.Release(int64(t.tempUnits))
	f.buffers.Release(1)
	f.threads[idx] = thread{state: ThreadFree}
	f.programs[idx] = nil
	return out
}
