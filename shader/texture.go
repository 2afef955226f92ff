package shader

import "fmt"

// TextureQueueEntry is one in-flight texture access shared by the 4
// fragments of a stamp (spec §3 "TextureQueueEntry", §4.9).
type TextureQueueEntry struct {
	Op                  Opcode
	Sampler             int
	Coords              [4][4]float32
	Params              [4][4]float32
	PostedBy            [4]*DecodedInstr
	Requested           int
	VertexTextureAccess bool
	Result              [4][4]float32
	ResultReady         bool
}

// TextureQueue is the shared texture-access buffer, guarded by free/wait
// counts updated only inside clock() so no locking is required (spec §5).
type TextureQueue struct {
	capacity int
	free     []*TextureQueueEntry
	pending  map[*TextureQueueEntry]bool
}

// NewTextureQueue allocates a queue with capacity free entries, per the
// configured texture-unit count (spec §6).
func NewTextureQueue(capacity int) *TextureQueue {
	q := &TextureQueue{capacity: capacity, pending: make(map[*TextureQueueEntry]bool)}
	for i := 0; i < capacity; i++ {
		q.free = append(q.free, &TextureQueueEntry{})
	}
	return q
}

// FreeCount reports how many texture queue slots remain unused.
func (q *TextureQueue) FreeCount() int { return len(q.free) }

// Post enqueues (or joins an existing) texture access for the given stamp
// slot index, vertex-texture flag, sampler, op and instruction. For a
// vertex-texture access only index 0 is original; the queue fills the
// remaining three slots with replicas of it (spec §4.9, §8 invariant).
func (q *TextureQueue) Post(entry *TextureQueueEntry, slot int, instr *DecodedInstr, sampler int, op Opcode, coords, params [4]float32, vertexTexture bool) (*TextureQueueEntry, error) {
	if entry == nil {
		if len(q.free) == 0 {
			return nil, fmt.Errorf("shader: capacity back-pressure: no free texture queue slot")
		}
		entry = q.free[len(q.free)-1]
		q.free = q.free[:len(q.free)-1]
		*entry = TextureQueueEntry{Op: op, Sampler: sampler, VertexTextureAccess: vertexTexture}
		q.pending[entry] = true
	}
	if entry.Requested >= 4 {
		return nil, fmt.Errorf("shader: invariant violation: texture queue entry requested more than stampFragments")
	}
	entry.PostedBy[slot] = instr
	entry.Coords[slot] = coords
	entry.Params[slot] = params
	entry.Requested++

	if entry.VertexTextureAccess && entry.Requested == 1 {
		for i := 1; i < 4; i++ {
			entry.Coords[i] = entry.Coords[0]
			entry.Params[i] = entry.Params[0]
			entry.Requested++
		}
	}
	return entry, nil
}

// Ready reports whether all stamp fragments required by entry have posted
// (spec §4.9: "when all four have posted").
func (e *TextureQueueEntry) Ready() bool {
	if e.VertexTextureAccess {
		return e.Requested > 0
	}
	return e.Requested >= 4
}

// Complete delivers sampled results for entry and returns it to the free
// list exactly once (spec §8 invariant).
func (q *TextureQueue) Complete(entry *TextureQueueEntry, samples [4][4]float32) error {
	if !q.pending[entry] {
		return fmt.Errorf("shader: invariant violation: completing a texture queue entry not pending")
	}
	entry.Result = samples
	entry.ResultReady = true
	delete(q.pending, entry)
	q.free = append(q.free, entry)
	return nil
}
