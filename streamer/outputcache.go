// Package streamer implements the vertex-input side of the core's dataflow
// (spec §2: "StreamerLoader -> ShaderFrontEnd(vertex input)"): a loader that
// walks an index stream fetching vertex attributes, and the shaded-vertex
// output cache with speculative allocation and deallocation confirmation
// (spec §1, §4.10 "StreamerOutputCache").
package streamer

import "fmt"

// CacheState is the output cache's command state machine (spec §4.10:
// "RESET -> READY -> STREAMING (on START) -> READY (on END)").
type CacheState int

const (
	CacheReset CacheState = iota
	CacheReady
	CacheStreaming
)

// entryState tracks one cache line's lifecycle. Allocation is speculative: a
// line is claimed when its vertex index is first requested, before the
// shader has produced the output, so a squashed batch can drop the line
// without ever confirming it. Deallocation is likewise speculative: a
// consumed line moves to deallocating and is only freed once the
// deallocation is confirmed, so a reference arriving in between revives it.
type entryState int

const (
	entryAllocated entryState = iota // claimed, output not yet committed
	entryConfirmed                   // output committed, reusable on hit
	entryDeallocating                // consumed, awaiting confirmation
)

type cacheEntry struct {
	index uint32
	state entryState
	hits  int
}

// OutputCache is the shaded-vertex cache keyed by vertex index: a repeated
// index in the stream reuses the committed output instead of shading the
// vertex again.
type OutputCache struct {
	state    CacheState
	capacity int
	entries  map[uint32]*cacheEntry

	hits, misses int
}

// NewOutputCache returns a cache in the RESET state with room for capacity
// simultaneously live vertices. A non-positive capacity is an illegal
// configuration (spec §7).
func NewOutputCache(capacity int) (*OutputCache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("streamer: illegal configuration: output cache capacity must be > 0, got %d", capacity)
	}
	return &OutputCache{
		state:    CacheReset,
		capacity: capacity,
		entries:  make(map[uint32]*cacheEntry),
	}, nil
}

// State reports the cache's current command state.
func (c *OutputCache) State() CacheState { return c.state }

// Reset moves the cache to READY and drops every line.
func (c *OutputCache) Reset() {
	c.state = CacheReady
	c.entries = make(map[uint32]*cacheEntry)
	c.hits, c.misses = 0, 0
}

// Start begins streaming (READY -> STREAMING). Starting from any other state
// is an invariant violation.
func (c *OutputCache) Start() error {
	if c.state != CacheReady {
		return fmt.Errorf("streamer: invariant violation: START in state %v, want READY", c.state)
	}
	c.state = CacheStreaming
	return nil
}

// End finishes streaming (STREAMING -> READY). Lines survive End so a
// following batch over the same indices still hits.
func (c *OutputCache) End() error {
	if c.state != CacheStreaming {
		return fmt.Errorf("streamer: invariant violation: END in state %v, want STREAMING", c.state)
	}
	c.state = CacheReady
	return nil
}

// Allocate claims a line for a vertex index, speculatively. It reports
// (hit, ok): hit means the index already has a line (confirmed, still
// shading, or reviving one mid-deallocation), so the vertex needs no new
// shading work; !ok means the cache is full of live lines and the caller
// must stall (spec §7 capacity back-pressure, a normal outcome).
func (c *OutputCache) Allocate(index uint32) (hit, ok bool) {
	if e, present := c.entries[index]; present {
		if e.state == entryDeallocating {
			// A reference arrived before the deallocation was confirmed:
			// the speculative deallocation is canceled.
			e.state = entryConfirmed
		}
		e.hits++
		c.hits++
		return true, true
	}
	if len(c.entries) >= c.capacity {
		if !c.evict() {
			return false, false
		}
	}
	c.entries[index] = &cacheEntry{index: index, state: entryAllocated}
	c.misses++
	return false, true
}

// evict drops one confirmed, idle line to make room; lines still shading or
// mid-deallocation are pinned.
func (c *OutputCache) evict() bool {
	var victim *cacheEntry
	for _, e := range c.entries {
		if e.state != entryConfirmed {
			continue
		}
		if victim == nil || e.hits < victim.hits {
			victim = e
		}
	}
	if victim == nil {
		return false
	}
	delete(c.entries, victim.index)
	return true
}

// Confirm marks a speculatively allocated line as carrying committed shader
// output. Confirming a line that was never allocated is an invariant
// violation.
func (c *OutputCache) Confirm(index uint32) error {
	e, present := c.entries[index]
	if !present {
		return fmt.Errorf("streamer: invariant violation: confirm of unallocated vertex %d", index)
	}
	e.state = entryConfirmed
	return nil
}

// Squash drops a speculatively allocated line whose shading was abandoned
// (e.g. the whole batch was flushed before the vertex committed).
func (c *OutputCache) Squash(index uint32) {
	if e, present := c.entries[index]; present && e.state == entryAllocated {
		delete(c.entries, index)
	}
}

// Release begins a speculative deallocation of a consumed line. The line
// stays resident until ConfirmRelease; an Allocate in between revives it.
func (c *OutputCache) Release(index uint32) error {
	e, present := c.entries[index]
	if !present {
		return fmt.Errorf("streamer: invariant violation: release of unallocated vertex %d", index)
	}
	if e.state != entryConfirmed {
		return fmt.Errorf("streamer: invariant violation: release of vertex %d before its output was confirmed", index)
	}
	e.state = entryDeallocating
	return nil
}

// ConfirmRelease completes a speculative deallocation, freeing the line. A
// line revived by an intervening Allocate is left alone.
func (c *OutputCache) ConfirmRelease(index uint32) {
	if e, present := c.entries[index]; present && e.state == entryDeallocating {
		delete(c.entries, index)
	}
}

// Contains reports whether index currently has a resident line.
func (c *OutputCache) Contains(index uint32) bool {
	_, present := c.entries[index]
	return present
}

// Stats reports the hit/miss counts accumulated since the last Reset.
func (c *OutputCache) Stats() (hits, misses int) { return c.hits, c.misses }

// LiveCount reports how many lines are resident.
func (c *OutputCache) LiveCount() int { return len(c.entries) }
