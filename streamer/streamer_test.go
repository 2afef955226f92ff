package streamer

import (
	"testing"

	"github.com/oxcore/rastercore/shader"
)

func vertexProgram(t *testing.T) []*shader.DecodedInstr {
	t.Helper()
	d, err := shader.Decode(shader.Instr{Op: shader.OpEND})
	if err != nil {
		t.Fatal(err)
	}
	return []*shader.DecodedInstr{d}
}

func TestOutputCacheStateMachine(t *testing.T) {
	c, err := NewOutputCache(4)
	if err != nil {
		t.Fatal(err)
	}
	if c.State() != CacheReset {
		t.Fatalf("new cache state = %v, want RESET", c.State())
	}
	if err := c.Start(); err == nil {
		t.Fatal("START from RESET should be an invariant violation")
	}
	c.Reset()
	if c.State() != CacheReady {
		t.Fatalf("state after Reset = %v, want READY", c.State())
	}
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	if c.State() != CacheStreaming {
		t.Fatalf("state after Start = %v, want STREAMING", c.State())
	}
	if err := c.End(); err != nil {
		t.Fatal(err)
	}
	if c.State() != CacheReady {
		t.Fatalf("state after End = %v, want READY", c.State())
	}
}

func TestOutputCacheHitSkipsReshading(t *testing.T) {
	c, err := NewOutputCache(4)
	if err != nil {
		t.Fatal(err)
	}
	c.Reset()

	if hit, ok := c.Allocate(7); hit || !ok {
		t.Fatalf("first reference: hit=%v ok=%v, want miss", hit, ok)
	}
	if err := c.Confirm(7); err != nil {
		t.Fatal(err)
	}
	if hit, ok := c.Allocate(7); !hit || !ok {
		t.Fatalf("second reference: hit=%v ok=%v, want hit", hit, ok)
	}
	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("stats = %d hits / %d misses, want 1/1", hits, misses)
	}
}

func TestOutputCacheSpeculativeDeallocationRevived(t *testing.T) {
	c, err := NewOutputCache(2)
	if err != nil {
		t.Fatal(err)
	}
	c.Reset()

	c.Allocate(3)
	if err := c.Release(3); err == nil {
		t.Fatal("releasing an unconfirmed line should be an invariant violation")
	}
	if err := c.Confirm(3); err != nil {
		t.Fatal(err)
	}
	if err := c.Release(3); err != nil {
		t.Fatal(err)
	}

	// A reference arriving mid-deallocation cancels it.
	if hit, _ := c.Allocate(3); !hit {
		t.Fatal("a reference during speculative deallocation should revive the line")
	}
	c.ConfirmRelease(3)
	if !c.Contains(3) {
		t.Fatal("a canceled deallocation must not free the line on ConfirmRelease")
	}

	// Without a reviving reference, confirmation frees the line.
	if err := c.Release(3); err != nil {
		t.Fatal(err)
	}
	c.ConfirmRelease(3)
	if c.Contains(3) {
		t.Fatal("confirmed deallocation should free the line")
	}
}

func TestOutputCacheBackPressureWhenFullOfLiveLines(t *testing.T) {
	c, err := NewOutputCache(2)
	if err != nil {
		t.Fatal(err)
	}
	c.Reset()

	c.Allocate(1) // speculative, pinned
	c.Allocate(2) // speculative, pinned
	if _, ok := c.Allocate(3); ok {
		t.Fatal("a cache full of unconfirmed lines must stall new allocations")
	}

	// Confirmed idle lines are evictable.
	c.Confirm(1)
	if _, ok := c.Allocate(3); !ok {
		t.Fatal("a confirmed line should be evictable to admit a new index")
	}
}

func TestLoaderDeduplicatesSharedVertices(t *testing.T) {
	cache, err := NewOutputCache(8)
	if err != nil {
		t.Fatal(err)
	}
	fetched := make(map[uint32]int)
	fetch := func(index uint32) [][4]float32 {
		fetched[index]++
		return [][4]float32{{float32(index), 0, 0, 1}}
	}
	loader, err := NewLoader(cache, fetch, vertexProgram(t), 1)
	if err != nil {
		t.Fatal(err)
	}

	// Two triangles sharing an edge: indices 0,1,2 and 1,2,3.
	if err := loader.Begin([]uint32{0, 1, 2, 1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	var shaded []uint64
	for !loader.Done() {
		in, _, _, ok := loader.NextVertex(0)
		if !ok {
			break
		}
		shaded = append(shaded, in.ID)
		loader.CommitVertex(shader.Output{Input: in})
	}
	if len(shaded) != 4 {
		t.Fatalf("shaded %d vertices, want 4 (indices 1 and 2 deduplicated)", len(shaded))
	}
	for idx, n := range fetched {
		if n != 1 {
			t.Fatalf("vertex %d fetched %d times, want once", idx, n)
		}
	}
	if loader.ShadedCount() != 4 {
		t.Fatalf("ShadedCount = %d, want 4", loader.ShadedCount())
	}
	if err := loader.End(); err != nil {
		t.Fatal(err)
	}
}

func TestLoaderStallsOnFullCache(t *testing.T) {
	cache, err := NewOutputCache(1)
	if err != nil {
		t.Fatal(err)
	}
	fetch := func(index uint32) [][4]float32 { return [][4]float32{{}} }
	loader, err := NewLoader(cache, fetch, vertexProgram(t), 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := loader.Begin([]uint32{0, 1}); err != nil {
		t.Fatal(err)
	}

	in, _, _, ok := loader.NextVertex(0)
	if !ok {
		t.Fatal("first vertex should issue")
	}
	// Vertex 0 not yet committed: its line is pinned, so vertex 1 stalls.
	if _, _, _, ok := loader.NextVertex(1); ok {
		t.Fatal("loader should stall while the cache is full of unconfirmed lines")
	}
	loader.CommitVertex(shader.Output{Input: in})
	if _, _, _, ok := loader.NextVertex(2); !ok {
		t.Fatal("loader should resume once the line is confirmed (evictable)")
	}
}
