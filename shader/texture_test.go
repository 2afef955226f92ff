package shader

import "testing"

// TestTextureStampScenario matches spec §8 scenario 6: four fragments enqueue
// TEX to sampler 0 with coords (0,0),(1,0),(0,1),(1,1); before the fourth
// posts the queue remains in "requested<4"; after the fourth posts, one
// access is released; after the memory returns 4 samples, the 4 result
// registers receive them in order and the entry is free again.
func TestTextureStampScenario(t *testing.T) {
	q := NewTextureQueue(1)
	coords := [4][4]float32{
		{0, 0, 0, 0},
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{1, 1, 0, 0},
	}

	var entry *TextureQueueEntry
	for i := 0; i < 3; i++ {
		e, err := q.Post(entry, i, nil, 0, OpTEX, coords[i], [4]float32{}, false)
		if err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
		entry = e
		if entry.Ready() {
			t.Fatalf("entry reported ready after only %d posts", i+1)
		}
	}
	if q.FreeCount() != 0 {
		t.Fatalf("expected the single slot to stay claimed while requested<4, FreeCount=%d", q.FreeCount())
	}

	entry, err := q.Post(entry, 3, nil, 0, OpTEX, coords[3], [4]float32{}, false)
	if err != nil {
		t.Fatalf("post 3: %v", err)
	}
	if !entry.Ready() {
		t.Fatal("entry should be ready once all four stamp fragments have posted")
	}

	samples := [4][4]float32{{1, 0, 0, 1}, {0, 1, 0, 1}, {0, 0, 1, 1}, {1, 1, 1, 1}}
	if err := q.Complete(entry, samples); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if entry.Result != samples {
		t.Fatalf("entry.Result = %v, want %v", entry.Result, samples)
	}
	if q.FreeCount() != 1 {
		t.Fatalf("entry should return to the free list exactly once, FreeCount=%d", q.FreeCount())
	}

	if err := q.Complete(entry, samples); err == nil {
		t.Fatal("completing an already-freed entry should be an invariant violation")
	}
}

func TestVertexTextureAccessReplicatesFirstSlot(t *testing.T) {
	q := NewTextureQueue(1)
	coord := [4]float32{0.5, 0.5, 0, 0}

	entry, err := q.Post(nil, 0, nil, 0, OpTEX, coord, [4]float32{}, true)
	if err != nil {
		t.Fatal(err)
	}
	if !entry.VertexTextureAccess {
		t.Fatal("expected VertexTextureAccess to be set")
	}
	if !entry.Ready() {
		t.Fatal("a vertex texture access should be ready after only the first (original) slot posts")
	}
	for i := 1; i < 4; i++ {
		if entry.Coords[i] != coord {
			t.Fatalf("slot %d should replicate slot 0's coords, got %v", i, entry.Coords[i])
		}
	}
}
