package setup

import "fmt"

// Handle is a typed reference into an Arena's triangle table. It stays valid
// only between Allocate and the corresponding Free call.
type Handle struct {
	index uint32
	gen   uint32
}

// Arena is the bounded SetupTriangle table (spec §9: "bump-arena with typed
// handles per triangle + length counter; drop the whole arena at
// lastFragment"), generalized from the teacher's fixed-size, index-addressed
// worker table (coprocessor_manager.go's [7]*CoprocWorker) to a capacity the
// core configures via max-active-triangles.
type Arena struct {
	slots []slot
	free  []uint32
}

type slot struct {
	triangle *Triangle
	gen      uint32
	occupied bool
}

// NewArena returns an Arena with room for capacity simultaneously active
// triangles, per the "max active triangles" configuration option (spec §6).
func NewArena(capacity int) *Arena {
	a := &Arena{
		slots: make([]slot, capacity),
		free:  make([]uint32, capacity),
	}
	for i := range a.free {
		a.free[i] = uint32(capacity - 1 - i)
	}
	return a
}

// FreeSlots reports how many triangle slots are currently unused, the value
// advertised to PrimitiveAssembly as back-pressure (spec §6, "request N").
func (a *Arena) FreeSlots() int { return len(a.free) }

// Allocate claims a free slot for t and returns its handle. It is a fatal
// invariant violation to call Allocate with no free slot (spec §4.2,
// "allocating a triangle when no free setup slot exists is fatal").
func (a *Arena) Allocate(t *Triangle) (Handle, error) {
	if len(a.free) == 0 {
		return Handle{}, fmt.Errorf("setup: invariant violation: no free setup slot for triangle %d", t.ID)
	}
	idx := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]

	s := &a.slots[idx]
	s.triangle = t
	s.occupied = true
	s.gen++
	return Handle{index: idx, gen: s.gen}, nil
}

// Get returns the triangle a handle refers to, and whether the handle is
// still live (not yet freed, and not a stale handle to a reused slot).
func (a *Arena) Get(h Handle) (*Triangle, bool) {
	if int(h.index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.index]
	if !s.occupied || s.gen != h.gen {
		return nil, false
	}
	return s.triangle, true
}

// Free releases a handle's slot back to the free list. The caller must have
// already confirmed the triangle's refcount reached zero (spec §3, lifetime
// ends at lastFragment once all consumers have released it); Free does not
// itself check the refcount so it can also be used to drop the whole arena
// slot eagerly once the Rasterizer is done producing fragments from it.
func (a *Arena) Free(h Handle) error {
	if int(h.index) >= len(a.slots) {
		return fmt.Errorf("setup: invariant violation: free of out-of-range handle %+v", h)
	}
	s := &a.slots[h.index]
	if !s.occupied || s.gen != h.gen {
		return fmt.Errorf("setup: invariant violation: double free or stale handle %+v", h)
	}
	s.triangle = nil
	s.occupied = false
	a.free = append(a.free, h.index)
	return nil
}
