package streamer

import (
	"fmt"

	"github.com/oxcore/rastercore/shader"
)

// AttributeFetcher resolves a vertex index to its input attribute vectors,
// standing in for the out-of-scope memory path a real streamer reads vertex
// buffers through (spec §1).
type AttributeFetcher func(index uint32) [][4]float32

// Loader walks an index stream, deduplicating shading work through an
// OutputCache and handing misses to the shader front end as vertex
// ShaderInputs (spec §2 dataflow: "StreamerLoader -> ShaderFrontEnd(vertex
// input)").
type Loader struct {
	cache   *OutputCache
	fetch   AttributeFetcher
	program []*shader.DecodedInstr
	temps   int

	indices []uint32
	next    int
	retry   []uint32 // squashed vertices to reissue before the stream resumes

	shaded int
}

// NewLoader builds a Loader over an index stream. The fetcher and a
// non-empty program are required.
func NewLoader(cache *OutputCache, fetch AttributeFetcher, program []*shader.DecodedInstr, tempCount int) (*Loader, error) {
	if cache == nil {
		return nil, fmt.Errorf("streamer: illegal configuration: loader needs an output cache")
	}
	if fetch == nil {
		return nil, fmt.Errorf("streamer: illegal configuration: loader needs an attribute fetcher")
	}
	if len(program) == 0 {
		return nil, fmt.Errorf("streamer: illegal configuration: loader needs a vertex program")
	}
	return &Loader{cache: cache, fetch: fetch, program: program, temps: tempCount}, nil
}

// Begin installs an index stream and starts the cache streaming.
func (l *Loader) Begin(indices []uint32) error {
	if l.cache.State() == CacheReset {
		l.cache.Reset()
	}
	if err := l.cache.Start(); err != nil {
		return err
	}
	l.indices = indices
	l.next = 0
	return nil
}

// End finishes the current stream.
func (l *Loader) End() error { return l.cache.End() }

// Done reports whether the whole index stream has been issued.
func (l *Loader) Done() bool { return l.next >= len(l.indices) && len(l.retry) == 0 }

// ShadedCount reports how many vertices were actually sent for shading
// (stream length minus cache hits).
func (l *Loader) ShadedCount() int { return l.shaded }

// NextVertex implements the core's VertexSource contract: it advances
// through the index stream, skipping cache hits, until it either produces a
// vertex ShaderInput for a miss or exhausts the stream this cycle. A full
// cache stalls the stream without consuming the index (capacity
// back-pressure, spec §7).
func (l *Loader) NextVertex(cycle uint64) (*shader.ShaderInput, []*shader.DecodedInstr, int, bool) {
	if l.cache.State() != CacheStreaming {
		return nil, nil, 0, false
	}
	if len(l.retry) > 0 {
		idx := l.retry[0]
		if _, ok := l.cache.Allocate(idx); !ok {
			return nil, nil, 0, false
		}
		l.retry = l.retry[1:]
		return l.issue(idx), l.program, l.temps, true
	}
	for l.next < len(l.indices) {
		idx := l.indices[l.next]
		hit, ok := l.cache.Allocate(idx)
		if !ok {
			return nil, nil, 0, false
		}
		l.next++
		if hit {
			continue
		}
		return l.issue(idx), l.program, l.temps, true
	}
	return nil, nil, 0, false
}

func (l *Loader) issue(idx uint32) *shader.ShaderInput {
	l.shaded++
	return &shader.ShaderInput{
		ID:          uint64(idx),
		Mode:        shader.ModeVertex,
		Attributes:  l.fetch(idx),
		LastInBatch: l.next >= len(l.indices) && len(l.retry) == 0,
	}
}

// SquashVertex abandons an issued vertex that never reached a shader thread
// (load back-pressure): its speculative cache line is dropped and the index
// queued for reissue, so the line cannot pin the cache unconfirmed forever.
func (l *Loader) SquashVertex(in *shader.ShaderInput) {
	if in == nil || in.Mode != shader.ModeVertex {
		return
	}
	idx := uint32(in.ID)
	l.cache.Squash(idx)
	l.retry = append(l.retry, idx)
	l.shaded--
}

// CommitVertex confirms a shaded vertex's cache line; wire it to the core's
// vertex-output path so a line only counts as reusable once its output
// actually committed.
func (l *Loader) CommitVertex(out shader.Output) {
	if out.Input == nil || out.Input.Mode != shader.ModeVertex {
		return
	}
	_ = l.cache.Confirm(uint32(out.Input.ID))
}
