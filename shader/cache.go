package shader

// DecodeCache memoizes Decode by instruction value, implementing the
// "instruction-cache storing decoded instructions" configuration option
// (spec §6): a program can be decoded once per distinct Instr and the
// DecodedInstr reused across every ShaderInput that runs it, instead of
// redecoding the same static instruction on every load.
type DecodeCache struct {
	entries map[Instr]*DecodedInstr
}

// NewDecodeCache returns an empty cache.
func NewDecodeCache() *DecodeCache {
	return &DecodeCache{entries: make(map[Instr]*DecodedInstr)}
}

// DecodeProgram decodes every instruction in instrs, either through cache (if
// non-nil) or freshly each time (spec §4.9: "the implementation may decode
// lazily and cache, or always decode on fetch; both are admissible").
func DecodeProgram(instrs []Instr, cache *DecodeCache) ([]*DecodedInstr, error) {
	out := make([]*DecodedInstr, len(instrs))
	for i, instr := range instrs {
		if cache == nil {
			d, err := Decode(instr)
			if err != nil {
				return nil, err
			}
			out[i] = d
			continue
		}
		if d, ok := cache.entries[instr]; ok {
			out[i] = d
			continue
		}
		d, err := Decode(instr)
		if err != nil {
			return nil, err
		}
		cache.entries[instr] = d
		out[i] = d
	}
	return out, nil
}
