package shader

// ParamPartition selects one of the PARAM bank's two read-only partitions. A
// thread reads the partition named by its ExecContext.ParamPart; the front
// end loads every thread with ParamPrimary, and no instruction switches the
// partition by PC region.
type ParamPartition int

const (
	ParamPrimary ParamPartition = iota
	ParamSecondary
)

// ParamBank is the shared, read-only constant bank, split into a primary and
// a secondary partition (spec §5); see ParamPartition for how one is chosen.
type ParamBank struct {
	Primary   []([4]float32)
	Secondary []([4]float32)
}

func (p *ParamBank) partition(part ParamPartition) []([4]float32) {
	if part == ParamSecondary {
		return p.Secondary
	}
	return p.Primary
}

// Read returns the PARAM register at index, optionally relocated by a
// relative-addressing offset (spec §4.9 step 1).
func (p *ParamBank) Read(part ParamPartition, index int) [4]float32 {
	bank := p.partition(part)
	if index < 0 || index >= len(bank) {
		return [4]float32{}
	}
	return bank[index]
}

// RegisterFile is one thread's private register banks: IN, OUT, TEMP, ADDR,
// PRED (spec §5, "partitioned per thread"). TEXT/SAMP bindings and the
// shared PARAM bank live outside the per-thread file.
type RegisterFile struct {
	In   [][4]float32
	Out  [][4]float32
	Temp [][4]float32
	Addr [][4]float32
	Pred []bool
}

// NewRegisterFile allocates a register file sized for the given per-bank
// register counts.
func NewRegisterFile(inCount, outCount, tempCount, addrCount, predCount int) *RegisterFile {
	return &RegisterFile{
		In:   make([][4]float32, inCount),
		Out:  make([][4]float32, outCount),
		Temp: make([][4]float32, tempCount),
		Addr: make([][4]float32, addrCount),
		Pred: make([]bool, predCount),
	}
}

func (r *RegisterFile) bank(b Bank) [][4]float32 {
	switch b {
	case BankIN:
		return r.In
	case BankOUT:
		return r.Out
	case BankTEMP:
		return r.Temp
	case BankADDR:
		return r.Addr
	default:
		return nil
	}
}

// Read returns the value at a non-PARAM, non-immediate bank/index.
func (r *RegisterFile) Read(b Bank, index int) [4]float32 {
	bank := r.bank(b)
	if index < 0 || index >= len(bank) {
		return [4]float32{}
	}
	return bank[index]
}

// Write stores value into the selected components of bank/index, honoring
// the 4-bit write mask (spec §4.9, "Result path" step 3).
func (r *RegisterFile) Write(b Bank, index int, value [4]float32, mask Mask) {
	bank := r.bank(b)
	if index < 0 || index >= len(bank) {
		return
	}
	for i := 0; i < 4; i++ {
		if mask[i] {
			bank[index][i] = value[i]
		}
	}
}
