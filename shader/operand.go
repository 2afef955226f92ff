package shader

// Bank names an ISA register bank (spec §4.9, "operand banks").
type Bank int

const (
	BankIN Bank = iota
	BankOUT
	BankPARAM
	BankTEMP
	BankADDR
	BankPRED
	BankTEXT
	BankSAMP
	BankIMM
)

// Swizzle selects, per destination component, which source component to
// read: 2 bits per component (spec §4.9).
type Swizzle [4]uint8

// IdentitySwizzle is the no-op swizzle (x,y,z,w -> x,y,z,w).
var IdentitySwizzle = Swizzle{0, 1, 2, 3}

// Apply reorders v's components according to the swizzle.
func (s Swizzle) Apply(v [4]float32) [4]float32 {
	return [4]float32{v[s[0]], v[s[1]], v[s[2]], v[s[3]]}
}

// Operand is one source operand of an instruction: a register reference plus
// the per-operand modifiers applied during the operand path (spec §4.9 step
// 2): swizzle, then absolute, then negate.
type Operand struct {
	Bank          Bank
	Index         int
	Imm           [4]float32 // used when Bank == BankIMM
	Swizzle       Swizzle
	Absolute      bool
	Negate        bool
	RelativeAddr  bool // PARAM-bank relative addressing via the ADDR register
	AddrReg       int
	RelativeBase  int
}

// Mask is the 4-bit result-component write mask (spec §4.9).
type Mask [4]bool

// FullMask writes all four components.
var FullMask = Mask{true, true, true, true}

// ResultOperand is an instruction's destination: bank, index, write mask,
// optional predicate gating and saturation (spec §4.9 "Result path").
type ResultOperand struct {
	Bank           Bank
	Index          int
	Mask           Mask
	Saturate       bool
	PredReg        int
	HasPredicate   bool
	InvertPredicate bool
}

// applyModifiers runs the per-operand modifier chain: swizzle, then
// absolute, then negate (spec §4.9 step 2).
func applyModifiers(raw [4]float32, o Operand) [4]float32 {
	v := o.Swizzle.Apply(raw)
	if o.Absolute {
		for i := range v {
			if v[i] < 0 {
				v[i] = -v[i]
			}
		}
	}
	if o.Negate {
		for i := range v {
			v[i] = -v[i]
		}
	}
	return v
}
