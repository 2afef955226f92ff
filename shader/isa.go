// Package shader implements the unified vertex/fragment shader ISA (spec
// §4.9) and the multi-threaded front-end scheduler that feeds it (spec
// §4.8): a thread table, wavefront fetch in lock-step, thread-window or
// swap-on-block mode, texture queues and derivation-quad stalls.
package shader

// Opcode enumerates the ISA families from spec §4.9.
type Opcode int

const (
	OpMOV Opcode = iota
	OpADD
	OpMUL
	OpMAD
	OpDP3
	OpDP4
	OpDPH
	OpDST
	OpMAX
	OpMIN
	OpSGE
	OpSLT
	OpCMP
	OpFRC
	OpLIT
	OpRCP
	OpRSQ
	OpEX2
	OpLG2
	OpEXP
	OpLOG
	OpSIN
	OpCOS
	OpARL
	OpSETPEQ
	OpSETPGT
	OpSETPLT
	OpANDP
	OpSTPEQI
	OpSTPGTI
	OpSTPLTI
	OpADDI
	OpMULI
	OpTEX
	OpTXB
	OpTXP
	OpTXL
	OpLDA
	OpKIL
	OpKLS
	OpCMPKIL
	OpZXP
	OpZXS
	OpCHS
	OpFXMUL
	OpFXMAD
	OpFXMAD2
	OpDDX
	OpDDY
	OpJMP
	OpEND
)

// IsTextureOp reports whether op enqueues a TextureQueueEntry instead of
// writing its result at issue time (spec §4.9).
func (op Opcode) IsTextureOp() bool {
	switch op {
	case OpTEX, OpTXB, OpTXP, OpTXL, OpLDA:
		return true
	default:
		return false
	}
}

// IsDerivationOp reports whether op is a 2x2-quad derivation instruction.
func (op Opcode) IsDerivationOp() bool {
	return op == OpDDX || op == OpDDY
}

// IsKillOp reports whether op sets a per-sample kill flag.
func (op Opcode) IsKillOp() bool {
	return op == OpKIL || op == OpKLS || op == OpCMPKIL
}
