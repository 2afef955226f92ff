package shader

import (
	"fmt"
	"math"

	"github.com/oxcore/rastercore/fixedpoint"
)

func errIllegalOpcode(op Opcode) error {
	return fmt.Errorf("shader: invariant violation: illegal opcode %d", int(op))
}

// ExecContext is the per-thread state the emulation kernels read and write:
// the thread's private register file, the shared read-only PARAM bank, and
// the per-sample kill/Z-export state (spec §4.9's KIL/KLS/ZXP/ZXS/CHS
// family).
type ExecContext struct {
	Regs        *RegisterFile
	Param       *ParamBank
	ParamPart   ParamPartition
	SampleIndex int
	Kill        []bool
	ZExport     []float32
	Textures    *TextureQueue
	ThreadID    int
}

func (ctx *ExecContext) readOperand(o Operand) [4]float32 {
	var raw [4]float32
	switch o.Bank {
	case BankIMM:
		raw = o.Imm
	case BankPARAM:
		index := o.Index
		if o.RelativeAddr {
			addr := ctx.Regs.Read(BankADDR, o.AddrReg)
			index = o.RelativeBase + int(addr[0])
		}
		raw = ctx.Param.Read(ctx.ParamPart, index)
	default:
		raw = ctx.Regs.Read(o.Bank, o.Index)
	}
	return applyModifiers(raw, o)
}

// readScalar selects the operand's scalar lane value: the component the
// swizzle's W slot names (spec §4.9 step 3). readOperand already applied the
// swizzle, so the W slot of the swizzled vector is that component.
func (ctx *ExecContext) readScalar(o Operand) float32 {
	v := ctx.readOperand(o)
	return v[3]
}

func (ctx *ExecContext) writeResult(r ResultOperand, value [4]float32) {
	if r.HasPredicate {
		p := ctx.Regs.Pred[r.PredReg]
		if r.InvertPredicate {
			p = !p
		}
		if !p {
			return
		}
	}
	if r.Saturate {
		for i := range value {
			if value[i] < 0 {
				value[i] = 0
			}
			if value[i] > 1 {
				value[i] = 1
			}
		}
	}
	ctx.Regs.Write(r.Bank, r.Index, value, r.Mask)
}

// sample clamps the CHS-advanced sample index to the per-sample state's
// bounds so a program iterating past the configured sample count stays
// finite (spec §7: NaN/Inf and out-of-range shader state propagate, never
// trap).
func (ctx *ExecContext) sample() int {
	if ctx.SampleIndex >= len(ctx.Kill) {
		return len(ctx.Kill) - 1
	}
	return ctx.SampleIndex
}

func dot(a, b [4]float32, n int) float32 {
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func vec4(f func(a, b float32) float32, a, b [4]float32) [4]float32 {
	var out [4]float32
	for i := range out {
		out[i] = f(a[i], b[i])
	}
	return out
}

func init() {
	opcodeTable[OpMOV] = func(ctx *ExecContext, d *DecodedInstr) {
		ctx.writeResult(d.Result, ctx.readOperand(d.Src1))
	}
	opcodeTable[OpADD] = func(ctx *ExecContext, d *DecodedInstr) {
		a, b := ctx.readOperand(d.Src1), ctx.readOperand(d.Src2)
		ctx.writeResult(d.Result, vec4(func(x, y float32) float32 { return x + y }, a, b))
	}
	opcodeTable[OpMUL] = func(ctx *ExecContext, d *DecodedInstr) {
		a, b := ctx.readOperand(d.Src1), ctx.readOperand(d.Src2)
		ctx.writeResult(d.Result, vec4(func(x, y float32) float32 { return x * y }, a, b))
	}
	opcodeTable[OpMAD] = func(ctx *ExecContext, d *DecodedInstr) {
		a, b, c := ctx.readOperand(d.Src1), ctx.readOperand(d.Src2), ctx.readOperand(d.Src3)
		var out [4]float32
		for i := range out {
			out[i] = a[i]*b[i] + c[i]
		}
		ctx.writeResult(d.Result, out)
	}
	opcodeTable[OpDP3] = func(ctx *ExecContext, d *DecodedInstr) {
		a, b := ctx.readOperand(d.Src1), ctx.readOperand(d.Src2)
		s := dot(a, b, 3)
		ctx.writeResult(d.Result, [4]float32{s, s, s, s})
	}
	opcodeTable[OpDP4] = func(ctx *ExecContext, d *DecodedInstr) {
		a, b := ctx.readOperand(d.Src1), ctx.readOperand(d.Src2)
		s := dot(a, b, 4)
		ctx.writeResult(d.Result, [4]float32{s, s, s, s})
	}
	opcodeTable[OpDPH] = func(ctx *ExecContext, d *DecodedInstr) {
		a, b := ctx.readOperand(d.Src1), ctx.readOperand(d.Src2)
		s := a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + b[3]
		ctx.writeResult(d.Result, [4]float32{s, s, s, s})
	}
	opcodeTable[OpDST] = func(ctx *ExecContext, d *DecodedInstr) {
		a, b := ctx.readOperand(d.Src1), ctx.readOperand(d.Src2)
		ctx.writeResult(d.Result, [4]float32{1, a[1] * b[1], a[2], b[3]})
	}
	opcodeTable[OpMAX] = func(ctx *ExecContext, d *DecodedInstr) {
		a, b := ctx.readOperand(d.Src1), ctx.readOperand(d.Src2)
		ctx.writeResult(d.Result, vec4(func(x, y float32) float32 {
			if x > y {
				return x
			}
			return y
		}, a, b))
	}
	opcodeTable[OpMIN] = func(ctx *ExecContext, d *DecodedInstr) {
		a, b := ctx.readOperand(d.Src1), ctx.readOperand(d.Src2)
		ctx.writeResult(d.Result, vec4(func(x, y float32) float32 {
			if x < y {
				return x
			}
			return y
		}, a, b))
	}
	opcodeTable[OpSGE] = func(ctx *ExecContext, d *DecodedInstr) {
		a, b := ctx.readOperand(d.Src1), ctx.readOperand(d.Src2)
		ctx.writeResult(d.Result, vec4(func(x, y float32) float32 {
			if x >= y {
				return 1
			}
			return 0
		}, a, b))
	}
	opcodeTable[OpSLT] = func(ctx *ExecContext, d *DecodedInstr) {
		a, b := ctx.readOperand(d.Src1), ctx.readOperand(d.Src2)
		ctx.writeResult(d.Result, vec4(func(x, y float32) float32 {
			if x < y {
				return 1
			}
			return 0
		}, a, b))
	}
	opcodeTable[OpCMP] = func(ctx *ExecContext, d *DecodedInstr) {
		a, b, c := ctx.readOperand(d.Src1), ctx.readOperand(d.Src2), ctx.readOperand(d.Src3)
		var out [4]float32
		for i := range out {
			if a[i] < 0 {
				out[i] = b[i]
			} else {
				out[i] = c[i]
			}
		}
		ctx.writeResult(d.Result, out)
	}
	opcodeTable[OpFRC] = func(ctx *ExecContext, d *DecodedInstr) {
		a := ctx.readOperand(d.Src1)
		var out [4]float32
		for i := range out {
			out[i] = a[i] - float32(math.Floor(float64(a[i])))
		}
		ctx.writeResult(d.Result, out)
	}
	opcodeTable[OpLIT] = func(ctx *ExecContext, d *DecodedInstr) {
		a := ctx.readOperand(d.Src1)
		out := [4]float32{1, 0, 0, 1}
		if a[0] > 0 {
			out[1] = a[0]
			if a[1] > 0 {
				out[2] = float32(math.Pow(float64(a[1]), float64(a[3])))
			}
		}
		ctx.writeResult(d.Result, out)
	}

	unary := func(f func(float32) float32) execFunc {
		return func(ctx *ExecContext, d *DecodedInstr) {
			s := ctx.readScalar(d.Src1)
			r := f(s)
			ctx.writeResult(d.Result, [4]float32{r, r, r, r})
		}
	}
	opcodeTable[OpRCP] = unary(func(x float32) float32 { return float32(1 / float64(x)) })
	opcodeTable[OpRSQ] = unary(func(x float32) float32 { return float32(1 / math.Sqrt(float64(x))) })
	opcodeTable[OpEX2] = unary(func(x float32) float32 { return float32(math.Exp2(float64(x))) })
	opcodeTable[OpLG2] = unary(func(x float32) float32 { return float32(math.Log2(float64(x))) })
	opcodeTable[OpEXP] = unary(func(x float32) float32 { return float32(math.Exp(float64(x))) })
	opcodeTable[OpLOG] = unary(func(x float32) float32 { return float32(math.Log(float64(x))) })
	opcodeTable[OpSIN] = unary(func(x float32) float32 { return float32(math.Sin(float64(x))) })
	opcodeTable[OpCOS] = unary(func(x float32) float32 { return float32(math.Cos(float64(x))) })

	opcodeTable[OpARL] = func(ctx *ExecContext, d *DecodedInstr) {
		s := ctx.readScalar(d.Src1)
		v := float32(math.Floor(float64(s)))
		ctx.Regs.Write(BankADDR, d.Result.Index, [4]float32{v, v, v, v}, FullMask)
	}

	setPred := func(cmp func(a, b float32) bool) execFunc {
		return func(ctx *ExecContext, d *DecodedInstr) {
			a, b := ctx.readScalar(d.Src1), ctx.readScalar(d.Src2)
			ctx.Regs.Pred[d.Result.Index] = cmp(a, b)
		}
	}
	opcodeTable[OpSETPEQ] = setPred(func(a, b float32) bool { return a == b })
	opcodeTable[OpSETPGT] = setPred(func(a, b float32) bool { return a > b })
	opcodeTable[OpSETPLT] = setPred(func(a, b float32) bool { return a < b })
	opcodeTable[OpANDP] = func(ctx *ExecContext, d *DecodedInstr) {
		ctx.Regs.Pred[d.Result.Index] = ctx.Regs.Pred[d.Src1.Index] && ctx.Regs.Pred[d.Src2.Index]
	}

	setPredImm := func(cmp func(a, b int64) bool) execFunc {
		return func(ctx *ExecContext, d *DecodedInstr) {
			a := int64(ctx.readScalar(d.Src1))
			b := int64(d.Immediate[0])
			ctx.Regs.Pred[d.Result.Index] = cmp(a, b)
		}
	}
	opcodeTable[OpSTPEQI] = setPredImm(func(a, b int64) bool { return a == b })
	opcodeTable[OpSTPGTI] = setPredImm(func(a, b int64) bool { return a > b })
	opcodeTable[OpSTPLTI] = setPredImm(func(a, b int64) bool { return a < b })

	opcodeTable[OpADDI] = func(ctx *ExecContext, d *DecodedInstr) {
		a, b := ctx.readOperand(d.Src1), ctx.readOperand(d.Src2)
		var out [4]float32
		for i := range out {
			out[i] = float32(int64(a[i]) + int64(b[i]))
		}
		ctx.writeResult(d.Result, out)
	}
	opcodeTable[OpMULI] = func(ctx *ExecContext, d *DecodedInstr) {
		a, b := ctx.readOperand(d.Src1), ctx.readOperand(d.Src2)
		var out [4]float32
		for i := range out {
			out[i] = float32(int64(a[i]) * int64(b[i]))
		}
		ctx.writeResult(d.Result, out)
	}

	fx := func(op func(a, b, c fixedpoint.Value) fixedpoint.Value) execFunc {
		return func(ctx *ExecContext, d *DecodedInstr) {
			a, b, c := ctx.readOperand(d.Src1), ctx.readOperand(d.Src2), ctx.readOperand(d.Src3)
			intBits, fracBits := uint32(16), uint32(16)
			var out [4]float32
			for i := range out {
				va := fixedpoint.New(float64(a[i]), intBits, fracBits)
				vb := fixedpoint.New(float64(b[i]), intBits, fracBits)
				vc := fixedpoint.New(float64(c[i]), intBits, fracBits)
				out[i] = op(va, vb, vc).ToFloat32()
			}
			ctx.writeResult(d.Result, out)
		}
	}
	opcodeTable[OpFXMUL] = fx(func(a, b, c fixedpoint.Value) fixedpoint.Value { return a.Mul(b) })
	opcodeTable[OpFXMAD] = fx(func(a, b, c fixedpoint.Value) fixedpoint.Value { return a.MulAdd(b, c) })
	opcodeTable[OpFXMAD2] = fx(func(a, b, c fixedpoint.Value) fixedpoint.Value { return a.MulAdd(b, c).Add(c) })

	opcodeTable[OpKIL] = func(ctx *ExecContext, d *DecodedInstr) {
		ctx.Kill[ctx.sample()] = true
	}
	opcodeTable[OpKLS] = func(ctx *ExecContext, d *DecodedInstr) {
		if !d.Result.HasPredicate || ctx.Regs.Pred[d.Result.PredReg] != d.Result.InvertPredicate {
			ctx.Kill[ctx.sample()] = true
		}
	}
	opcodeTable[OpCMPKIL] = func(ctx *ExecContext, d *DecodedInstr) {
		if ctx.readScalar(d.Src1) < 0 {
			ctx.Kill[ctx.sample()] = true
		}
	}
	opcodeTable[OpZXP] = func(ctx *ExecContext, d *DecodedInstr) {
		ctx.ZExport[ctx.sample()] = ctx.readScalar(d.Src1)
	}
	opcodeTable[OpZXS] = func(ctx *ExecContext, d *DecodedInstr) {
		ctx.ZExport[ctx.sample()] = ctx.readScalar(d.Src1)
	}
	opcodeTable[OpCHS] = func(ctx *ExecContext, d *DecodedInstr) {
		ctx.SampleIndex++
	}

	// DDX/DDY, JMP, TEX family and END need cross-lane or cross-wavefront
	// state this per-thread ExecContext doesn't have; the front end
	// recognizes these opcodes directly (see frontend.go) and never calls
	// through opcodeTable for them. Their entries exist only so Decode
	// never rejects them as illegal.
	noop := func(ctx *ExecContext, d *DecodedInstr) {}
	opcodeTable[OpDDX] = noop
	opcodeTable[OpDDY] = noop
	opcodeTable[OpJMP] = noop
	opcodeTable[OpEND] = noop
	opcodeTable[OpTEX] = noop
	opcodeTable[OpTXB] = noop
	opcodeTable[OpTXP] = noop
	opcodeTable[OpTXL] = noop
	opcodeTable[OpLDA] = noop
}
