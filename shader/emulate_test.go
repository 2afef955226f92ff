package shader

import "testing"

// TestMADScenario matches spec §8 scenario 5: three TEMP registers preloaded
// with (1,2,3,4),(5,6,7,8),(9,10,11,12); MAD TEMP3, TEMP0, TEMP1, TEMP2 with
// no swizzle and mask 1111 is expected to write (14,22,32,44).
func TestMADScenario(t *testing.T) {
	regs := NewRegisterFile(0, 0, 4, 0, 0)
	regs.Temp[0] = [4]float32{1, 2, 3, 4}
	regs.Temp[1] = [4]float32{5, 6, 7, 8}
	regs.Temp[2] = [4]float32{9, 10, 11, 12}

	ctx := &ExecContext{Regs: regs, Param: &ParamBank{}}
	d, err := Decode(Instr{
		Op:     OpMAD,
		Src1:   Operand{Bank: BankTEMP, Index: 0, Swizzle: IdentitySwizzle},
		Src2:   Operand{Bank: BankTEMP, Index: 1, Swizzle: IdentitySwizzle},
		Src3:   Operand{Bank: BankTEMP, Index: 2, Swizzle: IdentitySwizzle},
		Result: ResultOperand{Bank: BankTEMP, Index: 3, Mask: FullMask},
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx.run(d)

	want := [4]float32{14, 22, 32, 44}
	if regs.Temp[3] != want {
		t.Fatalf("TEMP3 = %v, want %v", regs.Temp[3], want)
	}
}

func TestResultMaskRestrictsWrite(t *testing.T) {
	regs := NewRegisterFile(0, 0, 2, 0, 0)
	regs.Temp[1] = [4]float32{9, 9, 9, 9}
	ctx := &ExecContext{Regs: regs, Param: &ParamBank{}}
	d, err := Decode(Instr{
		Op:     OpMOV,
		Src1:   Operand{Bank: BankIMM, Imm: [4]float32{1, 2, 3, 4}, Swizzle: IdentitySwizzle},
		Result: ResultOperand{Bank: BankTEMP, Index: 1, Mask: Mask{true, false, true, false}},
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx.run(d)

	want := [4]float32{1, 9, 3, 9}
	if regs.Temp[1] != want {
		t.Fatalf("TEMP1 = %v, want %v (mask should leave y,w untouched)", regs.Temp[1], want)
	}
}

func TestPredicatedResultSuppressedWhenFalse(t *testing.T) {
	regs := NewRegisterFile(0, 0, 1, 0, 1)
	regs.Temp[0] = [4]float32{1, 1, 1, 1}
	regs.Pred[0] = false
	ctx := &ExecContext{Regs: regs, Param: &ParamBank{}}
	d, err := Decode(Instr{
		Op:   OpMOV,
		Src1: Operand{Bank: BankIMM, Imm: [4]float32{9, 9, 9, 9}, Swizzle: IdentitySwizzle},
		Result: ResultOperand{
			Bank: BankTEMP, Index: 0, Mask: FullMask,
			HasPredicate: true, PredReg: 0,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx.run(d)

	want := [4]float32{1, 1, 1, 1}
	if regs.Temp[0] != want {
		t.Fatalf("predicated-false write should be suppressed, got %v", regs.Temp[0])
	}
}

func TestSaturateClampsToUnitRange(t *testing.T) {
	regs := NewRegisterFile(0, 0, 1, 0, 0)
	ctx := &ExecContext{Regs: regs, Param: &ParamBank{}}
	d, err := Decode(Instr{
		Op:     OpMOV,
		Src1:   Operand{Bank: BankIMM, Imm: [4]float32{-1, 2, 0.5, 1}, Swizzle: IdentitySwizzle},
		Result: ResultOperand{Bank: BankTEMP, Index: 0, Mask: FullMask, Saturate: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx.run(d)

	want := [4]float32{0, 1, 0.5, 1}
	if regs.Temp[0] != want {
		t.Fatalf("saturated write = %v, want %v", regs.Temp[0], want)
	}
}

func TestIllegalOpcodeRejected(t *testing.T) {
	_, err := Decode(Instr{Op: Opcode(9999)})
	if err == nil {
		t.Fatal("expected illegal opcode error")
	}
}
