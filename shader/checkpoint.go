package shader

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// checkpointMagic guards against restoring a blob that was never a register
// checkpoint.
const checkpointMagic = uint32(0x52464B50) // "RFKP"

// Checkpoint serializes the register file's banks to an opaque little-endian
// blob, the persisted-state format a trace driver writes and reads back
// (spec §6, "the emulator may checkpoint register banks to an opaque blob").
func (r *RegisterFile) Checkpoint() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, checkpointMagic)

	writeBank := func(bank [][4]float32) {
		binary.Write(&buf, binary.LittleEndian, uint32(len(bank)))
		for _, reg := range bank {
			for _, v := range reg {
				binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
			}
		}
	}
	writeBank(r.In)
	writeBank(r.Out)
	writeBank(r.Temp)
	writeBank(r.Addr)

	binary.Write(&buf, binary.LittleEndian, uint32(len(r.Pred)))
	for _, p := range r.Pred {
		b := byte(0)
		if p {
			b = 1
		}
		buf.WriteByte(b)
	}
	return buf.Bytes()
}

// RestoreCheckpoint replaces the register file's contents from a blob written
// by Checkpoint. A malformed blob is an invariant violation (spec §7): the
// only writer of this format is the core itself.
func (r *RegisterFile) RestoreCheckpoint(blob []byte) error {
	buf := bytes.NewReader(blob)

	var magic uint32
	if err := binary.Read(buf, binary.LittleEndian, &magic); err != nil || magic != checkpointMagic {
		return fmt.Errorf("shader: invariant violation: register checkpoint blob has bad magic")
	}

	readBank := func() ([][4]float32, error) {
		var n uint32
		if err := binary.Read(buf, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		bank := make([][4]float32, n)
		for i := range bank {
			for c := 0; c < 4; c++ {
				var bits uint32
				if err := binary.Read(buf, binary.LittleEndian, &bits); err != nil {
					return nil, err
				}
				bank[i][c] = math.Float32frombits(bits)
			}
		}
		return bank, nil
	}

	in, err := readBank()
	if err != nil {
		return fmt.Errorf("shader: invariant violation: truncated register checkpoint: %v", err)
	}
	out, err := readBank()
	if err != nil {
		return fmt.Errorf("shader: invariant violation: truncated register checkpoint: %v", err)
	}
	temp, err := readBank()
	if err != nil {
		return fmt.Errorf("shader: invariant violation: truncated register checkpoint: %v", err)
	}
	addr, err := readBank()
	if err != nil {
		return fmt.Errorf("shader: invariant violation: truncated register checkpoint: %v", err)
	}

	var np uint32
	if err := binary.Read(buf, binary.LittleEndian, &np); err != nil {
		return fmt.Errorf("shader: invariant violation: truncated register checkpoint: %v", err)
	}
	pred := make([]bool, np)
	for i := range pred {
		b, err := buf.ReadByte()
		if err != nil {
			return fmt.Errorf("shader: invariant violation: truncated register checkpoint: %v", err)
		}
		pred[i] = b != 0
	}

	r.In, r.Out, r.Temp, r.Addr, r.Pred = in, out, temp, addr, pred
	return nil
}
