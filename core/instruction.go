package core

import "fmt"

// Opcode is the top byte of an instruction word.
//
// An instruction word is laid out as op[31:24] a[23:16] b[15:8] c[7:0]. The
// immediate forms use the lower half word as imm16.
type Opcode uint8

const (
	OpNOP   Opcode = 0x00
	OpLI    Opcode = 0x01
	OpADD   Opcode = 0x02
	OpSUB   Opcode = 0x03
	OpXOR   Opcode = 0x04
	OpMUL   Opcode = 0x05
	OpADDI  Opcode = 0x06
	OpLW    Opcode = 0x07
	OpSW    Opcode = 0x08
	OpBNEZ  Opcode = 0x09
	OpJAL   Opcode = 0x0a
	OpRET   Opcode = 0x0b
	OpECALL Opcode = 0x0c
)

const (
	numRegs       = 32
	callStackSize = 8
)

var opNames = map[Opcode]string{
	OpNOP:   "NOP",
	OpLI:    "LI",
	OpADD:   "ADD",
	OpSUB:   "SUB",
	OpXOR:   "XOR",
	OpMUL:   "MUL",
	OpADDI:  "ADDI",
	OpLW:    "LW",
	OpSW:    "SW",
	OpBNEZ:  "BNEZ",
	OpJAL:   "JAL",
	OpRET:   "RET",
	OpECALL: "ECALL",
}

// Inst is a decoded instruction word.
type Inst struct {
	Op      Opcode
	A, B, C uint8
}

// Decode splits an instruction word into its fields.
func Decode(word uint32) Inst {
	return Inst{
		Op: Opcode(word >> 24),
		A:  uint8(word >> 16),
		B:  uint8(word >> 8),
		C:  uint8(word),
	}
}

// Encode packs the fields into an instruction word.
func (i Inst) Encode() uint32 {
	return uint32(i.Op)<<24 | uint32(i.A)<<16 | uint32(i.B)<<8 | uint32(i.C)
}

// Imm returns the 16-bit immediate of the immediate forms.
func (i Inst) Imm() uint16 {
	return uint16(i.B)<<8 | uint16(i.C)
}

// NewImmInst creates an instruction that carries a 16-bit immediate.
func NewImmInst(op Opcode, a uint8, imm uint16) Inst {
	return Inst{Op: op, A: a, B: uint8(imm >> 8), C: uint8(imm)}
}

func (i Inst) String() string {
	name, ok := opNames[i.Op]
	if !ok {
		return fmt.Sprintf("?%#02x", uint8(i.Op))
	}

	switch i.Op {
	case OpNOP, OpRET, OpECALL:
		return name
	case OpLI:
		return fmt.Sprintf("%s, $%d, #%d", name, i.A, i.Imm())
	case OpADDI:
		return fmt.Sprintf("%s, $%d, $%d, #%d", name, i.A, i.B, int8(i.C))
	case OpLW, OpSW:
		return fmt.Sprintf("%s, $%d, $%d", name, i.A, i.B)
	case OpBNEZ:
		return fmt.Sprintf("%s, $%d, #%d", name, i.A, i.Imm())
	case OpJAL:
		return fmt.Sprintf("%s, #%d", name, i.Imm())
	default:
		return fmt.Sprintf("%s, $%d, $%d, $%d", name, i.A, i.B, i.C)
	}
}
