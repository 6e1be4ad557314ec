package core

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sarchlab/otbn/accel"
)

// Program is an assembled instruction memory image.
type Program struct {
	Words []uint32

	// Labels maps label names to byte offsets in the image.
	Labels map[string]uint32
}

// Bytes returns the little-endian memory image of the program.
func (p Program) Bytes() []byte {
	buf := make([]byte, len(p.Words)*accel.WordSize)
	for i, w := range p.Words {
		binary.LittleEndian.PutUint32(buf[i*accel.WordSize:], w)
	}

	return buf
}

type operandKind int

const (
	operandReg operandKind = iota
	operandImm16
	operandImm8
	operandTarget
)

type instFormat struct {
	op       Opcode
	operands []operandKind
}

var instFormats = map[string]instFormat{
	"NOP":   {OpNOP, nil},
	"LI":    {OpLI, []operandKind{operandReg, operandImm16}},
	"ADD":   {OpADD, []operandKind{operandReg, operandReg, operandReg}},
	"SUB":   {OpSUB, []operandKind{operandReg, operandReg, operandReg}},
	"XOR":   {OpXOR, []operandKind{operandReg, operandReg, operandReg}},
	"MUL":   {OpMUL, []operandKind{operandReg, operandReg, operandReg}},
	"ADDI":  {OpADDI, []operandKind{operandReg, operandReg, operandImm8}},
	"LW":    {OpLW, []operandKind{operandReg, operandReg}},
	"SW":    {OpSW, []operandKind{operandReg, operandReg}},
	"BNEZ":  {OpBNEZ, []operandKind{operandReg, operandTarget}},
	"JAL":   {OpJAL, []operandKind{operandTarget}},
	"RET":   {OpRET, nil},
	"ECALL": {OpECALL, nil},
}

type asmLine struct {
	num    int
	tokens []string
}

// Assemble translates assembly text into a program. Each line holds an
// optional "label:" and an optional instruction written as comma-separated
// tokens, e.g. "ADD, $3, $1, $2". Registers are $0-$31, immediates are #n and
// branch targets are labels or #byte-offset. Text after ';' is a comment.
func Assemble(src string) (Program, error) {
	prog := Program{Labels: make(map[string]uint32)}

	var lines []asmLine
	for i, raw := range strings.Split(src, "\n") {
		line := raw
		if idx := strings.Index(line, ";"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)

		if idx := strings.Index(line, ":"); idx >= 0 {
			label := strings.TrimSpace(line[:idx])
			if !isIdent(label) {
				return Program{}, fmt.Errorf("line %d: invalid label %q", i+1, label)
			}
			if _, dup := prog.Labels[label]; dup {
				return Program{}, fmt.Errorf("line %d: duplicate label %q", i+1, label)
			}
			prog.Labels[label] = uint32(len(lines) * accel.WordSize)
			line = strings.TrimSpace(line[idx+1:])
		}

		if line == "" {
			continue
		}

		tokens := strings.Split(line, ",")
		for j := range tokens {
			tokens[j] = strings.TrimSpace(tokens[j])
		}
		lines = append(lines, asmLine{num: i + 1, tokens: tokens})
	}

	for _, l := range lines {
		word, err := encodeLine(l.tokens, prog.Labels)
		if err != nil {
			return Program{}, fmt.Errorf("line %d: %w", l.num, err)
		}
		prog.Words = append(prog.Words, word)
	}

	return prog, nil
}

func encodeLine(tokens []string, labels map[string]uint32) (uint32, error) {
	name := strings.ToUpper(tokens[0])
	format, ok := instFormats[name]
	if !ok {
		return 0, fmt.Errorf("unknown instruction %q", tokens[0])
	}

	args := tokens[1:]
	if len(args) != len(format.operands) {
		return 0, fmt.Errorf("%s expects %d operands, got %d",
			name, len(format.operands), len(args))
	}

	fields := make([]uint8, 0, 3)
	var imm uint16
	hasImm := false

	for i, kind := range format.operands {
		switch kind {
		case operandReg:
			reg, err := parseReg(args[i])
			if err != nil {
				return 0, err
			}
			fields = append(fields, reg)
		case operandImm8:
			v, err := parseImm(args[i], math.MinInt8, math.MaxInt8)
			if err != nil {
				return 0, err
			}
			fields = append(fields, uint8(int8(v)))
		case operandImm16:
			v, err := parseImm(args[i], 0, math.MaxUint16)
			if err != nil {
				return 0, err
			}
			imm, hasImm = uint16(v), true
		case operandTarget:
			v, err := parseTarget(args[i], labels)
			if err != nil {
				return 0, err
			}
			imm, hasImm = v, true
		}
	}

	if hasImm {
		var a uint8
		if len(fields) > 0 {
			a = fields[0]
		}
		return NewImmInst(format.op, a, imm).Encode(), nil
	}

	for len(fields) < 3 {
		fields = append(fields, 0)
	}

	return Inst{Op: format.op, A: fields[0], B: fields[1], C: fields[2]}.Encode(), nil
}

func parseReg(tok string) (uint8, error) {
	if !strings.HasPrefix(tok, "$") {
		return 0, fmt.Errorf("expected register, got %q", tok)
	}

	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 0 || n >= numRegs {
		return 0, fmt.Errorf("invalid register %q", tok)
	}

	return uint8(n), nil
}

func parseImm(tok string, lo, hi int64) (int64, error) {
	if !strings.HasPrefix(tok, "#") {
		return 0, fmt.Errorf("expected immediate, got %q", tok)
	}

	v, err := strconv.ParseInt(tok[1:], 0, 64)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("invalid immediate %q", tok)
	}

	return v, nil
}

func parseTarget(tok string, labels map[string]uint32) (uint16, error) {
	if strings.HasPrefix(tok, "#") {
		v, err := parseImm(tok, 0, math.MaxUint16)
		return uint16(v), err
	}

	offset, ok := labels[tok]
	if !ok {
		return 0, fmt.Errorf("undefined label %q", tok)
	}

	if offset > math.MaxUint16 {
		return 0, fmt.Errorf("label %q out of branch range", tok)
	}

	return uint16(offset), nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}

	return true
}
