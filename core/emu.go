package core

import (
	"encoding/binary"

	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/otbn/accel"
)

type coreState struct {
	PC        uint32
	Registers []uint32
	CallStack []uint32

	IMem, DMem         *mem.Storage
	IMemSize, DMemSize uint32

	Running  bool
	ErrCode  accel.ErrCode
	NumInsts uint64
}

// reset prepares the state for a new execution starting at pc.
func (s *coreState) reset(pc uint32) {
	s.PC = pc
	for i := range s.Registers {
		s.Registers[i] = 0
	}
	s.CallStack = s.CallStack[:0]
	s.ErrCode = accel.ErrCodeNoError
	s.NumInsts = 0
	s.Running = true
}

type instEmulator struct {
}

// RunInst fetches and executes the instruction at the PC.
func (i instEmulator) RunInst(state *coreState) {
	if state.PC%accel.WordSize != 0 || state.PC+accel.WordSize > state.IMemSize {
		i.halt(state, accel.ErrCodeBadInsnAddr)
		return
	}

	word, err := i.loadWord(state.IMem, state.PC)
	if err != nil {
		i.halt(state, accel.ErrCodeBadInsnAddr)
		return
	}

	inst := Decode(word)
	state.NumInsts++

	instFuncs := map[Opcode]func(Inst, *coreState){
		OpNOP:   i.runNop,
		OpLI:    i.runLi,
		OpADD:   i.runAlu,
		OpSUB:   i.runAlu,
		OpXOR:   i.runAlu,
		OpMUL:   i.runAlu,
		OpADDI:  i.runAddi,
		OpLW:    i.runLw,
		OpSW:    i.runSw,
		OpBNEZ:  i.runBnez,
		OpJAL:   i.runJal,
		OpRET:   i.runRet,
		OpECALL: func(_ Inst, s *coreState) { i.halt(s, accel.ErrCodeNoError) },
	}

	instFunc, ok := instFuncs[inst.Op]
	if !ok || !i.regsValid(inst) {
		i.halt(state, accel.ErrCodeIllegalInsn)
		return
	}

	instFunc(inst, state)
}

func (i instEmulator) regsValid(inst Inst) bool {
	switch inst.Op {
	case OpNOP, OpJAL, OpRET, OpECALL:
		return true
	case OpLI, OpBNEZ:
		return inst.A < numRegs
	case OpADDI, OpLW, OpSW:
		return inst.A < numRegs && inst.B < numRegs
	default:
		return inst.A < numRegs && inst.B < numRegs && inst.C < numRegs
	}
}

func (i instEmulator) halt(state *coreState, code accel.ErrCode) {
	state.ErrCode = code
	state.Running = false
}

func (i instEmulator) loadWord(storage *mem.Storage, addr uint32) (uint32, error) {
	data, err := storage.Read(uint64(addr), accel.WordSize)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(data), nil
}

func (i instEmulator) writeReg(state *coreState, reg uint8, value uint32) {
	// $0 always reads zero.
	if reg == 0 {
		return
	}

	state.Registers[reg] = value
}

func (i instEmulator) dataAddrValid(state *coreState, addr uint32) bool {
	return addr%accel.WordSize == 0 &&
		uint64(addr)+accel.WordSize <= uint64(state.DMemSize)
}

func (i instEmulator) runNop(_ Inst, state *coreState) {
	state.PC += accel.WordSize
}

func (i instEmulator) runLi(inst Inst, state *coreState) {
	i.writeReg(state, inst.A, uint32(inst.Imm()))
	state.PC += accel.WordSize
}

func (i instEmulator) runAlu(inst Inst, state *coreState) {
	a := state.Registers[inst.B]
	b := state.Registers[inst.C]

	var result uint32
	switch inst.Op {
	case OpADD:
		result = a + b
	case OpSUB:
		result = a - b
	case OpXOR:
		result = a ^ b
	case OpMUL:
		result = a * b
	}

	i.writeReg(state, inst.A, result)
	state.PC += accel.WordSize
}

func (i instEmulator) runAddi(inst Inst, state *coreState) {
	imm := uint32(int32(int8(inst.C)))
	i.writeReg(state, inst.A, state.Registers[inst.B]+imm)
	state.PC += accel.WordSize
}

func (i instEmulator) runLw(inst Inst, state *coreState) {
	addr := state.Registers[inst.B]
	if !i.dataAddrValid(state, addr) {
		i.halt(state, accel.ErrCodeBadDataAddr)
		return
	}

	value, err := i.loadWord(state.DMem, addr)
	if err != nil {
		i.halt(state, accel.ErrCodeBadDataAddr)
		return
	}

	i.writeReg(state, inst.A, value)
	state.PC += accel.WordSize
}

func (i instEmulator) runSw(inst Inst, state *coreState) {
	addr := state.Registers[inst.B]
	if !i.dataAddrValid(state, addr) {
		i.halt(state, accel.ErrCodeBadDataAddr)
		return
	}

	data := make([]byte, accel.WordSize)
	binary.LittleEndian.PutUint32(data, state.Registers[inst.A])

	if err := state.DMem.Write(uint64(addr), data); err != nil {
		i.halt(state, accel.ErrCodeBadDataAddr)
		return
	}

	state.PC += accel.WordSize
}

func (i instEmulator) runBnez(inst Inst, state *coreState) {
	if state.Registers[inst.A] != 0 {
		state.PC = uint32(inst.Imm())
		return
	}

	state.PC += accel.WordSize
}

func (i instEmulator) runJal(inst Inst, state *coreState) {
	if len(state.CallStack) >= callStackSize {
		i.halt(state, accel.ErrCodeCallStack)
		return
	}

	state.CallStack = append(state.CallStack, state.PC+accel.WordSize)
	state.PC = uint32(inst.Imm())
}

func (i instEmulator) runRet(_ Inst, state *coreState) {
	n := len(state.CallStack)
	if n == 0 {
		i.halt(state, accel.ErrCodeCallStack)
		return
	}

	state.PC = state.CallStack[n-1]
	state.CallStack = state.CallStack[:n-1]
}
