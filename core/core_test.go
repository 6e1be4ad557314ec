package core_test

import (
	"bytes"
	"encoding/binary"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/otbn/accel"
	"github.com/sarchlab/otbn/core"
)

const sumKernel = `
; sums n words starting at data offset 0 and stores the sum after them
sum:
    LI, $1, #0          ; address
    LI, $2, #4          ; n
    LI, $3, #0          ; acc
loop:
    LW, $4, $1
    ADD, $3, $3, $4
    ADDI, $1, $1, #4
    ADDI, $2, $2, #-1
    BNEZ, $2, loop
    SW, $3, $1
    ECALL
fault:
    LI, $1, #2
    LW, $2, $1
    ECALL
`

var _ = Describe("Core", func() {
	var (
		engine sim.Engine
		c      *core.Core
		prog   core.Program
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		c = core.NewBuilder().
			WithEngine(engine).
			WithFreq(1 * sim.GHz).
			WithIMemSize(256).
			WithDMemSize(64).
			Build("Core")

		var err error
		prog, err = core.Assemble(sumKernel)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.WriteIMem(0, prog.Bytes())).To(Succeed())
	})

	It("should run a kernel to completion", func() {
		data := make([]byte, 16)
		for i := 0; i < 4; i++ {
			binary.LittleEndian.PutUint32(data[i*4:], uint32(i+1))
		}
		Expect(c.WriteDMem(0, data)).To(Succeed())

		Expect(c.Start(prog.Labels["sum"])).To(Succeed())
		Expect(c.IsBusy()).To(BeTrue())
		Expect(engine.Run()).To(Succeed())

		Expect(c.IsBusy()).To(BeFalse())
		Expect(c.ErrCode()).To(Equal(accel.ErrCodeNoError))

		out, err := c.ReadDMem(16, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(binary.LittleEndian.Uint32(out)).To(Equal(uint32(10)))
		Expect(c.NumInsts()).To(BeNumerically(">", 20))
	})

	It("should latch the fault of a failed execution", func() {
		Expect(c.Start(prog.Labels["fault"])).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		Expect(c.IsBusy()).To(BeFalse())
		Expect(c.ErrCode()).To(Equal(accel.ErrCodeBadDataAddr))
	})

	It("should clear the error code on the next start", func() {
		Expect(c.Start(prog.Labels["fault"])).To(Succeed())
		Expect(engine.Run()).To(Succeed())
		Expect(c.Start(prog.Labels["sum"])).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		Expect(c.ErrCode()).To(Equal(accel.ErrCodeNoError))
	})

	It("should pause when the cycle budget is used up", func() {
		spin, err := core.Assemble("LI, $1, #1\nloop:\nBNEZ, $1, loop")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.WriteIMem(0, spin.Bytes())).To(Succeed())

		Expect(c.Start(0)).To(Succeed())
		c.RunFor(10)
		Expect(engine.Run()).To(Succeed())

		Expect(c.IsBusy()).To(BeTrue())
		Expect(c.NumInsts()).To(Equal(uint64(10)))

		c.RunFor(5)
		Expect(engine.Run()).To(Succeed())

		Expect(c.IsBusy()).To(BeTrue())
		Expect(c.NumInsts()).To(Equal(uint64(15)))
	})

	It("should lock the memories while busy", func() {
		Expect(c.Start(0)).To(Succeed())

		Expect(c.WriteDMem(0, []byte{1, 2, 3, 4})).To(MatchError(core.ErrBusy))
		Expect(c.WriteIMem(0, []byte{1, 2, 3, 4})).To(MatchError(core.ErrBusy))
		Expect(c.Start(0)).To(MatchError(core.ErrBusy))
		_, err := c.ReadDMem(0, 4)
		Expect(err).To(MatchError(core.ErrBusy))

		Expect(engine.Run()).To(Succeed())
	})

	It("should reject accesses beyond the memories", func() {
		Expect(c.WriteDMem(60, make([]byte, 8))).NotTo(Succeed())
		Expect(c.WriteIMem(256, []byte{0})).NotTo(Succeed())
		_, err := c.ReadDMem(64, 1)
		Expect(err).To(HaveOccurred())
	})

	It("should dump its registers", func() {
		Expect(c.Start(prog.Labels["sum"])).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		var buf bytes.Buffer
		c.DumpState(&buf)

		Expect(buf.String()).To(ContainSubstring("$24"))
		Expect(buf.String()).To(ContainSubstring("NoError"))
		Expect(c.Registers()[3]).To(Equal(uint32(0)))
	})
})
