package config_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/otbn/accel"
	"github.com/sarchlab/otbn/api"
	"github.com/sarchlab/otbn/appimage"
	"github.com/sarchlab/otbn/config"
	"github.com/sarchlab/otbn/core"
)

var _ = Describe("Device", func() {
	var dev *config.Device

	BeforeEach(func() {
		dev = config.DeviceBuilder{}.
			WithEngine(sim.NewSerialEngine()).
			WithFreq(1 * sim.GHz).
			WithIMemSize(128).
			WithDMemSize(32).
			Build("Device")
	})

	It("should refuse accesses before init", func() {
		Expect(dev.DMemWrite(0, []byte{0, 0, 0, 0})).NotTo(Succeed())
		_, err := dev.IsBusy()
		Expect(err).To(HaveOccurred())
	})

	It("should reject a zero base address", func() {
		Expect(dev.Init(accel.Config{})).NotTo(Succeed())
	})

	Context("when initialized", func() {
		BeforeEach(func() {
			Expect(dev.Init(accel.Config{BaseAddr: 0x4000_0000})).To(Succeed())
		})

		It("should report the memory sizes", func() {
			imem, err := dev.IMemSizeBytes()
			Expect(err).NotTo(HaveOccurred())
			Expect(imem).To(Equal(uint32(128)))

			dmem, err := dev.DMemSizeBytes()
			Expect(err).NotTo(HaveOccurred())
			Expect(dmem).To(Equal(uint32(32)))
		})

		It("should read back data memory", func() {
			Expect(dev.DMemWrite(8, []byte{1, 2, 3, 4, 5, 6, 7, 8})).To(Succeed())

			buf := make([]byte, 8)
			Expect(dev.DMemRead(8, buf)).To(Succeed())

			Expect(buf).To(Equal([]byte{1, 2, 3, 4, 5, 6, 7, 8}))
		})

		It("should reject unaligned and out of range accesses", func() {
			Expect(dev.DMemWrite(2, []byte{0, 0, 0, 0})).NotTo(Succeed())
			Expect(dev.DMemWrite(0, []byte{0, 0})).NotTo(Succeed())
			Expect(dev.DMemWrite(32, []byte{0, 0, 0, 0})).NotTo(Succeed())
			Expect(dev.IMemWrite(128, []byte{0, 0, 0, 0})).NotTo(Succeed())
			Expect(dev.Start(2)).NotTo(Succeed())
			Expect(dev.Start(128)).NotTo(Succeed())
		})

		It("should run a program until it is no longer busy", func() {
			prog, err := core.Assemble(`
				LI, $1, #42
				LI, $2, #4
				SW, $1, $2
				ECALL
			`)
			Expect(err).NotTo(HaveOccurred())
			Expect(dev.IMemWrite(0, prog.Bytes())).To(Succeed())

			Expect(dev.Start(0)).To(Succeed())
			busy, err := dev.IsBusy()
			Expect(err).NotTo(HaveOccurred())
			Expect(busy).To(BeFalse())

			code, err := dev.ErrCode()
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal(accel.ErrCodeNoError))

			buf := make([]byte, 4)
			Expect(dev.DMemRead(4, buf)).To(Succeed())
			Expect(buf).To(Equal([]byte{42, 0, 0, 0}))
		})

		It("should report faults through the error code", func() {
			prog, err := core.Assemble("LW, $1, $0\nLI, $2, #64\nLW, $1, $2\nECALL")
			Expect(err).NotTo(HaveOccurred())
			Expect(dev.IMemWrite(0, prog.Bytes())).To(Succeed())

			Expect(dev.Start(0)).To(Succeed())
			_, err = dev.IsBusy()
			Expect(err).NotTo(HaveOccurred())

			code, err := dev.ErrCode()
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal(accel.ErrCodeBadDataAddr))
		})
	})

	Context("when a program does not halt", func() {
		const spin = "spin:\n    LI, $1, #1\nloop:\n    BNEZ, $1, loop\n"

		BeforeEach(func() {
			dev = config.DeviceBuilder{}.
				WithPollCycles(64).
				WithIMemSize(128).
				WithDMemSize(32).
				Build("Device")
		})

		It("should simulate one poll budget per busy-status read", func() {
			Expect(dev.Init(accel.Config{BaseAddr: config.DefaultBaseAddr})).To(Succeed())
			prog, err := core.Assemble(spin)
			Expect(err).NotTo(HaveOccurred())
			Expect(dev.IMemWrite(0, prog.Bytes())).To(Succeed())
			Expect(dev.Start(0)).To(Succeed())

			for i := 1; i <= 3; i++ {
				busy, err := dev.IsBusy()
				Expect(err).NotTo(HaveOccurred())
				Expect(busy).To(BeTrue())
				Expect(dev.Core().NumInsts()).To(Equal(uint64(64 * i)))
			}
		})

		It("should let a driver give up at its deadline", func() {
			l := appimage.NewLinker(0x1000)
			Expect(l.AddSource("spin", spin, nil)).To(Succeed())
			img, err := l.Link()
			Expect(err).NotTo(HaveOccurred())

			driver, err := api.DriverBuilder{}.
				WithDevice(dev).
				WithHostMemory(img).
				WithConfig(accel.Config{BaseAddr: config.DefaultBaseAddr}).
				Build("Driver")
			Expect(err).NotTo(HaveOccurred())

			app, err := img.App("spin")
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.LoadApp(app)).To(Succeed())
			Expect(driver.Call(img.MustSymbol("spin", "spin"))).To(Succeed())

			done, err := driver.PollDone()
			Expect(err).NotTo(HaveOccurred())
			Expect(done).To(BeFalse())

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			err = driver.WaitForDoneContext(ctx)

			Expect(api.ResultOf(err)).To(Equal(api.ResultError))
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
			Expect(driver.State()).To(Equal(api.StateRunning))
		})
	})
})
