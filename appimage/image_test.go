package appimage_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/otbn/api"
	"github.com/sarchlab/otbn/appimage"
)

const twoFuncs = `
first:
    NOP
    ECALL
second:
    ECALL
`

var _ = Describe("Linker", func() {
	It("should place the instruction image before the data image", func() {
		l := appimage.NewLinker(0x1000)
		Expect(l.AddSource("a", twoFuncs, []appimage.DataSection{
			{Label: "in", Words: []uint32{1, 2}},
			{Label: "out", Zero: 3},
		})).To(Succeed())

		img, err := l.Link()
		Expect(err).NotTo(HaveOccurred())

		app, err := img.App("a")
		Expect(err).NotTo(HaveOccurred())
		Expect(*app).To(Equal(api.App{
			Name:      "a",
			IMemStart: 0x1000,
			IMemEnd:   0x100c,
			DMemStart: 0x100c,
			DMemEnd:   0x1020,
		}))
		Expect(app.Validate()).To(Succeed())

		Expect(img.Symbol("a", "second")).To(Equal(api.Ptr(0x1008)))
		Expect(img.Symbol("a", "in")).To(Equal(api.Ptr(0x100c)))
		Expect(img.Symbol("a", "out")).To(Equal(api.Ptr(0x1014)))
		Expect(img.End()).To(Equal(api.Ptr(0x1020)))

		in, err := img.Read(0x100c, 8)
		Expect(err).NotTo(HaveOccurred())
		Expect(binary.LittleEndian.Uint32(in[4:])).To(Equal(uint32(2)))
	})

	It("should link applications one after another", func() {
		var l appimage.Linker
		Expect(l.AddSource("a", twoFuncs, nil)).To(Succeed())
		Expect(l.AddSource("b", "ECALL", nil)).To(Succeed())

		img, err := l.Link()
		Expect(err).NotTo(HaveOccurred())

		a, _ := img.App("a")
		b, _ := img.App("b")
		Expect(a.IMemStart).To(Equal(appimage.DefaultBase))
		Expect(a.DMemSize()).To(BeZero())
		Expect(b.IMemStart).To(Equal(a.DMemEnd))
		Expect(img.AppNames()).To(Equal([]string{"a", "b"}))
	})

	It("should reject invalid applications", func() {
		l := appimage.NewLinker(0x1000)
		Expect(l.AddSource("", "ECALL", nil)).NotTo(Succeed())
		Expect(l.AddSource("empty", "; nothing", nil)).NotTo(Succeed())
		Expect(l.AddSource("bad", "FOO", nil)).NotTo(Succeed())
		Expect(l.AddSource("neg", "ECALL",
			[]appimage.DataSection{{Label: "x", Zero: -1}})).NotTo(Succeed())

		Expect(l.AddSource("a", "ECALL", nil)).To(Succeed())
		Expect(l.AddSource("a", "ECALL", nil)).NotTo(Succeed())
	})

	It("should reject a data label that shadows a function", func() {
		l := appimage.NewLinker(0x1000)
		Expect(l.AddSource("a", twoFuncs,
			[]appimage.DataSection{{Label: "first", Words: []uint32{1}}})).
			To(Succeed())

		_, err := l.Link()
		Expect(err).To(MatchError(ContainSubstring("duplicate symbol")))
	})
})

var _ = Describe("Image", func() {
	var img *appimage.Image

	BeforeEach(func() {
		l := appimage.NewLinker(0x1000)
		Expect(l.AddSource("a", twoFuncs,
			[]appimage.DataSection{{Label: "buf", Zero: 1}})).To(Succeed())

		var err error
		img, err = l.Link()
		Expect(err).NotTo(HaveOccurred())
	})

	It("should hand out copies", func() {
		data, err := img.Read(0x100c, 4)
		Expect(err).NotTo(HaveOccurred())
		data[0] = 0xff

		again, _ := img.Read(0x100c, 4)
		Expect(again).To(Equal([]byte{0, 0, 0, 0}))
	})

	DescribeTable("should refuse reads outside the image",
		func(addr api.Ptr, n uint64) {
			_, err := img.Read(addr, n)
			Expect(err).To(HaveOccurred())
		},
		Entry("before the base", api.Ptr(0xffc), uint64(4)),
		Entry("past the end", api.Ptr(0x100c), uint64(8)),
		Entry("beyond the end", api.Ptr(0x2000), uint64(0)),
		Entry("huge length", api.Ptr(0x1000), ^uint64(0)),
	)

	It("should allow an empty read at the end", func() {
		data, err := img.Read(img.End(), 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(BeEmpty())
	})

	It("should report unknown names", func() {
		_, err := img.App("x")
		Expect(err).To(HaveOccurred())
		_, err = img.Symbol("x", "first")
		Expect(err).To(HaveOccurred())
		_, err = img.Symbol("a", "x")
		Expect(err).To(HaveOccurred())
		Expect(func() { img.MustSymbol("a", "x") }).To(Panic())
	})
})

var _ = Describe("Manifest", func() {
	It("should link inline programs", func() {
		m, err := appimage.ParseManifest([]byte(`
base: 0x4000
apps:
  - name: sum
    asm: |
      entry:
          ECALL
    data:
      - label: x
        words: [7, 8]
`))
		Expect(err).NotTo(HaveOccurred())

		img, err := m.Link()
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Symbol("sum", "entry")).To(Equal(api.Ptr(0x4000)))
		Expect(img.Symbol("sum", "x")).To(Equal(api.Ptr(0x4004)))
	})

	It("should read programs relative to the manifest", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "k.s"),
			[]byte("main:\n    ECALL\n"), 0o644)).To(Succeed())
		path := filepath.Join(dir, "apps.yaml")
		Expect(os.WriteFile(path,
			[]byte("apps:\n  - name: k\n    asm_file: k.s\n"), 0o644)).To(Succeed())

		m, err := appimage.LoadManifest(path)
		Expect(err).NotTo(HaveOccurred())

		img, err := m.Link()
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Symbol("k", "main")).To(Equal(appimage.DefaultBase))
	})

	DescribeTable("should reject bad manifests",
		func(text string) {
			m, err := appimage.ParseManifest([]byte(text))
			if err == nil {
				_, err = m.Link()
			}
			Expect(err).To(HaveOccurred())
		},
		Entry("no apps", "apps: []\n"),
		Entry("not yaml", "apps: [\n"),
		Entry("no program", "apps:\n  - name: a\n"),
		Entry("two programs", "apps:\n  - name: a\n    asm: ECALL\n    asm_file: a.s\n"),
		Entry("missing file", "apps:\n  - name: a\n    asm_file: /nonexistent/a.s\n"),
	)
})
