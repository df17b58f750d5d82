package pipeline

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SecOpsGit/EXEgesis/machine"
	"github.com/SecOpsGit/EXEgesis/sim"
)

var _ = Describe("RegisterRenamer", func() {
	var (
		tracker *sim.ExecDepsBuffer
		in      sim.Buffer
		out     sim.Buffer
		renamer *RegisterRenamer
	)

	BeforeEach(func() {
		tracker = sim.NewExecDepsBuffer("OutputsAvailable")
		in = sim.NewBuffer("DecodeQueue", 8)
		out = sim.NewBuffer("RenamedUops", 8)
		renamer = NewRegisterRenamer("Renamer",
			RenamerConfig{Width: 4, NumPhysRegs: 100},
			tracker, in, out)
	})

	It("should allocate tags in program order", func() {
		in.Push(Uop{Opcode: "ADD"})
		in.Push(Uop{Opcode: "ADD"})

		renamer.Tick(0)

		Expect(out.Pop().(RenamedUop).Tag).To(Equal(uint64(1)))
		Expect(out.Pop().(RenamedUop).Tag).To(Equal(uint64(2)))
	})

	It("should record a read-after-write dependency", func() {
		in.Push(Uop{Opcode: "ADD", Defs: []machine.Register{"EAX"}})
		in.Push(Uop{Opcode: "MUL", Uses: []machine.Register{"EAX"}})

		renamer.Tick(0)

		out.Pop()
		consumer := out.Pop().(RenamedUop)
		Expect(consumer.Deps).To(Equal([]uint64{1}))
	})

	It("should track only the youngest producer of a register", func() {
		in.Push(Uop{Opcode: "ADD", Defs: []machine.Register{"EAX"}})
		in.Push(Uop{Opcode: "ADD", Defs: []machine.Register{"EAX"}})
		in.Push(Uop{Opcode: "MUL", Uses: []machine.Register{"EAX"}})

		renamer.Tick(0)

		out.Pop()
		out.Pop()
		consumer := out.Pop().(RenamedUop)
		Expect(consumer.Deps).To(Equal([]uint64{2}))
	})

	It("should not depend on a register with no in-flight producer", func() {
		in.Push(Uop{Opcode: "MUL", Uses: []machine.Register{"EBX"}})

		renamer.Tick(0)

		Expect(out.Pop().(RenamedUop).Deps).To(BeEmpty())
	})

	It("should drop dependencies on committed producers", func() {
		in.Push(Uop{Opcode: "ADD", Defs: []machine.Register{"EAX"}})
		renamer.Tick(0)
		out.Pop()
		tracker.MarkCommitted(1)

		in.Push(Uop{Opcode: "MUL", Uses: []machine.Register{"EAX"}})
		renamer.Tick(1)

		Expect(out.Pop().(RenamedUop).Deps).To(BeEmpty())
	})

	It("should stall when the physical registers are exhausted", func() {
		renamer = NewRegisterRenamer("SmallRenamer",
			RenamerConfig{Width: 4, NumPhysRegs: 2},
			tracker, in, out)
		for i := 0; i < 3; i++ {
			in.Push(Uop{Opcode: "ADD"})
		}

		renamer.Tick(0)

		Expect(out.Size()).To(Equal(2))
		Expect(in.Size()).To(Equal(1))

		// A commit frees one rename, letting the stalled uop through.
		tracker.MarkCommitted(1)
		madeProgress := renamer.Tick(1)

		Expect(madeProgress).To(BeTrue())
		Expect(out.Size()).To(Equal(3))
	})

	It("should rename at most the width per cycle", func() {
		renamer = NewRegisterRenamer("NarrowRenamer",
			RenamerConfig{Width: 2, NumPhysRegs: 100},
			tracker, in, out)
		for i := 0; i < 3; i++ {
			in.Push(Uop{Opcode: "ADD"})
		}

		renamer.Tick(0)

		Expect(out.Size()).To(Equal(2))
		Expect(in.Size()).To(Equal(1))
	})
})
