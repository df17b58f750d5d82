package pipeline

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/SecOpsGit/EXEgesis/sim"
)

var _ = Describe("Retirer", func() {
	var (
		mockCtrl *gomock.Controller
		in       sim.Buffer
		out      sim.Buffer
		sink     *MockInstructionSink
		retirer  *Retirer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		in = sim.NewBuffer("ReadyToRetireUops", 8)
		out = sim.NewBuffer("RetiredUops", 8)
		sink = NewMockInstructionSink(mockCtrl)
		retirer = NewRetirer("Retirer",
			RetirerConfig{Width: 2}, in, out, sink)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should confirm every committed uop", func() {
		in.Push(RenamedUop{Tag: 1})
		in.Push(RenamedUop{Tag: 2})

		madeProgress := retirer.Tick(10)

		Expect(madeProgress).To(BeTrue())
		Expect(out.Pop().(RenamedUop).Tag).To(Equal(uint64(1)))
		Expect(out.Pop().(RenamedUop).Tag).To(Equal(uint64(2)))
	})

	It("should report an instruction when its last uop commits", func() {
		index := InstructionIndex{Iteration: 2, Offset: 3}
		in.Push(RenamedUop{Tag: 1})
		in.Push(RenamedUop{
			Tag: 2,
			Uop: Uop{Index: index, EndOfInstruction: true},
		})
		sink.EXPECT().
			Retire(RetiredInstruction{Index: index, Cycle: 10})

		retirer.Tick(10)
	})

	It("should commit at most the width per cycle", func() {
		for tag := uint64(1); tag <= 3; tag++ {
			in.Push(RenamedUop{Tag: tag})
		}

		retirer.Tick(0)

		Expect(out.Size()).To(Equal(2))
		Expect(in.Size()).To(Equal(1))
	})

	It("should stall when the confirmation link is full", func() {
		out = sim.NewBuffer("TinyRetired", 1)
		retirer = NewRetirer("StalledRetirer",
			RetirerConfig{Width: 2}, in, out, sink)
		out.Push(RenamedUop{Tag: 99})
		in.Push(RenamedUop{Tag: 1})

		madeProgress := retirer.Tick(0)

		Expect(madeProgress).To(BeFalse())
		Expect(in.Size()).To(Equal(1))
	})
})
