package pipeline

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/SecOpsGit/EXEgesis/sim"
)

var _ = Describe("Fetcher", func() {
	var (
		mockCtrl *gomock.Controller
		source   *MockInstructionSource
		out      sim.Buffer
		fetcher  *Fetcher
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		source = NewMockInstructionSource(mockCtrl)
		out = sim.NewBuffer("FetchBuffer", 4)
		fetcher = NewFetcher("Fetcher",
			FetcherConfig{Width: 2}, source, out)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should fetch up to the width per cycle", func() {
		gomock.InOrder(
			source.EXPECT().Peek().
				Return(InstructionIndex{Offset: 0}, true),
			source.EXPECT().Consume(),
			source.EXPECT().Peek().
				Return(InstructionIndex{Offset: 1}, true),
			source.EXPECT().Consume(),
		)

		madeProgress := fetcher.Tick(0)

		Expect(madeProgress).To(BeTrue())
		Expect(out.Size()).To(Equal(2))
		Expect(out.Pop()).To(Equal(InstructionIndex{Offset: 0}))
		Expect(out.Pop()).To(Equal(InstructionIndex{Offset: 1}))
	})

	It("should stop when the source is exhausted", func() {
		source.EXPECT().Peek().Return(InstructionIndex{}, false)

		madeProgress := fetcher.Tick(0)

		Expect(madeProgress).To(BeFalse())
		Expect(out.Size()).To(Equal(0))
	})

	It("should stall without consuming when the buffer is full", func() {
		for i := 0; i < 4; i++ {
			out.Push(InstructionIndex{Offset: i})
		}
		source.EXPECT().Peek().
			Return(InstructionIndex{Offset: 4}, true)

		madeProgress := fetcher.Tick(0)

		Expect(madeProgress).To(BeFalse())
		Expect(out.Size()).To(Equal(4))
	})

	It("should reject a non-positive width", func() {
		Expect(func() {
			NewFetcher("BadFetcher", FetcherConfig{Width: 0}, source, out)
		}).To(Panic())
	})
})
