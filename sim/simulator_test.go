package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = Describe("Simulator", func() {

	var (
		mockCtrl  *gomock.Controller
		simulator *Simulator
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		simulator = NewSimulator()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should tick components in registration order", func() {
		order := make([]string, 0)

		comp1 := NewMockComponent(mockCtrl)
		comp1.EXPECT().Name().Return("Comp1").AnyTimes()
		comp1.EXPECT().Tick(VCycle(0)).DoAndReturn(func(VCycle) bool {
			order = append(order, "Comp1")
			return false
		})

		comp2 := NewMockComponent(mockCtrl)
		comp2.EXPECT().Name().Return("Comp2").AnyTimes()
		comp2.EXPECT().Tick(VCycle(0)).DoAndReturn(func(VCycle) bool {
			order = append(order, "Comp2")
			return false
		})

		simulator.AddComponent(comp1)
		simulator.AddComponent(comp2)

		simulator.TickOneCycle()

		Expect(order).To(Equal([]string{"Comp1", "Comp2"}))
		Expect(simulator.CurrentCycle()).To(Equal(VCycle(1)))
	})

	It("should propagate links after all components ticked", func() {
		link := NewLinkBuffer("Link", 4)

		producer := NewMockComponent(mockCtrl)
		producer.EXPECT().Name().Return("Producer").AnyTimes()
		producer.EXPECT().Tick(gomock.Any()).DoAndReturn(func(c VCycle) bool {
			if c == 0 {
				link.Push("elem")
				return true
			}
			return false
		}).Times(2)

		consumed := make([]interface{}, 0)
		consumer := NewMockComponent(mockCtrl)
		consumer.EXPECT().Name().Return("Consumer").AnyTimes()
		consumer.EXPECT().Tick(gomock.Any()).DoAndReturn(func(c VCycle) bool {
			if e := link.Pop(); e != nil {
				consumed = append(consumed, e)
				return true
			}
			return false
		}).Times(2)

		simulator.AddComponent(producer)
		simulator.AddComponent(consumer)
		simulator.AddBuffer(link)

		simulator.TickOneCycle()
		Expect(consumed).To(BeEmpty())

		simulator.TickOneCycle()
		Expect(consumed).To(HaveLen(1))
	})

	It("should stop when no component makes progress", func() {
		comp := NewMockComponent(mockCtrl)
		comp.EXPECT().Name().Return("Comp").AnyTimes()
		gomock.InOrder(
			comp.EXPECT().Tick(gomock.Any()).Return(true).Times(3),
			comp.EXPECT().Tick(gomock.Any()).Return(false),
		)

		simulator.AddComponent(comp)

		Expect(simulator.Run()).To(Succeed())
		Expect(simulator.CurrentCycle()).To(Equal(VCycle(4)))
	})

	It("should report a stall when progress stops with work in flight", func() {
		buf := NewBuffer("Buf", 4)
		buf.Push("stuck")

		comp := NewMockComponent(mockCtrl)
		comp.EXPECT().Name().Return("Comp").AnyTimes()
		comp.EXPECT().Tick(gomock.Any()).Return(false)

		simulator.AddComponent(comp)
		simulator.AddBuffer(buf)

		Expect(simulator.Run()).To(MatchError(ErrStalled))
	})

	It("should enforce the cycle bound", func() {
		comp := NewMockComponent(mockCtrl)
		comp.EXPECT().Name().Return("Comp").AnyTimes()
		comp.EXPECT().Tick(gomock.Any()).Return(true).Times(10)

		simulator.WithMaxCycles(10)
		simulator.AddComponent(comp)

		Expect(simulator.Run()).To(MatchError(ErrCycleLimit))
		Expect(simulator.CurrentCycle()).To(Equal(VCycle(10)))
	})

	It("should step one cycle while paused", func() {
		comp := NewMockComponent(mockCtrl)
		comp.EXPECT().Name().Return("Comp").AnyTimes()
		comp.EXPECT().Tick(gomock.Any()).Return(true).AnyTimes()
		simulator.AddComponent(comp)

		simulator.Pause()
		cycle := simulator.StepOneCycle()
		simulator.Continue()

		Expect(cycle).To(Equal(VCycle(1)))
		Expect(simulator.CurrentCycle()).To(Equal(VCycle(1)))
	})

	It("should step one cycle while not paused", func() {
		comp := NewMockComponent(mockCtrl)
		comp.EXPECT().Name().Return("Comp").AnyTimes()
		comp.EXPECT().Tick(gomock.Any()).Return(true).AnyTimes()
		simulator.AddComponent(comp)

		Expect(simulator.StepOneCycle()).To(Equal(VCycle(1)))
		Expect(simulator.StepOneCycle()).To(Equal(VCycle(2)))
	})

	It("should find components and buffers by name", func() {
		comp := NewMockComponent(mockCtrl)
		comp.EXPECT().Name().Return("Comp").AnyTimes()
		buf := NewBuffer("Buf", 1)

		simulator.AddComponent(comp)
		simulator.AddBuffer(buf)

		Expect(simulator.GetComponentByName("Comp")).To(BeIdenticalTo(comp))
		Expect(simulator.GetBufferByName("Buf")).To(BeIdenticalTo(buf))
		Expect(simulator.GetBufferByName("Missing")).To(BeNil())
	})

	It("should reject duplicated names", func() {
		buf1 := NewBuffer("Buf", 1)
		buf2 := NewBuffer("Buf", 1)

		simulator.AddBuffer(buf1)

		Expect(func() { simulator.AddBuffer(buf2) }).To(Panic())
	})
})
