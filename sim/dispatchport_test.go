package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DispatchPort", func() {

	var (
		port *DispatchPort
	)

	BeforeEach(func() {
		port = NewDispatchPort("Port", 2, InfiniteCapacity)
	})

	It("should accept at most NumUnits elements per cycle", func() {
		Expect(port.NumUnits()).To(Equal(2))

		port.Push(1)
		port.Push(2)

		Expect(port.CanPush()).To(BeFalse())
		Expect(func() { port.Push(3) }).To(Panic())

		port.Propagate()

		Expect(port.CanPush()).To(BeTrue())
		port.Push(3)
	})

	It("should hide accepted elements until propagation", func() {
		port.Push(1)

		Expect(port.Pop()).To(BeNil())

		port.Propagate()

		Expect(port.Pop()).To(Equal(1))
	})

	It("should respect the total buffer capacity", func() {
		port = NewDispatchPort("Port", 2, 3)

		port.Push(1)
		port.Push(2)
		port.Propagate()
		port.Push(3)

		Expect(port.CanPush()).To(BeFalse())

		Expect(port.Pop()).To(Equal(1))
		Expect(port.CanPush()).To(BeTrue())
	})

	It("should reject invalid configurations", func() {
		Expect(func() { NewDispatchPort("Bad", 0, 4) }).To(Panic())
		Expect(func() { NewDispatchPort("Bad", 1, 0) }).To(Panic())
	})
})
