package pipeline

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SecOpsGit/EXEgesis/machine"
	"github.com/SecOpsGit/EXEgesis/sim"
)

// occupancyHook samples the reorder buffer occupancy after every cycle.
type occupancyHook struct {
	rob *ReorderBuffer
	max int
}

func (h *occupancyHook) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosAfterCycle {
		return
	}

	if len(h.rob.entries) > h.max {
		h.max = len(h.rob.entries)
	}
}

// pushRateHook counts the pushes into one buffer per cycle. It must be
// registered on both the buffer and the simulator.
type pushRateHook struct {
	perCycle int
	max      int
}

func (h *pushRateHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case sim.HookPosBufPush:
		h.perCycle++
	case sim.HookPosAfterCycle:
		if h.perCycle > h.max {
			h.max = h.perCycle
		}
		h.perCycle = 0
	}
}

var _ = Describe("Processor", func() {
	var ctx *machine.GlobalContext

	build := func(builder Builder) *Processor {
		processor, err := builder.Build("CPU")
		Expect(err).ToNot(HaveOccurred())
		return processor
	}

	expectProgramOrder := func(retired []RetiredInstruction, block *Block) {
		for i, inst := range retired {
			Expect(inst.Index.Iteration).To(
				Equal(i/len(block.Insts)), "retirement %d", i)
			Expect(inst.Index.Offset).To(
				Equal(i%len(block.Insts)), "retirement %d", i)
		}

		for i := 1; i < len(retired); i++ {
			Expect(retired[i].Cycle).To(
				BeNumerically(">=", retired[i-1].Cycle))
		}
	}

	BeforeEach(func() {
		ctx = testContext()
	})

	It("should retire independent instructions at the port rate", func() {
		block := &Block{Insts: []Instruction{{Opcode: "ADD"}}}
		processor := build(MakeBuilder().
			WithContext(ctx).
			WithBlock(block).
			WithIterations(40))

		err := processor.Run()

		Expect(err).ToNot(HaveOccurred())

		retired := processor.RetirementLog().Retired()
		Expect(retired).To(HaveLen(40))
		expectProgramOrder(retired, block)

		// Two single-unit ports bound the throughput at two per cycle,
		// and nothing else holds the pipeline back.
		span := retired[39].Cycle - retired[0].Cycle
		Expect(span).To(BeNumerically(">=", 19))
		Expect(span).To(BeNumerically("<=", 22))
	})

	It("should space a dependency chain by the latency", func() {
		block := &Block{Insts: []Instruction{{
			Opcode: "MUL",
			Uses:   []machine.Register{"EAX"},
			Defs:   []machine.Register{"EAX"},
		}}}
		processor := build(MakeBuilder().
			WithContext(ctx).
			WithBlock(block).
			WithIterations(10))

		err := processor.Run()

		Expect(err).ToNot(HaveOccurred())

		retired := processor.RetirementLog().Retired()
		Expect(retired).To(HaveLen(10))

		// Each hop costs the 3-cycle latency plus one cycle for the
		// staged dispatch port, exactly.
		for i := 1; i < len(retired); i++ {
			gap := retired[i].Cycle - retired[i-1].Cycle
			Expect(gap).To(BeNumerically("==", 4), "retirement %d", i)
		}
	})

	It("should lose nothing under heavy backpressure", func() {
		block := &Block{Insts: []Instruction{
			{Opcode: "LD", Defs: []machine.Register{"EAX"}},
			{Opcode: "ADD",
				Uses: []machine.Register{"EAX"},
				Defs: []machine.Register{"EBX"}},
			{Opcode: "MUL",
				Uses: []machine.Register{"EBX"},
				Defs: []machine.Register{"EAX"}},
		}}
		processor := build(MakeBuilder().
			WithContext(ctx).
			WithBlock(block).
			WithIterations(10).
			WithPreDecodeQueueCapacity(2).
			WithDecodeQueueCapacity(3).
			WithPortDepth(1).
			WithNumROBEntries(6))

		err := processor.Run()

		Expect(err).ToNot(HaveOccurred())

		retired := processor.RetirementLog().Retired()
		Expect(retired).To(HaveLen(30))
		expectProgramOrder(retired, block)
	})

	It("should never exceed the reorder buffer size", func() {
		block := &Block{Insts: []Instruction{{Opcode: "LD"}}}
		processor := build(MakeBuilder().
			WithContext(ctx).
			WithBlock(block).
			WithIterations(20).
			WithNumROBEntries(4))

		rob := processor.GetComponentByName("CPU.ROB").(*ReorderBuffer)
		hook := &occupancyHook{rob: rob}
		processor.AcceptHook(hook)

		err := processor.Run()

		Expect(err).ToNot(HaveOccurred())
		Expect(processor.RetirementLog().Retired()).To(HaveLen(20))
		Expect(hook.max).To(BeNumerically("<=", 4))
	})

	It("should start at most one uop per unit per port per cycle", func() {
		block := &Block{Insts: []Instruction{{Opcode: "MUL"}}}
		processor := build(MakeBuilder().
			WithContext(ctx).
			WithBlock(block).
			WithIterations(20))

		hook := &pushRateHook{}
		processor.GetBufferByName("CPU.Port[0]").AcceptHook(hook)
		processor.AcceptHook(hook)

		err := processor.Run()

		Expect(err).ToNot(HaveOccurred())
		Expect(hook.max).To(BeNumerically("<=", 1))
	})

	It("should produce identical results on identical runs", func() {
		block := &Block{Insts: []Instruction{
			{Opcode: "LD", Defs: []machine.Register{"EAX"}},
			{Opcode: "MUL",
				Uses: []machine.Register{"EAX"},
				Defs: []machine.Register{"EBX"}},
			{Opcode: "RMW",
				Uses: []machine.Register{"EBX"},
				Defs: []machine.Register{"EBX"}},
			{Opcode: "ADD"},
		}}
		builder := MakeBuilder().
			WithContext(ctx).
			WithBlock(block).
			WithIterations(5)

		first := build(builder)
		Expect(first.Run()).To(Succeed())

		second := build(builder)
		Expect(second.Run()).To(Succeed())

		Expect(second.RetirementLog().Retired()).To(
			Equal(first.RetirementLog().Retired()))
	})

	It("should stop at the cycle bound", func() {
		block := &Block{Insts: []Instruction{{Opcode: "LD"}}}
		processor := build(MakeBuilder().
			WithContext(ctx).
			WithBlock(block).
			WithIterations(100).
			WithMaxCycles(5))

		err := processor.Run()

		Expect(err).To(MatchError(sim.ErrCycleLimit))
	})

	It("should simulate a block on the Haswell model", func() {
		haswell, err := machine.NewGlobalContext(machine.HaswellModel())
		Expect(err).ToNot(HaveOccurred())

		block := &Block{Insts: []Instruction{
			{Opcode: "MOV32rm", Defs: []machine.Register{"EAX"}},
			{Opcode: "IMUL32rr",
				Uses: []machine.Register{"EAX"},
				Defs: []machine.Register{"EAX"}},
			{Opcode: "ADD32rr",
				Uses: []machine.Register{"EAX"},
				Defs: []machine.Register{"EBX"}},
			{Opcode: "MOV32mr", Uses: []machine.Register{"EBX"}},
		}}
		processor := build(MakeBuilder().
			WithContext(haswell).
			WithBlock(block).
			WithIterations(10))

		Expect(processor.Run()).To(Succeed())

		retired := processor.RetirementLog().Retired()
		Expect(retired).To(HaveLen(40))
		expectProgramOrder(retired, block)
	})
})
