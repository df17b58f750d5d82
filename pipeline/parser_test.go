package pipeline

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SecOpsGit/EXEgesis/machine"
	"github.com/SecOpsGit/EXEgesis/sim"
)

var _ = Describe("Parser", func() {
	var (
		ctx    *machine.GlobalContext
		block  *Block
		in     sim.Buffer
		out    sim.Buffer
		parser *Parser
	)

	BeforeEach(func() {
		ctx = testContext()
		block = &Block{Insts: []Instruction{
			{Opcode: "ADD", Defs: []machine.Register{"EAX"}},
			{Opcode: "MUL", Uses: []machine.Register{"EAX"}},
		}}
		in = sim.NewBuffer("FetchBuffer", 8)
		out = sim.NewBuffer("PreDecodeBuffer", 8)
		parser = NewParser("Parser",
			ParserConfig{Width: 2}, ctx, block, in, out)
	})

	It("should annotate instructions with their machine description", func() {
		in.Push(InstructionIndex{Iteration: 0, Offset: 0})
		in.Push(InstructionIndex{Iteration: 0, Offset: 1})

		madeProgress := parser.Tick(0)

		Expect(madeProgress).To(BeTrue())

		first := out.Pop().(ParsedInstruction)
		Expect(first.Index).To(Equal(InstructionIndex{Offset: 0}))
		Expect(first.Inst).To(BeIdenticalTo(&block.Insts[0]))
		Expect(first.Desc.Opcode).To(Equal("ADD"))

		second := out.Pop().(ParsedInstruction)
		Expect(second.Desc.Opcode).To(Equal("MUL"))
	})

	It("should parse at most the width per cycle", func() {
		in.Push(InstructionIndex{Offset: 0})
		in.Push(InstructionIndex{Offset: 1})
		in.Push(InstructionIndex{Iteration: 1, Offset: 0})

		parser.Tick(0)

		Expect(out.Size()).To(Equal(2))
		Expect(in.Size()).To(Equal(1))
	})

	It("should hold instructions while the output is full", func() {
		out = sim.NewBuffer("SmallBuffer", 1)
		parser = NewParser("StalledParser",
			ParserConfig{Width: 2}, ctx, block, in, out)
		in.Push(InstructionIndex{Offset: 0})
		in.Push(InstructionIndex{Offset: 1})

		parser.Tick(0)

		Expect(out.Size()).To(Equal(1))
		Expect(in.Size()).To(Equal(1))
		Expect(in.Peek()).To(Equal(InstructionIndex{Offset: 1}))
	})

	It("should report no progress on an empty input", func() {
		Expect(parser.Tick(0)).To(BeFalse())
	})
})
