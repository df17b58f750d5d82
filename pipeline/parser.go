package pipeline

import (
	"github.com/SecOpsGit/EXEgesis/machine"
	"github.com/SecOpsGit/EXEgesis/sim"
)

// ParserConfig tunes the Parser.
type ParserConfig struct {
	// Width is the maximum number of instructions parsed per cycle.
	Width int
}

// A Parser converts raw fetched instruction indices into parsed
// instructions, annotating each with its stream instruction and machine
// description. Order is preserved.
type Parser struct {
	*sim.ComponentBase

	config ParserConfig
	ctx    *machine.GlobalContext
	block  *Block
	in     sim.Buffer
	out    sim.Buffer
}

// NewParser creates a Parser. The block must already be validated against
// the context.
func NewParser(
	name string,
	config ParserConfig,
	ctx *machine.GlobalContext,
	block *Block,
	in, out sim.Buffer,
) *Parser {
	widthMustBePositive(config.Width)

	return &Parser{
		ComponentBase: sim.NewComponentBase(name),
		config:        config,
		ctx:           ctx,
		block:         block,
		in:            in,
		out:           out,
	}
}

// Tick parses up to Width instructions.
func (p *Parser) Tick(_ sim.VCycle) (madeProgress bool) {
	for i := 0; i < p.config.Width; i++ {
		if !p.out.CanPush() {
			return madeProgress
		}

		item := p.in.Peek()
		if item == nil {
			return madeProgress
		}

		index := item.(InstructionIndex)
		inst := &p.block.Insts[index.Offset]

		desc, err := p.ctx.DescOf(inst.Opcode)
		if err != nil {
			// The builder validates the block at construction time.
			panic(err)
		}

		p.in.Pop()
		p.out.Push(ParsedInstruction{
			Index: index,
			Inst:  inst,
			Desc:  desc,
		})
		madeProgress = true
	}

	return madeProgress
}
