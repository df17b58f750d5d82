package pipeline

import (
	"github.com/SecOpsGit/EXEgesis/sim"
)

// DecoderConfig tunes the Decoder.
type DecoderConfig struct {
	// Width is the maximum number of instructions decoded per cycle.
	Width int
}

// A Decoder expands each parsed instruction into its uops, preserving order
// and the per-instruction grouping that retirement relies on. All uops of
// an instruction are emitted in the same cycle, so the grouping is never
// split across a stall.
type Decoder struct {
	*sim.ComponentBase

	config DecoderConfig
	in     sim.Buffer
	out    sim.Buffer
}

// NewDecoder creates a Decoder.
func NewDecoder(
	name string,
	config DecoderConfig,
	in, out sim.Buffer,
) *Decoder {
	widthMustBePositive(config.Width)

	return &Decoder{
		ComponentBase: sim.NewComponentBase(name),
		config:        config,
		in:            in,
		out:           out,
	}
}

// Tick decodes up to Width instructions into uops.
func (d *Decoder) Tick(_ sim.VCycle) (madeProgress bool) {
	for i := 0; i < d.config.Width; i++ {
		item := d.in.Peek()
		if item == nil {
			return madeProgress
		}

		parsed := item.(ParsedInstruction)
		if !d.canPushAll(len(parsed.Desc.Uops)) {
			return madeProgress
		}

		d.in.Pop()

		for uopIdx, uopDesc := range parsed.Desc.Uops {
			uop := Uop{
				Index:   parsed.Index,
				Opcode:  parsed.Inst.Opcode,
				UopIdx:  uopIdx,
				Class:   uopDesc.Class,
				Latency: uopDesc.Latency,
				Uses:    parsed.Inst.Uses,
			}

			if uopIdx == len(parsed.Desc.Uops)-1 {
				uop.Defs = parsed.Inst.Defs
				uop.EndOfInstruction = true
			}

			d.out.Push(uop)
		}

		madeProgress = true
	}

	return madeProgress
}

// canPushAll checks that the whole uop group of an instruction fits in the
// output queue.
func (d *Decoder) canPushAll(n int) bool {
	return d.out.Capacity()-d.out.Size() >= n
}
