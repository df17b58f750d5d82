package pipeline

import (
	"github.com/SecOpsGit/EXEgesis/sim"
)

// RetirerConfig tunes the Retirer.
type RetirerConfig struct {
	// Width is the maximum number of uops committed per cycle.
	Width int
}

// The Retirer commits uops the reorder buffer drained, in program order.
// When the last uop of an instruction commits, the instruction's retirement
// is written to the instruction sink. Every committed uop also flows back
// through the retired link, informing the dependency tracker that the
// producer's architectural state is now committed.
type Retirer struct {
	*sim.ComponentBase

	config RetirerConfig
	in     sim.Buffer
	out    sim.Buffer
	sink   InstructionSink
}

// NewRetirer creates a Retirer.
func NewRetirer(
	name string,
	config RetirerConfig,
	in, out sim.Buffer,
	sink InstructionSink,
) *Retirer {
	widthMustBePositive(config.Width)

	return &Retirer{
		ComponentBase: sim.NewComponentBase(name),
		config:        config,
		in:            in,
		out:           out,
		sink:          sink,
	}
}

// Tick commits up to Width uops.
func (r *Retirer) Tick(cycle sim.VCycle) (madeProgress bool) {
	for i := 0; i < r.config.Width; i++ {
		if !r.out.CanPush() {
			return madeProgress
		}

		item := r.in.Pop()
		if item == nil {
			return madeProgress
		}

		uop := item.(RenamedUop)
		r.out.Push(uop)

		if uop.EndOfInstruction {
			r.sink.Retire(RetiredInstruction{
				Index: uop.Index,
				Cycle: cycle,
			})
		}

		madeProgress = true
	}

	return madeProgress
}
