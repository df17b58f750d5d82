package pipeline

import (
	"github.com/SecOpsGit/EXEgesis/machine"
	"github.com/SecOpsGit/EXEgesis/sim"
)

// RenamerConfig tunes the RegisterRenamer.
type RenamerConfig struct {
	// Width is the maximum number of uops renamed per cycle.
	Width int

	// NumPhysRegs bounds the number of speculative renames outstanding,
	// modeling a finite physical register file. A rename stays outstanding
	// from allocation until its uop commits.
	NumPhysRegs uint64
}

// A RegisterRenamer resolves the operands of incoming uops against the
// outstanding in-flight producers, allocates a rename tag per uop, and
// pushes renamed uops forward. Renaming eliminates write-after-write and
// write-after-read hazards; only read-after-write dependencies survive as
// dep edges.
type RegisterRenamer struct {
	*sim.ComponentBase

	config  RenamerConfig
	tracker *sim.ExecDepsBuffer
	in      sim.Buffer
	out     sim.Buffer

	// renameTable maps an architectural register to the tag of the youngest
	// uop that defines it.
	renameTable map[machine.Register]uint64
}

// NewRegisterRenamer creates a RegisterRenamer.
func NewRegisterRenamer(
	name string,
	config RenamerConfig,
	tracker *sim.ExecDepsBuffer,
	in, out sim.Buffer,
) *RegisterRenamer {
	widthMustBePositive(config.Width)

	if config.NumPhysRegs == 0 {
		panic("renamer must have at least one physical register")
	}

	return &RegisterRenamer{
		ComponentBase: sim.NewComponentBase(name),
		config:        config,
		tracker:       tracker,
		in:            in,
		out:           out,
		renameTable:   make(map[machine.Register]uint64),
	}
}

// Tick renames up to Width uops.
func (r *RegisterRenamer) Tick(_ sim.VCycle) (madeProgress bool) {
	for i := 0; i < r.config.Width; i++ {
		item := r.in.Peek()
		if item == nil {
			return madeProgress
		}

		if !r.out.CanPush() {
			return madeProgress
		}

		if r.tracker.OutstandingTags() >= r.config.NumPhysRegs {
			return madeProgress
		}

		uop := item.(Uop)
		r.in.Pop()
		r.out.Push(r.rename(uop))
		madeProgress = true
	}

	return madeProgress
}

func (r *RegisterRenamer) rename(uop Uop) RenamedUop {
	renamed := RenamedUop{
		Uop: uop,
		Tag: r.tracker.AllocateTag(),
	}

	for _, reg := range uop.Uses {
		producer, ok := r.renameTable[reg]
		if !ok {
			// No in-flight producer: the register holds committed
			// architectural state.
			continue
		}

		if r.tracker.IsCommitted(producer) {
			delete(r.renameTable, reg)
			continue
		}

		renamed.Deps = append(renamed.Deps, producer)
	}

	for _, reg := range uop.Defs {
		r.renameTable[reg] = renamed.Tag
	}

	return renamed
}
