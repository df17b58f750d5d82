package pipeline

import (
	"github.com/SecOpsGit/EXEgesis/sim"
	"github.com/SecOpsGit/EXEgesis/tracing"
)

// An ExecutionUnit models one execution port with NumUnits parallel,
// fully-pipelined lanes. Every cycle it begins executing up to NumUnits new
// uops from its dispatch port. A uop with latency L executes during its
// start cycle and the L-1 cycles after it, so the unit pushes its writeback
// in cycle start+L-1 and the staged writeback link publishes the result
// exactly L cycles after the start. The only contention the unit models is
// the per-cycle start limit; there are no internal stalls.
type ExecutionUnit struct {
	*sim.ComponentBase

	port      *sim.DispatchPort
	writeback sim.Buffer

	inFlight []executingUop
}

type executingUop struct {
	tag        uint64
	cyclesLeft int
}

// NewExecutionUnit creates an ExecutionUnit that drains the given dispatch
// port.
func NewExecutionUnit(
	name string,
	port *sim.DispatchPort,
	writeback sim.Buffer,
) *ExecutionUnit {
	return &ExecutionUnit{
		ComponentBase: sim.NewComponentBase(name),
		port:          port,
		writeback:     writeback,
	}
}

// Tick starts new uops and advances the in-flight ones. Starting comes
// first so that the start cycle counts toward the latency; a single-cycle
// uop writes back in the same cycle it starts.
func (u *ExecutionUnit) Tick(cycle sim.VCycle) (madeProgress bool) {
	madeProgress = u.startNew() || madeProgress
	madeProgress = u.countDown(cycle) || madeProgress

	return madeProgress
}

// countDown advances every in-flight uop by one cycle, the ones started
// this cycle included, and writes back the ones that finished.
func (u *ExecutionUnit) countDown(cycle sim.VCycle) (madeProgress bool) {
	remaining := u.inFlight[:0]

	for _, uop := range u.inFlight {
		uop.cyclesLeft--
		madeProgress = true

		if uop.cyclesLeft > 0 || !u.writeback.CanPush() {
			remaining = append(remaining, uop)
			continue
		}

		u.writeback.Push(Writeback{Tag: uop.tag, Cycle: cycle})
		tracing.EndTask(execTaskID(uop.tag), u)
	}

	u.inFlight = remaining

	return madeProgress
}

// startNew begins executing up to NumUnits uops staged at the port.
func (u *ExecutionUnit) startNew() (madeProgress bool) {
	for i := 0; i < u.port.NumUnits(); i++ {
		item := u.port.Pop()
		if item == nil {
			return madeProgress
		}

		uop := item.(RenamedUop)
		u.inFlight = append(u.inFlight, executingUop{
			tag:        uop.Tag,
			cyclesLeft: uop.Latency,
		})
		tracing.StartTask(execTaskID(uop.Tag), uopTaskID(uop.Tag), u,
			"exec", uop.Opcode, nil)
		madeProgress = true
	}

	return madeProgress
}
