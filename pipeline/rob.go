package pipeline

import (
	"log"

	"github.com/SecOpsGit/EXEgesis/machine"
	"github.com/SecOpsGit/EXEgesis/sim"
	"github.com/SecOpsGit/EXEgesis/tracing"
)

// ROBConfig tunes the ReorderBuffer.
type ROBConfig struct {
	// NumEntries is the number of reorder buffer slots.
	NumEntries int

	// RetireWidth is the maximum number of uops drained toward the Retirer
	// per cycle.
	RetireWidth int
}

// The ReorderBuffer is the central scheduler of the pipeline. It allocates
// renamed uops into slots strictly in program order, issues ready uops to
// dispatch ports through the issue policy, applies writebacks from the
// execution units, and drains completed uops toward the Retirer strictly in
// program order, whole instruction groups at a time.
type ReorderBuffer struct {
	*sim.ComponentBase

	config ROBConfig
	policy IssuePolicy

	in         sim.Buffer
	tracker    *sim.ExecDepsBuffer
	writebacks sim.Buffer
	retiredIn  sim.Buffer
	retireOut  sim.Buffer
	ports      []*sim.DispatchPort

	// eligiblePorts maps a resource class to the dispatch ports that can
	// serve it, in class declaration order.
	eligiblePorts [][]*sim.DispatchPort
	eligibleIdx   [][]int

	// entries holds the allocated uops in program order. Entries before
	// retireCursor have been drained toward the Retirer and await
	// confirmation.
	entries      []*ROBUop
	retireCursor int
	byTag        map[uint64]*ROBUop
}

// NewReorderBuffer creates a ReorderBuffer.
func NewReorderBuffer(
	name string,
	config ROBConfig,
	ctx *machine.GlobalContext,
	policy IssuePolicy,
	in sim.Buffer,
	tracker *sim.ExecDepsBuffer,
	writebacks sim.Buffer,
	retiredIn sim.Buffer,
	retireOut sim.Buffer,
	ports []*sim.DispatchPort,
) *ReorderBuffer {
	if config.NumEntries <= 0 {
		log.Panic("reorder buffer must have at least one entry")
	}
	widthMustBePositive(config.RetireWidth)

	r := &ReorderBuffer{
		ComponentBase: sim.NewComponentBase(name),
		config:        config,
		policy:        policy,
		in:            in,
		tracker:       tracker,
		writebacks:    writebacks,
		retiredIn:     retiredIn,
		retireOut:     retireOut,
		ports:         ports,
		byTag:         make(map[uint64]*ROBUop),
	}

	numClasses := ctx.NumClasses()
	r.eligiblePorts = make([][]*sim.DispatchPort, numClasses)
	r.eligibleIdx = make([][]int, numClasses)
	for c := 0; c < numClasses; c++ {
		class := ctx.Class(c)
		for _, portIdx := range class.Ports {
			r.eligiblePorts[c] = append(r.eligiblePorts[c], ports[portIdx])
			r.eligibleIdx[c] = append(r.eligibleIdx[c], portIdx)
		}
	}

	return r
}

// Tick advances the reorder buffer by one cycle.
func (r *ReorderBuffer) Tick(cycle sim.VCycle) (madeProgress bool) {
	madeProgress = r.applyWritebacks() || madeProgress
	madeProgress = r.applyRetireConfirmations() || madeProgress
	madeProgress = r.drainRetire() || madeProgress
	madeProgress = r.allocate() || madeProgress
	madeProgress = r.issue(cycle) || madeProgress

	return madeProgress
}

// applyWritebacks marks entries completed and records availability in the
// dependency tracker. Writebacks were produced in an earlier cycle, so the
// results they carry become visible to dependency checks only now.
func (r *ReorderBuffer) applyWritebacks() (madeProgress bool) {
	for {
		item := r.writebacks.Pop()
		if item == nil {
			return madeProgress
		}

		wb := item.(Writeback)
		entry, ok := r.byTag[wb.Tag]
		if !ok {
			log.Panic("writeback for unknown reorder buffer entry")
		}

		if entry.State != UopIssued {
			log.Panic("writeback for an entry that is not executing")
		}

		entry.State = UopCompleted
		r.tracker.Push(sim.ExecDep{Tag: wb.Tag, Cycle: wb.Cycle})
		madeProgress = true
	}
}

// applyRetireConfirmations frees the slots of uops the Retirer committed.
// Confirmations arrive in program order, matching the head of the buffer.
func (r *ReorderBuffer) applyRetireConfirmations() (madeProgress bool) {
	for {
		item := r.retiredIn.Pop()
		if item == nil {
			return madeProgress
		}

		retired := item.(RenamedUop)
		if len(r.entries) == 0 || r.entries[0].Tag != retired.Tag {
			log.Panic("retire confirmations must arrive in program order")
		}

		r.tracker.MarkCommitted(retired.Tag)
		delete(r.byTag, retired.Tag)
		r.entries = r.entries[1:]
		r.retireCursor--
		tracing.EndTask(uopTaskID(retired.Tag), r)
		madeProgress = true
	}
}

// drainRetire pushes completed uops toward the Retirer, in program order,
// whole instruction groups at a time. A group starts draining only when
// every uop of the instruction has completed; once started, the group keeps
// draining across cycles even when the retire link is narrower than the
// group.
func (r *ReorderBuffer) drainRetire() (madeProgress bool) {
	budget := r.config.RetireWidth

	for budget > 0 && r.retireCursor < len(r.entries) {
		entry := r.entries[r.retireCursor]

		if entry.UopIdx == 0 && !r.groupCompleted(r.retireCursor) {
			return madeProgress
		}

		if !r.retireOut.CanPush() {
			return madeProgress
		}

		entry.State = UopRetiring
		r.retireOut.Push(entry.RenamedUop)
		r.retireCursor++
		budget--
		madeProgress = true
	}

	return madeProgress
}

// groupCompleted reports whether the whole instruction group starting at
// the given position is allocated and completed.
func (r *ReorderBuffer) groupCompleted(start int) bool {
	for i := start; i < len(r.entries); i++ {
		entry := r.entries[i]

		if entry.State != UopCompleted {
			return false
		}

		if entry.EndOfInstruction {
			return true
		}
	}

	// The tail of the group is not allocated yet.
	return false
}

// allocate admits renamed uops into free slots, strictly in program order.
// When the buffer is full the uops stay in the rename link: allocation
// stalls, it never drops.
func (r *ReorderBuffer) allocate() (madeProgress bool) {
	for len(r.entries) < r.config.NumEntries {
		item := r.in.Pop()
		if item == nil {
			return madeProgress
		}

		renamed := item.(RenamedUop)
		entry := &ROBUop{
			RenamedUop: renamed,
			State:      UopWaiting,
			Port:       -1,
		}

		r.entries = append(r.entries, entry)
		r.byTag[renamed.Tag] = entry
		tracing.StartTask(uopTaskID(renamed.Tag), "", r,
			"uop", renamed.Opcode, nil)
		madeProgress = true
	}

	return madeProgress
}

// issue wakes up entries whose operands are available and assigns each to
// an eligible dispatch port through the issue policy. Entries that find no
// port this cycle stay pending and are reconsidered next cycle.
func (r *ReorderBuffer) issue(cycle sim.VCycle) (madeProgress bool) {
	for _, entry := range r.entries {
		if entry.State == UopWaiting && r.depsSatisfied(entry, cycle) {
			entry.State = UopReady
		}

		if entry.State != UopReady {
			continue
		}

		eligible := r.eligiblePorts[entry.Class]
		choice, ok := r.policy.Select(entry, eligible)
		if !ok {
			continue
		}

		eligible[choice].Push(entry.RenamedUop)
		entry.State = UopIssued
		entry.Port = r.eligibleIdx[entry.Class][choice]
		madeProgress = true
	}

	return madeProgress
}

// depsSatisfied reports whether every producer of the entry's operands has
// its result available strictly before this cycle.
func (r *ReorderBuffer) depsSatisfied(entry *ROBUop, cycle sim.VCycle) bool {
	for _, dep := range entry.Deps {
		if r.tracker.IsCommitted(dep) {
			continue
		}

		if !r.tracker.ReadyBefore(dep, cycle) {
			return false
		}
	}

	return true
}
