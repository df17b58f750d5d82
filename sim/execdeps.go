package sim

import "log"

// An ExecDep records that the result of the uop renamed with Tag became
// available at the end of Cycle.
type ExecDep struct {
	Tag   uint64
	Cycle VCycle
}

// An ExecDepsBuffer tracks when the result of each in-flight renamed uop
// becomes available. It acts as a sink for availability records and answers
// readiness queries in O(1). It also keeps the allocated and committed tag
// counts, which bound the number of speculative renames outstanding.
type ExecDepsBuffer struct {
	HookableBase

	name string

	availableAt map[uint64]VCycle
	nextTag     uint64
	committed   uint64
}

// NewExecDepsBuffer creates an empty dependency tracker.
func NewExecDepsBuffer(name string) *ExecDepsBuffer {
	NameMustBeValid(name)

	return &ExecDepsBuffer{
		name:        name,
		availableAt: make(map[uint64]VCycle),
	}
}

// Name returns the name of the tracker.
func (b *ExecDepsBuffer) Name() string {
	return b.name
}

// AllocateTag reserves the next rename tag. Tags are handed out in program
// order, starting from 1.
func (b *ExecDepsBuffer) AllocateTag() uint64 {
	b.nextTag++
	return b.nextTag
}

// OutstandingTags returns the number of tags that are allocated but not yet
// committed.
func (b *ExecDepsBuffer) OutstandingTags() uint64 {
	return b.nextTag - b.committed
}

// MarkAvailable records the cycle at which the result of a renamed uop
// became available.
func (b *ExecDepsBuffer) MarkAvailable(tag uint64, cycle VCycle) {
	if _, ok := b.availableAt[tag]; ok {
		log.Panic("result marked available twice")
	}

	b.availableAt[tag] = cycle
}

// ReadyBefore returns true if the result of the given tag became available
// strictly before the given cycle. An unknown tag is not ready.
func (b *ExecDepsBuffer) ReadyBefore(tag uint64, cycle VCycle) bool {
	availCycle, ok := b.availableAt[tag]
	if !ok {
		return false
	}

	return availCycle < cycle
}

// MarkCommitted records that the architectural state of the given producer
// is committed. Commits must arrive in program order; the availability
// entry is dropped.
func (b *ExecDepsBuffer) MarkCommitted(tag uint64) {
	if tag != b.committed+1 {
		log.Panic("tags must commit in program order")
	}

	delete(b.availableAt, tag)
	b.committed++
}

// IsCommitted returns true if the tag's architectural state is committed.
// Tags commit in program order, so the committed tags form a prefix.
func (b *ExecDepsBuffer) IsCommitted(tag uint64) bool {
	return tag <= b.committed
}

// CanPush always returns true. The tracker never backpressures.
func (b *ExecDepsBuffer) CanPush() bool {
	return true
}

// Push accepts an ExecDep availability record.
func (b *ExecDepsBuffer) Push(e interface{}) {
	dep := e.(ExecDep)
	b.MarkAvailable(dep.Tag, dep.Cycle)

	if b.NumHooks() > 0 {
		b.InvokeHook(HookCtx{
			Domain: b,
			Pos:    HookPosBufPush,
			Item:   e,
		})
	}
}

// Pop always returns nil. Availability records are queried, not drained.
func (b *ExecDepsBuffer) Pop() interface{} {
	return nil
}

// Peek always returns nil.
func (b *ExecDepsBuffer) Peek() interface{} {
	return nil
}

// Capacity returns InfiniteCapacity.
func (b *ExecDepsBuffer) Capacity() int {
	return InfiniteCapacity
}

// Size returns the number of results tracked as available but not yet
// committed.
func (b *ExecDepsBuffer) Size() int {
	return len(b.availableAt)
}

// Clear drops all availability records.
func (b *ExecDepsBuffer) Clear() {
	b.availableAt = make(map[uint64]VCycle)
}
