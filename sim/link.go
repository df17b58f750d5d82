package sim

import (
	"log"
	"math"
)

// InfiniteCapacity configures a LinkBuffer that never exerts backpressure.
const InfiniteCapacity = math.MaxInt

// A Propagator is a buffer that has end-of-cycle state transitions. The
// Simulator calls Propagate on every registered Propagator after all the
// components have ticked in a cycle.
type Propagator interface {
	Propagate()
}

// A LinkBuffer connects one upstream stage to one downstream stage. Elements
// pushed during a cycle stay queued and only become visible to the consumer
// after the end-of-cycle propagation. This guarantees that nothing produced
// in cycle N can be consumed earlier than cycle N+1, regardless of the order
// in which the two stages tick.
type LinkBuffer struct {
	HookableBase

	name     string
	capacity int

	available []interface{}
	queued    []interface{}
}

// NewLinkBuffer creates a LinkBuffer with the given total capacity. Queued
// and available elements both count against the capacity.
func NewLinkBuffer(name string, capacity int) *LinkBuffer {
	NameMustBeValid(name)
	capacityMustBePositive(capacity)

	return &LinkBuffer{
		name:     name,
		capacity: capacity,
	}
}

// Name returns the name of the link.
func (l *LinkBuffer) Name() string {
	return l.name
}

// CanPush returns false when the link is at capacity.
func (l *LinkBuffer) CanPush() bool {
	return len(l.available)+len(l.queued) < l.capacity
}

// Push queues an element. The element becomes poppable after the next
// propagation.
func (l *LinkBuffer) Push(e interface{}) {
	if !l.CanPush() {
		log.Panic("link buffer overflow")
	}

	l.queued = append(l.queued, e)

	if l.NumHooks() > 0 {
		l.InvokeHook(HookCtx{
			Domain: l,
			Pos:    HookPosBufPush,
			Item:   e,
		})
	}
}

// Pop removes and returns the oldest available element, or nil if no element
// is available this cycle.
func (l *LinkBuffer) Pop() interface{} {
	if len(l.available) == 0 {
		return nil
	}

	e := l.available[0]
	l.available = l.available[1:]

	if l.NumHooks() > 0 {
		l.InvokeHook(HookCtx{
			Domain: l,
			Pos:    HookPosBufPop,
			Item:   e,
		})
	}

	return e
}

// Peek returns the oldest available element without removing it.
func (l *LinkBuffer) Peek() interface{} {
	if len(l.available) == 0 {
		return nil
	}

	return l.available[0]
}

// Capacity returns the total capacity of the link.
func (l *LinkBuffer) Capacity() int {
	return l.capacity
}

// Size returns the number of elements in the link, both queued and available.
func (l *LinkBuffer) Size() int {
	return len(l.available) + len(l.queued)
}

// Clear discards all the elements in the link.
func (l *LinkBuffer) Clear() {
	l.available = nil
	l.queued = nil
}

// Propagate makes the elements queued in this cycle available to the
// consumer in the next cycle.
func (l *LinkBuffer) Propagate() {
	l.available = append(l.available, l.queued...)
	l.queued = nil
}
