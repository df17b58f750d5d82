package sim

import "log"

// A DispatchPort is the staging buffer in front of an execution resource. It
// accepts at most NumUnits elements per cycle; further pushes in the same
// cycle are rejected through CanPush, which backpressures the reorder
// buffer. Like a LinkBuffer, accepted elements only become visible to the
// consumer after the end-of-cycle propagation.
type DispatchPort struct {
	HookableBase

	name     string
	numUnits int
	capacity int

	pushedThisCycle int
	available       []interface{}
	queued          []interface{}
}

// NewDispatchPort creates a DispatchPort that accepts up to numUnits
// elements per cycle and holds up to capacity elements in total.
func NewDispatchPort(name string, numUnits, capacity int) *DispatchPort {
	NameMustBeValid(name)
	capacityMustBePositive(capacity)

	if numUnits <= 0 {
		log.Panic("dispatch port must have at least one unit")
	}

	return &DispatchPort{
		name:     name,
		numUnits: numUnits,
		capacity: capacity,
	}
}

// Name returns the name of the port.
func (p *DispatchPort) Name() string {
	return p.name
}

// NumUnits returns the number of parallel units of the port.
func (p *DispatchPort) NumUnits() int {
	return p.numUnits
}

// CanPush returns true if the port can accept one more element this cycle.
func (p *DispatchPort) CanPush() bool {
	if p.pushedThisCycle >= p.numUnits {
		return false
	}

	return len(p.available)+len(p.queued) < p.capacity
}

// Push stages an element for execution.
func (p *DispatchPort) Push(e interface{}) {
	if !p.CanPush() {
		log.Panic("dispatch port overflow")
	}

	p.pushedThisCycle++
	p.queued = append(p.queued, e)

	if p.NumHooks() > 0 {
		p.InvokeHook(HookCtx{
			Domain: p,
			Pos:    HookPosBufPush,
			Item:   e,
		})
	}
}

// Pop removes and returns the oldest available element, or nil.
func (p *DispatchPort) Pop() interface{} {
	if len(p.available) == 0 {
		return nil
	}

	e := p.available[0]
	p.available = p.available[1:]

	if p.NumHooks() > 0 {
		p.InvokeHook(HookCtx{
			Domain: p,
			Pos:    HookPosBufPop,
			Item:   e,
		})
	}

	return e
}

// Peek returns the oldest available element without removing it.
func (p *DispatchPort) Peek() interface{} {
	if len(p.available) == 0 {
		return nil
	}

	return p.available[0]
}

// Capacity returns the total capacity of the port buffer.
func (p *DispatchPort) Capacity() int {
	return p.capacity
}

// Size returns the number of elements staged at the port.
func (p *DispatchPort) Size() int {
	return len(p.available) + len(p.queued)
}

// Clear discards all the staged elements.
func (p *DispatchPort) Clear() {
	p.available = nil
	p.queued = nil
	p.pushedThisCycle = 0
}

// Propagate makes this cycle's accepted elements visible and resets the
// per-cycle accept budget.
func (p *DispatchPort) Propagate() {
	p.available = append(p.available, p.queued...)
	p.queued = nil
	p.pushedThisCycle = 0
}
