package sim

import "log"

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from the buffer.
var HookPosBufPop = &HookPos{Name: "Buffer Pop"}

// A Buffer is a bounded fifo queue that connects pipeline stages. Pushing
// into a full buffer is an invariant violation: stages must check CanPush
// first and hold the element for the next cycle when it returns false.
type Buffer interface {
	Named
	Hookable

	CanPush() bool
	Push(e interface{})
	Pop() interface{}
	Peek() interface{}
	Capacity() int
	Size() int

	// Remove all elements in the buffer
	Clear()
}

// NewBuffer creates a default buffer object.
func NewBuffer(name string, capacity int) Buffer {
	NameMustBeValid(name)
	capacityMustBePositive(capacity)

	return &bufferImpl{
		name:     name,
		capacity: capacity,
	}
}

func capacityMustBePositive(capacity int) {
	if capacity <= 0 {
		log.Panic("buffer capacity must be positive")
	}
}

type bufferImpl struct {
	HookableBase

	name     string
	capacity int
	elements []interface{}
}

// Name returns the name of the buffer.
func (b *bufferImpl) Name() string {
	return b.name
}

func (b *bufferImpl) CanPush() bool {
	return len(b.elements) < b.capacity
}

func (b *bufferImpl) Push(e interface{}) {
	if len(b.elements) >= b.capacity {
		log.Panic("buffer overflow")
	}

	b.elements = append(b.elements, e)

	if b.NumHooks() > 0 {
		b.InvokeHook(HookCtx{
			Domain: b,
			Pos:    HookPosBufPush,
			Item:   e,
			Detail: nil,
		})
	}
}

func (b *bufferImpl) Pop() interface{} {
	if len(b.elements) == 0 {
		return nil
	}

	e := b.elements[0]
	b.elements = b.elements[1:]

	if b.NumHooks() > 0 {
		b.InvokeHook(HookCtx{
			Domain: b,
			Pos:    HookPosBufPop,
			Item:   e,
			Detail: nil,
		})
	}

	return e
}

func (b *bufferImpl) Peek() interface{} {
	if len(b.elements) == 0 {
		return nil
	}

	return b.elements[0]
}

func (b *bufferImpl) Capacity() int {
	return b.capacity
}

func (b *bufferImpl) Size() int {
	return len(b.elements)
}

func (b *bufferImpl) Clear() {
	b.elements = nil
}
