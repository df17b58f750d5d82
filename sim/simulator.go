package sim

import (
	"errors"
	"sync"
)

// HookPosBeforeCycle is a hook position that triggers before a cycle starts.
var HookPosBeforeCycle = &HookPos{Name: "BeforeCycle"}

// HookPosAfterCycle is a hook position that triggers after a cycle completes.
var HookPosAfterCycle = &HookPos{Name: "AfterCycle"}

// ErrStalled is returned by Run when the pipeline can make no forward
// progress while work is still in flight. It is a reporting condition, not a
// programming error; the simulator state can be inspected afterwards.
var ErrStalled = errors.New("pipeline stalled with work in flight")

// ErrCycleLimit is returned by Run when the simulation did not complete
// within the configured cycle bound.
var ErrCycleLimit = errors.New("cycle limit reached")

// A Simulator owns all components and all buffers of one simulated
// processor and drives the global tick loop. Components only hold
// non-owning references to the buffers.
type Simulator struct {
	HookableBase

	cycle     VCycle
	maxCycles VCycle

	components  []Component
	buffers     []Buffer
	propagators []Propagator

	compNameIndex map[string]int
	bufNameIndex  map[string]int

	pauseLock     sync.Mutex
	isPaused      bool
	isPausedLock  sync.Mutex
	singleRunLock sync.Mutex
}

// NewSimulator creates an empty simulator.
func NewSimulator() *Simulator {
	return &Simulator{
		compNameIndex: make(map[string]int),
		bufNameIndex:  make(map[string]int),
	}
}

// WithMaxCycles bounds the number of cycles the simulator runs. A zero
// bound means no limit. The bound guarantees termination even if the
// modeled pipeline deadlocks endlessly making local progress.
func (s *Simulator) WithMaxCycles(n VCycle) *Simulator {
	s.maxCycles = n
	return s
}

// CurrentCycle returns the cycle the simulation is at.
func (s *Simulator) CurrentCycle() VCycle {
	return s.cycle
}

// AddComponent registers a component. Components tick in registration
// order, so callers must register them in pipeline-consistent order.
func (s *Simulator) AddComponent(c Component) {
	name := c.Name()
	if _, ok := s.compNameIndex[name]; ok {
		panic("component " + name + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[name] = len(s.components) - 1
}

// AddBuffer registers a buffer for introspection. Buffers that implement
// Propagator are propagated at the end of every cycle.
func (s *Simulator) AddBuffer(b Buffer) {
	name := b.Name()
	if _, ok := s.bufNameIndex[name]; ok {
		panic("buffer " + name + " already registered")
	}

	s.buffers = append(s.buffers, b)
	s.bufNameIndex[name] = len(s.buffers) - 1

	if p, ok := b.(Propagator); ok {
		s.propagators = append(s.propagators, p)
	}
}

// Components returns all the registered components.
func (s *Simulator) Components() []Component {
	return s.components
}

// Buffers returns all the registered buffers.
func (s *Simulator) Buffers() []Buffer {
	return s.buffers
}

// GetComponentByName returns the component with the given name.
func (s *Simulator) GetComponentByName(name string) Component {
	index, ok := s.compNameIndex[name]
	if !ok {
		return nil
	}

	return s.components[index]
}

// GetBufferByName returns the buffer with the given name.
func (s *Simulator) GetBufferByName(name string) Buffer {
	index, ok := s.bufNameIndex[name]
	if !ok {
		return nil
	}

	return s.buffers[index]
}

// TickOneCycle ticks every component once, in registration order, and then
// propagates every buffer. It returns true if any component made progress.
func (s *Simulator) TickOneCycle() (madeProgress bool) {
	s.InvokeHook(HookCtx{
		Domain: s,
		Pos:    HookPosBeforeCycle,
		Item:   s.cycle,
	})

	for _, c := range s.components {
		if c.Tick(s.cycle) {
			madeProgress = true
		}
	}

	for _, p := range s.propagators {
		p.Propagate()
	}

	s.InvokeHook(HookCtx{
		Domain: s,
		Pos:    HookPosAfterCycle,
		Item:   s.cycle,
	})

	s.cycle++

	return madeProgress
}

// Run ticks the simulation until no component can make progress anymore, or
// until the cycle bound is hit. It returns nil when the pipeline drained
// completely, ErrStalled when progress stopped with elements still
// buffered, and ErrCycleLimit when the bound was exceeded.
func (s *Simulator) Run() error {
	s.singleRunLock.Lock()
	defer s.singleRunLock.Unlock()

	for {
		if s.maxCycles > 0 && s.cycle >= s.maxCycles {
			return ErrCycleLimit
		}

		s.pauseLock.Lock()
		madeProgress := s.TickOneCycle()
		s.pauseLock.Unlock()

		if !madeProgress {
			if s.anyBufferOccupied() {
				return ErrStalled
			}

			return nil
		}
	}
}

// RunNCycles ticks the simulation for at most n more cycles, stopping early
// if the pipeline drains.
func (s *Simulator) RunNCycles(n VCycle) error {
	s.singleRunLock.Lock()
	defer s.singleRunLock.Unlock()

	for i := VCycle(0); i < n; i++ {
		s.pauseLock.Lock()
		madeProgress := s.TickOneCycle()
		s.pauseLock.Unlock()

		if !madeProgress {
			if s.anyBufferOccupied() {
				return ErrStalled
			}

			return nil
		}
	}

	return nil
}

// StepOneCycle advances the simulation by exactly one cycle, serialized
// against a concurrently running Run. On a paused simulator the pause lock
// is already held on the caller's behalf, so the step proceeds while Run
// stays blocked. It returns the cycle count after the step.
func (s *Simulator) StepOneCycle() VCycle {
	s.isPausedLock.Lock()
	defer s.isPausedLock.Unlock()

	if s.isPaused {
		s.TickOneCycle()
		return s.cycle
	}

	s.pauseLock.Lock()
	s.TickOneCycle()
	s.pauseLock.Unlock()

	return s.cycle
}

func (s *Simulator) anyBufferOccupied() bool {
	for _, b := range s.buffers {
		if b.Size() > 0 {
			return true
		}
	}

	return false
}

// Pause prevents the simulator from starting new cycles until Continue is
// called.
func (s *Simulator) Pause() {
	s.isPausedLock.Lock()
	defer s.isPausedLock.Unlock()

	if s.isPaused {
		return
	}

	s.pauseLock.Lock()
	s.isPaused = true
}

// Continue resumes a paused simulation.
func (s *Simulator) Continue() {
	s.isPausedLock.Lock()
	defer s.isPausedLock.Unlock()

	if !s.isPaused {
		return
	}

	s.pauseLock.Unlock()
	s.isPaused = false
}
