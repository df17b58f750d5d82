package pipeline

import (
	"github.com/SecOpsGit/EXEgesis/sim"
)

// An InstructionSource produces the ordered stream of instruction indices
// that the Fetcher pulls from. It is an external collaborator of the
// pipeline; the engine does not decide what to simulate.
type InstructionSource interface {
	// Peek returns the next instruction index without consuming it. The
	// second return value is false when the stream is exhausted.
	Peek() (InstructionIndex, bool)

	// Consume advances the stream past the index returned by Peek.
	Consume()
}

// A BlockSource replays a block for a fixed number of iterations, the way
// throughput is measured on a steady-state loop body.
type BlockSource struct {
	block      *Block
	iterations int

	iteration int
	offset    int
}

// NewBlockSource creates a source that replays block for the given number
// of iterations.
func NewBlockSource(block *Block, iterations int) *BlockSource {
	return &BlockSource{
		block:      block,
		iterations: iterations,
	}
}

// Peek returns the next instruction index in the stream.
func (s *BlockSource) Peek() (InstructionIndex, bool) {
	if s.iteration >= s.iterations || len(s.block.Insts) == 0 {
		return InstructionIndex{}, false
	}

	return InstructionIndex{Iteration: s.iteration, Offset: s.offset}, true
}

// Consume advances the stream by one instruction.
func (s *BlockSource) Consume() {
	s.offset++
	if s.offset >= len(s.block.Insts) {
		s.offset = 0
		s.iteration++
	}
}

// An InstructionSink observes retirement events.
type InstructionSink interface {
	Retire(inst RetiredInstruction)
}

// HookPosInstRetire marks the retirement of an instruction on the
// retirement log.
var HookPosInstRetire = &sim.HookPos{Name: "Instruction Retire"}

// A RetirementLog is the final instruction sink. It records every
// retirement event in order and exposes them for reporting.
type RetirementLog struct {
	sim.HookableBase

	name    string
	retired []RetiredInstruction
}

// NewRetirementLog creates an empty retirement log.
func NewRetirementLog(name string) *RetirementLog {
	sim.NameMustBeValid(name)

	return &RetirementLog{name: name}
}

// Name returns the name of the log.
func (l *RetirementLog) Name() string {
	return l.name
}

// Retire records one retirement event.
func (l *RetirementLog) Retire(inst RetiredInstruction) {
	l.retired = append(l.retired, inst)

	if l.NumHooks() > 0 {
		l.InvokeHook(sim.HookCtx{
			Domain: l,
			Pos:    HookPosInstRetire,
			Item:   inst,
		})
	}
}

// Retired returns all the retirement events recorded so far, in retirement
// order.
func (l *RetirementLog) Retired() []RetiredInstruction {
	return l.retired
}
