// Package pipeline implements the stages of a simulated superscalar
// out-of-order processor: fetch, parse, decode, rename, reorder-buffer
// dispatch and retirement, and port-contended execution. A Builder wires the
// stages, their buffers, and a machine.GlobalContext into a runnable
// Processor.
package pipeline

import (
	"fmt"

	"github.com/SecOpsGit/EXEgesis/machine"
	"github.com/SecOpsGit/EXEgesis/sim"
)

// An InstructionIndex identifies one instruction in the fetched stream. The
// source replays the block for a number of iterations, so the pair
// (Iteration, Offset) is unique. Indices are immutable once assigned.
type InstructionIndex struct {
	Iteration int
	Offset    int
}

// An Instruction is one already-resolved element of the simulated stream:
// an opcode the machine model knows about, plus the architectural registers
// it reads and writes. The simulator never computes register values; the
// operands only induce dependencies.
type Instruction struct {
	Opcode string
	Uses   []machine.Register
	Defs   []machine.Register
}

// A Block is the instruction sequence to be simulated.
type Block struct {
	Insts []Instruction
}

// A ParsedInstruction is a fetched instruction annotated with its stream
// instruction and its machine description.
type ParsedInstruction struct {
	Index InstructionIndex
	Inst  *Instruction
	Desc  *machine.InstDesc
}

// A Uop is the unit of work inside the pipeline after decode. All uops of
// one instruction retire together, in program order. The def-carrying uop is
// the last uop of the instruction.
type Uop struct {
	Index   InstructionIndex
	Opcode  string
	UopIdx  int
	Class   int
	Latency int

	Uses []machine.Register
	Defs []machine.Register

	// EndOfInstruction marks the last uop of an instruction. Retirement of
	// this uop retires the instruction.
	EndOfInstruction bool
}

// A RenamedUop is a uop annotated with its rename tag and the tags of the
// uops producing its operands. Tags are assigned in program order, so a dep
// tag is always smaller than the consumer's tag.
type RenamedUop struct {
	Uop

	Tag  uint64
	Deps []uint64
}

// UopState is the lifecycle state of a reorder buffer entry.
type UopState int

// The states a reorder buffer entry moves through. Allocation and
// retirement follow program order; execution completes out of order.
const (
	UopWaiting UopState = iota
	UopReady
	UopIssued
	UopCompleted
	UopRetiring
	UopRetired
)

// A ROBUop is a renamed uop that holds a reorder buffer slot.
type ROBUop struct {
	RenamedUop

	State UopState

	// Port is the dispatch port the uop was issued to, -1 before issue.
	Port int
}

// uopTaskID returns the trace task ID for the lifetime of a renamed uop.
func uopTaskID(tag uint64) string {
	return fmt.Sprintf("uop-%d", tag)
}

// execTaskID returns the trace task ID for one pass of a renamed uop
// through an execution unit.
func execTaskID(tag uint64) string {
	return fmt.Sprintf("exec-%d", tag)
}

// A Writeback reports that the uop renamed with Tag finished executing in
// the given cycle.
type Writeback struct {
	Tag   uint64
	Cycle sim.VCycle
}

// A RetiredInstruction is the externally observable outcome of the
// simulation: one instruction and the cycle it retired in.
type RetiredInstruction struct {
	Index InstructionIndex
	Cycle sim.VCycle
}
