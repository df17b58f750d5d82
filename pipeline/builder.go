package pipeline

import (
	"fmt"

	"github.com/SecOpsGit/EXEgesis/machine"
	"github.com/SecOpsGit/EXEgesis/sim"
)

// A Processor is a fully wired simulator for one target micro-architecture.
type Processor struct {
	*sim.Simulator

	ctx *machine.GlobalContext
	log *RetirementLog
}

// Context returns the machine context the processor was built for.
func (p *Processor) Context() *machine.GlobalContext {
	return p.ctx
}

// RetirementLog returns the instruction sink where retirement events are
// observed.
func (p *Processor) RetirementLog() *RetirementLog {
	return p.log
}

// A Builder builds processors. The default configuration follows the
// front-end widths and queue depths of the Haswell model: fetch 16, parse
// 4, decode 5, rename 3, a 20-entry pre-decode queue, a 64-entry decode
// queue, and a 192-entry reorder buffer.
type Builder struct {
	ctx        *machine.GlobalContext
	block      *Block
	source     InstructionSource
	iterations int
	policy     IssuePolicy

	fetchWidth  int
	parseWidth  int
	decodeWidth int
	renameWidth int
	numPhysRegs uint64

	numROBEntries int
	retireWidth   int
	retirerWidth  int

	preDecodeCap   int
	decodeQueueCap int
	retireLinkCap  int
	portDepth      int

	maxCycles sim.VCycle
}

// MakeBuilder creates a Builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		iterations:     1,
		policy:         LeastLoaded(),
		fetchWidth:     16,
		parseWidth:     4,
		decodeWidth:    5,
		renameWidth:    3,
		numPhysRegs:    1000000,
		numROBEntries:  192,
		retireWidth:    4,
		retirerWidth:   4,
		preDecodeCap:   20,
		decodeQueueCap: 64,
		retireLinkCap:  8,
		portDepth:      sim.InfiniteCapacity,
	}
}

// WithContext sets the machine context to simulate against.
func (b Builder) WithContext(ctx *machine.GlobalContext) Builder {
	b.ctx = ctx
	return b
}

// WithBlock sets the instruction block to simulate.
func (b Builder) WithBlock(block *Block) Builder {
	b.block = block
	return b
}

// WithSource overrides the instruction stream. The default replays the
// block for the configured number of iterations. The block is still
// required: the Parser resolves stream indices against it.
func (b Builder) WithSource(source InstructionSource) Builder {
	b.source = source
	return b
}

// WithIterations sets how many times the block is replayed.
func (b Builder) WithIterations(n int) Builder {
	b.iterations = n
	return b
}

// WithIssuePolicy overrides the issue policy. The default is LeastLoaded.
func (b Builder) WithIssuePolicy(policy IssuePolicy) Builder {
	b.policy = policy
	return b
}

// WithFetchWidth overrides the fetch width.
func (b Builder) WithFetchWidth(n int) Builder {
	b.fetchWidth = n
	return b
}

// WithParseWidth overrides the parse width.
func (b Builder) WithParseWidth(n int) Builder {
	b.parseWidth = n
	return b
}

// WithDecodeWidth overrides the decode width.
func (b Builder) WithDecodeWidth(n int) Builder {
	b.decodeWidth = n
	return b
}

// WithRenameWidth overrides the rename width.
func (b Builder) WithRenameWidth(n int) Builder {
	b.renameWidth = n
	return b
}

// WithNumPhysRegs bounds the speculative renames outstanding.
func (b Builder) WithNumPhysRegs(n uint64) Builder {
	b.numPhysRegs = n
	return b
}

// WithNumROBEntries overrides the reorder buffer size.
func (b Builder) WithNumROBEntries(n int) Builder {
	b.numROBEntries = n
	return b
}

// WithRetireWidth overrides the per-cycle retirement width.
func (b Builder) WithRetireWidth(n int) Builder {
	b.retireWidth = n
	b.retirerWidth = n
	return b
}

// WithPreDecodeQueueCapacity overrides the pre-decode queue depth.
func (b Builder) WithPreDecodeQueueCapacity(n int) Builder {
	b.preDecodeCap = n
	return b
}

// WithDecodeQueueCapacity overrides the decode queue depth.
func (b Builder) WithDecodeQueueCapacity(n int) Builder {
	b.decodeQueueCap = n
	return b
}

// WithPortDepth overrides the dispatch port buffer depth.
func (b Builder) WithPortDepth(n int) Builder {
	b.portDepth = n
	return b
}

// WithMaxCycles bounds the simulation, guaranteeing termination even if
// the modeled pipeline deadlocks.
func (b Builder) WithMaxCycles(n sim.VCycle) Builder {
	b.maxCycles = n
	return b
}

// Build wires a complete processor. Configuration errors are returned, not
// panicked: a missing context or block, non-positive widths or capacities,
// and instructions the machine model carries no data for are all reported
// here, before any simulation starts.
func (b Builder) Build(name string) (*Processor, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	sim.NameMustBeValid(name)

	simulator := sim.NewSimulator().WithMaxCycles(b.maxCycles)

	// Buffers.
	fetchLink := sim.NewLinkBuffer(
		sim.BuildName(name, "FetchBuffer"), sim.InfiniteCapacity)
	preDecodeQueue := sim.NewBuffer(
		sim.BuildName(name, "PreDecodeBuffer"), b.preDecodeCap)
	decodeQueue := sim.NewBuffer(
		sim.BuildName(name, "DecodeQueue"), b.decodeQueueCap)
	renameLink := sim.NewLinkBuffer(
		sim.BuildName(name, "RenamedUops"), sim.InfiniteCapacity)
	writebackLink := sim.NewLinkBuffer(
		sim.BuildName(name, "Writeback"), sim.InfiniteCapacity)
	retireLink := sim.NewLinkBuffer(
		sim.BuildName(name, "ReadyToRetireUops"), b.retireLinkCap)
	retiredLink := sim.NewLinkBuffer(
		sim.BuildName(name, "RetiredUops"), sim.InfiniteCapacity)
	tracker := sim.NewExecDepsBuffer(
		sim.BuildName(name, "OutputsAvailable"))

	ports := make([]*sim.DispatchPort, 0, len(b.ctx.Ports()))
	for i, portDesc := range b.ctx.Ports() {
		port := sim.NewDispatchPort(
			sim.BuildNameWithIndex(name, "Port", i),
			portDesc.NumUnits, b.portDepth)
		ports = append(ports, port)
	}

	// Components, in the canonical tick order.
	source := b.source
	if source == nil {
		source = NewBlockSource(b.block, b.iterations)
	}
	log := NewRetirementLog(sim.BuildName(name, "RetirementLog"))

	simulator.AddComponent(NewFetcher(
		sim.BuildName(name, "Fetcher"),
		FetcherConfig{Width: b.fetchWidth},
		source, fetchLink))
	simulator.AddComponent(NewParser(
		sim.BuildName(name, "Parser"),
		ParserConfig{Width: b.parseWidth},
		b.ctx, b.block, fetchLink, preDecodeQueue))
	simulator.AddComponent(NewDecoder(
		sim.BuildName(name, "Decoder"),
		DecoderConfig{Width: b.decodeWidth},
		preDecodeQueue, decodeQueue))
	simulator.AddComponent(NewRegisterRenamer(
		sim.BuildName(name, "Renamer"),
		RenamerConfig{Width: b.renameWidth, NumPhysRegs: b.numPhysRegs},
		tracker, decodeQueue, renameLink))
	simulator.AddComponent(NewReorderBuffer(
		sim.BuildName(name, "ROB"),
		ROBConfig{NumEntries: b.numROBEntries, RetireWidth: b.retireWidth},
		b.ctx, b.policy,
		renameLink, tracker, writebackLink, retiredLink, retireLink, ports))
	for i, port := range ports {
		simulator.AddComponent(NewExecutionUnit(
			sim.BuildNameWithIndex(name, "ExecUnit", i),
			port, writebackLink))
	}
	simulator.AddComponent(NewRetirer(
		sim.BuildName(name, "Retirer"),
		RetirerConfig{Width: b.retirerWidth},
		retireLink, retiredLink, log))

	// Register the buffers for introspection and propagation.
	simulator.AddBuffer(fetchLink)
	simulator.AddBuffer(preDecodeQueue)
	simulator.AddBuffer(decodeQueue)
	simulator.AddBuffer(renameLink)
	for _, port := range ports {
		simulator.AddBuffer(port)
	}
	simulator.AddBuffer(writebackLink)
	simulator.AddBuffer(retireLink)
	simulator.AddBuffer(retiredLink)
	simulator.AddBuffer(tracker)

	return &Processor{
		Simulator: simulator,
		ctx:       b.ctx,
		log:       log,
	}, nil
}

func (b Builder) validate() error {
	if b.ctx == nil {
		return fmt.Errorf("no machine context configured")
	}

	if b.block == nil || len(b.block.Insts) == 0 {
		return fmt.Errorf("no instruction block configured")
	}

	if b.iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", b.iterations)
	}

	widths := map[string]int{
		"fetch width":       b.fetchWidth,
		"parse width":       b.parseWidth,
		"decode width":      b.decodeWidth,
		"rename width":      b.renameWidth,
		"retire width":      b.retireWidth,
		"ROB entries":       b.numROBEntries,
		"pre-decode queue":  b.preDecodeCap,
		"decode queue":      b.decodeQueueCap,
		"retire link":       b.retireLinkCap,
		"port buffer depth": b.portDepth,
	}
	for what, v := range widths {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", what, v)
		}
	}

	if b.numPhysRegs == 0 {
		return fmt.Errorf("physical register count must be positive")
	}

	for _, inst := range b.block.Insts {
		if _, err := b.ctx.DescOf(inst.Opcode); err != nil {
			return err
		}
	}

	maxUops := 0
	for _, inst := range b.block.Insts {
		desc, _ := b.ctx.DescOf(inst.Opcode)
		if len(desc.Uops) > maxUops {
			maxUops = len(desc.Uops)
		}
	}
	if maxUops > b.decodeQueueCap {
		return fmt.Errorf(
			"decode queue depth %d cannot hold the %d uops of one instruction",
			b.decodeQueueCap, maxUops)
	}

	return nil
}
