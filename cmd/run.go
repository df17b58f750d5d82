package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/SecOpsGit/EXEgesis/datarecording"
	"github.com/SecOpsGit/EXEgesis/machine"
	"github.com/SecOpsGit/EXEgesis/monitoring"
	"github.com/SecOpsGit/EXEgesis/pipeline"
	"github.com/SecOpsGit/EXEgesis/sim"
	"github.com/SecOpsGit/EXEgesis/tracing"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate a basic block and report its throughput.",
	Long: `run simulates a basic block for a number of iterations on the ` +
		`Haswell model and reports the cycle count and the instructions ` +
		`retired per cycle.

The block file holds one instruction per line:

    OPCODE defs <- uses

For example:

    MOV32rm EAX <- RSI
    IMUL32rr EAX <- EAX, EBX
    MOV32mr <- EAX, RDI

Registers left of the arrow are written, registers right of the arrow are
read. Blank lines and lines starting with # are ignored.`,
	Run: func(cmd *cobra.Command, _ []string) {
		runSimulation(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("block", "",
		"Path of the basic block file to simulate")
	runCmd.Flags().Int("iterations", 100,
		"Number of times the block is replayed")
	runCmd.Flags().Uint64("max-cycles", 0,
		"Stop the simulation after this many cycles, 0 means no limit")
	runCmd.Flags().String("issue-policy", "least-loaded",
		"Port selection policy, `least-loaded` or `first-fit`")
	runCmd.Flags().Bool("monitor", false,
		"Start the monitoring server and open it in a browser")
	runCmd.Flags().String("trace-csv", "",
		"Write a uop lifetime trace to this CSV file")
	runCmd.Flags().String("trace-db", "",
		"Write a uop lifetime trace to this SQLite database")
	runCmd.Flags().String("record", "",
		"Record retirement events into this SQLite database")

	err := runCmd.MarkFlagRequired("block")
	if err != nil {
		panic(err)
	}
}

func runSimulation(cmd *cobra.Command) {
	blockPath, _ := cmd.Flags().GetString("block")
	iterations, _ := cmd.Flags().GetInt("iterations")
	maxCycles, _ := cmd.Flags().GetUint64("max-cycles")

	block, err := parseBlockFile(blockPath)
	if err != nil {
		log.Fatalf("Error reading block: %v", err)
	}

	ctx, err := machine.NewGlobalContext(machine.HaswellModel())
	if err != nil {
		log.Fatalf("Error building machine model: %v", err)
	}

	builder := pipeline.MakeBuilder().
		WithContext(ctx).
		WithBlock(block).
		WithIterations(iterations).
		WithIssuePolicy(issuePolicy(cmd)).
		WithMaxCycles(sim.VCycle(maxCycles))

	processor, err := builder.Build("CPU")
	if err != nil {
		log.Fatalf("Error building processor: %v", err)
	}

	attachTracers(cmd, processor)
	startMonitor(cmd, processor, uint64(len(block.Insts)*iterations))

	runErr := processor.Run()

	reportResult(processor, block, iterations, runErr)
	recordRetirements(cmd, processor)

	atexit.Exit(exitCode(runErr))
}

func issuePolicy(cmd *cobra.Command) pipeline.IssuePolicy {
	name, _ := cmd.Flags().GetString("issue-policy")

	switch name {
	case "least-loaded":
		return pipeline.LeastLoaded()
	case "first-fit":
		return pipeline.FirstFit()
	default:
		log.Fatalf("Unknown issue policy %s, "+
			"allowed values are `least-loaded` and `first-fit`", name)
		return nil
	}
}

func attachTracers(cmd *cobra.Command, processor *pipeline.Processor) {
	var tracers []tracing.Tracer

	csvPath, _ := cmd.Flags().GetString("trace-csv")
	if csvPath != "" {
		tracers = append(tracers, tracing.NewCSVTracer(processor, csvPath))
	}

	dbPath, _ := cmd.Flags().GetString("trace-db")
	if dbPath != "" {
		recorder := datarecording.New(dbPath)
		tracers = append(tracers, tracing.NewDBTracer(processor, recorder))
	}

	for _, t := range tracers {
		for _, c := range processor.Components() {
			tracing.CollectTrace(c, t)
		}
	}
}

// retireProgress advances a progress bar as instructions retire.
type retireProgress struct {
	bar *monitoring.ProgressBar
}

func (h *retireProgress) Func(ctx sim.HookCtx) {
	if ctx.Pos == pipeline.HookPosInstRetire {
		h.bar.IncrementFinished(1)
	}
}

func startMonitor(
	cmd *cobra.Command,
	processor *pipeline.Processor,
	totalInsts uint64,
) {
	enabled, _ := cmd.Flags().GetBool("monitor")
	if !enabled {
		return
	}

	port := 0
	if portStr := os.Getenv("EXESIM_MONITOR_PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			log.Fatalf("Invalid EXESIM_MONITOR_PORT %q: %v", portStr, err)
		}
	}

	monitor := monitoring.NewMonitor()
	if port != 0 {
		monitor = monitor.WithPortNumber(port)
	}

	monitor.RegisterSimulator(processor.Simulator)

	bar := monitor.CreateProgressBar("Retired instructions", totalInsts)
	processor.RetirementLog().AcceptHook(&retireProgress{bar: bar})

	monitor.StartServer()

	if port != 0 {
		url := fmt.Sprintf("http://localhost:%d", port)
		err := browser.OpenURL(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %v\n", err)
		}
	}
}

func reportResult(
	processor *pipeline.Processor,
	block *pipeline.Block,
	iterations int,
	runErr error,
) {
	switch {
	case runErr == nil:
		color.Green("Simulation completed.")
	case errors.Is(runErr, sim.ErrCycleLimit):
		color.Yellow("Simulation stopped at the cycle limit.")
	case errors.Is(runErr, sim.ErrStalled):
		color.Red("Simulation deadlocked with instructions in flight.")
	default:
		color.Red("Simulation failed: %v", runErr)
	}

	cycles := processor.CurrentCycle()
	retired := len(processor.RetirementLog().Retired())
	expected := len(block.Insts) * iterations

	bold := color.New(color.Bold)
	bold.Printf("Cycles:       %d\n", cycles)
	bold.Printf("Retired:      %d / %d instructions\n", retired, expected)

	if cycles > 0 {
		bold.Printf("IPC:          %.2f\n", float64(retired)/float64(cycles))
	}
	if iterations > 0 && retired == expected {
		bold.Printf("Cycles/iter:  %.2f\n", float64(cycles)/float64(iterations))
	}
}

type retiredEntry struct {
	Iteration int64
	Offset    int64
	Cycle     int64
}

func recordRetirements(cmd *cobra.Command, processor *pipeline.Processor) {
	path, _ := cmd.Flags().GetString("record")
	if path == "" {
		return
	}

	recorder := datarecording.New(path)
	recorder.CreateTable("retired", retiredEntry{})

	for _, r := range processor.RetirementLog().Retired() {
		recorder.InsertData("retired", retiredEntry{
			Iteration: int64(r.Index.Iteration),
			Offset:    int64(r.Index.Offset),
			Cycle:     int64(r.Cycle),
		})
	}

	recorder.Flush()
}

func exitCode(runErr error) int {
	if runErr == nil || errors.Is(runErr, sim.ErrCycleLimit) {
		return 0
	}

	return 1
}

func parseBlockFile(path string) (*pipeline.Block, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	block := &pipeline.Block{}

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++

		inst, ok, err := parseBlockLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if ok {
			block.Insts = append(block.Insts, inst)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(block.Insts) == 0 {
		return nil, fmt.Errorf("block file %s holds no instructions", path)
	}

	return block, nil
}

func parseBlockLine(line string) (pipeline.Instruction, bool, error) {
	if i := strings.Index(line, "#"); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return pipeline.Instruction{}, false, nil
	}

	defsPart := line
	usesPart := ""
	if i := strings.Index(line, "<-"); i >= 0 {
		defsPart = strings.TrimSpace(line[:i])
		usesPart = strings.TrimSpace(line[i+2:])
	}

	fields := strings.Fields(defsPart)
	if len(fields) == 0 {
		return pipeline.Instruction{}, false,
			errors.New("missing opcode")
	}

	inst := pipeline.Instruction{
		Opcode: fields[0],
		Defs:   parseRegisterList(strings.Join(fields[1:], " ")),
		Uses:   parseRegisterList(usesPart),
	}

	return inst, true, nil
}

func parseRegisterList(list string) []machine.Register {
	var registers []machine.Register
	for _, name := range strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	}) {
		registers = append(registers, machine.Register(name))
	}

	return registers
}
