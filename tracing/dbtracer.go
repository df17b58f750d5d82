package tracing

import (
	"sync"

	"github.com/tebeka/atexit"

	"github.com/SecOpsGit/EXEgesis/datarecording"
	"github.com/SecOpsGit/EXEgesis/sim"
)

type taskTableEntry struct {
	ID         string
	ParentID   string
	Kind       string
	What       string
	Where      string
	StartCycle int64
	EndCycle   int64
}

// DBTracer stores completed tasks in a trace table of a data recording
// backend, so traces from large simulations can be queried instead of
// replayed.
type DBTracer struct {
	mu          sync.Mutex
	cycleTeller sim.CycleTeller
	backend     datarecording.DataRecorder

	startCycle, endCycle sim.VCycle

	tracingTasks map[string]Task
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(
	cycleTeller sim.CycleTeller,
	dataRecorder datarecording.DataRecorder,
) *DBTracer {
	dataRecorder.CreateTable("trace", taskTableEntry{})

	t := &DBTracer{
		cycleTeller:  cycleTeller,
		backend:      dataRecorder,
		tracingTasks: make(map[string]Task),
	}

	atexit.Register(func() { t.Terminate() })

	return t
}

// SetCycleRange restricts tracing to tasks overlapping the given cycle
// range. A zero end cycle means no upper bound.
func (t *DBTracer) SetCycleRange(startCycle, endCycle sim.VCycle) {
	t.startCycle = startCycle
	t.endCycle = endCycle
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startingTaskMustBeValid(task)

	task.StartCycle = t.cycleTeller.CurrentCycle()
	if t.endCycle > 0 && task.StartCycle > t.endCycle {
		return
	}

	t.tracingTasks[task.ID] = task
}

func (t *DBTracer) startingTaskMustBeValid(task Task) {
	if task.ID == "" {
		panic("task ID must be set")
	}

	if task.Kind == "" {
		panic("task kind must be set")
	}

	if task.What == "" {
		panic("task what must be set")
	}

	if task.Where == "" {
		panic("task where must be set")
	}
}

// StepTask does nothing for now.
func (t *DBTracer) StepTask(_ Task) {
	// Do nothing
}

// EndTask writes the completed task to the backend.
func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	endCycle := t.cycleTeller.CurrentCycle()
	if t.startCycle > 0 && endCycle < t.startCycle {
		delete(t.tracingTasks, task.ID)
		return
	}

	originalTask, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	originalTask.EndCycle = endCycle
	delete(t.tracingTasks, task.ID)

	t.backend.InsertData("trace", taskTableEntry{
		ID:         originalTask.ID,
		ParentID:   originalTask.ParentID,
		Kind:       originalTask.Kind,
		What:       originalTask.What,
		Where:      originalTask.Where,
		StartCycle: int64(originalTask.StartCycle),
		EndCycle:   int64(originalTask.EndCycle),
	})
}

// Terminate flushes the backend and drops the in-flight tasks.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracingTasks = nil
	t.backend.Flush()
}
