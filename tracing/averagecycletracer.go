package tracing

import (
	"sync"

	"github.com/SecOpsGit/EXEgesis/sim"
)

// AverageCycleTracer can collect the average number of cycles spent on a
// certain type of task.
type AverageCycleTracer struct {
	cycleTeller   sim.CycleTeller
	filter        TaskFilter
	lock          sync.Mutex
	totalCycles   sim.VCycle
	inflightTasks map[string]Task
	taskCount     uint64
}

// NewAverageCycleTracer creates a new AverageCycleTracer.
func NewAverageCycleTracer(
	cycleTeller sim.CycleTeller,
	filter TaskFilter,
) *AverageCycleTracer {
	return &AverageCycleTracer{
		cycleTeller:   cycleTeller,
		filter:        filter,
		inflightTasks: make(map[string]Task),
	}
}

// AverageCycles returns the average number of cycles spent on the traced
// tasks.
func (t *AverageCycleTracer) AverageCycles() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.taskCount == 0 {
		return 0
	}

	return float64(t.totalCycles) / float64(t.taskCount)
}

// TotalCount returns the total number of completed tasks.
func (t *AverageCycleTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.taskCount
}

// StartTask records the task start cycle.
func (t *AverageCycleTracer) StartTask(task Task) {
	task.StartCycle = t.cycleTeller.CurrentCycle()

	if !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.inflightTasks[task.ID] = task
	t.lock.Unlock()
}

// StepTask does nothing.
func (t *AverageCycleTracer) StepTask(_ Task) {
	// Do nothing
}

// EndTask records the end of the task.
func (t *AverageCycleTracer) EndTask(task Task) {
	task.EndCycle = t.cycleTeller.CurrentCycle()

	t.lock.Lock()
	originalTask, ok := t.inflightTasks[task.ID]
	if !ok {
		t.lock.Unlock()
		return
	}

	t.totalCycles += task.EndCycle - originalTask.StartCycle
	t.taskCount++
	delete(t.inflightTasks, task.ID)
	t.lock.Unlock()
}
