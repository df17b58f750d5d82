package tracing

import (
	"sync"
)

// StepCountTracer counts how often each step name is reached while
// processing tasks.
type StepCountTracer struct {
	filter            TaskFilter
	lock              sync.Mutex
	inflightTasks     map[string]Task
	stepNames         []string
	stepCount         map[string]uint64
	taskWithStepCount map[string]uint64
}

// NewStepCountTracer creates a new StepCountTracer.
func NewStepCountTracer(filter TaskFilter) *StepCountTracer {
	return &StepCountTracer{
		filter:            filter,
		inflightTasks:     make(map[string]Task),
		stepCount:         make(map[string]uint64),
		taskWithStepCount: make(map[string]uint64),
	}
}

// StepNames returns all the step names collected.
func (t *StepCountTracer) StepNames() []string {
	return t.stepNames
}

// StepCount returns the number of times a step with the given name was
// recorded.
func (t *StepCountTracer) StepCount(stepName string) uint64 {
	return t.stepCount[stepName]
}

// TaskCount returns the number of tasks recorded to have a step with the
// given name.
func (t *StepCountTracer) TaskCount(stepName string) uint64 {
	return t.taskWithStepCount[stepName]
}

// StartTask records the task.
func (t *StepCountTracer) StartTask(task Task) {
	if !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.inflightTasks[task.ID] = task
	t.lock.Unlock()
}

// StepTask counts the step.
func (t *StepCountTracer) StepTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.countStep(task)
	t.countTask(task)
}

func (t *StepCountTracer) countStep(task Task) {
	step := task.Steps[0]
	if _, ok := t.stepCount[step.What]; !ok {
		t.stepNames = append(t.stepNames, step.What)
	}
	t.stepCount[step.What]++
}

func (t *StepCountTracer) countTask(task Task) {
	step := task.Steps[0]

	originalTask, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	if !taskContainsStep(originalTask, step) {
		t.taskWithStepCount[step.What]++
	}

	originalTask.Steps = append(originalTask.Steps, step)
	t.inflightTasks[task.ID] = originalTask
}

func taskContainsStep(task Task, step TaskStep) bool {
	for _, s := range task.Steps {
		if s.What == step.What {
			return true
		}
	}

	return false
}

// EndTask forgets the task.
func (t *StepCountTracer) EndTask(task Task) {
	t.lock.Lock()
	delete(t.inflightTasks, task.ID)
	t.lock.Unlock()
}
