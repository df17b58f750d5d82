package tracing

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/SecOpsGit/EXEgesis/sim"
)

// CSVTracer writes completed tasks into a CSV file, one row per task.
type CSVTracer struct {
	cycleTeller sim.CycleTeller

	path string
	file *os.File

	lock          sync.Mutex
	inflightTasks map[string]Task
	tasks         []Task
	bufferSize    int
}

// NewCSVTracer creates a CSVTracer. An empty path derives a unique
// filename.
func NewCSVTracer(cycleTeller sim.CycleTeller, path string) *CSVTracer {
	t := &CSVTracer{
		cycleTeller:   cycleTeller,
		path:          path,
		inflightTasks: make(map[string]Task),
		bufferSize:    1000,
	}

	t.init()

	return t
}

// init creates the tracing CSV file. An existing file is never overwritten.
func (t *CSVTracer) init() {
	if t.path == "" {
		t.path = "exesim_trace_" + xid.New().String()
	}

	filename := t.path + ".csv"
	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	t.file = file

	fmt.Fprintf(file, "ID, ParentID, Kind, What, Where, Start, End\n")

	atexit.Register(func() {
		t.Flush()
		err := t.file.Close()
		if err != nil {
			panic(err)
		}
	})
}

// StartTask records the task start cycle.
func (t *CSVTracer) StartTask(task Task) {
	task.StartCycle = t.cycleTeller.CurrentCycle()

	t.lock.Lock()
	t.inflightTasks[task.ID] = task
	t.lock.Unlock()
}

// StepTask does nothing.
func (t *CSVTracer) StepTask(_ Task) {
	// Do nothing
}

// EndTask buffers the completed task for writing.
func (t *CSVTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	originalTask, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	originalTask.EndCycle = t.cycleTeller.CurrentCycle()
	delete(t.inflightTasks, task.ID)

	t.tasks = append(t.tasks, originalTask)
	if len(t.tasks) >= t.bufferSize {
		t.flushLocked()
	}
}

// Flush writes all the buffered tasks to the CSV file.
func (t *CSVTracer) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.flushLocked()
}

func (t *CSVTracer) flushLocked() {
	for _, task := range t.tasks {
		fmt.Fprintf(t.file, "%s, %s, %s, %s, %s, %d, %d\n",
			task.ID,
			task.ParentID,
			task.Kind,
			task.What,
			task.Where,
			task.StartCycle,
			task.EndCycle,
		)
	}

	t.tasks = nil
}
