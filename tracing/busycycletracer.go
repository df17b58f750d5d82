package tracing

import (
	"container/list"

	"github.com/SecOpsGit/EXEgesis/sim"
)

type taskCycleSpan struct {
	start, end sim.VCycle
	completed  bool
}

// BusyCycleTracer traces the cycles during which a domain is processing a
// kind of task. Overlapping tasks count the overlapped cycles only once.
type BusyCycleTracer struct {
	cycleTeller   sim.CycleTeller
	filter        TaskFilter
	inflightTasks map[string]*list.Element
	taskSpans     *list.List
	busyCycles    sim.VCycle
}

// NewBusyCycleTracer creates a new BusyCycleTracer.
func NewBusyCycleTracer(
	cycleTeller sim.CycleTeller,
	filter TaskFilter,
) *BusyCycleTracer {
	t := &BusyCycleTracer{
		cycleTeller:   cycleTeller,
		filter:        filter,
		inflightTasks: make(map[string]*list.Element),
		taskSpans:     list.New(),
	}

	return t
}

// BusyCycles returns the number of cycles the domain spent on the traced
// tasks.
func (t *BusyCycleTracer) BusyCycles() sim.VCycle {
	return t.busyCycles
}

// TerminateAllTasks marks all the in-flight tasks as completed.
func (t *BusyCycleTracer) TerminateAllTasks(now sim.VCycle) {
	for e := t.taskSpans.Front(); e != nil; e = e.Next() {
		span := e.Value.(*taskCycleSpan)
		if !span.completed {
			span.completed = true
			span.end = now
		}
	}

	t.collapse()
}

// StartTask records the task start cycle.
func (t *BusyCycleTracer) StartTask(task Task) {
	task.StartCycle = t.cycleTeller.CurrentCycle()

	if t.filter != nil && !t.filter(task) {
		return
	}

	span := &taskCycleSpan{start: task.StartCycle}
	t.inflightTasks[task.ID] = t.taskSpans.PushBack(span)
}

// StepTask does nothing.
func (t *BusyCycleTracer) StepTask(_ Task) {
	// Do nothing
}

// EndTask records the end of the task.
func (t *BusyCycleTracer) EndTask(task Task) {
	task.EndCycle = t.cycleTeller.CurrentCycle()

	elem, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	span := elem.Value.(*taskCycleSpan)
	span.end = task.EndCycle
	span.completed = true
	delete(t.inflightTasks, task.ID)

	t.collapse()
}

// collapse folds the leading run of completed spans into the busy cycle
// count. Spans behind an incomplete task stay in the list, since that task
// may later extend into them.
func (t *BusyCycleTracer) collapse() {
	finished := make([]*taskCycleSpan, 0)

	var next *list.Element
	for e := t.taskSpans.Front(); e != nil; e = next {
		next = e.Next()

		span := e.Value.(*taskCycleSpan)
		if !span.completed {
			break
		}

		finished = append(finished, span)
		t.taskSpans.Remove(e)
	}

	t.busyCycles += t.unionCycles(finished)
}

// unionCycles returns the length of the union of the given spans.
func (t *BusyCycleTracer) unionCycles(spans []*taskCycleSpan) sim.VCycle {
	busy := sim.VCycle(0)
	covered := make(map[int]bool)

	for i, s1 := range spans {
		if covered[i] {
			continue
		}
		covered[i] = true

		ext := taskCycleSpan{start: s1.start, end: s1.end}

		for j, s2 := range spans {
			if covered[j] {
				continue
			}

			if spansOverlap(&ext, s2) {
				covered[j] = true
				extendSpan(&ext, s2)
			}
		}

		busy += ext.end - ext.start
	}

	return busy
}

func extendSpan(base, other *taskCycleSpan) {
	if other.start < base.start {
		base.start = other.start
	}

	if other.end > base.end {
		base.end = other.end
	}
}

func spansOverlap(s1, s2 *taskCycleSpan) bool {
	if s1.start <= s2.start && s1.end >= s2.start {
		return true
	}

	if s1.start <= s2.end && s1.end >= s2.end {
		return true
	}

	return s1.start >= s2.start && s1.end <= s2.end
}
