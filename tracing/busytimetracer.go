package tracing

import (
	"sort"
	"sync"

	"github.com/sarchlab/hbmnoc/sim"
)

type interval struct {
	start, end sim.VTimeInCycle
}

// BusyTimeTracer measures the number of cycles in which a domain works on at
// least one task of interest. Overlapping tasks are only counted once.
type BusyTimeTracer struct {
	timeTeller sim.TimeTeller
	filter     TaskFilter

	lock          sync.Mutex
	inflightTasks map[string]sim.VTimeInCycle
	finished      []interval
	busyTime      sim.VTimeInCycle
}

// NewBusyTimeTracer creates a new BusyTimeTracer
func NewBusyTimeTracer(
	timeTeller sim.TimeTeller,
	filter TaskFilter,
) *BusyTimeTracer {
	return &BusyTimeTracer{
		timeTeller:    timeTeller,
		filter:        filter,
		inflightTasks: make(map[string]sim.VTimeInCycle),
	}
}

// BusyTime returns the number of busy cycles among the finished tasks.
func (t *BusyTimeTracer) BusyTime() sim.VTimeInCycle {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.collapse()

	return t.busyTime
}

// TerminateAllTasks ends every task that is still running at the current
// time.
func (t *BusyTimeTracer) TerminateAllTasks() {
	now := t.timeTeller.CurrentTime()

	t.lock.Lock()
	defer t.lock.Unlock()

	for id, start := range t.inflightTasks {
		t.finished = append(t.finished, interval{start: start, end: now})
		delete(t.inflightTasks, id)
	}
}

// StartTask records the task start time
func (t *BusyTimeTracer) StartTask(task Task) {
	if t.filter != nil && !t.filter(task) {
		return
	}

	now := t.timeTeller.CurrentTime()

	t.lock.Lock()
	t.inflightTasks[task.ID] = now
	t.lock.Unlock()
}

// StepTask does nothing
func (t *BusyTimeTracer) StepTask(_ Task) {
	// Do nothing
}

// EndTask records the end of the task
func (t *BusyTimeTracer) EndTask(task Task) {
	now := t.timeTeller.CurrentTime()

	t.lock.Lock()
	defer t.lock.Unlock()

	start, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	delete(t.inflightTasks, task.ID)
	t.finished = append(t.finished, interval{start: start, end: now})
}

// collapse folds the finished intervals that can no longer overlap with a
// running task into busyTime.
func (t *BusyTimeTracer) collapse() {
	horizon, limited := t.earliestInflightStart()

	sort.Slice(t.finished, func(i, j int) bool {
		return t.finished[i].start < t.finished[j].start
	})

	var (
		group   []interval
		pending []interval
		span    interval
	)

	commit := func() {
		if len(group) == 0 {
			return
		}

		if limited && span.end >= horizon {
			pending = append(pending, group...)
		} else {
			t.busyTime += span.end - span.start
		}

		group = nil
	}

	for _, iv := range t.finished {
		if len(group) > 0 && iv.start <= span.end {
			group = append(group, iv)
			span.end = max(span.end, iv.end)

			continue
		}

		commit()

		group = []interval{iv}
		span = iv
	}

	commit()

	t.finished = pending
}

func (t *BusyTimeTracer) earliestInflightStart() (sim.VTimeInCycle, bool) {
	found := false

	var earliest sim.VTimeInCycle

	for _, start := range t.inflightTasks {
		if !found || start < earliest {
			earliest = start
			found = true
		}
	}

	return earliest, found
}
