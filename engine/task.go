package engine

import (
	"slices"
	"time"
)

// Task is a long-running operation polled once per tick
// Tick applies one slice of work and returns false once the task is finished
type Task interface {
	Tick(dt time.Duration) bool
}

type funcTask struct {
	fn func(dt time.Duration) bool
}

func (f *funcTask) Tick(dt time.Duration) bool {
	return f.fn(dt)
}

// Func wraps fn as a Task with pointer identity, so it can be removed later
func Func(fn func(dt time.Duration) bool) Task {
	return &funcTask{fn: fn}
}

type taskOp struct {
	task Task
	add  bool
}

// Scheduler runs tasks cooperatively on a single timeline
// Every task ticks once per Tick in registration order; there is no preemption
// Add and Remove called during a tick are applied before the next one
type Scheduler struct {
	tasks   []Task
	ops     []taskOp
	ticking bool
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Add registers t; adding a registered task is a no-op
func (s *Scheduler) Add(t Task) {
	if t == nil {
		return
	}
	if s.ticking {
		s.ops = append(s.ops, taskOp{task: t, add: true})
		return
	}
	s.add(t)
}

// Remove unregisters t; removing an unknown task is a no-op
func (s *Scheduler) Remove(t Task) {
	if t == nil {
		return
	}
	if s.ticking {
		s.ops = append(s.ops, taskOp{task: t})
		return
	}
	s.remove(t)
}

func (s *Scheduler) add(t Task) {
	if !slices.Contains(s.tasks, t) {
		s.tasks = append(s.tasks, t)
	}
}

func (s *Scheduler) remove(t Task) {
	if i := slices.Index(s.tasks, t); i >= 0 {
		s.tasks = slices.Delete(s.tasks, i, i+1)
	}
}

// Has reports whether t is registered, ignoring changes queued during a tick
func (s *Scheduler) Has(t Task) bool {
	return slices.Contains(s.tasks, t)
}

// Len returns the number of registered tasks
func (s *Scheduler) Len() int {
	return len(s.tasks)
}

// Tick runs every registered task once and drops the ones that finished
func (s *Scheduler) Tick(dt time.Duration) {
	s.applyOps()

	s.ticking = true
	running := s.tasks
	finished := 0
	for i, t := range running {
		if !t.Tick(dt) {
			running[i] = nil
			finished++
		}
	}
	s.ticking = false

	if finished > 0 {
		s.tasks = slices.DeleteFunc(s.tasks, func(t Task) bool { return t == nil })
	}
	s.applyOps()
}

func (s *Scheduler) applyOps() {
	for _, op := range s.ops {
		if op.add {
			s.add(op.task)
		} else {
			s.remove(op.task)
		}
	}
	s.ops = s.ops[:0]
}
