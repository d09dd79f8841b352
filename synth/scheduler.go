package synth

import "container/heap"

// TaskID identifies a scheduled task. The zero value is never issued, so it
// can be used as "no task pending".
type TaskID uint64

// scheduler is a sample-clock driven task queue. Tasks fire in due-time order
// (ties broken by schedule order) when the clock advances past them; a
// cancelled id is simply skipped when popped, so a stale timer can never act
// on a voice that has already moved on.
type scheduler struct {
	sampleRate int
	clock      int64 // samples elapsed since engine construction
	nextID     TaskID
	queue      taskQueue
	cancelled  map[TaskID]struct{}
}

type task struct {
	due int64
	id  TaskID
	fn  func()
}

func newScheduler(sampleRate int) *scheduler {
	return &scheduler{
		sampleRate: sampleRate,
		cancelled:  make(map[TaskID]struct{}),
	}
}

// Now returns the current engine time in seconds.
func (s *scheduler) Now() float64 {
	return float64(s.clock) / float64(s.sampleRate)
}

// AfterSeconds schedules fn to run delay seconds from now.
func (s *scheduler) AfterSeconds(delay float64, fn func()) TaskID {
	if delay < 0 {
		delay = 0
	}
	due := s.clock + int64(delay*float64(s.sampleRate))
	s.nextID++
	id := s.nextID
	heap.Push(&s.queue, &task{due: due, id: id, fn: fn})
	return id
}

// Cancel revokes a pending task. Unknown or already-fired ids are no-ops.
func (s *scheduler) Cancel(id TaskID) {
	if id == 0 {
		return
	}
	for _, t := range s.queue {
		if t.id == id {
			s.cancelled[id] = struct{}{}
			return
		}
	}
}

// Advance moves the clock forward by frames samples, firing every task whose
// due time falls inside the advanced span. Tasks scheduled by a firing task
// run in the same pass if they are already due.
func (s *scheduler) Advance(frames int) {
	target := s.clock + int64(frames)
	for len(s.queue) > 0 && s.queue[0].due <= target {
		t := heap.Pop(&s.queue).(*task)
		if _, ok := s.cancelled[t.id]; ok {
			delete(s.cancelled, t.id)
			continue
		}
		if t.due > s.clock {
			s.clock = t.due
		}
		t.fn()
	}
	s.clock = target
}

// Reset drops every pending task without running it.
func (s *scheduler) Reset() {
	s.queue = nil
	s.cancelled = make(map[TaskID]struct{})
}

// Pending reports the number of not-yet-fired, not-cancelled tasks.
func (s *scheduler) Pending() int {
	return len(s.queue) - len(s.cancelled)
}

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].id < q[j].id
}

func (q taskQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *taskQueue) Push(x any) { *q = append(*q, x.(*task)) }

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}
