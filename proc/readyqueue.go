package proc

import "sync"

// ReadyQueue is the scheduler's run queue: plain FIFO, matching
// original_source/os/src/task/manager.rs's TaskManager (a VecDeque,
// add pushes back, fetch pops front) — spec.md does not call for any
// priority scheme, so round-robin over a FIFO is the whole policy.
type ReadyQueue struct {
	mu    sync.Mutex
	tasks []*Pcb
}

func NewReadyQueue() *ReadyQueue { return &ReadyQueue{} }

// Add appends a task to the back of the queue and marks it Ready.
func (q *ReadyQueue) Add(p *Pcb) {
	q.mu.Lock()
	defer q.mu.Unlock()
	p.Status = Ready
	q.tasks = append(q.tasks, p)
}

// Fetch pops the task at the front of the queue, or nil if empty.
func (q *ReadyQueue) Fetch() *Pcb {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil
	}
	p := q.tasks[0]
	q.tasks = q.tasks[1:]
	return p
}

// Len reports the number of ready tasks, mostly useful to tests.
func (q *ReadyQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// All returns a snapshot of the tasks presently waiting, in queue order.
// Used by the accounting/profile-dump path (stats, via kernel.Kernel),
// which needs to see every live process, not just the one currently
// running.
func (q *ReadyQueue) All() []*Pcb {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Pcb, len(q.tasks))
	copy(out, q.tasks)
	return out
}

// ReadyQueueGlobal is the kernel's single ready queue, matching
// original_source's lazy_static TASK_MANAGER.
var ReadyQueueGlobal = NewReadyQueue()
