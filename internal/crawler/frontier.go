package crawler

import "time"

// frontierEntry wraps a task with its earliest eligible time. Retried tasks
// carry a backoff deadline; fresh tasks are immediately eligible.
type frontierEntry struct {
	task      CrawlTask
	notBefore time.Time
}

// Frontier is the ordered queue of pending crawl tasks: FIFO within each
// priority class, listing pages before detail pages. The frontier never drops
// a task on its own; dropping is a session controller decision.
//
// The frontier is mutated only by the session controller's single worker
// loop, so it carries no locking. A parallelized design would shard frontiers
// per traversal context instead of sharing one.
type Frontier struct {
	classes [numClasses][]frontierEntry
	size    int
}

// NewFrontier returns an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{}
}

// Push inserts a task at the back of its priority class.
func (f *Frontier) Push(task CrawlTask) {
	f.pushAt(task, time.Time{})
}

// PushDelayed inserts a task that must not run before notBefore.
func (f *Frontier) PushDelayed(task CrawlTask, notBefore time.Time) {
	f.pushAt(task, notBefore)
}

func (f *Frontier) pushAt(task CrawlTask, notBefore time.Time) {
	class := task.priorityClass()
	f.classes[class] = append(f.classes[class], frontierEntry{task: task, notBefore: notBefore})
	f.size++
}

// Pop removes and returns the next eligible task: the oldest entry in the
// highest-priority class whose backoff deadline has passed. ok is false when
// no task is currently eligible; use Len and NextEligible to distinguish an
// empty frontier from one that is merely backing off.
func (f *Frontier) Pop(now time.Time) (CrawlTask, bool) {
	for class := 0; class < numClasses; class++ {
		for i, entry := range f.classes[class] {
			if entry.notBefore.After(now) {
				continue
			}
			f.classes[class] = append(f.classes[class][:i], f.classes[class][i+1:]...)
			f.size--
			return entry.task, true
		}
	}
	return CrawlTask{}, false
}

// NextEligible returns the earliest time any queued task becomes eligible.
func (f *Frontier) NextEligible() (time.Time, bool) {
	var earliest time.Time
	found := false
	for class := 0; class < numClasses; class++ {
		for _, entry := range f.classes[class] {
			if !found || entry.notBefore.Before(earliest) {
				earliest = entry.notBefore
				found = true
			}
		}
	}
	return earliest, found
}

// Len reports the number of queued tasks, eligible or not.
func (f *Frontier) Len() int {
	return f.size
}

// Snapshot returns all pending tasks in pop order for checkpointing. Backoff
// deadlines are not persisted; a resumed session retries immediately, which
// at worst re-fetches sooner than the abandoned run would have.
func (f *Frontier) Snapshot() []CrawlTask {
	out := make([]CrawlTask, 0, f.size)
	for class := 0; class < numClasses; class++ {
		for _, entry := range f.classes[class] {
			out = append(out, entry.task)
		}
	}
	return out
}

// Restore re-queues tasks from a checkpoint, preserving their order.
func (f *Frontier) Restore(tasks []CrawlTask) {
	for _, task := range tasks {
		f.Push(task)
	}
}
