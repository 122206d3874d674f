package compiler

import "container/list"

// workQueue is the FIFO of entry names awaiting compilation. Each name is
// accepted once; re-pushing an already seen name is a no-op, so reference
// cycles cannot grow the queue.
type workQueue struct {
	data list.List
	seen map[string]bool
}

func newWorkQueue() *workQueue {
	return &workQueue{seen: make(map[string]bool)}
}

func (q *workQueue) Push(name string) {
	if q.seen[name] {
		return
	}
	q.seen[name] = true
	q.data.PushBack(name)
}

func (q *workQueue) Pop() (string, bool) {
	e := q.data.Front()
	if e == nil {
		return "", false
	}
	q.data.Remove(e)
	return e.Value.(string), true
}

func (q *workQueue) Len() int {
	return q.data.Len()
}

// Seen reports whether a name was ever pushed, including names already
// popped and processed.
func (q *workQueue) Seen(name string) bool {
	return q.seen[name]
}
