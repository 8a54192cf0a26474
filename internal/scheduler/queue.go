package scheduler

import "time"

type scheduled struct {
	entry Entry
	next  time.Time
}

// fireQueue is a min-heap of entries by next fire time.
type fireQueue []*scheduled

func (q fireQueue) Len() int { return len(q) }

func (q fireQueue) Less(i, j int) bool {
	return q[i].next.Before(q[j].next)
}

func (q fireQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *fireQueue) Push(x any) { *q = append(*q, x.(*scheduled)) }

func (q *fireQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
