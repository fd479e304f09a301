package vector

import "container/heap"

type candidate struct {
	id   uint32
	dist float32
}

// distQueue is a binary heap of candidates. With max set the farthest candidate is
// on top, otherwise the nearest.
type distQueue struct {
	items []candidate
	max   bool
}

var _ heap.Interface = (*distQueue)(nil)

func (q *distQueue) Len() int { return len(q.items) }

func (q *distQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.dist == b.dist {
		if q.max {
			return a.id > b.id
		}
		return a.id < b.id
	}
	if q.max {
		return a.dist > b.dist
	}
	return a.dist < b.dist
}

func (q *distQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *distQueue) Push(x any) { q.items = append(q.items, x.(candidate)) }

func (q *distQueue) Pop() any {
	n := len(q.items)
	c := q.items[n-1]
	q.items = q.items[:n-1]
	return c
}

func (q *distQueue) push(c candidate) { heap.Push(q, c) }

func (q *distQueue) pop() candidate { return heap.Pop(q).(candidate) }

func (q *distQueue) top() candidate { return q.items[0] }

// sorted drains a max queue into ascending order.
func (q *distQueue) sorted() []candidate {
	out := make([]candidate, q.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = q.pop()
	}
	return out
}
