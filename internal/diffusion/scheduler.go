// Package diffusion simulates trickle-style relay of transactions over a
// peer-to-peer topology, observed by an adversary connected to every peer.
// It is a discrete event simulation: no real time passes and no bytes move.
package diffusion

import (
	"container/heap"
	"time"

	"github.com/LeJamon/txdiffusion/internal/topology"
)

// SimTime is simulated time elapsed since the start of a run.
type SimTime time.Duration

// Microseconds returns t as whole microseconds.
func (t SimTime) Microseconds() int64 { return time.Duration(t).Microseconds() }

func (t SimTime) String() string { return time.Duration(t).String() }

// Action is the work an event asks for.
type Action uint8

const (
	// ActionFlush sends every pending transaction across the event's edge.
	ActionFlush Action = iota + 1
)

func (a Action) String() string {
	switch a {
	case ActionFlush:
		return "flush"
	default:
		return "unknown"
	}
}

// event is an immutable scheduled action on a directed edge.
type event struct {
	when   SimTime
	edge   topology.Edge
	action Action
}

// eventHeap orders events by time, then by edge.
type eventHeap []event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].when != h[j].when {
		return h[i].when < h[j].when
	}
	if h[i].edge != h[j].edge {
		return h[i].edge.Less(h[j].edge)
	}
	return h[i].action < h[j].action
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(event)) }

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// queue is the event priority queue of one simulation. Each directed edge
// has at most one live event in it.
type queue struct {
	events eventHeap
}

// newQueue heapifies the initial events in one pass.
func newQueue(initial []event) *queue {
	q := &queue{events: eventHeap(initial)}
	heap.Init(&q.events)
	return q
}

func (q *queue) push(e event) { heap.Push(&q.events, e) }

func (q *queue) pop() (event, bool) {
	if q.events.Len() == 0 {
		return event{}, false
	}
	return heap.Pop(&q.events).(event), true
}

func (q *queue) len() int { return q.events.Len() }
