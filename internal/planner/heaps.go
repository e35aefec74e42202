package planner

import (
	"container/heap"
	"math/rand"
)

// openHeap orders nodes by f ascending; ties favor larger g (deeper,
// so closer to the goal), then a coin flip from the search's seeded
// RNG, mirroring the reference comparator's rand()%2 tiebreak.
type openHeap struct {
	items []*node
	rng   *rand.Rand
}

func (h *openHeap) Len() int { return len(h.items) }
func (h *openHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.f() != b.f() {
		return a.f() < b.f()
	}
	if a.g != b.g {
		return a.g > b.g
	}
	return h.rng.Intn(2) == 0
}
func (h *openHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].openIndex = i
	h.items[j].openIndex = j
}
func (h *openHeap) Push(x any) {
	n := x.(*node)
	n.openIndex = len(h.items)
	h.items = append(h.items, n)
}
func (h *openHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	item.openIndex = -1
	return item
}

func (h *openHeap) push(n *node)  { heap.Push(h, n) }
func (h *openHeap) pop() *node    { return heap.Pop(h).(*node) }
func (h *openHeap) fix(n *node)   { heap.Fix(h, n.openIndex) }
func (h *openHeap) remove(n *node) {
	if n.openIndex < 0 {
		return
	}
	heap.Remove(h, n.openIndex)
}
func (h *openHeap) top() *node {
	if len(h.items) == 0 {
		return nil
	}
	return h.items[0]
}

// focalHeap orders nodes by num_of_conflicts ascending; ties favor
// smaller f, then smaller h, then the shared RNG coin flip.
type focalHeap struct {
	items []*node
	rng   *rand.Rand
}

func (h *focalHeap) Len() int { return len(h.items) }
func (h *focalHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.numConflicts != b.numConflicts {
		return a.numConflicts < b.numConflicts
	}
	if a.f() != b.f() {
		return a.f() < b.f()
	}
	if a.h != b.h {
		return a.h < b.h
	}
	return h.rng.Intn(2) == 0
}
func (h *focalHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].focalIndex = i
	h.items[j].focalIndex = j
}
func (h *focalHeap) Push(x any) {
	n := x.(*node)
	n.focalIndex = len(h.items)
	h.items = append(h.items, n)
}
func (h *focalHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	item.focalIndex = -1
	return item
}

func (h *focalHeap) push(n *node) { heap.Push(h, n) }
func (h *focalHeap) pop() *node   { return heap.Pop(h).(*node) }
func (h *focalHeap) fix(n *node)  { heap.Fix(h, n.focalIndex) }
