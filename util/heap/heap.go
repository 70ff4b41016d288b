package heap

import "container/heap"

// Heap is a priority queue over a comparator function; the smallest element
// according to the comparator is at the top.
type Heap[T any] struct {
	inner innerHeap[T]
}

func NewHeap[T any](comparator func(a, b T) int, items ...T) Heap[T] {
	out := Heap[T]{
		inner: innerHeap[T]{
			comparator: comparator,
			items:      items,
		},
	}
	heap.Init(&out.inner)
	return out
}

func (me *Heap[T]) Size() int {
	return len(me.inner.items)
}

func (me *Heap[T]) Peek() T {
	return me.inner.items[0]
}

func (me *Heap[T]) Pop() T {
	return heap.Pop(&me.inner).(T)
}

func (me *Heap[T]) Push(value T) {
	heap.Push(&me.inner, value)
}

var _ heap.Interface = (*innerHeap[any])(nil)

type innerHeap[T any] struct {
	comparator func(a, b T) int
	items      []T
}

func (me *innerHeap[T]) Len() int {
	return len(me.items)
}

func (me *innerHeap[T]) Swap(i, j int) {
	me.items[i], me.items[j] = me.items[j], me.items[i]
}

func (me *innerHeap[T]) Less(i, j int) bool {
	return me.comparator(me.items[i], me.items[j]) < 0
}

// Pop implements heap.Interface.
func (me *innerHeap[T]) Pop() any {
	out := me.items[len(me.items)-1]
	me.items = me.items[:len(me.items)-1]
	return out
}

// Push implements heap.Interface.
func (me *innerHeap[T]) Push(x any) {
	me.items = append(me.items, x.(T))
}
