package huff

import (
	"container/heap"
)

const noChild = int32(-1)

// node is one slot of the Tree node pool. Children are pool indexes.
type node struct {
	freq   uint64
	order  int32
	left   int32
	right  int32
	symbol byte
}

func (n *node) leaf() bool {
	return n.left == noChild && n.right == noChild
}

// Tree is a Huffman tree stored as an index-based node pool.
//
// Construction is greedy: the two lowest-frequency nodes are merged until one
// node remains. Nodes are ordered by (frequency, order) where a leaf's order
// is its symbol value and the k-th merged node has order 256+k, so leaves win
// ties against merged nodes and older merges win against newer ones. The
// first node popped becomes the left child.
type Tree struct {
	nodes []node
	root  int32
}

type nodeHeap struct {
	tree  *Tree
	items []int32
}

func (h *nodeHeap) Len() int { return len(h.items) }

func (h *nodeHeap) Less(i, j int) bool {
	a := &h.tree.nodes[h.items[i]]
	b := &h.tree.nodes[h.items[j]]
	if a.freq != b.freq {
		return a.freq < b.freq
	}
	return a.order < b.order
}

func (h *nodeHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *nodeHeap) Push(x any) { h.items = append(h.items, x.(int32)) }

func (h *nodeHeap) Pop() any {
	old := h.items
	n := old[len(old)-1]
	h.items = old[:len(old)-1]
	return n
}

// BuildTree builds the Huffman tree of ft.
//
// A table with a single symbol yields a root whose only child is the left
// leaf, giving that symbol the 1-bit code 0. An empty table returns
// ErrEmptyTable.
func BuildTree(ft FrequencyTable) (*Tree, error) {
	distinct := ft.Distinct()
	if distinct == 0 {
		return nil, ErrEmptyTable
	}

	t := &Tree{nodes: make([]node, 0, 2*distinct)}
	h := &nodeHeap{tree: t, items: make([]int32, 0, distinct)}
	for sym, f := range ft.counts {
		if f == 0 {
			continue
		}
		t.nodes = append(t.nodes, node{
			freq:   f,
			order:  int32(sym),
			left:   noChild,
			right:  noChild,
			symbol: byte(sym),
		})
		h.items = append(h.items, int32(len(t.nodes)-1))
	}

	if distinct == 1 {
		t.nodes = append(t.nodes, node{
			freq:  t.nodes[0].freq,
			order: alphabetSize,
			left:  0,
			right: noChild,
		})
		t.root = 1
		return t, nil
	}

	heap.Init(h)
	merges := int32(0)
	for h.Len() > 1 {
		left := heap.Pop(h).(int32)
		right := heap.Pop(h).(int32)
		t.nodes = append(t.nodes, node{
			freq:  t.nodes[left].freq + t.nodes[right].freq,
			order: alphabetSize + merges,
			left:  left,
			right: right,
		})
		merges++
		heap.Push(h, int32(len(t.nodes)-1))
	}
	t.root = heap.Pop(h).(int32)
	return t, nil
}

// Weight returns the root frequency, the total count of the table the tree was built from.
func (t *Tree) Weight() uint64 {
	return t.nodes[t.root].freq
}

// Leaves returns the number of symbols in the tree.
func (t *Tree) Leaves() int {
	n := 0
	for i := range t.nodes {
		if t.nodes[i].leaf() {
			n++
		}
	}
	return n
}

// child returns the index reached from idx by following bit, or noChild.
func (t *Tree) child(idx int32, bit bool) int32 {
	if bit {
		return t.nodes[idx].right
	}
	return t.nodes[idx].left
}
