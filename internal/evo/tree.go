package evo

import (
	"errors"
	"fmt"
)

// TreeSpec describes one breeder node and its input subtree.
type TreeSpec struct {
	Op       BreederOp
	Children []TreeSpec
}

type treeNode struct {
	op      BreederOp
	child   int
	sibling int
}

// Tree is a breeder tree stored as an arena. Nodes link to their first
// child and next sibling by index, -1 meaning none. The shape is fixed
// once built.
type Tree struct {
	nodes []treeNode
}

// NewTree builds a tree whose root level holds the given alternatives.
func NewTree(roots ...TreeSpec) (*Tree, error) {
	if len(roots) == 0 {
		return nil, errors.New("breeder tree needs at least one root")
	}
	t := &Tree{}
	if _, err := t.addLevel(roots); err != nil {
		return nil, err
	}
	return t, nil
}

// MustTree panics on error.
func MustTree(roots ...TreeSpec) *Tree {
	t, err := NewTree(roots...)
	if err != nil {
		panic(err)
	}
	return t
}

// addLevel appends a sibling chain depth first and returns the index of
// its first node.
func (t *Tree) addLevel(specs []TreeSpec) (int, error) {
	if len(specs) == 0 {
		return -1, nil
	}
	first := len(t.nodes)
	ids := make([]int, len(specs))
	for i, spec := range specs {
		if spec.Op == nil {
			return -1, fmt.Errorf("breeder node %d has no operator", len(t.nodes))
		}
		ids[i] = len(t.nodes)
		t.nodes = append(t.nodes, treeNode{op: spec.Op, child: -1, sibling: -1})
		child, err := t.addLevel(spec.Children)
		if err != nil {
			return -1, err
		}
		t.nodes[ids[i]].child = child
	}
	for i := 0; i+1 < len(ids); i++ {
		t.nodes[ids[i]].sibling = ids[i+1]
	}
	return first, nil
}

// Root returns the first root alternative, or a nil node for a nil tree.
func (t *Tree) Root() Node {
	if t == nil || len(t.nodes) == 0 {
		return Node{id: -1}
	}
	return Node{tree: t, id: 0}
}

func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

// Node is a handle into a Tree.
type Node struct {
	tree *Tree
	id   int
}

func (n Node) IsNil() bool { return n.tree == nil || n.id < 0 }

func (n Node) Op() BreederOp {
	if n.IsNil() {
		return nil
	}
	return n.tree.nodes[n.id].op
}

func (n Node) FirstChild() Node {
	if n.IsNil() {
		return Node{id: -1}
	}
	return Node{tree: n.tree, id: n.tree.nodes[n.id].child}
}

func (n Node) NextSibling() Node {
	if n.IsNil() {
		return Node{id: -1}
	}
	return Node{tree: n.tree, id: n.tree.nodes[n.id].sibling}
}

// Siblings returns n followed by every next sibling.
func (n Node) Siblings() []Node {
	var out []Node
	for cur := n; !cur.IsNil(); cur = cur.NextSibling() {
		out = append(out, cur)
	}
	return out
}

// Proba is the node's breeding probability.
func (n Node) Proba() float64 {
	if n.IsNil() {
		return 0
	}
	return n.Op().BreedingProba(n.FirstChild())
}
