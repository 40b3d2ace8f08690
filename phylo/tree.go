// Package phylo records the phylogeny that emerges during a run: one node
// per species, the per-step lineage assignment, and the analytics computed
// over the finished tree.
package phylo

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/salamanders/organism"
)

// NoParent marks the root node.
const NoParent = -1

// ErrInvalidLineage is returned when an agent references a lineage that
// does not exist.
var ErrInvalidLineage = errors.New("invalid lineage")

// Node is one recorded species.
type Node struct {
	ID            int
	Genome        organism.Genome // founder's genome at divergence
	Emergence     float64         // Myr
	LastChild     float64         // last time a similar descendant was seen
	Parent        int             // NoParent for the root
	Children      []int           // in order of divergence
	FoundingTrait float64         // founder's thermal optimum

	Stats []StepStats // filled only when per-step stats are recorded
}

// IsRoot reports whether n is the root of its tree.
func (n *Node) IsRoot() bool {
	return n.Parent == NoParent
}

// AliveAt reports whether the lineage spans t.
func (n *Node) AliveAt(t float64) bool {
	return n.Emergence <= t && t <= n.LastChild
}

// Tree is an append-only list of nodes. Every non-root node references a
// strictly earlier index as its parent.
type Tree struct {
	nodes []Node
}

// NewTree starts a tree rooted at the founder, emerging at t.
func NewTree(founder organism.Salamander, t float64) *Tree {
	tr := &Tree{}
	tr.nodes = append(tr.nodes, Node{
		ID:            0,
		Genome:        founder.Genome,
		Emergence:     t,
		LastChild:     t,
		Parent:        NoParent,
		FoundingTrait: founder.OptimumTemp,
	})
	return tr
}

// FromNodes rebuilds a tree from stored records. Children lists are
// reconstructed from parent links.
func FromNodes(records []Record) (*Tree, error) {
	if len(records) == 0 {
		return nil, errors.New("no nodes to rebuild tree from")
	}
	tr := &Tree{nodes: make([]Node, len(records))}
	for i, r := range records {
		if r.ID != i {
			return nil, fmt.Errorf("node %d stored at position %d", r.ID, i)
		}
		switch {
		case i == 0 && r.Parent != NoParent:
			return nil, fmt.Errorf("root has parent %d", r.Parent)
		case i > 0 && (r.Parent < 0 || r.Parent >= i):
			return nil, fmt.Errorf("node %d has parent %d: %w", i, r.Parent, ErrInvalidLineage)
		}
		tr.nodes[i] = Node{
			ID:            r.ID,
			Genome:        organism.Genome(r.Genome),
			Emergence:     r.Emergence,
			LastChild:     r.LastChild,
			Parent:        r.Parent,
			FoundingTrait: r.FoundingTrait,
		}
		if i > 0 {
			p := &tr.nodes[r.Parent]
			p.Children = append(p.Children, i)
		}
	}
	return tr, nil
}

// Len returns the number of recorded species, extinct ones included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the node with the given id. The pointer is invalidated by
// the next Update.
func (t *Tree) Node(id int) *Node {
	return &t.nodes[id]
}

// Depth counts the edges between id and the root.
func (t *Tree) Depth(id int) int {
	depth := 0
	for n := &t.nodes[id]; !n.IsRoot(); n = &t.nodes[n.Parent] {
		depth++
	}
	return depth
}

// LivingCount counts nodes alive at time.
func (t *Tree) LivingCount(time float64) int {
	n := 0
	for i := range t.nodes {
		if t.nodes[i].AliveAt(time) {
			n++
		}
	}
	return n
}

func (t *Tree) add(s organism.Salamander, time float64) int {
	id := len(t.nodes)
	t.nodes = append(t.nodes, Node{
		ID:            id,
		Genome:        s.Genome,
		Emergence:     time,
		LastChild:     time,
		Parent:        s.Lineage,
		FoundingTrait: s.OptimumTemp,
	})
	p := &t.nodes[s.Lineage]
	p.Children = append(p.Children, id)
	return id
}
