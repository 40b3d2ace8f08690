package phylo

import (
	"strconv"
	"strings"
)

// Newick serializes the whole tree from the root.
func (t *Tree) Newick() string {
	return t.NewickFrom(0)
}

// NewickFrom serializes the subtree under id, terminated with ";".
//
// Leaves are nodes with no children, labelled S<id>. An internal node folds
// its children from newest to oldest, each fold adding a bifurcation at the
// older child's emergence, so the node's own continuation is not a tip. The
// tree is not modified.
func (t *Tree) NewickFrom(id int) string {
	var b strings.Builder
	length := t.writeNewick(&b, id)
	b.WriteByte(':')
	b.WriteString(formatLength(length))
	b.WriteByte(';')
	return b.String()
}

// writeNewick writes the subtree body and returns the length of the branch
// leading to it, measured from the node's emergence. The folds nest to the
// right, so the oldest child's bifurcation opens first and closes last.
func (t *Tree) writeNewick(b *strings.Builder, id int) float64 {
	n := &t.nodes[id]
	if len(n.Children) == 0 {
		b.WriteByte('S')
		b.WriteString(strconv.Itoa(id))
		return n.LastChild - n.Emergence
	}

	kids := n.Children
	last := len(kids) - 1
	for _, kid := range kids[:last] {
		b.WriteByte('(')
		length := t.writeNewick(b, kid)
		b.WriteByte(':')
		b.WriteString(formatLength(length))
		b.WriteByte(',')
	}

	length := t.writeNewick(b, kids[last])
	for i := last - 1; i >= 0; i-- {
		length += t.nodes[kids[i+1]].Emergence - t.nodes[kids[i]].Emergence
		b.WriteByte(':')
		b.WriteString(formatLength(length))
		b.WriteByte(')')
		length = 0
	}
	return length + t.nodes[kids[0]].Emergence - n.Emergence
}

func formatLength(l float64) string {
	if l < 0 {
		l = 0
	}
	return strconv.FormatFloat(l, 'f', -1, 64)
}
