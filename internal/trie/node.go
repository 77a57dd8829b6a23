package trie

// Node is a single trie vertex. Children are owned exclusively by their parent.
type Node struct {
	sparse   map[byte]*Node
	dense    *[256]*Node
	terminal bool
}

func newNode(dense bool) *Node {
	n := &Node{}
	if dense {
		n.dense = new([256]*Node)
	}
	return n
}

// Child returns the child for c, or nil when there is none.
func (n *Node) Child(c byte) *Node {
	if n.dense != nil {
		return n.dense[c]
	}
	return n.sparse[c]
}

// SetChild installs or replaces the child for c.
func (n *Node) SetChild(c byte, child *Node) {
	if n.dense != nil {
		n.dense[c] = child
		return
	}
	if n.sparse == nil {
		n.sparse = make(map[byte]*Node)
	}
	n.sparse[c] = child
}

// Terminal reports whether some pattern ends at n.
func (n *Node) Terminal() bool {
	return n.terminal
}

// SetTerminal marks or clears n as the end of a pattern.
func (n *Node) SetTerminal(v bool) {
	n.terminal = v
}
