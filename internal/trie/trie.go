// Package trie implements a byte trie that can be indexed from either end of
// the inserted patterns.
package trie

import "fmt"

// Direction selects which end of a string the trie is anchored at.
type Direction int

const (
	// Forward consumes characters from the first to the last (prefix matching).
	Forward Direction = iota
	// Backward consumes characters from the last to the first (suffix matching).
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Affix returns the n characters of s adjacent to the anchor end of d.
func (d Direction) Affix(s string, n int) string {
	if d == Backward {
		return s[len(s)-n:]
	}
	return s[:n]
}

// at returns the i-th character of s counted from the anchor end of d.
func (d Direction) at(s string, i int) byte {
	if d == Backward {
		return s[len(s)-1-i]
	}
	return s[i]
}

// Option configures a Trie.
type Option func(*options)

type options struct {
	dense bool
}

// WithDenseNodes stores children in a 256 entry array per node instead of a map.
// Lookups get faster, every node costs 2KiB.
func WithDenseNodes() Option {
	return func(o *options) {
		o.dense = true
	}
}

// Trie owns the root node and all nodes reachable from it.
type Trie struct {
	root     *Node
	dir      Direction
	dense    bool
	patterns int
	nodes    int
}

// New creates an empty trie consuming characters in dir order.
func New(dir Direction, opts ...Option) *Trie {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return &Trie{
		root:  newNode(o.dense),
		dir:   dir,
		dense: o.dense,
		nodes: 1,
	}
}

// Direction returns the direction the trie was built with.
func (t *Trie) Direction() Direction {
	return t.dir
}

// Insert adds pattern. Zero-length patterns are ignored.
func (t *Trie) Insert(pattern string) {
	if len(pattern) == 0 {
		return
	}
	cur := t.root
	for i := 0; i < len(pattern); i++ {
		c := t.dir.at(pattern, i)
		next := cur.Child(c)
		if next == nil {
			next = newNode(t.dense)
			cur.SetChild(c, next)
			t.nodes++
		}
		cur = next
	}
	if !cur.Terminal() {
		cur.SetTerminal(true)
		t.patterns++
	}
}

// Walk consumes s in the trie's direction starting at the root. Each time a
// terminal node is reached visit is called with the number of characters
// consumed so far. The walk ends when visit returns false, when the current
// node has no child for the next character, or when s is exhausted.
func (t *Trie) Walk(s string, visit func(n int) bool) {
	cur := t.root
	for i := 0; i < len(s); i++ {
		cur = cur.Child(t.dir.at(s, i))
		if cur == nil {
			return
		}
		if cur.Terminal() && !visit(i+1) {
			return
		}
	}
}

// Len returns the number of distinct patterns inserted.
func (t *Trie) Len() int {
	return t.patterns
}

// Nodes returns the number of allocated nodes, root included.
func (t *Trie) Nodes() int {
	return t.nodes
}
