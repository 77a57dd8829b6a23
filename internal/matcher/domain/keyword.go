package domain

// keywordNode is an Aho-Corasick state over raw bytes.
type keywordNode struct {
	children map[byte]*keywordNode
	fail     *keywordNode
	output   bool
}

// keywordAutomaton reports whether any keyword occurs anywhere in a name.
// It is fully built by newKeywordAutomaton and read-only afterwards.
type keywordAutomaton struct {
	root     *keywordNode
	keywords int
}

func newKeywordNode() *keywordNode {
	return &keywordNode{children: make(map[byte]*keywordNode)}
}

func newKeywordAutomaton(keywords []string) *keywordAutomaton {
	a := &keywordAutomaton{root: newKeywordNode()}
	for _, kw := range keywords {
		a.add(kw)
	}
	a.link()
	return a
}

func (a *keywordAutomaton) add(keyword string) {
	if keyword == "" {
		return
	}
	node := a.root
	for i := 0; i < len(keyword); i++ {
		ch := keyword[i]
		child, ok := node.children[ch]
		if !ok {
			child = newKeywordNode()
			node.children[ch] = child
		}
		node = child
	}
	if !node.output {
		node.output = true
		a.keywords++
	}
}

// link computes failure transitions breadth first.
func (a *keywordAutomaton) link() {
	queue := make([]*keywordNode, 0, len(a.root.children))
	for _, child := range a.root.children {
		child.fail = a.root
		queue = append(queue, child)
	}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for ch, child := range node.children {
			fail := node.fail
			for fail != nil && fail.children[ch] == nil {
				fail = fail.fail
			}
			if fail == nil {
				child.fail = a.root
			} else {
				child.fail = fail.children[ch]
			}
			if child.fail.output {
				child.output = true
			}
			queue = append(queue, child)
		}
	}
}

func (a *keywordAutomaton) size() int {
	if a == nil {
		return 0
	}
	return a.keywords
}

func (a *keywordAutomaton) match(text string) bool {
	if a == nil || a.keywords == 0 {
		return false
	}
	node := a.root
	for i := 0; i < len(text); i++ {
		ch := text[i]
		for node != a.root && node.children[ch] == nil {
			node = node.fail
		}
		if next := node.children[ch]; next != nil {
			node = next
		}
		if node.output {
			return true
		}
	}
	return false
}
