package ranking

import "slices"

// node covers the inclusive score range [lo, hi]. Internal nodes partition
// that range into ascending, contiguous children; leaves (lo == hi) keep the
// players at that score in arrival order.
type node struct {
	lo, hi   int
	amount   int
	children []*node
	players  []PlayerID
}

func (n *node) isLeaf() bool { return n.lo == n.hi }

// newNode materializes the whole subtree for [lo, hi].
func newNode(lo, hi, branchFactor int) *node {
	n := &node{lo: lo, hi: hi}
	if lo < hi {
		n.children = buildChildren(lo, hi, branchFactor)
	}
	return n
}

// buildChildren splits [lo, hi] into at most branchFactor children. The
// first children share the floor width and the last one takes the remainder,
// so a node never has more children than the values it covers.
func buildChildren(lo, hi, branchFactor int) []*node {
	width := hi - lo + 1
	count := min(branchFactor, width)
	base := width / count

	children := make([]*node, 0, count)
	start := lo
	for i := 0; i < count-1; i++ {
		children = append(children, newNode(start, start+base-1, branchFactor))
		start += base
	}
	return append(children, newNode(start, hi, branchFactor))
}

// childFor returns the index of the child whose range contains score.
func (n *node) childFor(score int) int {
	base := (n.hi - n.lo + 1) / len(n.children)
	return min((score-n.lo)/base, len(n.children)-1)
}

// treeState is either unbuiltTree or *builtTree. Mutations are only defined
// on *builtTree, so a write has to go through Set.ensureBuilt first.
type treeState interface {
	population() int
}

type unbuiltTree struct{}

func (unbuiltTree) population() int { return 0 }

type builtTree struct {
	root *node
}

func buildTree(maxScore, branchFactor int) *builtTree {
	return &builtTree{root: newNode(0, maxScore, branchFactor)}
}

func (t *builtTree) population() int { return t.root.amount }

// path returns the nodes from the root down to the leaf for score.
func (t *builtTree) path(score int) []*node {
	out := make([]*node, 0, 8)
	n := t.root
	for {
		out = append(out, n)
		if n.isLeaf() {
			return out
		}
		n = n.children[n.childFor(score)]
	}
}

// insert appends id to the leaf for score and bumps every amount on the way.
func (t *builtTree) insert(score int, id PlayerID) {
	p := t.path(score)
	for _, n := range p {
		n.amount++
	}
	leaf := p[len(p)-1]
	leaf.players = append(leaf.players, id)
}

// remove splices id out of the leaf for score. It reports false, leaving
// the tree untouched, when the leaf does not hold id.
func (t *builtTree) remove(score int, id PlayerID) bool {
	p := t.path(score)
	leaf := p[len(p)-1]
	i := slices.Index(leaf.players, id)
	if i < 0 {
		return false
	}
	leaf.players = slices.Delete(leaf.players, i, i+1)
	for _, n := range p {
		n.amount--
	}
	return true
}

// rankOf returns the 1-based rank of id, which must sit in the leaf for score.
// At each level every sibling above the path (children are ascending, so the
// ones after the target) contributes its whole amount.
func (t *builtTree) rankOf(score int, id PlayerID) (int, bool) {
	pos := 1
	n := t.root
	for !n.isLeaf() {
		target := n.childFor(score)
		for i, c := range slices.Backward(n.children) {
			if i == target {
				break
			}
			pos += c.amount
		}
		n = n.children[target]
	}
	i := slices.Index(n.players, id)
	if i < 0 {
		return 0, false
	}
	return pos + i, true
}

// at resolves a 1-based rank to the score and player holding it.
func (t *builtTree) at(position int) (int, PlayerID, error) {
	if position < 1 || position > t.root.amount {
		return 0, 0, &PositionOutOfRangeError{Position: position, Population: t.root.amount}
	}
	remaining := position
	n := t.root
	for !n.isLeaf() {
		var next *node
		for _, c := range slices.Backward(n.children) {
			if remaining <= c.amount {
				next = c
				break
			}
			remaining -= c.amount
		}
		if next == nil {
			return 0, 0, &PositionOutOfRangeError{Position: position, Population: t.root.amount}
		}
		n = next
	}
	return n.lo, n.players[remaining-1], nil
}

// visit calls fn for up to limit players in rank order, starting at rank from.
func (t *builtTree) visit(from, limit int, fn func(position, score int, id PlayerID)) {
	skip := from - 1
	pos := from
	var walk func(n *node) bool
	walk = func(n *node) bool {
		if n.amount <= skip {
			skip -= n.amount
			return true
		}
		if n.isLeaf() {
			for _, id := range n.players[skip:] {
				if limit == 0 {
					return false
				}
				fn(pos, n.lo, id)
				pos++
				limit--
			}
			skip = 0
			return limit > 0
		}
		for _, c := range slices.Backward(n.children) {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(t.root)
}
