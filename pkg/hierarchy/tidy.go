package hierarchy

import "math"

// tidyNode carries the per-node state of the Reingold-Tilford tidy tree
// algorithm, in Buchheim et al.'s linear-time formulation
type tidyNode struct {
	node     *treeNode
	parent   *tidyNode
	children []*tidyNode
	A        *tidyNode // default ancestor
	a        *tidyNode // ancestor
	z        float64   // prelim
	m        float64   // mod
	c        float64   // change
	s        float64   // shift
	t        *tidyNode // thread
	i        int       // position among siblings
}

func newTidyTree(root *treeNode) *tidyNode {
	var build func(n *treeNode, i int) *tidyNode
	build = func(n *treeNode, i int) *tidyNode {
		v := &tidyNode{node: n, i: i}
		v.a = v
		for ci, c := range n.children {
			child := build(c, ci)
			child.parent = v
			v.children = append(v.children, child)
		}
		return v
	}

	t := build(root, 0)
	t.parent = &tidyNode{children: []*tidyNode{t}}
	return t
}

// layoutTidy assigns every node an angle in [0, 2π) and a radius
func layoutTidy(root *treeNode, opts Options) {
	separation := func(a, b *treeNode) float64 {
		gap := 1.0
		if a.parent != b.parent {
			gap = opts.CousinSeparation
		}
		return gap / float64(max(a.depth, 1))
	}

	t := newTidyTree(root)
	postOrder(t, func(v *tidyNode) { firstWalk(v, separation) })
	t.parent.m = -t.z
	preOrder(t, secondWalk)

	// Scale the breadth into a full turn and depth into the radius
	ordered := depthFirst(root)
	left, right, bottom := root, root, root
	for _, n := range ordered {
		if n.angle < left.angle {
			left = n
		}
		if n.angle > right.angle {
			right = n
		}
		if n.depth > bottom.depth {
			bottom = n
		}
	}

	s := 1.0
	if left != right {
		s = separation(left, right) / 2
	}
	tx := s - left.angle
	kx := 2 * math.Pi / (right.angle + s + tx)
	ky := opts.Radius / float64(max(bottom.depth, 1))

	for _, n := range ordered {
		n.angle = (n.angle + tx) * kx
		n.radius = float64(n.depth) * ky
	}
}

func firstWalk(v *tidyNode, separation func(a, b *treeNode) float64) {
	siblings := v.parent.children
	var w *tidyNode
	if v.i > 0 {
		w = siblings[v.i-1]
	}

	if len(v.children) > 0 {
		executeShifts(v)
		midpoint := (v.children[0].z + v.children[len(v.children)-1].z) / 2
		if w != nil {
			v.z = w.z + separation(v.node, w.node)
			v.m = v.z - midpoint
		} else {
			v.z = midpoint
		}
	} else if w != nil {
		v.z = w.z + separation(v.node, w.node)
	}

	ancestor := v.parent.A
	if ancestor == nil {
		ancestor = siblings[0]
	}
	v.parent.A = apportion(v, w, ancestor, separation)
}

func secondWalk(v *tidyNode) {
	v.node.angle = v.z + v.parent.m
	v.m += v.parent.m
}

// apportion pushes the subtree of v away from its left siblings' subtrees
// until their contours no longer overlap
func apportion(v, w, ancestor *tidyNode, separation func(a, b *treeNode) float64) *tidyNode {
	if w == nil {
		return ancestor
	}

	vip, vop := v, v
	vim := w
	vom := vip.parent.children[0]
	sip, sop, sim, som := vip.m, vop.m, vim.m, vom.m

	for {
		vim = nextRight(vim)
		vip = nextLeft(vip)
		if vim == nil || vip == nil {
			break
		}
		vom = nextLeft(vom)
		vop = nextRight(vop)
		vop.a = v

		shift := vim.z + sim - vip.z - sip + separation(vim.node, vip.node)
		if shift > 0 {
			moveSubtree(nextAncestor(vim, v, ancestor), v, shift)
			sip += shift
			sop += shift
		}
		sim += vim.m
		sip += vip.m
		som += vom.m
		sop += vop.m
	}

	if vim != nil && nextRight(vop) == nil {
		vop.t = vim
		vop.m += sim - sop
	}
	if vip != nil && nextLeft(vom) == nil {
		vom.t = vip
		vom.m += sip - som
		ancestor = v
	}
	return ancestor
}

func nextLeft(v *tidyNode) *tidyNode {
	if len(v.children) > 0 {
		return v.children[0]
	}
	return v.t
}

func nextRight(v *tidyNode) *tidyNode {
	if len(v.children) > 0 {
		return v.children[len(v.children)-1]
	}
	return v.t
}

func moveSubtree(wm, wp *tidyNode, shift float64) {
	change := shift / float64(wp.i-wm.i)
	wp.c -= change
	wp.s += shift
	wm.c += change
	wp.z += shift
	wp.m += shift
}

func executeShifts(v *tidyNode) {
	shift, change := 0.0, 0.0
	for i := len(v.children) - 1; i >= 0; i-- {
		w := v.children[i]
		w.z += shift
		w.m += shift
		change += w.c
		shift += w.s + change
	}
}

func nextAncestor(vim, v, ancestor *tidyNode) *tidyNode {
	if vim.a.parent == v.parent {
		return vim.a
	}
	return ancestor
}

func postOrder(v *tidyNode, visit func(*tidyNode)) {
	for _, c := range v.children {
		postOrder(c, visit)
	}
	visit(v)
}

func preOrder(v *tidyNode, visit func(*tidyNode)) {
	visit(v)
	for _, c := range v.children {
		preOrder(c, visit)
	}
}

func depthFirst(root *treeNode) []*treeNode {
	nodes := []*treeNode{root}
	for _, c := range root.children {
		nodes = append(nodes, depthFirst(c)...)
	}
	return nodes
}
