package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

const leaf = -1

// Node is one node of a binary decision tree stored in a flat slice. Leaves
// have Left == Right == -1; Class holds a classifier's vote, Value a
// regressor's output.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Class     int     `json:"c,omitempty"`
	Value     float64 `json:"v,omitempty"`
}

// Tree is a fitted decision tree. Samples with x[Feature] <= Threshold go left.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t Tree) find(x []float64) Node {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left == leaf {
			return n
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// validate checks that every path from the root reaches a leaf within bounds:
// children follow their parent in Nodes, split features index a vector of the
// given width and, when classes > 0, leaf votes name a class.
func (t Tree) validate(width, classes int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Left == leaf || n.Right == leaf {
			if n.Left != n.Right {
				return fmt.Errorf("node %d has one child", i)
			}
			if classes > 0 && (n.Class < 0 || n.Class >= classes) {
				return fmt.Errorf("node %d votes class %d of %d", i, n.Class, classes)
			}
			continue
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has children %d,%d outside (%d, %d)", i, n.Left, n.Right, i, len(t.Nodes))
		}
		if n.Feature < 0 || n.Feature >= width {
			return fmt.Errorf("node %d splits on feature %d of %d", i, n.Feature, width)
		}
	}
	return nil
}

// Class returns the class vote of a classification tree.
func (t Tree) Class(x []float64) int { return t.find(x).Class }

// Value returns the output of a regression tree.
func (t Tree) Value(x []float64) float64 { return t.find(x).Value }

// Depth returns the longest root-to-leaf path length.
func (t Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Left == leaf {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

// TreeParams bounds tree growth.
type TreeParams struct {
	MaxDepth       int
	MinSamplesLeaf int
	// MaxFeatures is the number of candidate features drawn per split; 0 means all.
	MaxFeatures int
	// Monotone marks features (by index) whose increase must never lower the
	// predicted class. Nil means unconstrained.
	Monotone []bool
	// Excluded marks features that are never split on.
	Excluded []bool
}

// classBuilder grows an entropy-criterion classification tree over weighted
// samples, honouring monotone constraints by bounding the classes each subtree
// may predict.
type classBuilder struct {
	X       [][]float64
	y       []int
	w       []float64
	classes int
	params  TreeParams
	rng     *rand.Rand
	nodes   []Node
}

// FitClassTree grows a classification tree. w carries per-sample weights (zero
// weight samples are ignored); y holds class indices in [0, classes).
func FitClassTree(X [][]float64, y []int, w []float64, classes int, params TreeParams, rng *rand.Rand) Tree {
	b := &classBuilder{X: X, y: y, w: w, classes: classes, params: params, rng: rng}
	idx := make([]int, 0, len(X))
	for i := range X {
		if w[i] > 0 {
			idx = append(idx, i)
		}
	}
	b.grow(idx, 0, 0, classes-1)
	return Tree{Nodes: b.nodes}
}

func (b *classBuilder) grow(idx []int, depth, lo, hi int) int {
	counts := b.counts(idx)
	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: leaf, Right: leaf, Class: clampInt(argmax(counts), lo, hi)})

	if depth >= b.params.MaxDepth || len(idx) < 2*max(1, b.params.MinSamplesLeaf) || pure(counts) || lo == hi {
		return self
	}

	split, ok := b.bestSplit(idx, counts, lo, hi)
	if !ok {
		return self
	}

	left, right := partition(b.X, idx, split.feature, split.threshold)
	leftLo, leftHi, rightLo, rightHi := lo, hi, lo, hi
	if split.monotone {
		leftHi, rightLo = split.leftClass, split.leftClass
	}
	l := b.grow(left, depth+1, leftLo, leftHi)
	r := b.grow(right, depth+1, rightLo, rightHi)
	b.nodes[self] = Node{Feature: split.feature, Threshold: split.threshold, Left: l, Right: r}
	return self
}

type classSplit struct {
	feature   int
	threshold float64
	gain      float64
	monotone  bool
	leftClass int
}

func (b *classBuilder) bestSplit(idx []int, total []float64, lo, hi int) (classSplit, bool) {
	parent := entropy(total)
	totalW := sum(total)
	minLeaf := max(1, b.params.MinSamplesLeaf)

	best := classSplit{gain: 1e-12}
	found := false
	sorted := make([]int, len(idx))
	left := make([]float64, b.classes)
	right := make([]float64, b.classes)

	for _, f := range b.candidateFeatures() {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })
		monotone := b.params.Monotone != nil && b.params.Monotone[f]

		clear(left)
		copy(right, total)
		leftW := 0.0
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			left[b.y[i]] += b.w[i]
			right[b.y[i]] -= b.w[i]
			leftW += b.w[i]

			cur, next := b.X[i][f], b.X[sorted[k+1]][f]
			if cur == next || k+1 < minLeaf || len(sorted)-k-1 < minLeaf {
				continue
			}
			rightW := totalW - leftW
			gain := parent - (leftW*entropy(left)+rightW*entropy(right))/totalW
			if gain <= best.gain {
				continue
			}
			lc, rc := clampInt(argmax(left), lo, hi), clampInt(argmax(right), lo, hi)
			if monotone && lc > rc {
				continue
			}
			best = classSplit{feature: f, threshold: (cur + next) / 2, gain: gain, monotone: monotone, leftClass: lc}
			found = true
		}
	}
	return best, found
}

func (b *classBuilder) candidateFeatures() []int {
	return drawFeatures(len(b.X[0]), b.params.MaxFeatures, b.params.Excluded, b.rng)
}

func (b *classBuilder) counts(idx []int) []float64 {
	c := make([]float64, b.classes)
	for _, i := range idx {
		c[b.y[i]] += b.w[i]
	}
	return c
}

// FitRegressionTree grows a squared-error regression tree on the rows in idx.
func FitRegressionTree(X [][]float64, y []float64, idx []int, params TreeParams, rng *rand.Rand) Tree {
	b := &regBuilder{X: X, y: y, params: params, rng: rng}
	b.grow(idx, 0)
	return Tree{Nodes: b.nodes}
}

type regBuilder struct {
	X      [][]float64
	y      []float64
	params TreeParams
	rng    *rand.Rand
	nodes  []Node
}

func (b *regBuilder) grow(idx []int, depth int) int {
	s, _ := b.moments(idx)
	self := len(b.nodes)
	mean := 0.0
	if len(idx) > 0 {
		mean = s / float64(len(idx))
	}
	b.nodes = append(b.nodes, Node{Left: leaf, Right: leaf, Value: mean})

	minLeaf := max(1, b.params.MinSamplesLeaf)
	if depth >= b.params.MaxDepth || len(idx) < 2*minLeaf {
		return self
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return self
	}
	left, right := partition(b.X, idx, feature, threshold)
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[self] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return self
}

func (b *regBuilder) moments(idx []int) (s, sq float64) {
	for _, i := range idx {
		s += b.y[i]
		sq += b.y[i] * b.y[i]
	}
	return s, sq
}

// bestSplit maximizes the reduction in summed squared error, which for a fixed
// parent equals maximizing sL²/nL + sR²/nR.
func (b *regBuilder) bestSplit(idx []int) (int, float64, bool) {
	total, _ := b.moments(idx)
	n := float64(len(idx))
	base := total * total / n
	minLeaf := max(1, b.params.MinSamplesLeaf)

	bestScore := base + 1e-12
	bestFeature, bestThreshold, found := 0, 0.0, false
	sorted := make([]int, len(idx))

	for _, f := range drawFeatures(len(b.X[0]), b.params.MaxFeatures, b.params.Excluded, b.rng) {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })

		leftSum := 0.0
		for k := 0; k < len(sorted)-1; k++ {
			leftSum += b.y[sorted[k]]
			cur, next := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			nl := float64(k + 1)
			nr := n - nl
			if cur == next || k+1 < minLeaf || len(sorted)-k-1 < minLeaf {
				continue
			}
			rightSum := total - leftSum
			score := leftSum*leftSum/nl + rightSum*rightSum/nr
			if score > bestScore {
				bestScore, bestFeature, bestThreshold, found = score, f, (cur+next)/2, true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func drawFeatures(p, k int, excluded []bool, rng *rand.Rand) []int {
	pool := make([]int, 0, p)
	for f := 0; f < p; f++ {
		if excluded != nil && excluded[f] {
			continue
		}
		pool = append(pool, f)
	}
	if k <= 0 || k >= len(pool) || rng == nil {
		return pool
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	chosen := pool[:k]
	sort.Ints(chosen)
	return chosen
}

func partition(X [][]float64, idx []int, feature int, threshold float64) (left, right []int) {
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func entropy(counts []float64) float64 {
	total := sum(counts)
	if total <= 0 {
		return 0
	}
	h := 0.0
	for _, c := range counts {
		if c > 0 {
			p := c / total
			h -= p * math.Log2(p)
		}
	}
	return h
}

func pure(counts []float64) bool {
	nonzero := 0
	for _, c := range counts {
		if c > 0 {
			nonzero++
		}
	}
	return nonzero <= 1
}

// argmax returns the index of the largest count, preferring the lower class on ties.
func argmax(counts []float64) int {
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return best
}

func sum(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
