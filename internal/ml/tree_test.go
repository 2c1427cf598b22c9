package ml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leafTree(class int) Tree {
	return Tree{Nodes: []Node{{Left: leaf, Right: leaf, Class: class}}}
}

func TestFitClassTree_MonotoneConstraint(t *testing.T) {
	// Class falls as the single feature rises.
	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []int{2, 2, 0, 0}
	w := []float64{1, 1, 1, 1}

	tests := []struct {
		name      string
		monotone  []bool
		wantLow   int
		wantHigh  int
		wantDepth int
	}{
		{name: "unconstrained follows the data", monotone: nil, wantLow: 2, wantHigh: 0, wantDepth: 1},
		{name: "constrained refuses a decreasing split", monotone: []bool{true}, wantLow: 0, wantHigh: 0, wantDepth: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := FitClassTree(X, y, w, 3, TreeParams{MaxDepth: 5, MinSamplesLeaf: 1, Monotone: tt.monotone}, nil)

			assert.Equal(t, tt.wantLow, tree.Class([]float64{1}))
			assert.Equal(t, tt.wantHigh, tree.Class([]float64{4}))
			assert.Equal(t, tt.wantDepth, tree.Depth())
		})
	}
}

func TestFitClassTree_IncreasingData(t *testing.T) {
	X := [][]float64{{1, 9}, {2, 1}, {3, 7}, {4, 3}, {5, 5}, {6, 2}}
	y := []int{0, 0, 1, 1, 2, 2}
	w := []float64{1, 1, 1, 1, 1, 1}

	tree := FitClassTree(X, y, w, 3, TreeParams{MaxDepth: 5, Monotone: []bool{true, false}}, nil)

	for i, x := range X {
		assert.Equal(t, y[i], tree.Class(x), "sample %d", i)
	}
	prev := 0
	for v := 0.0; v <= 7; v += 0.25 {
		c := tree.Class([]float64{v, 5})
		assert.GreaterOrEqual(t, c, prev, "class fell at x=%v", v)
		prev = c
	}
}

func TestFitClassTree_ExcludedFeature(t *testing.T) {
	X := [][]float64{{1, 0}, {2, 0}, {3, 1}, {4, 1}}
	y := []int{0, 0, 1, 1}
	w := []float64{1, 1, 1, 1}

	tree := FitClassTree(X, y, w, 2, TreeParams{MaxDepth: 3, Excluded: []bool{true, false}}, nil)

	require.Greater(t, len(tree.Nodes), 1)
	assert.Equal(t, 1, tree.Nodes[0].Feature)
}

func TestFitRegressionTree(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {3}}
	y := []float64{1, 1, 5, 5}

	tree := FitRegressionTree(X, y, []int{0, 1, 2, 3}, TreeParams{MaxDepth: 2}, nil)

	assert.InDelta(t, 1.0, tree.Value([]float64{0.5}), 1e-12)
	assert.InDelta(t, 5.0, tree.Value([]float64{2.5}), 1e-12)
	assert.InDelta(t, 1.5, tree.Nodes[0].Threshold, 1e-12)
}

func TestForest_PredictMedianVote(t *testing.T) {
	tests := []struct {
		name      string
		votes     []int
		wantClass int
		wantShare float64
	}{
		{name: "strict majority", votes: []int{0, 2, 2}, wantClass: 2, wantShare: 2.0 / 3},
		{name: "even split takes the lower median", votes: []int{0, 0, 2, 2}, wantClass: 0, wantShare: 0.5},
		{name: "spread votes", votes: []int{0, 1, 2}, wantClass: 1, wantShare: 1.0 / 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Forest{Classes: 3}
			for _, c := range tt.votes {
				f.Trees = append(f.Trees, leafTree(c))
			}

			vote := f.Predict(nil)

			assert.Equal(t, tt.wantClass, vote.Class)
			assert.InDelta(t, tt.wantShare, vote.Share, 1e-12)
			assert.InDelta(t, 1.0, sum(vote.Probs), 1e-12)
		})
	}
}

func TestFitForest_Deterministic(t *testing.T) {
	var X [][]float64
	var y []int
	for i := 0; i < 60; i++ {
		X = append(X, []float64{float64(i), float64((i * 7) % 13)})
		y = append(y, i/20)
	}
	params := ForestParams{Trees: 15, Seed: 7, Tree: TreeParams{MaxDepth: 4, MaxFeatures: 2, Monotone: []bool{true, false}}}

	a, err := FitForest(context.Background(), X, y, 3, params)
	require.NoError(t, err)
	b, err := FitForest(context.Background(), X, y, 3, params)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 0, a.Predict([]float64{5, 3}).Class)
	assert.Equal(t, 2, a.Predict([]float64{55, 3}).Class)
}

func TestFitForest_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FitForest(ctx, [][]float64{{1}, {2}}, []int{0, 1}, 2, ForestParams{Trees: 4})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBalancedWeights(t *testing.T) {
	w := balancedWeights([]int{0, 0, 0, 1}, 3)

	assert.InDelta(t, 4.0/6, w[0], 1e-12)
	assert.InDelta(t, 2.0, w[1], 1e-12)
	assert.Zero(t, w[2])
}

func TestFitBooster(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 40; i++ {
		x := float64(i) / 4
		X = append(X, []float64{x})
		y = append(y, 2*x+1)
	}

	b, err := FitBooster(context.Background(), X, y, BoosterParams{Estimators: 200, MaxDepth: 3, LearningRate: 0.1, Subsample: 0.8, Seed: 3})
	require.NoError(t, err)

	assert.Len(t, b.Trees, 200)
	assert.InDelta(t, 2*5.0+1, b.Predict([]float64{5}), 0.5)
	assert.InDelta(t, 2*1.0+1, b.Predict([]float64{1}), 0.5)
}

func TestFitBooster_NoSamples(t *testing.T) {
	_, err := FitBooster(context.Background(), nil, nil, BoosterParams{Estimators: 1})
	require.ErrorIs(t, err, ErrNoSamples)
}
