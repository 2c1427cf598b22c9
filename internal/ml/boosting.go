package ml

import (
	"context"
	"math/rand/v2"
)

// BoosterParams configures a gradient-boosted regressor.
type BoosterParams struct {
	Name         string  `json:"name"`
	Estimators   int     `json:"estimators"`
	MaxDepth     int     `json:"max_depth"`
	LearningRate float64 `json:"learning_rate"`
	// Subsample is the row fraction drawn (without replacement) per stage; 0 or 1 uses all rows.
	Subsample float64 `json:"subsample"`
	Seed      uint64  `json:"seed"`
}

// Booster is a fitted squared-loss gradient-boosting ensemble.
type Booster struct {
	Params BoosterParams `json:"params"`
	Init   float64       `json:"init"`
	Trees  []Tree        `json:"trees"`
}

// FitBooster fits stage-wise regression trees to the running residuals.
func FitBooster(ctx context.Context, X [][]float64, y []float64, params BoosterParams) (Booster, error) {
	if len(X) == 0 {
		return Booster{}, ErrNoSamples
	}
	n := len(X)
	init := sum(y) / float64(n)
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = init
	}

	rng := rand.New(rand.NewPCG(params.Seed, 0x9e3779b97f4a7c15))
	resid := make([]float64, n)
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	rows := n
	if params.Subsample > 0 && params.Subsample < 1 {
		rows = max(1, int(params.Subsample*float64(n)))
	}
	treeParams := TreeParams{MaxDepth: params.MaxDepth, MinSamplesLeaf: 1}

	b := Booster{Params: params, Init: init, Trees: make([]Tree, 0, params.Estimators)}
	for m := 0; m < params.Estimators; m++ {
		if err := ctx.Err(); err != nil {
			return Booster{}, err
		}
		for i := range resid {
			resid[i] = y[i] - pred[i]
		}
		idx := all
		if rows < n {
			rng.Shuffle(n, func(i, j int) { all[i], all[j] = all[j], all[i] })
			idx = append([]int(nil), all[:rows]...)
		}
		t := FitRegressionTree(X, resid, idx, treeParams, nil)
		for i := range pred {
			pred[i] += params.LearningRate * t.Value(X[i])
		}
		b.Trees = append(b.Trees, t)
	}
	return b, nil
}

// Predict evaluates the ensemble.
func (b Booster) Predict(x []float64) float64 {
	out := b.Init
	for _, t := range b.Trees {
		out += b.Params.LearningRate * t.Value(x)
	}
	return out
}
