package ml

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Forest is a random forest of classification trees over ordinal classes.
type Forest struct {
	Classes int    `json:"classes"`
	Trees   []Tree `json:"trees"`
}

// ForestParams configures FitForest.
type ForestParams struct {
	Trees int
	Tree  TreeParams
	Seed  uint64
}

// Vote is a forest prediction.
type Vote struct {
	Class  int       `json:"class"`
	Share  float64   `json:"share"`
	Counts []int     `json:"counts"`
	Probs  []float64 `json:"probs"`
}

// FitForest trains one tree per bootstrap sample, in parallel. Class weights are
// balanced so each class contributes equal total weight regardless of its
// frequency. Each tree draws from its own seeded stream so the result does not
// depend on scheduling.
func FitForest(ctx context.Context, X [][]float64, y []int, classes int, params ForestParams) (Forest, error) {
	if len(X) == 0 {
		return Forest{}, ErrNoSamples
	}
	if params.Tree.MaxFeatures == 0 {
		params.Tree.MaxFeatures = int(math.Max(1, math.Sqrt(float64(len(X[0])))))
	}
	classWeight := balancedWeights(y, classes)

	trees := make([]Tree, params.Trees)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := range trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(params.Seed, uint64(t)+1))
			w := make([]float64, len(X))
			for range X {
				w[rng.IntN(len(X))]++
			}
			for i := range w {
				w[i] *= classWeight[y[i]]
			}
			trees[t] = FitClassTree(X, y, w, classes, params.Tree, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Forest{}, err
	}
	return Forest{Classes: classes, Trees: trees}, nil
}

// Predict returns the lower median of the ordinal tree votes and the share of
// trees that voted for it. The median equals the majority class whenever one
// class holds a strict majority, and it stays monotone when every tree is.
func (f Forest) Predict(x []float64) Vote {
	counts := make([]int, f.Classes)
	for _, t := range f.Trees {
		counts[t.Class(x)]++
	}
	n := len(f.Trees)
	probs := make([]float64, f.Classes)
	for c := range counts {
		probs[c] = float64(counts[c]) / float64(n)
	}

	half := (n + 1) / 2
	cum, median := 0, 0
	for c, k := range counts {
		cum += k
		if cum >= half {
			median = c
			break
		}
	}
	return Vote{Class: median, Share: probs[median], Counts: counts, Probs: probs}
}

func balancedWeights(y []int, classes int) []float64 {
	counts := make([]int, classes)
	for _, c := range y {
		counts[c]++
	}
	w := make([]float64, classes)
	present := 0
	for _, k := range counts {
		if k > 0 {
			present++
		}
	}
	for c, k := range counts {
		if k > 0 {
			w[c] = float64(len(y)) / float64(present*k)
		}
	}
	return w
}
