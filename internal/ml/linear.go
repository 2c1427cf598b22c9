package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes features to zero mean and unit variance.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-column population mean and standard deviation.
// Constant columns get a unit deviation so they pass through centred.
func FitScaler(X [][]float64) Scaler {
	if len(X) == 0 {
		return Scaler{}
	}
	p := len(X[0])
	s := Scaler{Mean: make([]float64, p), Std: make([]float64, p)}
	col := make([]float64, len(X))
	for j := 0; j < p; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Mean[j] = mean
		s.Std[j] = std
	}
	return s
}

// Transform returns the standardized copy of x.
func (s Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j := range x {
		out[j] = (x[j] - s.Mean[j]) / s.Std[j]
	}
	return out
}

// TransformAll standardizes every row.
func (s Scaler) TransformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		out[i] = s.Transform(X[i])
	}
	return out
}

// Width is the number of features the scaler was fit on.
func (s Scaler) Width() int { return len(s.Mean) }

// Linear is a fitted linear model y = Intercept + Coef·x.
type Linear struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// Predict evaluates the model. x must have len(Coef) entries.
func (l Linear) Predict(x []float64) float64 {
	return l.Intercept + floats.Dot(l.Coef, x)
}

// FitRidge solves the L2-regularized least-squares problem in closed form on
// centred data: (XᵀX + αI)β = Xᵀy.
func FitRidge(X [][]float64, y []float64, alpha float64) (Linear, error) {
	n, p, err := shape(X, y)
	if err != nil {
		return Linear{}, err
	}
	xMean, yMean := columnMeans(X), stat.Mean(y, nil)

	data := make([]float64, 0, n*p)
	for i := range X {
		for j := 0; j < p; j++ {
			data = append(data, X[i][j]-xMean[j])
		}
	}
	xc := mat.NewDense(n, p, data)
	yc := make([]float64, n)
	for i := range y {
		yc[i] = y[i] - yMean
	}

	var gram mat.Dense
	gram.Mul(xc.T(), xc)
	for j := 0; j < p; j++ {
		gram.Set(j, j, gram.At(j, j)+alpha)
	}
	var rhs mat.VecDense
	rhs.MulVec(xc.T(), mat.NewVecDense(n, yc))

	var beta mat.VecDense
	if err := beta.SolveVec(&gram, &rhs); err != nil {
		return Linear{}, fmt.Errorf("ridge solve: %w", err)
	}

	coef := make([]float64, p)
	for j := range coef {
		coef[j] = beta.AtVec(j)
	}
	return Linear{Coef: coef, Intercept: yMean - floats.Dot(xMean, coef)}, nil
}

// FitLasso minimizes (1/2n)‖y − Xβ‖² + α‖β‖₁ by cyclic coordinate descent,
// stopping when no coefficient moves more than tol in a sweep.
func FitLasso(X [][]float64, y []float64, alpha float64, maxIter int, tol float64) (Linear, error) {
	n, p, err := shape(X, y)
	if err != nil {
		return Linear{}, err
	}
	xMean, yMean := columnMeans(X), stat.Mean(y, nil)

	cols := make([][]float64, p)
	norms := make([]float64, p)
	for j := 0; j < p; j++ {
		cols[j] = make([]float64, n)
		for i := range X {
			cols[j][i] = X[i][j] - xMean[j]
		}
		norms[j] = floats.Dot(cols[j], cols[j]) / float64(n)
	}

	resid := make([]float64, n)
	for i := range y {
		resid[i] = y[i] - yMean
	}

	coef := make([]float64, p)
	for iter := 0; iter < maxIter; iter++ {
		maxDelta := 0.0
		for j := 0; j < p; j++ {
			if norms[j] == 0 {
				continue
			}
			rho := floats.Dot(cols[j], resid)/float64(n) + norms[j]*coef[j]
			updated := softThreshold(rho, alpha) / norms[j]
			delta := updated - coef[j]
			if delta == 0 {
				continue
			}
			floats.AddScaled(resid, -delta, cols[j])
			coef[j] = updated
			maxDelta = math.Max(maxDelta, math.Abs(delta))
		}
		if maxDelta < tol {
			break
		}
	}

	return Linear{Coef: coef, Intercept: yMean - floats.Dot(xMean, coef)}, nil
}

func softThreshold(rho, alpha float64) float64 {
	switch {
	case rho > alpha:
		return rho - alpha
	case rho < -alpha:
		return rho + alpha
	default:
		return 0
	}
}

func shape(X [][]float64, y []float64) (n, p int, err error) {
	if len(X) == 0 {
		return 0, 0, ErrNoSamples
	}
	if len(X) != len(y) {
		return 0, 0, fmt.Errorf("%d rows but %d targets", len(X), len(y))
	}
	p = len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return 0, 0, fmt.Errorf("row %d has %d features, want %d", i, len(X[i]), p)
		}
	}
	return len(X), p, nil
}

func columnMeans(X [][]float64) []float64 {
	p := len(X[0])
	means := make([]float64, p)
	for i := range X {
		floats.Add(means, X[i])
	}
	floats.Scale(1/float64(len(X)), means)
	return means
}
