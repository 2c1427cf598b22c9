// Package ml holds the fitted models behind the suitability classifier and the
// impact estimator, and the offline training that produces them.
//
// A Bundle is immutable once built. Retraining produces a new Bundle which
// callers swap in atomically; nothing in this package mutates a Bundle after
// Train returns or LoadBundle decodes it.
package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/climate-intervention-planner/internal/features"
)

// BundleFormat is the on-disk schema version written by Save.
const BundleFormat = 1

// Cooling coefficient bounds. The fallback is used whenever no model is fitted.
const (
	FallbackCoolingCoefficient = 0.3
	MinCoolingCoefficient      = 0.3
	MaxCoolingCoefficient      = 0.4
)

var (
	// ErrNoSamples is returned when a model is fitted on an empty set.
	ErrNoSamples = errors.New("no training samples")

	// ErrMalformedInput is returned when a prediction input or output is not a
	// finite number.
	ErrMalformedInput = errors.New("malformed model input")

	// ErrIncompatibleBundle is returned when a persisted bundle does not match the
	// running feature layout or encoding table.
	ErrIncompatibleBundle = errors.New("incompatible model bundle")
)

// Bundle is an immutable snapshot of every fitted model.
type Bundle struct {
	Format          int       `json:"format"`
	EncodingVersion int       `json:"encoding_version"`
	FeatureNames    []string  `json:"feature_names"`
	TrainedAt       time.Time `json:"trained_at"`

	Scaler             Scaler    `json:"scaler"`
	Lasso              Linear    `json:"lasso"`
	Ridge              Linear    `json:"ridge"`
	CoolingCoefficient float64   `json:"cooling_coefficient"`
	Forest             Forest    `json:"forest"`
	Boosters           []Booster `json:"boosters"`

	Report Report `json:"report"`
}

// PredictCO2 averages the L1 and L2 regressors on the standardized vector.
func (b *Bundle) PredictCO2(v features.Vector) (_ float64, err error) {
	defer recoverMalformed("co2 regression", &err)
	if err := checkFinite(v[:]); err != nil {
		return 0, err
	}
	if b.Scaler.Width() != features.Width || len(b.Lasso.Coef) != features.Width || len(b.Ridge.Coef) != features.Width {
		return 0, fmt.Errorf("%w: linear model width mismatch", ErrIncompatibleBundle)
	}
	x := b.Scaler.Transform(v[:])
	out := (b.Lasso.Predict(x) + b.Ridge.Predict(x)) / 2
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("%w: co2 regression produced %v", ErrMalformedInput, out)
	}
	return out, nil
}

// ClassifySuitability returns the forest vote for the raw vector.
func (b *Bundle) ClassifySuitability(v features.Vector) (_ Vote, err error) {
	defer recoverMalformed("suitability forest", &err)
	if err := checkFinite(v[:]); err != nil {
		return Vote{}, err
	}
	if len(b.Forest.Trees) == 0 {
		return Vote{}, fmt.Errorf("%w: forest has no trees", ErrIncompatibleBundle)
	}
	return b.Forest.Predict(v[:]), nil
}

// ScoreIntervention averages the boosted regressors on the raw vector.
func (b *Bundle) ScoreIntervention(v features.Vector) (_ float64, err error) {
	defer recoverMalformed("ranking ensemble", &err)
	if err := checkFinite(v[:]); err != nil {
		return 0, err
	}
	if len(b.Boosters) == 0 {
		return 0, fmt.Errorf("%w: no boosters", ErrIncompatibleBundle)
	}
	total := 0.0
	for _, booster := range b.Boosters {
		total += booster.Predict(v[:])
	}
	out := total / float64(len(b.Boosters))
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("%w: ranking ensemble produced %v", ErrMalformedInput, out)
	}
	return out, nil
}

// Cooling returns the fitted cooling coefficient clamped to its documented range.
func (b *Bundle) Cooling() float64 {
	if b == nil || b.CoolingCoefficient == 0 {
		return FallbackCoolingCoefficient
	}
	return math.Min(MaxCoolingCoefficient, math.Max(MinCoolingCoefficient, b.CoolingCoefficient))
}

// Validate checks that the bundle matches the running feature layout and the
// given encoding table version.
func (b *Bundle) Validate(encodingVersion int) error {
	if b.Format != BundleFormat {
		return fmt.Errorf("%w: format %d, want %d", ErrIncompatibleBundle, b.Format, BundleFormat)
	}
	if b.EncodingVersion != encodingVersion {
		return fmt.Errorf("%w: trained against encoding v%d, running v%d", ErrIncompatibleBundle, b.EncodingVersion, encodingVersion)
	}
	if len(b.FeatureNames) != features.Width {
		return fmt.Errorf("%w: %d features, want %d", ErrIncompatibleBundle, len(b.FeatureNames), features.Width)
	}
	for i, name := range b.FeatureNames {
		if name != features.Names[i] {
			return fmt.Errorf("%w: feature %d is %q, want %q", ErrIncompatibleBundle, i, name, features.Names[i])
		}
	}
	if b.Scaler.Width() != features.Width || len(b.Scaler.Std) != features.Width ||
		len(b.Lasso.Coef) != features.Width || len(b.Ridge.Coef) != features.Width {
		return fmt.Errorf("%w: linear model width mismatch", ErrIncompatibleBundle)
	}
	if len(b.Forest.Trees) == 0 || len(b.Boosters) == 0 {
		return fmt.Errorf("%w: missing forest or boosters", ErrIncompatibleBundle)
	}
	if b.Forest.Classes < 1 {
		return fmt.Errorf("%w: forest has %d classes", ErrIncompatibleBundle, b.Forest.Classes)
	}
	for i, t := range b.Forest.Trees {
		if err := t.validate(features.Width, b.Forest.Classes); err != nil {
			return fmt.Errorf("%w: forest tree %d: %v", ErrIncompatibleBundle, i, err)
		}
	}
	for i, booster := range b.Boosters {
		for j, t := range booster.Trees {
			if err := t.validate(features.Width, 0); err != nil {
				return fmt.Errorf("%w: booster %d tree %d: %v", ErrIncompatibleBundle, i, j, err)
			}
		}
	}
	return nil
}

// Save writes the bundle as JSON.
func (b *Bundle) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return nil
}

// SaveFile writes the bundle to path, replacing any existing file.
func (b *Bundle) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create bundle file: %w", err)
	}
	if err := b.Save(f); err != nil {
		f.Close() //nolint:errcheck // already returning the encode error
		return err
	}
	return f.Close()
}

// LoadBundle decodes a bundle and validates it against the encoding version.
func LoadBundle(r io.Reader, encodingVersion int) (*Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if err := b.Validate(encodingVersion); err != nil {
		return nil, err
	}
	return &b, nil
}

// LoadBundleFile reads a bundle from disk.
func LoadBundleFile(path string, encodingVersion int) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle file: %w", err)
	}
	defer f.Close()
	return LoadBundle(f, encodingVersion)
}

// recoverMalformed turns a panic inside a model walk into ErrMalformedInput so
// callers degrade to their rule path. Bundles built in memory skip Validate.
func recoverMalformed(model string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %s panicked: %v", ErrMalformedInput, model, r)
	}
}

func checkFinite(x []float64) error {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: feature %s is %v", ErrMalformedInput, features.Names[i], v)
		}
	}
	return nil
}

// FallbackFunc is notified when a fitted model fails and the caller degrades to
// its rule-based path. model names the failing model.
type FallbackFunc func(model string, err error)
