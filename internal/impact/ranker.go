package impact

import (
	"math"
	"sort"

	"github.com/couchcryptid/climate-intervention-planner/internal/catalog"
	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
	"github.com/couchcryptid/climate-intervention-planner/internal/features"
	"github.com/couchcryptid/climate-intervention-planner/internal/ml"
)

// DefaultTypes are ranked when the caller names none.
var DefaultTypes = []string{"biochar", "DAC", "afforestation", "enhanced_weathering"}

const (
	trainedRankingConfidence = 0.8
	ruleRankingConfidence    = 0.6

	baseScale = 100.0
	minScale  = 10.0
	maxScale  = 1000.0
)

// Ranker orders intervention types for one site.
type Ranker struct {
	codec      *features.Codec
	catalog    *catalog.Catalog
	bundle     *ml.Bundle
	defaults   []string
	onFallback ml.FallbackFunc
}

// NewRanker creates a Ranker. Nil codec and catalog use the embedded tables; an
// empty defaults list uses DefaultTypes.
func NewRanker(codec *features.Codec, cat *catalog.Catalog, bundle *ml.Bundle, defaults []string, onFallback ml.FallbackFunc) *Ranker {
	if codec == nil {
		codec = features.NewCodec(nil)
	}
	if cat == nil {
		cat = catalog.Default()
	}
	if len(defaults) == 0 {
		defaults = DefaultTypes
	}
	return &Ranker{codec: codec, catalog: cat, bundle: bundle, defaults: defaults, onFallback: onFallback}
}

// Rank scores every type in types (the configured defaults when empty) by
// substituting it into the observation's intervention type. Entries are sorted
// by descending impact score, ties by ascending type name. A type that is not
// in the encoding table or the catalog fails the whole ranking with
// domain.ErrUnknownCategory.
func (r *Ranker) Rank(obs domain.ClimateObservation, types []string) (domain.InterventionRanking, error) {
	if err := obs.Validate(); err != nil {
		return domain.InterventionRanking{}, err
	}
	if len(types) == 0 {
		types = r.defaults
	}
	types = dedupe(types)

	vectors := make([]features.Vector, len(types))
	for i, t := range types {
		v, err := r.codec.Encode(obs.WithInterventionType(t))
		if err != nil {
			return domain.InterventionRanking{}, err
		}
		if _, ok := r.catalog.Lookup(t); !ok {
			return domain.InterventionRanking{}, &domain.UnknownCategoryError{Field: features.FieldInterventionType, Value: t}
		}
		vectors[i] = v
	}

	ranking := domain.InterventionRanking{
		Method:          domain.MethodRuleBased,
		ModelConfidence: ruleRankingConfidence,
		FallbackUsed:    true,
	}
	scores := r.ruleScores(obs, types)
	if r.bundle != nil {
		trained, err := r.trainedScores(vectors)
		if err != nil {
			if r.onFallback != nil {
				r.onFallback("ranking_ensemble", err)
			}
			ranking.ModelConfidence -= degradedPenalty
		} else {
			scores = trained
			ranking.Method = domain.MethodBoosting
			ranking.ModelConfidence = trainedRankingConfidence
			ranking.FallbackUsed = false
		}
	}

	ranking.Entries = make([]domain.RankingEntry, len(types))
	for i, t := range types {
		ranking.Entries[i] = r.entry(obs, t, scores[i])
	}
	sort.SliceStable(ranking.Entries, func(i, j int) bool {
		a, b := ranking.Entries[i], ranking.Entries[j]
		if a.ImpactScore != b.ImpactScore {
			return a.ImpactScore > b.ImpactScore
		}
		return a.InterventionType < b.InterventionType
	})
	return ranking, nil
}

func (r *Ranker) trainedScores(vectors []features.Vector) ([]float64, error) {
	scores := make([]float64, len(vectors))
	for i, v := range vectors {
		s, err := r.bundle.ScoreIntervention(v)
		if err != nil {
			return nil, err
		}
		scores[i] = math.Min(1, math.Max(0, s))
	}
	return scores, nil
}

func (r *Ranker) ruleScores(obs domain.ClimateObservation, types []string) []float64 {
	scores := make([]float64, len(types))
	for i, t := range types {
		scores[i] = r.catalog.DefaultRuleScore
		iv, _ := r.catalog.Lookup(t)
		if rule := iv.Rule; rule != nil && driverValue(rule.Driver, obs) > rule.Threshold {
			scores[i] = rule.Score
		}
	}
	return scores
}

func (r *Ranker) entry(obs domain.ClimateObservation, t string, score float64) domain.RankingEntry {
	iv, _ := r.catalog.Lookup(t)
	amount := baseScale
	if iv.Scale.Driver != "" {
		amount = driverValue(iv.Scale.Driver, obs) / iv.Scale.Divisor * 100
	}
	amount = math.Min(maxScale, math.Max(minScale, amount))

	return domain.RankingEntry{
		InterventionType: t,
		ImpactScore:      score,
		CostEfficiency:   score / math.Max(0.1, obs.CostPerTonne/100),
		RecommendedScale: domain.RecommendedScale{
			Amount:        amount,
			Unit:          iv.Unit,
			EstimatedCost: amount * obs.CostPerTonne,
		},
		Priority: domain.PriorityFor(score),
	}
}

func driverValue(driver string, obs domain.ClimateObservation) float64 {
	switch driver {
	case catalog.DriverBiomass:
		return obs.BiomassDensity
	case catalog.DriverCO2:
		return obs.CO2Concentration
	default:
		return 0
	}
}

func dedupe(types []string) []string {
	seen := make(map[string]bool, len(types))
	out := make([]string, 0, len(types))
	for _, t := range types {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
