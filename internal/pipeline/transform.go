package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
)

// Recommender produces the recommendation for one observation.
type Recommender interface {
	Recommend(obs domain.ClimateObservation) (domain.Recommendation, error)
}

// RecommendationTransformer implements Transformer by parsing the observation
// record and running it through a Recommender.
type RecommendationTransformer struct {
	recommender Recommender
	logger      *slog.Logger
}

// NewTransformer creates a RecommendationTransformer.
func NewTransformer(recommender Recommender, logger *slog.Logger) *RecommendationTransformer {
	return &RecommendationTransformer{
		recommender: recommender,
		logger:      logger,
	}
}

func (t *RecommendationTransformer) Transform(_ context.Context, raw domain.RawMessage) (domain.OutputMessage, error) {
	obs, err := domain.ParseObservation(raw.Value)
	if err != nil {
		return domain.OutputMessage{}, err
	}

	rec, err := t.recommender.Recommend(obs)
	if err != nil {
		return domain.OutputMessage{}, fmt.Errorf("recommend for %.4f,%.4f: %w", obs.Geo.Lat, obs.Geo.Lon, err)
	}
	t.logger.Debug("recommendation produced",
		"id", rec.ID,
		"suitability", rec.Suitability.Tier,
		"fallback_used", rec.Suitability.FallbackUsed,
	)

	return domain.SerializeRecommendation(rec)
}
