package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendationID(t *testing.T) {
	obs := NewObservation(35.0, -97.0)
	obs.ObservedAt = time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

	id := RecommendationID(obs)
	assert.True(t, strings.HasPrefix(id, "rec-"))
	assert.Len(t, id, len("rec-")+16)
	assert.Equal(t, id, RecommendationID(obs), "IDs must be deterministic")

	obs.ObservedAt = obs.ObservedAt.Add(time.Hour)
	assert.NotEqual(t, id, RecommendationID(obs))
}

func TestSerializeRecommendation(t *testing.T) {
	processed := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	rec := Recommendation{
		ID:          "rec-1",
		Geo:         Geo{Lat: -3.1, Lon: -60.0},
		Suitability: SuitabilityAssessment{Tier: TierHigh, Confidence: 0.9, Method: MethodRuleBased},
		Ranking: InterventionRanking{Entries: []RankingEntry{
			{InterventionType: "biochar", ImpactScore: 0.8, Priority: PriorityMedium},
			{InterventionType: "afforestation", ImpactScore: 0.7, Priority: PriorityMedium},
		}},
		ProcessedAt: processed,
	}

	out, err := SerializeRecommendation(rec)
	require.NoError(t, err)

	assert.Equal(t, []byte("rec-1"), out.Key)
	assert.Equal(t, "high", out.Headers["suitability"])
	assert.Equal(t, "biochar", out.Headers["intervention_type"])
	assert.Equal(t, processed.Format(time.RFC3339), out.Headers["processed_at"])

	var roundtrip Recommendation
	require.NoError(t, json.Unmarshal(out.Value, &roundtrip))
	if diff := cmp.Diff(rec, roundtrip); diff != "" {
		t.Fatalf("roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializeRecommendation_EmptyRanking(t *testing.T) {
	out, err := SerializeRecommendation(Recommendation{ID: "rec-2", Suitability: SuitabilityAssessment{Tier: TierLow}})
	require.NoError(t, err)

	_, ok := out.Headers["intervention_type"]
	assert.False(t, ok)
}
