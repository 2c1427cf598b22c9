package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// RawMessage is an unprocessed message from the observation source topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Recommendation is the per-observation output of the worker: the suitability
// tier, the predicted impact and the ranked intervention types for one site.
type Recommendation struct {
	ID          string                `json:"id"`
	Geo         Geo                   `json:"geo"`
	ObservedAt  time.Time             `json:"observed_at"`
	Suitability SuitabilityAssessment `json:"suitability"`
	Impact      ImpactPrediction      `json:"impact"`
	Ranking     InterventionRanking   `json:"ranking"`
	ProcessedAt time.Time             `json:"processed_at"`
}

// OutputMessage is the serialized form destined for the sink topic.
type OutputMessage struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// RecommendationID derives a deterministic key from the observation location
// and time.
func RecommendationID(obs ClimateObservation) string {
	input := fmt.Sprintf("%.4f|%.4f|%s", obs.Geo.Lat, obs.Geo.Lon, obs.ObservedAt.UTC().Format(time.RFC3339))
	hash := sha256.Sum256([]byte(input))
	return "rec-" + hex.EncodeToString(hash[:8])
}

// SerializeRecommendation marshals a recommendation into an output message keyed
// by its ID.
func SerializeRecommendation(rec Recommendation) (OutputMessage, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return OutputMessage{}, fmt.Errorf("serialize recommendation: %w", err)
	}
	headers := map[string]string{
		"suitability":  string(rec.Suitability.Tier),
		"processed_at": rec.ProcessedAt.Format(time.RFC3339),
	}
	if top, ok := rec.Ranking.Top(); ok {
		headers["intervention_type"] = top.InterventionType
	}
	return OutputMessage{
		Key:     []byte(rec.ID),
		Value:   data,
		Headers: headers,
	}, nil
}
