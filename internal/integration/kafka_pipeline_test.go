//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/climate-intervention-planner/internal/adapter/kafka"
	"github.com/couchcryptid/climate-intervention-planner/internal/config"
	"github.com/couchcryptid/climate-intervention-planner/internal/domain"
	"github.com/couchcryptid/climate-intervention-planner/internal/ml"
	"github.com/couchcryptid/climate-intervention-planner/internal/observability"
	"github.com/couchcryptid/climate-intervention-planner/internal/pipeline"
	"github.com/couchcryptid/climate-intervention-planner/internal/planner"
	"github.com/couchcryptid/climate-intervention-planner/internal/simulation"
)

const (
	testSourceTopic = "test-observations"
	testSinkTopic   = "test-recommendations"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("planner-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
}

// syntheticObservations returns n labelled observations as wire payloads.
func syntheticObservations(t *testing.T, n int) ([][]byte, []ml.Sample) {
	t.Helper()
	samples := ml.SyntheticSamples(3, n)
	payloads := make([][]byte, len(samples))
	for i, s := range samples {
		data, err := json.Marshal(s.Observation.Record())
		require.NoError(t, err)
		payloads[i] = data
	}
	return payloads, samples
}

func publish(ctx context.Context, t *testing.T, broker string, msgs ...kafkago.Message) {
	t.Helper()
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, msgs...))
}

type sinkMessage struct {
	Recommendation domain.Recommendation
	Key            string
	Headers        map[string]string
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// readRecommendation reads a single message from the sink consumer and deserializes it.
func readRecommendation(ctx context.Context, t *testing.T, consumer *kafkago.Reader) sinkMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var rec domain.Recommendation
	require.NoError(t, json.Unmarshal(msg.Value, &rec), "unmarshal sink message")
	return sinkMessage{Recommendation: rec, Key: string(msg.Key), Headers: headers}
}

func newPlanner(t *testing.T) *planner.Service {
	t.Helper()
	s, err := planner.New(planner.Options{Noise: simulation.ZeroNoise{}}, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	return s
}

// TestKafkaReaderWriter verifies that kafka.Reader and kafka.Writer round-trip
// an observation and its recommendation through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	payloads, _ := syntheticObservations(t, 1)
	publish(ctx, t, broker, kafkago.Message{Key: []byte("site-1"), Value: payloads[0]})

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawMessage
	for len(batch) == 0 {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("site-1"), raw.Key)
	assert.Equal(t, payloads[0], raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	out, err := pipeline.NewTransformer(newPlanner(t), discardLogger()).Transform(ctx, raw)
	require.NoError(t, err)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, []domain.OutputMessage{out}))

	sm := readRecommendation(ctx, t, sinkConsumer(t, broker))
	assert.Equal(t, string(out.Key), sm.Key)
	assert.Equal(t, sm.Recommendation.ID, sm.Key)
	assert.NotEmpty(t, sm.Headers["suitability"])
	assert.NotEmpty(t, sm.Headers["intervention_type"])
	_, err = time.Parse(time.RFC3339, sm.Headers["processed_at"])
	assert.NoError(t, err, "processed_at should be valid RFC3339")
}

// TestPipelineEndToEnd wires Reader → RecommendationTransformer → Writer with
// real Kafka and checks every observation yields one recommendation.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")

	payloads, samples := syntheticObservations(t, 30)
	msgs := make([]kafkago.Message, len(payloads))
	for i, p := range payloads {
		msgs[i] = kafkago.Message{Key: []byte(fmt.Sprintf("site-%d", i)), Value: p}
	}
	publish(ctx, t, broker, msgs...)

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, pipeline.NewTransformer(newPlanner(t), discardLogger()), writer,
		discardLogger(), observability.NewMetricsForTesting(), 10)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	byID := map[string]domain.Recommendation{}
	for len(byID) < len(samples) {
		sm := readRecommendation(ctx, t, consumer)
		byID[sm.Key] = sm.Recommendation
	}

	pipelineCancel()
	require.NoError(t, <-errCh)
	require.NoError(t, p.CheckReadiness(ctx))

	for _, s := range samples {
		rec, ok := byID[domain.RecommendationID(s.Observation)]
		require.True(t, ok, "missing recommendation for %+v", s.Observation.Geo)
		assert.Equal(t, domain.MethodRuleBased, rec.Suitability.Method)
		assert.Len(t, rec.Ranking.Entries, 4)
	}
}

// TestPipelineSkipsPoisonMessages verifies that an invalid message is skipped
// and the pipeline continues processing valid observations.
func TestPipelineSkipsPoisonMessages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-poison")

	payloads, _ := syntheticObservations(t, 1)
	publish(ctx, t, broker,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("no-location"), Value: []byte(`{"co2_concentration": 430}`)},
		kafkago.Message{Key: []byte("good"), Value: payloads[0]},
	)

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, pipeline.NewTransformer(newPlanner(t), discardLogger()), writer, discardLogger(), metrics, 10)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	sm := readRecommendation(ctx, t, consumer)
	assert.NotEmpty(t, sm.Recommendation.Ranking.Entries)

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
