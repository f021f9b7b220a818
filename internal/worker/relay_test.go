package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthbridge/healthbridge/internal/healthdata"
	"github.com/healthbridge/healthbridge/internal/observation"
	"github.com/healthbridge/healthbridge/internal/worker"
)

type message struct {
	topic string
	data  []byte
	attrs map[string]string
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []message
	fail     map[string]error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, data []byte, attrs map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail[topic]; err != nil {
		return err
	}
	p.messages = append(p.messages, message{topic: topic, data: data, attrs: attrs})
	return nil
}

func (p *fakePublisher) published() []message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]message(nil), p.messages...)
}

// feeds is a Source serving pre-filled channels. Types without a channel are
// not observable.
func feeds(chans map[healthdata.DataType]chan healthdata.HealthDataPoint) observation.Source {
	return observation.SourceFunc(func(_ context.Context, dt healthdata.DataType) (<-chan healthdata.HealthDataPoint, error) {
		ch, ok := chans[dt]
		if !ok {
			return nil, nil
		}
		return ch, nil
	})
}

func at(sec int) healthdata.Base {
	return healthdata.NewBase(time.Date(2024, 3, 1, 8, 0, sec, 0, time.UTC), nil)
}

func TestRelay_PublishesToTopicPerType(t *testing.T) {
	hr := make(chan healthdata.HealthDataPoint, 2)
	steps := make(chan healthdata.HealthDataPoint, 1)
	hr <- healthdata.HeartRateData{Base: at(1), BPM: 71}
	hr <- healthdata.HeartRateData{Base: at(2), BPM: 74}
	steps <- healthdata.StepsData{Base: at(1), Count: 120}
	close(hr)
	close(steps)

	pub := &fakePublisher{}
	relay := worker.NewRelay(worker.RelayConfig{TopicPrefix: "live"},
		feeds(map[healthdata.DataType]chan healthdata.HealthDataPoint{
			healthdata.HeartRate: hr,
			healthdata.Steps:     steps,
		}), pub, zerolog.Nop())

	require.NoError(t, relay.Run(context.Background()))

	msgs := pub.published()
	require.Len(t, msgs, 3)

	var hrMsgs []message
	for _, m := range msgs {
		if m.topic == "live-heart_rate" {
			hrMsgs = append(hrMsgs, m)
		}
	}
	require.Len(t, hrMsgs, 2)
	assert.Equal(t, "heart_rate", hrMsgs[0].attrs["data_type"])

	p, err := healthdata.UnmarshalPoint(hrMsgs[1].data)
	require.NoError(t, err)
	assert.Equal(t, 74, p.(healthdata.HeartRateData).BPM, "points keep feed order per topic")

	stats := relay.Stats()
	assert.Equal(t, int64(3), stats.Published)
	assert.Zero(t, stats.Failed)
	assert.ElementsMatch(t, []healthdata.DataType{healthdata.HeartRate, healthdata.Steps}, stats.Relaying)
	require.NotNil(t, stats.LastPublishedAt)
}

func TestRelay_PublishFailureDropsPoint(t *testing.T) {
	hr := make(chan healthdata.HealthDataPoint, 2)
	hr <- healthdata.HeartRateData{Base: at(1), BPM: 71}
	hr <- healthdata.HeartRateData{Base: at(2), BPM: 74}
	close(hr)

	pub := &fakePublisher{fail: map[string]error{"healthbridge-live-heart_rate": errors.New("topic not found")}}
	relay := worker.NewRelay(worker.RelayConfig{DataTypes: []healthdata.DataType{healthdata.HeartRate}},
		feeds(map[healthdata.DataType]chan healthdata.HealthDataPoint{healthdata.HeartRate: hr}),
		pub, zerolog.Nop())

	require.NoError(t, relay.Run(context.Background()))

	assert.Empty(t, pub.published())
	stats := relay.Stats()
	assert.Equal(t, int64(2), stats.Failed)
	assert.Zero(t, stats.Published)
	assert.Nil(t, stats.LastPublishedAt)
}

func TestRelay_SkipsUnobservableTypes(t *testing.T) {
	steps := make(chan healthdata.HealthDataPoint)
	close(steps)

	relay := worker.NewRelay(worker.RelayConfig{
		DataTypes: []healthdata.DataType{healthdata.Mindfulness, healthdata.Steps},
	}, feeds(map[healthdata.DataType]chan healthdata.HealthDataPoint{healthdata.Steps: steps}),
		&fakePublisher{}, zerolog.Nop())

	require.NoError(t, relay.Run(context.Background()))
	assert.Equal(t, []healthdata.DataType{healthdata.Steps}, relay.Stats().Relaying)
}

func TestRelay_NothingToRelay(t *testing.T) {
	failing := observation.SourceFunc(func(context.Context, healthdata.DataType) (<-chan healthdata.HealthDataPoint, error) {
		return nil, errors.New("permission denied")
	})

	relay := worker.NewRelay(worker.RelayConfig{}, failing, &fakePublisher{}, zerolog.Nop())
	err := relay.Run(context.Background())

	require.ErrorIs(t, err, worker.ErrNothingToRelay)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestRelay_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := observation.SourceFunc(func(ctx context.Context, _ healthdata.DataType) (<-chan healthdata.HealthDataPoint, error) {
		ch := make(chan healthdata.HealthDataPoint)
		go func() {
			<-ctx.Done()
			close(ch)
		}()
		return ch, nil
	})

	relay := worker.NewRelay(worker.RelayConfig{}, source, &fakePublisher{}, zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(relay.Stats().Relaying) == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}

func TestRelayConfig_Defaults(t *testing.T) {
	cfg := worker.DefaultRelayConfig()

	assert.Equal(t, []healthdata.DataType{healthdata.HeartRate, healthdata.Steps}, cfg.DataTypes)
	assert.Equal(t, 10*time.Second, cfg.PublishTimeout)
	assert.Equal(t, "healthbridge-live-steps", cfg.TopicName(healthdata.Steps))
}
