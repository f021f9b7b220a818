package observation

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthbridge/healthbridge/internal/healthdata"
)

func testSource() *PubSubSource {
	return &PubSubSource{prefix: "hb-live", logger: zerolog.New(io.Discard)}
}

func TestPubSubSource_SubscriptionName(t *testing.T) {
	assert.Equal(t, "hb-live-heart_rate", testSource().SubscriptionName(healthdata.HeartRate))
}

func TestPubSubSource_Deliver(t *testing.T) {
	s := testSource()
	p := healthdata.HeartRateData{Base: healthdata.NewBase(time.Unix(0, 0).UTC(), nil), BPM: 88}
	data, err := healthdata.MarshalPoint(p)
	require.NoError(t, err)

	out := make(chan healthdata.HealthDataPoint, 1)
	assert.True(t, s.deliver(context.Background(), healthdata.HeartRate, "m1", data, out))
	assert.Equal(t, p, <-out)
}

func TestPubSubSource_DeliverDropsBadMessages(t *testing.T) {
	s := testSource()
	out := make(chan healthdata.HealthDataPoint, 1)

	assert.True(t, s.deliver(context.Background(), healthdata.HeartRate, "m1", []byte(`not json`), out))

	steps, err := healthdata.MarshalPoint(healthdata.StepsData{Base: healthdata.NewBase(time.Now(), nil), Count: 3})
	require.NoError(t, err)
	assert.True(t, s.deliver(context.Background(), healthdata.HeartRate, "m2", steps, out))

	assert.Empty(t, out)
}

func TestPubSubSource_DeliverCancelledNacks(t *testing.T) {
	s := testSource()
	data, err := healthdata.MarshalPoint(healthdata.HeartRateData{Base: healthdata.NewBase(time.Now(), nil), BPM: 60})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, s.deliver(ctx, healthdata.HeartRate, "m1", data, make(chan healthdata.HealthDataPoint)))
}
