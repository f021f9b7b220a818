package observation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/healthbridge/healthbridge/internal/healthdata"
)

// PubSubSource is a Source fed by device bridges publishing encoded points
// to one Pub/Sub subscription per data type, named "<prefix>-<data_type>".
type PubSubSource struct {
	client *pubsub.Client
	prefix string
	logger zerolog.Logger
}

// PubSubConfig holds configuration for a PubSubSource.
type PubSubConfig struct {
	ProjectID          string
	SubscriptionPrefix string
	Logger             zerolog.Logger
}

// NewPubSubSource creates a Pub/Sub backed Source.
func NewPubSubSource(ctx context.Context, cfg PubSubConfig) (*PubSubSource, error) {
	if cfg.SubscriptionPrefix == "" {
		return nil, errors.New("pubsub subscription prefix is required")
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return &PubSubSource{
		client: client,
		prefix: cfg.SubscriptionPrefix,
		logger: cfg.Logger.With().Str("component", "pubsub_source").Logger(),
	}, nil
}

// SubscriptionName returns the subscription carrying dataType.
func (s *PubSubSource) SubscriptionName(dataType healthdata.DataType) string {
	return s.prefix + "-" + string(dataType)
}

// Subscribe starts receiving points for dataType until ctx is cancelled.
// Messages are processed one at a time so points keep publish order.
func (s *PubSubSource) Subscribe(ctx context.Context, dataType healthdata.DataType) (<-chan healthdata.HealthDataPoint, error) {
	if !dataType.IsValid() {
		return nil, nil
	}

	name := s.SubscriptionName(dataType)
	subscriber := s.client.Subscriber(name)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.MaxExtension = time.Minute

	out := make(chan healthdata.HealthDataPoint)
	go func() {
		defer close(out)

		s.logger.Info().Str("subscription", name).Msg("starting pubsub receive")
		err := subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
			if s.deliver(ctx, dataType, msg.ID, msg.Data, out) {
				msg.Ack()
			} else {
				msg.Nack()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Str("subscription", name).Msg("pubsub receive stopped")
		}
	}()

	return out, nil
}

// Close closes the Pub/Sub client.
func (s *PubSubSource) Close() error {
	return s.client.Close()
}

// deliver decodes one message and forwards it to out. It reports whether the
// message should be acknowledged: undecodable points and points of another
// type are dropped and acknowledged so they are not redelivered.
func (s *PubSubSource) deliver(ctx context.Context, dataType healthdata.DataType, id string, data []byte, out chan<- healthdata.HealthDataPoint) bool {
	logger := s.logger.With().
		Str("message_id", id).
		Str("data_type", dataType.String()).
		Logger()

	p, err := healthdata.UnmarshalPoint(data)
	if err != nil {
		logger.Warn().Err(err).Msg("dropping undecodable point")
		return true
	}
	if p.DataType() != dataType {
		logger.Warn().Str("got", p.DataType().String()).Msg("dropping point of unexpected type")
		return true
	}

	select {
	case out <- p:
		return true
	case <-ctx.Done():
		return false
	}
}
