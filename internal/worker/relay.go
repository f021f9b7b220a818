package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/healthbridge/healthbridge/internal/healthdata"
	"github.com/healthbridge/healthbridge/internal/observation"
)

// Publisher sends an encoded message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) error
}

// ErrNothingToRelay is returned by Run when none of the configured data
// types can be observed.
var ErrNothingToRelay = errors.New("no relayable data types")

// Relay forwards the live feed of each configured data type to its topic.
type Relay struct {
	config    RelayConfig
	source    observation.Source
	publisher Publisher
	logger    zerolog.Logger
	metrics   relayMetrics

	mu       sync.Mutex
	relaying []healthdata.DataType
}

type relayMetrics struct {
	published     atomic.Int64
	failed        atomic.Int64
	unencodable   atomic.Int64
	lastPublished atomic.Int64
}

// RelayStats is a snapshot of relay counters.
type RelayStats struct {
	Relaying        []healthdata.DataType `json:"relaying"`
	Published       int64                 `json:"published"`
	Failed          int64                 `json:"failed"`
	Unencodable     int64                 `json:"unencodable"`
	LastPublishedAt *time.Time            `json:"lastPublishedAt,omitempty"`
}

// NewRelay creates a Relay reading from source.
func NewRelay(cfg RelayConfig, source observation.Source, publisher Publisher, logger zerolog.Logger) *Relay {
	return &Relay{
		config:    cfg.withDefaults(),
		source:    source,
		publisher: publisher,
		logger:    logger.With().Str("component", "relay").Logger(),
	}
}

// Run subscribes to every configured data type and relays points until ctx
// is cancelled or every feed ends. Types the source cannot observe are
// skipped; if none remain Run returns ErrNothingToRelay. A failed publish is
// logged and counted, and the point is dropped.
func (r *Relay) Run(ctx context.Context) error {
	startTime := time.Now()

	var (
		wg   sync.WaitGroup
		errs []error
	)
	for _, dt := range r.config.DataTypes {
		feed, err := r.source.Subscribe(ctx, dt)
		switch {
		case err != nil:
			r.logger.Warn().Err(err).Str("data_type", dt.String()).Msg("cannot relay data type")
			errs = append(errs, fmt.Errorf("subscribe %s: %w", dt, err))
			continue
		case feed == nil:
			r.logger.Info().Str("data_type", dt.String()).Msg("data type not observable, skipping")
			continue
		}

		r.mu.Lock()
		r.relaying = append(r.relaying, dt)
		r.mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			r.forward(ctx, dt, feed)
		}()
	}

	if len(r.Stats().Relaying) == 0 {
		return errors.Join(append([]error{ErrNothingToRelay}, errs...)...)
	}

	r.logger.Info().
		Int("data_types", len(r.Stats().Relaying)).
		Str("topic_prefix", r.config.TopicPrefix).
		Msg("relay started")

	wg.Wait()

	stats := r.Stats()
	r.logger.Info().
		Dur("duration", time.Since(startTime)).
		Int64("published", stats.Published).
		Int64("failed", stats.Failed).
		Msg("relay stopped")
	return nil
}

func (r *Relay) forward(ctx context.Context, dt healthdata.DataType, feed <-chan healthdata.HealthDataPoint) {
	topic := r.config.TopicName(dt)
	logger := r.logger.With().Str("topic", topic).Logger()

	for p := range feed {
		data, err := healthdata.MarshalPoint(p)
		if err != nil {
			r.metrics.unencodable.Add(1)
			logger.Warn().Err(err).Msg("dropping unencodable point")
			continue
		}

		pubCtx, cancel := context.WithTimeout(ctx, r.config.PublishTimeout)
		err = r.publisher.Publish(pubCtx, topic, data, map[string]string{"data_type": dt.String()})
		cancel()
		if err != nil {
			r.metrics.failed.Add(1)
			logger.Error().Err(err).Msg("publish failed")
			continue
		}

		r.metrics.published.Add(1)
		r.metrics.lastPublished.Store(time.Now().UnixNano())
		logger.Debug().Time("sample_time", p.PointBase().Timestamp).Msg("point relayed")
	}
}

// Stats returns the current relay counters.
func (r *Relay) Stats() RelayStats {
	r.mu.Lock()
	relaying := append([]healthdata.DataType(nil), r.relaying...)
	r.mu.Unlock()

	stats := RelayStats{
		Relaying:    relaying,
		Published:   r.metrics.published.Load(),
		Failed:      r.metrics.failed.Load(),
		Unencodable: r.metrics.unencodable.Load(),
	}
	if ns := r.metrics.lastPublished.Load(); ns > 0 {
		t := time.Unix(0, ns).UTC()
		stats.LastPublishedAt = &t
	}
	return stats
}
