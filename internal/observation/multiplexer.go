// Package observation multiplexes live health data feeds: at most one
// cancellable observation per data type, each with a bounded history of the
// points it delivered.
package observation

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/healthbridge/healthbridge/internal/healthdata"
	"github.com/healthbridge/healthbridge/internal/telemetry"
)

// DefaultHistorySize is the number of points retained per observed type.
const DefaultHistorySize = 20

// Source produces live points for a data type. Subscribe returns a nil
// channel when the type cannot be observed. The channel is closed when the
// feed ends; cancelling ctx must end it.
type Source interface {
	Subscribe(ctx context.Context, dataType healthdata.DataType) (<-chan healthdata.HealthDataPoint, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(ctx context.Context, dataType healthdata.DataType) (<-chan healthdata.HealthDataPoint, error)

// Subscribe calls f.
func (f SourceFunc) Subscribe(ctx context.Context, dataType healthdata.DataType) (<-chan healthdata.HealthDataPoint, error) {
	return f(ctx, dataType)
}

// Config holds configuration for a Multiplexer.
type Config struct {
	Source      Source
	Logger      zerolog.Logger
	Instruments *telemetry.Instruments

	// HistorySize is the number of points retained per type.
	// Default: 20
	HistorySize int
}

// Multiplexer owns the active observation handles and their histories.
// Construct one per session; tear it down with StopAll.
type Multiplexer struct {
	source      Source
	logger      zerolog.Logger
	instruments *telemetry.Instruments
	historySize int

	mu      sync.Mutex
	handles map[healthdata.DataType]*Handle
	history map[healthdata.DataType][]healthdata.HealthDataPoint
}

// NewMultiplexer creates a Multiplexer reading from cfg.Source.
func NewMultiplexer(cfg Config) *Multiplexer {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	return &Multiplexer{
		source:      cfg.Source,
		logger:      cfg.Logger.With().Str("component", "observation").Logger(),
		instruments: cfg.Instruments,
		historySize: cfg.HistorySize,
		handles:     make(map[healthdata.DataType]*Handle),
		history:     make(map[healthdata.DataType][]healthdata.HealthDataPoint),
	}
}

// Handle is one active observation of a data type. Updates delivers points
// in source order and is closed when the observation ends.
type Handle struct {
	dataType healthdata.DataType
	ctx      context.Context
	cancel   context.CancelFunc
	updates  chan healthdata.HealthDataPoint
	done     chan struct{}
}

// DataType returns the observed type.
func (h *Handle) DataType() healthdata.DataType { return h.dataType }

// Updates returns the live point sequence. Consumers must keep reading:
// the source is not read ahead of delivery.
func (h *Handle) Updates() <-chan healthdata.HealthDataPoint { return h.updates }

// Done is closed once the handle has stopped processing.
func (h *Handle) Done() <-chan struct{} { return h.done }

// StartObserving opens an observation of dataType. Any existing observation
// of the same type is cancelled, and its processing has stopped, before the
// new one delivers anything. It returns nil and no error when the source
// cannot observe dataType.
//
// The handle outlives ctx; only values are taken from it. End the handle
// with StopObserving or StopAll.
func (m *Multiplexer) StartObserving(ctx context.Context, dataType healthdata.DataType) (*Handle, error) {
	hctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	in, err := m.source.Subscribe(hctx, dataType)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribing to %s: %w", dataType, err)
	}
	if in == nil {
		cancel()
		m.logger.Debug().Str("data_type", dataType.String()).Msg("data type cannot be observed")
		return nil, nil
	}

	h := &Handle{
		dataType: dataType,
		ctx:      hctx,
		cancel:   cancel,
		updates:  make(chan healthdata.HealthDataPoint),
		done:     make(chan struct{}),
	}

	m.mu.Lock()
	prev := m.handles[dataType]
	m.handles[dataType] = h
	delete(m.history, dataType)
	m.mu.Unlock()

	if prev != nil {
		m.halt(prev)
		m.logger.Debug().Str("data_type", dataType.String()).Msg("replaced existing observation")
	}

	m.instruments.ObservationStarted(hctx, dataType.String())
	go m.pump(h, in)

	return h, nil
}

// StopObserving cancels the observation of dataType and clears its history.
// It returns once the handle has stopped processing. Stopping a type that is
// not observed does nothing.
func (m *Multiplexer) StopObserving(dataType healthdata.DataType) {
	m.mu.Lock()
	h := m.handles[dataType]
	delete(m.handles, dataType)
	delete(m.history, dataType)
	m.mu.Unlock()

	if h != nil {
		m.halt(h)
	}
}

// StopAll cancels every observation and clears all retained history.
func (m *Multiplexer) StopAll() {
	m.mu.Lock()
	handles := make([]*Handle, 0, len(m.handles))
	for _, h := range m.handles {
		handles = append(handles, h)
	}
	clear(m.handles)
	clear(m.history)
	m.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
	for _, h := range handles {
		m.halt(h)
	}
}

// History returns a copy of the retained points for dataType, oldest first.
func (m *Multiplexer) History(dataType healthdata.DataType) []healthdata.HealthDataPoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history[dataType])
}

// Latest returns the most recent retained point for dataType.
func (m *Multiplexer) Latest(dataType healthdata.DataType) (healthdata.HealthDataPoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := m.history[dataType]
	if len(buf) == 0 {
		return nil, false
	}
	return buf[len(buf)-1], true
}

// IsObserving reports whether dataType has an active handle.
func (m *Multiplexer) IsObserving(dataType healthdata.DataType) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handles[dataType]
	return ok
}

// ActiveTypes returns the observed data types in name order.
func (m *Multiplexer) ActiveTypes() []healthdata.DataType {
	m.mu.Lock()
	out := make([]healthdata.DataType, 0, len(m.handles))
	for dt := range m.handles {
		out = append(out, dt)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// halt cancels h and waits for its pump to exit.
func (m *Multiplexer) halt(h *Handle) {
	h.cancel()
	<-h.done
}

func (m *Multiplexer) pump(h *Handle, in <-chan healthdata.HealthDataPoint) {
	defer func() {
		close(h.updates)
		close(h.done)
		m.instruments.ObservationStopped(context.Background(), h.dataType.String())
	}()

	for {
		select {
		case <-h.ctx.Done():
			return
		case p, ok := <-in:
			if !ok {
				m.logger.Debug().Str("data_type", h.dataType.String()).Msg("source closed observation feed")
				m.detach(h)
				return
			}
			if !m.record(h, p) {
				return
			}
			m.instruments.ObservationUpdate(h.ctx, h.dataType.String())
			select {
			case h.updates <- p:
			case <-h.ctx.Done():
				return
			}
		}
	}
}

// detach removes h from the active handles, keeping its history, and
// releases its context.
func (m *Multiplexer) detach(h *Handle) {
	m.mu.Lock()
	if m.handles[h.dataType] == h {
		delete(m.handles, h.dataType)
	}
	m.mu.Unlock()
	h.cancel()
}

// record appends p to the history of h's type if h is still the active
// handle for it.
func (m *Multiplexer) record(h *Handle, p healthdata.HealthDataPoint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handles[h.dataType] != h || h.ctx.Err() != nil {
		return false
	}
	buf := append(m.history[h.dataType], p)
	if over := len(buf) - m.historySize; over > 0 {
		buf = slices.Delete(buf, 0, over)
	}
	m.history[h.dataType] = buf
	return true
}
