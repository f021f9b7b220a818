package platform

import (
	"context"
	"sync"
	"time"

	"github.com/healthbridge/healthbridge/internal/healthdata"
)

// Dashboard is a snapshot of the latest sample per data type. Types that are
// unsupported, empty or failed to load are absent from Points.
type Dashboard struct {
	Platform healthdata.Platform
	Points   map[healthdata.DataType]healthdata.HealthDataPoint
	LoadedAt time.Time
	Duration time.Duration
}

type latestResult struct {
	dataType healthdata.DataType
	point    healthdata.HealthDataPoint
}

// LoadDashboard reads the latest sample of each data type in parallel. A
// failed read is logged and dropped; it never fails the snapshot.
func (s *Service) LoadDashboard(ctx context.Context, dataTypes []healthdata.DataType) *Dashboard {
	start := time.Now()

	reads := healthdata.NewPermissionSet()
	for _, dt := range dataTypes {
		if s.Capability(dt).CanRead {
			reads.Add(healthdata.Permission{DataType: dt, Access: healthdata.AccessRead})
		}
	}
	if _, err := s.CheckPermissions(ctx, reads); err != nil {
		s.logger.Warn().Err(err).Msg("dashboard permission check failed")
	}

	jobs := make(chan healthdata.DataType, len(dataTypes))
	results := make(chan latestResult, len(dataTypes))

	var wg sync.WaitGroup
	for i := 0; i < min(s.concurrency, len(dataTypes)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.dashboardWorker(ctx, jobs, results)
		}()
	}

	for _, dt := range dataTypes {
		jobs <- dt
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	d := &Dashboard{
		Platform: s.platform,
		Points:   make(map[healthdata.DataType]healthdata.HealthDataPoint, len(dataTypes)),
		LoadedAt: start,
	}
	for r := range results {
		d.Points[r.dataType] = r.point
	}
	d.Duration = time.Since(start)

	s.logger.Info().
		Int("requested", len(dataTypes)).
		Int("loaded", len(d.Points)).
		Dur("duration", d.Duration).
		Msg("dashboard loaded")
	return d
}

func (s *Service) dashboardWorker(ctx context.Context, jobs <-chan healthdata.DataType, results chan<- latestResult) {
	for dt := range jobs {
		if ctx.Err() != nil {
			continue
		}
		p, err := s.ReadLatest(ctx, dt)
		if err != nil {
			s.logger.Warn().Err(err).Str("data_type", dt.String()).Msg("dropping dashboard read")
			continue
		}
		if p != nil {
			results <- latestResult{dataType: dt, point: p}
		}
	}
}
