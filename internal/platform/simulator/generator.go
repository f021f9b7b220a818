package simulator

import (
	"context"
	"math"
	"time"

	"github.com/healthbridge/healthbridge/internal/healthdata"
)

// Run emits a synthetic heart rate and step count every interval, plus a
// cumulative update for the active workout, until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	source := &healthdata.DataSource{Name: "simulator", Device: &healthdata.Device{Model: "virtual"}}
	var (
		tick     int
		steps    int
		distance float64
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		tick++
		now := a.now()

		bpm := 70 + int(math.Round(25*math.Sin(float64(tick)/10)))
		steps += 12 + tick%5
		a.Emit(ctx, healthdata.HeartRateData{Base: healthdata.NewBase(now, source), BPM: bpm})
		a.Emit(ctx, healthdata.StepsData{Base: healthdata.NewBase(now, source), Count: steps})

		a.mu.Lock()
		w := a.workout
		var (
			elapsed time.Duration
			running bool
		)
		if w != nil {
			elapsed = now.Sub(w.started)
			running = !w.paused
		}
		a.mu.Unlock()
		if !running {
			continue
		}

		distance += 2.8 * every.Seconds()
		d, kcal := distance, distance*0.06
		a.EmitWorkout(ctx, healthdata.WorkoutData{
			Base:      healthdata.NewBase(now, source),
			Duration:  &elapsed,
			Distance:  &d,
			Calories:  &kcal,
			HeartRate: &healthdata.HeartRateStats{Latest: bpm},
		})
	}
}
