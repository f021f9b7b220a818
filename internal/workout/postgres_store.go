package workout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthbridge/healthbridge/internal/healthdata"
)

// Schema creates the table PostgresStore writes to.
const Schema = `
	CREATE TABLE IF NOT EXISTS workout_sessions (
		id               UUID PRIMARY KEY,
		session_id       TEXT NOT NULL UNIQUE,
		workout_type     TEXT NOT NULL,
		start_time       TIMESTAMPTZ NOT NULL,
		end_time         TIMESTAMPTZ,
		duration_ms      BIGINT NOT NULL,
		distance_m       DOUBLE PRECISION,
		calories_kcal    DOUBLE PRECISION,
		heart_rate_bpm   INTEGER,
		steps            INTEGER,
		cadence          DOUBLE PRECISION,
		pace_min_per_km  DOUBLE PRECISION,
		route_polyline   TEXT,
		recorded_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// PostgresStore is a PostgreSQL implementation of Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL session store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the sessions table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("creating workout_sessions: %w", err)
	}
	return nil
}

// Save stores a finished session. Saving an ID twice keeps the first row.
func (s *PostgresStore) Save(ctx context.Context, session Session) error {
	query := `
		INSERT INTO workout_sessions (
			id, session_id, workout_type, start_time, end_time, duration_ms,
			distance_m, calories_kcal, heart_rate_bpm, steps, cadence, pace_min_per_km,
			route_polyline
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (session_id) DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query,
		uuid.New(),
		session.ID,
		string(session.Type),
		session.StartTime,
		session.EndTime,
		session.Duration.Milliseconds(),
		session.Distance,
		session.Calories,
		session.HeartRate,
		session.Steps,
		session.Cadence,
		session.Pace,
		routePolyline(session.Route),
	)
	if err != nil {
		return fmt.Errorf("inserting workout session %s: %w", session.ID, err)
	}
	return nil
}

// Get retrieves a session by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT
			session_id, workout_type, start_time, end_time, duration_ms,
			distance_m, calories_kcal, heart_rate_bpm, steps, cadence, pace_min_per_km,
			route_polyline
		FROM workout_sessions
		WHERE session_id = $1
	`

	var (
		session    Session
		workoutTyp string
		durationMs int64
		route      *string
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&workoutTyp,
		&session.StartTime,
		&session.EndTime,
		&durationMs,
		&session.Distance,
		&session.Calories,
		&session.HeartRate,
		&session.Steps,
		&session.Cadence,
		&session.Pace,
		&route,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	session.Type = healthdata.WorkoutType(workoutTyp)
	session.State = StateEnded
	session.Duration = time.Duration(durationMs) * time.Millisecond
	if route != nil {
		if session.Route, err = healthdata.DecodeRoute(*route); err != nil {
			return nil, fmt.Errorf("decoding route of workout %s: %w", id, err)
		}
	}
	return &session, nil
}

// routePolyline returns the encoded route, or nil to store NULL.
func routePolyline(route []healthdata.RoutePoint) *string {
	if len(route) == 0 {
		return nil
	}
	encoded := healthdata.EncodeRoute(route)
	return &encoded
}
