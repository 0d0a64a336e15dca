package ltcs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store is the read-only query surface the monitor polls. Implementations
// must be safe to call from the single polling goroutine; the monitor
// guarantees one poll in flight at a time.
type Store interface {
	// HealthRows returns the per-component last-update timestamps.
	HealthRows(ctx context.Context) ([]HealthRow, error)
	// ActiveCollisions returns windows currently registered as collisions
	// for the named laser telescope, ordered by start time.
	ActiveCollisions(ctx context.Context, laser string) ([]Event, error)
	// SimPredictions returns laser-on preview predictions, ordered by
	// start time. The upstream table matches on a name suffix.
	SimPredictions(ctx context.Context, laser string) ([]Event, error)
	// Predictions returns firm future predictions (laser ON-SKY), ordered
	// by start time.
	Predictions(ctx context.Context, laser string) ([]Event, error)
}

// Pointing is another telescope's published pointing and laser state.
type Pointing struct {
	Name          string  `json:"name"`
	RADeg         float64 `json:"ra_deg"`
	DecDeg        float64 `json:"dec_deg"`
	Equinox       float64 `json:"equinox"`
	LaserImpacted bool    `json:"laser_impacted"`
	State         string  `json:"state"`
}

// SQLStore queries the LTCS database through a pgx connection pool. Every
// query runs under its own timeout so a wedged server cannot block the
// polling goroutine indefinitely.
type SQLStore struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
	logger       *zap.Logger
}

// DefaultQueryTimeout bounds each LTCS query.
const DefaultQueryTimeout = 5 * time.Second

// NewSQLStore connects a store to the LTCS database.
func NewSQLStore(ctx context.Context, connURL string, queryTimeout time.Duration, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}

	cfg, err := pgxpool.ParseConfig(connURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse LTCS database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LTCS database: %w", err)
	}

	return &SQLStore{pool: pool, queryTimeout: queryTimeout, logger: logger}, nil
}

// Close releases the connection pool.
func (s *SQLStore) Close() {
	s.pool.Close()
}

// Ping verifies database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return s.pool.Ping(ctx)
}

// HealthRows implements Store.
func (s *SQLStore) HealthRows(ctx context.Context) ([]HealthRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT component, timestamp FROM system_health ORDER BY component`)
	if err != nil {
		return nil, fmt.Errorf("failed to query system_health: %w", err)
	}
	defer rows.Close()

	var out []HealthRow
	for rows.Next() {
		var hr HealthRow
		if err := rows.Scan(&hr.Component, &hr.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan system_health row: %w", err)
		}
		out = append(out, hr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating system_health rows: %w", err)
	}
	return out, nil
}

// ActiveCollisions implements Store.
func (s *SQLStore) ActiveCollisions(ctx context.Context, laser string) ([]Event, error) {
	return s.queryEvents(ctx, "collisions",
		`SELECT laser, involved_scope, start_time, end_time, laser_has_priority
		 FROM collisions WHERE laser = $1 ORDER BY start_time`, laser)
}

// SimPredictions implements Store.
func (s *SQLStore) SimPredictions(ctx context.Context, laser string) ([]Event, error) {
	return s.queryEvents(ctx, "sim_predictions",
		`SELECT laser, involved_scope, start_time, end_time, laser_has_priority
		 FROM sim_predictions WHERE laser LIKE '%' || $1 ORDER BY start_time`, laser)
}

// Predictions implements Store.
func (s *SQLStore) Predictions(ctx context.Context, laser string) ([]Event, error) {
	return s.queryEvents(ctx, "predictions",
		`SELECT laser, involved_scope, start_time, end_time, laser_has_priority
		 FROM predictions WHERE laser = $1 ORDER BY start_time`, laser)
}

func (s *SQLStore) queryEvents(ctx context.Context, table, query, laser string) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, laser)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			laserName string
			ev        Event
			priority  int
		)
		if err := rows.Scan(&laserName, &ev.Telescope, &ev.StartSSE, &ev.StopSSE, &priority); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		ev.LaserHasPriority = priority == 1
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", table, err)
	}

	s.logger.Debug("LTCS query returned",
		zap.String("table", table),
		zap.Int("rows", len(out)))
	return out, nil
}

// Pointings returns the published pointing, laser sensitivity and data
// freshness state of every telescope on the summit.
func (s *SQLStore) Pointings(ctx context.Context) (map[string]Pointing, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	out := make(map[string]Pointing)

	rows, err := s.pool.Query(ctx, `SELECT scope, ra, decl, equinox FROM pointing`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pointing: %w", err)
	}
	for rows.Next() {
		var (
			p     Pointing
			raHrs float64
		)
		if err := rows.Scan(&p.Name, &raHrs, &p.DecDeg, &p.Equinox); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan pointing row: %w", err)
		}
		// upstream stores RA in hours
		p.RADeg = raHrs * 15.0
		out[p.Name] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pointing rows: %w", err)
	}

	rows, err = s.pool.Query(ctx, `SELECT scope, laser_impacted FROM laser_sensitivity`)
	if err != nil {
		return nil, fmt.Errorf("failed to query laser_sensitivity: %w", err)
	}
	for rows.Next() {
		var (
			scope    string
			impacted bool
		)
		if err := rows.Scan(&scope, &impacted); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan laser_sensitivity row: %w", err)
		}
		if p, ok := out[scope]; ok {
			p.LaserImpacted = impacted
			out[scope] = p
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating laser_sensitivity rows: %w", err)
	}

	rows, err = s.pool.Query(ctx, `SELECT scope, state FROM url_states`)
	if err != nil {
		return nil, fmt.Errorf("failed to query url_states: %w", err)
	}
	for rows.Next() {
		var scope, state string
		if err := rows.Scan(&scope, &state); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan url_states row: %w", err)
		}
		if p, ok := out[scope]; ok {
			p.State = state
			out[scope] = p
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating url_states rows: %w", err)
	}

	return out, nil
}

var _ Store = (*SQLStore)(nil)
