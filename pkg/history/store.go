package history

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
)

// OpenFunc builds a new connection pool. It is called at startup and on
// every pool recreation with the same driver and DSN.
type OpenFunc func(driver, dsn string) (*sql.DB, error)

// Hooks receives pool health notifications, typically for metrics.
type Hooks struct {
	OnProbeFailure func(err error)
	OnRecovered    func(elapsed time.Duration)
	OnUnavailable  func(op string)
}

// Store implements ports.HistoryStore on a self-healing database/sql pool.
type Store struct {
	dialect Dialect
	dsn     string
	open    OpenFunc

	pool       atomic.Pointer[sql.DB]
	recovering atomic.Bool
	recoveries atomic.Int64
	nudge      chan struct{}

	interval       time.Duration
	acquireTimeout time.Duration
	opTimeout      time.Duration
	maxOpen        int
	maxIdle        int
	maxLifetime    time.Duration

	hooks  Hooks
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithOpener overrides how pools are built. Defaults to sql.Open.
func WithOpener(open OpenFunc) Option {
	return func(s *Store) {
		s.open = open
	}
}

// WithHealthInterval sets the probe interval of Monitor. Non-positive values
// keep the default.
func WithHealthInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithAcquireTimeout bounds how long an operation or probe waits for a connection.
func WithAcquireTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.acquireTimeout = d
		}
	}
}

// WithOperationTimeout bounds how long a single statement may run once a
// connection is held. A stalled statement fails with ErrUnavailable.
// Non-positive values keep the default.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// WithPoolSize sets the open and idle connection limits and the connection lifetime.
func WithPoolSize(maxOpen, maxIdle int, maxLifetime time.Duration) Option {
	return func(s *Store) {
		s.maxOpen = maxOpen
		s.maxIdle = maxIdle
		s.maxLifetime = maxLifetime
	}
}

// WithHooks registers pool health callbacks.
func WithHooks(h Hooks) Option {
	return func(s *Store) {
		s.hooks = h
	}
}

// WithLogger configures a logger for the Store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open builds the pool, bootstraps the schema and returns a ready Store.
// Monitor must be started separately.
func Open(ctx context.Context, dialect Dialect, dsn string, opts ...Option) (*Store, error) {
	s := &Store{
		dialect:        dialect,
		dsn:            dsn,
		open:           sql.Open,
		nudge:          make(chan struct{}, 1),
		interval:       30 * time.Second,
		acquireTimeout: 2 * time.Second,
		opTimeout:      5 * time.Second,
		maxOpen:        8,
		maxIdle:        4,
		maxLifetime:    30 * time.Minute,
		logger:         logging.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := s.newPool(ctx)
	if err != nil {
		return nil, err
	}
	s.pool.Store(db)
	return s, nil
}

// newPool opens a pool and runs the schema bootstrap on it.
func (s *Store) newPool(ctx context.Context) (*sql.DB, error) {
	db, err := s.open(s.dialect.Driver, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s pool: %v", domain.ErrUnavailable, s.dialect.Name, err)
	}
	db.SetMaxOpenConns(s.maxOpen)
	db.SetMaxIdleConns(s.maxIdle)
	db.SetConnMaxLifetime(s.maxLifetime)

	if err := s.ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the current pool.
func (s *Store) Close() error {
	if db := s.pool.Swap(nil); db != nil {
		return db.Close()
	}
	return nil
}

// Dialect returns the dialect the store was opened with.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Recoveries returns how many times the pool has been replaced.
func (s *Store) Recoveries() int64 {
	return s.recoveries.Load()
}

// EnsureSchema creates the history table when it does not exist. It is idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	db, err := s.current("ensure_schema")
	if err != nil {
		return err
	}
	return s.ensureSchema(ctx, db)
}

func (s *Store) ensureSchema(ctx context.Context, db *sql.DB) error {
	conn, release, err := s.acquire(ctx, db)
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var n int
	if err := conn.QueryRowContext(ctx, s.dialect.tableExists).Scan(&n); err != nil {
		return s.classify("ensure_schema", err)
	}
	if n > 0 {
		return nil
	}

	s.logger.Info("Creating history table", "dialect", s.dialect.Name)
	for _, stmt := range s.dialect.schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return s.classify("ensure_schema", err)
		}
	}
	return nil
}

// Append inserts rec and populates its ID and CreatedAt.
// The row is committed when Append returns nil.
func (s *Store) Append(ctx context.Context, rec *domain.HistoryRecord) error {
	opts := rec.Options
	if opts == nil {
		opts = map[string]any{}
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("failed to encode history options: %w", err)
	}

	db, err := s.current("append")
	if err != nil {
		return err
	}
	conn, release, err := s.acquire(ctx, db)
	if err != nil {
		return err
	}
	defer release()

	created := rec.CreatedAt
	if created.IsZero() {
		created = s.now().UTC()
	}

	qctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var id int64
	err = conn.QueryRowContext(qctx, s.dialect.insert,
		rec.Ref,
		rec.Keyword,
		rec.Answer,
		rec.RefSerialize,
		rec.Phone,
		string(raw),
		created,
	).Scan(&id)
	if err != nil {
		return s.classify("append", err)
	}

	rec.ID = id
	rec.CreatedAt = created
	return nil
}

// LatestFor returns the most recent record for phone, or nil when there is none.
func (s *Store) LatestFor(ctx context.Context, phone string) (*domain.HistoryRecord, error) {
	db, err := s.current("latest_for")
	if err != nil {
		return nil, err
	}
	conn, release, err := s.acquire(ctx, db)
	if err != nil {
		return nil, err
	}
	defer release()

	qctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	var (
		rec     domain.HistoryRecord
		options string
		created any
	)
	err = conn.QueryRowContext(qctx, s.dialect.latest, phone).Scan(
		&rec.ID,
		&rec.Ref,
		&rec.Keyword,
		&rec.Answer,
		&rec.RefSerialize,
		&rec.Phone,
		&options,
		&created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, s.classify("latest_for", err)
	}

	if err := json.Unmarshal([]byte(options), &rec.Options); err != nil {
		return nil, fmt.Errorf("%w: history %d options: %v", domain.ErrMalformed, rec.ID, err)
	}
	if rec.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("%w: history %d: %v", domain.ErrMalformed, rec.ID, err)
	}
	return &rec, nil
}

// current returns the live pool, or ErrUnavailable while it is being replaced.
func (s *Store) current(op string) (*sql.DB, error) {
	db := s.pool.Load()
	if db == nil || s.recovering.Load() {
		s.unavailable(op)
		return nil, fmt.Errorf("%w: connection pool is being recreated", domain.ErrUnavailable)
	}
	return db, nil
}

// acquire checks out a dedicated connection, bounded by the acquire timeout.
// The returned release func must be called on every path.
func (s *Store) acquire(ctx context.Context, db *sql.DB) (*sql.Conn, func(), error) {
	actx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	defer cancel()

	conn, err := db.Conn(actx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		s.unavailable("acquire")
		s.requestProbe()
		return nil, nil, fmt.Errorf("%w: acquire connection: %v", domain.ErrUnavailable, err)
	}
	return conn, func() {
		if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			s.logger.Warn("Failed to release history connection", "err", err)
		}
	}, nil
}

// classify maps connectivity failures to ErrUnavailable and asks the monitor
// to probe the pool. Other failures are returned wrapped as they are.
func (s *Store) classify(op string, err error) error {
	if isConnError(err) {
		s.unavailable(op)
		s.requestProbe()
		return fmt.Errorf("%w: %s: %v", domain.ErrUnavailable, op, err)
	}
	return fmt.Errorf("history %s failed: %w", op, err)
}

func (s *Store) unavailable(op string) {
	if s.hooks.OnUnavailable != nil {
		s.hooks.OnUnavailable(op)
	}
}

func isConnError(err error) bool {
	var netErr net.Error
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		return true
	}
	// database/sql does not export its closed-pool error.
	return strings.Contains(err.Error(), "sql: database is closed")
}
