package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultSlowQueryThreshold = 200 * time.Millisecond
	defaultPoolStatsInterval  = 15 * time.Second
)

type queryStartKey struct{}

type registerFunc func(name string, fn func(*gorm.DB)) error

// gormHook is one GORM processor with the SQL verb it executes; an empty
// verb is read from the statement
type gormHook struct {
	name   string
	verb   string
	before registerFunc
	after  registerFunc
}

// after hooks are ordered ahead of otelgorm's own, which ends the span
func gormHooks(db *gorm.DB) []gormHook {
	cb := db.Callback()
	return []gormHook{
		{"create", "INSERT", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Before("otel:after_create").Register},
		{"query", "SELECT", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Before("otel:after_query").Register},
		{"update", "UPDATE", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Before("otel:after_update").Register},
		{"delete", "DELETE", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Before("otel:after_delete").Register},
		{"row", "", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Before("otel:after_row").Register},
		{"raw", "", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Before("otel:after_raw").Register},
	}
}

// registerTimedCallbacks stamps the start time before every operation and
// calls after with the elapsed time once it completes
func registerTimedCallbacks(db *gorm.DB, prefix string, after func(db *gorm.DB, verb string, elapsed time.Duration)) error {
	stamp := func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, queryStartKey{}, time.Now())
	}

	for _, hook := range gormHooks(db) {
		verb := hook.verb
		if err := hook.before(prefix+":before_"+hook.name, stamp); err != nil {
			return err
		}
		if err := hook.after(prefix+":after_"+hook.name, func(db *gorm.DB) {
			var elapsed time.Duration
			if db.Statement.Context != nil {
				if start, ok := db.Statement.Context.Value(queryStartKey{}).(time.Time); ok {
					elapsed = time.Since(start)
				}
			}
			op := verb
			if op == "" {
				op = detectOperationType(db.Statement.SQL.String())
			}
			after(db, op, elapsed)
		}); err != nil {
			return err
		}
	}
	return nil
}

func detectOperationType(statement string) string {
	statement = strings.ToUpper(strings.TrimSpace(statement))
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(statement, verb) {
			return verb
		}
	}
	if strings.HasPrefix(statement, "WITH") {
		return "SELECT"
	}
	return "OTHER"
}

// DBTracingConfig configures database spans
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // Include bound variables in spans; development only
	SlowQueryThresh time.Duration
	DBSystem        string
}

// RegisterDBTracing installs otelgorm and annotates spans with row counts,
// failures and a slow_query flag
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = defaultSlowQueryThreshold
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := registerTimedCallbacks(db, "otel_span", func(db *gorm.DB, _ string, elapsed time.Duration) {
		annotateSpan(db, elapsed, cfg.SlowQueryThresh)
	}); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh))
	return nil
}

func annotateSpan(db *gorm.DB, elapsed, slowThreshold time.Duration) {
	if db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
	if elapsed > slowThreshold {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}

// DBMetricsConfig configures query and pool metrics
type DBMetricsConfig struct {
	SlowQueryThreshold time.Duration
	PoolStatsInterval  time.Duration
}

// DBMetrics records query counts and latency per SQL verb and samples the
// connection pool
type DBMetrics struct {
	poolConnections    *Gauge
	poolConnectionsMax *Gauge
	queryTotal         *Counter
	queryErrors        *Counter
	queryDuration      *Histogram
	slowQueryTotal     *Counter

	config   DBMetricsConfig
	logger   *zap.Logger
	sqlDB    *sql.DB
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDBMetrics registers the database instruments on meter
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = defaultSlowQueryThreshold
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = defaultPoolStatsInterval
	}

	m := &DBMetrics{config: cfg, logger: logger, stopCh: make(chan struct{})}

	in := NewInstruments(meter)
	m.poolConnections = in.Gauge("db_pool_connections", "Pool connections by state", "{connection}")
	m.poolConnectionsMax = in.Gauge("db_pool_connections_max", "Pool size limit", "{connection}")
	m.queryTotal = in.Counter("db_query_total", "Queries by SQL verb", "{query}")
	m.queryErrors = in.Counter("db_query_errors_total", "Failed queries by SQL verb", "{query}")
	m.queryDuration = in.Histogram("db_query_duration_seconds", "Query latency", "s", DBDurationBuckets...)
	m.slowQueryTotal = in.Counter("db_slow_query_total", "Queries slower than the threshold by table", "{query}")
	if err := in.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordQuery records one finished statement
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration, err error) {
	op := AttrDBOperation.String(operation)
	m.queryTotal.Inc(ctx, op)
	m.queryDuration.Observe(ctx, duration, op)

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		m.queryErrors.Inc(ctx, op)
	}
	if duration > m.config.SlowQueryThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// Instrument registers the query callbacks on db and remembers its pool
func (m *DBMetrics) Instrument(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	m.sqlDB = sqlDB

	return registerTimedCallbacks(db, "db_metrics", func(db *gorm.DB, verb string, elapsed time.Duration) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		m.RecordQuery(ctx, verb, db.Statement.Table, elapsed, db.Error)
	})
}

// StartPoolStatsCollection samples pool stats until Stop or ctx ends
func (m *DBMetrics) StartPoolStatsCollection(ctx context.Context) {
	if m.sqlDB == nil {
		m.logger.Warn("Cannot collect pool stats before Instrument")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.config.PoolStatsInterval)
		defer ticker.Stop()

		m.collectPoolStats(ctx)
		for {
			select {
			case <-ticker.C:
				m.collectPoolStats(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *DBMetrics) collectPoolStats(ctx context.Context) {
	stats := m.sqlDB.Stats()
	m.poolConnectionsMax.Record(ctx, int64(stats.MaxOpenConnections))
	m.poolConnections.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.poolConnections.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.poolConnections.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// Stop ends pool sampling; safe to call more than once
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	m.wg.Wait()
}
