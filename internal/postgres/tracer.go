package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/go-core/log"
)

type queryStartKey struct{}

type queryStart struct {
	sql   string
	op    string
	start time.Time
}

// Metrics holds the query latency histogram.
type Metrics struct {
	QueryDuration *prometheus.HistogramVec
}

// NewMetrics registers and returns database metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "umeed_db_query_duration_seconds",
			Help:    "Duration of visit store queries in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms .. ~4s
		}, []string{"operation", "route", "outcome"}),
	}
	reg.MustRegister(m.QueryDuration)
	return m
}

// queryTracer wraps another pgx.QueryTracer (otelpgx) and adds a structured
// log line and a latency observation for every query.
type queryTracer struct {
	inner   pgx.QueryTracer
	metrics *Metrics
}

func newQueryTracer(inner pgx.QueryTracer, metrics *Metrics) *queryTracer {
	return &queryTracer{inner: inner, metrics: metrics}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	// inner tracer opens its span first so ours nests under it
	if t.inner != nil {
		ctx = t.inner.TraceQueryStart(ctx, conn, data)
	}
	return context.WithValue(ctx, queryStartKey{}, queryStart{
		sql:   data.SQL,
		op:    operationName(data.SQL),
		start: time.Now(),
	})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	if t.inner != nil {
		t.inner.TraceQueryEnd(ctx, conn, data)
	}

	qs, _ := ctx.Value(queryStartKey{}).(queryStart)
	var dur time.Duration
	if !qs.start.IsZero() {
		dur = time.Since(qs.start)
	}

	outcome := "ok"
	if data.Err != nil {
		outcome = "error"
	}
	if t.metrics != nil && dur > 0 {
		t.metrics.QueryDuration.WithLabelValues(qs.op, routePattern(ctx), outcome).Observe(dur.Seconds())
	}

	fields := []any{
		"db.statement", compactSQL(qs.sql),
		"db.operation.name", qs.op,
		"db.duration", dur.Seconds(),
	}
	if tag := strings.TrimSpace(data.CommandTag.String()); tag != "" {
		fields = append(fields, "pg.command_tag", tag, "db.rows", data.CommandTag.RowsAffected())
	}

	L := log.FromContext(ctx)
	if L == nil {
		L = log.Nop()
	}
	if data.Err != nil {
		var pgErr *pgconn.PgError
		if errors.As(data.Err, &pgErr) {
			fields = append(fields, "db.error_code", pgErr.Code, "db.error_constraint", pgErr.ConstraintName)
		}
		L.Error(ctx, data.Err, "db query failed", fields...)
		return
	}
	L.Info(ctx, "db query", fields...)
}

// operationName returns the leading SQL keyword, upper-cased.
func operationName(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(fields[0])
}

// compactSQL collapses whitespace so multi-line statements log on one line.
func compactSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

func routePattern(ctx context.Context) string {
	if rc := chi.RouteContext(ctx); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "none"
}
