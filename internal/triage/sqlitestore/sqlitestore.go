// Package sqlitestore provides a SQLite implementation of triage.Store for
// single-node deployments.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"github.com/umeed-health/umeed/internal/triage"
)

var tracer = otel.Tracer("github.com/umeed-health/umeed/internal/triage/sqlitestore")

const migration = `
CREATE TABLE IF NOT EXISTS visits (
	id                 TEXT PRIMARY KEY,
	member_id          TEXT NOT NULL,
	asha_id            TEXT NOT NULL,
	visit_type         TEXT NOT NULL,
	program_tag        TEXT NOT NULL,
	category           TEXT NOT NULL,
	vitals             TEXT NOT NULL,
	symptoms           TEXT NOT NULL,
	compliance         TEXT NOT NULL,
	risk_class         INTEGER NOT NULL,
	risk_label         TEXT NOT NULL,
	priority_score     INTEGER NOT NULL,
	referral_flag      INTEGER NOT NULL,
	override_triggered INTEGER NOT NULL,
	prob_low           REAL NOT NULL,
	prob_moderate      REAL NOT NULL,
	prob_high          REAL NOT NULL,
	visit_data         TEXT NOT NULL,
	created_at         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_visits_member_id ON visits(member_id);
CREATE INDEX IF NOT EXISTS idx_visits_referral ON visits(referral_flag, priority_score);
`

// Store persists visit records in a SQLite database.
type Store struct {
	db *sql.DB
}

// New opens or creates a SQLite database at path and applies the schema.
func New(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.ExecContext(ctx, migration); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert writes one visit row.
func (s *Store) Insert(ctx context.Context, v *triage.VisitRecord) (*triage.Ack, error) {
	ctx, span := tracer.Start(ctx, "sqlitestore.Insert", trace.WithAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	if err := s.insert(ctx, v); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &triage.Ack{Rows: []triage.VisitRecord{*v}}, nil
}

func (s *Store) insert(ctx context.Context, v *triage.VisitRecord) error {
	sections := make([]string, 0, 4)
	for _, m := range []any{v.Vitals, v.Symptoms, v.Compliance, v.VisitData} {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal visit %s: %w", v.ID, err)
		}
		sections = append(sections, string(b))
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO visits (
		id, member_id, asha_id, visit_type, program_tag, category,
		vitals, symptoms, compliance, risk_class, risk_label, priority_score,
		referral_flag, override_triggered, prob_low, prob_moderate, prob_high,
		visit_data, created_at
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		v.ID, v.MemberID, v.AshaID, v.VisitType, v.ProgramTag, string(v.Category),
		sections[0], sections[1], sections[2], int(v.RiskClass), v.RiskLabel, v.PriorityScore,
		v.ReferralFlag, v.OverrideTriggered, v.ProbLow, v.ProbModerate, v.ProbHigh,
		sections[3], v.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert visit %s: %w", v.ID, err)
	}
	return nil
}

// Get retrieves a visit by ID.
func (s *Store) Get(ctx context.Context, id string) (*triage.VisitRecord, bool, error) {
	ctx, span := tracer.Start(ctx, "sqlitestore.Get", trace.WithAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var (
		v                                           triage.VisitRecord
		category, createdAt                         string
		riskClass                                   int
		vitals, symptoms, compliance, visitDataJSON string
	)
	err := s.db.QueryRowContext(ctx, `SELECT
		id, member_id, asha_id, visit_type, program_tag, category,
		vitals, symptoms, compliance, risk_class, risk_label, priority_score,
		referral_flag, override_triggered, prob_low, prob_moderate, prob_high,
		visit_data, created_at
		FROM visits WHERE id = ?`, id).Scan(
		&v.ID, &v.MemberID, &v.AshaID, &v.VisitType, &v.ProgramTag, &category,
		&vitals, &symptoms, &compliance, &riskClass, &v.RiskLabel, &v.PriorityScore,
		&v.ReferralFlag, &v.OverrideTriggered, &v.ProbLow, &v.ProbModerate, &v.ProbHigh,
		&visitDataJSON, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("get visit %s: %w", id, err)
	}

	v.Category = triage.Category(category)
	v.RiskClass = triage.RiskClass(riskClass)
	if v.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, false, fmt.Errorf("parse created_at: %w", err)
	}
	for _, f := range []struct {
		src string
		dst any
	}{
		{vitals, &v.Vitals},
		{symptoms, &v.Symptoms},
		{compliance, &v.Compliance},
		{visitDataJSON, &v.VisitData},
	} {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return nil, false, fmt.Errorf("unmarshal visit %s: %w", id, err)
		}
	}
	return &v, true, nil
}
