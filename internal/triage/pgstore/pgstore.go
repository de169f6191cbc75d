// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/umeed-health/umeed/internal/triage"
)

var tracer = otel.Tracer("github.com/umeed-health/umeed/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists visit records in PostgreSQL.
type Store struct {
	db DB
}

// New applies the schema and returns a ready Store. The caller owns db.
func New(ctx context.Context, db DB) (*Store, error) {
	if _, err := db.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

const visitColumns = `id, member_id, asha_id, visit_type, program_tag, category,
	vitals, symptoms, compliance, risk_class, risk_label, priority_score,
	referral_flag, override_triggered, prob_low, prob_moderate, prob_high,
	visit_data, created_at`

// Insert writes one visit row and acknowledges it with the stored row.
func (s *Store) Insert(ctx context.Context, v *triage.VisitRecord) (*triage.Ack, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Insert", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	row, err := s.insert(ctx, v)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &triage.Ack{Rows: []triage.VisitRecord{*row}}, nil
}

// Get retrieves a visit by ID.
func (s *Store) Get(ctx context.Context, id string) (*triage.VisitRecord, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + visitColumns + ` FROM visits WHERE id = $1`
	v, err := scanVisit(s.db.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if v == nil {
		return nil, false, nil
	}
	return v, true, nil
}

func (s *Store) insert(ctx context.Context, v *triage.VisitRecord) (*triage.VisitRecord, error) {
	vitals, symptoms, compliance, data, err := marshalSections(v)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO visits (` + visitColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	RETURNING created_at`

	cp := *v
	err = s.db.QueryRow(ctx, query,
		v.ID, v.MemberID, v.AshaID, v.VisitType, v.ProgramTag, string(v.Category),
		vitals, symptoms, compliance, int(v.RiskClass), v.RiskLabel, v.PriorityScore,
		v.ReferralFlag, v.OverrideTriggered, v.ProbLow, v.ProbModerate, v.ProbHigh,
		data, v.CreatedAt,
	).Scan(&cp.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert visit %s: %w", v.ID, err)
	}
	return &cp, nil
}

func marshalSections(v *triage.VisitRecord) (vitals, symptoms, compliance, data []byte, err error) {
	if vitals, err = marshalObject(v.Vitals); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal vitals: %w", err)
	}
	if symptoms, err = marshalObject(v.Symptoms); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal symptoms: %w", err)
	}
	if compliance, err = marshalObject(v.Compliance); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal compliance: %w", err)
	}
	if data, err = json.Marshal(v.VisitData); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal visit data: %w", err)
	}
	return vitals, symptoms, compliance, data, nil
}

// marshalObject encodes m as a JSON object; nil maps become {}.
func marshalObject(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// scanVisit scans a single row into a triage.VisitRecord.
// Returns (nil, nil) when no row is found.
func scanVisit(row pgx.Row) (*triage.VisitRecord, error) {
	var (
		v                                      triage.VisitRecord
		category                               string
		riskClass                              int
		vitals, symptoms, compliance, dataJSON []byte
	)
	err := row.Scan(
		&v.ID, &v.MemberID, &v.AshaID, &v.VisitType, &v.ProgramTag, &category,
		&vitals, &symptoms, &compliance, &riskClass, &v.RiskLabel, &v.PriorityScore,
		&v.ReferralFlag, &v.OverrideTriggered, &v.ProbLow, &v.ProbModerate, &v.ProbHigh,
		&dataJSON, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan: %w", err)
	}
	v.Category = triage.Category(category)
	v.RiskClass = triage.RiskClass(riskClass)

	for _, f := range []struct {
		name string
		src  []byte
		dst  any
	}{
		{"vitals", vitals, &v.Vitals},
		{"symptoms", symptoms, &v.Symptoms},
		{"compliance", compliance, &v.Compliance},
		{"visit_data", dataJSON, &v.VisitData},
	} {
		if err := json.Unmarshal(f.src, f.dst); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", f.name, err)
		}
	}
	return &v, nil
}
