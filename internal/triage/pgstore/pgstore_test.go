package pgstore_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umeed-health/umeed/internal/triage"
	"github.com/umeed-health/umeed/internal/triage/pgstore"
)

var visitCols = []string{
	"id", "member_id", "asha_id", "visit_type", "program_tag", "category",
	"vitals", "symptoms", "compliance", "risk_class", "risk_label", "priority_score",
	"referral_flag", "override_triggered", "prob_low", "prob_moderate", "prob_high",
	"visit_data", "created_at",
}

func newMockStore(t *testing.T) (*pgstore.Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS visits").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	s, err := pgstore.New(context.Background(), mock)
	require.NoError(t, err)
	return s, mock
}

func sampleVisit(id string) *triage.VisitRecord {
	return &triage.VisitRecord{
		ID:                id,
		MemberID:          "m-1",
		AshaID:            "asha-1",
		VisitType:         "home_visit",
		ProgramTag:        "umeed_triage",
		Category:          triage.CategoryPregnant,
		Vitals:            map[string]any{"systolic_bp": float64(190)},
		Symptoms:          map[string]any{"headache": float64(1)},
		Compliance:        nil,
		RiskClass:         triage.RiskHigh,
		RiskLabel:         "High",
		PriorityScore:     100,
		ReferralFlag:      true,
		OverrideTriggered: true,
		ProbLow:           0.7,
		ProbModerate:      0.2,
		ProbHigh:          0.1,
		VisitData:         triage.Record{"systolic_bp": float64(190), "trimester": float64(3)},
		CreatedAt:         time.Now().UTC(),
	}
}

func TestNew_SchemaError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS visits").WillReturnError(errors.New("permission denied"))

	_, err = pgstore.New(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply schema")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert(t *testing.T) {
	s, mock := newMockStore(t)
	v := sampleVisit("v-insert")
	stored := v.CreatedAt.Add(time.Millisecond)

	mock.ExpectQuery("INSERT INTO visits").
		WithArgs(
			v.ID, v.MemberID, v.AshaID, v.VisitType, v.ProgramTag, "pregnant",
			[]byte(`{"systolic_bp":190}`), []byte(`{"headache":1}`), []byte(`{}`),
			2, "High", 100, true, true, 0.7, 0.2, 0.1,
			pgxmock.AnyArg(), v.CreatedAt,
		).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(stored))

	ack, err := s.Insert(context.Background(), v)
	require.NoError(t, err)
	require.Len(t, ack.Rows, 1)
	assert.Equal(t, "v-insert", ack.Rows[0].ID)
	assert.Equal(t, stored, ack.Rows[0].CreatedAt)
	assert.NotEqual(t, stored, v.CreatedAt, "caller's record left untouched")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_Error(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO visits").WillReturnError(errors.New("duplicate key"))

	_, err := s.Insert(context.Background(), sampleVisit("v-dup"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "v-dup")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .+ FROM visits WHERE id = \\$1").
		WithArgs("v-get").
		WillReturnRows(pgxmock.NewRows(visitCols).AddRow(
			"v-get", "m-9", "asha-3", "home_visit", "umeed_triage", "child",
			[]byte(`{"weight":8.1}`), []byte(`{"convulsions":1}`), []byte(`{"missed_followups":3}`),
			2, "High", 95, true, true, 0.5, 0.3, 0.2,
			[]byte(`{"age_months":14,"convulsions":1}`), created,
		))

	got, ok, err := s.Get(context.Background(), "v-get")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, triage.CategoryChild, got.Category)
	assert.Equal(t, triage.RiskHigh, got.RiskClass)
	assert.Equal(t, 95, got.PriorityScore)
	assert.Equal(t, 8.1, got.Vitals["weight"])
	assert.Equal(t, float64(3), got.Compliance["missed_followups"])
	assert.Equal(t, float64(14), got.VisitData.Number("age_months"))
	assert.Equal(t, created, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM visits").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(visitCols))

	got, ok, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_BadJSON(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM visits").
		WithArgs("v-bad").
		WillReturnRows(pgxmock.NewRows(visitCols).AddRow(
			"v-bad", "m", "a", "home_visit", "umeed_triage", "general",
			[]byte(`not json`), []byte(`{}`), []byte(`{}`),
			0, "Low", 10, false, false, 1.0, 0.0, 0.0,
			[]byte(`{}`), time.Now(),
		))

	_, _, err := s.Get(context.Background(), "v-bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vitals")
}

// Integration test against a real database, gated on UMEED_TEST_DATABASE_URL.
func TestInsertAndGet_Postgres(t *testing.T) {
	dsn := os.Getenv("UMEED_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("UMEED_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s, err := pgstore.New(ctx, pool)
	require.NoError(t, err)

	id := ulid.Make().String()
	v := sampleVisit(id)
	v.CreatedAt = time.Now().Truncate(time.Microsecond).UTC()

	_, err = s.Insert(ctx, v)
	require.NoError(t, err)

	got, ok, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, v.MemberID, got.MemberID)
	assert.Equal(t, v.RiskClass, got.RiskClass)
	assert.Equal(t, v.ReferralFlag, got.ReferralFlag)
	assert.Equal(t, float64(190), got.Vitals["systolic_bp"])
	assert.Empty(t, got.Compliance)
	assert.True(t, v.CreatedAt.Equal(got.CreatedAt))

	_, err = s.Insert(ctx, v)
	assert.Error(t, err, "duplicate id must be rejected")
}
