package triage

import (
	"context"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/linnemanlabs/go-core/log"
)

// DefaultBatchConcurrency bounds parallel pipeline runs in PredictBatch.
const DefaultBatchConcurrency = 4

// VisitRequest is one home visit submitted for triage and storage.
type VisitRequest struct {
	AshaID   string
	MemberID string
	Record   Record
}

// VisitOutcome is the result of RecordVisit. Triage is set whenever the
// pipeline ran, even if the store insert failed.
type VisitOutcome struct {
	Visit  *VisitRecord
	Triage *Result
	Ack    *Ack
}

// BatchItem is the per-record outcome of PredictBatch.
type BatchItem struct {
	Index  int     `json:"index"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Service is the business boundary for triage operations.
type Service struct {
	store       Store
	engine      *Engine
	logger      log.Logger
	metrics     *Metrics
	notifier    Notifier
	concurrency int
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithBatchConcurrency sets the number of parallel runs in PredictBatch.
func WithBatchConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService creates a new triage service. metrics and notifier may be nil.
func NewService(store Store, engine *Engine, logger log.Logger, metrics *Metrics, notifier Notifier, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	s := &Service{
		store:       store,
		engine:      engine,
		logger:      logger,
		metrics:     metrics,
		notifier:    notifier,
		concurrency: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predict runs the triage pipeline without persisting anything.
func (s *Service) Predict(ctx context.Context, rec Record) (*Result, error) {
	return s.engine.Predict(ctx, rec)
}

// PredictBatch runs independent pipeline invocations concurrently. A failing
// record is reported in its BatchItem and does not stop the others.
func (s *Service) PredictBatch(ctx context.Context, recs []Record) []BatchItem {
	items := make([]BatchItem, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	var mu sync.Mutex
	var failed int

	for i, rec := range recs {
		g.Go(func() error {
			items[i].Index = i
			res, err := s.engine.Predict(gctx, rec)
			if err != nil {
				items[i].Error = err.Error()
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			items[i].Result = res
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info(ctx, "batch triage complete", "records", len(recs), "failed", failed)
	return items
}

// RecordVisit triages the record and stores the combined visit. On a store
// failure the returned outcome still carries the triage result.
func (s *Service) RecordVisit(ctx context.Context, req *VisitRequest) (*VisitOutcome, error) {
	res, err := s.engine.Predict(ctx, req.Record)
	if err != nil {
		s.observeVisit("triage_error")
		return nil, err
	}

	id := ulid.Make().String()
	visit := NewVisitRecord(id, req.AshaID, req.MemberID, req.Record, res)
	out := &VisitOutcome{Visit: visit, Triage: res}

	L := s.logger.With("visit_id", id, "member_id", req.MemberID, "asha_id", req.AshaID)

	ack, err := s.store.Insert(ctx, visit)
	if err != nil {
		L.Error(ctx, err, "failed to persist visit")
		s.observeVisit("store_error")
		return out, fmt.Errorf("store visit %s: %w", id, err)
	}
	out.Ack = ack
	s.observeVisit("stored")

	L.Info(ctx, "visit recorded",
		"category", res.Category,
		"risk_class", int(res.RiskClass),
		"priority_score", res.PriorityScore,
		"referral", visit.ReferralFlag,
	)

	if visit.ReferralFlag && s.notifier != nil {
		if err := s.notifier.Send(ctx, visit); err != nil {
			L.Warn(ctx, "referral notification failed", "error", err)
		}
	}

	return out, nil
}

// GetVisit retrieves a stored visit by ID.
func (s *Service) GetVisit(ctx context.Context, id string) (*VisitRecord, bool, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) observeVisit(result string) {
	if s.metrics != nil {
		s.metrics.VisitsTotal.WithLabelValues(result).Inc()
	}
}
