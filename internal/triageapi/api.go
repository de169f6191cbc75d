// Package triageapi exposes the triage pipeline and visit recording over HTTP.
package triageapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/umeed-health/umeed/internal/triage"
)

const (
	maxBodyBytes    = 1 << 20
	maxBatchRecords = 500
)

// TriageService defines the business operations triageapi needs.
type TriageService interface {
	Predict(ctx context.Context, rec triage.Record) (*triage.Result, error)
	PredictBatch(ctx context.Context, recs []triage.Record) []triage.BatchItem
	RecordVisit(ctx context.Context, req *triage.VisitRequest) (*triage.VisitOutcome, error)
	GetVisit(ctx context.Context, id string) (*triage.VisitRecord, bool, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/triage", a.handlePredict)
		r.Post("/triage/batch", a.handlePredictBatch)
		r.Post("/visits", a.handleRecordVisit)
		r.Get("/visits/{id}", a.handleGetVisit)
	})
}

// decodeJSON reads a size-limited JSON body into dst. Numbers are kept as
// json.Number so stored visit data round-trips unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
