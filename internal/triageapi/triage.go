package triageapi

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/umeed-health/umeed/internal/triage"
)

type batchRequest struct {
	Records []triage.Record `json:"records"`
}

type batchResponse struct {
	Results []triage.BatchItem `json:"results"`
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	var rec triage.Record
	if err := decodeJSON(w, r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	res, err := a.svc.Predict(r.Context(), rec)
	if err != nil {
		a.logger.Error(r.Context(), err, "triage failed")
		writeError(w, http.StatusInternalServerError, "triage failed")
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("umeed.triage.category", string(res.Category)),
		attribute.Int("umeed.triage.risk_class", int(res.RiskClass)),
	)

	writeJSON(w, http.StatusOK, res)
}

func (a *API) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if len(req.Records) > maxBatchRecords {
		writeError(w, http.StatusBadRequest, "too many records")
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.Int("umeed.triage.batch_size", len(req.Records)),
	)

	writeJSON(w, http.StatusOK, batchResponse{Results: a.svc.PredictBatch(r.Context(), req.Records)})
}
