package triageapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/umeed-health/umeed/internal/triage"
)

type visitRequest struct {
	AshaID      string        `json:"asha_id"`
	MemberID    string        `json:"member_id"`
	PatientData triage.Record `json:"patient_data"`
}

type visitResponse struct {
	TriageResult *triage.Result       `json:"triage_result"`
	DBResponse   []triage.VisitRecord `json:"db_response,omitempty"`
	Error        string               `json:"error,omitempty"`
}

func (a *API) handleRecordVisit(w http.ResponseWriter, r *http.Request) {
	var req visitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	out, err := a.svc.RecordVisit(r.Context(), &triage.VisitRequest{
		AshaID:   req.AshaID,
		MemberID: req.MemberID,
		Record:   req.PatientData,
	})
	switch {
	case err != nil && (out == nil || out.Triage == nil):
		a.logger.Error(r.Context(), err, "visit triage failed", "member_id", req.MemberID)
		writeError(w, http.StatusInternalServerError, "triage failed")
		return
	case err != nil:
		// triaged but not stored: the caller still gets the assessment
		writeJSON(w, http.StatusBadGateway, visitResponse{
			TriageResult: out.Triage,
			Error:        "failed to store visit",
		})
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("umeed.visit.id", out.Visit.ID),
		attribute.Bool("umeed.visit.referral", out.Visit.ReferralFlag),
	)

	resp := visitResponse{TriageResult: out.Triage}
	if out.Ack != nil {
		resp.DBResponse = out.Ack.Rows
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleGetVisit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("umeed.visit.id", id))

	v, ok, err := a.svc.GetVisit(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get visit", "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	span.SetAttributes(attribute.Int("umeed.visit.risk_class", int(v.RiskClass)))

	writeJSON(w, http.StatusOK, v)
}
