package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/taxpadi/taxpadi/internal/engine"
	"github.com/taxpadi/taxpadi/internal/feedback"
	"github.com/taxpadi/taxpadi/internal/model"
	"github.com/taxpadi/taxpadi/internal/service"
	"github.com/taxpadi/taxpadi/internal/signal"
)

// ClassifyRequest is the JSON body for POST /api/classify.
type ClassifyRequest struct {
	TenantID      string  `json:"tenant_id"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Narration     string  `json:"narration"`
	Direction     string  `json:"direction"`
	Date          string  `json:"date,omitempty"`
	Amount        float64 `json:"amount"`
}

// ClassifyResponse is the JSON answer for POST /api/classify.
type ClassifyResponse struct {
	Category          string                `json:"category"`
	Confidence        float64               `json:"confidence"`
	Provenance        string                `json:"provenance"`
	Reasoning         string                `json:"reasoning,omitempty"`
	NeedsConfirmation bool                  `json:"needs_confirmation"`
	SignalFlags       model.SignalFlags     `json:"signal_flags"`
	TaxImplications   model.TaxImplications `json:"tax_implications"`
}

// ClassifyHandler classifies a single transaction.
func ClassifyHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClassifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		txn := model.Transaction{
			ID:        req.TransactionID,
			TenantID:  req.TenantID,
			Narration: req.Narration,
			Amount:    req.Amount,
			Direction: model.TransactionDirection(req.Direction),
		}
		if req.Date != "" {
			if date, err := time.Parse("2006-01-02", req.Date); err == nil {
				txn.Date = date
			}
		}

		if err := txn.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		result := eng.Classify(r.Context(), txn)

		writeJSON(w, http.StatusOK, ClassifyResponse{
			Category:          result.Category,
			Confidence:        result.Confidence,
			Provenance:        string(result.Provenance),
			Reasoning:         result.Reasoning,
			NeedsConfirmation: result.NeedsConfirmation,
			SignalFlags:       result.SignalFlags,
			TaxImplications:   result.TaxImplications,
		})
	}
}

// FeedbackRequest is the JSON body for POST /api/feedback.
type FeedbackRequest struct {
	TenantID          string  `json:"tenant_id"`
	TransactionID     string  `json:"transaction_id,omitempty"`
	Narration         string  `json:"narration"`
	CorrectedCategory string  `json:"corrected_category"`
	PredictedCategory string  `json:"predicted_category"`
	Provenance        string  `json:"predicted_provenance,omitempty"`
	Confidence        float64 `json:"predicted_confidence"`
	Amount            float64 `json:"amount"`
}

// FeedbackHandler records a user correction. Signal flags are re-derived from
// the narration so the learned pattern carries the same channel prefix the
// classification path would have used.
func FeedbackHandler(recorder *feedback.Recorder, detector *signal.Detector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FeedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		if req.TenantID == "" {
			writeError(w, http.StatusBadRequest, "tenant_id is required")
			return
		}
		if req.CorrectedCategory == "" {
			writeError(w, http.StatusBadRequest, "corrected_category is required")
			return
		}

		prediction := model.ClassificationResult{
			Category:   req.PredictedCategory,
			Confidence: req.Confidence,
			Provenance: model.Provenance(req.Provenance),
		}

		// Validation happened above; a failure here is a persistence problem.
		record, err := recorder.RecordCorrection(r.Context(), prediction, feedback.Correction{
			TenantID:          req.TenantID,
			TransactionID:     req.TransactionID,
			Narration:         req.Narration,
			CorrectedCategory: req.CorrectedCategory,
			Flags:             detector.Detect(req.Narration, req.Amount),
		})
		if err != nil {
			slog.Error("failed to record correction", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to record correction")
			return
		}

		writeJSON(w, http.StatusCreated, record)
	}
}

// ListPatternsHandler returns a tenant's top learned patterns.
func ListPatternsHandler(store service.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.URL.Query().Get("tenant_id")
		if tenantID == "" {
			writeError(w, http.StatusBadRequest, "tenant_id is required")
			return
		}

		patterns, err := store.GetTopPatterns(r.Context(), tenantID, queryLimit(r, 50))
		if err != nil {
			slog.Error("failed to list patterns", "tenant_id", tenantID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list patterns")
			return
		}

		writeJSON(w, http.StatusOK, patterns)
	}
}

// UnconsumedFeedbackHandler returns feedback not yet drained by training.
func UnconsumedFeedbackHandler(store service.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.URL.Query().Get("tenant_id")
		if tenantID == "" {
			writeError(w, http.StatusBadRequest, "tenant_id is required")
			return
		}

		records, err := store.GetUnconsumedFeedback(r.Context(), tenantID, queryLimit(r, 100))
		if err != nil {
			slog.Error("failed to list feedback", "tenant_id", tenantID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list feedback")
			return
		}

		writeJSON(w, http.StatusOK, records)
	}
}

// ConsumeRequest is the JSON body for POST /api/feedback/consume.
type ConsumeRequest struct {
	BatchID string  `json:"batch_id"`
	IDs     []int64 `json:"ids"`
}

// ConsumeFeedbackHandler marks feedback records consumed under a batch ID.
func ConsumeFeedbackHandler(store service.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConsumeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.BatchID == "" {
			writeError(w, http.StatusBadRequest, "batch_id is required")
			return
		}

		if err := store.MarkFeedbackConsumed(r.Context(), req.BatchID, req.IDs); err != nil {
			slog.Error("failed to mark feedback consumed", "batch_id", req.BatchID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to mark feedback consumed")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"batch_id": req.BatchID,
			"marked":   len(req.IDs),
		})
	}
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
