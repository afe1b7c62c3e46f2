package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxpadi/taxpadi/internal/engine"
	"github.com/taxpadi/taxpadi/internal/feedback"
	"github.com/taxpadi/taxpadi/internal/llm"
	"github.com/taxpadi/taxpadi/internal/model"
	"github.com/taxpadi/taxpadi/internal/pattern"
	"github.com/taxpadi/taxpadi/internal/rules"
	"github.com/taxpadi/taxpadi/internal/service"
	"github.com/taxpadi/taxpadi/internal/signal"
	"github.com/taxpadi/taxpadi/internal/testutil"
)

func newTestServer(t *testing.T, gateway *engine.MockGateway) (*httptest.Server, service.Storage) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	detector := signal.NewDetector()
	matcher := pattern.NewMatcher(db.Storage, nil)
	eng := engine.New(detector, rules.NewClassifier(), matcher, gateway, nil, nil)
	recorder := feedback.NewRecorder(db.Storage, db.Storage, nil)

	srv := httptest.NewServer(NewRouter(eng, recorder, detector, db.Storage))
	t.Cleanup(srv.Close)

	return srv, db.Storage
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, engine.NewMockGateway())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClassifyEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, engine.NewMockGateway())

	resp := postJSON(t, srv.URL+"/api/classify", ClassifyRequest{
		TenantID:  "t1",
		Narration: "EMTL Levy Charge",
		Amount:    50,
		Direction: "debit",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[ClassifyResponse](t, resp)
	assert.Equal(t, "expense", body.Category)
	assert.Equal(t, "rule", body.Provenance)
	assert.InDelta(t, 0.98, body.Confidence, 1e-9)
	assert.True(t, body.SignalFlags.IsLevy)
}

func TestClassifyEndpointUsesAI(t *testing.T) {
	gateway := engine.NewMockGateway()
	gateway.Responses[llm.RolePrimary] = llm.ClassificationResponse{
		Category: "sale", Confidence: 0.9, Reasoning: "customer inflow",
	}
	srv, _ := newTestServer(t, gateway)

	resp := postJSON(t, srv.URL+"/api/classify", ClassifyRequest{
		TenantID:  "t1",
		Narration: "TRF from CHINEDU OKAFOR",
		Amount:    40000,
		Direction: "credit",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[ClassifyResponse](t, resp)
	assert.Equal(t, "sale", body.Category)
	assert.Equal(t, "ai", body.Provenance)
}

func TestClassifyEndpointRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t, engine.NewMockGateway())

	t.Run("invalid JSON", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/classify", "application/json", bytes.NewReader([]byte("{")))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing tenant", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/classify", ClassifyRequest{
			Narration: "TRF", Amount: 100, Direction: "credit",
		})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("bad direction", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/classify", ClassifyRequest{
			TenantID: "t1", Narration: "TRF", Amount: 100, Direction: "sideways",
		})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestFeedbackFlow(t *testing.T) {
	srv, store := newTestServer(t, engine.NewMockGateway())

	// Record a correction.
	resp := postJSON(t, srv.URL+"/api/feedback", FeedbackRequest{
		TenantID:          "t1",
		Narration:         "OPAY TRF from ADEBAYO STORES",
		PredictedCategory: "sale",
		Confidence:        0.75,
		CorrectedCategory: "sale",
		Amount:            15000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	record := decodeJSON[model.FeedbackRecord](t, resp)
	assert.Equal(t, model.CorrectionConfirmation, record.CorrectionType)

	// The pattern store learns in the background.
	require.Eventually(t, func() bool {
		_, err := store.GetPatternByText(context.Background(),
			"t1", "mm_opay:opay trf from adebayo stores")
		return err == nil
	}, time.Second, 10*time.Millisecond)

	// The record shows up as unconsumed.
	listResp, err := http.Get(srv.URL + "/api/feedback/unconsumed?tenant_id=t1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	records := decodeJSON[[]model.FeedbackRecord](t, listResp)
	require.Len(t, records, 1)

	// Consume it under a batch.
	consumeResp := postJSON(t, srv.URL+"/api/feedback/consume", ConsumeRequest{
		BatchID: "batch-1",
		IDs:     []int64{records[0].ID},
	})
	require.Equal(t, http.StatusOK, consumeResp.StatusCode)
	_ = consumeResp.Body.Close()

	// Now drained.
	listResp, err = http.Get(srv.URL + "/api/feedback/unconsumed?tenant_id=t1")
	require.NoError(t, err)
	records = decodeJSON[[]model.FeedbackRecord](t, listResp)
	assert.Empty(t, records)
}

func TestFeedbackEndpointRejectsMissingFields(t *testing.T) {
	srv, _ := newTestServer(t, engine.NewMockGateway())

	t.Run("missing tenant", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/feedback", FeedbackRequest{
			Narration:         "TRF",
			CorrectedCategory: "sale",
		})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing corrected category", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/feedback", FeedbackRequest{
			TenantID:  "t1",
			Narration: "TRF",
		})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestFeedbackEndpointStorageFailure(t *testing.T) {
	srv, store := newTestServer(t, engine.NewMockGateway())

	// A valid request that cannot be persisted is a server error, not a
	// client one.
	require.NoError(t, store.Close())

	resp := postJSON(t, srv.URL+"/api/feedback", FeedbackRequest{
		TenantID:          "t1",
		Narration:         "TRF from ADEBAYO STORES",
		CorrectedCategory: "sale",
	})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestPatternsEndpoint(t *testing.T) {
	srv, store := newTestServer(t, engine.NewMockGateway())

	require.NoError(t, store.UpsertPatternOnCorrection(context.Background(),
		"t1", "adebayo stores", "sale", true))

	resp, err := http.Get(srv.URL + "/api/patterns?tenant_id=t1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	patterns := decodeJSON[[]model.BusinessPattern](t, resp)
	require.Len(t, patterns, 1)
	assert.Equal(t, "adebayo stores", patterns[0].PatternText)
}

func TestPatternsEndpointRequiresTenant(t *testing.T) {
	srv, _ := newTestServer(t, engine.NewMockGateway())

	resp, err := http.Get(srv.URL + "/api/patterns")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
