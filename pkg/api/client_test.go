package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwa-tokenizer/pkg/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", WithLogger(zerolog.Nop()))
}

func TestIntake_Success(t *testing.T) {
	var got IntakeRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/intake", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true,"follow_up_questions":["What is the VIN?"]}`))
	})

	resp, err := c.Intake(context.Background(), IntakeRequest{WalletAddress: "0xA", UserInput: "a 2019 sedan", Email: "a@b.com"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"What is the VIN?"}, resp.FollowUpQuestions)
	assert.Equal(t, IntakeRequest{WalletAddress: "0xA", UserInput: "a 2019 sedan", Email: "a@b.com"}, got)
}

func TestIntake_MissingFollowUpsIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})
	resp, err := c.Intake(context.Background(), IntakeRequest{})
	require.NoError(t, err)
	assert.NotNil(t, resp.FollowUpQuestions)
	assert.Empty(t, resp.FollowUpQuestions)
}

func TestApplicationFailure_SuccessFalse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"Asset must be verified before tokenization"}`))
	})

	_, err := c.Tokenize(context.Background(), "7")
	require.Error(t, err)
	assert.True(t, IsApplication(err))
	assert.Equal(t, "Asset must be verified before tokenization", Message(err))
}

func TestApplicationFailure_ErrorOnlyWithStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Missing required fields","details":"user_input"}`))
	})

	_, err := c.Intake(context.Background(), IntakeRequest{})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindApplication, apiErr.Kind)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Missing required fields", apiErr.Message)
	assert.Equal(t, "user_input", apiErr.Details)
}

func TestApplicationFailure_Non2xxWithoutErrorUsesFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{}`))
	})
	_, err := c.Verify(context.Background(), "1")
	assert.True(t, IsApplication(err))
	assert.Equal(t, "Failed to verify asset", Message(err))
}

func TestTransportFailure_UnparsableBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>bad gateway</html>`))
	})

	_, err := c.GetAsset(context.Background(), "3")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Failed to load asset details", apiErr.Message)
}

func TestTransportFailure_NoServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, WithLogger(zerolog.Nop()))
	_, err := c.Stats(context.Background())
	assert.True(t, IsTransport(err))
	assert.Equal(t, "Failed to load stats", Message(err))
}

func TestListAssets_EmptyAndEscaping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/assets/0xA%20B", r.URL.RawPath)
		w.Write([]byte(`{"assets":[]}`))
	})
	assets, err := c.ListAssets(context.Background(), "0xA B")
	require.NoError(t, err)
	assert.NotNil(t, assets)
	assert.Empty(t, assets)
}

func TestGetAsset_DecodesHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/asset/5", r.URL.Path)
		w.Write([]byte(`{
			"asset": {"id": 5, "asset_type": "vehicle", "description": "a 2019 sedan", "estimated_value": 1500000,
			          "location": "Pune", "verification_status": "verified", "token_id": null,
			          "created_at": "2024-01-02T03:04:05.000001"},
			"transactions": [{"id": 9, "asset_id": 5, "transaction_type": "verification", "status": "verified",
			                  "transaction_hash": null, "details": {"overall_score": 0.82, "status": "verified"},
			                  "created_at": "2024-01-02T03:05:00"}]
		}`))
	})

	d, err := c.GetAsset(context.Background(), models.AssetID("5"))
	require.NoError(t, err)
	assert.Equal(t, models.AssetID("5"), d.Asset.ID)
	assert.Equal(t, models.StatusVerified, d.Asset.VerificationStatus)
	require.NotNil(t, d.Asset.EstimatedValue)
	assert.Equal(t, 1500000.0, *d.Asset.EstimatedValue)
	require.Len(t, d.Transactions, 1)
	vr, err := d.Transactions[0].VerificationPayload()
	require.NoError(t, err)
	assert.InDelta(t, 0.82, vr.OverallScore, 1e-9)
}

func TestMissingResultIsApplicationFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})

	_, err := c.Verify(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, IsApplication(err))
	assert.False(t, IsTransport(err))
	assert.Equal(t, "Failed to verify asset", Message(err))

	_, err = c.Tokenize(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, IsApplication(err))
	assert.Equal(t, "Failed to tokenize asset", Message(err))
}

func TestStats(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_assets":4,"verified_assets":2,"tokenized_assets":1,"total_users":3}`))
	})
	s, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Stats{TotalAssets: 4, VerifiedAssets: 2, TokenizedAssets: 1, TotalUsers: 3}, *s)
}
