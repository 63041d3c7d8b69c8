package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwa-tokenizer/pkg/db"
)

const (
	wallet     = "0x742d35Cc6e34d8d7C15fE14c123456789abcdef0"
	goodAsset  = "2 bedroom apartment in Bandra, Mumbai with registered deed, worth ₹1.5 crore"
	vagueAsset = "some stuff"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := db.NewStore(filepath.Join(t.TempDir(), "rwa.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	s := New(store, nil, 0, WithClock(mock), WithLogger(zerolog.Nop()))

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func intake(t *testing.T, srv *httptest.Server, input string) string {
	t.Helper()
	code, out := do(t, srv, "POST", "/api/intake", map[string]string{
		"wallet_address": wallet, "user_input": input, "email": "owner@example.com",
	})
	require.Equal(t, http.StatusOK, code)
	asset := out["asset"].(map[string]interface{})
	return fmt.Sprint(asset["id"])
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	code, out := do(t, srv, "GET", "/api/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, "1.0.0", out["version"])
	assert.Equal(t, "2024-05-01T09:00:00Z", out["timestamp"])
}

func TestIntake(t *testing.T) {
	srv := newTestServer(t)

	code, out := do(t, srv, "POST", "/api/intake", map[string]string{"wallet_address": wallet})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing required fields: user_input, wallet_address", out["error"])
	assert.Equal(t, false, out["success"])

	code, out = do(t, srv, "POST", "/api/intake", map[string]string{"wallet_address": wallet, "user_input": goodAsset})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["success"])
	assert.Len(t, out["follow_up_questions"], 3)
	assert.Equal(t, []interface{}{"Review asset", "Proceed to verification"}, out["next_steps"])

	asset := out["asset"].(map[string]interface{})
	assert.Equal(t, "real_estate", asset["asset_type"])
	assert.Equal(t, "pending", asset["verification_status"])
	assert.Equal(t, "Bandra, Mumbai", asset["location"])
	assert.Equal(t, 1.5e7, asset["estimated_value"])
	assert.Nil(t, asset["token_id"])
}

func TestAssetsForWallet(t *testing.T) {
	srv := newTestServer(t)

	code, out := do(t, srv, "GET", "/api/assets/0xNOBODY", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []interface{}{}, out["assets"])

	first := intake(t, srv, goodAsset)
	second := intake(t, srv, vagueAsset)
	_, out = do(t, srv, "GET", "/api/assets/"+wallet, nil)
	assets := out["assets"].([]interface{})
	require.Len(t, assets, 2)
	assert.Equal(t, second, fmt.Sprint(assets[0].(map[string]interface{})["id"]))
	assert.Equal(t, first, fmt.Sprint(assets[1].(map[string]interface{})["id"]))
}

func TestAssetNotFound(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/api/asset/999", "/api/asset/abc"} {
		code, out := do(t, srv, "GET", path, nil)
		assert.Equal(t, http.StatusNotFound, code, path)
		assert.Equal(t, "Asset not found", out["error"], path)
		assert.NotEmpty(t, out["details"], path)
	}
	code, _ := do(t, srv, "POST", "/api/verify/999", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestVerifyAndTokenize(t *testing.T) {
	srv := newTestServer(t)
	id := intake(t, srv, goodAsset)

	code, out := do(t, srv, "POST", "/api/tokenize/"+id, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Asset must be verified before tokenization", out["error"])

	code, out = do(t, srv, "POST", "/api/verify/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	vr := out["verification_result"].(map[string]interface{})
	assert.Equal(t, "verified", vr["status"])
	assert.Contains(t, vr, "breakdown")
	assert.Equal(t, "verified", out["asset"].(map[string]interface{})["verification_status"])

	code, out = do(t, srv, "POST", "/api/tokenize/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	tr := out["tokenization_result"].(map[string]interface{})
	assert.Regexp(t, `^RWA_[0-9A-F]{16}$`, tr["token_id"])
	assert.Equal(t, "RWA-TestNet", tr["network"])
	assert.Equal(t, tr["token_id"], out["asset"].(map[string]interface{})["token_id"])

	code, out = do(t, srv, "POST", "/api/tokenize/"+id, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Asset already tokenized", out["error"])

	_, out = do(t, srv, "GET", "/api/asset/"+id, nil)
	txs := out["transactions"].([]interface{})
	require.Len(t, txs, 2)
	newest := txs[0].(map[string]interface{})
	assert.Equal(t, "tokenization", newest["transaction_type"])
	assert.Equal(t, "completed", newest["status"])
	assert.Equal(t, tr["transaction_hash"], newest["transaction_hash"])
	assert.Equal(t, "verification", txs[1].(map[string]interface{})["transaction_type"])
}

func TestVerifyRejected(t *testing.T) {
	srv := newTestServer(t)
	id := intake(t, srv, vagueAsset)

	_, out := do(t, srv, "POST", "/api/verify/"+id, nil)
	assert.Equal(t, "rejected", out["verification_result"].(map[string]interface{})["status"])

	code, _ := do(t, srv, "POST", "/api/tokenize/"+id, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestStats(t *testing.T) {
	srv := newTestServer(t)
	_, out := do(t, srv, "GET", "/api/stats", nil)
	assert.Equal(t, 0.0, out["total_assets"])
	assert.Equal(t, 0.0, out["verification_rate"])

	id := intake(t, srv, goodAsset)
	intake(t, srv, vagueAsset)
	do(t, srv, "POST", "/api/verify/"+id, nil)
	do(t, srv, "POST", "/api/tokenize/"+id, nil)

	_, out = do(t, srv, "GET", "/api/stats", nil)
	assert.Equal(t, 2.0, out["total_assets"])
	assert.Equal(t, 1.0, out["verified_assets"])
	assert.Equal(t, 1.0, out["tokenized_assets"])
	assert.Equal(t, 1.0, out["total_users"])
	assert.Equal(t, 50.0, out["verification_rate"])
	assert.Equal(t, 100.0, out["tokenization_rate"])
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)
	req, _ := http.NewRequest("OPTIONS", srv.URL+"/api/intake", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
