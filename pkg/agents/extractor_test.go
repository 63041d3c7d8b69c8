package agents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwa-tokenizer/pkg/config"
	"github.com/rwa-tokenizer/pkg/models"
)

func TestFallbackAssetType(t *testing.T) {
	tests := []struct {
		in   string
		want models.AssetType
	}{
		{"2BHK flat in Bandra", models.AssetRealEstate},
		{"Honda City, low mileage", models.AssetVehicle},
		{"Vintage oil painting by a known artist", models.AssetArtwork},
		{"CNC machine with warranty", models.AssetEquipment},
		{"Gold bar, 24k purity", models.AssetCommodity},
		{"Something I own", models.AssetUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FallbackAssetType(tt.in), tt.in)
	}
}

func TestExtractValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"2BHK flat worth ₹1.5 crore", 1.5e7},
		{"Car for Rs. 8,50,000", 850000},
		{"Painting valued at 45000", 45000},
		{"Machine, about 12 lakh", 1.2e6},
		{"Condo priced $2.5 million", 2.5e6},
	}
	for _, tt := range tests {
		got := ExtractValue(tt.in)
		require.NotNil(t, got, tt.in)
		assert.InDelta(t, tt.want, *got, 1e-6, tt.in)
	}

	assert.Nil(t, ExtractValue("Old cars 1995 model"))
	assert.Nil(t, ExtractValue("no numbers here"))
}

func TestExtractLocation(t *testing.T) {
	assert.Equal(t, "Bandra, Mumbai", ExtractLocation("2BHK flat in Bandra, Mumbai worth ₹1.5 crore"))
	assert.Equal(t, "Mumbai", ExtractLocation("gold bar 50 grams, MUMBAI vault"))
	assert.Equal(t, "New York", ExtractLocation("loft, new york"))
	assert.Equal(t, "unknown", ExtractLocation("a painting in Excellent condition"))
}

func TestExtractRules(t *testing.T) {
	ex := NewExtractor(nil).Extract(context.Background(), "3 bedroom apartment in Pune worth 90 lakh")
	assert.Equal(t, "rules", ex.Source)
	assert.Equal(t, models.AssetRealEstate, ex.AssetType)
	assert.Equal(t, "Pune", ex.Location)
	require.NotNil(t, ex.EstimatedValue)
	assert.InDelta(t, 9e6, *ex.EstimatedValue, 1e-6)
}

func ollamaServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "json", req["format"])

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"role": "assistant", "content": content},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractWithLLM(t *testing.T) {
	srv := ollamaServer(t, http.StatusOK, "```json\n{\"asset_type\": \"Real Estate\", \"estimated_value\": \"15,000,000\", \"location\": \"Bandra, Mumbai, India\", \"description\": \"2BHK flat\"}\n```")
	llm := NewLLM(&config.Server{AIProvider: "ollama", OllamaURL: srv.URL, AITimeout: 5 * time.Second})
	require.True(t, llm.Enabled())

	ex := NewExtractor(llm).Extract(context.Background(), "2BHK flat in Bandra")
	assert.Equal(t, "llm", ex.Source)
	assert.Equal(t, models.AssetRealEstate, ex.AssetType)
	assert.Equal(t, "Bandra, Mumbai, India", ex.Location)
	require.NotNil(t, ex.EstimatedValue)
	assert.Equal(t, 15e6, *ex.EstimatedValue)
}

func TestExtractLLMFailureFallsBack(t *testing.T) {
	srv := ollamaServer(t, http.StatusInternalServerError, "")
	llm := NewLLM(&config.Server{AIProvider: "ollama", OllamaURL: srv.URL, AITimeout: 5 * time.Second})

	ex := NewExtractor(llm).Extract(context.Background(), "Honda City car in Delhi")
	assert.Equal(t, "rules", ex.Source)
	assert.Equal(t, models.AssetVehicle, ex.AssetType)
	assert.Equal(t, "Delhi", ex.Location)
	assert.Nil(t, ex.EstimatedValue)
}

func TestNewLLMDisabledWithoutCredentials(t *testing.T) {
	assert.False(t, NewLLM(&config.Server{AIProvider: "anthropic"}).Enabled())
	assert.False(t, NewLLM(&config.Server{}).Enabled())
	assert.Equal(t, "openai", NewLLM(&config.Server{OpenAIAPIKey: "sk-test"}).Provider())

	var nilLLM *LLM
	assert.False(t, nilLLM.Enabled())
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, string(extractJSON("Sure! ```json\n{\"a\":1}\n``` hope that helps")))
	assert.Equal(t, "plain", string(extractJSON("plain")))
}
