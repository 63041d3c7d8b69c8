package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rwa-tokenizer/pkg/models"
)

const (
	OpIntake      = "intake"
	OpListAssets  = "list_assets"
	OpAssetDetail = "asset_detail"
	OpVerify      = "verify"
	OpTokenize    = "tokenize"
	OpStats       = "stats"
	OpHealth      = "health"
)

const maxBodyBytes = 10 << 20

// Client talks to the asset service. One method per endpoint, one request per
// call; no timeouts or retries are added on top of the supplied http.Client.
type Client struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		logger:  log.Logger,
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With().Str("component", "api").Logger()
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

type IntakeRequest struct {
	WalletAddress string `json:"wallet_address"`
	UserInput     string `json:"user_input"`
	Email         string `json:"email"`
}

type IntakeResponse struct {
	Success           bool          `json:"success"`
	Message           string        `json:"message,omitempty"`
	Asset             *models.Asset `json:"asset,omitempty"`
	FollowUpQuestions []string      `json:"follow_up_questions"`
	NextSteps         []string      `json:"next_steps,omitempty"`
}

type AssetDetail struct {
	Asset        models.Asset         `json:"asset"`
	Transactions []models.Transaction `json:"transactions"`
}

type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

type envelope struct {
	Success *bool           `json:"success"`
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

func (c *Client) Intake(ctx context.Context, in IntakeRequest) (*IntakeResponse, error) {
	var out IntakeResponse
	if err := c.call(ctx, OpIntake, http.MethodPost, "/api/intake", in, &out); err != nil {
		return nil, err
	}
	if out.FollowUpQuestions == nil {
		out.FollowUpQuestions = []string{}
	}
	return &out, nil
}

func (c *Client) ListAssets(ctx context.Context, wallet string) ([]models.Asset, error) {
	var out struct {
		Assets []models.Asset `json:"assets"`
	}
	if err := c.call(ctx, OpListAssets, http.MethodGet, "/api/assets/"+url.PathEscape(wallet), nil, &out); err != nil {
		return nil, err
	}
	if out.Assets == nil {
		out.Assets = []models.Asset{}
	}
	return out.Assets, nil
}

func (c *Client) GetAsset(ctx context.Context, id models.AssetID) (*AssetDetail, error) {
	var out AssetDetail
	if err := c.call(ctx, OpAssetDetail, http.MethodGet, "/api/asset/"+url.PathEscape(id.String()), nil, &out); err != nil {
		return nil, err
	}
	if out.Asset.ID == "" {
		return nil, &Error{Kind: KindApplication, Op: OpAssetDetail, Status: http.StatusOK, Message: fallback(OpAssetDetail)}
	}
	if out.Transactions == nil {
		out.Transactions = []models.Transaction{}
	}
	return &out, nil
}

func (c *Client) Verify(ctx context.Context, id models.AssetID) (*models.VerificationResult, error) {
	var out struct {
		VerificationResult *models.VerificationResult `json:"verification_result"`
	}
	if err := c.call(ctx, OpVerify, http.MethodPost, "/api/verify/"+url.PathEscape(id.String()), nil, &out); err != nil {
		return nil, err
	}
	if out.VerificationResult == nil {
		return nil, &Error{Kind: KindApplication, Op: OpVerify, Status: http.StatusOK, Message: fallback(OpVerify),
			Err: fmt.Errorf("response missing verification_result")}
	}
	return out.VerificationResult, nil
}

func (c *Client) Tokenize(ctx context.Context, id models.AssetID) (*models.TokenizationResult, error) {
	var out struct {
		TokenizationResult *models.TokenizationResult `json:"tokenization_result"`
	}
	if err := c.call(ctx, OpTokenize, http.MethodPost, "/api/tokenize/"+url.PathEscape(id.String()), nil, &out); err != nil {
		return nil, err
	}
	if out.TokenizationResult == nil {
		return nil, &Error{Kind: KindApplication, Op: OpTokenize, Status: http.StatusOK, Message: fallback(OpTokenize),
			Err: fmt.Errorf("response missing tokenization_result")}
	}
	return out.TokenizationResult, nil
}

func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var out models.Stats
	if err := c.call(ctx, OpStats, http.MethodGet, "/api/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.call(ctx, OpHealth, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// call performs one request and normalises every failure into *Error.
func (c *Client) call(ctx context.Context, op, method, path string, in, out interface{}) error {
	reqID := uuid.NewString()
	logger := c.logger.With().Str("op", op).Str("request_id", reqID).Logger()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: KindTransport, Op: op, Message: fallback(op), Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Message: fallback(op), Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Debug().Err(err).Msg("request failed")
		return &Error{Kind: KindTransport, Op: op, Message: fallback(op), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Status: resp.StatusCode, Message: fallback(op), Err: fmt.Errorf("read body: %w", err)}
	}
	logger.Debug().Int("status", resp.StatusCode).Int("bytes", len(raw)).Msg("response")

	if !json.Valid(raw) {
		return &Error{Kind: KindTransport, Op: op, Status: resp.StatusCode, Message: fallback(op),
			Err: fmt.Errorf("unparsable body (status %d)", resp.StatusCode)}
	}

	var env envelope
	// Arrays and scalars carry no envelope; only objects are inspected.
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		if err := json.Unmarshal(raw, &env); err != nil {
			return &Error{Kind: KindTransport, Op: op, Status: resp.StatusCode, Message: fallback(op), Err: err}
		}
	}
	failed := env.Error != "" || (env.Success != nil && !*env.Success) || resp.StatusCode < 200 || resp.StatusCode >= 300
	if failed {
		msg := env.Error
		if msg == "" {
			msg = fallback(op)
		}
		return &Error{Kind: KindApplication, Op: op, Status: resp.StatusCode, Message: msg, Details: detailsText(env.Details)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindTransport, Op: op, Status: resp.StatusCode, Message: fallback(op), Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func detailsText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
