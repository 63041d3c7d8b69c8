package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type AssetType string

const (
	AssetRealEstate AssetType = "real_estate"
	AssetVehicle    AssetType = "vehicle"
	AssetArtwork    AssetType = "artwork"
	AssetEquipment  AssetType = "equipment"
	AssetCommodity  AssetType = "commodity"
	AssetUnknown    AssetType = "unknown"
)

func AllAssetTypes() []AssetType {
	return []AssetType{AssetRealEstate, AssetVehicle, AssetArtwork, AssetEquipment, AssetCommodity, AssetUnknown}
}

type VerificationStatus string

const (
	StatusPending        VerificationStatus = "pending"
	StatusVerified       VerificationStatus = "verified"
	StatusRejected       VerificationStatus = "rejected"
	StatusRequiresReview VerificationStatus = "requires_review"
)

func AllVerificationStatuses() []VerificationStatus {
	return []VerificationStatus{StatusPending, StatusVerified, StatusRejected, StatusRequiresReview}
}

type TransactionType string

const (
	TxVerification TransactionType = "verification"
	TxTokenization TransactionType = "tokenization"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
)

// AssetID is opaque to the client. The service emits integers but any JSON
// scalar is accepted.
type AssetID string

func (id AssetID) String() string { return string(id) }

func (id AssetID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *AssetID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = AssetID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("asset id: %w", err)
	}
	*id = AssetID(n.String())
	return nil
}

func AssetIDFromInt(n int64) AssetID { return AssetID(strconv.FormatInt(n, 10)) }

// Int64 parses the id as a database key.
func (id AssetID) Int64() (int64, error) {
	return strconv.ParseInt(string(id), 10, 64)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Timestamp accepts both RFC3339 and the zone-less ISO form (read as UTC).
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp { return Timestamp{Time: t.UTC()} }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}

type User struct {
	ID            int64     `json:"id"`
	WalletAddress string    `json:"wallet_address"`
	Email         string    `json:"email"`
	KYCStatus     string    `json:"kyc_status"`
	CreatedAt     Timestamp `json:"created_at"`
}

type Asset struct {
	ID                 AssetID            `json:"id"`
	UserID             int64              `json:"user_id,omitempty"`
	AssetType          AssetType          `json:"asset_type"`
	Description        string             `json:"description"`
	EstimatedValue     *float64           `json:"estimated_value"`
	Location           string             `json:"location"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	TokenID            *string            `json:"token_id"`
	CreatedAt          Timestamp          `json:"created_at"`
	UpdatedAt          Timestamp          `json:"updated_at"`
}

// IsTokenized reports whether a token was minted; token ids are never reassigned.
func (a *Asset) IsTokenized() bool {
	return a != nil && a.TokenID != nil && *a.TokenID != ""
}

type Transaction struct {
	ID              int64           `json:"id"`
	AssetID         AssetID         `json:"asset_id"`
	TransactionType TransactionType `json:"transaction_type"`
	Status          string          `json:"status"`
	TransactionHash *string         `json:"transaction_hash"`
	Details         json.RawMessage `json:"details,omitempty"`
	CreatedAt       Timestamp       `json:"created_at"`
}

// VerificationPayload decodes Details as a VerificationResult. Details may be
// an object or a string holding an object.
func (t Transaction) VerificationPayload() (*VerificationResult, error) {
	raw := bytes.TrimSpace(t.Details)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("transaction %d has no details", t.ID)
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("details string: %w", err)
		}
		raw = []byte(strings.TrimSpace(inner))
	}
	var vr VerificationResult
	if err := json.Unmarshal(raw, &vr); err != nil {
		return nil, fmt.Errorf("details payload: %w", err)
	}
	return &vr, nil
}

type Breakdown struct {
	BasicInfo       float64 `json:"basic_info"`
	ValueAssessment float64 `json:"value_assessment"`
	Jurisdiction    float64 `json:"jurisdiction"`
	AssetSpecific   float64 `json:"asset_specific"`
}

type VerificationResult struct {
	OverallScore    float64   `json:"overall_score"` // 0..1
	Status          string    `json:"status"`
	Breakdown       Breakdown `json:"breakdown"`
	Recommendations []string  `json:"recommendations"`
	AgentNotes      []string  `json:"agent_notes,omitempty"`
	NextSteps       []string  `json:"next_steps,omitempty"`
	Issues          []string  `json:"issues,omitempty"`
}

type TokenizationResult struct {
	TokenID         string `json:"token_id"`
	ContractAddress string `json:"contract_address"`
	TransactionHash string `json:"transaction_hash"`
	Network         string `json:"network"`
	Standard        string `json:"standard,omitempty"`
	Status          string `json:"status,omitempty"`
}

type Stats struct {
	TotalAssets      int64   `json:"total_assets"`
	VerifiedAssets   int64   `json:"verified_assets"`
	TokenizedAssets  int64   `json:"tokenized_assets"`
	TotalUsers       int64   `json:"total_users"`
	VerificationRate float64 `json:"verification_rate"`
	TokenizationRate float64 `json:"tokenization_rate"`
}
