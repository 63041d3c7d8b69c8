package agents

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/rwa-tokenizer/pkg/models"
)

const (
	Network       = "RWA-TestNet"
	TokenStandard = "RWA-721"
	TokenPrefix   = "RWA_"
	StatusMinted  = "minted"
)

var ErrNotVerified = errors.New("Asset must be verified before tokenization")

// TokenMetadata is the off-chain description attached to a minted token.
type TokenMetadata struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Attributes  []TokenAttribute  `json:"attributes"`
	Properties  map[string]string `json:"properties"`
}

type TokenAttribute struct {
	TraitType string      `json:"trait_type"`
	Value     interface{} `json:"value"`
}

// Mint is everything the tokenizer produces for one asset.
type Mint struct {
	models.TokenizationResult
	Metadata TokenMetadata `json:"metadata"`
	MintedAt string        `json:"minted_at"`
}

// Tokenizer simulates minting on a test network. Identifiers are derived
// from Keccak-256 so they have the shape of real chain values.
type Tokenizer struct {
	clock clock.Clock
}

func NewTokenizer(clk clock.Clock) *Tokenizer {
	if clk == nil {
		clk = clock.New()
	}
	return &Tokenizer{clock: clk}
}

func (t *Tokenizer) Tokenize(a models.Asset) (*Mint, error) {
	if a.VerificationStatus != models.StatusVerified {
		return nil, ErrNotVerified
	}
	now := t.clock.Now().UTC()
	seed := fmt.Sprintf("%s_%s_%d", a.ID, a.AssetType, now.UnixNano())
	digest := crypto.Keccak256([]byte(seed))

	tokenID := TokenPrefix + strings.ToUpper(hex.EncodeToString(digest[:8]))
	contract := common.BytesToAddress(crypto.Keccak256([]byte("contract:" + tokenID)))
	// A random nonce keeps hashes distinct for mints sharing a timestamp.
	txHash := crypto.Keccak256Hash([]byte(tokenID), []byte(uuid.NewString()))

	return &Mint{
		TokenizationResult: models.TokenizationResult{
			TokenID:         tokenID,
			ContractAddress: contract.Hex(),
			TransactionHash: txHash.Hex(),
			Network:         Network,
			Standard:        TokenStandard,
			Status:          StatusMinted,
		},
		Metadata: buildMetadata(a, tokenID),
		MintedAt: now.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}

func buildMetadata(a models.Asset, tokenID string) TokenMetadata {
	var value interface{} = "N/A"
	if a.EstimatedValue != nil {
		value = *a.EstimatedValue
	}
	return TokenMetadata{
		Name:        "RWA Token - " + typeTitle(a.AssetType),
		Description: a.Description,
		Attributes: []TokenAttribute{
			{TraitType: "Asset Type", Value: string(a.AssetType)},
			{TraitType: "Location", Value: a.Location},
			{TraitType: "Estimated Value", Value: value},
			{TraitType: "Verification Status", Value: string(a.VerificationStatus)},
		},
		Properties: map[string]string{
			"asset_id": a.ID.String(),
			"token_id": tokenID,
			"standard": TokenStandard,
			"network":  Network,
		},
	}
}

func typeTitle(t models.AssetType) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
