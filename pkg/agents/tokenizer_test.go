package agents

import (
	"regexp"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwa-tokenizer/pkg/models"
)

var (
	tokenIDRe = regexp.MustCompile(`^RWA_[0-9A-F]{16}$`)
	addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	txHashRe  = regexp.MustCompile(`^0x[0-9a-f]{64}$`)
)

func TestTokenize(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	tk := NewTokenizer(mock)

	a := models.Asset{
		ID:                 "7",
		AssetType:          models.AssetRealEstate,
		Description:        "2BHK flat",
		Location:           "Mumbai",
		EstimatedValue:     value(15e6),
		VerificationStatus: models.StatusVerified,
	}
	m, err := tk.Tokenize(a)
	require.NoError(t, err)

	assert.Regexp(t, tokenIDRe, m.TokenID)
	assert.Regexp(t, addressRe, m.ContractAddress)
	assert.Regexp(t, txHashRe, m.TransactionHash)
	assert.Equal(t, "RWA-TestNet", m.Network)
	assert.Equal(t, "RWA-721", m.Standard)
	assert.Equal(t, "minted", m.Status)
	assert.Equal(t, "2024-03-01T12:00:00Z", m.MintedAt)

	assert.Equal(t, "RWA Token - Real Estate", m.Metadata.Name)
	assert.Equal(t, "2BHK flat", m.Metadata.Description)
	assert.Equal(t, "7", m.Metadata.Properties["asset_id"])
	assert.Equal(t, m.TokenID, m.Metadata.Properties["token_id"])

	again, err := tk.Tokenize(a)
	require.NoError(t, err)
	assert.Equal(t, m.TokenID, again.TokenID, "same asset and instant")
	assert.NotEqual(t, m.TransactionHash, again.TransactionHash)

	mock.Add(time.Second)
	later, err := tk.Tokenize(a)
	require.NoError(t, err)
	assert.NotEqual(t, m.TokenID, later.TokenID)
}

func TestTokenizeRequiresVerified(t *testing.T) {
	tk := NewTokenizer(clock.NewMock())
	for _, st := range []models.VerificationStatus{models.StatusPending, models.StatusRequiresReview, models.StatusRejected} {
		_, err := tk.Tokenize(models.Asset{ID: "1", VerificationStatus: st})
		assert.ErrorIs(t, err, ErrNotVerified, string(st))
	}
}
