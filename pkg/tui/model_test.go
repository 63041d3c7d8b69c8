package tui

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwa-tokenizer/pkg/api"
	"github.com/rwa-tokenizer/pkg/controller"
	"github.com/rwa-tokenizer/pkg/models"
	"github.com/rwa-tokenizer/pkg/view"
)

type stubRemote struct {
	assets   []models.Asset
	intakes  []api.IntakeRequest
	verifies int
	tokens   int
}

func (s *stubRemote) Intake(_ context.Context, in api.IntakeRequest) (*api.IntakeResponse, error) {
	s.intakes = append(s.intakes, in)
	return &api.IntakeResponse{Success: true, FollowUpQuestions: []string{"What is the VIN?"}}, nil
}

func (s *stubRemote) ListAssets(context.Context, string) ([]models.Asset, error) {
	return append([]models.Asset{}, s.assets...), nil
}

func (s *stubRemote) GetAsset(_ context.Context, id models.AssetID) (*api.AssetDetail, error) {
	for _, a := range s.assets {
		if a.ID == id {
			return &api.AssetDetail{Asset: a, Transactions: []models.Transaction{}}, nil
		}
	}
	return nil, &api.Error{Kind: api.KindApplication, Op: api.OpAssetDetail, Status: 404, Message: "Asset not found"}
}

func (s *stubRemote) Verify(context.Context, models.AssetID) (*models.VerificationResult, error) {
	s.verifies++
	return &models.VerificationResult{OverallScore: 0.82, Status: "verified"}, nil
}

func (s *stubRemote) Tokenize(context.Context, models.AssetID) (*models.TokenizationResult, error) {
	s.tokens++
	return &models.TokenizationResult{TokenID: "RWA_0123456789ABCDEF", Network: "RWA-TestNet"}, nil
}

func (s *stubRemote) Stats(context.Context) (*models.Stats, error) {
	return &models.Stats{TotalAssets: int64(len(s.assets))}, nil
}

func newTestModel(t *testing.T, remote *stubRemote) (Model, *controller.Controller) {
	t.Helper()
	board := view.NewBoard(view.WithClock(clock.NewMock()))
	ctrl := controller.New(remote, board, controller.WithLogger(zerolog.Nop()))
	ctrl.SetForm(controller.Form{Wallet: "0xABC"})
	return New(context.Background(), ctrl, board, "INR"), ctrl
}

// press feeds one key and runs any resulting command synchronously.
func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, cmd := m.Update(msg)
	return drain(next.(Model), cmd)
}

// drain runs cmd and feeds controller completions back into the model.
func drain(m Model, cmd tea.Cmd) Model {
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(m, c)
		}
	case opDoneMsg:
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(Model)
}

func TestEmptyStateIsRendered(t *testing.T) {
	m, _ := newTestModel(t, &stubRemote{})
	assert.Contains(t, m.View(), view.EmptyAssetsMessage)
	assert.Equal(t, "0xABC", m.inputs[fieldWallet].Value())
}

func TestSubmitFromForm(t *testing.T) {
	remote := &stubRemote{}
	m, ctrl := newTestModel(t, remote)

	m = typeText(t, m, "Honda City car")
	m = press(t, m, "enter")

	require.Len(t, remote.intakes, 1)
	assert.Equal(t, "0xABC", remote.intakes[0].WalletAddress)
	assert.Equal(t, "Honda City car", remote.intakes[0].UserInput)
	assert.Empty(t, m.inputs[fieldDescription].Value(), "form cleared after success")
	assert.Empty(t, ctrl.Form().Description)
	assert.Contains(t, m.View(), "💭 What is the VIN?")
}

func TestSelectVerifyTokenize(t *testing.T) {
	remote := &stubRemote{assets: []models.Asset{
		{ID: "1", AssetType: models.AssetVehicle, Description: "car", VerificationStatus: models.StatusVerified},
		{ID: "2", AssetType: models.AssetArtwork, Description: "painting", VerificationStatus: models.StatusPending},
	}}
	m, ctrl := newTestModel(t, remote)
	m = press(t, m, "esc") // form -> list
	m = press(t, m, "r")
	require.Len(t, ctrl.Snapshot().Assets, 2)

	m = press(t, m, "down")
	m = press(t, m, "enter")
	snap := ctrl.Snapshot()
	require.True(t, snap.DetailOpen)
	assert.Equal(t, models.AssetID("2"), snap.Asset.ID)

	// Tokenize is not enabled for a pending asset.
	m = press(t, m, "t")
	assert.Equal(t, 0, remote.tokens)

	m = press(t, m, "v")
	assert.Equal(t, 1, remote.verifies)
	assert.False(t, ctrl.Snapshot().DetailOpen)
	assert.Contains(t, m.View(), "82.0%")

	m = press(t, m, "x")
	_, ok := m.board.Current()
	assert.False(t, ok)

	m = press(t, m, "q")
	assert.True(t, m.quitting)
}

func TestVerifyIgnoredWithoutDetail(t *testing.T) {
	remote := &stubRemote{assets: []models.Asset{{ID: "1", VerificationStatus: models.StatusPending}}}
	m, _ := newTestModel(t, remote)
	m = press(t, m, "esc")
	press(t, m, "v")
	assert.Equal(t, 0, remote.verifies)
}
