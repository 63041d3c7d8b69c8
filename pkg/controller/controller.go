package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/rwa-tokenizer/pkg/api"
	"github.com/rwa-tokenizer/pkg/models"
	"github.com/rwa-tokenizer/pkg/view"
)

var (
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	ErrActionInFlight = errors.New("an action for this asset is already in progress")
	ErrStaleResponse  = errors.New("detail response superseded by a newer selection")
)

const (
	MsgSubmitted        = "✅ Asset submitted!"
	MsgVerified         = "✅ Asset verification completed!"
	MsgTokenized        = "🎉 Asset tokenized successfully!"
	MsgDetailFailed     = "Failed to load asset details"
	MsgSubmitFailed     = "Failed to submit asset. Please try again."
	MsgVerifyFallback   = "Failed to verify asset"
	MsgTokenizeFallback = "Failed to tokenize asset"
	prefixSubmitError   = "Error: "
	prefixVerifyError   = "Verification failed: "
	prefixTokenizeError = "Tokenization failed: "
)

// Remote is the asset service as the controller sees it. *api.Client
// satisfies it.
type Remote interface {
	Intake(ctx context.Context, in api.IntakeRequest) (*api.IntakeResponse, error)
	ListAssets(ctx context.Context, wallet string) ([]models.Asset, error)
	GetAsset(ctx context.Context, id models.AssetID) (*api.AssetDetail, error)
	Verify(ctx context.Context, id models.AssetID) (*models.VerificationResult, error)
	Tokenize(ctx context.Context, id models.AssetID) (*models.TokenizationResult, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// Notifier receives the user-facing notices. *view.Board satisfies it.
type Notifier interface {
	Alert(level view.Color, msg string)
	ShowFollowUps(questions []string)
	Verification(vr *models.VerificationResult)
	Tokenization(tr *models.TokenizationResult)
}

// Form is the unsent intake input.
type Form struct {
	Wallet      string
	Description string
	Email       string
}

// Snapshot is a read-only copy of controller state for rendering.
type Snapshot struct {
	Wallet       string
	Assets       []models.Asset
	Asset        *models.Asset
	Transactions []models.Transaction
	Verification *models.VerificationResult
	DetailOpen   bool
	Stats        models.Stats
	Form         Form
	Submitting   bool
	Busy         bool // an action for Asset is in flight
	Actions      Actions
}

// Controller owns the client-side lifecycle state for one session. It is
// safe for concurrent use; remote calls never run under the lock.
type Controller struct {
	remote   Remote
	notifier Notifier
	logger   zerolog.Logger

	mu           sync.Mutex
	wallet       string
	assets       []models.Asset
	asset        *models.Asset
	transactions []models.Transaction
	verification *models.VerificationResult
	detailOpen   bool
	stats        models.Stats
	form         Form
	submitting   bool
	inFlight     map[models.AssetID]struct{}
	detailSeq    uint64
	listSeq      uint64
}

type Option func(*Controller)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func New(remote Remote, notifier Notifier, opts ...Option) *Controller {
	c := &Controller{
		remote:   remote,
		notifier: notifier,
		logger:   log.Logger,
		assets:   []models.Asset{},
		inFlight: make(map[models.AssetID]struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With().Str("component", "controller").Logger()
	return c
}

func (c *Controller) SetForm(f Form) {
	c.mu.Lock()
	c.form = f
	c.mu.Unlock()
}

func (c *Controller) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

func (c *Controller) Wallet() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wallet
}

// Snapshot copies the state so callers can render without holding the lock.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Wallet:       c.wallet,
		Assets:       append([]models.Asset(nil), c.assets...),
		Transactions: append([]models.Transaction(nil), c.transactions...),
		Verification: c.verification,
		DetailOpen:   c.detailOpen,
		Stats:        c.stats,
		Form:         c.form,
		Submitting:   c.submitting,
	}
	if s.Assets == nil {
		s.Assets = []models.Asset{}
	}
	if c.asset != nil {
		a := *c.asset
		s.Asset = &a
		_, s.Busy = c.inFlight[a.ID]
		if !s.Busy {
			s.Actions = EnabledActions(&a)
		}
	}
	return s
}

// SubmitAsset sends the intake request. Only one submission may be
// outstanding; the form keeps its input unless the submission succeeds.
func (c *Controller) SubmitAsset(ctx context.Context, wallet, description, email string) (*api.IntakeResponse, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	c.submitting = true
	c.form = Form{Wallet: wallet, Description: description, Email: email}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	resp, err := c.remote.Intake(ctx, api.IntakeRequest{WalletAddress: wallet, UserInput: description, Email: email})
	if err != nil {
		c.logger.Error().Err(err).Str("wallet", wallet).Msg("❌ intake failed")
		if api.IsApplication(err) {
			c.notifier.Alert(view.ColorDanger, prefixSubmitError+api.Message(err))
		} else {
			c.notifier.Alert(view.ColorDanger, MsgSubmitFailed)
		}
		return nil, err
	}

	c.logger.Info().Str("wallet", wallet).Int("follow_ups", len(resp.FollowUpQuestions)).Msg("📥 asset submitted")
	c.notifier.Alert(view.ColorSuccess, MsgSubmitted)
	c.notifier.ShowFollowUps(resp.FollowUpQuestions)

	c.mu.Lock()
	c.form.Description = ""
	c.form.Email = ""
	c.mu.Unlock()

	c.refreshAll(ctx, wallet)
	return resp, nil
}

// RefreshAssets replaces the asset list for wallet. An empty wallet is a
// precondition skip: no request, no error. A failed refresh keeps the
// previous list and is only logged.
func (c *Controller) RefreshAssets(ctx context.Context, wallet string) ([]models.Asset, error) {
	if wallet == "" {
		return nil, nil
	}
	c.mu.Lock()
	c.listSeq++
	seq := c.listSeq
	c.mu.Unlock()

	assets, err := c.remote.ListAssets(ctx, wallet)
	if err != nil {
		c.logger.Warn().Err(err).Str("wallet", wallet).Msg("asset refresh failed, keeping last list")
		return nil, err
	}

	c.mu.Lock()
	// wallet and assets change together; a later request owns the list.
	if seq == c.listSeq {
		if c.wallet != wallet {
			c.wallet = wallet
			c.clearDetailLocked()
		}
		c.assets = assets
		if c.asset != nil {
			for i := range assets {
				if assets[i].ID == c.asset.ID {
					a := assets[i]
					c.asset = &a
					break
				}
			}
		}
	}
	c.mu.Unlock()

	c.logger.Debug().Str("wallet", wallet).Int("count", len(assets)).Msg("assets refreshed")
	return assets, nil
}

// RefreshStats updates the counters; failures are logged and otherwise silent.
func (c *Controller) RefreshStats(ctx context.Context) (*models.Stats, error) {
	stats, err := c.remote.Stats(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("stats refresh failed")
		return nil, err
	}
	c.mu.Lock()
	c.stats = *stats
	c.mu.Unlock()
	return stats, nil
}

// Bootstrap loads the counters and the wallet's assets, as on first open.
func (c *Controller) Bootstrap(ctx context.Context, wallet string) {
	c.mu.Lock()
	if c.form.Wallet == "" {
		c.form.Wallet = wallet
	}
	c.mu.Unlock()
	c.refreshAll(ctx, wallet)
}

// refreshAll runs the list and stats refreshes concurrently and waits for
// both. Their failures are already logged.
func (c *Controller) refreshAll(ctx context.Context, wallet string) {
	var g errgroup.Group
	g.Go(func() error {
		_, err := c.RefreshAssets(ctx, wallet)
		return err
	})
	g.Go(func() error {
		_, err := c.RefreshStats(ctx)
		return err
	})
	_ = g.Wait()
}

// SelectAsset loads one asset with its history and opens the detail view.
// When selections overlap only the latest one may land; earlier responses
// return ErrStaleResponse and leave state alone.
func (c *Controller) SelectAsset(ctx context.Context, id models.AssetID) (*api.AssetDetail, error) {
	c.mu.Lock()
	c.detailSeq++
	seq := c.detailSeq
	c.mu.Unlock()

	detail, err := c.remote.GetAsset(ctx, id)

	c.mu.Lock()
	if seq != c.detailSeq {
		c.mu.Unlock()
		c.logger.Debug().Str("asset", id.String()).Msg("discarding stale detail response")
		return nil, ErrStaleResponse
	}
	if err != nil {
		c.asset = nil
		c.transactions = nil
		c.verification = nil
		c.detailOpen = false
		c.mu.Unlock()
		c.logger.Error().Err(err).Str("asset", id.String()).Msg("❌ detail fetch failed")
		c.notifier.Alert(view.ColorDanger, detailFailureMessage(err))
		return nil, err
	}
	a := detail.Asset
	c.asset = &a
	c.transactions = detail.Transactions
	c.verification = LatestVerification(detail.Transactions)
	c.detailOpen = true
	c.mu.Unlock()

	return detail, nil
}

// CloseDetail hides the detail view; the selection is kept.
func (c *Controller) CloseDetail() {
	c.mu.Lock()
	c.detailOpen = false
	c.mu.Unlock()
}

// clearDetailLocked drops the selection and invalidates pending detail fetches.
func (c *Controller) clearDetailLocked() {
	c.asset = nil
	c.transactions = nil
	c.verification = nil
	c.detailOpen = false
	c.detailSeq++
}

// LatestVerification decodes the payload of the most recent verification
// transaction. History arrives newest first; an undecodable payload counts as
// absent.
func LatestVerification(txs []models.Transaction) *models.VerificationResult {
	var latest *models.Transaction
	for i := range txs {
		if txs[i].TransactionType != models.TxVerification {
			continue
		}
		if latest == nil || txs[i].CreatedAt.After(latest.CreatedAt.Time) {
			latest = &txs[i]
		}
	}
	if latest == nil {
		return nil
	}
	vr, err := latest.VerificationPayload()
	if err != nil {
		return nil
	}
	return vr
}

func detailFailureMessage(err error) string {
	if api.IsApplication(err) {
		return api.Message(err)
	}
	return MsgDetailFailed
}

// VerifyCurrentAsset asks the service to verify the selected asset. It does
// nothing without a selection and never updates the asset's status locally;
// the follow-up refresh brings the confirmed state.
func (c *Controller) VerifyCurrentAsset(ctx context.Context) (*models.VerificationResult, error) {
	id, ok, err := c.beginAction()
	if !ok {
		return nil, err
	}

	vr, err := c.remote.Verify(ctx, id)
	c.endAction(id)
	if err != nil {
		c.logger.Error().Err(err).Str("asset", id.String()).Msg("❌ verification failed")
		c.notifier.Alert(view.ColorDanger, actionFailureMessage(err, prefixVerifyError, MsgVerifyFallback))
		return nil, err
	}

	c.logger.Info().Str("asset", id.String()).Str("status", vr.Status).Float64("score", vr.OverallScore).Msg("🔍 asset verified")
	c.notifier.Alert(view.ColorSuccess, MsgVerified)
	c.refreshAll(ctx, c.Wallet())
	c.CloseDetail()
	c.notifier.Verification(vr)
	return vr, nil
}

// TokenizeCurrentAsset mirrors VerifyCurrentAsset. The verified precondition
// is left to the service.
func (c *Controller) TokenizeCurrentAsset(ctx context.Context) (*models.TokenizationResult, error) {
	id, ok, err := c.beginAction()
	if !ok {
		return nil, err
	}

	tr, err := c.remote.Tokenize(ctx, id)
	c.endAction(id)
	if err != nil {
		c.logger.Error().Err(err).Str("asset", id.String()).Msg("❌ tokenization failed")
		c.notifier.Alert(view.ColorDanger, actionFailureMessage(err, prefixTokenizeError, MsgTokenizeFallback))
		return nil, err
	}

	c.logger.Info().Str("asset", id.String()).Str("token", tr.TokenID).Msg("🪙 asset tokenized")
	c.notifier.Alert(view.ColorSuccess, MsgTokenized)
	c.refreshAll(ctx, c.Wallet())
	c.CloseDetail()
	c.notifier.Tokenization(tr)
	return tr, nil
}

// beginAction marks the selected asset busy. ok is false when there is no
// selection (err nil) or the asset already has an action in flight.
func (c *Controller) beginAction() (models.AssetID, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.asset == nil {
		return "", false, nil
	}
	id := c.asset.ID
	if _, busy := c.inFlight[id]; busy {
		return id, false, ErrActionInFlight
	}
	c.inFlight[id] = struct{}{}
	return id, true, nil
}

func (c *Controller) endAction(id models.AssetID) {
	c.mu.Lock()
	delete(c.inFlight, id)
	c.mu.Unlock()
}

func actionFailureMessage(err error, prefix, fallback string) string {
	if api.IsApplication(err) {
		return prefix + api.Message(err)
	}
	return fallback
}
