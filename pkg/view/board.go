package view

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rwa-tokenizer/pkg/models"
)

const (
	DefaultAlertTTL    = 7 * time.Second
	DefaultFollowUpTTL = 10 * time.Second
)

// Board holds the transient notices: one primary alert slot and one
// follow-up prompt slot. Each slot expires on its own timer; a new publish
// supersedes whatever the slot held.
type Board struct {
	mu          sync.Mutex
	clock       clock.Clock
	alertTTL    time.Duration
	followUpTTL time.Duration

	alert      *Notice
	alertUntil time.Time
	alertTimer *clock.Timer

	followUps   []string
	followUntil time.Time
	followTimer *clock.Timer

	listeners []func()
}

type BoardOption func(*Board)

func WithClock(c clock.Clock) BoardOption {
	return func(b *Board) { b.clock = c }
}

func WithAlertTTL(d time.Duration) BoardOption {
	return func(b *Board) {
		if d > 0 {
			b.alertTTL = d
		}
	}
}

func WithFollowUpTTL(d time.Duration) BoardOption {
	return func(b *Board) {
		if d > 0 {
			b.followUpTTL = d
		}
	}
}

func NewBoard(opts ...BoardOption) *Board {
	b := &Board{
		clock:       clock.New(),
		alertTTL:    DefaultAlertTTL,
		followUpTTL: DefaultFollowUpTTL,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// OnChange registers fn to run after every publish, dismiss or expiry.
// fn runs without the board lock held.
func (b *Board) OnChange(fn func()) {
	b.mu.Lock()
	b.listeners = append(b.listeners, fn)
	b.mu.Unlock()
}

func (b *Board) Alert(level Color, msg string) {
	b.publish(AlertNotice(level, msg))
}

func (b *Board) Verification(vr *models.VerificationResult) {
	b.publish(VerificationNotice(vr))
}

func (b *Board) Tokenization(tr *models.TokenizationResult) {
	b.publish(TokenizationNotice(tr))
}

func (b *Board) publish(n Notice) {
	b.mu.Lock()
	if b.alertTimer != nil {
		b.alertTimer.Stop()
	}
	b.alert = &n
	b.alertUntil = b.clock.Now().Add(b.alertTTL)
	b.alertTimer = b.clock.AfterFunc(b.alertTTL, b.notify)
	b.mu.Unlock()
	b.notify()
}

// ShowFollowUps replaces the prompt batch and restarts its window. An empty
// batch leaves the current prompts alone.
func (b *Board) ShowFollowUps(questions []string) {
	if len(questions) == 0 {
		return
	}
	b.mu.Lock()
	if b.followTimer != nil {
		b.followTimer.Stop()
	}
	b.followUps = append([]string(nil), questions...)
	b.followUntil = b.clock.Now().Add(b.followUpTTL)
	b.followTimer = b.clock.AfterFunc(b.followUpTTL, b.notify)
	b.mu.Unlock()
	b.notify()
}

// Current returns the visible alert, if any.
func (b *Board) Current() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.alert == nil || !b.clock.Now().Before(b.alertUntil) {
		return Notice{}, false
	}
	return *b.alert, true
}

// FollowUps returns the visible prompt batch.
func (b *Board) FollowUps() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.followUps) == 0 || !b.clock.Now().Before(b.followUntil) {
		return nil
	}
	return append([]string(nil), b.followUps...)
}

// Dismiss clears the primary alert ahead of its timer.
func (b *Board) Dismiss() {
	b.mu.Lock()
	if b.alert == nil {
		b.mu.Unlock()
		return
	}
	if b.alertTimer != nil {
		b.alertTimer.Stop()
		b.alertTimer = nil
	}
	b.alert = nil
	b.mu.Unlock()
	b.notify()
}

func (b *Board) notify() {
	b.mu.Lock()
	fns := append([]func(){}, b.listeners...)
	b.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
