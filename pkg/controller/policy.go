package controller

import "github.com/rwa-tokenizer/pkg/models"

// Actions says which lifecycle controls the detail view may offer.
type Actions struct {
	Verify   bool
	Tokenize bool
}

// EnabledActions derives the controls from the asset's confirmed state.
// Verify only while pending; tokenize only once verified and never twice.
func EnabledActions(a *models.Asset) Actions {
	if a == nil {
		return Actions{}
	}
	switch a.VerificationStatus {
	case models.StatusPending:
		return Actions{Verify: true}
	case models.StatusVerified:
		return Actions{Tokenize: !a.IsTokenized()}
	default:
		return Actions{}
	}
}
