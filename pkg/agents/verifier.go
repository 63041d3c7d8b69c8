package agents

import (
	"fmt"
	"math"
	"strings"

	"github.com/rwa-tokenizer/pkg/models"
)

const (
	VerifiedThreshold = 0.7
	ReviewThreshold   = 0.5
)

type valueRange struct{ Min, Max float64 }

var valueRanges = map[models.AssetType]valueRange{
	models.AssetRealEstate: {10_000, 1e9},
	models.AssetVehicle:    {1_000, 2e6},
	models.AssetArtwork:    {500, 1e8},
	models.AssetEquipment:  {100, 5e6},
	models.AssetCommodity:  {50, 1e7},
}

var jurisdictions = []struct {
	Code     string
	Keywords []string
}{
	{"IN", []string{"INDIA", "MUMBAI", "DELHI", "BANGALORE", "PUNE"}},
	{"US", []string{"USA", "UNITED STATES", "NEW YORK"}},
	{"UK", []string{"UNITED KINGDOM", "LONDON"}},
	{"CA", []string{"CANADA"}},
	{"EU", []string{"GERMANY", "FRANCE", "ITALY", "EUROPE"}},
	{"SG", []string{"SINGAPORE"}},
}

var specificKeywords = map[models.AssetType][]string{
	models.AssetRealEstate: {"flat", "apartment", "bedroom", "sqft", "deed"},
	models.AssetVehicle:    {"engine", "model", "mileage", "year"},
	models.AssetArtwork:    {"artist", "canvas", "painting"},
	models.AssetEquipment:  {"serial", "manufacturer", "warranty"},
	models.AssetCommodity:  {"weight", "grade", "purity"},
}

var recommendationFor = map[string]string{
	"basic_info":       "Provide a more complete asset description.",
	"value_assessment": "Provide a formal valuation or appraisal document.",
	"jurisdiction":     "Clarify the asset's location or city.",
	"asset_specific":   "Include more asset-specific details like documents, specs, or characteristics.",
}

// Verifier scores an asset with four independent checks and averages them.
type Verifier struct{}

func NewVerifier() *Verifier { return &Verifier{} }

type check struct {
	key   string
	score float64
	notes string
}

func (v *Verifier) Verify(a models.Asset) *models.VerificationResult {
	checks := []check{
		basicInfo(a),
		valueAssessment(a),
		jurisdiction(a),
		assetSpecific(a),
	}

	var sum float64
	res := &models.VerificationResult{Recommendations: []string{}}
	for _, c := range checks {
		sum += c.score
		res.AgentNotes = append(res.AgentNotes, fmt.Sprintf("%s: %s", c.key, c.notes))
		if c.score < 0.8 {
			res.Recommendations = append(res.Recommendations, recommendationFor[c.key])
		}
	}
	res.Breakdown = models.Breakdown{
		BasicInfo:       checks[0].score,
		ValueAssessment: checks[1].score,
		Jurisdiction:    checks[2].score,
		AssetSpecific:   checks[3].score,
	}
	res.OverallScore = round2(sum / float64(len(checks)))
	res.Status = string(StatusForScore(res.OverallScore))
	res.NextSteps = nextSteps(models.VerificationStatus(res.Status))
	return res
}

// StatusForScore maps an overall score onto the verification outcome.
func StatusForScore(score float64) models.VerificationStatus {
	switch {
	case score >= VerifiedThreshold:
		return models.StatusVerified
	case score >= ReviewThreshold:
		return models.StatusRequiresReview
	default:
		return models.StatusRejected
	}
}

func basicInfo(a models.Asset) check {
	var score float64
	var missing []string
	if len(strings.TrimSpace(a.Description)) > 20 {
		score += 0.3
	} else {
		missing = append(missing, "description")
	}
	if a.AssetType != "" && a.AssetType != models.AssetUnknown {
		score += 0.3
	} else {
		missing = append(missing, "asset type")
	}
	if hasLocation(a.Location) {
		score += 0.2
	} else {
		missing = append(missing, "location")
	}
	if a.EstimatedValue != nil && *a.EstimatedValue > 0 {
		score += 0.2
	} else {
		missing = append(missing, "value")
	}
	notes := "all basic fields present"
	if len(missing) > 0 {
		notes = "missing " + strings.Join(missing, ", ")
	}
	return check{"basic_info", math.Min(round2(score), 1), notes}
}

func valueAssessment(a models.Asset) check {
	r, ok := valueRanges[a.AssetType]
	if !ok {
		return check{"value_assessment", 0.5, "no reference range for asset type"}
	}
	var v float64
	if a.EstimatedValue != nil {
		v = *a.EstimatedValue
	}
	switch {
	case v < r.Min:
		return check{"value_assessment", 0.4, fmt.Sprintf("value below expected range (%.0f-%.0f)", r.Min, r.Max)}
	case v > r.Max:
		return check{"value_assessment", 0.6, fmt.Sprintf("value above expected range (%.0f-%.0f)", r.Min, r.Max)}
	default:
		return check{"value_assessment", 1.0, "value within expected range"}
	}
}

func jurisdiction(a models.Asset) check {
	if code := JurisdictionOf(a.Location); code != "" {
		return check{"jurisdiction", 0.9, "recognised jurisdiction " + code}
	}
	return check{"jurisdiction", 0.5, "jurisdiction not recognised"}
}

// JurisdictionOf returns the region code for a location, or "".
func JurisdictionOf(location string) string {
	upper := strings.ToUpper(location)
	for _, j := range jurisdictions {
		for _, kw := range j.Keywords {
			if strings.Contains(upper, kw) {
				return j.Code
			}
		}
	}
	return ""
}

func assetSpecific(a models.Asset) check {
	kws, ok := specificKeywords[a.AssetType]
	if !ok {
		return check{"asset_specific", 0.5, "no specific checks for asset type"}
	}
	d := strings.ToLower(a.Description)
	score := 0.5
	var hits []string
	for _, kw := range kws {
		if strings.Contains(d, kw) {
			score += 0.1
			hits = append(hits, kw)
		}
	}
	notes := "no type-specific details found"
	if len(hits) > 0 {
		notes = "found " + strings.Join(hits, ", ")
	}
	return check{"asset_specific", math.Min(round2(score), 1), notes}
}

func nextSteps(status models.VerificationStatus) []string {
	switch status {
	case models.StatusVerified:
		return []string{"Proceed to tokenization", "Create token on blockchain", "Generate smart contract"}
	case models.StatusRequiresReview:
		return []string{"Add more details", "Request manual review"}
	default:
		return []string{"Asset rejected", "Revise asset information"}
	}
}

func hasLocation(loc string) bool {
	loc = strings.TrimSpace(loc)
	return loc != "" && !strings.EqualFold(loc, "unknown")
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
