package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rwa-tokenizer/pkg/models"
)

var (
	// Money patterns
	currencyAmountRe = regexp.MustCompile(`(?i)(?:₹|\$|\b(?:rs\.?|inr|usd))\s*([\d,]+(?:\.\d+)?)\s*(lakhs?|lacs?|crores?|cr|k|m|mn|million|billion)?\b`)
	scaledAmountRe   = regexp.MustCompile(`(?i)\b([\d,]+(?:\.\d+)?)\s*(lakhs?|lacs?|crores?|cr|k|mn|million|billion)\b`)
	worthAmountRe    = regexp.MustCompile(`(?i)\b(?:worth|valued at|value of|value|price|priced at|cost)\s*(?:is|of|:)?\s*(?:around|about|approx\.?|approximately)?\s*([\d,]+(?:\.\d+)?)`)

	// Location patterns
	locationRe = regexp.MustCompile(`\b(?:in|at|located in|based in|near)\s+([A-Z][a-zA-Z]+(?:[ ,]+[A-Z][a-zA-Z]+){0,3})`)

	multipliers = map[string]float64{
		"k": 1e3, "m": 1e6, "mn": 1e6, "million": 1e6, "billion": 1e9,
		"lakh": 1e5, "lakhs": 1e5, "lac": 1e5, "lacs": 1e5,
		"crore": 1e7, "crores": 1e7, "cr": 1e7,
	}

	// Ordered: the first type with a keyword hit wins.
	typeKeywords = []struct {
		Type     models.AssetType
		Keywords []string
	}{
		{models.AssetRealEstate, []string{"apartment", "flat", "bedroom", "sqft", "deed", "property", "house"}},
		{models.AssetVehicle, []string{"engine", "model", "mileage", "car", "vehicle", "truck", "bike"}},
		{models.AssetArtwork, []string{"artist", "painting", "canvas", "sculpture", "artwork"}},
		{models.AssetEquipment, []string{"serial", "manufacturer", "warranty", "equipment", "machine"}},
		{models.AssetCommodity, []string{"weight", "grade", "purity", "commodity", "gold", "silver", "oil"}},
	}

	// Words that follow "in"/"at" but are not places.
	locationStopwords = map[string]bool{
		"Good": true, "Excellent": true, "Mint": true, "The": true, "My": true, "Our": true,
	}
)

// Extraction is the structured reading of a free-text asset description.
type Extraction struct {
	AssetType      models.AssetType `json:"asset_type"`
	EstimatedValue *float64         `json:"estimated_value"`
	Location       string           `json:"location"`
	Description    string           `json:"description"`
	Source         string           `json:"source"` // "llm" or "rules"
}

type Extractor struct {
	llm *LLM
}

// NewExtractor uses llm when it is enabled; nil is allowed.
func NewExtractor(llm *LLM) *Extractor {
	return &Extractor{llm: llm}
}

// Extract never fails: a model error falls back to keyword rules.
func (e *Extractor) Extract(ctx context.Context, input string) Extraction {
	if e.llm.Enabled() {
		ex, err := e.extractWithLLM(ctx, input)
		if err == nil {
			return ex
		}
		log.Warn().Err(err).Msg("⚠️ LLM extraction failed, using keyword rules")
	}
	return ExtractRules(input)
}

const extractPrompt = `You extract structured information from asset descriptions.
Return the following fields as JSON:
- asset_type: one of [real_estate, vehicle, artwork, equipment, commodity]
- estimated_value: a number (INR preferred, USD if only that is given), no commas or currency symbol
- location: city or region, as precise as possible (e.g. "Bandra, Mumbai, India")
- description: the original user input

USER INPUT:
"""%s"""

Return only valid JSON:
{"asset_type": "...", "estimated_value": 0, "location": "...", "description": "..."}`

func (e *Extractor) extractWithLLM(ctx context.Context, input string) (Extraction, error) {
	raw, err := e.llm.Complete(ctx, fmt.Sprintf(extractPrompt, input))
	if err != nil {
		return Extraction{}, err
	}

	var out struct {
		AssetType      string          `json:"asset_type"`
		EstimatedValue json.RawMessage `json:"estimated_value"`
		Location       string          `json:"location"`
		Description    string          `json:"description"`
	}
	if err := json.Unmarshal(extractJSON(raw), &out); err != nil {
		return Extraction{}, fmt.Errorf("parse model output: %w", err)
	}

	ex := Extraction{
		AssetType:   normalizeType(out.AssetType),
		Location:    strings.TrimSpace(out.Location),
		Description: strings.TrimSpace(out.Description),
		Source:      "llm",
	}
	if ex.Description == "" {
		ex.Description = input
	}
	if ex.AssetType == models.AssetUnknown {
		ex.AssetType = FallbackAssetType(ex.Description)
	}
	if v, ok := parseModelNumber(out.EstimatedValue); ok {
		ex.EstimatedValue = &v
	} else {
		ex.EstimatedValue = ExtractValue(input)
	}
	if ex.Location == "" {
		ex.Location = ExtractLocation(input)
	}
	return ex, nil
}

// ExtractRules reads the description with keywords and patterns only.
func ExtractRules(input string) Extraction {
	return Extraction{
		AssetType:      FallbackAssetType(input),
		EstimatedValue: ExtractValue(input),
		Location:       ExtractLocation(input),
		Description:    input,
		Source:         "rules",
	}
}

// FallbackAssetType maps description keywords to an asset type.
func FallbackAssetType(description string) models.AssetType {
	d := strings.ToLower(description)
	for _, tk := range typeKeywords {
		for _, kw := range tk.Keywords {
			if strings.Contains(d, kw) {
				return tk.Type
			}
		}
	}
	return models.AssetUnknown
}

// ExtractValue finds the first monetary amount; nil when none is stated.
func ExtractValue(input string) *float64 {
	for _, re := range []*regexp.Regexp{currencyAmountRe, scaledAmountRe, worthAmountRe} {
		m := re.FindStringSubmatch(input)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil || v <= 0 {
			continue
		}
		if len(m) > 2 && m[2] != "" {
			v *= multipliers[strings.ToLower(m[2])]
		}
		return &v
	}
	return nil
}

// ExtractLocation finds a place named after "in"/"at", or a known city.
func ExtractLocation(input string) string {
	for _, m := range locationRe.FindAllStringSubmatch(input, -1) {
		loc := strings.Trim(m[1], " ,")
		first := strings.Fields(loc)[0]
		if locationStopwords[first] {
			continue
		}
		return loc
	}
	upper := strings.ToUpper(input)
	for _, j := range jurisdictions {
		for _, kw := range j.Keywords {
			if strings.Contains(upper, kw) {
				return cases.Title(language.English).String(kw)
			}
		}
	}
	return "unknown"
}

func normalizeType(s string) models.AssetType {
	t := models.AssetType(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "_")))
	for _, known := range models.AllAssetTypes() {
		if t == known {
			return t
		}
	}
	return models.AssetUnknown
}

// parseModelNumber accepts a JSON number or a numeric string.
func parseModelNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, f > 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		return f, err == nil && f > 0
	}
	return 0, false
}
