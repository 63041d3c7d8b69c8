package view

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/rwa-tokenizer/pkg/models"
)

// Color is a badge colour class.
type Color string

const (
	ColorWarning   Color = "warning"
	ColorSuccess   Color = "success"
	ColorDanger    Color = "danger"
	ColorInfo      Color = "info"
	ColorSecondary Color = "secondary"
	ColorPrimary   Color = "primary"
)

var badgeStyles = map[Color]lipgloss.Style{
	ColorWarning:   badge("#F0AD4E", "#1A1A1A"),
	ColorSuccess:   badge("#198754", "#FFFFFF"),
	ColorDanger:    badge("#DC3545", "#FFFFFF"),
	ColorInfo:      badge("#0DCAF0", "#1A1A1A"),
	ColorSecondary: badge("#6C757D", "#FFFFFF"),
	ColorPrimary:   badge("#0D6EFD", "#FFFFFF"),
}

func badge(bg, fg string) lipgloss.Style {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(bg)).
		Foreground(lipgloss.Color(fg)).
		Padding(0, 1).
		Bold(true)
}

// Style returns the badge style; unknown colours fall back to secondary.
func (c Color) Style() lipgloss.Style {
	if s, ok := badgeStyles[c]; ok {
		return s
	}
	return badgeStyles[ColorSecondary]
}

// Badge renders text in the colour class for status.
func Badge(status string) string {
	return StatusColor(status).Style().Render(status)
}

// StatusColor covers both verification and transaction statuses.
func StatusColor(status string) Color {
	switch status {
	case "pending":
		return ColorWarning
	case "verified", "completed":
		return ColorSuccess
	case "rejected", "failed":
		return ColorDanger
	case "requires_review":
		return ColorInfo
	default:
		return ColorSecondary
	}
}

func AssetTypeIcon(t models.AssetType) string {
	switch t {
	case models.AssetRealEstate:
		return "🏠"
	case models.AssetVehicle:
		return "🚗"
	case models.AssetArtwork:
		return "🎨"
	case models.AssetEquipment:
		return "⚙️"
	case models.AssetCommodity:
		return "📦"
	case models.AssetUnknown:
		return "❓"
	default:
		return "📄"
	}
}

// AssetTypeLabel turns real_estate into "real estate".
func AssetTypeLabel(t models.AssetType) string {
	if t == "" {
		return string(models.AssetUnknown)
	}
	return strings.ReplaceAll(string(t), "_", " ")
}

var printer = message.NewPrinter(language.English)

// FormatCurrency groups digits the en-US way and appends unit. A missing
// value renders as "N/A <unit>".
func FormatCurrency(v *float64, unit string) string {
	s := "N/A"
	if v != nil {
		s = printer.Sprint(number.Decimal(*v, number.MaxFractionDigits(3)))
	}
	if unit == "" {
		return s
	}
	return s + " " + unit
}

// Truncate cuts s to n runes and appends "..." only when something was cut.
func Truncate(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// ShortHash keeps the first 16 characters of a hash.
func ShortHash(h string) string {
	if h == "" {
		return ""
	}
	return Truncate(h, 16)
}

// ShortWallet renders 0x742d...def0.
func ShortWallet(w string) string {
	if utf8.RuneCountInString(w) <= 10 {
		return w
	}
	r := []rune(w)
	return string(r[:6]) + "..." + string(r[len(r)-4:])
}

// FormatScore renders a 0..1 score as a one-decimal percentage.
func FormatScore(score float64) string {
	return fmt.Sprintf("%.1f%%", score*100)
}
