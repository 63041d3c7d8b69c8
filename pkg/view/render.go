package view

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/rwa-tokenizer/pkg/models"
)

const (
	EmptyAssetsMessage       = "No assets found. Submit your first asset above!"
	NoVerificationMessage    = "No verification results available for this asset."
	NoTransactionsMessage    = "No transactions yet"
	DescriptionPreviewLength = 80
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D"))
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#D63384"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	enabledBtn   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#0D6EFD")).Padding(0, 1)
	disabledBtn  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D")).Strikethrough(true).Padding(0, 1)
)

// Detail is everything the detail view shows for the selected asset.
type Detail struct {
	Asset        models.Asset
	Transactions []models.Transaction
	Verification *models.VerificationResult
	CanVerify    bool
	CanTokenize  bool
	Busy         bool // an action for this asset is in flight
}

// RenderAssetList writes the wallet's assets as a table, or the empty-state
// line. selected marks a row; pass -1 for none.
func RenderAssetList(w io.Writer, assets []models.Asset, unit string, selected int) {
	if len(assets) == 0 {
		fmt.Fprintln(w, mutedStyle.Render(EmptyAssetsMessage))
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"", "ID", "Type", "Description", "Value", "Status", "Token"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(true)
	table.SetColumnSeparator(" ")
	for i, a := range assets {
		marker := " "
		if i == selected {
			marker = "▸"
		}
		token := ""
		if a.IsTokenized() {
			token = "Tokenized"
		}
		table.Append([]string{
			marker,
			a.ID.String(),
			AssetTypeIcon(a.AssetType) + " " + strings.ToUpper(AssetTypeLabel(a.AssetType)),
			Truncate(a.Description, DescriptionPreviewLength),
			FormatCurrency(a.EstimatedValue, unit),
			string(a.VerificationStatus),
			token,
		})
	}
	table.Render()
}

// RenderStats writes the four dashboard counters.
func RenderStats(w io.Writer, s *models.Stats) {
	var st models.Stats
	if s != nil {
		st = *s
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Total Assets", "Verified", "Tokenized", "Users"})
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.Append([]string{
		strconv.FormatInt(st.TotalAssets, 10),
		strconv.FormatInt(st.VerifiedAssets, 10),
		strconv.FormatInt(st.TokenizedAssets, 10),
		strconv.FormatInt(st.TotalUsers, 10),
	})
	table.Render()
}

// RenderDetail lays out the verification summary, asset information,
// transaction history and the action bar.
func RenderDetail(d Detail, unit string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s Asset #%s", AssetTypeIcon(d.Asset.AssetType), d.Asset.ID)))
	b.WriteString("\n\n")

	if vr := d.Verification; vr != nil {
		var v strings.Builder
		fmt.Fprintf(&v, "Verification Score: %s\n", FormatScore(vr.OverallScore))
		fmt.Fprintf(&v, "Status: %s\n", Badge(vr.Status))
		v.WriteString("Breakdown:\n")
		fmt.Fprintf(&v, "  • Basic Info: %s\n", formatRaw(vr.Breakdown.BasicInfo))
		fmt.Fprintf(&v, "  • Value Assessment: %s\n", formatRaw(vr.Breakdown.ValueAssessment))
		fmt.Fprintf(&v, "  • Jurisdiction: %s\n", formatRaw(vr.Breakdown.Jurisdiction))
		fmt.Fprintf(&v, "  • Asset Specific: %s", formatRaw(vr.Breakdown.AssetSpecific))
		if len(vr.Recommendations) > 0 {
			v.WriteString("\nRecommendations:")
			for _, r := range vr.Recommendations {
				v.WriteString("\n  • " + r)
			}
		}
		b.WriteString(boxStyle.BorderForeground(lipgloss.Color("#0DCAF0")).Render(v.String()))
	} else {
		b.WriteString(boxStyle.BorderForeground(lipgloss.Color("#F0AD4E")).Render(NoVerificationMessage))
	}
	b.WriteString("\n\n")

	a := d.Asset
	b.WriteString(sectionStyle.Render("Asset Information"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Type:     %s\n", AssetTypeLabel(a.AssetType))
	fmt.Fprintf(&b, "Value:    %s\n", FormatCurrency(a.EstimatedValue, unit))
	fmt.Fprintf(&b, "Location: %s\n", a.Location)
	fmt.Fprintf(&b, "Status:   %s\n", Badge(string(a.VerificationStatus)))
	fmt.Fprintf(&b, "Created:  %s\n", formatDate(a.CreatedAt))
	if a.IsTokenized() {
		fmt.Fprintf(&b, "Token ID: %s\n", codeStyle.Render(*a.TokenID))
	}
	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Description"))
	b.WriteString("\n")
	b.WriteString(a.Description)
	b.WriteString("\n\n")

	b.WriteString(sectionStyle.Render("Transaction History"))
	b.WriteString("\n")
	if len(d.Transactions) == 0 {
		b.WriteString(mutedStyle.Render(NoTransactionsMessage))
		b.WriteString("\n")
	}
	for _, tx := range d.Transactions {
		fmt.Fprintf(&b, "%-14s %s  %s\n", tx.TransactionType, Badge(tx.Status), mutedStyle.Render(formatDate(tx.CreatedAt)))
		if tx.TransactionHash != nil && *tx.TransactionHash != "" {
			fmt.Fprintf(&b, "  Hash: %s\n", codeStyle.Render(ShortHash(*tx.TransactionHash)))
		}
	}
	b.WriteString("\n")

	b.WriteString(actionBar(d))
	return b.String()
}

func actionBar(d Detail) string {
	verify := disabledBtn.Render("[v] Verify")
	if d.CanVerify && !d.Busy {
		verify = enabledBtn.Render("[v] Verify")
	}
	tokenize := disabledBtn.Render("[t] Tokenize")
	if d.CanTokenize && !d.Busy {
		tokenize = enabledBtn.Render("[t] Tokenize")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, verify, " ", tokenize, " ", mutedStyle.Render("[esc] Close"))
}

func formatRaw(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatDate(ts models.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Format("2006-01-02")
}
