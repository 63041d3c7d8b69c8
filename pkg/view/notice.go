package view

import (
	"fmt"
	"strings"

	"github.com/rwa-tokenizer/pkg/models"
)

// Notice is one transient message for the primary alert slot.
type Notice struct {
	Level Color
	Title string
	Lines []string
}

// Text flattens the notice for plain output.
func (n Notice) Text() string {
	if len(n.Lines) == 0 {
		return n.Title
	}
	return n.Title + "\n" + strings.Join(n.Lines, "\n")
}

// Render styles the notice with its level colour.
func (n Notice) Render() string {
	title := n.Level.Style().Render(n.Title)
	if len(n.Lines) == 0 {
		return title
	}
	return boxStyle.BorderForeground(n.Level.Style().GetBackground()).Render(title + "\n" + strings.Join(n.Lines, "\n"))
}

func AlertNotice(level Color, msg string) Notice {
	return Notice{Level: level, Title: msg}
}

func VerificationNotice(vr *models.VerificationResult) Notice {
	n := Notice{Level: ColorInfo, Title: "🔍 Verification Results"}
	if vr == nil {
		return n
	}
	n.Lines = append(n.Lines,
		"Overall Score: "+FormatScore(vr.OverallScore),
		"Status: "+vr.Status,
	)
	if len(vr.Recommendations) > 0 {
		n.Lines = append(n.Lines, "Recommendations:")
		for _, r := range vr.Recommendations {
			n.Lines = append(n.Lines, "  • "+r)
		}
	}
	return n
}

func TokenizationNotice(tr *models.TokenizationResult) Notice {
	n := Notice{Level: ColorSuccess, Title: "🎉 Tokenization Successful!"}
	if tr == nil {
		return n
	}
	n.Lines = append(n.Lines,
		"Token ID: "+tr.TokenID,
		"Contract: "+tr.ContractAddress,
		"Transaction: "+tr.TransactionHash,
		fmt.Sprintf("Network: %s", tr.Network),
	)
	return n
}

// FollowUpLines prefixes each question the way the prompt panel shows them.
func FollowUpLines(questions []string) []string {
	out := make([]string, 0, len(questions))
	for _, q := range questions {
		out = append(out, "💭 "+q)
	}
	return out
}
