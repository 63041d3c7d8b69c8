package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rwa-tokenizer/pkg/controller"
	"github.com/rwa-tokenizer/pkg/models"
	"github.com/rwa-tokenizer/pkg/view"
)

var (
	submitEmail   string
	tokenizeForce bool
)

// printer is the one-shot notifier: every notice is written immediately.
type printer struct{}

var levelColors = map[view.Color]*color.Color{
	view.ColorSuccess:   color.New(color.FgGreen, color.Bold),
	view.ColorDanger:    color.New(color.FgRed, color.Bold),
	view.ColorWarning:   color.New(color.FgYellow, color.Bold),
	view.ColorInfo:      color.New(color.FgCyan, color.Bold),
	view.ColorPrimary:   color.New(color.FgBlue, color.Bold),
	view.ColorSecondary: color.New(color.FgHiBlack),
}

func (printer) print(n view.Notice) {
	c, ok := levelColors[n.Level]
	if !ok {
		c = levelColors[view.ColorSecondary]
	}
	c.Println(n.Title)
	for _, l := range n.Lines {
		fmt.Println("  " + l)
	}
}

func (p printer) Alert(level view.Color, msg string) { p.print(view.AlertNotice(level, msg)) }

func (p printer) Verification(vr *models.VerificationResult) {
	p.print(view.VerificationNotice(vr))
}

func (p printer) Tokenization(tr *models.TokenizationResult) {
	p.print(view.TokenizationNotice(tr))
}

func (printer) ShowFollowUps(questions []string) {
	if len(questions) == 0 {
		return
	}
	c := color.New(color.FgCyan)
	for _, l := range view.FollowUpLines(questions) {
		c.Println(l)
	}
}

func newController() *controller.Controller {
	ctrl := controller.New(client, printer{})
	ctrl.SetForm(controller.Form{Wallet: cfg.Wallet})
	return ctrl
}

var submitCmd = &cobra.Command{
	Use:   "submit <description>",
	Short: "Submit an asset description for intake",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := newController()
		desc := strings.Join(args, " ")
		if _, err := ctrl.SubmitAsset(cmd.Context(), cfg.Wallet, desc, submitEmail); err != nil {
			return err
		}
		fmt.Println()
		view.RenderAssetList(os.Stdout, ctrl.Snapshot().Assets, cfg.CurrencyUnit, 0)
		return nil
	},
}

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "List the wallet's assets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := newController()
		assets, err := ctrl.RefreshAssets(cmd.Context(), cfg.Wallet)
		if err != nil {
			printer{}.Alert(view.ColorDanger, "Failed to load assets")
			return err
		}
		color.New(color.Bold).Printf("📋 Assets for %s\n\n", view.ShortWallet(cfg.Wallet))
		view.RenderAssetList(os.Stdout, assets, cfg.CurrencyUnit, -1)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <asset-id>",
	Short: "Show an asset with its verification and history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := newController()
		if _, err := ctrl.SelectAsset(cmd.Context(), models.AssetID(args[0])); err != nil {
			return err
		}
		fmt.Println(renderSelected(ctrl))
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <asset-id>",
	Short: "Run verification for an asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := newController()
		if _, err := ctrl.SelectAsset(cmd.Context(), models.AssetID(args[0])); err != nil {
			return err
		}
		snap := ctrl.Snapshot()
		if !snap.Actions.Verify {
			return fmt.Errorf("verification is not available for an asset in status %q", snap.Asset.VerificationStatus)
		}
		_, err := ctrl.VerifyCurrentAsset(cmd.Context())
		return err
	},
}

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize <asset-id>",
	Short: "Mint a token for a verified asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := newController()
		if _, err := ctrl.SelectAsset(cmd.Context(), models.AssetID(args[0])); err != nil {
			return err
		}
		snap := ctrl.Snapshot()
		if !snap.Actions.Tokenize && !tokenizeForce {
			return fmt.Errorf("tokenization is not available for an asset in status %q (use --force to ask the service anyway)", snap.Asset.VerificationStatus)
		}
		_, err := ctrl.TokenizeCurrentAsset(cmd.Context())
		return err
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show service-wide counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := newController().RefreshStats(cmd.Context())
		if err != nil {
			printer{}.Alert(view.ColorDanger, "Failed to load stats")
			return err
		}
		view.RenderStats(os.Stdout, stats)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the service is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := client.Health(cmd.Context())
		if err != nil {
			printer{}.Alert(view.ColorDanger, "Service unavailable")
			return err
		}
		printer{}.Alert(view.ColorSuccess, fmt.Sprintf("✅ %s (version %s, %s)", h.Status, h.Version, h.Timestamp))
		return nil
	},
}

func init() {
	submitCmd.Flags().StringVar(&submitEmail, "email", "", "contact email stored with the wallet")
	tokenizeCmd.Flags().BoolVar(&tokenizeForce, "force", false, "send the request even when the asset is not eligible")
}

func renderSelected(ctrl *controller.Controller) string {
	snap := ctrl.Snapshot()
	return view.RenderDetail(view.Detail{
		Asset:        *snap.Asset,
		Transactions: snap.Transactions,
		Verification: snap.Verification,
		CanVerify:    snap.Actions.Verify,
		CanTokenize:  snap.Actions.Tokenize,
	}, cfg.CurrencyUnit)
}
