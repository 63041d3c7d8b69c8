package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rwa-tokenizer/pkg/api"
	"github.com/rwa-tokenizer/pkg/config"
	"github.com/rwa-tokenizer/pkg/controller"
	"github.com/rwa-tokenizer/pkg/tui"
	"github.com/rwa-tokenizer/pkg/view"
)

type globalFlags struct {
	APIURL string
	Wallet string
	Unit   string
}

var (
	flags  globalFlags
	cfg    *config.Client
	client *api.Client
)

var rootCmd = &cobra.Command{
	Use:   "rwactl",
	Short: "Submit, verify and tokenize real-world assets",
	Long: `rwactl is the client for the RWA tokenizer service.

Without a subcommand it opens the interactive dashboard. The subcommands
run a single operation and print the result:
  rwactl submit "2BHK flat in Bandra, Mumbai worth 1.5 crore"
  rwactl assets
  rwactl verify 12
  rwactl tokenize 12`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadClient()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if flags.APIURL != "" {
			cfg.APIURL = flags.APIURL
		}
		if flags.Wallet != "" {
			cfg.Wallet = flags.Wallet
		}
		if flags.Unit != "" {
			cfg.CurrencyUnit = flags.Unit
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		setupLogging(os.Stderr)
		client = api.NewClient(cfg.APIURL)
		return nil
	},
	RunE:          runDashboard,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.APIURL, "api", "", "service base URL (default $RWA_API_URL or http://localhost:5000)")
	rootCmd.PersistentFlags().StringVar(&flags.Wallet, "wallet", "", "wallet address (default $RWA_WALLET)")
	rootCmd.PersistentFlags().StringVar(&flags.Unit, "unit", "", "currency unit shown next to values (default $CURRENCY_UNIT or INR)")

	rootCmd.AddCommand(submitCmd, assetsCmd, showCmd, verifyCmd, tokenizeCmd, statsCmd, healthCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Service failures were already shown as notices.
		if !api.IsApplication(err) && !api.IsTransport(err) {
			color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// setupLogging sends console logs to w. The dashboard owns the terminal, so
// in that mode w is the log file.
func setupLogging(w io.Writer) {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: w != os.Stderr}).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(config.Level(cfg.LogLevel))
}

func runDashboard(cmd *cobra.Command, args []string) error {
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	setupLogging(f)
	client = api.NewClient(cfg.APIURL)

	board := view.NewBoard(view.WithAlertTTL(cfg.AlertTTL), view.WithFollowUpTTL(cfg.FollowUpTTL))
	ctrl := controller.New(client, board)
	ctrl.SetForm(controller.Form{Wallet: cfg.Wallet})

	if cfg.StatsSchedule != "" {
		sched, err := controller.NewScheduler(ctrl, cfg.StatsSchedule)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	log.Info().Str("api", cfg.APIURL).Str("wallet", cfg.Wallet).Msg("🖥️ dashboard starting")
	return tui.Run(cmd.Context(), ctrl, board, cfg.CurrencyUnit)
}
