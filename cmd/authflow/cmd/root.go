package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Krishna101010101010/Bio-pay/internal/authclient"
	"github.com/Krishna101010101010/Bio-pay/internal/config"
	"github.com/Krishna101010101010/Bio-pay/internal/logging"
)

var (
	apiURL   string
	logLevel string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "authflow",
	Short: "Sign in to BioPay with mobile number, OTP and fingerprint",
	Long: `authflow walks through the BioPay sign-in flow in the terminal:
mobile number, one-time passcode, then fingerprint confirmation.
The Authentication Service is read from AUTH_API_URL unless --api-url is given.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if apiURL == "" {
			apiURL = cfg.AuthAPIURL
		}
		if logLevel == "" {
			logLevel = cfg.LogLevel
		}
		logger = logging.NewWithWriter(cmd.ErrOrStderr(), logLevel, "authflow")
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Authentication Service base URL (default AUTH_API_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default LOG_LEVEL)")
}

func newClient() (*authclient.Client, error) {
	return authclient.New(apiURL, authclient.WithTimeout(cfg.HTTPTimeout()), authclient.WithLogger(logger))
}
