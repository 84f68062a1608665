// stakepotd runs the escrow ledger as an ABCI application behind a CometBFT
// node. State is persisted under <home>/app.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cosmossdk.io/log"
	"github.com/cometbft/cometbft/abci/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stakepot/internal/app"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "stakepotd: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stakepotd",
		Short: "stakepot escrow ledger (ABCI application)",
		RunE:  runServer,
	}

	cmd.Flags().String("home", ".stakepot", "app home directory (state stored under <home>/app)")
	cmd.Flags().String("addr", "tcp://127.0.0.1:26658", "ABCI listen address")
	cmd.Flags().String("transport", "socket", "ABCI transport (socket|grpc)")
	cmd.Flags().String("log-level", "info", "log level (debug|info|warn|error)")

	return cmd
}

// runServer resolves settings (flags over STAKEPOT_* env vars), starts the
// ABCI server and blocks until SIGINT/SIGTERM.
func runServer(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	v.SetEnvPrefix("STAKEPOT")
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	logger, err := buildLogger(v.GetString("log-level"))
	if err != nil {
		return err
	}

	home := v.GetString("home")
	a, err := app.New(home, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	addr := v.GetString("addr")
	srv, err := server.NewServer(addr, v.GetString("transport"), a)
	if err != nil {
		return fmt.Errorf("build abci server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start abci server: %w", err)
	}
	defer func() { _ = srv.Stop() }()

	logger.Info("abci server listening", "addr", addr, "home", home)

	// Wait for signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())
	return nil
}

func buildLogger(level string) (log.Logger, error) {
	filter, err := log.ParseLogLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	return log.NewLogger(os.Stderr, log.FilterOption(filter)), nil
}
