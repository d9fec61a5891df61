package main

import (
	"fmt"
	"io"

	"wallet_tracker/internal/app/bootstrap"
	"wallet_tracker/internal/infrastructure/configloader"
	"wallet_tracker/internal/pkg/logger"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
	verbose    bool
	asJSON     bool

	app *bootstrap.App
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "walletctl",
		Short: "Inspect wallets on Ethereum, Polygon and Arbitrum",
		Long: `walletctl queries balances, tokens and transaction history through the same
adapters and services the wallet tracker API uses.

Examples:
  walletctl networks
  walletctl balance ethereum 0x1234...
  walletctl history polygon 0x1234... --limit 10 --type receive
  walletctl tx arbitrum 0xabcd...
  walletctl portfolio 0x1234... --networks ethereum,arbitrum`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if opts.app != nil {
				return opts.app.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", configloader.Path(), "config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print JSON instead of tables")

	root.AddCommand(
		newNetworksCmd(opts),
		newBalanceCmd(opts),
		newTokensCmd(opts),
		newHistoryCmd(opts),
		newTxCmd(opts),
		newTokenCmd(opts),
		newPortfolioCmd(opts),
	)
	return root
}

func (o *rootOptions) init(cmd *cobra.Command) error {
	if !o.verbose {
		logrus.SetOutput(io.Discard)
	}
	if err := configloader.LoadEnv(); err != nil {
		return err
	}
	cfg, err := configloader.Load(o.configPath)
	if err != nil {
		return err
	}

	z := zap.NewNop()
	if o.verbose {
		if z, err = logger.NewZap(cfg.Logging.Level, "console"); err != nil {
			return err
		}
	}
	logger.InitSlog(z)

	o.app, err = bootstrap.Build(cmd.Context(), cfg, z)
	return err
}

func (o *rootOptions) printJSON(w io.Writer, v any) error {
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func stdout(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
