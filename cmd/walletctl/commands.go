package main

import (
	"fmt"
	"strings"
	"time"

	"wallet_tracker/internal/domain/entity"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newNetworksCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List supported networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := stdout(cmd)
			var defs []entity.NetworkDefinition
			for _, src := range opts.app.Sources.All() {
				defs = append(defs, src.Definition())
			}
			if opts.asJSON {
				return opts.printJSON(w, defs)
			}
			for _, d := range defs {
				explorer := color.YellowString("rpc scan only")
				if ex, ok := opts.app.Explorers.Explorer(d.Identifier); ok && ex.Configured() {
					explorer = color.GreenString("explorer")
				}
				fmt.Fprintf(w, "%-10s chain %-6d %-5s %s\n", color.CyanString(d.Identifier), d.ChainID, d.NativeCurrency.Symbol, explorer)
			}
			return nil
		},
	}
}

func newBalanceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <network> <address>",
		Short: "Show native balance, tokens and recent transactions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := opts.app.Sources.Get(args[0])
			if err != nil {
				return err
			}
			data, err := src.GetWalletBalance(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			w := stdout(cmd)
			if opts.asJSON {
				return opts.printJSON(w, data)
			}
			native := src.Definition().NativeCurrency.Symbol
			fmt.Fprintf(w, "%s on %s\n", color.CyanString(data.Address), data.Network)
			fmt.Fprintf(w, "  %s %s ($%.2f)\n", data.Balance.Native, native, data.Balance.USD)
			printTokens(cmd, data.Tokens)
			fmt.Fprintf(w, "  total: %s\n", color.GreenString("$%.2f", data.TotalValueUSD))
			printTransactions(cmd, data.Transactions)
			return nil
		},
	}
}

func newTokensCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <network> <address>",
		Short: "Show non-zero registry token balances",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := opts.app.Sources.Get(args[0])
			if err != nil {
				return err
			}
			tokens, err := src.GetTokenBalances(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if opts.asJSON {
				return opts.printJSON(stdout(cmd), tokens)
			}
			printTokens(cmd, tokens)
			return nil
		},
	}
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		limit, page  int
		txType       string
		since, until string
		transfers    bool
	)
	cmd := &cobra.Command{
		Use:   "history <network> <address>",
		Short: "Show paginated transaction history",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if transfers {
				src, err := opts.app.Sources.Get(args[0])
				if err != nil {
					return err
				}
				txs, err := src.GetTokenTransfers(ctx, args[1], limit)
				if err != nil {
					return err
				}
				if opts.asJSON {
					return opts.printJSON(stdout(cmd), txs)
				}
				printTransactions(cmd, txs)
				return nil
			}

			svc, ok := opts.app.Transactions[strings.ToLower(args[0])]
			if !ok {
				return entity.NotFound("network", "unsupported network %q", args[0])
			}

			var (
				result *entity.TransactionPage
				err    error
			)
			switch {
			case txType != "":
				t, valid := entity.ParseTxType(txType)
				if !valid {
					return fmt.Errorf("unknown transaction type %q", txType)
				}
				result, err = svc.GetTransactionsByType(ctx, args[1], t, limit, page)
			case since != "" || until != "":
				start, perr := parseDate(since, time.Unix(0, 0))
				if perr != nil {
					return perr
				}
				end, perr := parseDate(until, time.Now())
				if perr != nil {
					return perr
				}
				result, err = svc.GetTransactionsByDateRange(ctx, args[1], start, end, limit, page)
			default:
				result, err = svc.GetTransactionHistory(ctx, args[1], limit, page)
			}
			if err != nil {
				return err
			}
			if opts.asJSON {
				return opts.printJSON(stdout(cmd), result)
			}
			printTransactions(cmd, result.Transactions)
			p := result.Pagination
			fmt.Fprintf(stdout(cmd), "page %d, %d per page, %d total, more: %t\n", p.Page, p.Limit, p.Total, p.HasMore)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "transactions per page")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")
	cmd.Flags().StringVarP(&txType, "type", "t", "", "send or receive")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&until, "until", "", "end date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().BoolVar(&transfers, "tokens", false, "show ERC-20 transfers from the explorer instead")
	return cmd
}

func newTxCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tx <network> <hash>",
		Short: "Show one transaction with its receipt status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, ok := opts.app.Transactions[strings.ToLower(args[0])]
			if !ok {
				return entity.NotFound("network", "unsupported network %q", args[0])
			}
			tx, err := svc.GetTransactionDetails(cmd.Context(), args[1], args[0])
			if err != nil {
				return err
			}
			if opts.asJSON {
				return opts.printJSON(stdout(cmd), tx)
			}
			w := stdout(cmd)
			fmt.Fprintf(w, "hash:          %s\n", tx.Hash)
			fmt.Fprintf(w, "status:        %s\n", statusString(tx.Status))
			fmt.Fprintf(w, "block:         %d (%d confirmations)\n", tx.BlockNumber, tx.Confirmations)
			fmt.Fprintf(w, "from:          %s\n", tx.From)
			fmt.Fprintf(w, "to:            %s\n", tx.To)
			fmt.Fprintf(w, "value:         %s\n", tx.Value)
			if tx.GasUsed != "" {
				fmt.Fprintf(w, "gas used:      %s\n", tx.GasUsed)
			}
			if tx.Timestamp > 0 {
				fmt.Fprintf(w, "time:          %s\n", time.UnixMilli(tx.Timestamp).UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token <network> <contract>",
		Short: "Read ERC-20 metadata from a contract",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, ok := opts.app.Networks.GetNetworkDefinitionByName(args[0])
			if !ok {
				return entity.NotFound("network", "unsupported network %q", args[0])
			}
			reader, err := opts.app.Readers.GetClient(def)
			if err != nil {
				return err
			}
			meta, err := reader.GetTokenMetadata(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if opts.asJSON {
				return opts.printJSON(stdout(cmd), meta)
			}
			fmt.Fprintf(stdout(cmd), "%s (%s), %d decimals\n", color.CyanString(meta.Symbol), meta.Name, meta.Decimals)
			return nil
		},
	}
}

func newPortfolioCmd(opts *rootOptions) *cobra.Command {
	var networks string
	cmd := &cobra.Command{
		Use:   "portfolio <address>",
		Short: "Aggregate one wallet across networks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var selected []string
			if networks != "" {
				selected = strings.Split(networks, ",")
			}
			p, err := opts.app.Portfolio.GetPortfolio(cmd.Context(), args[0], selected)
			if err != nil {
				return err
			}
			w := stdout(cmd)
			if opts.asJSON {
				return opts.printJSON(w, p)
			}
			for id, data := range p.Networks {
				fmt.Fprintf(w, "%-10s %s\n", color.CyanString(id), color.GreenString("$%.2f", data.TotalValueUSD))
			}
			for _, e := range p.Errors {
				fmt.Fprintf(w, "%-10s %s\n", color.CyanString(e.Network), color.RedString("%s: %s", e.Kind, e.Message))
			}
			fmt.Fprintf(w, "total      %s\n", color.GreenString("$%.2f", p.TotalValueUSD))
			return nil
		},
	}
	cmd.Flags().StringVarP(&networks, "networks", "n", "", "comma separated networks (default all)")
	return cmd
}

func printTokens(cmd *cobra.Command, tokens []entity.TokenBalance) {
	w := stdout(cmd)
	if len(tokens) == 0 {
		fmt.Fprintln(w, "  no token balances")
		return
	}
	for _, t := range tokens {
		fmt.Fprintf(w, "  %-8s %s ($%.2f)\n", color.CyanString(t.Symbol), t.Balance, t.ValueUSD)
	}
}

func printTransactions(cmd *cobra.Command, txs []entity.Transaction) {
	w := stdout(cmd)
	if len(txs) == 0 {
		fmt.Fprintln(w, "  no transactions")
		return
	}
	for _, tx := range txs {
		direction := color.RedString("send   ")
		if tx.Type == entity.TxTypeReceive {
			direction = color.GreenString("receive")
		}
		symbol := tx.TokenSymbol
		if symbol == "" {
			symbol = "native"
		}
		fmt.Fprintf(w, "  %s %s %s %s %s\n", direction, shortHash(tx.Hash), tx.Value, symbol, statusString(tx.Status))
	}
}

func statusString(s entity.TxStatus) string {
	switch s {
	case entity.TxStatusConfirmed:
		return color.GreenString(string(s))
	case entity.TxStatusFailed:
		return color.RedString(string(s))
	}
	return color.YellowString(string(s))
}

func shortHash(h string) string {
	if len(h) <= 14 {
		return h
	}
	return h[:8] + "…" + h[len(h)-4:]
}

func parseDate(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}
