package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xraph/saleledger"
	"github.com/xraph/saleledger/journal"
	"github.com/xraph/saleledger/token"
	"github.com/xraph/saleledger/types"
)

// ──────────────────────────────────────────────────
// init
// ──────────────────────────────────────────────────

var initFlags struct {
	owner        string
	prefix       string
	maxSupply    uint64
	presaleStart string
	saleStart    string
	presalePrice string
	salePrice    string
	data         string
	deposits     bool
	force        bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a sale and write the sale file",
	Long: `Creates the sale with its fixed terms and writes the sale file.
Phase breakpoints accept unix seconds or RFC 3339 timestamps.

Example:
  saleledger init --owner 0xabc --max-supply 6 \
    --presale-start 2022-06-25T00:00:00Z --sale-start 2022-06-26T00:00:00Z \
    --presale-price 0.5 --sale-price 0.6 --prefix ipfs://folder/`,
	RunE: runInit,
}

func init() {
	f := initCmd.Flags()
	f.StringVar(&initFlags.owner, "owner", "", "Initial owner address")
	f.StringVar(&initFlags.prefix, "prefix", "", "Asset locator prefix for token URIs")
	f.Uint64Var(&initFlags.maxSupply, "max-supply", 0, "Number of tokens for sale")
	f.StringVar(&initFlags.presaleStart, "presale-start", "", "Pre-sale start (unix or RFC 3339)")
	f.StringVar(&initFlags.saleStart, "sale-start", "", "Public sale start (unix or RFC 3339)")
	f.StringVar(&initFlags.presalePrice, "presale-price", "0", "Pre-sale unit price in ether")
	f.StringVar(&initFlags.salePrice, "sale-price", "0", "Public sale unit price in ether")
	f.StringVar(&initFlags.data, "data", "", "Snapshot file (default: next to the sale file)")
	f.BoolVar(&initFlags.deposits, "deposits-outside-sale", false, "Credit plain transfers while no phase is active")
	f.BoolVar(&initFlags.force, "force", false, "Overwrite an existing sale file")
	_ = initCmd.MarkFlagRequired("owner")
	_ = initCmd.MarkFlagRequired("max-supply")
	_ = initCmd.MarkFlagRequired("presale-start")
	_ = initCmd.MarkFlagRequired("sale-start")
}

func runInit(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(configPath); err == nil && !initFlags.force {
		return fmt.Errorf("%s already exists; pass --force to replace it", configPath)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	presaleStart, err := parseTime(initFlags.presaleStart)
	if err != nil {
		return fmt.Errorf("--presale-start: %w", err)
	}
	saleStart, err := parseTime(initFlags.saleStart)
	if err != nil {
		return fmt.Errorf("--sale-start: %w", err)
	}

	cfg := &cliConfig{
		Data:                initFlags.data,
		Owner:               initFlags.owner,
		AssetLocatorPrefix:  initFlags.prefix,
		MaxSupply:           initFlags.maxSupply,
		PresaleStart:        presaleStart,
		SaleStart:           saleStart,
		PresalePrice:        initFlags.presalePrice,
		SalePrice:           initFlags.salePrice,
		DepositsOutsideSale: initFlags.deposits,
	}
	if cfg.Data == "" {
		cfg.Data = defaultDataPath(configPath)
	}

	return runLedger(cmd.Context(), cfg, func(ctx context.Context, l *saleledger.Ledger) error {
		cfg.SaleID = l.SaleID().String()
		if err := saveConfig(configPath, cfg); err != nil {
			return err
		}
		logger.Info("sale initialized", zap.String("sale_id", cfg.SaleID), zap.String("config", configPath))
		fmt.Fprintf(cmd.OutOrStdout(), "sale %s created (%s)\n", cfg.SaleID, configPath)
		return nil
	})
}

// parseTime accepts unix seconds or RFC 3339.
func parseTime(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("want unix seconds or RFC 3339, got %q", s)
	}
	return t.Unix(), nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sale phase, price, supply and balance",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLedger(cmd.Context(), func(ctx context.Context, l *saleledger.Ledger) error {
			st, err := l.State(ctx)
			if err != nil {
				return err
			}
			phase, err := l.SaleStatus(ctx)
			if err != nil {
				return err
			}
			price, err := l.CurrentPrice(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sale:     %s\n", st.ID)
			fmt.Fprintf(out, "phase:    %s\n", phase)
			if phase.Active() {
				fmt.Fprintf(out, "price:    %s ETH\n", price.FormatEther())
			}
			fmt.Fprintf(out, "supply:   %d/%d\n", st.TotalIssued, l.MaxSupply())
			fmt.Fprintf(out, "owner:    %s\n", st.Owner)
			fmt.Fprintf(out, "balance:  %s ETH\n", st.Balance.FormatEther())
			fmt.Fprintf(out, "royalty:  %d bps\n", st.DefaultRoyaltyBps)
			return nil
		})
	},
}

var tokensLimit int

var tokensCmd = &cobra.Command{
	Use:   "tokens ADDRESS",
	Short: "List the tokens held by an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := types.ParseAddress(args[0])
		return withLedger(cmd.Context(), func(ctx context.Context, l *saleledger.Ledger) error {
			n, err := l.BalanceOf(ctx, addr)
			if err != nil {
				return err
			}
			ts, err := l.TokensOf(ctx, addr, token.ListOpts{Limit: tokensLimit})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s holds %d token(s): %s\n", addr, n, joinIDs(token.IDs(ts)))
			return nil
		})
	},
}

func init() {
	tokensCmd.Flags().IntVar(&tokensLimit, "limit", 0, "Maximum number of token ids to print")
}

var uriCmd = &cobra.Command{
	Use:   "uri TOKEN_ID",
	Short: "Print the metadata URI of a token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokenID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("token id: %w", err)
		}
		return withLedger(cmd.Context(), func(ctx context.Context, l *saleledger.Ledger) error {
			uri, err := l.TokenURI(ctx, tokenID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), uri)
			return nil
		})
	},
}

var royaltyCmd = &cobra.Command{
	Use:   "royalty TOKEN_ID SALE_PRICE",
	Short: "Compute the royalty owed on a resale",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokenID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("token id: %w", err)
		}
		amount, err := types.ParseEther(args[1])
		if err != nil {
			return err
		}
		return withLedger(cmd.Context(), func(ctx context.Context, l *saleledger.Ledger) error {
			receiver, royalty, err := l.RoyaltyInfo(ctx, tokenID, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s ETH to %s\n", royalty.FormatEther(), receiver)
			return nil
		})
	},
}

var journalFlags struct {
	kind  string
	actor string
	limit int
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Print settled operations in order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := journal.QueryOpts{
			Kind:  journal.Kind(journalFlags.kind),
			Actor: types.ParseAddress(journalFlags.actor),
			Limit: journalFlags.limit,
		}
		return withLedger(cmd.Context(), func(ctx context.Context, l *saleledger.Ledger) error {
			entries, err := l.Journal(ctx, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-15s %-12s %s ETH", e.Timestamp.Format(time.RFC3339), e.Kind, e.Actor, e.Amount.FormatEther())
				if e.Quantity > 0 {
					fmt.Fprintf(out, "  tokens %d-%d", e.FirstToken, e.LastToken)
				}
				if e.Counterparty != "" && e.Counterparty != e.Actor {
					fmt.Fprintf(out, "  -> %s", e.Counterparty)
				}
				if e.Bps > 0 {
					fmt.Fprintf(out, "  %d bps", e.Bps)
				}
				fmt.Fprintln(out)
			}
			return nil
		})
	},
}

func init() {
	f := journalCmd.Flags()
	f.StringVar(&journalFlags.kind, "kind", "", "Only entries of this kind (mint, refund, withdrawal, ...)")
	f.StringVar(&journalFlags.actor, "actor", "", "Only entries by this address")
	f.IntVar(&journalFlags.limit, "limit", 0, "Maximum number of entries")
}

// ──────────────────────────────────────────────────
// Operations
// ──────────────────────────────────────────────────

var (
	fromAddr string
	value    string
)

func addFrom(cmd *cobra.Command) {
	cmd.Flags().StringVar(&fromAddr, "from", "", "Calling address")
	_ = cmd.MarkFlagRequired("from")
}

func addValue(cmd *cobra.Command) {
	cmd.Flags().StringVar(&value, "value", "0", "Attached payment in ether")
}

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Buy as many tokens as the payment covers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		payment, err := types.ParseEther(value)
		if err != nil {
			return err
		}
		return withLedger(cmd.Context(), func(ctx context.Context, l *saleledger.Ledger) error {
			res, err := l.Mint(ctx, types.ParseAddress(fromAddr), payment)
			if err != nil {
				return err
			}
			printMint(cmd, res)
			return nil
		})
	},
}

var receiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Send a plain value transfer to the sale",
	Long: `A plain transfer from the owner withdraws the balance; from anyone else
it buys tokens like 'mint'.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		payment, err := types.ParseEther(value)
		if err != nil {
			return err
		}
		return withLedger(cmd.Context(), func(ctx context.Context, l *saleledger.Ledger) error {
			res, err := l.Receive(ctx, types.ParseAddress(fromAddr), payment)
			if err != nil {
				return err
			}
			switch res.Kind {
			case saleledger.ReceiveMint:
				printMint(cmd, res.Mint)
			case saleledger.ReceiveWithdrawal:
				printWithdrawal(cmd, res.Withdrawal)
			case saleledger.ReceiveDeposit:
				fmt.Fprintf(cmd.OutOrStdout(), "credited %s ETH\n", res.Credited.FormatEther())
			}
			return nil
		})
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Pay the whole balance out to the owner",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLedger(cmd.Context(), func(ctx context.Context, l *saleledger.Ledger) error {
			res, err := l.Withdraw(ctx, types.ParseAddress(fromAddr))
			if err != nil {
				return err
			}
			printWithdrawal(cmd, res)
			return nil
		})
	},
}

var royaltyToken uint64

var setRoyaltyCmd = &cobra.Command{
	Use:   "set-royalty BPS",
	Short: "Set the default royalty, or one token's with --token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bps, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil {
			return fmt.Errorf("bps: %w", err)
		}
		return withLedger(cmd.Context(), func(ctx context.Context, l *saleledger.Ledger) error {
			caller := types.ParseAddress(fromAddr)
			if royaltyToken > 0 {
				if err := l.SetTokenRoyalty(ctx, caller, royaltyToken, uint16(bps)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "token %d royalty set to %d bps\n", royaltyToken, bps)
				return nil
			}
			if err := l.SetDefaultRoyalty(ctx, caller, uint16(bps)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "default royalty set to %d bps\n", bps)
			return nil
		})
	},
}

var transferOwnershipCmd = &cobra.Command{
	Use:   "transfer-ownership NEW_OWNER",
	Short: "Hand the sale to a new owner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		newOwner := types.ParseAddress(args[0])
		return withLedger(cmd.Context(), func(ctx context.Context, l *saleledger.Ledger) error {
			if err := l.TransferOwnership(ctx, types.ParseAddress(fromAddr), newOwner); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "owner is now %s\n", newOwner)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{mintCmd, receiveCmd, withdrawCmd, setRoyaltyCmd, transferOwnershipCmd} {
		addFrom(c)
	}
	addValue(mintCmd)
	addValue(receiveCmd)
	setRoyaltyCmd.Flags().Uint64Var(&royaltyToken, "token", 0, "Token id for a per-token royalty")
}

func printMint(cmd *cobra.Command, res *saleledger.MintResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "minted %s (%s at %s ETH)\n", joinIDs(res.TokenIDs), res.Phase, res.Price.FormatEther())
	if res.Change.IsPositive() {
		fmt.Fprintf(out, "refunded %s ETH\n", res.Change.FormatEther())
	}
	if res.Finished {
		fmt.Fprintln(out, "sale finished")
	}
}

func printWithdrawal(cmd *cobra.Command, res *saleledger.WithdrawResult) {
	if res == nil || res.Amount.IsZero() {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to withdraw")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "withdrew %s ETH to %s\n", res.Amount.FormatEther(), res.To)
}

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, v := range ids {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(parts, ",")
}
