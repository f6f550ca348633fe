package cmd

import (
	"fmt"

	"github.com/rustyeddy/papertrader/market"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage trading accounts",
	Long: `Open, fund, inspect and close accounts. Users are given by numeric ID or
by username.

Examples:
  trader account open alice
  trader account deposit alice 500
  trader account balance alice
  trader account close alice`,
}

var accountOpenCmd = &cobra.Command{
	Use:   "open <username>",
	Short: "Open an account with the starting balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountOpen,
}

var accountCloseCmd = &cobra.Command{
	Use:   "close <user>",
	Short: "Close an account and drop its positions",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountClose,
}

var accountBalanceCmd = &cobra.Command{
	Use:   "balance <user>",
	Short: "Show the cash balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountBalance,
}

var accountDepositCmd = &cobra.Command{
	Use:   "deposit <user> <amount>",
	Short: "Add funds to an account",
	Args:  cobra.ExactArgs(2),
	RunE:  runAccountDeposit,
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountOpenCmd)
	accountCmd.AddCommand(accountCloseCmd)
	accountCmd.AddCommand(accountBalanceCmd)
	accountCmd.AddCommand(accountDepositCmd)
}

func runAccountOpen(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	acct, err := a.ledger.OpenAccount(cmd.Context(), args[0])
	if err != nil {
		return explain(err)
	}

	fmt.Printf("✓ Opened account %s (id %d) with %s\n", acct.Username, acct.UserID, a.money(acct.Balance))
	return nil
}

func runAccountClose(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	acct, err := a.resolveUser(ctx, args[0])
	if err != nil {
		return explain(err)
	}
	if err := a.ledger.CloseAccount(ctx, acct.UserID); err != nil {
		return explain(err)
	}

	fmt.Printf("✓ Closed account %s (id %d)\n", acct.Username, acct.UserID)
	return nil
}

func runAccountBalance(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	acct, err := a.resolveUser(ctx, args[0])
	if err != nil {
		return explain(err)
	}

	fmt.Printf("%s: %s\n", acct.Username, a.money(acct.Balance))
	return nil
}

func runAccountDeposit(cmd *cobra.Command, args []string) error {
	amount, err := market.ParseAmount(args[1])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	acct, err := a.resolveUser(ctx, args[0])
	if err != nil {
		return explain(err)
	}
	balance, err := a.ledger.AddFunds(ctx, acct.UserID, amount)
	if err != nil {
		return explain(err)
	}

	fmt.Printf("✓ Deposited %s, balance %s\n", a.money(amount), a.money(balance))
	return nil
}
