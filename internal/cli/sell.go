package cli

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"equity-tracker/internal/errors"
	"equity-tracker/pkg/utils"
)

// addSellCommands adds sell transaction commands.
func addSellCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "sell",
		Short: "Sell transaction management",
		Long:  "Record, edit and delete share sales against holdings.",
	}

	cmd.AddCommand(newSellRecordCmd(app))
	cmd.AddCommand(newSellEditCmd(app))
	cmd.AddCommand(newSellDeleteCmd(app))
	cmd.AddCommand(newSellListCmd(app))
	cmd.AddCommand(newSellVerifyCmd(app))

	rootCmd.AddCommand(cmd)
}

func parseSellArgs(sharesArg, priceArg, dateArg string) (int64, decimal.Decimal, time.Time, error) {
	shares, err := strconv.ParseInt(sharesArg, 10, 64)
	if err != nil {
		return 0, decimal.Zero, time.Time{}, errors.NewValidationError("shares", sharesArg, "must be an integer")
	}
	price, err := decimal.NewFromString(priceArg)
	if err != nil {
		return 0, decimal.Zero, time.Time{}, errors.NewValidationError("price", priceArg, "must be a decimal amount")
	}
	date := time.Now().UTC()
	if dateArg != "" {
		date, err = time.Parse("2006-01-02", dateArg)
		if err != nil {
			return 0, decimal.Zero, time.Time{}, errors.NewValidationError("date", dateArg, "must be YYYY-MM-DD")
		}
	}
	return shares, price, date, nil
}

func newSellRecordCmd(app *App) *cobra.Command {
	var date, note string

	cmd := &cobra.Command{
		Use:   "record HOLDING_ID SHARES PRICE",
		Short: "Record a share sale",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			shares, price, at, err := parseSellArgs(args[1], args[2], date)
			if err != nil {
				return err
			}

			txn, err := app.Journal.RecordSell(cmd.Context(), args[0], shares, price, at, note)
			if err != nil {
				if errors.Is(err, errors.ErrOversell) {
					output.Error("Cannot sell %s shares: not enough remaining", args[1])
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(txn)
			}
			output.Success("Sold %s at %s, proceeds %s",
				utils.FormatShares(txn.Shares, txn.Symbol),
				utils.FormatUSD(txn.Price),
				utils.FormatUSD(txn.Proceeds()))
			output.Dim("Transaction: %s", txn.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "sale date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&note, "note", "", "free-form note")
	return cmd
}

func newSellEditCmd(app *App) *cobra.Command {
	var date, note string

	cmd := &cobra.Command{
		Use:   "edit TRANSACTION_ID SHARES PRICE",
		Short: "Edit a recorded sale",
		Long: `Edit a recorded sale. The holding's sold counter is reconciled by the
share difference. A sale cannot be moved to a different holding.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			shares, price, at, err := parseSellArgs(args[1], args[2], date)
			if err != nil {
				return err
			}

			txn, err := app.Journal.EditSell(cmd.Context(), args[0], shares, price, at, note)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(txn)
			}
			output.Success("Sale updated: %s at %s",
				utils.FormatShares(txn.Shares, txn.Symbol), utils.FormatUSD(txn.Price))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "sale date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&note, "note", "", "free-form note")
	return cmd
}

func newSellDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete TRANSACTION_ID",
		Short: "Delete a recorded sale, returning its shares to the holding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			if err := app.Journal.DeleteSell(cmd.Context(), args[0]); err != nil {
				return err
			}
			output.Success("Sale deleted")
			return nil
		},
	}
}

func newSellListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list PORTFOLIO_ID",
		Short: "List sales of a portfolio, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			txns, err := app.Portfolios.ListTransactions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(txns)
			}
			if len(txns) == 0 {
				output.Println("No sales recorded.")
				return nil
			}
			for _, t := range txns {
				output.Printf("  %s  %s  %s at %s  proceeds %s\n",
					t.ID,
					t.Date.Format("2006-01-02"),
					utils.FormatShares(t.Shares, t.Symbol),
					utils.FormatUSD(t.Price),
					utils.FormatUSD(t.Proceeds()))
				if t.Note != "" {
					output.Dim("    %s", t.Note)
				}
			}
			return nil
		},
	}
}

func newSellVerifyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "verify HOLDING_ID",
		Short: "Cross-check a holding's sold counter against its sales",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			if err := app.Journal.VerifyHolding(cmd.Context(), args[0]); err != nil {
				var cerr *errors.ConsistencyError
				if errors.As(err, &cerr) {
					output.Error("Books do not balance: %s", cerr.Detail)
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]bool{"consistent": true})
			}
			output.Success("Books balance")
			return nil
		},
	}
}
