package cli

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"equity-tracker/internal/errors"
	"equity-tracker/internal/ledger"
	"equity-tracker/pkg/utils"
)

// addHoldingCommands adds holding management commands.
func addHoldingCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "holding",
		Short: "Holding management",
		Long:  "Record purchases and inspect individual holdings.",
	}

	cmd.AddCommand(newHoldingAddCmd(app))
	cmd.AddCommand(newHoldingShowCmd(app))
	cmd.AddCommand(newHoldingDeleteCmd(app))

	rootCmd.AddCommand(cmd)
}

func newHoldingAddCmd(app *App) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "add PORTFOLIO_ID SYMBOL SHARES PRICE",
		Short: "Record a share purchase",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			shares, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return errors.NewValidationError("shares", args[2], "must be an integer")
			}
			price, err := decimal.NewFromString(args[3])
			if err != nil {
				return errors.NewValidationError("price", args[3], "must be a decimal amount")
			}

			purchasedAt := time.Now().UTC()
			if date != "" {
				purchasedAt, err = time.Parse("2006-01-02", date)
				if err != nil {
					return errors.NewValidationError("date", date, "must be YYYY-MM-DD")
				}
			}

			h, err := app.Portfolios.AddHolding(cmd.Context(), args[0], args[1], shares, price, purchasedAt)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(h)
			}
			output.Success("Added %s of %s at %s", utils.FormatShares(shares, h.Symbol), h.CompanyName, utils.FormatUSD(price))
			output.Dim("ID: %s", h.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "purchase date (YYYY-MM-DD, default today)")
	return cmd
}

func newHoldingShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show HOLDING_ID",
		Short: "Show a holding with its valuation and sales",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)
			ctx := cmd.Context()

			h, err := app.Portfolios.GetHolding(ctx, args[0])
			if err != nil {
				return err
			}
			txns, err := app.Store.ListHoldingTransactions(ctx, h.ID)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"holding":      h,
					"transactions": txns,
				})
			}

			output.Bold("%s  %s", h.Symbol, h.CompanyName)
			output.Printf("  Purchased:     %s at %s\n",
				utils.FormatShares(h.Shares, h.Symbol), utils.FormatUSD(h.PurchasePrice))
			output.Printf("  Sold:          %d\n", h.SharesSold)
			output.Printf("  Remaining:     %d\n", ledger.RemainingShares(h))
			output.Printf("  Current price: %s (as of %s)\n",
				utils.FormatUSD(h.CurrentPrice), h.PriceUpdated.Format("2006-01-02 15:04"))
			output.Printf("  Market value:  %s\n", utils.FormatUSD(ledger.MarketValue(h)))
			output.Printf("  Gain/loss:     %s (%s)\n",
				output.GainLoss(ledger.GainLoss(h)), output.Percent(ledger.GainLossPercent(h)))

			if len(txns) > 0 {
				output.Println()
				output.Bold("Sales")
				for _, t := range txns {
					output.Printf("  %s  %s at %s  %s\n",
						t.Date.Format("2006-01-02"),
						utils.FormatShares(t.Shares, t.Symbol),
						utils.FormatUSD(t.Price),
						output.GainLoss(t.RealizedGainLoss(h.PurchasePrice)))
				}
			}
			return nil
		},
	}
}

func newHoldingDeleteCmd(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete HOLDING_ID",
		Short: "Delete a holding and its sell transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			if !force {
				output.Warning("This deletes the holding and every sale recorded against it.")
				output.Println("Re-run with --force to confirm.")
				return nil
			}

			if err := app.Portfolios.DeleteHolding(cmd.Context(), args[0]); err != nil {
				return err
			}
			output.Success("Holding deleted")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation")
	return cmd
}
