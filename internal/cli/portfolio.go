package cli

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"equity-tracker/internal/errors"
	"equity-tracker/pkg/utils"
)

// addPortfolioCommands adds portfolio management commands.
func addPortfolioCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Portfolio management",
		Long:  "Create, inspect and delete portfolios.",
	}

	cmd.AddCommand(newPortfolioCreateCmd(app))
	cmd.AddCommand(newPortfolioListCmd(app))
	cmd.AddCommand(newPortfolioShowCmd(app))
	cmd.AddCommand(newPortfolioDeleteCmd(app))
	cmd.AddCommand(newPortfolioHistoryCmd(app))

	rootCmd.AddCommand(cmd)
}

func newPortfolioCreateCmd(app *App) *cobra.Command {
	var description string
	var initial string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new portfolio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			initialValue := decimal.Zero
			if initial != "" {
				v, err := decimal.NewFromString(initial)
				if err != nil {
					return errors.NewValidationError("initial", initial, "must be a decimal amount")
				}
				initialValue = v
			}

			p, err := app.Portfolios.CreatePortfolio(cmd.Context(), app.UserID, args[0], description, initialValue)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(p)
			}
			output.Success("Portfolio %q created", p.Name)
			output.Dim("ID: %s", p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "portfolio description")
	cmd.Flags().StringVar(&initial, "initial", "", "initial value for performance tracking")
	return cmd
}

func newPortfolioListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List portfolios",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			portfolios, err := app.Portfolios.ListPortfolios(cmd.Context(), app.UserID)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(portfolios)
			}
			if len(portfolios) == 0 {
				output.Println("No portfolios yet. Create one with 'tracker portfolio create'.")
				return nil
			}

			for _, p := range portfolios {
				output.Bold("%s  %s", p.ID, p.Name)
				output.Printf("  Value: %s  Created: %s\n",
					utils.FormatUSD(p.CurrentValue), p.CreatedAt.Format(app.Config.UI.DateFormat))
			}
			return nil
		},
	}
}

func newPortfolioShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show PORTFOLIO_ID",
		Short: "Show a portfolio with its holdings and aggregates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)
			ctx := cmd.Context()

			p, err := app.Portfolios.GetPortfolio(ctx, args[0])
			if err != nil {
				return err
			}
			holdings, err := app.Portfolios.ListHoldings(ctx, p.ID)
			if err != nil {
				return err
			}
			summary, err := app.Portfolios.Summarize(ctx, p.ID)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"portfolio": p,
					"holdings":  holdings,
					"summary":   summary,
				})
			}

			output.Bold("%s", p.Name)
			if p.Description != "" {
				output.Dim("%s", p.Description)
			}
			output.Println()
			for _, h := range holdings {
				remaining := h.Shares - h.SharesSold
				output.Printf("  %-6s %-24s %5d shares  @ %s (now %s)\n",
					h.Symbol, h.CompanyName, remaining,
					utils.FormatUSD(h.PurchasePrice), utils.FormatUSD(h.CurrentPrice))
			}
			output.Println()
			output.Printf("  Current value:   %s\n", utils.FormatUSD(summary.CurrentValue))
			output.Printf("  Total invested:  %s\n", utils.FormatUSD(summary.TotalInvested))
			output.Printf("  Gain/loss:       %s (%s)\n",
				output.GainLoss(summary.ActualGainLoss), output.Percent(summary.ActualGainLossPct))
			return nil
		},
	}
}

func newPortfolioDeleteCmd(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete PORTFOLIO_ID",
		Short: "Delete a portfolio with all holdings and transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			if !force {
				output.Warning("This deletes the portfolio, its holdings and all sell transactions.")
				output.Println("Re-run with --force to confirm.")
				return nil
			}

			if err := app.Portfolios.DeletePortfolio(cmd.Context(), args[0]); err != nil {
				return err
			}
			output.Success("Portfolio deleted")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation")
	return cmd
}

func newPortfolioHistoryCmd(app *App) *cobra.Command {
	var snapshot bool

	cmd := &cobra.Command{
		Use:   "history PORTFOLIO_ID",
		Short: "Show performance snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)
			ctx := cmd.Context()

			if snapshot {
				snap, err := app.Portfolios.Snapshot(ctx, args[0])
				if err != nil {
					return err
				}
				if !output.IsJSON() {
					output.Success("Snapshot taken: %s", utils.FormatUSD(snap.Value))
				}
			}

			snaps, err := app.Portfolios.ListSnapshots(ctx, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(snaps)
			}
			if len(snaps) == 0 {
				output.Println("No snapshots yet. Take one with --snapshot.")
				return nil
			}
			for _, s := range snaps {
				output.Printf("  %s  %s  %s (%s)\n",
					s.TakenAt.Format("2006-01-02 15:04"),
					utils.FormatUSD(s.Value),
					output.GainLoss(s.GainLoss),
					output.Percent(s.GainLossPercent))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "record a new snapshot first")
	return cmd
}
