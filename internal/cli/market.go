package cli

import (
	"time"

	"github.com/spf13/cobra"

	"equity-tracker/pkg/utils"
)

// addMarketCommands adds market data commands.
func addMarketCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPriceCmd(app))

	market := &cobra.Command{
		Use:   "market",
		Short: "Market status and hours",
	}
	market.AddCommand(newMarketStatusCmd(app))
	market.AddCommand(newMarketHoursCmd(app))
	rootCmd.AddCommand(market)

	rootCmd.AddCommand(newAccountCmd(app))
}

func newPriceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "price SYMBOL [SYMBOL...]",
		Short: "Fetch current prices",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if len(args) == 1 {
				price, err := app.Oracle.GetPrice(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(map[string]string{args[0]: price.String()})
				}
				output.Printf("%s  %s\n", args[0], utils.FormatUSD(price))
				return nil
			}

			prices, err := app.Oracle.GetPrices(cmd.Context(), args)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(prices)
			}
			for _, sym := range args {
				price := prices[sym]
				if price.IsZero() {
					output.Printf("%s  %s\n", sym, output.ColoredString(ColorDim, "unavailable"))
					continue
				}
				output.Printf("%s  %s\n", sym, utils.FormatUSD(price))
			}
			return nil
		},
	}
}

func newMarketStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the market is open",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			open := app.Oracle.IsMarketOpen(cmd.Context())
			if output.IsJSON() {
				return output.JSON(map[string]bool{"open": open})
			}
			if open {
				output.Success("Market is open")
			} else {
				output.Info("Market is closed")
			}
			return nil
		},
	}
}

func newMarketHoursCmd(app *App) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "hours",
		Short: "Show market hours for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			day := time.Now().UTC()
			if date != "" {
				var err error
				day, err = time.Parse("2006-01-02", date)
				if err != nil {
					return err
				}
			}

			hours := app.Oracle.GetMarketHours(day)
			if output.IsJSON() {
				return output.JSON(hours)
			}
			if !hours.IsOpen {
				output.Info("Market closed on %s", day.Format("2006-01-02"))
				return nil
			}
			output.Printf("Open  %s\nClose %s\n",
				hours.Open.Format("15:04"), hours.Close.Format("15:04"))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "date to check (YYYY-MM-DD, default today)")
	return cmd
}

func newAccountCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show price source account status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			status := app.Oracle.GetAccountStatus(cmd.Context())
			if output.IsJSON() {
				return output.JSON(map[string]string{"status": status})
			}
			output.Println(status)

			if app.Oracle.TestConnection(cmd.Context()) {
				output.Success("Price source reachable")
			} else {
				output.Warning("Price source unreachable")
			}
			return nil
		},
	}
}
