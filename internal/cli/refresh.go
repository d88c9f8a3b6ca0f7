package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"equity-tracker/internal/scheduler"
	"equity-tracker/pkg/utils"
)

// addRefreshCommands adds price refresh commands.
func addRefreshCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRefreshCmd(app))
	rootCmd.AddCommand(newWatchCmd(app))
}

func newRefreshCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [PORTFOLIO_ID]",
		Short: "Refresh prices now",
		Long:  "Refresh prices for one portfolio, or for all portfolios when no id is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)
			ctx := cmd.Context()

			ids := args
			if len(ids) == 0 {
				portfolios, err := app.Portfolios.ListPortfolios(ctx, app.UserID)
				if err != nil {
					return err
				}
				for _, p := range portfolios {
					ids = append(ids, p.ID)
				}
			}

			for _, id := range ids {
				if err := app.Portfolios.RefreshPrices(ctx, id); err != nil {
					return err
				}
				p, err := app.Portfolios.GetPortfolio(ctx, id)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					output.JSON(p)
					continue
				}
				output.Success("%s: %s", p.Name, utils.FormatUSD(p.CurrentValue))
			}
			return nil
		},
	}
}

func newWatchCmd(app *App) *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the background price refresh until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireStore(app); err != nil {
				return err
			}
			output := NewOutput(cmd)

			if schedule == "" {
				schedule = app.Config.Refresh.Schedule
			}

			sched := scheduler.New(app.Logger, app.Config.Market.RequestTimeout*10)
			job := scheduler.NewRefreshJob(app.UserID, app.Store, app.Portfolios, app.Oracle, app.Logger)
			if err := sched.AddJob(schedule, job); err != nil {
				return err
			}

			sched.Start()
			defer sched.Stop()
			output.Info("Refreshing on schedule %q, Ctrl-C to stop", schedule)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			output.Println()
			output.Info("Stopping")
			return nil
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule with seconds (default from config)")
	return cmd
}
