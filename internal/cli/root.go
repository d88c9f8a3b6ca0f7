package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"equity-tracker/internal/config"
	apperrors "equity-tracker/internal/errors"
	"equity-tracker/internal/journal"
	"equity-tracker/internal/logging"
	"equity-tracker/internal/marketdata"
	"equity-tracker/internal/portfolio"
	"equity-tracker/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-09-01"
)

// App holds the application dependencies.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Store      store.Store
	Oracle     *marketdata.Oracle
	Journal    *journal.Journal
	Portfolios *portfolio.Service
	UserID     string
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
		UserID: cfg.Refresh.UserID,
	}

	var provider marketdata.Provider
	if cfg.HasAlpacaCredentials() {
		provider = marketdata.NewAlpacaProvider(marketdata.AlpacaConfig{
			APIKey:         cfg.Credentials.Alpaca.APIKey,
			APISecret:      cfg.Credentials.Alpaca.APISecret,
			DataBaseURL:    cfg.Credentials.Alpaca.DataURL,
			TradingBaseURL: cfg.Credentials.Alpaca.TradeURL,
			Timeout:        cfg.Market.RequestTimeout,
		})
		logger.Debug().Msg("Alpaca provider initialized")
	} else {
		provider = marketdata.NewStaticProvider()
		logger.Warn().Msg("No Alpaca credentials, price lookups will return no data")
	}

	app.Oracle = marketdata.NewOracle(provider, logger,
		marketdata.WithPacing(cfg.Market.BatchPacing),
		marketdata.WithStatusCacheTTL(cfg.Market.StatusCacheTTL),
	)

	dataStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, most commands will be unavailable")
	} else {
		app.Store = dataStore
		app.Journal = journal.New(dataStore, logger)
		app.Portfolios = portfolio.NewService(dataStore, app.Oracle, logger)
		logger.Debug().Str("path", cfg.Database.Path).Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "tracker",
		Short: "Equity Tracker - portfolio and sell-transaction CLI",
		Long: `Equity Tracker keeps your stock portfolios, records share sales against
your holdings and refreshes prices from Alpaca.

Use 'tracker help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/equity-tracker)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addPortfolioCommands(rootCmd, app)
	addHoldingCommands(rootCmd, app)
	addSellCommands(rootCmd, app)
	addMarketCommands(rootCmd, app)
	addRefreshCommands(rootCmd, app)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Equity Tracker v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

// requireStore guards commands that cannot run without persistence.
func requireStore(app *App) error {
	if app.Store == nil {
		return apperrors.Wrapf(apperrors.ErrDatabaseError, "store not initialized, check database.path")
	}
	return nil
}
