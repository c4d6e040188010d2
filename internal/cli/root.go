package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tradesim/internal/config"
	"tradesim/internal/controller"
	"tradesim/internal/gateway"
	"tradesim/internal/logging"
	"tradesim/internal/session"
	"tradesim/internal/store"
)

// Version information, set with -ldflags at build time.
var (
	Version   = "dev"
	BuildDate = "unknown"
)

// App holds the application dependencies. Everything past Config and
// Logger is opened on first use.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	kv         store.KV
	sessions   *session.Store
	gateway    *gateway.Client
	controller *controller.Controller
}

// Controller opens the session store and gateway on first use.
func (a *App) Controller(ctx context.Context) (*controller.Controller, error) {
	if a.controller != nil {
		return a.controller, nil
	}

	kv, err := store.NewSQLiteStore(a.Config.Session.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	sessions, err := session.Open(ctx, kv, a.Logger)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("loading session: %w", err)
	}

	a.kv = kv
	a.sessions = sessions
	a.gateway = gateway.New(gateway.Config{
		BaseURL:           a.Config.API.BaseURL,
		Timeout:           a.Config.API.Timeout,
		RequestsPerSecond: a.Config.API.RequestsPerSecond,
	}, sessions, a.Logger)
	a.controller = controller.New(sessions, a.gateway, logPublisher{a.Logger}, a.Logger)
	return a.controller, nil
}

// Sessions returns the session store, opening it if needed.
func (a *App) Sessions(ctx context.Context) (*session.Store, error) {
	if _, err := a.Controller(ctx); err != nil {
		return nil, err
	}
	return a.sessions, nil
}

// Gateway returns the API client, opening it if needed.
func (a *App) Gateway(ctx context.Context) (*gateway.Client, error) {
	if _, err := a.Controller(ctx); err != nil {
		return nil, err
	}
	return a.gateway, nil
}

// Close releases everything opened by the App.
func (a *App) Close() error {
	if a.controller != nil {
		a.controller.Teardown()
	}
	if a.gateway != nil {
		a.gateway.Close()
	}
	if a.kv != nil {
		return a.kv.Close()
	}
	return nil
}

// output creates an Output honouring the display config.
func (a *App) output(cmd *cobra.Command) *Output {
	color, currency := true, "USD"
	if a.Config != nil {
		color, currency = a.Config.Display.ColorEnabled, a.Config.Display.Currency
	}
	return NewOutput(cmd, color, currency)
}

// logPublisher records controller transitions in the debug log.
type logPublisher struct {
	logger zerolog.Logger
}

func (p logPublisher) Publish(v controller.ViewState) {
	p.logger.Debug().
		Str("state", v.State.String()).
		Uint64("epoch", v.Epoch).
		Bool("redirect", v.Redirect).
		Str("message", v.Message).
		Msg("View state published")
}

// NewRootCmd creates the root command for the CLI. The App is populated
// by the root pre-run hook; callers must Close it after Execute.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tradesim",
		Short: "Terminal client for the virtual stock-trading simulator",
		Long: `tradesim talks to a trading simulator API: log in, review portfolio
performance computed from your trade history, and look up prices.

Use 'tradesim <command> --help' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configDir)
			if err != nil {
				return err
			}
			app.Config = cfg

			logCfg := logging.LogConfig{
				Level:      cfg.Logging.Level,
				Console:    true,
				Color:      cfg.Display.ColorEnabled,
				File:       cfg.Logging.File,
				FilePath:   cfg.Logging.FilePath,
				MaxSize:    cfg.Logging.MaxSize,
				MaxBackups: cfg.Logging.MaxBackups,
				MaxAge:     cfg.Logging.MaxAge,
				Out:        cmd.ErrOrStderr(),
			}
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logCfg.Level = "debug"
			}
			app.Logger = logging.NewLoggerWithConfig(logCfg).With().Str("command", cmd.Name()).Logger()
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/tradesim)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addAuthCommands(rootCmd, app)
	addPortfolioCommands(rootCmd, app)
	addAccountCommands(rootCmd, app)
	addMarketCommands(rootCmd, app)

	return rootCmd
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	app := &App{Logger: zerolog.Nop()}
	defer app.Close()

	rootCmd := NewRootCmd(app)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.As(err, &reportedError{}) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(err))
		}
		return 1
	}
	return 0
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd(app))
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("tradesim %s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			path := config.ConfigPath(app.Config.Dir)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return reported(err)
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("API")
	output.Printf("  Base URL:        %s\n", cfg.API.BaseURL)
	output.Printf("  Timeout:         %s\n", cfg.API.Timeout)
	output.Printf("  Rate limit:      %d req/s\n", cfg.API.RequestsPerSecond)
	output.Println()

	output.Bold("Session")
	output.Printf("  Database:        %s\n", cfg.Session.DBPath)
	output.Println()

	output.Bold("Display")
	output.Printf("  Currency:        %s\n", cfg.Display.Currency)
	output.Printf("  Color:           %v\n", cfg.Display.ColorEnabled)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	output.Printf("  File:            %v\n", cfg.Logging.File)
	if cfg.Logging.File {
		output.Printf("  Path:            %s\n", cfg.Logging.FilePath)
	}
}
