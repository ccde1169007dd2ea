// =============================================================================
// Photo Sale Ledger - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every ledger
// operation is a subcommand.
//
// COBRA CLI STRUCTURE:
//   rootCmd (photosale)
//   ├── order add | show     validate an order, show one order
//   ├── pay                  VALIDATED -> PAID
//   ├── retrieve             PAID -> RETRIEVED
//   ├── list | stats         query the ledger
//   ├── export               write the reports of the day
//   ├── archive              move old orders to the archive file
//   ├── reconcile            replay missing side-ledger exports
//   ├── reset-exported       clear the exported marker
//   ├── repair | check       file health
//   └── version
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --env-file, --data-dir, --verbose)
//   2. Loading the configuration (yaml + .env + PHOTOSALE_* overrides)
//   3. Building the logger, the ledger store and the pricing table
//   4. Writing the metrics textfile after the command ran
//
// =============================================================================

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/photo-sale-ledger/internal/config"
	"github.com/ginjaninja78/photo-sale-ledger/internal/ledger"
	"github.com/ginjaninja78/photo-sale-ledger/internal/logging"
	"github.com/ginjaninja78/photo-sale-ledger/internal/metrics"
	"github.com/ginjaninja78/photo-sale-ledger/internal/order"
	"github.com/ginjaninja78/photo-sale-ledger/internal/pricing"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile holds the path to the optional .env file.
var envFile string

// dataDir overrides data_dir when set.
var dataDir string

// verbose forces debug logging.
var verbose bool

// app holds what the subcommands share once the configuration is loaded.
type app struct {
	cfg    *config.MainConfig
	logger *slog.Logger
	store  *ledger.Store
	prices *pricing.Table
}

var current *app

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "photosale",
	Short: "Photo Sale Ledger - order ledger of a photo-sale gallery",
	Long: `Photo Sale Ledger manages the order ledger of a photo-sale gallery: orders
are validated, paid, prepared and handed over, and every step is kept in
spreadsheet-compatible CSV files.

Files (in data_dir):
  commandes.csv             one row per ordered photo
  commandes_reglees.csv     one row per paid order
  commandes_a_preparer.csv  one row per photo to prepare
  commandes_archives.csv    orders moved out of the active ledger

Example Usage:
  photosale order add --lastname Martin --email m@example.org --item Gala:IMG_001.jpg:2
  photosale pay CMD001 --mode Especes
  photosale export
  photosale list --filter to_retrieve`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd || cmd.Name() == "help" {
			return nil
		}
		return initApp(cmd)
	},

	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if current == nil {
			return nil
		}
		if err := metrics.WriteTextfile(current.cfg.MetricsFile); err != nil {
			current.logger.Warn("metrics not written", "error", err)
		}
		return nil
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)
	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		".env",
		"Path to an optional .env file",
	)
	rootCmd.PersistentFlags().StringVar(
		&dataDir,
		"data-dir",
		"",
		"Directory of the ledger files (overrides data_dir)",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// initApp loads the configuration and builds the shared components. cmd is
// the command being executed; persistent flags are merged into its flag set.
func initApp(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	// The default config file may be absent; an explicit one may not.
	optional := !cmd.Flags().Changed("config")
	cfg, err := config.LoadMainConfig(cfgFile, optional, flagOverrides)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger := logging.New(level, cfg.LogFormat, os.Stderr)

	prices, err := cfg.PricingTable()
	if err != nil {
		return fmt.Errorf("failed to load pricing table: %w", err)
	}

	store := ledger.NewStore(cfg.LedgerPaths(), ledger.Options{
		USBFolder:     cfg.USBFolder,
		AutoRepairBOM: cfg.RepairBOM(),
		Logger:        logger,
	})

	logger.Debug("configuration loaded",
		"data_dir", cfg.DataDir,
		"output_dir", cfg.OutputDir,
		"activities", prices.Len())

	current = &app{cfg: cfg, logger: logger, store: store, prices: prices}
	return nil
}

// flagOverrides applies command-line flags on top of the file and environment.
func flagOverrides(cfg *config.MainConfig) {
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
}

// service returns an order service over the shared store.
func (a *app) service() *order.Service {
	return order.NewService(a.store, a.prices,
		order.WithLogger(a.logger),
		order.WithNotifier(order.LogNotifier{Logger: a.logger}))
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

// printResult prints the message of a ledger result and turns a failure into
// a command error.
func printResult(cmd *cobra.Command, result ledger.Result) error {
	if !result.Success {
		if result.Reason == ledger.ReasonNone {
			return fmt.Errorf("%s", result.Message)
		}
		return fmt.Errorf("%s [%s]", result.Message, result.Reason)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Message)
	return nil
}
