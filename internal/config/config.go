// =============================================================================
// Photo Sale Ledger - Configuration Module
// =============================================================================
//
// This module loads the main application configuration.
//
// PRECEDENCE (highest first):
//   1. Command-line flags (passed to LoadMainConfig as overrides)
//   2. Environment variables prefixed PHOTOSALE_ (e.g. PHOTOSALE_DATA_DIR)
//   3. An optional .env file, loaded into the environment without
//      overriding variables already set
//   4. config.yaml
//   5. Defaults
//
// EXAMPLE config.yaml:
//
//   data_dir: ./data
//   output_dir: ./exports
//   usb_folder: USB
//   archive_after_days: 30
//   log_level: info
//   activities:
//     - key: Gala
//       display_name: Gala de danse
//       unit_price: "2.00"
//     - key: USB
//       display_name: Clé USB
//       unit_price: "15.00"
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/photo-sale-ledger/internal/ledger"
	"github.com/ginjaninja78/photo-sale-ledger/internal/pricing"
	"github.com/ginjaninja78/photo-sale-ledger/internal/record"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "PHOTOSALE"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// FILE SETTINGS
	// =========================================================================

	// DataDir is the directory holding the ledger files.
	// Default: "./data"
	DataDir string `yaml:"data_dir"`

	// LedgerFile is the main order ledger, relative to DataDir.
	// Default: "commandes.csv"
	LedgerFile string `yaml:"ledger_file"`

	// SettlementFile is the settlement side-ledger, relative to DataDir.
	// Default: "commandes_reglees.csv"
	SettlementFile string `yaml:"settlement_file"`

	// PreparationFile is the preparation side-ledger, relative to DataDir.
	// Default: "commandes_a_preparer.csv"
	PreparationFile string `yaml:"preparation_file"`

	// ArchiveFile receives archived orders, relative to DataDir.
	// Default: "commandes_archives.csv"
	ArchiveFile string `yaml:"archive_file"`

	// OutputDir is where export runs are written.
	// Default: "./exports"
	OutputDir string `yaml:"output_dir"`

	// ReportNameFormat names report files. See utils.GenerateOutputFileName.
	// Default: "{kind}_{timestamp}"
	ReportNameFormat string `yaml:"report_name_format"`

	// =========================================================================
	// LEDGER SETTINGS
	// =========================================================================

	// USBFolder is the activity key of the USB product. Its line items are
	// counted as "Nb USB" and routed to supplier B.
	// Default: "USB"
	USBFolder string `yaml:"usb_folder"`

	// ArchiveAfterDays is the default cutoff of the archive command.
	// Default: 30
	ArchiveAfterDays int `yaml:"archive_after_days"`

	// AutoRepairBOM repairs files holding several BOMs when they are read.
	// Default: true
	AutoRepairBOM *bool `yaml:"auto_repair_bom"`

	// =========================================================================
	// PRICING SETTINGS
	// =========================================================================

	// PricingFile is an optional XLSX workbook of activities. Its rows
	// override Activities entries with the same key.
	PricingFile string `yaml:"pricing_file"`

	// Activities is the inline pricing table.
	Activities []ActivityConfig `yaml:"activities"`

	// =========================================================================
	// OBSERVABILITY SETTINGS
	// =========================================================================

	// LogLevel is one of "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is "text" or "json".
	// Default: "text"
	LogFormat string `yaml:"log_format"`

	// MetricsFile receives operation counters in the Prometheus text format
	// at the end of every command. Empty disables it.
	MetricsFile string `yaml:"metrics_file"`
}

// ActivityConfig is one entry of the inline pricing table.
type ActivityConfig struct {
	Key         string `yaml:"key"`
	DisplayName string `yaml:"display_name"`
	UnitPrice   string `yaml:"unit_price"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file, then applies
// environment overrides and defaults.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//   - optional: When true a missing file is not an error.
//   - overrides: Applied after the environment and before defaults and
//     validation (command-line flags).
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read or parsed.
func LoadMainConfig(configPath string, optional bool, overrides ...func(*MainConfig)) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && optional:
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := applyEnvOverrides(&config); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}
	for _, override := range overrides {
		override(&config)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadDotEnv loads a .env file into the environment. Variables already set
// are kept. A missing file is ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides reads PHOTOSALE_* variables through viper.
func applyEnvOverrides(config *MainConfig) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	stringKeys := map[string]*string{
		"data_dir":           &config.DataDir,
		"ledger_file":        &config.LedgerFile,
		"settlement_file":    &config.SettlementFile,
		"preparation_file":   &config.PreparationFile,
		"archive_file":       &config.ArchiveFile,
		"output_dir":         &config.OutputDir,
		"report_name_format": &config.ReportNameFormat,
		"usb_folder":         &config.USBFolder,
		"pricing_file":       &config.PricingFile,
		"log_level":          &config.LogLevel,
		"log_format":         &config.LogFormat,
		"metrics_file":       &config.MetricsFile,
	}
	for key, target := range stringKeys {
		if err := v.BindEnv(key); err != nil {
			return err
		}
		if v.IsSet(key) {
			*target = v.GetString(key)
		}
	}

	for _, key := range []string{"archive_after_days", "auto_repair_bom"} {
		if err := v.BindEnv(key); err != nil {
			return err
		}
	}
	if v.IsSet("archive_after_days") {
		days, err := castInt(v.GetString("archive_after_days"))
		if err != nil {
			return fmt.Errorf("archive_after_days: %w", err)
		}
		config.ArchiveAfterDays = days
	}
	if v.IsSet("auto_repair_bom") {
		repair := v.GetBool("auto_repair_bom")
		config.AutoRepairBOM = &repair
	}

	return nil
}

// castInt accepts a plain decimal integer only: "30days" and "0x1e" are
// rejected.
func castInt(value string) (int, error) {
	value = strings.TrimSpace(value)
	sign := ""
	if strings.HasPrefix(value, "-") || strings.HasPrefix(value, "+") {
		sign, value = value[:1], value[1:]
	}
	if value == "" || strings.Trim(value, "0123456789") != "" {
		return 0, fmt.Errorf("not an integer: %q", sign+value)
	}

	// cast reads a leading zero as an octal prefix.
	digits := strings.TrimLeft(value, "0")
	if digits == "" {
		digits = "0"
	}
	n, err := cast.ToIntE(sign + digits)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", sign+value)
	}
	return n, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.DataDir == "" {
		config.DataDir = "./data"
	}
	if config.LedgerFile == "" {
		config.LedgerFile = "commandes.csv"
	}
	if config.SettlementFile == "" {
		config.SettlementFile = "commandes_reglees.csv"
	}
	if config.PreparationFile == "" {
		config.PreparationFile = "commandes_a_preparer.csv"
	}
	if config.ArchiveFile == "" {
		config.ArchiveFile = "commandes_archives.csv"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./exports"
	}
	if config.ReportNameFormat == "" {
		config.ReportNameFormat = "{kind}_{timestamp}"
	}
	if config.USBFolder == "" {
		config.USBFolder = "USB"
	}
	if config.ArchiveAfterDays == 0 {
		config.ArchiveAfterDays = 30
	}
	if config.AutoRepairBOM == nil {
		repair := true
		config.AutoRepairBOM = &repair
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
}

// validateMainConfig validates the main configuration and creates the data
// and output directories.
func validateMainConfig(config *MainConfig) error {
	if config.ArchiveAfterDays < 0 {
		return fmt.Errorf("archive_after_days must not be negative")
	}
	switch config.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", config.LogFormat)
	}
	for _, activity := range config.Activities {
		if strings.TrimSpace(activity.Key) == "" {
			return fmt.Errorf("activity without key")
		}
		if _, err := record.ParseAmount(activity.UnitPrice); err != nil {
			return fmt.Errorf("activity %s: %w", activity.Key, err)
		}
	}

	for _, dir := range []string{config.DataDir, config.OutputDir} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// LedgerPaths returns the ledger file locations.
func (c *MainConfig) LedgerPaths() ledger.Paths {
	return ledger.Paths{
		Ledger:      c.resolve(c.LedgerFile),
		Settlement:  c.resolve(c.SettlementFile),
		Preparation: c.resolve(c.PreparationFile),
		Archive:     c.resolve(c.ArchiveFile),
	}
}

// resolve makes a file name relative to DataDir unless it is absolute.
func (c *MainConfig) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// RepairBOM reports whether BOM corruption is repaired on read.
func (c *MainConfig) RepairBOM() bool {
	return c.AutoRepairBOM == nil || *c.AutoRepairBOM
}

// PricingTable builds the pricing table from the inline activities and the
// optional XLSX workbook.
func (c *MainConfig) PricingTable() (*pricing.Table, error) {
	activities := make([]pricing.Activity, 0, len(c.Activities))
	for _, activity := range c.Activities {
		price, err := record.ParseAmount(activity.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("activity %s: %w", activity.Key, err)
		}
		activities = append(activities, pricing.Activity{
			Key:         activity.Key,
			DisplayName: activity.DisplayName,
			UnitPrice:   price,
		})
	}
	table := pricing.New(activities)

	if c.PricingFile != "" {
		sheet, err := pricing.LoadXLSX(c.PricingFile, pricing.DefaultSheetColumns())
		if err != nil {
			return nil, err
		}
		table.Merge(sheet)
	}

	return table, nil
}
