// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"regexp"
	"strings"

	"fjacquet/stmt-forensics/internal/scoring"
	"fjacquet/stmt-forensics/internal/validation"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FORENSICS_LOG_LEVEL.
const EnvPrefix = "FORENSICS"

// ProfileOverride replaces the thresholds of one currency.
type ProfileOverride struct {
	RoundUnit     float64 `mapstructure:"round_unit" yaml:"round_unit" json:"round_unit"`
	MinRoundValue float64 `mapstructure:"min_round_value" yaml:"min_round_value" json:"min_round_value"`
	OutlierFactor float64 `mapstructure:"outlier_factor" yaml:"outlier_factor" json:"outlier_factor"`
}

// NormalizerConfig tunes the statement repair heuristics.
type NormalizerConfig struct {
	SummaryScanRows     int     `mapstructure:"summary_scan_rows" yaml:"summary_scan_rows" json:"summary_scan_rows"`
	SummaryScanCols     int     `mapstructure:"summary_scan_cols" yaml:"summary_scan_cols" json:"summary_scan_cols"`
	HeaderScanRows      int     `mapstructure:"header_scan_rows" yaml:"header_scan_rows" json:"header_scan_rows"`
	OpeningScanRows     int     `mapstructure:"opening_scan_rows" yaml:"opening_scan_rows" json:"opening_scan_rows"`
	EmptyRowLimit       int     `mapstructure:"empty_row_limit" yaml:"empty_row_limit" json:"empty_row_limit"`
	GarbageAlnumRatio   float64 `mapstructure:"garbage_alnum_ratio" yaml:"garbage_alnum_ratio" json:"garbage_alnum_ratio"`
	FraudRatio          float64 `mapstructure:"fraud_ratio" yaml:"fraud_ratio" json:"fraud_ratio"`
	FraudMinDiscrepancy float64 `mapstructure:"fraud_min_discrepancy" yaml:"fraud_min_discrepancy" json:"fraud_min_discrepancy"`
	InjectionRatio      float64 `mapstructure:"injection_ratio" yaml:"injection_ratio" json:"injection_ratio"`
	CategoriesFile      string  `mapstructure:"categories_file" yaml:"categories_file" json:"categories_file"`
}

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	CSV struct {
		Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	} `mapstructure:"csv" yaml:"csv"`

	Normalizer NormalizerConfig `mapstructure:"normalizer" yaml:"normalizer"`

	Rules validation.Rules `mapstructure:"rules" yaml:"rules"`

	Currency struct {
		Default   string                     `mapstructure:"default" yaml:"default"`
		Overrides map[string]ProfileOverride `mapstructure:"overrides" yaml:"overrides"`
	} `mapstructure:"currency" yaml:"currency"`

	Scoring scoring.Policy `mapstructure:"scoring" yaml:"scoring"`

	Store struct {
		Path string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"store" yaml:"store"`

	Server struct {
		Addr string `mapstructure:"addr" yaml:"addr"`
	} `mapstructure:"server" yaml:"server"`

	Batch struct {
		Workers  int    `mapstructure:"workers" yaml:"workers"`
		Schedule string `mapstructure:"schedule" yaml:"schedule"`
		WatchDir string `mapstructure:"watch_dir" yaml:"watch_dir"`
	} `mapstructure:"batch" yaml:"batch"`
}

// InitializeConfig initializes Viper configuration with hierarchical loading
func InitializeConfig() (*Config, error) {
	return LoadConfig("")
}

// LoadConfig loads configuration like InitializeConfig, reading configFile
// instead of searching the standard locations when it is not empty.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.stmt-forensics")
		v.AddConfigPath(".stmt-forensics")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional unless given explicitly)
	if err := v.ReadInConfig(); err != nil {
		if configFile != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Continue with defaults and env vars
			Logger.Warnf("Error reading config file %s: %v", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration obtained from defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("default configuration does not unmarshal: %v", err))
	}
	return &config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// CSV defaults
	v.SetDefault("csv.delimiter", ",")

	// Normalizer defaults
	v.SetDefault("normalizer.summary_scan_rows", 25)
	v.SetDefault("normalizer.summary_scan_cols", 9)
	v.SetDefault("normalizer.header_scan_rows", 30)
	v.SetDefault("normalizer.opening_scan_rows", 4)
	v.SetDefault("normalizer.empty_row_limit", 10)
	v.SetDefault("normalizer.garbage_alnum_ratio", 0.3)
	v.SetDefault("normalizer.fraud_ratio", 5.0)
	v.SetDefault("normalizer.fraud_min_discrepancy", 1.0)
	v.SetDefault("normalizer.injection_ratio", 50.0)
	v.SetDefault("normalizer.categories_file", "")

	// Validation rule defaults
	r := validation.DefaultRules()
	v.SetDefault("rules.balance_tolerance", r.BalanceTolerance)
	v.SetDefault("rules.invoice_tolerance", r.InvoiceTolerance)
	v.SetDefault("rules.payslip_tolerance", r.PayslipTolerance)
	v.SetDefault("rules.continuity_min_transactions", r.ContinuityMinTxns)
	v.SetDefault("rules.benford_min_samples", r.BenfordMinSamples)
	v.SetDefault("rules.benford_min_ratio", r.BenfordMinRatio)
	v.SetDefault("rules.round_ratio", r.RoundRatio)
	v.SetDefault("rules.structuring_percentile", r.StructuringPercentile)
	v.SetDefault("rules.structuring_band", r.StructuringBand)
	v.SetDefault("rules.structuring_min_hits", r.StructuringMinHits)
	v.SetDefault("rules.velocity_percentile", r.VelocityPercentile)
	v.SetDefault("rules.velocity_min_hits", r.VelocityMinHits)
	v.SetDefault("rules.negative_balance_ratio", r.NegativeBalanceRatio)
	v.SetDefault("rules.repetition_ratio", r.RepetitionRatio)
	v.SetDefault("rules.min_unique_descriptions", r.MinUniqueDescriptions)
	v.SetDefault("rules.synthetic_min_rows", r.SyntheticMinRows)
	v.SetDefault("rules.date_violation_critical", r.DateViolationCritical)
	v.SetDefault("rules.currency_scan_rows", r.CurrencyScanRows)
	v.SetDefault("rules.header_symbol_weight", r.HeaderSymbolWeight)
	v.SetDefault("rules.magnitude_threshold", r.MagnitudeThreshold)
	v.SetDefault("rules.magnitude_currency", r.MagnitudeCurrency)

	// Currency defaults
	v.SetDefault("currency.default", "INR")
	v.SetDefault("currency.overrides", map[string]any{})

	// Scoring defaults
	p := scoring.DefaultPolicy()
	v.SetDefault("scoring.error_penalty", p.ErrorPenalty)
	v.SetDefault("scoring.critical_warn_penalty", p.CriticalWarnPenalty)
	v.SetDefault("scoring.warn_penalty", p.WarnPenalty)
	v.SetDefault("scoring.info_penalty", p.InfoPenalty)
	v.SetDefault("scoring.floor", p.Floor)
	v.SetDefault("scoring.fraud_cap", p.FraudCap)
	v.SetDefault("scoring.fraud_base", p.FraudBase)
	v.SetDefault("scoring.default_base", p.DefaultBase)
	v.SetDefault("scoring.review_threshold", p.ReviewThreshold)

	// Store, server and batch defaults
	v.SetDefault("store.path", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.schedule", "")
	v.SetDefault("batch.watch_dir", "")
}

var currencyCode = regexp.MustCompile(`^[A-Za-z]{3}$`)

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	// Validate log level
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	// Validate log format
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	// Validate CSV delimiter
	if len(config.CSV.Delimiter) != 1 {
		return fmt.Errorf("CSV delimiter must be a single character, got: %s", config.CSV.Delimiter)
	}

	// Validate normalizer tuning
	n := config.Normalizer
	if n.GarbageAlnumRatio <= 0 || n.GarbageAlnumRatio > 1 {
		return fmt.Errorf("normalizer.garbage_alnum_ratio must be in (0,1], got: %v", n.GarbageAlnumRatio)
	}
	if n.FraudRatio <= 1 || n.InjectionRatio <= 1 {
		return fmt.Errorf("normalizer.fraud_ratio and normalizer.injection_ratio must be greater than 1, got: %v and %v",
			n.FraudRatio, n.InjectionRatio)
	}
	if n.FraudMinDiscrepancy <= 0 {
		return fmt.Errorf("normalizer.fraud_min_discrepancy must be positive, got: %v", n.FraudMinDiscrepancy)
	}
	if n.SummaryScanRows < 1 || n.HeaderScanRows < 1 || n.EmptyRowLimit < 1 {
		return fmt.Errorf("normalizer scan limits must be at least 1")
	}

	// Validate rule thresholds
	if err := config.Rules.Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}

	// Validate currency profiles
	if !currencyCode.MatchString(config.Currency.Default) {
		return fmt.Errorf("currency.default must be a 3-letter code, got: %q", config.Currency.Default)
	}
	for code, p := range config.Currency.Overrides {
		if p.RoundUnit <= 0 || p.MinRoundValue <= 0 || p.OutlierFactor <= 0 {
			return fmt.Errorf("currency.overrides.%s: round_unit, min_round_value and outlier_factor must be positive", code)
		}
	}

	// Validate scoring policy
	if err := config.Scoring.Validate(); err != nil {
		return err
	}

	// Validate batch settings
	if config.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got: %d", config.Batch.Workers)
	}

	return nil
}

// ConfigureLoggingFromConfig configures logging based on the Config struct
func ConfigureLoggingFromConfig(config *Config) *logrus.Logger {
	logger := logrus.New()

	// Parse and set log level
	logLevel, err := logrus.ParseLevel(strings.ToLower(config.Log.Level))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", config.Log.Level)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Configure log format
	if strings.ToLower(config.Log.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
