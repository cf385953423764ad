package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeConfig_Defaults(t *testing.T) {
	clearTestEnvVars(t)
	t.Chdir(t.TempDir())

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "text", config.Log.Format)
	assert.Equal(t, ",", config.CSV.Delimiter)
	assert.Equal(t, 25, config.Normalizer.SummaryScanRows)
	assert.Equal(t, 30, config.Normalizer.HeaderScanRows)
	assert.Equal(t, 4, config.Normalizer.OpeningScanRows)
	assert.Equal(t, 10, config.Normalizer.EmptyRowLimit)
	assert.Equal(t, 0.3, config.Normalizer.GarbageAlnumRatio)
	assert.Equal(t, 5.0, config.Normalizer.FraudRatio)
	assert.Equal(t, 50.0, config.Normalizer.InjectionRatio)
	assert.Equal(t, 0.05, config.Rules.BalanceTolerance)
	assert.Equal(t, 20, config.Rules.BenfordMinSamples)
	assert.Equal(t, 0.25, config.Rules.BenfordMinRatio)
	assert.Equal(t, 0.30, config.Rules.RoundRatio)
	assert.Equal(t, "INR", config.Rules.MagnitudeCurrency)
	assert.Equal(t, "INR", config.Currency.Default)
	assert.Empty(t, config.Currency.Overrides)
	assert.Equal(t, 0.15, config.Scoring.ErrorPenalty)
	assert.Equal(t, 0.8, config.Scoring.ReviewThreshold)
	assert.Equal(t, ":8080", config.Server.Addr)
	assert.Equal(t, 4, config.Batch.Workers)
	assert.Equal(t, "", config.Batch.Schedule)
}

func TestDefaultMatchesInitializeConfig(t *testing.T) {
	clearTestEnvVars(t)
	t.Chdir(t.TempDir())

	loaded, err := InitializeConfig()
	require.NoError(t, err)
	assert.Equal(t, Default().Rules, loaded.Rules)
	assert.Equal(t, Default().Scoring, loaded.Scoring)
	require.NoError(t, validateConfig(Default()))
}

func TestInitializeConfig_EnvironmentVariables(t *testing.T) {
	clearTestEnvVars(t)
	t.Chdir(t.TempDir())

	testEnvVars := map[string]string{
		"FORENSICS_LOG_LEVEL":                 "debug",
		"FORENSICS_LOG_FORMAT":                "json",
		"FORENSICS_CSV_DELIMITER":             ";",
		"FORENSICS_RULES_ROUND_RATIO":         "0.4",
		"FORENSICS_RULES_BENFORD_MIN_SAMPLES": "30",
		"FORENSICS_NORMALIZER_FRAUD_RATIO":    "8",
		"FORENSICS_SCORING_WARN_PENALTY":      "0.07",
		"FORENSICS_BATCH_WORKERS":             "2",
		"FORENSICS_STORE_PATH":                "/tmp/history.db",
	}
	for key, value := range testEnvVars {
		t.Setenv(key, value)
	}

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, ";", config.CSV.Delimiter)
	assert.Equal(t, 0.4, config.Rules.RoundRatio)
	assert.Equal(t, 30, config.Rules.BenfordMinSamples)
	assert.Equal(t, 8.0, config.Normalizer.FraudRatio)
	assert.Equal(t, 0.07, config.Scoring.WarnPenalty)
	assert.Equal(t, 2, config.Batch.Workers)
	assert.Equal(t, "/tmp/history.db", config.Store.Path)
}

func TestInitializeConfig_ConfigFile(t *testing.T) {
	clearTestEnvVars(t)
	tempDir := t.TempDir()

	configContent := `
log:
  level: "warn"
  format: "json"
rules:
  benford_min_ratio: 0.2
  structuring_min_hits: 4
currency:
  default: "USD"
  overrides:
    JPY:
      round_unit: 500
      min_round_value: 500
      outlier_factor: 40
batch:
  schedule: "@daily"
  watch_dir: "/data/inbox"
`
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(configContent), 0600))
	t.Chdir(tempDir)

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "warn", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, 0.2, config.Rules.BenfordMinRatio)
	assert.Equal(t, 4, config.Rules.StructuringMinHits)
	assert.Equal(t, 0.05, config.Rules.BalanceTolerance, "unset keys keep defaults")
	assert.Equal(t, "USD", config.Currency.Default)
	require.Contains(t, config.Currency.Overrides, "jpy")
	assert.Equal(t, 500.0, config.Currency.Overrides["jpy"].RoundUnit)
	assert.Equal(t, "@daily", config.Batch.Schedule)
	assert.Equal(t, "/data/inbox", config.Batch.WatchDir)
}

func TestInitializeConfig_HierarchicalPrecedence(t *testing.T) {
	clearTestEnvVars(t)
	tempDir := t.TempDir()

	configContent := `
log:
  level: "warn"
csv:
  delimiter: "|"
batch:
  workers: 6
`
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(configContent), 0600))
	t.Setenv("FORENSICS_LOG_LEVEL", "error")
	t.Setenv("FORENSICS_BATCH_WORKERS", "3")
	t.Chdir(tempDir)

	config, err := InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "error", config.Log.Level) // env var wins
	assert.Equal(t, "|", config.CSV.Delimiter) // config file value
	assert.Equal(t, 3, config.Batch.Workers)   // env var wins
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	clearTestEnvVars(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0600))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", config.Server.Addr)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidateConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name         string
		modifyConfig func(*Config)
		expectError  string
	}{
		{
			name:         "invalid log level",
			modifyConfig: func(c *Config) { c.Log.Level = "invalid" },
			expectError:  "invalid log level",
		},
		{
			name:         "invalid log format",
			modifyConfig: func(c *Config) { c.Log.Format = "invalid" },
			expectError:  "invalid log format",
		},
		{
			name:         "invalid CSV delimiter",
			modifyConfig: func(c *Config) { c.CSV.Delimiter = "abc" },
			expectError:  "CSV delimiter must be a single character",
		},
		{
			name:         "garbage ratio out of range",
			modifyConfig: func(c *Config) { c.Normalizer.GarbageAlnumRatio = 1.5 },
			expectError:  "normalizer.garbage_alnum_ratio",
		},
		{
			name:         "fraud ratio not above one",
			modifyConfig: func(c *Config) { c.Normalizer.FraudRatio = 1 },
			expectError:  "normalizer.fraud_ratio",
		},
		{
			name:         "non-positive tolerance",
			modifyConfig: func(c *Config) { c.Rules.BalanceTolerance = 0 },
			expectError:  "balance_tolerance must be positive",
		},
		{
			name:         "ratio above one",
			modifyConfig: func(c *Config) { c.Rules.RoundRatio = 1.2 },
			expectError:  "round_ratio must be in (0,1]",
		},
		{
			name:         "bad default currency",
			modifyConfig: func(c *Config) { c.Currency.Default = "RUPEE" },
			expectError:  "currency.default",
		},
		{
			name: "non-positive profile override",
			modifyConfig: func(c *Config) {
				c.Currency.Overrides = map[string]ProfileOverride{"usd": {RoundUnit: 0, MinRoundValue: 1, OutlierFactor: 1}}
			},
			expectError: "currency.overrides.usd",
		},
		{
			name:         "scoring penalty out of range",
			modifyConfig: func(c *Config) { c.Scoring.ErrorPenalty = 2 },
			expectError:  "scoring.error_penalty",
		},
		{
			name:         "no workers",
			modifyConfig: func(c *Config) { c.Batch.Workers = 0 },
			expectError:  "batch.workers must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.modifyConfig(config)
			err := validateConfig(config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestConfigureLoggingFromConfig(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
		want   string
	}{
		{name: "text format info level", level: "info", format: "text", want: "info"},
		{name: "json format debug level", level: "debug", format: "json", want: "debug"},
		{name: "invalid level falls back to info", level: "loud", format: "text", want: "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			config.Log.Level = tt.level
			config.Log.Format = tt.format
			logger := ConfigureLoggingFromConfig(config)
			require.NotNil(t, logger)
			assert.Equal(t, tt.want, logger.GetLevel().String())
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("FORENSICS_TEST_VALUE", "set")
	assert.Equal(t, "set", GetEnv("FORENSICS_TEST_VALUE", "fallback"))
	assert.Equal(t, "fallback", GetEnv("FORENSICS_TEST_UNSET_VALUE", "fallback"))
}

// clearTestEnvVars blanks the overrides a developer shell might carry.
func clearTestEnvVars(t *testing.T) {
	t.Helper()
	for _, envVar := range []string{
		"FORENSICS_LOG_LEVEL",
		"FORENSICS_LOG_FORMAT",
		"FORENSICS_CSV_DELIMITER",
		"FORENSICS_STORE_PATH",
		"FORENSICS_SERVER_ADDR",
		"FORENSICS_BATCH_WORKERS",
		"FORENSICS_BATCH_SCHEDULE",
		"FORENSICS_CURRENCY_DEFAULT",
	} {
		if _, ok := os.LookupEnv(envVar); ok {
			t.Setenv(envVar, "")
			require.NoError(t, os.Unsetenv(envVar))
		}
	}
}
