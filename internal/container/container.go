// Package container provides dependency injection for the stmt-forensics application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"fmt"
	"os"
	"path/filepath"

	"fjacquet/stmt-forensics/internal/batch"
	"fjacquet/stmt-forensics/internal/categorizer"
	"fjacquet/stmt-forensics/internal/config"
	"fjacquet/stmt-forensics/internal/currency"
	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"
	"fjacquet/stmt-forensics/internal/normalizer"
	"fjacquet/stmt-forensics/internal/scoring"
	"fjacquet/stmt-forensics/internal/store"
	"fjacquet/stmt-forensics/internal/validation"

	"github.com/shopspring/decimal"
)

// MemoryStorePath selects the in-memory history store instead of SQLite.
const MemoryStorePath = "memory"

// RulesView is the effective rule configuration: defaults merged with overrides.
type RulesView struct {
	DefaultCurrency string                      `json:"default_currency" yaml:"default_currency"`
	CurrencyCodes   []string                    `json:"currency_codes" yaml:"currency_codes"`
	Rules           validation.Rules            `json:"rules" yaml:"rules"`
	Currencies      map[string]currency.Profile `json:"currencies" yaml:"currencies"`
	Scoring         scoring.Policy              `json:"scoring" yaml:"scoring"`
	Normalizer      config.NormalizerConfig     `json:"normalizer" yaml:"normalizer"`
}

// Container holds all application dependencies and provides methods to access them.
// It is immutable after creation: fields are private and only exposed through getters.
type Container struct {
	logger     logging.Logger
	config     *config.Config
	classifier *categorizer.Classifier
	normalizer *normalizer.Normalizer
	resolver   *currency.Resolver
	engine     *validation.Engine
	policy     scoring.Policy
	repo       store.Repository
	sqlite     *store.SQLiteStore
	analyzer   *batch.Analyzer
	runner     *batch.Runner
}

// NewContainer creates and wires all application dependencies.
// This is the main entry point for dependency injection in the application.
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	return NewContainerWithLogger(cfg, logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format))
}

// NewContainerWithLogger is NewContainer with a caller-supplied logger.
func NewContainerWithLogger(cfg *config.Config, logger logging.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	logger = logging.OrDefault(logger)

	classifier, err := newClassifier(cfg.Normalizer.CategoriesFile, logger)
	if err != nil {
		return nil, err
	}
	norm := normalizer.New(NormalizerOptions(cfg), classifier, logger)

	resolver := currency.NewResolver(cfg.Currency.Default, ProfileOverrides(cfg))
	engine := validation.NewEngine(cfg.Rules, resolver, logger)

	repo, sqlite, err := openStore(cfg.Store.Path, logger)
	if err != nil {
		return nil, err
	}

	analyzer := batch.NewAnalyzer(norm, engine, cfg.Scoring, logger)
	runner := batch.NewRunner(analyzer, repo, cfg.Batch.Workers, logger)

	logger.Info("Container initialized successfully",
		logging.Field{Key: logging.FieldCurrency, Value: resolver.DefaultCode()},
		logging.Field{Key: "store", Value: storeName(cfg.Store.Path)},
		logging.Field{Key: "workers", Value: cfg.Batch.Workers})

	return &Container{
		logger:     logger,
		config:     cfg,
		classifier: classifier,
		normalizer: norm,
		resolver:   resolver,
		engine:     engine,
		policy:     cfg.Scoring,
		repo:       repo,
		sqlite:     sqlite,
		analyzer:   analyzer,
		runner:     runner,
	}, nil
}

func newClassifier(path string, logger logging.Logger) (*categorizer.Classifier, error) {
	if path == "" {
		return categorizer.New(nil, logger), nil
	}
	resolved, err := store.FindConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("categories file %s not found: %w", path, err)
	}
	classifier, err := categorizer.NewFromFile(resolved, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return classifier, nil
}

func openStore(path string, logger logging.Logger) (store.Repository, *store.SQLiteStore, error) {
	if path == MemoryStorePath {
		return store.NewMemoryStore(), nil, nil
	}
	if path == "" {
		path = store.DefaultDatabasePath()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), models.PermissionDirectory); err != nil {
			return nil, nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	db, err := store.OpenSQLite(path, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history store %s: %w", path, err)
	}
	return db, db, nil
}

func storeName(path string) string {
	switch path {
	case MemoryStorePath:
		return "memory"
	case "":
		return store.DefaultDatabasePath()
	}
	return path
}

// NormalizerOptions converts the normalizer section of cfg.
func NormalizerOptions(cfg *config.Config) normalizer.Options {
	n := cfg.Normalizer
	opts := normalizer.DefaultOptions()
	opts.SummaryScanRows = n.SummaryScanRows
	opts.SummaryScanCols = n.SummaryScanCols
	opts.HeaderScanRows = n.HeaderScanRows
	opts.OpeningScanRows = n.OpeningScanRows
	opts.EmptyRowLimit = n.EmptyRowLimit
	opts.GarbageAlnumRatio = n.GarbageAlnumRatio
	opts.FraudRatio = decimal.NewFromFloat(n.FraudRatio)
	opts.FraudMinDiscrepancy = decimal.NewFromFloat(n.FraudMinDiscrepancy)
	opts.InjectionRatio = decimal.NewFromFloat(n.InjectionRatio)
	opts.CurrencyScanRows = cfg.Rules.CurrencyScanRows
	opts.HeaderSymbolWeight = cfg.Rules.HeaderSymbolWeight
	return opts
}

// ProfileOverrides converts the currency overrides of cfg.
func ProfileOverrides(cfg *config.Config) map[string]currency.Profile {
	out := make(map[string]currency.Profile, len(cfg.Currency.Overrides))
	for code, p := range cfg.Currency.Overrides {
		out[code] = currency.Profile{
			RoundUnit:     decimal.NewFromFloat(p.RoundUnit),
			MinRoundValue: decimal.NewFromFloat(p.MinRoundValue),
			OutlierFactor: decimal.NewFromFloat(p.OutlierFactor),
		}
	}
	return out
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetClassifier returns the transaction classifier.
func (c *Container) GetClassifier() *categorizer.Classifier {
	return c.classifier
}

// GetNormalizer returns the statement normalizer.
func (c *Container) GetNormalizer() *normalizer.Normalizer {
	return c.normalizer
}

// GetEngine returns the validation engine.
func (c *Container) GetEngine() *validation.Engine {
	return c.engine
}

// GetPolicy returns the scoring policy.
func (c *Container) GetPolicy() scoring.Policy {
	return c.policy
}

// GetRepository returns the statement history store.
func (c *Container) GetRepository() store.Repository {
	return c.repo
}

// GetAnalyzer returns the single-document pipeline.
func (c *Container) GetAnalyzer() *batch.Analyzer {
	return c.analyzer
}

// GetRunner returns the re-analysis runner.
func (c *Container) GetRunner() *batch.Runner {
	return c.runner
}

// EffectiveRules returns the rule configuration in force.
func (c *Container) EffectiveRules() RulesView {
	return RulesView{
		DefaultCurrency: c.resolver.DefaultCode(),
		CurrencyCodes:   c.resolver.Codes(),
		Rules:           c.engine.Rules(),
		Currencies:      c.resolver.Profiles(),
		Scoring:         c.policy,
		Normalizer:      c.config.Normalizer,
	}
}

// Close releases the history store.
func (c *Container) Close() error {
	if c.sqlite != nil {
		if err := c.sqlite.Close(); err != nil {
			return fmt.Errorf("failed to close history store: %w", err)
		}
	}
	c.logger.Debug("Container closed")
	return nil
}
