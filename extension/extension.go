// Package extension provides the Forge extension adapter for the sale ledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.saleledger" or
// "saleledger" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/saleledger"
	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/store"
	"github.com/xraph/saleledger/store/memory"
	mongostore "github.com/xraph/saleledger/store/mongo"
	"github.com/xraph/saleledger/store/postgres"
	"github.com/xraph/saleledger/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "saleledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Fixed-supply token sale ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the sale ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *saleledger.Ledger
	store      store.Store
	groveDB    *grove.DB
	ledgerOpts []saleledger.Option
}

// New creates a new sale ledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *saleledger.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	eng, err := e.build()
	if err != nil {
		return err
	}
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*saleledger.Ledger, error) {
		return e.engine, nil
	})
}

// build resolves the store and constructs the engine from the loaded config.
func (e *Extension) build() (*saleledger.Ledger, error) {
	if e.store == nil {
		s, err := storeFor(e.config.StoreDriver, e.groveDB)
		if err != nil {
			return nil, err
		}
		e.store = s
	}

	cfg, err := e.config.SaleConfig()
	if err != nil {
		return nil, fmt.Errorf("saleledger: extension config: %w", err)
	}

	opts, err := e.buildLedgerOpts()
	if err != nil {
		return nil, err
	}
	return saleledger.New(e.store, cfg, opts...)
}

// storeFor builds the backend for a grove driver; without a database the
// in-memory store is used.
func storeFor(driver string, db *grove.DB) (store.Store, error) {
	if db == nil {
		return memory.New(), nil
	}
	switch driver {
	case "postgres", "pg":
		return postgres.New(db), nil
	case "sqlite":
		return sqlite.New(db), nil
	case "mongo", "mongodb":
		return mongostore.New(db), nil
	default:
		return nil, fmt.Errorf("saleledger: unsupported store driver %q", driver)
	}
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("saleledger: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("saleledger: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildLedgerOpts constructs saleledger.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() ([]saleledger.Option, error) {
	opts := make([]saleledger.Option, 0, len(e.ledgerOpts)+4)

	opts = append(opts, saleledger.WithJournalConfig(e.config.JournalBatchSize, e.config.JournalFlushInterval))

	if e.config.SaleID != "" {
		saleID, err := id.ParseSaleID(e.config.SaleID)
		if err != nil {
			return nil, fmt.Errorf("saleledger: extension config: sale_id: %w", err)
		}
		opts = append(opts, saleledger.WithSaleID(saleID))
	}
	if e.config.DepositsOutsideSale {
		opts = append(opts, saleledger.WithDepositsOutsideSale())
	}
	if e.config.DisableMigrate {
		opts = append(opts, saleledger.WithoutMigrate())
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("saleledger: configuration is required but not found in config files; " +
				"ensure 'extensions.saleledger' or 'saleledger' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("saleledger: configuration loaded",
		forge.F("sale_id", e.config.SaleID),
		forge.F("owner", e.config.Owner),
		forge.F("max_supply", e.config.MaxSupply),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("journal_batch_size", e.config.JournalBatchSize),
		forge.F("journal_flush_interval", e.config.JournalFlushInterval),
		forge.F("store_driver", e.config.StoreDriver),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.saleledger", "saleledger"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("saleledger: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("saleledger: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.JournalBatchSize == 0 {
		cfg.JournalBatchSize = defaults.JournalBatchSize
	}
	if cfg.JournalFlushInterval == 0 {
		cfg.JournalFlushInterval = defaults.JournalFlushInterval
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DepositsOutsideSale {
		yamlConfig.DepositsOutsideSale = true
	}

	// String fields: YAML takes precedence.
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&yamlConfig.SaleID, programmaticConfig.SaleID)
	fill(&yamlConfig.Owner, programmaticConfig.Owner)
	fill(&yamlConfig.AssetLocatorPrefix, programmaticConfig.AssetLocatorPrefix)
	fill(&yamlConfig.PresalePrice, programmaticConfig.PresalePrice)
	fill(&yamlConfig.SalePrice, programmaticConfig.SalePrice)
	fill(&yamlConfig.StoreDriver, programmaticConfig.StoreDriver)

	// Numeric fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.MaxSupply == 0 {
		yamlConfig.MaxSupply = programmaticConfig.MaxSupply
	}
	if yamlConfig.PresaleStart == 0 {
		yamlConfig.PresaleStart = programmaticConfig.PresaleStart
	}
	if yamlConfig.SaleStart == 0 {
		yamlConfig.SaleStart = programmaticConfig.SaleStart
	}
	if yamlConfig.JournalBatchSize == 0 {
		yamlConfig.JournalBatchSize = programmaticConfig.JournalBatchSize
	}
	if yamlConfig.JournalFlushInterval == 0 {
		yamlConfig.JournalFlushInterval = programmaticConfig.JournalFlushInterval
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
