package extension

import (
	"time"

	"github.com/xraph/saleledger/sale"
)

// Config holds the sale ledger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.saleledger" or "saleledger" keys).
type Config struct {
	// SaleID resumes a persisted sale. When empty a new sale is created on
	// every start.
	SaleID string `json:"sale_id" mapstructure:"sale_id" yaml:"sale_id"`

	// Owner is the initial owner address of the sale.
	Owner string `json:"owner" mapstructure:"owner" yaml:"owner"`

	// AssetLocatorPrefix is prepended to token ids to build metadata URIs.
	AssetLocatorPrefix string `json:"asset_locator_prefix" mapstructure:"asset_locator_prefix" yaml:"asset_locator_prefix"`

	// MaxSupply is the fixed number of tokens for sale.
	MaxSupply uint64 `json:"max_supply" mapstructure:"max_supply" yaml:"max_supply"`

	// PresaleStart and SaleStart are unix seconds.
	PresaleStart int64 `json:"presale_start" mapstructure:"presale_start" yaml:"presale_start"`
	SaleStart    int64 `json:"sale_start" mapstructure:"sale_start" yaml:"sale_start"`

	// PresalePrice and SalePrice are decimal ether strings ("0.05").
	PresalePrice string `json:"presale_price" mapstructure:"presale_price" yaml:"presale_price"`
	SalePrice    string `json:"sale_price" mapstructure:"sale_price" yaml:"sale_price"`

	// DepositsOutsideSale accepts plain transfers while no phase is active.
	DepositsOutsideSale bool `json:"deposits_outside_sale" mapstructure:"deposits_outside_sale" yaml:"deposits_outside_sale"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// JournalBatchSize is the number of journal entries to buffer before
	// flushing to the store (default: 64).
	JournalBatchSize int `json:"journal_batch_size" mapstructure:"journal_batch_size" yaml:"journal_batch_size"`

	// JournalFlushInterval is how frequently the journal buffer is flushed
	// even if the batch size has not been reached (default: 1s).
	JournalFlushInterval time.Duration `json:"journal_flush_interval" mapstructure:"journal_flush_interval" yaml:"journal_flush_interval"`

	// StoreDriver selects the backend built around the grove.DB passed with
	// WithGroveDB: "postgres", "sqlite" or "mongo". Ignored without one.
	StoreDriver string `json:"store_driver" mapstructure:"store_driver" yaml:"store_driver"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		JournalBatchSize:     64,
		JournalFlushInterval: time.Second,
	}
}

// SaleConfig converts the sale terms into a validated sale.Config.
func (c Config) SaleConfig() (sale.Config, error) {
	return sale.ConfigFromUnix(c.Owner, c.AssetLocatorPrefix, c.MaxSupply,
		c.PresaleStart, c.SaleStart, c.PresalePrice, c.SalePrice)
}
