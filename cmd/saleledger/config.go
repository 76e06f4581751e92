package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/xraph/saleledger/sale"
)

// cliConfig is the sale file written by init. Environment variables
// override the operational settings, never the sale terms.
type cliConfig struct {
	SaleID string `yaml:"sale_id" env:"SALELEDGER_SALE_ID"`
	// Data is the JSON snapshot holding the ledger state.
	Data string `yaml:"data" env:"SALELEDGER_DATA"`

	Owner              string `yaml:"owner"`
	AssetLocatorPrefix string `yaml:"asset_locator_prefix"`
	MaxSupply          uint64 `yaml:"max_supply"`
	PresaleStart       int64  `yaml:"presale_start"`
	SaleStart          int64  `yaml:"sale_start"`
	PresalePrice       string `yaml:"presale_price"`
	SalePrice          string `yaml:"sale_price"`

	DepositsOutsideSale  bool          `yaml:"deposits_outside_sale" env:"SALELEDGER_DEPOSITS_OUTSIDE_SALE"`
	JournalBatchSize     int           `yaml:"journal_batch_size" env:"SALELEDGER_JOURNAL_BATCH_SIZE"`
	JournalFlushInterval time.Duration `yaml:"journal_flush_interval" env:"SALELEDGER_JOURNAL_FLUSH_INTERVAL"`
}

var errNoSale = errors.New("no sale configured; run 'saleledger init' first")

// loadConfig reads the sale file at path and applies environment overrides.
func loadConfig(path string) (*cliConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w (%s)", errNoSale, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &cliConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Data == "" {
		cfg.Data = defaultDataPath(path)
	}
	return cfg, nil
}

// saveConfig writes cfg to path, creating parent directories.
func saveConfig(path string, cfg *cliConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// defaultDataPath places the snapshot next to the config file.
func defaultDataPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "saleledger.json")
}

func (c *cliConfig) saleConfig() (sale.Config, error) {
	return sale.ConfigFromUnix(c.Owner, c.AssetLocatorPrefix, c.MaxSupply,
		c.PresaleStart, c.SaleStart, c.PresalePrice, c.SalePrice)
}
