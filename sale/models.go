package sale

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/saleledger/id"
	"github.com/xraph/saleledger/types"
)

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("sale: invalid config")

// Config holds the parameters fixed at initialization.
type Config struct {
	Owner              types.Address `json:"owner"`
	AssetLocatorPrefix string        `json:"asset_locator_prefix"`
	MaxSupply          uint64        `json:"max_supply"`
	PresaleStart       time.Time     `json:"presale_start"`
	SaleStart          time.Time     `json:"sale_start"`
	PresalePrice       types.Amount  `json:"presale_price"`
	SalePrice          types.Amount  `json:"sale_price"`
}

// ConfigFromUnix builds a Config from unix-second breakpoints and decimal ether prices.
func ConfigFromUnix(owner, prefix string, maxSupply uint64, presaleStart, saleStart int64, presalePrice, salePrice string) (Config, error) {
	pp, err := types.ParseEther(presalePrice)
	if err != nil {
		return Config{}, fmt.Errorf("%w: presale_price: %w", ErrInvalidConfig, err)
	}
	sp, err := types.ParseEther(salePrice)
	if err != nil {
		return Config{}, fmt.Errorf("%w: sale_price: %w", ErrInvalidConfig, err)
	}

	cfg := Config{
		Owner:              types.ParseAddress(owner),
		AssetLocatorPrefix: prefix,
		MaxSupply:          maxSupply,
		PresaleStart:       time.Unix(presaleStart, 0).UTC(),
		SaleStart:          time.Unix(saleStart, 0).UTC(),
		PresalePrice:       pp,
		SalePrice:          sp,
	}
	return cfg, cfg.Validate()
}

// Validate checks the initialization constraints and reports every violation.
func (c Config) Validate() error {
	var errs []error
	if c.Owner.IsZero() {
		errs = append(errs, fmt.Errorf("%w: owner: must not be empty", ErrInvalidConfig))
	}
	if c.MaxSupply == 0 {
		errs = append(errs, fmt.Errorf("%w: max_supply: must be greater than zero", ErrInvalidConfig))
	}
	if c.SaleStart.Before(c.PresaleStart) {
		errs = append(errs, fmt.Errorf("%w: sale_start: must not precede presale_start", ErrInvalidConfig))
	}
	if c.PresalePrice.IsNegative() {
		errs = append(errs, fmt.Errorf("%w: presale_price: must not be negative", ErrInvalidConfig))
	}
	if c.SalePrice.IsNegative() {
		errs = append(errs, fmt.Errorf("%w: sale_price: must not be negative", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// PriceFor returns the unit price of an active phase.
func (c Config) PriceFor(p Phase) (types.Amount, bool) {
	switch p {
	case PhasePreSale:
		return c.PresalePrice, true
	case PhaseSale:
		return c.SalePrice, true
	default:
		return types.Amount{}, false
	}
}

// SameTerms reports whether two configs describe the same sale.
func (c Config) SameTerms(other Config) bool {
	return c.Owner.Equal(other.Owner) &&
		c.AssetLocatorPrefix == other.AssetLocatorPrefix &&
		c.MaxSupply == other.MaxSupply &&
		c.PresaleStart.Equal(other.PresaleStart) &&
		c.SaleStart.Equal(other.SaleStart) &&
		c.PresalePrice.Equal(other.PresalePrice) &&
		c.SalePrice.Equal(other.SalePrice)
}

// State is the persisted sale aggregate: the immutable terms plus every
// counter that changes over the ledger's lifetime.
type State struct {
	types.Entity
	ID                id.SaleID     `json:"id"`
	Config            Config        `json:"config"`
	Owner             types.Address `json:"owner"`
	TotalIssued       uint64        `json:"total_issued"`
	DefaultRoyaltyBps uint16        `json:"default_royalty_bps"`
	Balance           types.Amount  `json:"balance"`
	Version           int64         `json:"version"`
}

// Remaining returns the unissued capacity.
func (s *State) Remaining() uint64 {
	if s.TotalIssued >= s.Config.MaxSupply {
		return 0
	}
	return s.Config.MaxSupply - s.TotalIssued
}

// Clone returns a copy safe to mutate independently.
func (s *State) Clone() *State {
	c := *s
	return &c
}
