package sale

import (
	"fmt"
	"time"
)

// Phase is the derived sale state. The numeric values follow the order of the
// sale lifecycle and are stable on the wire.
type Phase uint8

const (
	PhaseNotStarted Phase = iota
	PhasePreSale
	PhaseSale
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhasePreSale:
		return "presale"
	case PhaseSale:
		return "sale"
	case PhaseFinished:
		return "finished"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// Active reports whether tokens can be bought in this phase.
func (p Phase) Active() bool { return p == PhasePreSale || p == PhaseSale }

// ParsePhase parses the String form of a phase.
func ParsePhase(s string) (Phase, error) {
	for _, p := range []Phase{PhaseNotStarted, PhasePreSale, PhaseSale, PhaseFinished} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("sale: unknown phase %q", s)
}

// PhaseAt derives the phase from the issued count and the wall clock.
// An exhausted supply is Finished regardless of time.
func (c Config) PhaseAt(totalIssued uint64, now time.Time) Phase {
	switch {
	case totalIssued >= c.MaxSupply:
		return PhaseFinished
	case now.Before(c.PresaleStart):
		return PhaseNotStarted
	case now.Before(c.SaleStart):
		return PhasePreSale
	default:
		return PhaseSale
	}
}
