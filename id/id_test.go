package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/saleledger/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"SaleID", id.NewSaleID, "sale_"},
		{"MintID", id.NewMintID, "mint_"},
		{"RefundID", id.NewRefundID, "rfd_"},
		{"WithdrawalID", id.NewWithdrawalID, "wdr_"},
		{"DepositID", id.NewDepositID, "dep_"},
		{"RoyaltyID", id.NewRoyaltyID, "roy_"},
		{"OwnershipID", id.NewOwnershipID, "own_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseMintID(t *testing.T) {
	original := id.NewMintID()
	parsed, err := id.ParseMintID(original.String())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
	}

	if _, err := id.ParseMintID(id.NewRefundID().String()); err == nil {
		t.Error("expected error for cross-type parse of a refund ID")
	}
	if _, err := id.ParseSaleID(id.NewMintID().String()); err == nil {
		t.Error("expected error for cross-type parse of a mint ID")
	}
}

func TestParseAny(t *testing.T) {
	ids := []id.ID{
		id.NewSaleID(),
		id.NewMintID(),
		id.NewRefundID(),
		id.NewWithdrawalID(),
		id.NewDepositID(),
	}

	for _, i := range ids {
		t.Run(i.String(), func(t *testing.T) {
			parsed, err := id.ParseAny(i.String())
			if err != nil {
				t.Fatalf("ParseAny(%q) failed: %v", i.String(), err)
			}
			if parsed.Prefix() != i.Prefix() {
				t.Errorf("prefix mismatch: %q != %q", parsed.Prefix(), i.Prefix())
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewWithdrawalID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if err := restored.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}

	var nilID id.ID
	data, err = nilID.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText(nil) failed: %v", err)
	}
	var restored2 id.ID
	if err := restored2.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !restored2.IsNil() {
		t.Error("expected nil after round-trip of nil ID")
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewMintID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if err := scanned.Scan(val); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	var scanned2 id.ID
	if err := scanned2.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !scanned2.IsNil() {
		t.Error("expected nil after scan of nil")
	}

	if err := scanned2.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

func TestUniqueness(t *testing.T) {
	a := id.NewMintID()
	b := id.NewMintID()
	if a.String() == b.String() {
		t.Errorf("two consecutive NewMintID() calls returned the same ID: %q", a.String())
	}
}

func TestSuffix(t *testing.T) {
	i := id.NewRefundID()
	if got := i.Suffix(); len(got) != 26 || "rfd_"+got != i.String() {
		t.Errorf("unexpected suffix %q for %q", got, i.String())
	}

	var nilID id.ID
	if nilID.Suffix() != "" {
		t.Error("expected empty suffix for nil ID")
	}
}
