package types

import (
	"encoding/json"
	"testing"
)

func TestParseEther(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wei     string
		wantErr bool
	}{
		{"Half", "0.5", "500000000000000000", false},
		{"Presale price", "0.05", "50000000000000000", false},
		{"Whole", "2", "2000000000000000000", false},
		{"Leading dot", ".6", "600000000000000000", false},
		{"Smallest unit", "0.000000000000000001", "1", false},
		{"Too precise", "0.0000000000000000001", "", true},
		{"Garbage", "abc", "", true},
		{"Empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEther(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %s", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.wei {
				t.Errorf("wei: got %s, want %s", got, tt.wei)
			}
		})
	}
}

func TestFormatEther(t *testing.T) {
	tests := []struct {
		amount Amount
		want   string
	}{
		{MustParseEther("0.06"), "0.06"},
		{MustParseEther("1.2"), "1.2"},
		{MustParseEther("3"), "3"},
		{Wei(1), "0.000000000000000001"},
		{Zero(), "0"},
		{Wei(-5).MulUint(1), "-0.000000000000000005"},
	}

	for _, tt := range tests {
		if got := tt.amount.FormatEther(); got != tt.want {
			t.Errorf("FormatEther(%s): got %s, want %s", tt.amount, got, tt.want)
		}
	}
}

func TestAmountArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Amount
		expected Amount
	}{
		{"Add", func() Amount { return Wei(100).Add(Wei(200)) }, Wei(300)},
		{"Sub", func() Amount { return Wei(500).Sub(Wei(200)) }, Wei(300)},
		{"MulUint", func() Amount { return Wei(100).MulUint(3) }, Wei(300)},
		{"DivUint floors", func() Amount { return Wei(905).DivUint(3) }, Wei(301)},
		{"Zero value add", func() Amount { return Amount{}.Add(Wei(7)) }, Wei(7)},
		{"Sum", func() Amount { return Sum(Wei(1), Wei(2), Wei(3)) }, Wei(6)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op(); !got.Equal(tt.expected) {
				t.Errorf("got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestAmountImmutable(t *testing.T) {
	a := Wei(10)
	_ = a.Add(Wei(5))
	_ = a.MulUint(4)
	if !a.Equal(Wei(10)) {
		t.Errorf("receiver mutated: got %s", a)
	}
}

func TestAmountUnits(t *testing.T) {
	price := MustParseEther("0.5")
	tests := []struct {
		name    string
		payment Amount
		limit   uint64
		want    uint64
	}{
		{"Exact one", MustParseEther("0.5"), 10, 1},
		{"Two", MustParseEther("1.0"), 10, 2},
		{"Floor", MustParseEther("1.4"), 10, 2},
		{"Capped", MustParseEther("5"), 3, 3},
		{"Short", MustParseEther("0.49"), 10, 0},
		{"Zero payment", Zero(), 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.payment.Units(price, tt.limit); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}

	if got := Wei(100).Units(Zero(), 5); got != 0 {
		t.Errorf("zero price: got %d, want 0", got)
	}
}

func TestAmountDivisionByZero(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for division by zero")
		}
	}()

	_ = Wei(100).DivUint(0)
}

func TestAmountJSON(t *testing.T) {
	a := MustParseEther("0.6")

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"wei":"600000000000000000","display":"0.6 ETH"}` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var decoded Amount
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal object: %v", err)
	}
	if !decoded.Equal(a) {
		t.Errorf("object form: got %s, want %s", decoded, a)
	}

	var bare Amount
	if err := json.Unmarshal([]byte(`"42"`), &bare); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if !bare.Equal(Wei(42)) {
		t.Errorf("string form: got %s, want 42", bare)
	}
}

func TestAddress(t *testing.T) {
	a := ParseAddress("  0xAbC ")
	if a != "0xabc" {
		t.Errorf("canonical form: got %q", a)
	}
	if !Address("0xABC").Equal("0xabc") {
		t.Error("expected case-insensitive equality")
	}
	if !Address(" ").IsZero() {
		t.Error("blank address should be zero")
	}
}
