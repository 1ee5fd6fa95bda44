package invoice

import (
	"testing"
)

// --- ParseAmount Tests ---

func TestParseAmount_Normalization(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1234.5", "1234.50"},
		{"1,234.5", "1234.50"},
		{"１，２３４．５", "1234.50"}, // full-width digits and punctuation
		{"￥１００", "100.00"},
		{"¥123.456", "123.46"},
		{"12.3元", "12.30"},
		{"CNY 88", "88.00"},
		{"1,234,567.89", "1234567.89"},
		{"0", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := ParseAmount(tt.input)
			if err != nil {
				t.Fatalf("ParseAmount(%q) error = %v", tt.input, err)
			}
			if got := FormatAmount(d); got != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseAmount_Rejects(t *testing.T) {
	tests := []string{"", "   ", "abc", "-5", "￥-12.50", "一千二百"}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			if _, err := ParseAmount(input); err == nil {
				t.Errorf("ParseAmount(%q) should fail", input)
			}
		})
	}
}

// --- FindAmount Tests ---

func TestFindAmount_PrefersKeywordLine(t *testing.T) {
	text := "货物: 办公用品 单价 999.00\n价税合计: ¥350.50\n备注: 无"

	d, ok := FindAmount(text)
	if !ok {
		t.Fatal("FindAmount() found nothing")
	}
	if got := FormatAmount(d); got != "350.50" {
		t.Errorf("FindAmount() = %s, want 350.50", got)
	}
}

func TestFindAmount_FallsBackToLargestToken(t *testing.T) {
	text := "the items were 12.00 and 30.50, paid 250.50 in full"

	d, ok := FindAmount(text)
	if !ok {
		t.Fatal("FindAmount() found nothing")
	}
	if got := FormatAmount(d); got != "250.50" {
		t.Errorf("FindAmount() = %s, want 250.50", got)
	}
}

func TestFindAmount_SkipsInvoiceNumberTokens(t *testing.T) {
	// The 20-digit invoice number must not win the fallback scan.
	text := "no keyword here 24312000000012345678 then 1234.50 paid"

	d, ok := FindAmount(text)
	if !ok {
		t.Fatal("FindAmount() found nothing")
	}
	if got := FormatAmount(d); got != "1234.50" {
		t.Errorf("FindAmount() = %s, want 1234.50", got)
	}
}

func TestFindAmount_FullWidthText(t *testing.T) {
	text := "总计：１，２３４．５元"

	d, ok := FindAmount(text)
	if !ok {
		t.Fatal("FindAmount() found nothing")
	}
	if got := FormatAmount(d); got != "1234.50" {
		t.Errorf("FindAmount() = %s, want 1234.50", got)
	}
}

func TestFindAmount_NothingParseable(t *testing.T) {
	if _, ok := FindAmount("no numbers in sight"); ok {
		t.Error("FindAmount() should find nothing")
	}
}
