package invoice

import (
	"strings"
	"testing"
)

// --- Full Mode Tests ---

func TestParser_Full_StrictJSON(t *testing.T) {
	raw := `{
		"invoice_no": "24312000000012345678",
		"issue_date": "2024-03-15",
		"seller": "杭州测试科技有限公司",
		"buyer": "北京采购方有限公司",
		"total": 1234.5,
		"tax": 134.5,
		"subtotal": 1100.0,
		"items": ["办公用品", "打印纸"],
		"notes": null
	}`

	r := NewParser(ModeFull).Parse("a/inv.pdf", raw)

	if r.Status != StatusSuccess {
		t.Fatalf("Status = %q, errors = %v", r.Status, r.Errors)
	}
	if got := FormatAmount(r.AmountTotal); got != "1234.50" {
		t.Errorf("AmountTotal = %s, want 1234.50", got)
	}
	if r.InvoiceNumber != "24312000000012345678" {
		t.Errorf("InvoiceNumber = %q", r.InvoiceNumber)
	}
	if r.Month() != "2024-03" {
		t.Errorf("Month() = %q, want 2024-03", r.Month())
	}
	if r.VendorName != "杭州测试科技有限公司" {
		t.Errorf("VendorName = %q", r.VendorName)
	}
	if r.BuyerName != "北京采购方有限公司" {
		t.Errorf("BuyerName = %q", r.BuyerName)
	}
	if r.ItemSummary != "办公用品; 打印纸" {
		t.Errorf("ItemSummary = %q", r.ItemSummary)
	}
	if got := FormatAmount(r.TaxAmount); got != "134.50" {
		t.Errorf("TaxAmount = %s", got)
	}
	if r.RawModelText != raw {
		t.Error("RawModelText should carry the original response")
	}
}

func TestParser_Full_MarkdownFencedJSON(t *testing.T) {
	raw := "```json\n{\"total\": 88.5, \"seller\": \"ACME\", \"issue_date\": \"2024/1/2\", \"invoice_no\": \"INV-001122\"}\n```"

	r := NewParser(ModeFull).Parse("b.png", raw)

	if r.Status != StatusSuccess {
		t.Fatalf("Status = %q, errors = %v", r.Status, r.Errors)
	}
	if got := FormatAmount(r.AmountTotal); got != "88.50" {
		t.Errorf("AmountTotal = %s", got)
	}
}

func TestParser_Full_StringAmounts(t *testing.T) {
	raw := `{"total": "￥1,234.50", "seller": "ACME", "issue_date": "2024年3月15日", "invoice_no": "INV-001122"}`

	r := NewParser(ModeFull).Parse("c.jpg", raw)

	if r.Status != StatusSuccess {
		t.Fatalf("Status = %q, errors = %v", r.Status, r.Errors)
	}
	if got := FormatAmount(r.AmountTotal); got != "1234.50" {
		t.Errorf("AmountTotal = %s, want 1234.50", got)
	}
	if r.Month() != "2024-03" {
		t.Errorf("Month() = %q, want 2024-03", r.Month())
	}
}

func TestParser_Full_MissingFieldsYieldPartial(t *testing.T) {
	raw := `{"total": 250.5}`

	r := NewParser(ModeFull).Parse("d.pdf", raw)

	if r.Status != StatusPartial {
		t.Fatalf("Status = %q, want partial", r.Status)
	}
	if got := FormatAmount(r.AmountTotal); got != "250.50" {
		t.Errorf("AmountTotal = %s", got)
	}

	joined := strings.Join(r.Errors, "\n")
	for _, tag := range []string{TagDateNotFound, TagVendorNotFound, TagInvoiceNoNotFound} {
		if !strings.Contains(joined, tag) {
			t.Errorf("errors missing tag %q: %v", tag, r.Errors)
		}
	}
}

func TestParser_Full_TolerantProse(t *testing.T) {
	raw := "这张发票信息如下\n销售方: 测试公司\n发票号码: 0012345678\n开票日期: 2024-06-01\n价税合计: ¥199.90"

	r := NewParser(ModeFull).Parse("e.pdf", raw)

	if r.Status != StatusSuccess {
		t.Fatalf("Status = %q, errors = %v", r.Status, r.Errors)
	}
	if got := FormatAmount(r.AmountTotal); got != "199.90" {
		t.Errorf("AmountTotal = %s, want 199.90", got)
	}
	if r.VendorName != "测试公司" {
		t.Errorf("VendorName = %q", r.VendorName)
	}
	if r.InvoiceNumber != "0012345678" {
		t.Errorf("InvoiceNumber = %q", r.InvoiceNumber)
	}
	if r.Month() != "2024-06" {
		t.Errorf("Month() = %q", r.Month())
	}
}

func TestParser_Full_NoAmountFails(t *testing.T) {
	r := NewParser(ModeFull).Parse("f.png", "I cannot read this image clearly.")

	if r.Status != StatusFailed {
		t.Fatalf("Status = %q, want failed", r.Status)
	}
	if !r.AmountTotal.IsZero() {
		t.Errorf("failed record must carry zero amount, got %s", r.AmountTotal)
	}
	if len(r.Errors) == 0 || !strings.Contains(r.Errors[0], TagAmountNotFound) {
		t.Errorf("expected %s tag, got %v", TagAmountNotFound, r.Errors)
	}
}

// --- Simple Mode Tests ---

func TestParser_Simple_StrictJSON(t *testing.T) {
	r := NewParser(ModeSimple).Parse("g.png", `{"total": 88.5}`)

	if r.Status != StatusSuccess {
		t.Fatalf("Status = %q", r.Status)
	}
	if got := FormatAmount(r.AmountTotal); got != "88.50" {
		t.Errorf("AmountTotal = %s", got)
	}
}

func TestParser_Simple_ProseFallback(t *testing.T) {
	r := NewParser(ModeSimple).Parse("h.png", "The total amount is 42 yuan.")

	if r.Status != StatusSuccess {
		t.Fatalf("Status = %q, errors = %v", r.Status, r.Errors)
	}
	if got := FormatAmount(r.AmountTotal); got != "42.00" {
		t.Errorf("AmountTotal = %s, want 42.00", got)
	}
}

// Simple mode never reports Partial: secondary fields are out of scope.
func TestParser_Simple_NeverPartial(t *testing.T) {
	r := NewParser(ModeSimple).Parse("i.png", `{"total": 10, "seller": ""}`)

	if r.Status != StatusSuccess {
		t.Errorf("Status = %q, want success", r.Status)
	}
	if len(r.Errors) != 0 {
		t.Errorf("unexpected errors: %v", r.Errors)
	}
}

func TestParser_Simple_Unparseable(t *testing.T) {
	r := NewParser(ModeSimple).Parse("j.png", "no idea")

	if r.Status != StatusFailed {
		t.Fatalf("Status = %q, want failed", r.Status)
	}
	if !r.AmountTotal.IsZero() {
		t.Errorf("failed record must carry zero amount, got %s", r.AmountTotal)
	}
	if len(r.Errors) == 0 || !strings.Contains(r.Errors[0], TagAmountNotFound) {
		t.Errorf("expected %s tag, got %v", TagAmountNotFound, r.Errors)
	}
}

// --- Helper Tests ---

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"no fence", `{"a":1}`, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFence(tt.input); got != tt.want {
				t.Errorf("StripCodeFence() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDate_Layouts(t *testing.T) {
	tests := []string{"2024-03-15", "2024/3/15", "2024.03.15", "2024年3月15日", "２０２４-０３-１５"}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			d, ok := ParseDate(input)
			if !ok {
				t.Fatalf("ParseDate(%q) failed", input)
			}
			if d.Year() != 2024 || int(d.Month()) != 3 || d.Day() != 15 {
				t.Errorf("ParseDate(%q) = %v", input, d)
			}
		})
	}
}

func TestFindDate_EmbeddedInProse(t *testing.T) {
	d, ok := FindDate("开票日期: 2024年6月1日, 其他内容")
	if !ok {
		t.Fatal("FindDate() found nothing")
	}
	if d.Year() != 2024 || int(d.Month()) != 6 || d.Day() != 1 {
		t.Errorf("FindDate() = %v", d)
	}
}
