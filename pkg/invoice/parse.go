package invoice

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Parser turns raw vision-model text into a typed Record. The strict pass
// expects the JSON object the prompt asked for; models are not reliably
// format-compliant, so a tolerant keyword scan backs it up.
type Parser struct {
	mode Mode
}

// NewParser creates a parser for the given extraction mode.
func NewParser(mode Mode) *Parser {
	return &Parser{mode: mode}
}

// Mode returns the extraction depth this parser applies.
func (p *Parser) Mode() Mode {
	return p.mode
}

// Parse builds the record for one source file from the raw model text.
// It never returns an error: an unusable response yields a Failed record
// with the zero-amount invariant intact.
func (p *Parser) Parse(sourcePath, raw string) Record {
	if p.mode == ModeSimple {
		return p.parseSimple(sourcePath, raw)
	}
	return p.parseFull(sourcePath, raw)
}

// parseSimple handles amount-only extraction: Success or Failed, nothing
// in between.
func (p *Parser) parseSimple(sourcePath, raw string) Record {
	r := Record{
		SourcePath:   sourcePath,
		RawModelText: raw,
	}

	if fields, ok := decodeJSONObject(raw); ok {
		if amount, ok := amountField(fields, "total", "total_amount", "amount"); ok {
			r.AmountTotal = amount
			r.Status = StatusSuccess
			return r
		}
	}

	if amount, ok := FindAmount(raw); ok {
		r.AmountTotal = amount
		r.Status = StatusSuccess
		return r
	}

	r.AmountTotal = decimal.Zero
	r.Status = StatusFailed
	r.AddError(TagAmountNotFound, "no amount in model response")
	return r
}

// parseFull handles full-field extraction with per-field fallbacks.
func (p *Parser) parseFull(sourcePath, raw string) Record {
	r := Record{
		SourcePath:   sourcePath,
		RawModelText: raw,
	}

	fields, strict := decodeJSONObject(raw)
	if strict {
		if amount, ok := amountField(fields, "total", "total_amount", "amount"); ok {
			r.AmountTotal = amount
		}
		if s, ok := stringField(fields, "invoice_no", "invoice_number"); ok {
			r.InvoiceNumber = s
		}
		if s, ok := stringField(fields, "issue_date", "date", "invoice_date"); ok {
			if d, ok := ParseDate(s); ok {
				r.InvoiceDate = d
			}
		}
		if s, ok := stringField(fields, "seller", "seller_name", "vendor"); ok {
			r.VendorName = s
		}
		if s, ok := stringField(fields, "buyer", "buyer_name", "purchaser"); ok {
			r.BuyerName = s
		}
		if amount, ok := amountField(fields, "tax"); ok {
			r.TaxAmount = amount
		}
		if amount, ok := amountField(fields, "subtotal", "amount_without_tax"); ok {
			r.Subtotal = amount
		}
		if s, ok := itemsField(fields, "items"); ok {
			r.ItemSummary = s
		}
		if s, ok := stringField(fields, "notes", "remark"); ok {
			r.Notes = s
		}
	}

	// Tolerant pass fills whatever the strict pass missed.
	if r.AmountTotal.IsZero() {
		if amount, ok := FindAmount(raw); ok {
			r.AmountTotal = amount
		}
	}
	if r.InvoiceDate.IsZero() {
		if d, ok := FindDate(raw); ok {
			r.InvoiceDate = d
		}
	}
	if r.VendorName == "" {
		r.VendorName = findKeywordValue(raw, vendorKeywords)
	}
	if r.BuyerName == "" {
		r.BuyerName = findKeywordValue(raw, buyerKeywords)
	}
	if r.InvoiceNumber == "" {
		r.InvoiceNumber = findInvoiceNumber(raw)
	}

	if r.AmountTotal.IsZero() {
		r.AmountTotal = decimal.Zero
		r.Status = StatusFailed
		r.AddError(TagAmountNotFound, "no amount in model response")
		return r
	}

	r.Status = StatusSuccess
	if r.InvoiceDate.IsZero() {
		r.Status = StatusPartial
		r.AddError(TagDateNotFound, "no issue date in model response")
	}
	if r.VendorName == "" {
		r.Status = StatusPartial
		r.AddError(TagVendorNotFound, "no seller in model response")
	}
	if r.InvoiceNumber == "" {
		r.Status = StatusPartial
		r.AddError(TagInvoiceNoNotFound, "no invoice number in model response")
	}

	return r
}

// --- strict-pass helpers ---

// decodeJSONObject pulls the first JSON object out of model text, tolerating
// markdown fences and prose around it.
func decodeJSONObject(raw string) (map[string]any, bool) {
	s := StripCodeFence(raw)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// StripCodeFence removes markdown code block wrappers from model responses.
// Some models wrap their JSON output in ```json ... ``` blocks.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	} else {
		return s
	}

	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

// stringField reads the first present, non-empty alias as a string.
// Numbers are accepted and rendered back, models mix the two freely.
func stringField(fields map[string]any, aliases ...string) (string, bool) {
	for _, key := range aliases {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" && !strings.EqualFold(s, "null") && s != "无" {
				return s, true
			}
		case float64:
			return decimal.NewFromFloat(t).String(), true
		}
	}
	return "", false
}

// amountField reads the first present alias as a parsed amount.
func amountField(fields map[string]any, aliases ...string) (decimal.Decimal, bool) {
	for _, key := range aliases {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if d, err := ParseAmount(t); err == nil && d.IsPositive() {
				return d, true
			}
		case float64:
			d := decimal.NewFromFloat(t).Round(2)
			if d.IsPositive() {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

// itemsField flattens the items list into one display string. Models return
// arrays of strings, arrays of objects, or a plain string.
func itemsField(fields map[string]any, key string) (string, bool) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", false
	}

	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return s, true
		}
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			switch it := item.(type) {
			case string:
				parts = append(parts, it)
			case map[string]any:
				if name, ok := stringField(it, "name", "item", "description"); ok {
					parts = append(parts, name)
				}
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; "), true
		}
	}
	return "", false
}

// --- tolerant-pass helpers ---

var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2006年1月2日",
	"2006年1月2号",
}

// ParseDate parses one date string in the layouts invoices use.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(normalizeNumerals(s))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var dateRe = regexp.MustCompile(`(\d{4})[年./-](\d{1,2})[月./-](\d{1,2})日?`)

// FindDate scans free-form text for the first date-shaped token.
func FindDate(text string) (time.Time, bool) {
	m := dateRe.FindString(normalizeNumerals(text))
	if m == "" {
		return time.Time{}, false
	}
	return ParseDate(m)
}

var (
	vendorKeywords = []string{"销售方", "卖方", "开票方", "seller", "vendor"}
	buyerKeywords  = []string{"购买方", "买方", "购方", "buyer", "purchaser"}
)

// findKeywordValue returns the text after "keyword:" on the first matching
// line.
func findKeywordValue(text string, keywords []string) string {
	for _, line := range strings.Split(normalizeNumerals(text), "\n") {
		lower := strings.ToLower(line)
		for _, kw := range keywords {
			idx := strings.Index(lower, kw)
			if idx < 0 {
				continue
			}
			rest := line[idx+len(kw):]
			if r, _ := utf8.DecodeRuneInString(rest); r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				// Keyword is part of a longer identifier, e.g. seller_name.
				continue
			}
			rest = strings.TrimLeft(rest, " \t:：\"'名称")
			rest = strings.Trim(rest, " \t\"',，。")
			if rest != "" && !strings.EqualFold(rest, "null") && rest != "无" {
				return rest
			}
		}
	}
	return ""
}

var invoiceNoRe = regexp.MustCompile(`(?i)(?:发票号码|发票号|invoice\s*(?:no|number)\.?|号码)\s*[:：]?\s*([A-Za-z0-9-]{6,})`)

// findInvoiceNumber scans for an invoice number introduced by a keyword.
func findInvoiceNumber(text string) string {
	m := invoiceNoRe.FindStringSubmatch(normalizeNumerals(text))
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
