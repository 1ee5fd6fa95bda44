package invoice

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Vision models reading Chinese invoices frequently answer with full-width
// numerals and punctuation, currency markers, and thousands separators.
// Everything here folds those forms down before decimal parsing.

// normalizeNumerals maps full-width digits and punctuation to ASCII.
func normalizeNumerals(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '０' && r <= '９': // U+FF10..U+FF19
			return '0' + (r - '０')
		case r == '．':
			return '.'
		case r == '，':
			return ','
		case r == '：':
			return ':'
		case r == '　': // ideographic space
			return ' '
		}
		return r
	}, s)
}

// currencyMarkers are stripped from amount strings before parsing.
var currencyMarkers = []string{"¥", "￥", "$", "人民币", "元", "CNY", "RMB", "USD"}

func stripCurrency(s string) string {
	for _, m := range currencyMarkers {
		s = strings.ReplaceAll(s, m, "")
		s = strings.ReplaceAll(s, strings.ToLower(m), "")
	}
	return strings.TrimSpace(s)
}

// ParseAmount parses a single amount string into a non-negative decimal
// rounded to 2 places. It accepts full-width numerals, currency markers,
// and thousands separators.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := stripCurrency(normalizeNumerals(s))
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %q", s)
	}

	return d.Round(2), nil
}

// FormatAmount renders an amount with exactly 2 decimal places.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// moneyTokenRe matches money-shaped tokens in already-normalized text.
var moneyTokenRe = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]+)?`)

// amountKeywords mark lines likely to carry the invoice total.
var amountKeywords = []string{"价税合计", "总计", "合计", "金额", "应付", "total", "amount"}

// FindAmount scans free-form model text for the invoice total. Lines
// carrying an amount keyword win, strongest keyword first; otherwise the
// largest money-shaped token in the text is taken, which matches how models
// tend to report totals alongside sub-amounts.
func FindAmount(text string) (decimal.Decimal, bool) {
	norm := normalizeNumerals(text)
	lines := strings.Split(norm, "\n")

	for _, kw := range amountKeywords {
		for _, line := range lines {
			if !strings.Contains(strings.ToLower(line), kw) {
				continue
			}
			if tok := moneyTokenRe.FindString(line); tok != "" {
				if d, err := ParseAmount(tok); err == nil && d.IsPositive() {
					return d, true
				}
			}
		}
	}

	best := decimal.Zero
	found := false
	for _, tok := range moneyTokenRe.FindAllString(norm, -1) {
		if looksLikeIdentifier(tok) {
			continue
		}
		d, err := ParseAmount(tok)
		if err != nil || !d.IsPositive() {
			continue
		}
		if !found || d.GreaterThan(best) {
			best = d
			found = true
		}
	}

	return best, found
}

// looksLikeIdentifier filters invoice numbers and similar code-like tokens
// out of the max-token fallback: a long run of digits with no decimal point
// is an ID, not money.
func looksLikeIdentifier(tok string) bool {
	if strings.ContainsAny(tok, ".,") {
		return false
	}
	return len(tok) > 7
}
