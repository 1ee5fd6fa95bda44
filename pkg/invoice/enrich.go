package invoice

import "strings"

// The optional prechecks and enrichment passes each ask the model one small
// question and parse a small JSON answer. All of them are best-effort: a
// malformed answer leaves the record as it was.

// Verification is the model's judgment of invoice authenticity signals.
type Verification struct {
	RiskLevel    string
	HasStamp     string
	ImageQuality string
}

// Classification is the model's expense categorization.
type Classification struct {
	InvoiceType     string
	ExpenseCategory string
}

// ParseValidation reads an is-it-an-invoice answer. Unparseable answers
// count as "yes" so a flaky model never discards real invoices.
func ParseValidation(raw string) (isInvoice bool, reason string) {
	fields, ok := decodeJSONObject(raw)
	if !ok {
		// Tolerant: some models answer in prose.
		lower := strings.ToLower(raw)
		if strings.Contains(lower, "不是发票") || strings.Contains(lower, "not an invoice") {
			return false, strings.TrimSpace(raw)
		}
		return true, ""
	}

	if v, present := fields["is_invoice"]; present {
		switch t := v.(type) {
		case bool:
			isInvoice = t
		case string:
			s := strings.ToLower(strings.TrimSpace(t))
			isInvoice = !(s == "false" || s == "no" || s == "否")
		default:
			isInvoice = true
		}
	} else {
		isInvoice = true
	}

	reason, _ = stringField(fields, "reason")
	return isInvoice, reason
}

// ParseVerification reads risk/stamp/quality enrichment.
func ParseVerification(raw string) Verification {
	fields, ok := decodeJSONObject(raw)
	if !ok {
		return Verification{}
	}

	var v Verification
	v.RiskLevel, _ = stringField(fields, "risk_level", "risk")
	v.HasStamp = boolishField(fields, "has_stamp")
	v.ImageQuality, _ = stringField(fields, "image_quality", "quality")
	return v
}

// ParseClassification reads invoice type/expense category enrichment.
func ParseClassification(raw string) Classification {
	fields, ok := decodeJSONObject(raw)
	if !ok {
		return Classification{}
	}

	var c Classification
	c.InvoiceType, _ = stringField(fields, "invoice_type", "type")
	c.ExpenseCategory, _ = stringField(fields, "expense_category", "category")
	return c
}

// boolishField renders a yes/no-ish answer as "yes", "no", or "".
func boolishField(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case bool:
		if t {
			return "yes"
		}
		return "no"
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		switch s {
		case "true", "yes", "是", "有":
			return "yes"
		case "false", "no", "否", "无":
			return "no"
		}
	}
	return ""
}
