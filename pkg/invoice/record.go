// Package invoice defines the extraction record model, the parsing of raw
// vision-model text into typed records, and population-level statistics over
// a finished record set.
package invoice

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the extraction outcome for one source file.
type Status string

const (
	// StatusSuccess means an amount and all secondary fields were extracted.
	StatusSuccess Status = "success"
	// StatusPartial means the amount was extracted but one or more
	// secondary fields (date, vendor, invoice number) were not.
	StatusPartial Status = "partial"
	// StatusFailed means no usable amount; AmountTotal is zero and Errors
	// records why.
	StatusFailed Status = "failed"
)

// Mode selects the extraction depth.
type Mode string

const (
	// ModeSimple extracts the total amount only. Records are either
	// Success or Failed, never Partial.
	ModeSimple Mode = "simple"
	// ModeFull extracts all invoice fields.
	ModeFull Mode = "full"
)

// ParseMode validates a mode string from configuration.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSimple, ModeFull:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (want simple or full)", s)
}

// Error tags recorded on a Record. Each entry in Record.Errors is
// "tag: detail".
const (
	TagAmountNotFound    = "amount_not_found"
	TagDateNotFound      = "date_not_found"
	TagVendorNotFound    = "vendor_not_found"
	TagInvoiceNoNotFound = "invoice_no_not_found"
	TagNotAnInvoice      = "not_an_invoice"
	TagPdfRender         = "pdf_render"
	TagFileRead          = "file_read"
	TagProvider          = "provider"
)

// Record is one extraction outcome for one source file. A record is built
// by the pipeline stage that produces it and read-only afterwards; the
// analyzer and the renamer never write to it.
type Record struct {
	SourcePath    string          `json:"source_path"`
	AmountTotal   decimal.Decimal `json:"amount_total"`
	InvoiceDate   time.Time       `json:"invoice_date,omitzero"`
	VendorName    string          `json:"vendor_name,omitempty"`
	BuyerName     string          `json:"buyer_name,omitempty"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`

	TaxAmount   decimal.Decimal `json:"tax_amount,omitzero"`
	Subtotal    decimal.Decimal `json:"subtotal,omitzero"`
	ItemSummary string          `json:"item_summary,omitempty"`
	Notes       string          `json:"notes,omitempty"`

	// Optional enrichment, filled only when the verify/classify passes run.
	InvoiceType     string `json:"invoice_type,omitempty"`
	ExpenseCategory string `json:"expense_category,omitempty"`
	RiskLevel       string `json:"risk_level,omitempty"`
	HasStamp        string `json:"has_stamp,omitempty"`
	ImageQuality    string `json:"image_quality,omitempty"`

	RawModelText string   `json:"raw_model_text,omitempty"`
	Status       Status   `json:"status"`
	Errors       []string `json:"errors,omitempty"`
}

// AddError appends a tagged error while the record is being built.
func (r *Record) AddError(tag, detail string) {
	r.Errors = append(r.Errors, tag+": "+detail)
}

// Valid reports whether the record counts toward aggregate amounts.
func (r *Record) Valid() bool {
	return r.Status != StatusFailed
}

// Month returns the "YYYY-MM" grouping key, or "unknown" when no invoice
// date was extracted.
func (r *Record) Month() string {
	if r.InvoiceDate.IsZero() {
		return "unknown"
	}
	return r.InvoiceDate.Format("2006-01")
}

// Vendor returns the vendor grouping key, or "unknown".
func (r *Record) Vendor() string {
	if r.VendorName == "" {
		return "unknown"
	}
	return r.VendorName
}

// FailedRecord builds a Failed record for a file that never produced model
// output (render failures, exhausted retries). The failed-status invariant
// holds: zero amount, at least one error.
func FailedRecord(sourcePath, tag, detail string) Record {
	r := Record{
		SourcePath:  sourcePath,
		AmountTotal: decimal.Zero,
		Status:      StatusFailed,
	}
	r.AddError(tag, detail)
	return r
}
