package report

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheldonz/invoscan/pkg/invoice"
	"github.com/sheldonz/invoscan/pkg/pipeline"
)

// Row is one invoice line flattened for report output. Amounts are
// fixed-point strings so every format renders them identically.
type Row struct {
	Index         int    `json:"index" yaml:"index"`
	FileName      string `json:"file_name" yaml:"file_name"`
	InvoiceNumber string `json:"invoice_number,omitempty" yaml:"invoice_number,omitempty"`
	Date          string `json:"invoice_date,omitempty" yaml:"invoice_date,omitempty"`
	Vendor        string `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Buyer         string `json:"buyer,omitempty" yaml:"buyer,omitempty"`
	Amount        string `json:"amount" yaml:"amount"`
	Tax           string `json:"tax,omitempty" yaml:"tax,omitempty"`
	Subtotal      string `json:"subtotal,omitempty" yaml:"subtotal,omitempty"`

	InvoiceType     string `json:"invoice_type,omitempty" yaml:"invoice_type,omitempty"`
	ExpenseCategory string `json:"expense_category,omitempty" yaml:"expense_category,omitempty"`
	RiskLevel       string `json:"risk_level,omitempty" yaml:"risk_level,omitempty"`
	HasStamp        string `json:"has_stamp,omitempty" yaml:"has_stamp,omitempty"`
	ImageQuality    string `json:"image_quality,omitempty" yaml:"image_quality,omitempty"`

	Items  string `json:"items,omitempty" yaml:"items,omitempty"`
	Status string `json:"status" yaml:"status"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// GroupRow is one aggregation key with its count and subtotal.
type GroupRow struct {
	Key      string `json:"key" yaml:"key"`
	Count    int    `json:"count" yaml:"count"`
	Subtotal string `json:"subtotal" yaml:"subtotal"`
}

// DuplicateRow flags an invoice number appearing on more than one file.
type DuplicateRow struct {
	InvoiceNumber string   `json:"invoice_number" yaml:"invoice_number"`
	Files         []string `json:"files" yaml:"files"`
}

// WarningRow flags a record whose amount stands far above the population.
type WarningRow struct {
	File   string `json:"file" yaml:"file"`
	Amount string `json:"amount" yaml:"amount"`
	Reason string `json:"reason" yaml:"reason"`
}

// Summary is the batch analysis flattened for report output.
type Summary struct {
	TotalCount    int    `json:"total_count" yaml:"total_count"`
	ValidCount    int    `json:"valid_count" yaml:"valid_count"`
	TotalAmount   string `json:"total_amount" yaml:"total_amount"`
	AverageAmount string `json:"average_amount" yaml:"average_amount"`

	ByMonth  []GroupRow `json:"by_month,omitempty" yaml:"by_month,omitempty"`
	ByVendor []GroupRow `json:"by_vendor,omitempty" yaml:"by_vendor,omitempty"`
	ByBucket []GroupRow `json:"by_bucket,omitempty" yaml:"by_bucket,omitempty"`

	// ByType and ByCategory are filled only when the classify pass ran.
	ByType     []GroupRow `json:"by_type,omitempty" yaml:"by_type,omitempty"`
	ByCategory []GroupRow `json:"by_category,omitempty" yaml:"by_category,omitempty"`

	Duplicates []DuplicateRow `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Warnings   []WarningRow   `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Meta identifies the run that produced a report.
type Meta struct {
	ScanDir  string
	Provider string
	Model    string
	Mode     string
}

// Payload is the complete report content, independent of output format.
type Payload struct {
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	ScanDir     string    `json:"scan_dir,omitempty" yaml:"scan_dir,omitempty"`
	Provider    string    `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model       string    `json:"model,omitempty" yaml:"model,omitempty"`
	Mode        string    `json:"mode,omitempty" yaml:"mode,omitempty"`

	Rows    []Row    `json:"rows" yaml:"rows"`
	Summary Summary  `json:"summary" yaml:"summary"`
	Renames []string `json:"renames,omitempty" yaml:"renames,omitempty"`
}

// BuildPayload flattens a batch result into the report structure. Group
// tables are reordered for presentation: months ascending, vendors by
// subtotal descending.
func BuildPayload(res *pipeline.Result, meta Meta) *Payload {
	p := &Payload{
		GeneratedAt: time.Now(),
		ScanDir:     meta.ScanDir,
		Provider:    meta.Provider,
		Model:       meta.Model,
		Mode:        meta.Mode,
		Rows:        make([]Row, 0, len(res.Records)),
		Summary:     buildSummary(res.Analysis),
	}
	for i, rec := range res.Records {
		p.Rows = append(p.Rows, buildRow(i+1, rec))
	}
	p.Summary.ByType = tallyRows(res.Records, func(r invoice.Record) string { return r.InvoiceType })
	p.Summary.ByCategory = tallyRows(res.Records, func(r invoice.Record) string { return r.ExpenseCategory })
	for _, op := range res.Renames {
		p.Renames = append(p.Renames, op.String())
	}
	return p
}

// tallyRows groups valid records by an enrichment key, ordered by count
// descending. Records without the key are left out.
func tallyRows(records []invoice.Record, key func(invoice.Record) string) []GroupRow {
	idx := map[string]int{}
	var groups []invoice.Group
	for _, r := range records {
		if !r.Valid() {
			continue
		}
		k := key(r)
		if k == "" {
			continue
		}
		if i, ok := idx[k]; ok {
			groups[i].Count++
			groups[i].Subtotal = groups[i].Subtotal.Add(r.AmountTotal)
		} else {
			idx[k] = len(groups)
			groups = append(groups, invoice.Group{Key: k, Count: 1, Subtotal: r.AmountTotal})
		}
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Count > groups[j].Count })
	return groupRows(groups)
}

func buildRow(index int, rec invoice.Record) Row {
	row := Row{
		Index:           index,
		FileName:        filepath.Base(rec.SourcePath),
		InvoiceNumber:   rec.InvoiceNumber,
		Vendor:          rec.VendorName,
		Buyer:           rec.BuyerName,
		Amount:          invoice.FormatAmount(rec.AmountTotal),
		InvoiceType:     rec.InvoiceType,
		ExpenseCategory: rec.ExpenseCategory,
		RiskLevel:       rec.RiskLevel,
		HasStamp:        rec.HasStamp,
		ImageQuality:    rec.ImageQuality,
		Items:           rec.ItemSummary,
		Status:          string(rec.Status),
	}
	if !rec.InvoiceDate.IsZero() {
		row.Date = rec.InvoiceDate.Format("2006-01-02")
	}
	if !rec.TaxAmount.IsZero() {
		row.Tax = invoice.FormatAmount(rec.TaxAmount)
	}
	if !rec.Subtotal.IsZero() {
		row.Subtotal = invoice.FormatAmount(rec.Subtotal)
	}
	if len(rec.Errors) > 0 {
		row.Error = rec.Errors[0]
	}
	return row
}

func buildSummary(a invoice.Analysis) Summary {
	s := Summary{
		TotalCount:    a.TotalCount,
		ValidCount:    a.ValidCount,
		TotalAmount:   invoice.FormatAmount(a.TotalAmount),
		AverageAmount: "0.00",
	}
	if a.ValidCount > 0 {
		avg := a.TotalAmount.Div(decimal.NewFromInt(int64(a.ValidCount)))
		s.AverageAmount = invoice.FormatAmount(avg)
	}

	// The analyzer keeps first-occurrence order; reports read better sorted.
	// The "unknown" month key sorts last.
	months := append([]invoice.Group(nil), a.ByMonth...)
	sort.SliceStable(months, func(i, j int) bool { return months[i].Key < months[j].Key })
	s.ByMonth = groupRows(months)

	vendors := append([]invoice.Group(nil), a.ByVendor...)
	sort.SliceStable(vendors, func(i, j int) bool { return vendors[i].Subtotal.GreaterThan(vendors[j].Subtotal) })
	s.ByVendor = groupRows(vendors)

	for _, b := range a.ByBucket {
		s.ByBucket = append(s.ByBucket, GroupRow{Key: b.Label, Count: b.Count, Subtotal: invoice.FormatAmount(b.Subtotal)})
	}
	for _, d := range a.Duplicates {
		files := make([]string, 0, len(d.SourcePaths))
		for _, path := range d.SourcePaths {
			files = append(files, filepath.Base(path))
		}
		s.Duplicates = append(s.Duplicates, DuplicateRow{InvoiceNumber: d.InvoiceNumber, Files: files})
	}
	for _, w := range a.Warnings {
		s.Warnings = append(s.Warnings, WarningRow{
			File:   filepath.Base(w.SourcePath),
			Amount: invoice.FormatAmount(w.Amount),
			Reason: w.Reason,
		})
	}
	return s
}

func groupRows(groups []invoice.Group) []GroupRow {
	rows := make([]GroupRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, GroupRow{Key: g.Key, Count: g.Count, Subtotal: invoice.FormatAmount(g.Subtotal)})
	}
	return rows
}

// truncate caps a cell to n runes for the tabular formats.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}
