package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Group is one aggregation key with its share of the population.
type Group struct {
	Key      string          `json:"key"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// BucketStat is one fixed amount range.
type BucketStat struct {
	Label    string          `json:"label"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Duplicate flags an invoice number appearing on more than one record.
type Duplicate struct {
	InvoiceNumber string   `json:"invoice_number"`
	SourcePaths   []string `json:"source_paths"`
}

// Warning flags a record whose amount stands far above the population.
type Warning struct {
	SourcePath string          `json:"source_path"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
}

// Analysis is the population-level summary of one finished batch. It is
// computed once from the finalized record list; recomputation over the same
// list yields the identical value.
type Analysis struct {
	TotalCount  int             `json:"total_count"`
	ValidCount  int             `json:"valid_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`

	// ByMonth and ByVendor are ordered by first occurrence in the record
	// list, which keeps reruns over the same input deterministic.
	ByMonth  []Group `json:"by_month"`
	ByVendor []Group `json:"by_vendor"`

	ByBucket []BucketStat `json:"by_bucket"`

	Duplicates []Duplicate `json:"duplicates,omitempty"`
	Warnings   []Warning   `json:"warnings,omitempty"`
}

// Amount buckets. Lower bound inclusive, upper bound exclusive:
//
//	<100, 100-500, 500-1000, 1000-5000, >=5000
var buckets = []struct {
	label string
	min   decimal.Decimal
	max   decimal.Decimal // zero max = unbounded
}{
	{"<100", decimal.Zero, decimal.NewFromInt(100)},
	{"100-500", decimal.NewFromInt(100), decimal.NewFromInt(500)},
	{"500-1000", decimal.NewFromInt(500), decimal.NewFromInt(1000)},
	{"1000-5000", decimal.NewFromInt(1000), decimal.NewFromInt(5000)},
	{">=5000", decimal.NewFromInt(5000), decimal.Decimal{}},
}

// warningFactor flags amounts above this multiple of the valid average.
var warningFactor = decimal.NewFromInt(3)

// Analyze computes population statistics over a finalized record list.
// Pure: the input is only read, and equal inputs produce equal analyses.
func Analyze(records []Record) Analysis {
	a := Analysis{
		TotalCount:  len(records),
		TotalAmount: decimal.Zero,
		ByMonth:     []Group{},
		ByVendor:    []Group{},
	}

	monthIdx := map[string]int{}
	vendorIdx := map[string]int{}
	bucketStats := make([]BucketStat, len(buckets))
	for i, b := range buckets {
		bucketStats[i] = BucketStat{Label: b.label, Subtotal: decimal.Zero}
	}

	for _, r := range records {
		if !r.Valid() {
			continue
		}
		a.ValidCount++
		a.TotalAmount = a.TotalAmount.Add(r.AmountTotal)

		month := r.Month()
		if i, ok := monthIdx[month]; ok {
			a.ByMonth[i].Count++
			a.ByMonth[i].Subtotal = a.ByMonth[i].Subtotal.Add(r.AmountTotal)
		} else {
			monthIdx[month] = len(a.ByMonth)
			a.ByMonth = append(a.ByMonth, Group{Key: month, Count: 1, Subtotal: r.AmountTotal})
		}

		vendor := r.Vendor()
		if i, ok := vendorIdx[vendor]; ok {
			a.ByVendor[i].Count++
			a.ByVendor[i].Subtotal = a.ByVendor[i].Subtotal.Add(r.AmountTotal)
		} else {
			vendorIdx[vendor] = len(a.ByVendor)
			a.ByVendor = append(a.ByVendor, Group{Key: vendor, Count: 1, Subtotal: r.AmountTotal})
		}

		for i, b := range buckets {
			if r.AmountTotal.LessThan(b.min) {
				continue
			}
			if i < len(buckets)-1 && !r.AmountTotal.LessThan(b.max) {
				continue
			}
			bucketStats[i].Count++
			bucketStats[i].Subtotal = bucketStats[i].Subtotal.Add(r.AmountTotal)
			break
		}
	}

	a.ByBucket = bucketStats
	a.Duplicates = findDuplicates(records)
	a.Warnings = findWarnings(records, a.TotalAmount, a.ValidCount)

	return a
}

// findDuplicates reports invoice numbers seen on more than one valid record,
// in first-occurrence order.
func findDuplicates(records []Record) []Duplicate {
	paths := map[string][]string{}
	var order []string

	for _, r := range records {
		if !r.Valid() || r.InvoiceNumber == "" {
			continue
		}
		if _, seen := paths[r.InvoiceNumber]; !seen {
			order = append(order, r.InvoiceNumber)
		}
		paths[r.InvoiceNumber] = append(paths[r.InvoiceNumber], r.SourcePath)
	}

	var dups []Duplicate
	for _, no := range order {
		if len(paths[no]) > 1 {
			dups = append(dups, Duplicate{InvoiceNumber: no, SourcePaths: paths[no]})
		}
	}
	return dups
}

// findWarnings flags valid records whose amount exceeds warningFactor times
// the valid-population average.
func findWarnings(records []Record, totalAmount decimal.Decimal, validCount int) []Warning {
	if validCount == 0 {
		return nil
	}

	average := totalAmount.Div(decimal.NewFromInt(int64(validCount)))
	threshold := average.Mul(warningFactor)

	var warnings []Warning
	for _, r := range records {
		if !r.Valid() || !r.AmountTotal.GreaterThan(threshold) {
			continue
		}
		warnings = append(warnings, Warning{
			SourcePath: r.SourcePath,
			Amount:     r.AmountTotal,
			Reason: fmt.Sprintf("amount %s exceeds 3x the average %s",
				FormatAmount(r.AmountTotal), FormatAmount(average)),
		})
	}
	return warnings
}
