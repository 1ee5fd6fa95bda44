package report

import (
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const (
	detailSheet  = "发票明细"
	summarySheet = "统计汇总"
)

// ExcelWriter writes the report as an xlsx workbook with a detail sheet
// and a statistics sheet.
type ExcelWriter struct {
	w          io.Writer
	maxVendors int
}

// NewExcelWriter creates an xlsx report writer.
func NewExcelWriter(w io.Writer, maxVendors int) *ExcelWriter {
	return &ExcelWriter{
		w:          w,
		maxVendors: maxVendors,
	}
}

// Write renders the payload as an xlsx workbook.
func (w *ExcelWriter) Write(p *Payload) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := writeDetailSheet(f, p); err != nil {
		return err
	}
	if err := writeSummarySheet(f, p, w.maxVendors); err != nil {
		return err
	}

	return f.Write(w.w)
}

func writeDetailSheet(f *excelize.File, p *Payload) error {
	if err := f.SetSheetName("Sheet1", detailSheet); err != nil {
		return err
	}

	hasClassify := false
	hasVerify := false
	for _, r := range p.Rows {
		if r.InvoiceType != "" || r.ExpenseCategory != "" {
			hasClassify = true
		}
		if r.RiskLevel != "" || r.HasStamp != "" || r.ImageQuality != "" {
			hasVerify = true
		}
	}

	headers := []any{"序号", "文件名", "发票号", "开票日期", "供应商", "购买方", "合计金额", "税额", "小计"}
	widths := []float64{8, 25, 15, 12, 20, 20, 12, 12, 12}
	if hasClassify {
		headers = append(headers, "发票类型", "费用类别")
		widths = append(widths, 15, 12)
	}
	if hasVerify {
		headers = append(headers, "风险等级", "有无印章", "图像质量")
		widths = append(widths, 10, 10, 10)
	}
	headers = append(headers, "项目", "状态")
	widths = append(widths, 30, 30)

	if err := f.SetSheetRow(detailSheet, "A1", &headers); err != nil {
		return err
	}

	for i, r := range p.Rows {
		status := "OK"
		if r.Error != "" {
			status = truncate(r.Error, 30)
		}
		row := []any{
			r.Index, r.FileName, r.InvoiceNumber, r.Date,
			truncate(r.Vendor, 30), truncate(r.Buyer, 30),
			cellAmount(r.Amount), cellAmount(r.Tax), cellAmount(r.Subtotal),
		}
		if hasClassify {
			row = append(row, r.InvoiceType, r.ExpenseCategory)
		}
		if hasVerify {
			row = append(row, r.RiskLevel, r.HasStamp, r.ImageQuality)
		}
		row = append(row, truncate(r.Items, 40), status)

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(detailSheet, cell, &row); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(detailSheet, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(detailSheet, col, col, width)
	}

	if len(p.Rows) > 0 {
		amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
		if err != nil {
			return err
		}
		first, _ := excelize.CoordinatesToCellName(7, 2)
		last, _ := excelize.CoordinatesToCellName(9, len(p.Rows)+1)
		if err := f.SetCellStyle(detailSheet, first, last, amountStyle); err != nil {
			return err
		}
	}

	return nil
}

func writeSummarySheet(f *excelize.File, p *Payload, maxVendors int) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	s := p.Summary
	rows := [][]any{
		{"发票统计汇总"},
		nil,
		{"指标", "数值"},
		{"发票总数", s.TotalCount},
		{"有效发票数", s.ValidCount},
		{"总金额", cellAmount(s.TotalAmount)},
		{"平均金额", cellAmount(s.AverageAmount)},
		{"重复发票号", len(s.Duplicates)},
	}

	if len(s.ByMonth) > 0 {
		rows = append(rows, nil, []any{"按月份统计"}, []any{"月份", "数量", "合计"})
		for _, g := range s.ByMonth {
			rows = append(rows, []any{g.Key, g.Count, cellAmount(g.Subtotal)})
		}
	}

	vendors := s.ByVendor
	if maxVendors > 0 && len(vendors) > maxVendors {
		vendors = vendors[:maxVendors]
	}
	if len(vendors) > 0 {
		rows = append(rows, nil, []any{"按供应商统计"}, []any{"供应商", "数量", "合计"})
		for _, g := range vendors {
			rows = append(rows, []any{g.Key, g.Count, cellAmount(g.Subtotal)})
		}
	}

	if len(s.ByBucket) > 0 {
		rows = append(rows, nil, []any{"按金额区间统计"}, []any{"区间(元)", "数量", "合计"})
		for _, g := range s.ByBucket {
			rows = append(rows, []any{g.Key, g.Count, cellAmount(g.Subtotal)})
		}
	}

	if len(s.ByType) > 0 {
		rows = append(rows, nil, []any{"按发票类型统计"}, []any{"发票类型", "数量", "合计"})
		for _, g := range s.ByType {
			rows = append(rows, []any{g.Key, g.Count, cellAmount(g.Subtotal)})
		}
	}

	if len(s.ByCategory) > 0 {
		rows = append(rows, nil, []any{"按费用类别统计"}, []any{"费用类别", "数量", "合计"})
		for _, g := range s.ByCategory {
			rows = append(rows, []any{g.Key, g.Count, cellAmount(g.Subtotal)})
		}
	}

	if len(s.Warnings) > 0 {
		rows = append(rows, nil, []any{"异常警告"}, []any{"文件", "金额", "说明"})
		for _, warn := range s.Warnings {
			rows = append(rows, []any{warn.File, cellAmount(warn.Amount), warn.Reason})
		}
	}

	for i, row := range rows {
		if row == nil {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 25)
	_ = f.SetColWidth(summarySheet, "B", "C", 15)

	return nil
}

// cellAmount converts a formatted amount back to a number so the workbook
// cells stay summable. Empty stays empty.
func cellAmount(s string) any {
	if s == "" {
		return ""
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return f
}
