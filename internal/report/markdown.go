package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// MarkdownWriter writes the report as a markdown document with a detail
// table and the summary tables.
type MarkdownWriter struct {
	w          *bufio.Writer
	maxVendors int
}

// NewMarkdownWriter creates a markdown report writer.
func NewMarkdownWriter(w io.Writer, maxVendors int) *MarkdownWriter {
	return &MarkdownWriter{
		w:          bufio.NewWriter(w),
		maxVendors: maxVendors,
	}
}

// Write renders the payload as markdown.
func (w *MarkdownWriter) Write(p *Payload) error {
	b := w.w

	fmt.Fprintln(b, "# 发票汇总报告")
	fmt.Fprintln(b)
	if p.ScanDir != "" {
		fmt.Fprintf(b, "- 扫描目录: `%s`\n", p.ScanDir)
	}
	if p.Provider != "" {
		fmt.Fprintf(b, "- 识别模型: %s (%s)\n", p.Provider, p.Model)
	}
	fmt.Fprintf(b, "- 发票总数: %d 份\n", p.Summary.TotalCount)
	fmt.Fprintf(b, "- 有效发票: %d 份\n", p.Summary.ValidCount)
	fmt.Fprintf(b, "- 总金额: **%s 元**\n", p.Summary.TotalAmount)
	fmt.Fprintf(b, "- 平均金额: %s 元\n", p.Summary.AverageAmount)
	fmt.Fprintf(b, "- 生成时间: %s\n", p.GeneratedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(b)
	fmt.Fprintln(b, "## 明细表")
	fmt.Fprintln(b)
	fmt.Fprintln(b, "| 序号 | 文件 | 发票号 | 日期 | 供应商 | 金额(元) | 状态 |")
	fmt.Fprintln(b, "| --- | --- | --- | --- | --- | --- | --- |")
	for _, r := range p.Rows {
		status := "OK"
		if r.Error != "" {
			status = mdCell(truncate(r.Error, 40))
		}
		fmt.Fprintf(b, "| %d | `%s` | %s | %s | %s | %s | %s |\n",
			r.Index, r.FileName, mdCell(r.InvoiceNumber), r.Date,
			mdCell(truncate(r.Vendor, 15)), r.Amount, status)
	}

	if len(p.Summary.ByMonth) > 0 {
		fmt.Fprintln(b)
		fmt.Fprintln(b, "## 按月份统计")
		fmt.Fprintln(b)
		fmt.Fprintln(b, "| 月份 | 数量 | 合计(元) |")
		fmt.Fprintln(b, "| --- | --- | --- |")
		for _, g := range p.Summary.ByMonth {
			fmt.Fprintf(b, "| %s | %d | %s |\n", g.Key, g.Count, g.Subtotal)
		}
	}

	if len(p.Summary.ByVendor) > 0 {
		vendors := p.Summary.ByVendor
		fmt.Fprintln(b)
		if w.maxVendors > 0 && len(vendors) > w.maxVendors {
			vendors = vendors[:w.maxVendors]
			fmt.Fprintf(b, "## 按供应商统计（top %d）\n", w.maxVendors)
		} else {
			fmt.Fprintln(b, "## 按供应商统计")
		}
		fmt.Fprintln(b)
		fmt.Fprintln(b, "| 供应商 | 数量 | 合计(元) |")
		fmt.Fprintln(b, "| --- | --- | --- |")
		for _, g := range vendors {
			fmt.Fprintf(b, "| %s | %d | %s |\n", mdCell(g.Key), g.Count, g.Subtotal)
		}
	}

	if len(p.Summary.ByBucket) > 0 {
		fmt.Fprintln(b)
		fmt.Fprintln(b, "## 按金额区间统计")
		fmt.Fprintln(b)
		fmt.Fprintln(b, "| 区间(元) | 数量 | 合计(元) |")
		fmt.Fprintln(b, "| --- | --- | --- |")
		for _, g := range p.Summary.ByBucket {
			fmt.Fprintf(b, "| %s | %d | %s |\n", g.Key, g.Count, g.Subtotal)
		}
	}

	if len(p.Summary.Duplicates) > 0 {
		fmt.Fprintln(b)
		fmt.Fprintln(b, "## 重复发票号")
		fmt.Fprintln(b)
		for _, d := range p.Summary.Duplicates {
			fmt.Fprintf(b, "- %s: %s\n", d.InvoiceNumber, strings.Join(d.Files, ", "))
		}
	}

	if len(p.Summary.Warnings) > 0 {
		fmt.Fprintln(b)
		fmt.Fprintln(b, "## 异常警告")
		fmt.Fprintln(b)
		for _, warn := range p.Summary.Warnings {
			fmt.Fprintf(b, "- `%s`: %s\n", warn.File, warn.Reason)
		}
	}

	if len(p.Renames) > 0 {
		fmt.Fprintln(b)
		fmt.Fprintln(b, "## 文件重命名")
		fmt.Fprintln(b)
		for _, op := range p.Renames {
			fmt.Fprintf(b, "- %s\n", op)
		}
	}

	return w.w.Flush()
}

// mdCell escapes characters that would break a markdown table cell.
func mdCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
