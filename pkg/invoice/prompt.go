package invoice

// Prompts sent to the vision model. Invoices are frequently Chinese VAT
// invoices, so the prompts spell out the field names in both languages and
// pin the model to bare JSON.

// FullPrompt asks for every invoice field.
const FullPrompt = `You are reading an invoice image (often a Chinese VAT invoice, 增值税发票).
Report the invoice fields as a single JSON object with exactly these keys:

{
  "invoice_no": "invoice number (发票号码)",
  "issue_date": "issue date (开票日期) as YYYY-MM-DD",
  "seller": "seller / issuer name (销售方名称)",
  "buyer": "buyer name (购买方名称)",
  "total": <total amount with tax (价税合计) as a number>,
  "tax": <tax amount (税额) as a number, or null>,
  "subtotal": <amount without tax (金额) as a number, or null>,
  "items": ["main goods or service names (货物或应税劳务名称)"],
  "notes": "anything notable, or null"
}

Use null for fields you cannot read. Respond with the JSON object only, no
markdown, no commentary.`

// SimplePrompt asks for the total amount only.
const SimplePrompt = `You are reading an invoice image. Find the total amount
payable (价税合计 on Chinese VAT invoices). Respond with a single JSON object:

{"total": <number>}

No markdown, no commentary.`

// ValidatePrompt asks whether the image is an invoice at all.
const ValidatePrompt = `Look at this image and decide whether it is an invoice
(发票). Travel itineraries, receipts, and screenshots are not invoices.
Respond with a single JSON object:

{"is_invoice": true or false, "reason": "one short sentence"}`

// VerifyPrompt asks for authenticity signals.
const VerifyPrompt = `Examine this invoice image for authenticity signals.
Respond with a single JSON object:

{"risk_level": "low" | "medium" | "high",
 "has_stamp": true or false,
 "image_quality": "good" | "fair" | "poor"}`

// ClassifyPrompt asks for invoice and expense categorization.
const ClassifyPrompt = `Classify this invoice. Respond with a single JSON object:

{"invoice_type": "e.g. 增值税专用发票, 增值税普通发票, 电子发票, other",
 "expense_category": "e.g. travel, meals, office, equipment, services, other"}`

// PromptForMode returns the extraction prompt matching the mode.
func PromptForMode(mode Mode) string {
	if mode == ModeSimple {
		return SimplePrompt
	}
	return FullPrompt
}
