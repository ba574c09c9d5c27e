// Package prompt holds the invoice-extraction prompt shared by every LLM
// provider and the parser for the models' answers.
package prompt

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/mikey/invoice-analyzer/internal/core"
	"github.com/mikey/invoice-analyzer/internal/utils"
)

// SystemMessage is sent as the system role where the provider supports one
const SystemMessage = "You are an invoice detection system. Respond only with JSON."

const invoiceFormat = `You are an invoice detection system. Analyze the following email and decide whether it is an invoice, bill or payment request.
Respond with a JSON object containing:
- contains_invoice: boolean (true if the email is an invoice or bill)
- confidence: integer between 0 and 100 (how confident you are)
- vendor: string (who is billing, empty if unknown)
- amount: string (the amount due exactly as written, empty if none)
- invoice_number: string (empty if none)
- due_date: string (the due date exactly as written, empty if none)
- explanation: string (one sentence)

Email:
From: %s
To: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// Invoice formats the extraction prompt for an email whose body has already
// been truncated and sanitized.
func Invoice(email *core.Email, body string) string {
	to := ""
	if len(email.To) > 0 {
		to = email.To[0]
		if len(email.To) > 1 {
			to += fmt.Sprintf(" and %d others", len(email.To)-1)
		}
	}
	return fmt.Sprintf(invoiceFormat, email.From, to, email.Subject, body)
}

type invoiceResponse struct {
	ContainsInvoice bool            `json:"contains_invoice"`
	Confidence      float64         `json:"confidence"`
	Vendor          json.RawMessage `json:"vendor"`
	Amount          json.RawMessage `json:"amount"`
	InvoiceNumber   json.RawMessage `json:"invoice_number"`
	DueDate         json.RawMessage `json:"due_date"`
	Explanation     string          `json:"explanation"`
}

// ParseInvoiceResponse decodes a model answer into an extraction. Confidence
// given as a 0..1 fraction is scaled to 0..100.
func ParseInvoiceResponse(text string) (*core.InvoiceExtraction, error) {
	var resp invoiceResponse
	if err := utils.UnmarshalLenient(text, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
	}

	confidence := resp.Confidence
	if confidence > 0 && confidence <= 1 {
		confidence *= 100
	}

	return &core.InvoiceExtraction{
		ContainsInvoice: resp.ContainsInvoice,
		Confidence:      int(math.Round(confidence)),
		Vendor:          utils.RawString(resp.Vendor),
		Amount:          utils.RawString(resp.Amount),
		InvoiceNumber:   utils.RawString(resp.InvoiceNumber),
		DueDate:         utils.RawString(resp.DueDate),
		Explanation:     resp.Explanation,
	}, nil
}
