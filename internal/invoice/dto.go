package invoice

import (
	"time"

	"github.com/crestline-hq/crestline/internal/tax"
)

type LineResponse struct {
	EmployeeID   int64  `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	Hours        string `json:"hours"`
	TotalDays    int    `json:"total_days"`
	WorkedDays   string `json:"worked_days"`
	Rate         string `json:"rate,omitempty"`
	Amount       string `json:"amount"`
}

// TaxBreakdownResponse carries only the heads the regime levies. A foreign
// invoice serializes as an empty object.
type TaxBreakdownResponse struct {
	CGST string `json:"cgst,omitempty"`
	SGST string `json:"sgst,omitempty"`
	IGST string `json:"igst,omitempty"`
}

type InvoiceResponse struct {
	ID           int64                `json:"invoice_id"`
	Number       string               `json:"invoice_number"`
	CompanyID    int64                `json:"company_id"`
	POID         int64                `json:"po_id"`
	EntityType   string               `json:"entity_type"`
	Regime       string               `json:"regime"`
	Period       string               `json:"period"`
	Currency     string               `json:"currency"`
	Lines        []LineResponse       `json:"lines,omitempty"`
	Subtotal     string               `json:"subtotal"`
	TaxBreakdown TaxBreakdownResponse `json:"tax_breakdown"`
	Total        string               `json:"total_amount"`
	TotalINR     string               `json:"total_amount_inr"`
	Paid         string               `json:"paid_amount"`
	Due          string               `json:"due_amount"`
	Status       string               `json:"status"`
	CreatedAt    time.Time            `json:"created_at"`
}

type RecordPaymentRequest struct {
	Paid string `json:"paid_amount" validate:"required"`
}

// NewInvoiceResponse maps an Invoice onto its API shape. Due and status are
// computed here, never read from storage.
func NewInvoiceResponse(inv Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:         inv.ID,
		Number:     inv.Number,
		CompanyID:  inv.CompanyID,
		POID:       inv.POID,
		EntityType: string(inv.EntityType),
		Regime:     string(inv.Regime),
		Period:     inv.Period(),
		Currency:   inv.Currency,
		Subtotal:   inv.Subtotal.StringFixed(2),
		Total:      inv.Total.StringFixed(2),
		TotalINR:   inv.TotalINR.StringFixed(2),
		Paid:       inv.Paid.StringFixed(2),
		Due:        inv.Due().StringFixed(2),
		Status:     string(inv.DerivedStatus()),
		CreatedAt:  inv.CreatedAt,
	}
	switch inv.Regime {
	case tax.RegimeDomesticSameState:
		resp.TaxBreakdown.CGST = inv.CGST.StringFixed(2)
		resp.TaxBreakdown.SGST = inv.SGST.StringFixed(2)
	case tax.RegimeDomesticOtherState:
		resp.TaxBreakdown.IGST = inv.IGST.StringFixed(2)
	}
	for _, l := range inv.Lines {
		lr := LineResponse{
			EmployeeID:   l.EmployeeID,
			EmployeeName: l.EmployeeName,
			Hours:        l.Hours.String(),
			TotalDays:    l.TotalDays,
			WorkedDays:   l.WorkedDays.String(),
			Amount:       l.Amount.StringFixed(2),
		}
		if !l.Rate.IsZero() {
			lr.Rate = l.Rate.StringFixed(2)
		}
		resp.Lines = append(resp.Lines, lr)
	}
	return resp
}
