package masterdata

import (
	"time"

	"github.com/crestline-hq/crestline/internal/po"
)

type CreateCompanyRequest struct {
	Name           string                       `json:"name" validate:"required,max=200"`
	EntityType     string                       `json:"entity_type" validate:"required"`
	ClientType     string                       `json:"client_type"`
	ContactNumber  string                       `json:"contact_number,omitempty"`
	BuildingNo     string                       `json:"building_no,omitempty"`
	City           string                       `json:"city" validate:"required"`
	State          string                       `json:"state" validate:"required"`
	Country        string                       `json:"country" validate:"required"`
	PinCode        string                       `json:"pin_code" validate:"required,max=10"`
	GSTIN          string                       `json:"gstin,omitempty"`
	SAC            string                       `json:"sac,omitempty"`
	Email          string                       `json:"email" validate:"required,email"`
	PurchaseOrders []CreatePurchaseOrderRequest `json:"purchase_orders" validate:"dive"`
}

type CreatePurchaseOrderRequest struct {
	Number     string                  `json:"number" validate:"required,max=50"`
	Value      string                  `json:"value" validate:"required"`
	FromDate   string                  `json:"from_date" validate:"required"` // 2006-01-02
	ToDate     string                  `json:"to_date" validate:"required"`
	HourlyRate string                  `json:"hourly_rate,omitempty"`
	IGST       string                  `json:"igst,omitempty"` // defaults 18
	CGST       string                  `json:"cgst,omitempty"` // defaults 9
	SGST       string                  `json:"sgst,omitempty"` // defaults 9
	Employees  []CreateEmployeeRequest `json:"employees" validate:"dive"`
}

type CreateEmployeeRequest struct {
	Name           string `json:"name" validate:"required,max=200"`
	Email          string `json:"email" validate:"omitempty,email"`
	Location       string `json:"location,omitempty"`
	DateOfJoining  string `json:"date_of_joining,omitempty"`
	VendorPOCName  string `json:"vendor_poc_name,omitempty"`
	VendorPOCEmail string `json:"vendor_poc_email,omitempty" validate:"omitempty,email"`
	ClientPOCName  string `json:"client_poc_name,omitempty"`
	ClientPOCEmail string `json:"client_poc_email,omitempty" validate:"omitempty,email"`
}

type CompanyResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	EntityType string    `json:"entity_type"`
	ClientType string    `json:"client_type"`
	Email      string    `json:"email"`
	Active     bool      `json:"is_active"`
	POCount    int       `json:"po_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type PurchaseOrderResponse struct {
	ID            int64  `json:"id"`
	Number        string `json:"number"`
	Value         string `json:"value"`
	FromDate      string `json:"from_date"`
	ToDate        string `json:"to_date"`
	MonthCount    int    `json:"month_count"`
	MonthlyBudget string `json:"monthly_budget,omitempty"` // blank when the span is zero
	HourlyRate    string `json:"hourly_rate,omitempty"`
	IGST          string `json:"igst"`
	CGST          string `json:"cgst"`
	SGST          string `json:"sgst"`
}

type EmployeeResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Location      string `json:"location,omitempty"`
	DateOfJoining string `json:"date_of_joining,omitempty"`
}

type UpdateCompanyStatusRequest struct {
	Active *bool `json:"is_active" validate:"required"`
}

// NewCompanyResponse maps a Company onto its API shape.
func NewCompanyResponse(c Company) CompanyResponse {
	return CompanyResponse{
		ID:         c.ID,
		Name:       c.Name,
		EntityType: string(c.EntityType),
		ClientType: string(c.ClientType),
		Email:      c.Email,
		Active:     c.Active,
		CreatedAt:  c.CreatedAt,
	}
}

// NewEmployeeResponse maps an Employee onto its API shape.
func NewEmployeeResponse(e po.Employee) EmployeeResponse {
	resp := EmployeeResponse{
		ID:       e.ID,
		Name:     e.Name,
		Email:    e.Email,
		Location: e.Location,
	}
	if !e.DateOfJoining.IsZero() {
		resp.DateOfJoining = e.DateOfJoining.Format("2006-01-02")
	}
	return resp
}

// NewPurchaseOrderResponse maps a PurchaseOrder onto its API shape. The
// monthly budget is advisory and left blank when the PO window has no span.
func NewPurchaseOrderResponse(o po.PurchaseOrder) PurchaseOrderResponse {
	resp := PurchaseOrderResponse{
		ID:       o.ID,
		Number:   o.Number,
		Value:    o.Value.StringFixed(2),
		FromDate: o.FromDate.Format("2006-01-02"),
		ToDate:   o.ToDate.Format("2006-01-02"),
		IGST:     o.Rates.IGST.String(),
		CGST:     o.Rates.CGST.String(),
		SGST:     o.Rates.SGST.String(),
	}
	if !o.HourlyRate.IsZero() {
		resp.HourlyRate = o.HourlyRate.StringFixed(2)
	}
	if span, err := po.MonthSpan(o.FromDate, o.ToDate); err == nil {
		resp.MonthCount = span
	}
	if budget, ok := po.MonthlyBudget(o.Value, o.FromDate, o.ToDate); ok {
		resp.MonthlyBudget = budget.StringFixed(2)
	}
	return resp
}
