package report

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/crestline-hq/crestline/internal/invoice"
	"github.com/crestline-hq/crestline/internal/masterdata"
	"github.com/crestline-hq/crestline/internal/shared"
)

//go:embed templates/invoice.html
var templates embed.FS

// PDFClient exposes the subset of the Gotenberg client used by the renderer.
type PDFClient interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// InvoiceRenderer produces downloadable invoice documents. The HTML output
// doubles as the Word-compatible download and the input to PDF conversion.
type InvoiceRenderer struct {
	tpl    *template.Template
	client PDFClient

	inr *message.Printer
	usd *message.Printer
}

// NewInvoiceRenderer parses the invoice template and wires the PDF client.
// client may be nil when PDF output is not configured.
func NewInvoiceRenderer(client PDFClient) (*InvoiceRenderer, error) {
	tpl, err := template.ParseFS(templates, "templates/invoice.html")
	if err != nil {
		return nil, fmt.Errorf("report: parse invoice template: %w", err)
	}
	return &InvoiceRenderer{
		tpl:    tpl,
		client: client,
		inr:    message.NewPrinter(language.MustParse("en-IN")),
		usd:    message.NewPrinter(language.AmericanEnglish),
	}, nil
}

type lineView struct {
	EmployeeName string
	Hours        string
	WorkedDays   string
	TotalDays    int
	Rate         string
	Amount       string
}

type invoiceView struct {
	Number      string
	IssuedOn    string
	Period      string
	Company     masterdata.Company
	EntityName  string
	Currency    string
	Lines       []lineView
	Subtotal    string
	ShowGST     bool
	CGST        string
	SGST        string
	IGST        string
	Total       string
	TotalINR    string
	Paid        string
	Due         string
	Status      string
	ShowINR     bool
	HourlyBased bool
}

var entityNames = map[string]string{
	"crestline_services_india": "Crestline Services India Pvt Ltd",
	"crestline_tech_india":     "Crestline Tech India Pvt Ltd",
	"crestline_tech_usa":       "Crestline Tech USA Inc",
}

// HTML renders the Word-compatible invoice document.
func (r *InvoiceRenderer) HTML(inv invoice.Invoice, company masterdata.Company) ([]byte, error) {
	view := r.buildView(inv, company)
	buf := &bytes.Buffer{}
	if err := r.tpl.Execute(buf, view); err != nil {
		return nil, fmt.Errorf("%w: invoice %s: %v", shared.ErrRender, inv.Number, err)
	}
	return buf.Bytes(), nil
}

// PDF renders the invoice and converts it through Gotenberg.
func (r *InvoiceRenderer) PDF(ctx context.Context, inv invoice.Invoice, company masterdata.Company) ([]byte, error) {
	if r.client == nil {
		return nil, fmt.Errorf("%w: pdf conversion not configured", shared.ErrRender)
	}
	html, err := r.HTML(inv, company)
	if err != nil {
		return nil, err
	}
	pdf, err := r.client.RenderHTML(ctx, string(html))
	if err != nil {
		return nil, fmt.Errorf("%w: invoice %s: %v", shared.ErrRender, inv.Number, err)
	}
	return pdf, nil
}

func (r *InvoiceRenderer) buildView(inv invoice.Invoice, company masterdata.Company) invoiceView {
	money := r.moneyFormatter(inv.Currency)
	view := invoiceView{
		Number:      inv.Number,
		IssuedOn:    inv.CreatedAt.Format("02 Jan 2006"),
		Period:      time.Date(inv.Year, time.Month(inv.Month), 1, 0, 0, 0, 0, time.UTC).Format("January 2006"),
		Company:     company,
		EntityName:  entityNames[string(inv.EntityType)],
		Currency:    inv.Currency,
		Subtotal:    money(inv.Subtotal),
		ShowGST:     inv.Currency == invoice.CurrencyINR,
		CGST:        money(inv.CGST),
		SGST:        money(inv.SGST),
		IGST:        money(inv.IGST),
		Total:       money(inv.Total),
		TotalINR:    r.moneyFormatter(invoice.CurrencyINR)(inv.TotalINR),
		Paid:        r.moneyFormatter(invoice.CurrencyINR)(inv.Paid),
		Due:         r.moneyFormatter(invoice.CurrencyINR)(inv.Due()),
		Status:      string(inv.DerivedStatus()),
		ShowINR:     inv.Currency != invoice.CurrencyINR,
		HourlyBased: inv.Currency == invoice.CurrencyUSD,
	}
	for _, l := range inv.Lines {
		lv := lineView{
			EmployeeName: l.EmployeeName,
			Hours:        l.Hours.String(),
			WorkedDays:   l.WorkedDays.String(),
			TotalDays:    l.TotalDays,
			Amount:       money(l.Amount),
		}
		if !l.Rate.IsZero() {
			lv.Rate = money(l.Rate)
		}
		view.Lines = append(view.Lines, lv)
	}
	return view
}

func (r *InvoiceRenderer) moneyFormatter(currency string) func(decimal.Decimal) string {
	printer, symbol := r.inr, "₹"
	if currency == invoice.CurrencyUSD {
		printer, symbol = r.usd, "$"
	}
	return func(d decimal.Decimal) string {
		f, _ := d.Float64()
		return printer.Sprintf("%s%v", symbol,
			number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	}
}
