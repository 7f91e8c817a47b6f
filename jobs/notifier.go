package jobs

import (
	"context"
	"fmt"

	"github.com/crestline-hq/crestline/internal/invoice"
)

// InvoiceNotifier bridges the invoice service onto the job queue. Each
// issued invoice fans out into a notification email and a document cache
// warmup.
type InvoiceNotifier struct {
	client      *Client
	companyName func(ctx context.Context, companyID int64) string
}

// NewInvoiceNotifier constructs the notifier. nameLookup may be nil.
func NewInvoiceNotifier(client *Client, nameLookup func(ctx context.Context, companyID int64) string) *InvoiceNotifier {
	return &InvoiceNotifier{client: client, companyName: nameLookup}
}

// InvoiceIssued enqueues the issued-invoice tasks.
func (n *InvoiceNotifier) InvoiceIssued(ctx context.Context, inv invoice.Invoice, companyEmail string) error {
	name := ""
	if n.companyName != nil {
		name = n.companyName(ctx, inv.CompanyID)
	}
	_, err := n.client.EnqueueInvoiceIssued(ctx, InvoiceIssuedPayload{
		InvoiceID:    inv.ID,
		Number:       inv.Number,
		Period:       inv.Period(),
		TotalINR:     inv.TotalINR.StringFixed(2),
		CompanyName:  name,
		CompanyEmail: companyEmail,
	})
	if err != nil {
		return fmt.Errorf("jobs: enqueue invoice issued: %w", err)
	}
	_, err = n.client.EnqueueDocumentPrerender(ctx, DocumentPrerenderPayload{
		InvoiceID: inv.ID,
		Formats:   []string{"msword", "pdf"},
	})
	if err != nil {
		return fmt.Errorf("jobs: enqueue document prerender: %w", err)
	}
	return nil
}
