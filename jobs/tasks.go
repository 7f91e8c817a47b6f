package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeInvoiceIssued notifies the client contact that an invoice
	// was generated.
	TaskTypeInvoiceIssued = "invoice:issued"
	// TaskTypeDocumentPrerender warms the document cache right after
	// generation so the first download is instant.
	TaskTypeDocumentPrerender = "invoice:prerender"
)

// InvoiceIssuedPayload describes an issued-invoice notification.
type InvoiceIssuedPayload struct {
	EventID      string `json:"event_id"`
	InvoiceID    int64  `json:"invoice_id"`
	Number       string `json:"number"`
	Period       string `json:"period"`
	TotalINR     string `json:"total_inr"`
	CompanyName  string `json:"company_name"`
	CompanyEmail string `json:"company_email"`
}

// DocumentPrerenderPayload names an invoice whose documents should be
// rendered into the cache ahead of the first download.
type DocumentPrerenderPayload struct {
	InvoiceID int64    `json:"invoice_id"`
	Formats   []string `json:"formats"`
}

// NewInvoiceIssuedTask constructs an Asynq task.
func NewInvoiceIssuedTask(payload InvoiceIssuedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeInvoiceIssued, data), nil
}

// NewDocumentPrerenderTask constructs an Asynq task.
func NewDocumentPrerenderTask(payload DocumentPrerenderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDocumentPrerender, data), nil
}

// Mailer sends the issued-invoice email. SMTP settings come from config; a
// nil Mailer logs instead of sending, which is the test-mode behavior.
type Mailer struct {
	Addr string
	From string
	Auth smtp.Auth
}

// InvoiceIssuedHandler returns the handler for TaskTypeInvoiceIssued.
func InvoiceIssuedHandler(logger *slog.Logger, mailer *Mailer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload InvoiceIssuedPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.CompanyEmail == "" {
			logger.Warn("invoice issued notification skipped, no contact email",
				slog.String("number", payload.Number))
			return nil
		}
		if mailer == nil {
			logger.Info("invoice issued notification (mail disabled)",
				slog.String("event_id", payload.EventID),
				slog.String("number", payload.Number),
				slog.String("to", payload.CompanyEmail))
			return nil
		}

		body := fmt.Sprintf(
			"To: %s\r\nSubject: Invoice %s for %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n"+
				"Dear %s,\r\n\r\nInvoice %s covering %s has been issued. Amount payable: INR %s.\r\n\r\nRegards,\r\nAccounts\r\n",
			payload.CompanyEmail, payload.Number, payload.Period,
			payload.CompanyName, payload.Number, payload.Period, payload.TotalINR)
		if err := smtp.SendMail(mailer.Addr, mailer.Auth, mailer.From, []string{payload.CompanyEmail}, []byte(body)); err != nil {
			return fmt.Errorf("jobs: send invoice mail: %w", err)
		}
		logger.Info("invoice issued notification sent",
			slog.String("event_id", payload.EventID),
			slog.String("number", payload.Number),
			slog.String("to", payload.CompanyEmail))
		return nil
	}
}

// DocumentSource renders invoice documents for cache warming.
type DocumentSource interface {
	RenderDocument(ctx context.Context, id int64, format string) ([]byte, error)
}

// DocumentSink stores rendered documents.
type DocumentSink interface {
	Set(ctx context.Context, invoiceID int64, format string, data []byte) error
}

// DocumentPrerenderHandler returns the handler for TaskTypeDocumentPrerender.
func DocumentPrerenderHandler(logger *slog.Logger, source DocumentSource, sink DocumentSink) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload DocumentPrerenderPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		for _, format := range payload.Formats {
			data, err := source.RenderDocument(ctx, payload.InvoiceID, format)
			if err != nil {
				return fmt.Errorf("jobs: prerender invoice %d %s: %w", payload.InvoiceID, format, err)
			}
			if err := sink.Set(ctx, payload.InvoiceID, format, data); err != nil {
				return fmt.Errorf("jobs: cache invoice %d %s: %w", payload.InvoiceID, format, err)
			}
		}
		logger.Info("invoice documents prerendered",
			slog.Int64("invoice_id", payload.InvoiceID),
			slog.Int("formats", len(payload.Formats)))
		return nil
	}
}
