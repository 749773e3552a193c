package quotes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/draftdesk/draftdesk/internal/invoice"
	"github.com/draftdesk/draftdesk/internal/platform/httpx"
	"github.com/draftdesk/draftdesk/internal/shopify"
)

// Conversion outcomes reported to the recorder.
const (
	OutcomeRendered = "rendered"
	OutcomeReused   = "reused"
	OutcomeFailed   = "failed"
)

const invoiceMetafieldNamespace = "draftdesk"

// StepOutcome reports an optional follow-up step.
type StepOutcome struct {
	Attempted bool   `json:"attempted"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

func outcome(err error) StepOutcome {
	if err != nil {
		return StepOutcome{Attempted: true, Error: err.Error()}
	}
	return StepOutcome{Attempted: true, OK: true}
}

// ConvertResult describes one converted quote.
type ConvertResult struct {
	QuoteID       int64       `json:"quote_id"`
	QuoteName     string      `json:"quote_name"`
	InvoiceNumber string      `json:"invoice_number"`
	DownloadURL   string      `json:"download_url"`
	Reused        bool        `json:"reused"`
	Completed     StepOutcome `json:"completed"`
	EmailSent     StepOutcome `json:"email_sent"`
}

// Convert renders the invoice for a quote and runs the requested follow-ups.
// Follow-up failures are reported on the result and never remove the file.
func (s *Service) Convert(ctx context.Context, id int64, req ConvertRequest) (ConvertResult, error) {
	if req.Email != nil {
		if err := s.validate.Struct(req.Email); err != nil {
			return ConvertResult{}, err
		}
	}
	logger := s.cfg.Logger.With(slog.Int64("quote_id", id))

	q, err := s.cfg.Platform.GetDraftOrder(ctx, id)
	if err != nil {
		s.cfg.Recorder.InvoiceConverted(OutcomeFailed)
		return ConvertResult{}, fmt.Errorf("get quote %d: %w", id, err)
	}

	number := invoice.NumberFor(q.ID)
	res := ConvertResult{
		QuoteID:       q.ID,
		QuoteName:     q.Name,
		InvoiceNumber: number,
		DownloadURL:   s.downloadURL(number),
	}

	if !req.Regenerate && s.cfg.Store.Exists(number) {
		res.Reused = true
		s.cfg.Recorder.InvoiceConverted(OutcomeReused)
		logger.Info("invoice reused", slog.String("invoice", number))
	} else {
		if err := s.render(ctx, q, number); err != nil {
			s.cfg.Recorder.InvoiceConverted(OutcomeFailed)
			return ConvertResult{}, err
		}
		s.cfg.Recorder.InvoiceConverted(OutcomeRendered)
		logger.Info("invoice rendered", slog.String("invoice", number))
	}

	_, err = s.cfg.Platform.SetMetafield(ctx, shopify.OwnerDraftOrder, q.ID, shopify.Metafield{
		Namespace: invoiceMetafieldNamespace,
		Key:       "invoice_number",
		Value:     number,
	})
	if err != nil {
		logger.Warn("tag quote with invoice number failed", slog.Any("error", err))
	}

	if req.CompleteOrder {
		if q.Status == shopify.StatusCompleted {
			res.Completed = StepOutcome{Attempted: true, OK: true}
		} else {
			_, err := s.cfg.Platform.CompleteDraftOrder(ctx, q.ID, true)
			res.Completed = outcome(err)
			if err != nil {
				logger.Warn("complete quote failed", slog.Any("error", err))
			}
		}
	}

	if req.SendEmail {
		err := s.sendInvoice(ctx, q, req.Email)
		res.EmailSent = outcome(err)
		if err != nil {
			logger.Warn("send invoice email failed", slog.Any("error", err))
		}
	}
	return res, nil
}

func (s *Service) render(ctx context.Context, q shopify.DraftOrder, number string) error {
	inv, err := s.cfg.Builder.Build(ctx, q)
	if err != nil {
		return fmt.Errorf("build invoice %s: %w", number, err)
	}
	var buf bytes.Buffer
	if err := s.cfg.Renderer.Render(ctx, inv, &buf); err != nil {
		return fmt.Errorf("render invoice %s: %w", number, err)
	}
	if err := s.cfg.Store.Save(number, buf.Bytes()); err != nil {
		return fmt.Errorf("save invoice %s: %w", number, err)
	}
	return nil
}

func (s *Service) sendInvoice(ctx context.Context, q shopify.DraftOrder, fields *EmailFields) error {
	email := shopify.InvoiceEmail{}
	if fields != nil {
		email.To = fields.To
		email.BCC = fields.BCC
		email.Subject = fields.Subject
		email.CustomMessage = fields.Message
	}
	if email.To == "" && q.Email == "" && (q.Customer == nil || q.Customer.Email == "") {
		return errors.New("quote has no customer email")
	}
	return s.cfg.Platform.SendDraftOrderInvoice(ctx, q.ID, email)
}

// BatchItem carries exactly one of Invoice or Error.
type BatchItem struct {
	QuoteID string         `json:"quote_id"`
	Invoice *ConvertResult `json:"invoice,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type BatchResult struct {
	BatchID     uuid.UUID   `json:"batch_id"`
	Processed   int         `json:"processed"`
	Successful  int         `json:"successful"`
	Failed      int         `json:"failed"`
	Results     []BatchItem `json:"results"`
	// Interrupted is set when the batch stopped before its last id.
	Interrupted string `json:"interrupted,omitempty"`
}

// BatchConvert converts quotes one after another. A failing quote does not
// stop the batch.
func (s *Service) BatchConvert(ctx context.Context, ids []string, req ConvertRequest) (BatchResult, error) {
	if len(ids) == 0 {
		return BatchResult{}, fmt.Errorf("%w: quote_ids required", httpx.ErrValidation)
	}
	res := BatchResult{BatchID: uuid.New(), Results: make([]BatchItem, 0, len(ids))}
	logger := s.cfg.Logger.With(slog.String("batch_id", res.BatchID.String()))

	for _, raw := range ids {
		if err := ctx.Err(); err != nil {
			res.Interrupted = err.Error()
			logger.Warn("batch interrupted",
				slog.Int("processed", res.Processed),
				slog.Int("remaining", len(ids)-res.Processed),
				slog.Any("error", err))
			return res, err
		}
		item := BatchItem{QuoteID: strings.TrimSpace(raw)}
		res.Processed++

		id, err := shopify.ParseID(item.QuoteID)
		if err == nil {
			var converted ConvertResult
			converted, err = s.Convert(ctx, id, req)
			if err == nil {
				item.Invoice = &converted
			}
		}
		if err != nil {
			item.Error = err.Error()
			res.Failed++
			logger.Warn("batch item failed", slog.String("quote_id", item.QuoteID), slog.Any("error", err))
		} else {
			res.Successful++
		}
		res.Results = append(res.Results, item)
	}

	logger.Info("batch converted",
		slog.Int("processed", res.Processed),
		slog.Int("successful", res.Successful),
		slog.Int("failed", res.Failed),
	)
	return res, nil
}
