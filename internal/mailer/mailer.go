// Package mailer drafts follow-up emails for quotes.
package mailer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/draftdesk/draftdesk/internal/platform/httpx"
)

// Sources reported on drafted emails.
const (
	SourceTemplate   = "template"
	SourceGenerative = "generative"
)

// DraftInput is everything a drafter may mention.
type DraftInput struct {
	QuoteName     string
	CustomerName  string
	CustomerEmail string
	InvoiceNumber string
	InvoiceURL    string
	CheckoutURL   string
	Total         string
	Items         []string
	ValidUntil    string
	CompanyName   string
	SenderName    string
	// Tone is a free-form hint such as "friendly" or "formal".
	Tone string
	// CallID links a recorded sales call for transcript context.
	CallID string
	// Context is extra guidance typed by the sender.
	Context string
}

// Email is a drafted message. Text is always set; HTML may be empty.
type Email struct {
	To      string `json:"to,omitempty"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
	Source  string `json:"source"`
}

// Drafter writes a follow-up email.
type Drafter interface {
	Draft(ctx context.Context, in DraftInput) (Email, error)
}

func validate(in DraftInput) error {
	if in.QuoteName == "" {
		return fmt.Errorf("%w: quote name required", httpx.ErrValidation)
	}
	return nil
}

type fallback struct {
	primary  Drafter
	fallback Drafter
	logger   *slog.Logger
}

// WithFallback returns a drafter that uses primary and, when it fails,
// the fallback. Only the fallback's error is ever returned.
func WithFallback(primary, secondary Drafter, logger *slog.Logger) Drafter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &fallback{primary: primary, fallback: secondary, logger: logger}
}

func (f *fallback) Draft(ctx context.Context, in DraftInput) (Email, error) {
	email, err := f.primary.Draft(ctx, in)
	if err == nil {
		return email, nil
	}
	f.logger.Warn("email drafter failed, using fallback",
		slog.String("quote", in.QuoteName),
		slog.Any("error", err))
	return f.fallback.Draft(ctx, in)
}
