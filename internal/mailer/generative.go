package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// TranscriptSource returns a summary of a recorded sales call.
type TranscriptSource interface {
	Transcript(ctx context.Context, callID string) (string, error)
}

// GenerativeDrafter asks a language model for the email.
type GenerativeDrafter struct {
	llm         llms.Model
	transcripts TranscriptSource
	logger      *slog.Logger
}

// NewGenerativeDrafter builds a drafter; transcripts may be nil.
func NewGenerativeDrafter(llm llms.Model, transcripts TranscriptSource, logger *slog.Logger) (*GenerativeDrafter, error) {
	if llm == nil {
		return nil, errors.New("mailer: llm is nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &GenerativeDrafter{llm: llm, transcripts: transcripts, logger: logger}, nil
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

func (g *GenerativeDrafter) Draft(ctx context.Context, in DraftInput) (Email, error) {
	if err := validate(in); err != nil {
		return Email{}, err
	}

	var transcript string
	if in.CallID != "" && g.transcripts != nil {
		t, err := g.transcripts.Transcript(ctx, in.CallID)
		if err != nil {
			g.logger.Warn("call transcript unavailable", slog.String("call_id", in.CallID), slog.Any("error", err))
		} else {
			transcript = t
		}
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildPrompt(in, transcript)),
	}
	completion, err := g.llm.GenerateContent(ctx, content, llms.WithTemperature(0.4), llms.WithMaxTokens(900))
	if err != nil {
		return Email{}, fmt.Errorf("mailer: llm.GenerateContent: %w", err)
	}

	var response strings.Builder
	for _, choice := range completion.Choices {
		if choice == nil {
			continue
		}
		response.WriteString(choice.Content)
		if choice.StopReason != "" && choice.StopReason != "stop" {
			g.logger.Warn("unexpected stop reason", slog.String("stop_reason", choice.StopReason))
		}
	}

	subject, html, err := parseCompletion(response.String())
	if err != nil {
		return Email{}, err
	}
	return Email{
		To:      in.CustomerEmail,
		Subject: subject,
		Text:    htmlToText(html),
		HTML:    html,
		Source:  SourceGenerative,
	}, nil
}

const systemPrompt = `You write short, warm follow-up emails from a furniture and fit-out sales team to a customer who received a quote.
Reply in exactly this format:
Subject: <one line subject>

<email body as simple HTML using only <p>, <ul>, <li>, <strong> and <a> tags>
Never invent prices, dates or links that are not given to you.`

func buildPrompt(in DraftInput, transcript string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Quote: %s\n", in.QuoteName)
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	field("Customer", in.CustomerName)
	field("Company", in.CompanyName)
	field("Sender", in.SenderName)
	field("Total", in.Total)
	field("Valid until", in.ValidUntil)
	field("Invoice number", in.InvoiceNumber)
	field("Invoice link", in.InvoiceURL)
	field("Checkout link", in.CheckoutURL)
	field("Tone", in.Tone)
	if len(in.Items) > 0 {
		b.WriteString("Items:\n")
		for _, it := range in.Items {
			fmt.Fprintf(&b, "- %s\n", it)
		}
	}
	if in.Context != "" {
		fmt.Fprintf(&b, "Notes from the sender:\n%s\n", in.Context)
	}
	if transcript != "" {
		fmt.Fprintf(&b, "Summary of our last call with the customer:\n%s\n", transcript)
	}
	return b.String()
}

func parseCompletion(raw string) (subject, body string, err error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```html")
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "```"), "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", errors.New("mailer: empty completion")
	}
	first, rest, _ := strings.Cut(raw, "\n")
	label, value, ok := strings.Cut(first, ":")
	if !ok || !strings.EqualFold(strings.TrimSpace(label), "subject") {
		return "", "", errors.New("mailer: completion has no subject line")
	}
	subject = strings.TrimSpace(value)
	body = strings.TrimSpace(rest)
	if subject == "" || body == "" {
		return "", "", errors.New("mailer: completion missing subject or body")
	}
	return subject, body, nil
}

func htmlToText(html string) string {
	s := strings.NewReplacer("</p>", "\n\n", "<br>", "\n", "<br/>", "\n", "<li>", "- ", "</li>", "\n", "</ul>", "\n").Replace(html)
	s = tagPattern.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
