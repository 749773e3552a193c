package mailer

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"
)

const subjectTemplate = `Your quote {{ .QuoteName }}{{ with .CompanyName }} from {{ . }}{{ end }}`

const textTemplate = `Hi {{ or .CustomerName "there" }},

Thank you for your interest{{ with .CompanyName }} in {{ . }}{{ end }}. Your quote {{ .QuoteName }} is ready{{ with .Total }} with a total of {{ . }}{{ end }}.
{{- if .Items }}

It includes:
{{- range .Items }}
  - {{ . }}
{{- end }}
{{- end }}
{{- with .InvoiceURL }}

You can download the invoice{{ with $.InvoiceNumber }} ({{ . }}){{ end }} here: {{ . }}
{{- end }}
{{- with .CheckoutURL }}

When you are ready, you can complete your order here: {{ . }}
{{- end }}
{{- with .ValidUntil }}

The quote is valid until {{ . }}.
{{- end }}

If you have any questions, just reply to this email.

Best regards,
{{ or .SenderName .CompanyName "The sales team" }}
`

const htmlTemplate = `<p>{{ range $i, $p := . }}{{ if $i }}</p><p>{{ end }}{{ $p }}{{ end }}</p>`

// TemplateDrafter fills fixed templates. It is deterministic and fails
// only on invalid input.
type TemplateDrafter struct {
	subject *template.Template
	text    *template.Template
	html    *htmltemplate.Template
}

// NewTemplateDrafter parses the built-in templates.
func NewTemplateDrafter() *TemplateDrafter {
	return &TemplateDrafter{
		subject: template.Must(template.New("subject").Parse(subjectTemplate)),
		text:    template.Must(template.New("text").Parse(textTemplate)),
		html:    htmltemplate.Must(htmltemplate.New("html").Parse(htmlTemplate)),
	}
}

func (d *TemplateDrafter) Draft(_ context.Context, in DraftInput) (Email, error) {
	if err := validate(in); err != nil {
		return Email{}, err
	}
	var subject, text, html bytes.Buffer
	if err := d.subject.Execute(&subject, in); err != nil {
		return Email{}, fmt.Errorf("mailer: subject template: %w", err)
	}
	if err := d.text.Execute(&text, in); err != nil {
		return Email{}, fmt.Errorf("mailer: body template: %w", err)
	}
	paragraphs := strings.Split(strings.TrimSpace(text.String()), "\n\n")
	if err := d.html.Execute(&html, paragraphs); err != nil {
		return Email{}, fmt.Errorf("mailer: html template: %w", err)
	}
	return Email{
		To:      in.CustomerEmail,
		Subject: strings.TrimSpace(subject.String()),
		Text:    text.String(),
		HTML:    html.String(),
		Source:  SourceTemplate,
	}, nil
}
