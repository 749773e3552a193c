// Package htmlpdf renders invoices from an HTML template and converts them
// to PDF through Gotenberg.
package htmlpdf

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/skip2/go-qrcode"

	"github.com/draftdesk/draftdesk/internal/invoice"
)

//go:embed templates/invoice.html
var templateFS embed.FS

// Renderer is the Gotenberg-backed invoice renderer.
type Renderer struct {
	client    *Client
	templates *template.Template
	brands    []string
}

var _ invoice.Renderer = (*Renderer)(nil)

// NewRenderer parses the embedded template.
func NewRenderer(client *Client, paymentBrands []string) (*Renderer, error) {
	tpl, err := template.New("invoice.html").Funcs(template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("January 2, 2006")
		},
		"money": invoice.FormatMoney,
	}).ParseFS(templateFS, "templates/invoice.html")
	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}
	return &Renderer{client: client, templates: tpl, brands: paymentBrands}, nil
}

type lineView struct {
	invoice.Line
	Image template.URL
}

type pageView struct {
	Invoice invoice.Invoice
	Logo    template.URL
	Lines   []lineView
	Rows    []invoice.Row
	QR      template.URL
	Brands  []string
}

// HTML executes the template; images are inlined as data URIs so the
// document is self-contained.
func (r *Renderer) HTML(inv invoice.Invoice) ([]byte, error) {
	view := pageView{
		Invoice: inv,
		Logo:    dataURI(inv.Company.LogoPath),
		Rows:    inv.Totals.Rows(inv.Currency),
		Brands:  r.brands,
	}
	for _, l := range inv.Lines {
		view.Lines = append(view.Lines, lineView{Line: l, Image: dataURI(l.ImagePath)})
	}
	if inv.CheckoutURL != "" {
		if png, err := qrcode.Encode(inv.CheckoutURL, qrcode.Medium, 256); err == nil {
			view.QR = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
		}
	}

	buf := &bytes.Buffer{}
	if err := r.templates.ExecuteTemplate(buf, "invoice.html", view); err != nil {
		return nil, fmt.Errorf("render invoice template: %w", err)
	}
	return buf.Bytes(), nil
}

// Render converts the invoice HTML and writes the PDF to w.
func (r *Renderer) Render(ctx context.Context, inv invoice.Invoice, w io.Writer) error {
	html, err := r.HTML(inv)
	if err != nil {
		return err
	}
	pdf, err := r.client.ConvertHTML(ctx, html)
	if err != nil {
		return fmt.Errorf("htmlpdf: convert %s: %w", inv.Number, err)
	}
	if _, err := w.Write(pdf); err != nil {
		return fmt.Errorf("htmlpdf: write %s: %w", inv.Number, err)
	}
	return nil
}

func dataURI(path string) template.URL {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), "image/png", "image/jpeg", "image/gif", "image/webp", "image/svg+xml") {
		return ""
	}
	return template.URL("data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(data))
}
