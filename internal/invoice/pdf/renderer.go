// Package pdf draws invoices as A4 PDF documents.
package pdf

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/draftdesk/draftdesk/internal/invoice"
)

const (
	margin     = 15.0
	contentW   = 180.0
	lineH      = 5.0
	rowH       = 16.0
	thumbSize  = 12.0
	footerH    = 12.0
	fontFamily = "Helvetica"
)

// DefaultPaymentBrands is the static strip printed under the QR code.
var DefaultPaymentBrands = []string{"VISA", "Mastercard", "AMEX", "PayPal", "Apple Pay", "Bank transfer"}

// Options configures a Renderer.
type Options struct {
	PaymentBrands []string
	// Uncompressed leaves content streams readable; tests use it.
	Uncompressed bool
	Logger       *slog.Logger
}

// Renderer draws invoices with fpdf.
type Renderer struct {
	opts Options
}

var _ invoice.Renderer = (*Renderer)(nil)

// New returns a renderer with default payment brands.
func New(opts Options) *Renderer {
	if opts.PaymentBrands == nil {
		opts.PaymentBrands = DefaultPaymentBrands
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Renderer{opts: opts}
}

type column struct {
	title string
	width float64
	align string
}

var columns = []column{
	{title: "", width: 18, align: "C"},
	{title: "Item", width: 82, align: "L"},
	{title: "Qty", width: 16, align: "C"},
	{title: "Unit price", width: 32, align: "R"},
	{title: "Amount", width: 32, align: "R"},
}

// page bundles per-render drawing state.
type page struct {
	pdf *fpdf.Fpdf
	cur *cursor
	tr  func(string) string
	inv invoice.Invoice
}

// Render draws inv and writes the document to w.
func (r *Renderer) Render(ctx context.Context, inv invoice.Invoice, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin+footerH)
	pdf.SetCompression(!r.opts.Uncompressed)
	pdf.SetTitle(inv.Number, true)
	pdf.SetAuthor(inv.Company.Name, true)
	pdf.SetCreator("draftdesk", false)
	pdf.SetCreationDate(issuedAt(inv.IssuedAt))
	pdf.AliasNbPages("")

	p := &page{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), inv: inv}
	pdf.SetFooterFunc(p.footer)
	pdf.AddPage()
	p.cur = newCursor(pdf)

	p.header()
	p.title()
	p.metadata()
	p.parties()
	p.lineItems()
	p.totals()
	p.notes()
	p.checkout(r.opts.Logger)
	p.paymentStrip(r.opts.PaymentBrands)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("pdf: draw %s: %w", inv.Number, err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: write %s: %w", inv.Number, err)
	}
	return nil
}

func (p *page) font(style string, size float64) {
	p.pdf.SetFont(fontFamily, style, size)
}

func (p *page) header() {
	c := p.inv.Company
	top := p.cur.y()
	if registerFile(p.pdf, c.LogoPath) {
		p.pdf.ImageOptions(c.LogoPath, margin, top, 0, 14, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	} else {
		p.font("B", 18)
		p.pdf.SetTextColor(33, 37, 41)
		p.pdf.SetXY(margin, top)
		p.pdf.CellFormat(100, 9, p.tr(c.Name), "", 0, "L", false, 0, "")
		if c.Tagline != "" {
			p.font("I", 9)
			p.pdf.SetXY(margin, top+9)
			p.pdf.CellFormat(100, 5, p.tr(c.Tagline), "", 0, "L", false, 0, "")
		}
	}

	p.font("", 8)
	p.pdf.SetTextColor(90, 90, 90)
	y := top
	for _, l := range append(append([]string{}, c.Address...), c.Email, c.Phone, c.Website) {
		if l == "" {
			continue
		}
		p.pdf.SetXY(margin+contentW-80, y)
		p.pdf.CellFormat(80, 4, p.tr(l), "", 0, "R", false, 0, "")
		y += 4
	}
	p.cur.moveTo(max(y, top+16) + 4)
	p.pdf.SetDrawColor(200, 200, 200)
	p.pdf.Line(margin, p.cur.y(), margin+contentW, p.cur.y())
	p.cur.advance(6)
}

func (p *page) title() {
	p.font("B", 16)
	p.pdf.SetTextColor(33, 37, 41)
	p.pdf.CellFormat(contentW, 8, "QUOTE / INVOICE", "", 1, "C", false, 0, "")
	p.cur.advance(2)
}

func (p *page) metadata() {
	inv := p.inv
	cells := [][2]string{
		{"Invoice No.", inv.Number},
		{"Quote", inv.QuoteName},
		{"Date", inv.IssuedAt.Format("Jan 2, 2006")},
		{"Valid until", inv.ValidUntil.Format("Jan 2, 2006")},
	}
	w := contentW / float64(len(cells))
	y := p.cur.y()
	for i, c := range cells {
		x := margin + float64(i)*w
		p.pdf.SetXY(x, y)
		p.font("", 8)
		p.pdf.SetTextColor(120, 120, 120)
		p.pdf.CellFormat(w, 4, c[0], "", 0, "L", false, 0, "")
		p.pdf.SetXY(x, y+4)
		p.font("B", 10)
		p.pdf.SetTextColor(33, 37, 41)
		p.pdf.CellFormat(w, 5, p.tr(c[1]), "", 0, "L", false, 0, "")
	}
	p.cur.moveTo(y + 13)
}

func (p *page) parties() {
	const gap = 6.0
	boxW := (contentW - gap) / 2
	bill, ship := partyLines(p.inv.BillTo), partyLines(p.inv.ShipTo)
	boxH := 10 + float64(max(len(bill), len(ship), 1))*lineH
	p.cur.ensure(boxH)
	y := p.cur.y()

	for i, box := range []struct {
		heading string
		lines   []string
	}{{"BILL TO", bill}, {"SHIP TO", ship}} {
		x := margin + float64(i)*(boxW+gap)
		p.pdf.SetDrawColor(210, 210, 210)
		p.pdf.SetFillColor(248, 249, 250)
		p.pdf.Rect(x, y, boxW, boxH, "FD")
		p.pdf.SetXY(x+3, y+2)
		p.font("B", 8)
		p.pdf.SetTextColor(120, 120, 120)
		p.pdf.CellFormat(boxW-6, 5, box.heading, "", 0, "L", false, 0, "")
		p.pdf.SetTextColor(33, 37, 41)
		for j, l := range box.lines {
			style := ""
			if j == 0 {
				style = "B"
			}
			p.font(style, 9)
			p.pdf.SetXY(x+3, y+8+float64(j)*lineH)
			p.pdf.CellFormat(boxW-6, lineH, p.tr(l), "", 0, "L", false, 0, "")
		}
	}
	p.cur.moveTo(y + boxH + 8)
}

func partyLines(party invoice.Party) []string {
	if party.Empty() {
		return []string{"-"}
	}
	out := make([]string, 0, len(party.Lines)+3)
	for _, l := range append([]string{party.Name}, party.Lines...) {
		if l != "" {
			out = append(out, l)
		}
	}
	for _, l := range []string{party.Email, party.Phone} {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func (p *page) tableHeader() {
	p.pdf.SetFillColor(33, 37, 41)
	p.pdf.SetTextColor(255, 255, 255)
	p.font("B", 9)
	p.pdf.SetX(margin)
	for _, col := range columns {
		p.pdf.CellFormat(col.width, 8, col.title, "", 0, col.align, true, 0, "")
	}
	p.pdf.Ln(8)
	p.pdf.SetTextColor(33, 37, 41)
}

func (p *page) lineItems() {
	p.cur.ensure(8 + rowH)
	p.tableHeader()
	p.cur.onNewPage = p.tableHeader
	defer func() { p.cur.onNewPage = nil }()

	for i, line := range p.inv.Lines {
		p.cur.ensure(rowH)
		y := p.cur.y()
		if i%2 == 1 {
			p.pdf.SetFillColor(244, 246, 248)
			p.pdf.Rect(margin, y, contentW, rowH, "F")
		}
		p.thumbnail(line, margin+(columns[0].width-thumbSize)/2, y+(rowH-thumbSize)/2)

		x := margin + columns[0].width
		p.font("B", 9)
		p.pdf.SetXY(x+1, y+2.5)
		p.pdf.CellFormat(columns[1].width-2, 5, p.tr(fit(p.pdf, line.Title, columns[1].width-2)), "", 0, "L", false, 0, "")
		if detail := lineDetail(line); detail != "" {
			p.font("", 7.5)
			p.pdf.SetTextColor(110, 110, 110)
			p.pdf.SetXY(x+1, y+8)
			p.pdf.CellFormat(columns[1].width-2, 4, p.tr(fit(p.pdf, detail, columns[1].width-2)), "", 0, "L", false, 0, "")
			p.pdf.SetTextColor(33, 37, 41)
		}

		p.font("", 9)
		x += columns[1].width
		values := []string{
			strconv.Itoa(line.Quantity),
			invoice.FormatMoney(line.UnitPrice, p.inv.Currency),
			invoice.FormatMoney(line.Amount, p.inv.Currency),
		}
		for j, v := range values {
			col := columns[j+2]
			p.pdf.SetXY(x, y)
			p.pdf.CellFormat(col.width, rowH, p.tr(v), "", 0, col.align, false, 0, "")
			x += col.width
		}
		p.cur.moveTo(y + rowH)
	}
	p.pdf.SetDrawColor(210, 210, 210)
	p.pdf.Line(margin, p.cur.y(), margin+contentW, p.cur.y())
	p.cur.advance(4)
}

func lineDetail(l invoice.Line) string {
	parts := make([]string, 0, 2)
	if l.Variant != "" {
		parts = append(parts, l.Variant)
	}
	if l.SKU != "" {
		parts = append(parts, "SKU "+l.SKU)
	}
	return strings.Join(parts, " · ")
}

func (p *page) thumbnail(line invoice.Line, x, y float64) {
	if registerFile(p.pdf, line.ImagePath) {
		p.pdf.ImageOptions(line.ImagePath, x, y, thumbSize, thumbSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		return
	}
	p.pdf.SetDrawColor(200, 200, 200)
	p.pdf.SetFillColor(233, 236, 239)
	p.pdf.Rect(x, y, thumbSize, thumbSize, "FD")
	p.pdf.Line(x, y, x+thumbSize, y+thumbSize)
	p.pdf.Line(x+thumbSize, y, x, y+thumbSize)
}

// fit truncates s with an ellipsis to the given width in the current font.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func (p *page) totals() {
	rows := p.inv.Totals.Rows(p.inv.Currency)
	const labelW, valueW = 45.0, 35.0
	x := margin + contentW - labelW - valueW
	p.cur.ensure(float64(len(rows))*6 + 4)
	for _, row := range rows {
		if row.Bold {
			p.pdf.SetDrawColor(33, 37, 41)
			p.pdf.Line(x, p.cur.y()+0.5, margin+contentW, p.cur.y()+0.5)
			p.cur.advance(1.5)
			p.font("B", 11)
		} else {
			p.font("", 9.5)
		}
		p.pdf.SetX(x)
		p.pdf.CellFormat(labelW, 6, p.tr(row.Label), "", 0, "L", false, 0, "")
		p.pdf.CellFormat(valueW, 6, p.tr(row.Value), "", 1, "R", false, 0, "")
	}
	p.cur.advance(6)
}

func (p *page) notes() {
	p.cur.ensure(12)
	p.font("B", 10)
	p.pdf.CellFormat(contentW, 6, "Notes", "", 1, "L", false, 0, "")
	p.font("", 9)
	for _, note := range p.inv.Notes {
		lines := p.pdf.SplitText(p.tr(note), contentW-6)
		for i, l := range lines {
			p.cur.ensure(lineH)
			p.pdf.SetX(margin)
			bullet := ""
			if i == 0 {
				bullet = p.tr("•")
			}
			p.pdf.CellFormat(6, lineH, bullet, "", 0, "C", false, 0, "")
			p.pdf.CellFormat(contentW-6, lineH, l, "", 1, "L", false, 0, "")
		}
	}

	s := p.inv.Signoff
	if s.Name == "" && s.Message == "" {
		p.cur.advance(4)
		return
	}
	p.cur.ensure(22)
	p.cur.advance(4)
	if s.Message != "" {
		p.font("I", 9.5)
		for _, l := range p.pdf.SplitText(p.tr(s.Message), contentW) {
			p.pdf.CellFormat(contentW, lineH, l, "", 1, "L", false, 0, "")
		}
		p.cur.advance(2)
	}
	if s.Name != "" {
		p.font("B", 10)
		p.pdf.CellFormat(contentW, lineH, p.tr(s.Name), "", 1, "L", false, 0, "")
	}
	if s.Title != "" {
		p.font("", 8.5)
		p.pdf.CellFormat(contentW, 4, p.tr(s.Title), "", 1, "L", false, 0, "")
	}
	p.cur.advance(4)
}

func (p *page) checkout(logger *slog.Logger) {
	if p.inv.CheckoutURL == "" {
		return
	}
	const size = 32.0
	name, err := registerQR(p.pdf, p.inv.CheckoutURL)
	if err != nil {
		logger.Warn("qr code skipped", slog.String("invoice", p.inv.Number), slog.Any("error", err))
		return
	}
	p.cur.ensure(size + 4)
	y := p.cur.y()
	p.pdf.ImageOptions(name, margin, y, size, size, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	p.pdf.SetXY(margin+size+4, y+8)
	p.font("B", 10)
	p.pdf.CellFormat(contentW-size-4, 5, "Ready to order?", "", 2, "L", false, 0, "")
	p.font("", 8.5)
	p.pdf.SetX(margin + size + 4)
	p.pdf.CellFormat(contentW-size-4, 5, "Scan the code or visit:", "", 2, "L", false, 0, "")
	p.pdf.SetX(margin + size + 4)
	p.pdf.SetTextColor(13, 110, 253)
	p.pdf.CellFormat(contentW-size-4, 5, p.tr(fit(p.pdf, p.inv.CheckoutURL, contentW-size-4)), "", 0, "L", false, 0, p.inv.CheckoutURL)
	p.pdf.SetTextColor(33, 37, 41)
	p.cur.moveTo(y + size + 4)
}

func (p *page) paymentStrip(brands []string) {
	if len(brands) == 0 {
		return
	}
	p.cur.ensure(12)
	p.font("", 7)
	p.pdf.SetTextColor(120, 120, 120)
	p.pdf.CellFormat(contentW, 4, "We accept", "", 1, "L", false, 0, "")
	p.font("B", 7.5)
	p.pdf.SetTextColor(60, 60, 60)
	p.pdf.SetDrawColor(190, 190, 190)
	x := margin
	y := p.cur.y()
	for _, b := range brands {
		w := p.pdf.GetStringWidth(b) + 6
		if x+w > margin+contentW {
			break
		}
		p.pdf.RoundedRect(x, y, w, 6, 1.2, "1234", "D")
		p.pdf.SetXY(x, y)
		p.pdf.CellFormat(w, 6, p.tr(b), "", 0, "C", false, 0, "")
		x += w + 2
	}
	p.cur.moveTo(y + 8)
	p.pdf.SetTextColor(33, 37, 41)
}

func (p *page) footer() {
	c := p.inv.Company
	_, pageH := p.pdf.GetPageSize()
	y := pageH - margin - footerH + 4
	p.pdf.SetDrawColor(220, 220, 220)
	p.pdf.Line(margin, y, margin+contentW, y)

	contact := make([]string, 0, 4)
	for _, s := range []string{c.Name, c.Email, c.Phone, c.Website} {
		if s != "" {
			contact = append(contact, s)
		}
	}
	p.font("", 7.5)
	p.pdf.SetTextColor(120, 120, 120)
	p.pdf.SetXY(margin, y+2)
	p.pdf.CellFormat(contentW-25, 4, p.tr(strings.Join(contact, "  |  ")), "", 0, "L", false, 0, "")
	p.pdf.CellFormat(25, 4, fmt.Sprintf("Page %d/{nb}", p.pdf.PageNo()), "", 0, "R", false, 0, "")
	p.pdf.SetTextColor(33, 37, 41)
}

// issuedAt keeps zero dates out of the document metadata.
func issuedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
