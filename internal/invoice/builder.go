package invoice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/draftdesk/draftdesk/internal/platform/httpx"
	"github.com/draftdesk/draftdesk/internal/shopify"
)

// DefaultValidity is how long a quote stays valid after issue.
const DefaultValidity = 30 * 24 * time.Hour

// ImageResolver finds a product image when the line item carries none.
type ImageResolver interface {
	ProductImageURL(ctx context.Context, productID int64) (string, error)
}

// ImageCache downloads product images to local files.
type ImageCache interface {
	Fetch(ctx context.Context, productID int64, src string) (string, error)
}

// BuilderConfig configures a Builder.
type BuilderConfig struct {
	Company         Company
	Signoff         Signoff
	CheckoutBaseURL string
	Tax             TaxPolicy
	Validity        time.Duration
	Images          ImageResolver
	Cache           ImageCache
	Logger          *slog.Logger
	Now             func() time.Time
}

// Builder turns quotes into invoices.
type Builder struct {
	cfg BuilderConfig
}

// NewBuilder fills defaults.
func NewBuilder(cfg BuilderConfig) *Builder {
	if cfg.Validity <= 0 {
		cfg.Validity = DefaultValidity
	}
	if cfg.Tax.Mode == "" {
		cfg.Tax.Mode = TaxRemote
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Builder{cfg: cfg}
}

// Build derives an invoice from q. Image lookups and downloads degrade to
// an empty path; every other problem with the quote is an error.
func (b *Builder) Build(ctx context.Context, q shopify.DraftOrder) (Invoice, error) {
	if q.ID <= 0 {
		return Invoice{}, fmt.Errorf("%w: quote id missing", httpx.ErrValidation)
	}
	lines := make([]Line, 0, len(q.LineItems))
	for i, item := range q.LineItems {
		if item.Quantity <= 0 {
			return Invoice{}, fmt.Errorf("%w: line %d of quote %d has quantity %d", httpx.ErrValidation, i+1, q.ID, item.Quantity)
		}
		line := Line{
			Title:     item.Title,
			Variant:   item.VariantTitle,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			Amount:    item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
		if item.ProductID != nil {
			line.ProductID = *item.ProductID
			line.ImagePath = b.image(ctx, line.ProductID, item.ImageURL)
		}
		lines = append(lines, line)
	}

	issued := b.cfg.Now()
	inv := Invoice{
		Number:      NumberFor(q.ID),
		QuoteID:     q.ID,
		QuoteName:   q.Name,
		Currency:    strings.ToUpper(q.Currency),
		IssuedAt:    issued,
		ValidUntil:  issued.Add(b.cfg.Validity),
		Company:     b.cfg.Company,
		BillTo:      billTo(q),
		ShipTo:      shipTo(q),
		Lines:       lines,
		Totals:      ComputeTotals(q, lines, b.cfg.Tax),
		Signoff:     b.cfg.Signoff,
		CheckoutURL: CheckoutURL(b.cfg.CheckoutBaseURL, q.Number()),
	}
	inv.Notes = notes(inv, q.Note)
	return inv, nil
}

func (b *Builder) image(ctx context.Context, productID int64, src string) string {
	log := b.cfg.Logger.With(slog.Int64("product_id", productID))
	if src == "" && b.cfg.Images != nil {
		resolved, err := b.cfg.Images.ProductImageURL(ctx, productID)
		if err != nil {
			log.Warn("product image lookup failed", slog.Any("error", err))
			return ""
		}
		src = resolved
	}
	if src == "" || b.cfg.Cache == nil {
		return ""
	}
	path, err := b.cfg.Cache.Fetch(ctx, productID, src)
	if err != nil {
		log.Warn("product image download failed", slog.Any("error", err))
		return ""
	}
	return path
}

// CheckoutURL builds the deterministic link encoded in the QR code.
func CheckoutURL(base, quoteNumber string) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return base + "?quote=" + url.QueryEscape(quoteNumber)
	}
	query := u.Query()
	query.Set("quote", quoteNumber)
	u.RawQuery = query.Encode()
	return u.String()
}

func billTo(q shopify.DraftOrder) Party {
	p := Party{Email: q.Email}
	if q.Customer != nil {
		p.Name = q.Customer.FullName()
		p.Phone = q.Customer.Phone
		if p.Email == "" {
			p.Email = q.Customer.Email
		}
	}
	if q.BillingAddress != nil {
		if p.Name == "" {
			p.Name = q.BillingAddress.FullName()
		}
		if p.Phone == "" {
			p.Phone = q.BillingAddress.Phone
		}
		p.Lines = q.BillingAddress.Lines()
	}
	return p
}

func shipTo(q shopify.DraftOrder) Party {
	a := q.ShippingAddress
	if a == nil {
		return billTo(q)
	}
	return Party{Name: a.FullName(), Phone: a.Phone, Lines: a.Lines()}
}

func notes(inv Invoice, quoteNote string) []string {
	out := []string{
		fmt.Sprintf("This quote is valid until %s.", inv.ValidUntil.Format("January 2, 2006")),
		fmt.Sprintf("All prices are in %s.", inv.Currency),
		"Lead times are confirmed once the order is placed.",
	}
	if inv.CheckoutURL != "" {
		out = append(out, "Scan the QR code to review and complete your order online.")
	}
	if n := strings.TrimSpace(quoteNote); n != "" {
		out = append(out, n)
	}
	return out
}
