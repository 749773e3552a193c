// Package quotes lists quotes and turns them into invoices.
package quotes

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/draftdesk/draftdesk/internal/invoice"
	"github.com/draftdesk/draftdesk/internal/mailer"
	"github.com/draftdesk/draftdesk/internal/platform/httpx"
	"github.com/draftdesk/draftdesk/internal/shopify"
)

// Platform is the subset of the remote client the service needs.
type Platform interface {
	ListDraftOrders(ctx context.Context, opts shopify.ListDraftOrdersOptions) ([]shopify.DraftOrder, error)
	GetDraftOrder(ctx context.Context, id int64) (shopify.DraftOrder, error)
	CreateDraftOrder(ctx context.Context, in shopify.NewDraftOrder) (shopify.DraftOrder, error)
	CompleteDraftOrder(ctx context.Context, id int64, paymentPending bool) (shopify.DraftOrder, error)
	SendDraftOrderInvoice(ctx context.Context, id int64, email shopify.InvoiceEmail) error
	SetMetafield(ctx context.Context, owner string, ownerID int64, m shopify.Metafield) (shopify.Metafield, error)
	CountDraftOrders(ctx context.Context, status shopify.DraftOrderStatus) (int, error)
	CountOrders(ctx context.Context) (int, error)
}

// InvoiceBuilder derives invoices from quotes.
type InvoiceBuilder interface {
	Build(ctx context.Context, q shopify.DraftOrder) (invoice.Invoice, error)
}

// InvoiceStore persists rendered invoices.
type InvoiceStore interface {
	Exists(number string) bool
	Save(number string, pdf []byte) error
	List() ([]invoice.Entry, error)
}

// Recorder counts conversion outcomes.
type Recorder interface {
	InvoiceConverted(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) InvoiceConverted(string) {}

// Config wires a Service.
type Config struct {
	Platform Platform
	Builder  InvoiceBuilder
	Renderer invoice.Renderer
	Store    InvoiceStore
	Drafter  mailer.Drafter
	Recorder Recorder
	Logger   *slog.Logger
	// PublicBaseURL prefixes invoice download links.
	PublicBaseURL string
	Company       invoice.Company
	Signoff       invoice.Signoff
	// CheckoutBaseURL feeds the checkout link of drafted emails.
	CheckoutBaseURL string
	// Validity is the quote validity stated in drafted emails.
	Validity time.Duration
	Now      func() time.Time
}

type Service struct {
	cfg      Config
	validate *validator.Validate
}

func NewService(cfg Config) *Service {
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Drafter == nil {
		cfg.Drafter = mailer.NewTemplateDrafter()
	}
	if cfg.Validity <= 0 {
		cfg.Validity = invoice.DefaultValidity
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &Service{cfg: cfg, validate: validator.New()}
}

// Quote is a draft order plus its local invoice state.
type Quote struct {
	shopify.DraftOrder
	InvoiceNumber string `json:"invoice_number"`
	HasInvoice    bool   `json:"has_invoice"`
	DownloadURL   string `json:"download_url,omitempty"`
}

func (s *Service) view(q shopify.DraftOrder) Quote {
	number := invoice.NumberFor(q.ID)
	v := Quote{DraftOrder: q, InvoiceNumber: number, HasInvoice: s.cfg.Store.Exists(number)}
	if v.HasInvoice {
		v.DownloadURL = s.downloadURL(number)
	}
	return v
}

func (s *Service) downloadURL(number string) string {
	return s.cfg.PublicBaseURL + "/api/invoices/" + number
}

// ListParams filters List.
type ListParams struct {
	Status shopify.DraftOrderStatus
	Limit  int
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Quote, error) {
	if params.Status != "" && !params.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, params.Status)
	}
	if params.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", httpx.ErrValidation)
	}
	orders, err := s.cfg.Platform.ListDraftOrders(ctx, shopify.ListDraftOrdersOptions{Status: params.Status, Limit: params.Limit})
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	out := make([]Quote, 0, len(orders))
	for _, o := range orders {
		out = append(out, s.view(o))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Quote, error) {
	q, err := s.cfg.Platform.GetDraftOrder(ctx, id)
	if err != nil {
		return Quote{}, fmt.Errorf("get quote %d: %w", id, err)
	}
	return s.view(q), nil
}

func (s *Service) Create(ctx context.Context, req CreateQuoteRequest) (Quote, error) {
	if err := s.validate.Struct(req); err != nil {
		return Quote{}, err
	}
	in := shopify.NewDraftOrder{
		CustomerID: req.CustomerID,
		Email:      req.Email,
		Note:       req.Note,
		Tags:       req.Tags,
	}
	for _, l := range req.Lines {
		in.LineItems = append(in.LineItems, shopify.NewLineItem{
			VariantID: l.VariantID,
			Title:     l.Title,
			Price:     l.Price,
			Quantity:  l.Quantity,
		})
	}
	if req.Shipping != "" {
		price, err := decimal.NewFromString(req.Shipping)
		if err != nil {
			return Quote{}, fmt.Errorf("%w: shipping: %v", httpx.ErrValidation, err)
		}
		title := req.ShippingName
		if title == "" {
			title = "Shipping"
		}
		in.ShippingLine = &shopify.ShippingLine{Title: title, Price: price}
	}
	if req.Discount != "" {
		amount, err := decimal.NewFromString(req.Discount)
		if err != nil {
			return Quote{}, fmt.Errorf("%w: discount: %v", httpx.ErrValidation, err)
		}
		if amount.IsPositive() {
			in.AppliedDiscount = &shopify.AppliedDiscount{Title: "Discount", ValueType: "fixed_amount", Value: amount, Amount: amount}
		}
	}

	q, err := s.cfg.Platform.CreateDraftOrder(ctx, in)
	if err != nil {
		return Quote{}, fmt.Errorf("create quote: %w", err)
	}
	s.cfg.Logger.Info("quote created", slog.Int64("quote_id", q.ID), slog.String("name", q.Name))
	return s.view(q), nil
}

// DraftEmail writes a follow-up email for a quote.
func (s *Service) DraftEmail(ctx context.Context, id int64, req EmailDraftRequest) (mailer.Email, error) {
	if err := s.validate.Struct(req); err != nil {
		return mailer.Email{}, err
	}
	q, err := s.cfg.Platform.GetDraftOrder(ctx, id)
	if err != nil {
		return mailer.Email{}, fmt.Errorf("get quote %d: %w", id, err)
	}

	number := invoice.NumberFor(q.ID)
	in := mailer.DraftInput{
		QuoteName:     q.Name,
		CustomerName:  q.Customer.FullName(),
		CustomerEmail: q.Email,
		InvoiceNumber: number,
		CheckoutURL:   invoice.CheckoutURL(s.cfg.CheckoutBaseURL, q.Number()),
		Total:         invoice.FormatMoney(q.TotalPrice, q.Currency),
		ValidUntil:    s.cfg.Now().Add(s.cfg.Validity).Format("January 2, 2006"),
		CompanyName:   s.cfg.Company.Name,
		SenderName:    s.cfg.Signoff.Name,
		Tone:          req.Tone,
		CallID:        req.CallID,
		Context:       req.Context,
	}
	if in.CustomerEmail == "" && q.Customer != nil {
		in.CustomerEmail = q.Customer.Email
	}
	if s.cfg.Store.Exists(number) {
		in.InvoiceURL = s.downloadURL(number)
	}
	for _, li := range q.LineItems {
		in.Items = append(in.Items, fmt.Sprintf("%d x %s", li.Quantity, li.Title))
	}
	return s.cfg.Drafter.Draft(ctx, in)
}
