package quotes

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"

	"github.com/draftdesk/draftdesk/internal/invoice"
	"github.com/draftdesk/draftdesk/internal/mailer"
	"github.com/draftdesk/draftdesk/internal/platform/httpx"
	"github.com/draftdesk/draftdesk/internal/shopify"
)

type fakePlatform struct {
	mu          sync.Mutex
	quotes      map[int64]shopify.DraftOrder
	created     []shopify.NewDraftOrder
	completed   []int64
	invoiced    []shopify.InvoiceEmail
	metafields  []shopify.Metafield
	completeErr error
	sendErr     error
	metaErr     error
	countErr    error
	counts      map[shopify.DraftOrderStatus]int
	orders      int
	// afterGet runs once a quote has been fetched.
	afterGet func(id int64)
}

func newFakePlatform(quotes ...shopify.DraftOrder) *fakePlatform {
	p := &fakePlatform{quotes: map[int64]shopify.DraftOrder{}, counts: map[shopify.DraftOrderStatus]int{}}
	for _, q := range quotes {
		p.quotes[q.ID] = q
	}
	return p
}

func (p *fakePlatform) ListDraftOrders(_ context.Context, opts shopify.ListDraftOrdersOptions) ([]shopify.DraftOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shopify.DraftOrder
	for _, q := range p.quotes {
		if opts.Status == "" || opts.Status == shopify.StatusAny || q.Status == opts.Status {
			out = append(out, q)
		}
	}
	return out, nil
}

func (p *fakePlatform) GetDraftOrder(_ context.Context, id int64) (shopify.DraftOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q, ok := p.quotes[id]
	if !ok {
		return shopify.DraftOrder{}, &shopify.RemoteAPIError{Op: "get draft order", Status: 404, Message: "Not Found"}
	}
	if p.afterGet != nil {
		p.afterGet(id)
	}
	return q, nil
}

func (p *fakePlatform) CreateDraftOrder(_ context.Context, in shopify.NewDraftOrder) (shopify.DraftOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, in)
	q := shopify.DraftOrder{ID: int64(9000 + len(p.created)), Name: fmt.Sprintf("#D%d", len(p.created)), Status: shopify.StatusOpen}
	p.quotes[q.ID] = q
	return q, nil
}

func (p *fakePlatform) CompleteDraftOrder(_ context.Context, id int64, _ bool) (shopify.DraftOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.completeErr != nil {
		return shopify.DraftOrder{}, p.completeErr
	}
	p.completed = append(p.completed, id)
	q := p.quotes[id]
	q.Status = shopify.StatusCompleted
	p.quotes[id] = q
	return q, nil
}

func (p *fakePlatform) SendDraftOrderInvoice(_ context.Context, _ int64, email shopify.InvoiceEmail) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.invoiced = append(p.invoiced, email)
	return nil
}

func (p *fakePlatform) SetMetafield(_ context.Context, _ string, _ int64, m shopify.Metafield) (shopify.Metafield, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.metaErr != nil {
		return shopify.Metafield{}, p.metaErr
	}
	p.metafields = append(p.metafields, m)
	return m, nil
}

func (p *fakePlatform) CountDraftOrders(_ context.Context, status shopify.DraftOrderStatus) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.countErr != nil {
		return 0, p.countErr
	}
	return p.counts[status], nil
}

func (p *fakePlatform) CountOrders(context.Context) (int, error) {
	return p.orders, nil
}

type fakeBuilder struct{ err error }

func (b fakeBuilder) Build(_ context.Context, q shopify.DraftOrder) (invoice.Invoice, error) {
	if b.err != nil {
		return invoice.Invoice{}, b.err
	}
	if q.ID <= 0 {
		return invoice.Invoice{}, fmt.Errorf("%w: quote id required", httpx.ErrValidation)
	}
	return invoice.Invoice{Number: invoice.NumberFor(q.ID), QuoteName: q.Name}, nil
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *fakeRenderer) Render(_ context.Context, inv invoice.Invoice, w io.Writer) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	_, err := fmt.Fprintf(w, "%%PDF-1.4 %s", inv.Number)
	return err
}

type memoryStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	saveErr error
}

func newMemoryStore() *memoryStore { return &memoryStore{files: map[string][]byte{}} }

func (s *memoryStore) Exists(number string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[number]
	return ok
}

func (s *memoryStore) Save(number string, pdf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.files[number] = append([]byte(nil), pdf...)
	return nil
}

func (s *memoryStore) List() ([]invoice.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]invoice.Entry, 0, len(s.files))
	for number, data := range s.files {
		out = append(out, invoice.Entry{Number: number, Filename: number + ".pdf", Size: int64(len(data))})
	}
	return out, nil
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *countingRecorder) InvoiceConverted(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome]++
}

type capturingDrafter struct{ got mailer.DraftInput }

func (d *capturingDrafter) Draft(_ context.Context, in mailer.DraftInput) (mailer.Email, error) {
	d.got = in
	return mailer.Email{To: in.CustomerEmail, Subject: "Your quote " + in.QuoteName, Text: "hello", Source: mailer.SourceTemplate}, nil
}

func fakeQuote(f *gofakeit.Faker, id int64) shopify.DraftOrder {
	return shopify.DraftOrder{
		ID:         id,
		Name:       fmt.Sprintf("#D%d", id),
		Email:      f.Email(),
		Currency:   "USD",
		Status:     shopify.StatusOpen,
		Customer:   &shopify.Customer{FirstName: f.FirstName(), LastName: f.LastName()},
		TotalPrice: decimal.RequireFromString("219.50"),
		LineItems: []shopify.LineItem{
			{Title: "Walnut Desk", Quantity: 2, Price: decimal.RequireFromString("100.00")},
			{Title: "Cable Tray", Quantity: 1, Price: decimal.RequireFromString("19.50")},
		},
	}
}

type fixture struct {
	platform *fakePlatform
	renderer *fakeRenderer
	store    *memoryStore
	recorder *countingRecorder
	drafter  *capturingDrafter
	service  *Service
}

func newFixture(quotes ...shopify.DraftOrder) *fixture {
	fx := &fixture{
		platform: newFakePlatform(quotes...),
		renderer: &fakeRenderer{},
		store:    newMemoryStore(),
		recorder: &countingRecorder{},
		drafter:  &capturingDrafter{},
	}
	fx.service = NewService(Config{
		Platform:        fx.platform,
		Builder:         fakeBuilder{},
		Renderer:        fx.renderer,
		Store:           fx.store,
		Drafter:         fx.drafter,
		Recorder:        fx.recorder,
		PublicBaseURL:   "https://desk.example.com/",
		Company:         invoice.Company{Name: "Acme Studio"},
		Signoff:         invoice.Signoff{Name: "Dana"},
		CheckoutBaseURL: "https://shop.example.com/pay",
		Validity:        14 * 24 * time.Hour,
		Now:             func() time.Time { return fixedNow },
	})
	return fx
}

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
