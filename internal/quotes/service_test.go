package quotes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftdesk/draftdesk/internal/mailer"
	"github.com/draftdesk/draftdesk/internal/platform/httpx"
	"github.com/draftdesk/draftdesk/internal/shopify"
)

func TestConvertRendersAndReuses(t *testing.T) {
	fx := newFixture(fakeQuote(gofakeit.New(1), 42))
	ctx := context.Background()

	first, err := fx.service.Convert(ctx, 42, ConvertRequest{})
	require.NoError(t, err)
	assert.Equal(t, "INV-42", first.InvoiceNumber)
	assert.Equal(t, "https://desk.example.com/api/invoices/INV-42", first.DownloadURL)
	assert.False(t, first.Reused)
	assert.False(t, first.Completed.Attempted)
	assert.False(t, first.EmailSent.Attempted)
	assert.True(t, fx.store.Exists("INV-42"))

	second, err := fx.service.Convert(ctx, 42, ConvertRequest{})
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.Equal(t, 1, fx.renderer.calls)

	_, err = fx.service.Convert(ctx, 42, ConvertRequest{Regenerate: true})
	require.NoError(t, err)
	assert.Equal(t, 2, fx.renderer.calls)

	assert.Equal(t, map[string]int{OutcomeRendered: 2, OutcomeReused: 1}, fx.recorder.outcomes)
	require.Len(t, fx.platform.metafields, 3)
	assert.Equal(t, "invoice_number", fx.platform.metafields[0].Key)
	assert.Equal(t, "INV-42", fx.platform.metafields[0].Value)
}

func TestConvertFollowUps(t *testing.T) {
	fx := newFixture(fakeQuote(gofakeit.New(2), 7))

	res, err := fx.service.Convert(context.Background(), 7, ConvertRequest{
		CompleteOrder: true,
		SendEmail:     true,
		Email:         &EmailFields{Subject: "Your invoice", Message: "Thanks!"},
	})
	require.NoError(t, err)
	assert.Equal(t, StepOutcome{Attempted: true, OK: true}, res.Completed)
	assert.Equal(t, StepOutcome{Attempted: true, OK: true}, res.EmailSent)
	assert.Equal(t, []int64{7}, fx.platform.completed)
	require.Len(t, fx.platform.invoiced, 1)
	assert.Equal(t, "Your invoice", fx.platform.invoiced[0].Subject)
	assert.Equal(t, "Thanks!", fx.platform.invoiced[0].CustomMessage)
}

func TestConvertFollowUpFailuresKeepInvoice(t *testing.T) {
	fx := newFixture(fakeQuote(gofakeit.New(3), 8))
	fx.platform.completeErr = errors.New("shopify: 422 order is not payable")
	fx.platform.sendErr = errors.New("shopify: 422 email is invalid")
	fx.platform.metaErr = errors.New("metafield quota exceeded")

	res, err := fx.service.Convert(context.Background(), 8, ConvertRequest{CompleteOrder: true, SendEmail: true})
	require.NoError(t, err)
	assert.True(t, res.Completed.Attempted)
	assert.False(t, res.Completed.OK)
	assert.Contains(t, res.Completed.Error, "not payable")
	assert.False(t, res.EmailSent.OK)
	assert.Contains(t, res.EmailSent.Error, "email is invalid")
	assert.True(t, fx.store.Exists("INV-8"))
}

func TestConvertSkipsCompletingCompletedQuote(t *testing.T) {
	q := fakeQuote(gofakeit.New(4), 9)
	q.Status = shopify.StatusCompleted
	fx := newFixture(q)

	res, err := fx.service.Convert(context.Background(), 9, ConvertRequest{CompleteOrder: true})
	require.NoError(t, err)
	assert.True(t, res.Completed.OK)
	assert.Empty(t, fx.platform.completed)
}

func TestConvertEmailWithoutRecipient(t *testing.T) {
	q := fakeQuote(gofakeit.New(5), 10)
	q.Email = ""
	q.Customer = nil
	fx := newFixture(q)

	res, err := fx.service.Convert(context.Background(), 10, ConvertRequest{SendEmail: true})
	require.NoError(t, err)
	assert.False(t, res.EmailSent.OK)
	assert.Equal(t, "quote has no customer email", res.EmailSent.Error)
	assert.Empty(t, fx.platform.invoiced)
}

func TestConvertErrors(t *testing.T) {
	t.Run("missing quote", func(t *testing.T) {
		fx := newFixture()
		_, err := fx.service.Convert(context.Background(), 404, ConvertRequest{})
		require.Error(t, err)
		assert.ErrorIs(t, err, httpx.ErrNotFound)
		assert.Equal(t, 1, fx.recorder.outcomes[OutcomeFailed])
	})

	t.Run("render failure", func(t *testing.T) {
		fx := newFixture(fakeQuote(gofakeit.New(6), 11))
		fx.renderer.err = errors.New("font missing")
		_, err := fx.service.Convert(context.Background(), 11, ConvertRequest{})
		require.ErrorContains(t, err, "render invoice INV-11")
		assert.False(t, fx.store.Exists("INV-11"))
		assert.Empty(t, fx.platform.metafields)
	})

	t.Run("save failure", func(t *testing.T) {
		fx := newFixture(fakeQuote(gofakeit.New(7), 12))
		fx.store.saveErr = errors.New("disk full")
		_, err := fx.service.Convert(context.Background(), 12, ConvertRequest{})
		require.ErrorContains(t, err, "save invoice INV-12")
	})

	t.Run("invalid email fields", func(t *testing.T) {
		fx := newFixture(fakeQuote(gofakeit.New(8), 13))
		_, err := fx.service.Convert(context.Background(), 13, ConvertRequest{Email: &EmailFields{To: "not-an-email"}})
		require.Error(t, err)
		assert.Zero(t, fx.renderer.calls)
	})
}

func TestBatchConvertIsolatesFailures(t *testing.T) {
	f := gofakeit.New(9)
	fx := newFixture(fakeQuote(f, 1), fakeQuote(f, 3))

	res, err := fx.service.BatchConvert(context.Background(), []string{"1", "abc", "2", "gid://shopify/DraftOrder/3"}, ConvertRequest{})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.BatchID)
	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 2, res.Successful)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Results, 4)

	for _, item := range res.Results {
		assert.True(t, (item.Invoice == nil) != (item.Error == ""), "item %s must carry exactly one of invoice or error", item.QuoteID)
	}
	assert.Equal(t, "INV-1", res.Results[0].Invoice.InvoiceNumber)
	assert.Contains(t, res.Results[1].Error, "invalid id")
	assert.Contains(t, res.Results[2].Error, "get quote 2")
	assert.Equal(t, "INV-3", res.Results[3].Invoice.InvoiceNumber)
}

func TestBatchConvertRequiresIDs(t *testing.T) {
	fx := newFixture()
	_, err := fx.service.BatchConvert(context.Background(), nil, ConvertRequest{})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestBatchConvertStopsOnCanceledContext(t *testing.T) {
	fx := newFixture(fakeQuote(gofakeit.New(10), 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := fx.service.BatchConvert(ctx, []string{"1"}, ConvertRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Processed)
	assert.Equal(t, context.Canceled.Error(), res.Interrupted)
}

func TestListMarksInvoices(t *testing.T) {
	f := gofakeit.New(11)
	fx := newFixture(fakeQuote(f, 20), fakeQuote(f, 21))
	require.NoError(t, fx.store.Save("INV-21", []byte("%PDF-1.4")))

	quotes, err := fx.service.List(context.Background(), ListParams{})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	for _, q := range quotes {
		assert.Equal(t, q.ID == 21, q.HasInvoice)
		if q.HasInvoice {
			assert.Equal(t, "https://desk.example.com/api/invoices/INV-21", q.DownloadURL)
		}
	}

	_, err = fx.service.List(context.Background(), ListParams{Status: "archived"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreate(t *testing.T) {
	fx := newFixture()
	variant := int64(555)

	q, err := fx.service.Create(context.Background(), CreateQuoteRequest{
		CustomerID: 77,
		Shipping:   "25.00",
		Discount:   "10",
		Lines: []CreateQuoteLineRequest{
			{VariantID: &variant, Quantity: 2},
			{Title: "Assembly", Price: "80.00", Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-9001", q.InvoiceNumber)
	require.Len(t, fx.platform.created, 1)

	in := fx.platform.created[0]
	assert.Equal(t, int64(77), in.CustomerID)
	require.NotNil(t, in.ShippingLine)
	assert.Equal(t, "Shipping", in.ShippingLine.Title)
	assert.Equal(t, "25", in.ShippingLine.Price.String())
	require.NotNil(t, in.AppliedDiscount)
	assert.Equal(t, "10", in.AppliedDiscount.Amount.String())
	assert.Len(t, in.LineItems, 2)
}

func TestCreateValidation(t *testing.T) {
	fx := newFixture()
	cases := map[string]CreateQuoteRequest{
		"no lines":        {},
		"zero quantity":   {Lines: []CreateQuoteLineRequest{{Title: "Desk", Price: "10", Quantity: 0}}},
		"custom no title": {Lines: []CreateQuoteLineRequest{{Price: "10", Quantity: 1}}},
		"bad price":       {Lines: []CreateQuoteLineRequest{{Title: "Desk", Price: "ten", Quantity: 1}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fx.service.Create(context.Background(), req)
			require.Error(t, err)
		})
	}
	assert.Empty(t, fx.platform.created)
}

func TestDraftEmail(t *testing.T) {
	q := fakeQuote(gofakeit.New(12), 30)
	fx := newFixture(q)
	require.NoError(t, fx.store.Save("INV-30", []byte("%PDF-1.4")))

	email, err := fx.service.DraftEmail(context.Background(), 30, EmailDraftRequest{Tone: "friendly", CallID: "call-1"})
	require.NoError(t, err)
	assert.Equal(t, "Your quote #D30", email.Subject)

	got := fx.drafter.got
	assert.Equal(t, q.Email, got.CustomerEmail)
	assert.Equal(t, q.Customer.FullName(), got.CustomerName)
	assert.Equal(t, "https://desk.example.com/api/invoices/INV-30", got.InvoiceURL)
	assert.Equal(t, "https://shop.example.com/pay?quote=D30", got.CheckoutURL)
	assert.Contains(t, got.Total, "219.50")
	assert.Equal(t, []string{"2 x Walnut Desk", "1 x Cable Tray"}, got.Items)
	assert.Equal(t, "Acme Studio", got.CompanyName)
	assert.Equal(t, "friendly", got.Tone)
	assert.Equal(t, "call-1", got.CallID)
	assert.Equal(t, "May 15, 2024", got.ValidUntil)
}

func TestDraftEmail_TemplateStatesValidity(t *testing.T) {
	fx := newFixture(fakeQuote(gofakeit.New(13), 31))
	svc := NewService(Config{
		Platform: fx.platform,
		Store:    fx.store,
		Drafter:  mailer.NewTemplateDrafter(),
		Now:      func() time.Time { return fixedNow },
	})

	email, err := svc.DraftEmail(context.Background(), 31, EmailDraftRequest{})
	require.NoError(t, err)
	assert.Contains(t, email.Text, "The quote is valid until May 31, 2024.")
}

func TestStats(t *testing.T) {
	fx := newFixture()
	fx.platform.counts[shopify.StatusOpen] = 4
	fx.platform.counts[shopify.StatusInvoiceSent] = 2
	fx.platform.counts[shopify.StatusCompleted] = 9
	fx.platform.orders = 31
	require.NoError(t, fx.store.Save("INV-1", []byte("x")))

	stats, err := fx.service.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{OpenQuotes: 4, InvoiceSent: 2, CompletedQuotes: 9, Orders: 31, Invoices: 1}, stats)

	fx.platform.countErr = &shopify.RemoteAPIError{Op: "count draft orders", Status: 503}
	_, err = fx.service.Stats(context.Background())
	assert.ErrorIs(t, err, httpx.ErrUpstream)
}
