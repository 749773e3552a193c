package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/draftdesk/draftdesk/internal/app"
	"github.com/draftdesk/draftdesk/internal/catalog"
	"github.com/draftdesk/draftdesk/internal/invoice"
	"github.com/draftdesk/draftdesk/internal/invoice/htmlpdf"
	"github.com/draftdesk/draftdesk/internal/invoice/pdf"
	"github.com/draftdesk/draftdesk/internal/mailer"
	"github.com/draftdesk/draftdesk/internal/observability"
	"github.com/draftdesk/draftdesk/internal/quotes"
	"github.com/draftdesk/draftdesk/internal/webhooks"
	"github.com/draftdesk/draftdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	platform, err := app.NewPlatform(ctx, cfg, metrics, logger)
	if err != nil {
		logger.Error("init platform", slog.Any("error", err))
		os.Exit(1)
	}
	defer platform.Close()

	store, err := invoice.NewStore(cfg.InvoiceDir)
	if err != nil {
		logger.Error("init invoice store", slog.Any("error", err))
		os.Exit(1)
	}

	company := cfg.Company()
	if cfg.CompanyLogoURL != "" {
		logoCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		path, err := platform.Assets.FetchLogo(logoCtx, cfg.CompanyLogoURL)
		cancel()
		if err != nil {
			logger.Warn("fetch company logo", slog.Any("error", err))
		} else {
			company.LogoPath = path
		}
	}

	tax, err := cfg.Tax()
	if err != nil {
		logger.Error("tax policy", slog.Any("error", err))
		os.Exit(1)
	}
	builder := invoice.NewBuilder(invoice.BuilderConfig{
		Company:         company,
		Signoff:         cfg.Signoff(),
		CheckoutBaseURL: cfg.CheckoutBaseURL,
		Tax:             tax,
		Validity:        cfg.InvoiceValidity,
		Images:          platform.Shopify,
		Cache:           platform.Assets,
		Logger:          logger.With(slog.String("component", "invoice")),
	})

	renderer, err := newRenderer(cfg, logger)
	if err != nil {
		logger.Error("init invoice renderer", slog.Any("error", err))
		os.Exit(1)
	}

	drafter, err := newDrafter(cfg, logger)
	if err != nil {
		logger.Error("init email drafter", slog.Any("error", err))
		os.Exit(1)
	}

	quoteService := quotes.NewService(quotes.Config{
		Platform:        platform.Shopify,
		Builder:         builder,
		Renderer:        renderer,
		Store:           store,
		Drafter:         drafter,
		Recorder:        metrics,
		Logger:          logger.With(slog.String("component", "quotes")),
		PublicBaseURL:   cfg.PublicBaseURL,
		Company:         company,
		Signoff:         cfg.Signoff(),
		CheckoutBaseURL: cfg.CheckoutBaseURL,
		Validity:        cfg.InvoiceValidity,
	})

	var deliveries webhooks.DeliveryStore = webhooks.NewMemoryDeliveries(webhooks.DefaultDeliveryTTL, nil)
	if platform.Redis != nil {
		deliveries = webhooks.NewRedisDeliveries(platform.Redis, "draftdesk:webhook:", webhooks.DefaultDeliveryTTL)
	}
	if cfg.ShopifyWebhookSecret == "" {
		logger.Warn("SHOPIFY_WEBHOOK_SECRET not set, webhook deliveries will be rejected")
	}
	webhookService := webhooks.NewService(platform.Shopify, cfg.PublicBaseURL, logger)
	receiver := webhooks.NewReceiver(cfg.ShopifyWebhookSecret, deliveries, metrics, logger.With(slog.String("component", "webhooks")))

	var (
		queue     catalog.Enqueuer
		inspector jobs.QueueInspector
	)
	if platform.Redis != nil {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		jobClient := jobs.NewClient(redisOpts)
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		asynqInspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := asynqInspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		queue, inspector = jobClient, asynqInspector
	}

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Metrics:         metrics,
		QuotesHandler:   quotes.NewHandler(logger, quoteService),
		InvoiceHandler:  invoice.NewHandler(logger, store),
		WebhooksHandler: webhooks.NewHandler(logger, webhookService, receiver),
		CatalogHandler:  catalog.NewHandler(logger, platform.Shopify, platform.Shopify, queue),
		JobHandler:      jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("renderer", cfg.InvoiceRenderer))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func newRenderer(cfg *app.Config, logger *slog.Logger) (invoice.Renderer, error) {
	if cfg.InvoiceRenderer == "gotenberg" {
		client := htmlpdf.NewClient(cfg.GotenbergURL, nil)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx); err != nil {
			logger.Warn("gotenberg not reachable yet", slog.String("url", cfg.GotenbergURL), slog.Any("error", err))
		}
		renderer, err := htmlpdf.NewRenderer(client, cfg.PaymentBrands)
		if err != nil {
			return nil, err
		}
		return renderer, nil
	}
	return pdf.New(pdf.Options{
		PaymentBrands: cfg.PaymentBrands,
		Logger:        logger.With(slog.String("component", "pdf")),
	}), nil
}

func newDrafter(cfg *app.Config, logger *slog.Logger) (mailer.Drafter, error) {
	fallback := mailer.NewTemplateDrafter()
	if cfg.EmailDrafter != "generative" {
		return fallback, nil
	}
	llm, err := openai.New(
		openai.WithModel(cfg.OpenAIModel),
		openai.WithToken(cfg.OpenAIAPIKey),
	)
	if err != nil {
		return nil, err
	}
	var transcripts mailer.TranscriptSource
	if voice := mailer.NewVoiceClient(cfg.VoiceAPIURL, cfg.VoiceAPIKey, nil); voice != nil {
		transcripts = voice
	}
	generative, err := mailer.NewGenerativeDrafter(llm, transcripts, logger.With(slog.String("component", "mailer")))
	if err != nil {
		return nil, err
	}
	return mailer.WithFallback(generative, fallback, logger), nil
}
