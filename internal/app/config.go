package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/draftdesk/draftdesk/internal/invoice"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"120s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"110s"`
	AppRateLimit      int           `envconfig:"APP_RATE_LIMIT" default:"120"`
	PublicBaseURL     string        `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	ShopifyStoreDomain   string        `envconfig:"SHOPIFY_STORE_DOMAIN"`
	ShopifyAPIVersion    string        `envconfig:"SHOPIFY_API_VERSION" default:"2024-10"`
	ShopifyAccessToken   string        `envconfig:"SHOPIFY_ACCESS_TOKEN"`
	ShopifyClientID      string        `envconfig:"SHOPIFY_CLIENT_ID"`
	ShopifyClientSecret  string        `envconfig:"SHOPIFY_CLIENT_SECRET"`
	ShopifyWebhookSecret string        `envconfig:"SHOPIFY_WEBHOOK_SECRET"`
	ShopifyHTTPTimeout   time.Duration `envconfig:"SHOPIFY_HTTP_TIMEOUT" default:"30s"`
	ShopifyMaxPages      int           `envconfig:"SHOPIFY_MAX_PAGES" default:"10"`
	CatalogTTL           time.Duration `envconfig:"CATALOG_TTL" default:"5m"`

	RedisAddr         string `envconfig:"REDIS_ADDR"`
	RedisPassword     string `envconfig:"REDIS_PASSWORD"`
	RedisDB           int    `envconfig:"REDIS_DB" default:"0"`
	CatalogWarmupCron string `envconfig:"CATALOG_WARMUP_CRON" default:"*/30 * * * *"`
	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"2"`

	InvoiceDir      string        `envconfig:"INVOICE_DIR" default:"var/invoices"`
	AssetDir        string        `envconfig:"ASSET_DIR" default:"var/assets"`
	InvoiceRenderer string        `envconfig:"INVOICE_RENDERER" default:"native"`
	InvoiceValidity time.Duration `envconfig:"INVOICE_VALIDITY" default:"720h"`
	TaxMode         string        `envconfig:"TAX_MODE" default:"remote"`
	TaxRate         string        `envconfig:"TAX_RATE" default:"0"`
	CheckoutBaseURL string        `envconfig:"CHECKOUT_BASE_URL"`
	PaymentBrands   []string      `envconfig:"PAYMENT_BRANDS" default:"Visa,Mastercard,Amex,PayPal,Bank Transfer"`
	GotenbergURL    string        `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`

	CompanyName    string   `envconfig:"COMPANY_NAME" default:"DraftDesk"`
	CompanyTagline string   `envconfig:"COMPANY_TAGLINE"`
	CompanyAddress []string `envconfig:"COMPANY_ADDRESS"`
	CompanyEmail   string   `envconfig:"COMPANY_EMAIL"`
	CompanyPhone   string   `envconfig:"COMPANY_PHONE"`
	CompanyWebsite string   `envconfig:"COMPANY_WEBSITE"`
	CompanyLogoURL string   `envconfig:"COMPANY_LOGO_URL"`
	SignoffName    string   `envconfig:"SIGNOFF_NAME"`
	SignoffTitle   string   `envconfig:"SIGNOFF_TITLE"`
	SignoffMessage string   `envconfig:"SIGNOFF_MESSAGE" default:"Thank you for your business."`

	EmailDrafter string `envconfig:"EMAIL_DRAFTER" default:"template"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	VoiceAPIURL  string `envconfig:"VOICE_API_URL"`
	VoiceAPIKey  string `envconfig:"VOICE_API_KEY"`
}

// LoadConfig reads .env when present, then the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ShopifyStoreDomain) == "" {
		errs = append(errs, errors.New("SHOPIFY_STORE_DOMAIN must be provided"))
	}
	static := c.ShopifyAccessToken != ""
	exchange := c.ShopifyClientID != "" || c.ShopifyClientSecret != ""
	switch {
	case static && exchange:
		errs = append(errs, errors.New("set either SHOPIFY_ACCESS_TOKEN or SHOPIFY_CLIENT_ID/SHOPIFY_CLIENT_SECRET, not both"))
	case !static && !exchange:
		errs = append(errs, errors.New("SHOPIFY_ACCESS_TOKEN or SHOPIFY_CLIENT_ID/SHOPIFY_CLIENT_SECRET must be provided"))
	case exchange && (c.ShopifyClientID == "" || c.ShopifyClientSecret == ""):
		errs = append(errs, errors.New("SHOPIFY_CLIENT_ID and SHOPIFY_CLIENT_SECRET must be provided together"))
	}
	switch c.InvoiceRenderer {
	case "native", "gotenberg":
	default:
		errs = append(errs, fmt.Errorf("INVOICE_RENDERER %q must be native or gotenberg", c.InvoiceRenderer))
	}
	switch c.EmailDrafter {
	case "template":
	case "generative":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY must be provided for EMAIL_DRAFTER=generative"))
		}
	default:
		errs = append(errs, fmt.Errorf("EMAIL_DRAFTER %q must be template or generative", c.EmailDrafter))
	}
	if _, err := c.Tax(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Tax resolves TAX_MODE and TAX_RATE.
func (c *Config) Tax() (invoice.TaxPolicy, error) {
	mode, err := invoice.ParseTaxMode(c.TaxMode)
	if err != nil {
		return invoice.TaxPolicy{}, err
	}
	policy := invoice.TaxPolicy{Mode: mode}
	if mode == invoice.TaxRate {
		rate, err := decimal.NewFromString(c.TaxRate)
		if err != nil || rate.IsNegative() {
			return invoice.TaxPolicy{}, fmt.Errorf("TAX_RATE %q must be a non-negative number", c.TaxRate)
		}
		policy.Rate = rate
	}
	return policy, nil
}

// Company is the seller printed on invoices.
func (c *Config) Company() invoice.Company {
	return invoice.Company{
		Name:    c.CompanyName,
		Tagline: c.CompanyTagline,
		Address: c.CompanyAddress,
		Email:   c.CompanyEmail,
		Phone:   c.CompanyPhone,
		Website: c.CompanyWebsite,
	}
}

// Signoff closes the invoice notes.
func (c *Config) Signoff() invoice.Signoff {
	return invoice.Signoff{Name: c.SignoffName, Title: c.SignoffTitle, Message: c.SignoffMessage}
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
