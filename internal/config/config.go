package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Environment names accepted by the gateway. Anything else falls back to
// production so a typo never points a live shop at the sandbox.
const (
	EnvProduction = "production"
	EnvSandbox    = "sandbox"
)

var gatewayURLs = map[string]string{
	EnvProduction: "https://checkout.pay.g2a.com/index/gateway",
	EnvSandbox:    "https://checkout.test.pay.g2a.com/index/gateway",
}

var quoteURLs = map[string]string{
	EnvProduction: "https://checkout.pay.g2a.com/index/createQuote",
	EnvSandbox:    "https://checkout.test.pay.g2a.com/index/createQuote",
}

var restBaseURLs = map[string]string{
	EnvProduction: "https://pay.g2a.com/rest",
	EnvSandbox:    "https://www.test.pay.g2a.com/rest",
}

// Config holds application configuration. Read-only after Load.
type Config struct {
	AppName    string
	AppVersion string
	HTTPAddr   string
	LogLevel   string

	// Merchant credentials for the payment provider.
	APIHash       string
	APISecret     string
	MerchantEmail string
	// Optional shared secret for inbound IPN calls. When empty the secret
	// check is skipped.
	IPNSecret   string
	Environment string

	// Optional endpoint overrides, mainly for local provider stubs.
	QuoteURLOverride   string
	GatewayURLOverride string
	RestURLOverride    string

	// Host status vocabulary this plugin maps payment events onto.
	Statuses StatusConfig

	ProviderTimeout time.Duration

	DBType        string
	DBHost        string
	DBPort        string
	DBName        string
	DBUser        string
	DBPassword    string
	DBSSLMode     string
	DBMaxIdleConn int
	DBMaxOpenConn int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:            getenv("APP_SERVICE", "paygate"),
		AppVersion:         getenv("APP_VERSION", "0.1.0"),
		HTTPAddr:           getenv("HTTP_ADDR", ":8080"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		APIHash:            strings.TrimSpace(getenv("PAYGATE_API_HASH", "")),
		APISecret:          strings.TrimSpace(getenv("PAYGATE_API_SECRET", "")),
		MerchantEmail:      strings.TrimSpace(getenv("PAYGATE_MERCHANT_EMAIL", "")),
		IPNSecret:          strings.TrimSpace(getenv("PAYGATE_IPN_SECRET", "")),
		Environment:        normalizeEnvironment(getenv("PAYGATE_ENVIRONMENT", EnvProduction)),
		QuoteURLOverride:   strings.TrimSpace(getenv("PAYGATE_QUOTE_URL", "")),
		GatewayURLOverride: strings.TrimSpace(getenv("PAYGATE_GATEWAY_URL", "")),
		RestURLOverride:    strings.TrimSpace(getenv("PAYGATE_REST_URL", "")),
		Statuses:           loadStatusConfig(),
		ProviderTimeout:    time.Duration(getenvInt("PAYGATE_PROVIDER_TIMEOUT_SECONDS", 12)) * time.Second,
		DBType:             getenv("DATABASE_TYPE", "postgres"),
		DBHost:             getenv("DATABASE_HOST", "localhost"),
		DBPort:             getenv("DATABASE_PORT", "5432"),
		DBName:             getenv("DATABASE_NAME", "paygate"),
		DBUser:             getenv("DATABASE_USER", "postgres"),
		DBPassword:         getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:          getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:      getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:      getenvInt("DATABASE_MAX_OPEN_CONN", 10),
		RedisAddr:          getenv("REDIS_ADDR", ""),
		RedisPassword:      getenv("REDIS_PASSWORD", ""),
		RedisDB:            getenvInt("REDIS_DB", 0),
	}

	return cfg
}

// HasIPNSecret reports whether an IPN shared secret was configured.
func (c Config) HasIPNSecret() bool {
	return c.IPNSecret != ""
}

// GatewayURL returns the hosted checkout URL for the given quote token.
func (c Config) GatewayURL(token string) string {
	base := c.GatewayURLOverride
	if base == "" {
		base = gatewayURLs[c.Environment]
	}
	q := url.Values{}
	q.Set("token", token)
	return base + "?" + q.Encode()
}

// CreateQuoteURL returns the create-quote endpoint for the current environment.
func (c Config) CreateQuoteURL() string {
	if c.QuoteURLOverride != "" {
		return c.QuoteURLOverride
	}
	return quoteURLs[c.Environment]
}

// RestURL returns the REST endpoint for the given path.
func (c Config) RestURL(path string) string {
	base := c.RestURLOverride
	if base == "" {
		base = restBaseURLs[c.Environment]
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

func normalizeEnvironment(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case EnvSandbox:
		return EnvSandbox
	default:
		return EnvProduction
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

// Module provides the application configuration.
var Module = fx.Module("config",
	fx.Provide(Load),
)
