package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultAPIURL = "http://localhost:5000/api"

type Config struct {
	Port            string
	Environment     string
	LogLevel        string
	APIURL          string // storefront REST API, orders and payments
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	Storage         StorageConfig
	Session         SessionConfig
	Checkout        CheckoutConfig
	Paystack        PaystackConfig
	Verify          VerifyConfig
	Journal         JournalConfig
}

type StorageConfig struct {
	Backend       string // memory, sqlite, redis or mongo
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisTTL      time.Duration
	MongoURI      string
	MongoDBName   string
}

type SessionConfig struct {
	IdleTimeout   time.Duration
	EvictInterval time.Duration
}

// CheckoutConfig bounds each network step of a checkout submission.
type CheckoutConfig struct {
	OrderTimeout   time.Duration
	PaymentTimeout time.Duration
}

type PaystackConfig struct {
	BaseURL     string
	PublicKey   string
	SecretKey   string
	Currency    string
	CallbackURL string
}

type VerifyConfig struct {
	RetryDelay     time.Duration
	AttemptTimeout time.Duration
	TrackLinks     bool
}

// JournalConfig enables the checkout attempt journal. Empty DB host and Kafka brokers
// disable the respective sink.
type JournalConfig struct {
	Database       DatabaseConfig
	MigrationsPath string
	KafkaBrokers   []string
	KafkaTopic     string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("env")
	v.SetConfigName(".env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")

	v.AutomaticEnv()

	// Try to read .env file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	get := func(key, def string) string { return getEnvOrViper(v, key, def) }

	var errs []error
	duration := func(key string, def time.Duration) time.Duration {
		raw := get(key, "")
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return d
	}

	dbPort, err := strconv.Atoi(get("DB_PORT", "5432"))
	if err != nil {
		errs = append(errs, fmt.Errorf("DB_PORT: %w", err))
	}

	cfg := &Config{
		Port:            get("PORT", "8080"),
		Environment:     get("ENVIRONMENT", "development"),
		LogLevel:        get("LOG_LEVEL", "info"),
		APIURL:          NormalizeAPIURL(get("API_URL", "")),
		RequestTimeout:  duration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Storage: StorageConfig{
			Backend:       strings.ToLower(get("STORAGE_BACKEND", "sqlite")),
			SQLitePath:    get("SQLITE_PATH", "storefront.db"),
			RedisAddr:     get("REDIS_ADDR", "localhost:6379"),
			RedisPassword: get("REDIS_PASSWORD", ""),
			RedisTTL:      duration("REDIS_TTL", 30*24*time.Hour),
			MongoURI:      get("MONGO_URI", "mongodb://localhost:27017"),
			MongoDBName:   get("MONGO_DB_NAME", "storefront"),
		},
		Session: SessionConfig{
			IdleTimeout:   duration("SESSION_IDLE_TIMEOUT", 2*time.Hour),
			EvictInterval: duration("SESSION_EVICT_INTERVAL", 5*time.Minute),
		},
		Checkout: CheckoutConfig{
			OrderTimeout:   duration("CHECKOUT_ORDER_TIMEOUT", 15*time.Second),
			PaymentTimeout: duration("CHECKOUT_PAYMENT_TIMEOUT", 15*time.Second),
		},
		Paystack: PaystackConfig{
			BaseURL:     get("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			PublicKey:   strings.TrimSpace(get("PAYSTACK_PUBLIC_KEY", "")),
			SecretKey:   strings.TrimSpace(get("PAYSTACK_SECRET_KEY", "")),
			Currency:    get("PAYMENT_CURRENCY", "NGN"),
			CallbackURL: strings.TrimSpace(get("PAYMENT_CALLBACK_URL", "")),
		},
		Verify: VerifyConfig{
			RetryDelay:     duration("VERIFY_RETRY_DELAY", time.Second),
			AttemptTimeout: duration("VERIFY_ATTEMPT_TIMEOUT", 10*time.Second),
			TrackLinks:     get("TRACK_PAYMENT_LINKS", "true") == "true",
		},
		Journal: JournalConfig{
			Database: DatabaseConfig{
				Host:     get("DB_HOST", ""),
				Port:     dbPort,
				User:     get("DB_USER", "postgres"),
				Password: get("DB_PASSWORD", "postgres"),
				DBName:   get("DB_NAME", "storefront"),
			},
			MigrationsPath: get("MIGRATIONS_PATH", "internal/repository/migrations"),
			KafkaBrokers:   splitList(get("KAFKA_BROKERS", "")),
			KafkaTopic:     get("KAFKA_TOPIC", "checkout-attempts"),
		},
	}

	switch cfg.Storage.Backend {
	case "memory", "sqlite", "redis", "mongo":
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND: unknown backend %q", cfg.Storage.Backend))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// NormalizeAPIURL applies the default and prepends https:// when the scheme is missing.
func NormalizeAPIURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultAPIURL
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	return strings.TrimSuffix(raw, "/")
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrViper(v *viper.Viper, key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return defaultValue
}
