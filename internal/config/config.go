package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME,default=storefront"`
	ServerAddr  string `env:"SERVER_ADDR,default=:8080"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	Env         string `env:"APP_ENV,default=development"`

	DBDriver    string `env:"DB_DRIVER,default=sqlite"`
	DatabaseURL string `env:"DATABASE_URL,default=storefront.db"`

	SessionSecret string        `env:"SESSION_SECRET"`
	FlashSecret   string        `env:"FLASH_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL,default=168h"`
	CookieSecure  bool          `env:"COOKIE_SECURE,default=false"`
	AdminPassword string        `env:"ADMIN_PASSWORD,default=123456"`

	UploadDir       string `env:"UPLOAD_DIR,default=uploads"`
	UploadURLPrefix string `env:"UPLOAD_URL_PREFIX,default=/uploads"`
	StaticDir       string `env:"STATIC_DIR"`

	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_TOPIC,default=storefront.events"`

	ESURL      string `env:"ES_URL"`
	ESUser     string `env:"ES_USER"`
	ESPassword string `env:"ES_PASSWORD"`
	ESIndex    string `env:"ES_INDEX,default=products"`
}

// Load reads .env (when present) and the process environment. Secrets left
// empty in development are replaced by random values, which invalidates
// sessions on every restart; in any other environment they are required.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode env: %w", err)
	}
	if err := cfg.fillSecrets(); err != nil {
		return nil, err
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	cfg.UploadURLPrefix = "/" + strings.Trim(cfg.UploadURLPrefix, "/")
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(c.Env, "dev")
}

func (c *Config) Brokers() []string {
	return CSV(c.KafkaBrokers)
}

func (c *Config) fillSecrets() error {
	if !c.IsDevelopment() {
		if err := MustNonEmpty(c.SessionSecret, "SESSION_SECRET"); err != nil {
			return err
		}
		return MustNonEmpty(c.FlashSecret, "FLASH_SECRET")
	}
	if c.SessionSecret == "" {
		log.Printf("Notice: SESSION_SECRET not set, generating an ephemeral one")
		c.SessionSecret = randomSecret()
	}
	if c.FlashSecret == "" {
		c.FlashSecret = randomSecret()
	}
	return nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
