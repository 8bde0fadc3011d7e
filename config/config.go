package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Duduxlll/banca-xand/models"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string

	AdminUser         string
	AdminPasswordHash string
	JWTSecret         string

	// PixProvider selects the adapter variant for the whole deployment:
	// "livepix" (redirect checkout) or "efi" (QR / copia-e-cola).
	PixProvider string

	LivePixClientID      string
	LivePixClientSecret  string
	LivePixAPIBase       string
	LivePixRedirectURL   string
	LivePixWebhookSecret string
	// Source IPs allowed to post webhooks. Empty disables the check.
	LivePixWebhookAllowlist []string

	EfiClientID      string
	EfiClientSecret  string
	EfiAPIBase       string
	EfiPixKey        string
	EfiWebhookSecret string
}

func LoadConfig() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENVIRONMENT", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		AdminUser:         os.Getenv("ADMIN_USER"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		JWTSecret:         os.Getenv("JWT_SECRET"),

		PixProvider: strings.ToLower(getEnvOrDefault("PIX_PROVIDER", "livepix")),

		LivePixClientID:      os.Getenv("LIVEPIX_CLIENT_ID"),
		LivePixClientSecret:  os.Getenv("LIVEPIX_CLIENT_SECRET"),
		LivePixAPIBase:       os.Getenv("LIVEPIX_API_BASE"),
		LivePixRedirectURL:   os.Getenv("LIVEPIX_REDIRECT_URL"),
		LivePixWebhookSecret: os.Getenv("LIVEPIX_WEBHOOK_SECRET"),

		EfiClientID:      os.Getenv("EFI_CLIENT_ID"),
		EfiClientSecret:  os.Getenv("EFI_CLIENT_SECRET"),
		EfiAPIBase:       os.Getenv("EFI_API_BASE"),
		EfiPixKey:        os.Getenv("EFI_PIX_KEY"),
		EfiWebhookSecret: os.Getenv("EFI_WEBHOOK_SECRET"),
	}

	if allow := os.Getenv("LIVEPIX_WEBHOOK_ALLOWLIST"); allow != "" {
		for _, ip := range strings.Split(allow, ",") {
			if ip = strings.TrimSpace(ip); ip != "" {
				cfg.LivePixWebhookAllowlist = append(cfg.LivePixWebhookAllowlist, ip)
			}
		}
	}

	for _, req := range []struct{ name, val string }{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"ADMIN_USER", cfg.AdminUser},
		{"ADMIN_PASSWORD_HASH", cfg.AdminPasswordHash},
		{"JWT_SECRET", cfg.JWTSecret},
	} {
		if req.val == "" {
			return nil, fmt.Errorf("missing required environment variable %s", req.name)
		}
	}

	return cfg, nil
}

// IsProd gates secure-cookie attributes.
func (c *Config) IsProd() bool {
	return c.Env == "production"
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	// TranslateError turns driver unique-violation errors into
	// gorm.ErrDuplicatedKey, which the reconciler's dedup check relies on.
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate is split out so tests can run the same schema against sqlite.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Banca{}, &models.Pagamento{}, &models.WebhookEvent{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
