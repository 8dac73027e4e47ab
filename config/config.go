package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type ClickConfig struct {
	MerchantID     string `validate:"required_with=SecretKey"`
	ServiceID      string `validate:"required_with=SecretKey"`
	SecretKey      string
	MerchantUserID string `validate:"required_with=SecretKey"`
	APIURL         string `validate:"required,url"`
}

type TwilioConfig struct {
	AccountSID  string
	AuthToken   string `validate:"required_with=AccountSID"`
	PhoneNumber string `validate:"required_with=AccountSID"`
}

// Enabled reports whether SMS credentials are present.
func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != ""
}

type Config struct {
	Port          string        `validate:"required,numeric"`
	Env           string        `validate:"oneof=development production test"`
	DBURL         string        `validate:"required"`
	JWTSecret     string        `validate:"required,min=16"`
	JWTAlgorithm  string        `validate:"oneof=HS256 HS384 HS512"`
	FrontendURL   string        `validate:"omitempty,url"`
	RedisURL      string        `validate:"omitempty,url"`
	SweepInterval time.Duration `validate:"min=1s"`
	SlotMinutes   int           `validate:"min=5,max=240"`
	PricingFile   string
	CORSOrigins   []string

	Click  ClickConfig
	Twilio TwilioConfig
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Load reads the process environment, after merging an optional .env file,
// and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found")
	}

	cfg := &Config{
		Port:         getenv("PORT", "8080"),
		Env:          getenv("APP_ENV", "development"),
		DBURL:        os.Getenv("DB_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTAlgorithm: getenv("JWT_ALGORITHM", "HS256"),
		FrontendURL:  os.Getenv("FRONTEND_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		PricingFile:  os.Getenv("PRICING_FILE"),
		Click: ClickConfig{
			MerchantID:     os.Getenv("CLICK_MERCHANT_ID"),
			ServiceID:      os.Getenv("CLICK_SERVICE_ID"),
			SecretKey:      os.Getenv("CLICK_SECRET_KEY"),
			MerchantUserID: os.Getenv("CLICK_MERCHANT_USER_ID"),
			APIURL:         getenv("CLICK_API_URL", "https://api.click.uz/v2/merchant"),
		},
		Twilio: TwilioConfig{
			AccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
			PhoneNumber: os.Getenv("TWILIO_PHONE_NUMBER"),
		},
	}

	interval, err := time.ParseDuration(getenv("SWEEP_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
	}
	cfg.SweepInterval = interval

	slot, err := strconv.Atoi(getenv("SLOT_MINUTES", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLOT_MINUTES: %w", err)
	}
	cfg.SlotMinutes = slot

	for _, o := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
