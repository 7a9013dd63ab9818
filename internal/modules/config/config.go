package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSNENV    = "DATABASE_DSN"
	binanceKeyENV     = "BINANCE_API_KEY"
	binanceSecretENV  = "BINANCE_API_SECRET"
	credentialKeyENV  = "CREDENTIAL_KEY"
)

// Config ...
type Config struct {
	Telegram struct {
		Token string `yaml:"token"`
	} `yaml:"telegram"`
	DB string `yaml:"db_dsn"`

	Binance struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		Testnet   bool   `yaml:"testnet"`
	} `yaml:"binance"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	// CredentialKey is the hex AES key for decrypting stored exchange links.
	CredentialKey string `yaml:"credential_key"`

	// Scheduler
	TickInterval     time.Duration `yaml:"tick_interval"`
	FetchConcurrency int           `yaml:"fetch_concurrency"`

	// Defaults applied when an activation request omits fields.
	DefaultTradeAmount     float64  `yaml:"trade_amount"`
	DefaultIntervals       []string `yaml:"intervals"`
	DefaultCandleLimit     int      `yaml:"candle_limit"`
	DefaultCooldownMinutes int      `yaml:"cooldown_minutes"`
	DefaultMaxInvestment   float64  `yaml:"max_investment"`
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	config := Config{
		TickInterval:     durationFromEnv("TICK_INTERVAL", "1m"),
		FetchConcurrency: intFromEnv("FETCH_CONCURRENCY", 5),

		DefaultTradeAmount:     floatFromEnv("TRADE_AMOUNT", 50),
		DefaultIntervals:       []string{"15m", "1h", "4h"},
		DefaultCandleLimit:     intFromEnv("CANDLE_LIMIT", 200),
		DefaultCooldownMinutes: intFromEnv("COOLDOWN_MINUTES", 60),
		DefaultMaxInvestment:   floatFromEnv("MAX_INVESTMENT", 1000),
	}

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err == nil {
		defer func() {
			_ = file.Close()
		}()
		if err := yaml.NewDecoder(file).Decode(&config); err != nil {
			return nil, fmt.Errorf("decode config file: %w", err)
		}
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSNENV); dsn != "" {
		config.DB = dsn
	}
	if k := os.Getenv(binanceKeyENV); k != "" {
		config.Binance.APIKey = k
	}
	if s := os.Getenv(binanceSecretENV); s != "" {
		config.Binance.APISecret = s
	}
	if k := os.Getenv(credentialKeyENV); k != "" {
		config.CredentialKey = k
	}

	if config.FetchConcurrency <= 0 {
		config.FetchConcurrency = 5
	}
	if config.TickInterval <= 0 {
		config.TickInterval = time.Minute
	}

	return &config, nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
