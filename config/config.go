package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
	Currencies []CurrencyConfig `mapstructure:"currencies"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// EngineConfig tunes the order lifecycle engine.
type EngineConfig struct {
	MinDepositUSD     float64       `mapstructure:"min_deposit_usd"`
	MaxDepositUSD     float64       `mapstructure:"max_deposit_usd"`
	QuoteLockWindow   time.Duration `mapstructure:"quote_lock_window"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	RetentionInterval time.Duration `mapstructure:"retention_interval"`
	RetentionHorizon  time.Duration `mapstructure:"retention_horizon"`
	ListOrdersLimit   int           `mapstructure:"list_orders_limit"`
}

// OracleConfig tunes the price oracle adapter.
type OracleConfig struct {
	BinanceBaseURL   string        `mapstructure:"binance_base_url"`
	CoinGeckoBaseURL string        `mapstructure:"coingecko_base_url"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
}

// AuthConfig holds credentials for the admin API.
type AuthConfig struct {
	AdminJWTSecret string `mapstructure:"admin_jwt_secret"`
	JWTIssuer      string `mapstructure:"jwt_issuer"`
}

// CurrencyConfig describes one supported cryptocurrency.
type CurrencyConfig struct {
	Code          string  `mapstructure:"code"`
	Name          string  `mapstructure:"name"`
	Network       string  `mapstructure:"network"`
	Precision     int32   `mapstructure:"precision"`
	Address       string  `mapstructure:"address"`
	Stable        bool    `mapstructure:"stable"`
	FallbackPrice float64 `mapstructure:"fallback_price"`
	BinanceSymbol string  `mapstructure:"binance_symbol"`
	CoinGeckoID   string  `mapstructure:"coingecko_id"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CCE_ (Crypto Checkout
// Engine). Nested keys use underscore: CCE_DATABASE_HOST, CCE_AUTH_ADMIN_JWT_SECRET.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "crypto_checkout")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("engine.min_deposit_usd", 1.0)
	v.SetDefault("engine.max_deposit_usd", 1000.0)
	v.SetDefault("engine.quote_lock_window", "15m")
	v.SetDefault("engine.sweep_interval", "5m")
	v.SetDefault("engine.retention_interval", "1h")
	v.SetDefault("engine.retention_horizon", "720h") // 30 days
	v.SetDefault("engine.list_orders_limit", 10)
	v.SetDefault("oracle.binance_base_url", "https://api.binance.com")
	v.SetDefault("oracle.coingecko_base_url", "https://api.coingecko.com")
	v.SetDefault("oracle.request_timeout", "10s")
	v.SetDefault("oracle.cache_ttl", "5m")
	v.SetDefault("auth.admin_jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "crypto-checkout")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("currencies", defaultCurrencies())

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CCE_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// defaultCurrencies is the built-in currency table. Fallback prices are the
// last-resort constants used when every price provider is unreachable.
func defaultCurrencies() []map[string]interface{} {
	return []map[string]interface{}{
		{
			"code":           "BTC",
			"name":           "Bitcoin",
			"network":        "BTC",
			"precision":      8,
			"address":        "bc1q85ad38ndcd29zgz7d77y5k9hcsurqxaqurzl2g",
			"stable":         false,
			"fallback_price": 45000.0,
			"binance_symbol": "BTCUSDT",
			"coingecko_id":   "bitcoin",
		},
		{
			"code":           "LTC",
			"name":           "Litecoin",
			"network":        "LTC",
			"precision":      8,
			"address":        "ltc1q2e3z74c63j5cn2hu0wep5vdrmmf6jv9zf6m4rv",
			"stable":         false,
			"fallback_price": 75.0,
			"binance_symbol": "LTCUSDT",
			"coingecko_id":   "litecoin",
		},
		{
			"code":           "USDT",
			"name":           "USDT (BEP20)",
			"network":        "BEP20",
			"precision":      2,
			"address":        "0x515a1DA038D2813400912C88Bbd4921836041766",
			"stable":         true,
			"fallback_price": 1.0,
			"binance_symbol": "",
			"coingecko_id":   "tether",
		},
	}
}
