// Package config defines the top-level configuration for the arbitrage
// monitor and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/arbitrage"
	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBWATCH_* environment variables.
type Config struct {
	Mode     string        `toml:"mode"`
	LogLevel string        `toml:"log_level"`
	Logging  LoggingConfig `toml:"logging"`

	Watch     []domain.Watch  `toml:"watch"`
	Source    SourceConfig    `toml:"source"`
	FX        FXConfig        `toml:"fx"`
	Arbitrage ArbitrageConfig `toml:"arbitrage"`
	Report    ReportConfig    `toml:"report"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	Handoff   HandoffConfig   `toml:"handoff"`
	Ledger    LedgerConfig    `toml:"ledger"`
	Notify    NotifyConfig    `toml:"notify"`

	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Postgres PostgresConfig `toml:"postgres"`
	Server   ServerConfig   `toml:"server"`
}

// LoggingConfig adds a rotating log file next to stdout when File is set.
type LoggingConfig struct {
	Format     string `toml:"format"` // json or text
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// SourceConfig selects and tunes the quote source.
type SourceConfig struct {
	Kind              string   `toml:"kind"` // yahoo or static
	BaseURL           string   `toml:"base_url"`
	Timeout           duration `toml:"timeout"`
	MaxRetries        int      `toml:"max_retries"`
	UserAgent         string   `toml:"user_agent"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
	// SharedBudget caps requests per second across every process sharing
	// the Redis instance. Zero disables it.
	SharedBudget int `toml:"shared_budget"`
}

// FXConfig configures the exchange-rate source.
type FXConfig struct {
	BaseURL    string   `toml:"base_url"`
	Timeout    duration `toml:"timeout"`
	MaxRetries int      `toml:"max_retries"`
	CacheTTL   duration `toml:"cache_ttl"`
}

// ArbitrageConfig holds the spread economics.
type ArbitrageConfig struct {
	SpreadBasis           string  `toml:"spread_basis"`
	NotionalUSD           float64 `toml:"notional_usd"`
	FlatFeeUSD            float64 `toml:"flat_fee_usd"`
	FeeRate               float64 `toml:"fee_rate"`
	FreeMoneyMinSpreadPct float64 `toml:"free_money_min_spread_pct"`
	MaxPlausibleSpreadPct float64 `toml:"max_plausible_spread_pct"`
}

// ReportConfig drives de-duplication and the periodic summary.
type ReportConfig struct {
	MinReportSpreadPct float64  `toml:"min_report_spread_pct"`
	DedupWindow        duration `toml:"dedup_window"`
	Retain             int      `toml:"retain"`
	SummaryWindow      duration `toml:"summary_window"`
	SummaryInterval    duration `toml:"summary_interval"`
	CapitalNoteUSD     float64  `toml:"capital_note_usd"`
}

// ScheduleConfig sets the scan cadence. The market session is
// [MarketOpenHourUTC, MarketCloseHourUTC).
type ScheduleConfig struct {
	MarketOpenHourUTC  int      `toml:"market_open_hour_utc"`
	MarketCloseHourUTC int      `toml:"market_close_hour_utc"`
	MarketInterval     duration `toml:"market_interval"`
	OffHoursInterval   duration `toml:"off_hours_interval"`
}

// HandoffConfig locates the files shared by the detector and the notifier.
// Relative file names resolve against Dir.
type HandoffConfig struct {
	Transport    string `toml:"transport"` // snapshot, log or redis
	Dir          string `toml:"dir"`
	SnapshotFile string `toml:"snapshot_file"`
	CursorFile   string `toml:"cursor_file"`
	LogFile      string `toml:"log_file"`
	PIDFile      string `toml:"pid_file"`
	Stream       string `toml:"stream"`
	StreamMaxLen int64  `toml:"stream_max_len"`
	BatchSize    int    `toml:"batch_size"`
}

// LedgerConfig configures the simulated trading book.
type LedgerConfig struct {
	Path                string   `toml:"path"`
	DailyReportInterval duration `toml:"daily_report_interval"`
	// MinSpreadPct overrides the book's thresholds.min_spread_pct when > 0.
	MinSpreadPct float64 `toml:"min_spread_pct"`
}

// NotifyConfig holds notification channel settings.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	TelegramBaseURL   string   `toml:"telegram_base_url"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Console           bool     `toml:"console"`
	Events            []string `toml:"events"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// PostgresConfig holds the opportunity history database parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// ServerConfig holds the status server settings.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// RateLimit is requests per client per minute; it needs Redis.
	RateLimit int `toml:"rate_limit"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so that BurntSushi/toml can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultWatch is the IDX high-liquidity list: each symbol's bare ticker,
// its Jakarta listing and, where one exists, its ADR. Market labels are left
// to the quote source.
func DefaultWatch() []domain.Watch {
	adrs := map[string]string{"UNVR": "UNVR", "TLKM": "TLK"}
	symbols := []string{"BBCA", "UNVR", "TLKM", "GOTO", "ADRO"}

	watches := make([]domain.Watch, 0, len(symbols))
	for _, sym := range symbols {
		w := domain.Watch{Symbol: sym, Listings: []domain.Listing{
			{Ticker: sym},
			{Ticker: sym + ".JK"},
		}}
		if adr, ok := adrs[sym]; ok && adr != sym {
			w.Listings = append(w.Listings, domain.Listing{Ticker: adr})
		}
		watches = append(watches, w)
	}
	return watches
}

// Defaults returns a Config populated with sensible default values.
func Defaults() Config {
	econ := arbitrage.DefaultEconomics()
	return Config{
		Mode:     "monitor",
		LogLevel: "info",
		Logging: LoggingConfig{
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
			Compress:   true,
		},
		Watch: DefaultWatch(),
		Source: SourceConfig{
			Kind:              "yahoo",
			BaseURL:           "https://query1.finance.yahoo.com",
			Timeout:           duration{10 * time.Second},
			MaxRetries:        2,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			RequestsPerSecond: 2,
			Burst:             1,
		},
		FX: FXConfig{
			BaseURL:    "https://api.exchangerate-api.com",
			Timeout:    duration{5 * time.Second},
			MaxRetries: 2,
			CacheTTL:   duration{time.Hour},
		},
		Arbitrage: ArbitrageConfig{
			SpreadBasis:           string(arbitrage.BasisAverage),
			NotionalUSD:           econ.NotionalUSD,
			FlatFeeUSD:            econ.FlatFeeUSD,
			FeeRate:               econ.FeeRate,
			FreeMoneyMinSpreadPct: econ.FreeMoneyMinSpreadPct,
			MaxPlausibleSpreadPct: econ.MaxPlausibleSpreadPct,
		},
		Report: ReportConfig{
			MinReportSpreadPct: 0.3,
			DedupWindow:        duration{30 * time.Minute},
			Retain:             20,
			SummaryWindow:      duration{6 * time.Hour},
			SummaryInterval:    duration{6 * time.Hour},
			CapitalNoteUSD:     50,
		},
		Schedule: ScheduleConfig{
			MarketOpenHourUTC:  1,
			MarketCloseHourUTC: 8,
			MarketInterval:     duration{5 * time.Minute},
			OffHoursInterval:   duration{30 * time.Minute},
		},
		Handoff: HandoffConfig{
			Transport:    "log",
			Dir:          ".",
			SnapshotFile: "monitor_state.json",
			CursorFile:   "last_notify.json",
			LogFile:      "opportunities.jsonl",
			PIDFile:      "arbnotify.pid",
			Stream:       "opportunities",
			StreamMaxLen: 10000,
			BatchSize:    100,
		},
		Ledger: LedgerConfig{
			Path:                "config.json",
			DailyReportInterval: duration{24 * time.Hour},
		},
		Notify: NotifyConfig{
			TelegramBaseURL: "https://api.telegram.org",
			Events:          []string{"startup", "opportunity", "summary", "daily_report"},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			KeyPrefix:  "arbwatch",
		},
		S3: S3Config{
			Region: "us-east-1",
			UseSSL: true,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbwatch",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  0,
			RunMigrations: true,
		},
		Server: ServerConfig{
			Port:      8080,
			RateLimit: 120,
		},
	}
}

var validModes = map[string]bool{
	"monitor":  true,
	"simulate": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validTransports = map[string]bool{
	"snapshot": true,
	"log":      true,
	"redis":    true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if !validModes[strings.ToLower(c.Mode)] {
		add("unknown mode %q (valid: monitor, simulate)", c.Mode)
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		add("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel)
	}
	if f := c.Logging.Format; f != "json" && f != "text" {
		add("logging: format must be json or text, got %q", f)
	}

	// Watch list only matters for the live monitor.
	if c.Mode == "monitor" {
		if len(c.Watch) == 0 {
			add("watch: at least one symbol is required")
		}
		for i, w := range c.Watch {
			if strings.TrimSpace(w.Symbol) == "" {
				add("watch[%d]: symbol must not be empty", i)
			}
			if len(w.Listings) < 2 {
				add("watch[%d] %s: at least two listings are required", i, w.Symbol)
			}
		}
		if c.Source.Kind != "yahoo" && c.Source.Kind != "static" {
			add("source: kind must be yahoo or static, got %q", c.Source.Kind)
		}
	}
	if c.Source.Kind == "yahoo" && c.Source.BaseURL == "" {
		add("source: base_url must not be empty")
	}
	if c.Source.RequestsPerSecond < 0 {
		add("source: requests_per_second must be >= 0")
	}
	if c.FX.BaseURL == "" {
		add("fx: base_url must not be empty")
	}

	if _, err := arbitrage.ParseSpreadBasis(c.Arbitrage.SpreadBasis); err != nil {
		add("arbitrage: %v", err)
	}
	if c.Arbitrage.NotionalUSD <= 0 {
		add("arbitrage: notional_usd must be > 0")
	}
	if c.Arbitrage.FlatFeeUSD < 0 || c.Arbitrage.FeeRate < 0 {
		add("arbitrage: fees must be >= 0")
	}
	if c.Arbitrage.MaxPlausibleSpreadPct <= 0 {
		add("arbitrage: max_plausible_spread_pct must be > 0")
	}

	if c.Report.DedupWindow.Duration <= 0 {
		add("report: dedup_window must be > 0")
	}
	if c.Report.Retain < 1 {
		add("report: retain must be >= 1")
	}
	if c.Report.SummaryWindow.Duration <= 0 || c.Report.SummaryInterval.Duration <= 0 {
		add("report: summary_window and summary_interval must be > 0")
	}

	s := c.Schedule
	if s.MarketOpenHourUTC < 0 || s.MarketOpenHourUTC > 23 || s.MarketCloseHourUTC < 0 || s.MarketCloseHourUTC > 24 {
		add("schedule: market hours must be within 0-24, got [%d, %d)", s.MarketOpenHourUTC, s.MarketCloseHourUTC)
	}
	if s.MarketInterval.Duration <= 0 || s.OffHoursInterval.Duration <= 0 {
		add("schedule: intervals must be > 0")
	}

	if !validTransports[c.Handoff.Transport] {
		add("handoff: unknown transport %q (valid: snapshot, log, redis)", c.Handoff.Transport)
	}
	if c.Handoff.Transport == "redis" && !c.Redis.Enabled {
		add("handoff: transport redis requires redis.enabled")
	}
	if c.Handoff.SnapshotFile == "" || c.Handoff.CursorFile == "" {
		add("handoff: snapshot_file and cursor_file must not be empty")
	}
	if c.Handoff.Transport == "log" && c.Handoff.LogFile == "" {
		add("handoff: log_file must not be empty for transport log")
	}

	if c.Mode == "simulate" {
		if c.Ledger.Path == "" {
			add("ledger: path must not be empty")
		}
		if c.Ledger.DailyReportInterval.Duration <= 0 {
			add("ledger: daily_report_interval must be > 0")
		}
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		add("notify: telegram_token and telegram_chat_id must be set together")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			add("redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			add("redis: pool_size must be >= 1")
		}
	}
	if c.Source.SharedBudget > 0 && !c.Redis.Enabled {
		add("source: shared_budget requires redis.enabled")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			add("s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			add("s3: region must not be empty")
		}
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				add("postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				add("postgres: port must be 1-65535, got %d", c.Postgres.Port)
			}
			if c.Postgres.Database == "" {
				add("postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			add("postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			add("postgres: pool_min_conns must be within 0-pool_max_conns")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			add("server: port must be 1-65535, got %d", c.Server.Port)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Economics converts the [arbitrage] section.
func (c *Config) Economics() arbitrage.Economics {
	return arbitrage.Economics{
		NotionalUSD:           c.Arbitrage.NotionalUSD,
		FlatFeeUSD:            c.Arbitrage.FlatFeeUSD,
		FeeRate:               c.Arbitrage.FeeRate,
		FreeMoneyMinSpreadPct: c.Arbitrage.FreeMoneyMinSpreadPct,
		MaxPlausibleSpreadPct: c.Arbitrage.MaxPlausibleSpreadPct,
	}
}
