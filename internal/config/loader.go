package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBWATCH_* environment variable overrides, and
// returns the final Config. A missing file is not an error. The returned
// Config has NOT been validated; the caller should invoke Config.Validate()
// after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	// The watch list is decoded into an empty slice so a [[watch]] table in
	// the file replaces the defaults instead of merging into them.
	cfg.Watch = nil
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	if cfg.Watch == nil {
		cfg.Watch = DefaultWatch()
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Top-level ──
	setStr(&cfg.Mode, "ARBWATCH_MODE")
	setStr(&cfg.LogLevel, "ARBWATCH_LOG_LEVEL")
	setStr(&cfg.Logging.Format, "ARBWATCH_LOGGING_FORMAT")
	setStr(&cfg.Logging.File, "ARBWATCH_LOGGING_FILE")

	// ── Sources ──
	setStr(&cfg.Source.Kind, "ARBWATCH_SOURCE_KIND")
	setStr(&cfg.Source.BaseURL, "ARBWATCH_SOURCE_BASE_URL")
	setDuration(&cfg.Source.Timeout, "ARBWATCH_SOURCE_TIMEOUT")
	setFloat64(&cfg.Source.RequestsPerSecond, "ARBWATCH_SOURCE_REQUESTS_PER_SECOND")
	setInt(&cfg.Source.SharedBudget, "ARBWATCH_SOURCE_SHARED_BUDGET")
	setStr(&cfg.FX.BaseURL, "ARBWATCH_FX_BASE_URL")
	setDuration(&cfg.FX.CacheTTL, "ARBWATCH_FX_CACHE_TTL")

	// ── Arbitrage / report ──
	setStr(&cfg.Arbitrage.SpreadBasis, "ARBWATCH_ARBITRAGE_SPREAD_BASIS")
	setFloat64(&cfg.Arbitrage.NotionalUSD, "ARBWATCH_ARBITRAGE_NOTIONAL_USD")
	setFloat64(&cfg.Report.MinReportSpreadPct, "ARBWATCH_REPORT_MIN_REPORT_SPREAD_PCT")
	setDuration(&cfg.Report.DedupWindow, "ARBWATCH_REPORT_DEDUP_WINDOW")
	setDuration(&cfg.Report.SummaryInterval, "ARBWATCH_REPORT_SUMMARY_INTERVAL")
	setDuration(&cfg.Report.SummaryWindow, "ARBWATCH_REPORT_SUMMARY_WINDOW")

	// ── Schedule ──
	setDuration(&cfg.Schedule.MarketInterval, "ARBWATCH_SCHEDULE_MARKET_INTERVAL")
	setDuration(&cfg.Schedule.OffHoursInterval, "ARBWATCH_SCHEDULE_OFF_HOURS_INTERVAL")

	// ── Hand-off ──
	setStr(&cfg.Handoff.Transport, "ARBWATCH_HANDOFF_TRANSPORT")
	setStr(&cfg.Handoff.Dir, "ARBWATCH_HANDOFF_DIR")

	// ── Ledger ──
	setStr(&cfg.Ledger.Path, "ARBWATCH_LEDGER_PATH")
	setDuration(&cfg.Ledger.DailyReportInterval, "ARBWATCH_LEDGER_DAILY_REPORT_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARBWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBWATCH_NOTIFY_DISCORD_WEBHOOK_URL")
	setBool(&cfg.Notify.Console, "ARBWATCH_NOTIFY_CONSOLE")
	setStringSlice(&cfg.Notify.Events, "ARBWATCH_NOTIFY_EVENTS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ARBWATCH_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ARBWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBWATCH_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "ARBWATCH_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ARBWATCH_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ARBWATCH_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARBWATCH_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARBWATCH_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARBWATCH_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARBWATCH_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "ARBWATCH_S3_FORCE_PATH_STYLE")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "ARBWATCH_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "ARBWATCH_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ARBWATCH_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBWATCH_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBWATCH_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBWATCH_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBWATCH_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBWATCH_POSTGRES_SSL_MODE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ARBWATCH_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARBWATCH_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "ARBWATCH_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "ARBWATCH_SERVER_CORS_ORIGINS")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
