package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Server struct {
	Addr           string
	AllowedOrigins []string
	LogFile        string
}

type Game struct {
	StartingCash decimal.Decimal
	// PortfolioLookback is the number of steps before T included in a
	// portfolio query, so a query returns at most PortfolioLookback+1 snapshots.
	PortfolioLookback int64
	// PriceHistoryLookback is the number of points returned per ticker,
	// including T itself.
	PriceHistoryLookback int64
	// SimulationStart is the wall-clock instant of step 0. Zero means
	// "process start" and is resolved by the caller with a util.Clock.
	SimulationStart time.Time
	// ReplayCacheSize bounds the number of players with a cached replay
	// checkpoint. 0 disables checkpointing.
	ReplayCacheSize int
}

type Storage struct {
	// JournalDir is the on-disk location of the order journal.
	// Empty keeps the journal in memory.
	JournalDir string
}

type Feeder struct {
	Enabled  bool
	Bots     int
	Interval time.Duration
	Seed     int64
}

type Config struct {
	Server  Server
	Game    Game
	Storage Storage
	Feeder  Feeder
}

func Default() Config {
	return Config{
		Server: Server{
			Addr:           ":3003",
			AllowedOrigins: []string{"http://localhost:3000"},
			LogFile:        "data/papertrade.log",
		},
		Game: Game{
			StartingCash:         decimal.NewFromInt(100000),
			PortfolioLookback:    60,
			PriceHistoryLookback: 60,
			ReplayCacheSize:      1024,
		},
		Feeder: Feeder{
			Enabled:  false,
			Bots:     3,
			Interval: 2 * time.Second,
			Seed:     69420,
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.Server.Addr = getEnv("API_ADDR", cfg.Server.Addr)
	cfg.Server.LogFile = getEnv("LOG_FILE", cfg.Server.LogFile)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = splitList(origins)
	}

	if cash := os.Getenv("STARTING_CASH"); cash != "" {
		if d, err := decimal.NewFromString(cash); err == nil && d.IsPositive() {
			cfg.Game.StartingCash = d
		}
	}
	if lb := os.Getenv("PORTFOLIO_LOOKBACK"); lb != "" {
		if n, err := strconv.ParseInt(lb, 10, 64); err == nil && n >= 0 {
			cfg.Game.PortfolioLookback = n
		}
	}
	if lb := os.Getenv("PRICE_HISTORY_LOOKBACK"); lb != "" {
		if n, err := strconv.ParseInt(lb, 10, 64); err == nil && n > 0 {
			cfg.Game.PriceHistoryLookback = n
		}
	}
	if start := os.Getenv("SIMULATION_START"); start != "" {
		if ts, err := time.Parse(time.RFC3339, start); err == nil {
			cfg.Game.SimulationStart = ts.UTC()
		}
	}
	if size := os.Getenv("REPLAY_CACHE_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil && n >= 0 {
			cfg.Game.ReplayCacheSize = n
		}
	}

	cfg.Storage.JournalDir = getEnv("JOURNAL_DIR", cfg.Storage.JournalDir)

	if enabled := os.Getenv("ENABLE_FEEDER"); enabled != "" {
		cfg.Feeder.Enabled = enabled == "true"
	}
	if bots := os.Getenv("FEEDER_BOTS"); bots != "" {
		if n, err := strconv.Atoi(bots); err == nil && n > 0 {
			cfg.Feeder.Bots = n
		}
	}
	if interval := os.Getenv("FEEDER_INTERVAL_MS"); interval != "" {
		if ms, err := strconv.Atoi(interval); err == nil && ms > 0 {
			cfg.Feeder.Interval = time.Duration(ms) * time.Millisecond
		}
	}
	if seed := os.Getenv("FEEDER_SEED"); seed != "" {
		if n, err := strconv.ParseInt(seed, 10, 64); err == nil {
			cfg.Feeder.Seed = n
		}
	}

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
