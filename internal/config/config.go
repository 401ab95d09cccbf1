package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the fully resolved runtime configuration. It is loaded once at
// startup from defaults, an optional config file and environment variables
// (PATHWORK_ prefixed), in that order of precedence.
type Config struct {
	HTTP      HTTPConfig              `mapstructure:"http"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Redis     RedisConfig             `mapstructure:"redis"`
	Credits   CreditsConfig           `mapstructure:"credits"`
	Features  map[string]FeatureCosts `mapstructure:"features"`
	Runner    RunnerConfig            `mapstructure:"runner"`
	Scheduler SchedulerConfig         `mapstructure:"scheduler"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres | mysql | sqlite
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CreditsConfig holds the wallet seeding and refill policy.
type CreditsConfig struct {
	SignupSilverFree int64 `mapstructure:"signup_silver_free"`
	SignupSilverPro  int64 `mapstructure:"signup_silver_pro"`
	SignupGoldPro    int64 `mapstructure:"signup_gold_pro"`

	DailySilverRefill int64 `mapstructure:"daily_silver_refill"`
	DailySilverCap    int64 `mapstructure:"daily_silver_cap"`
	MonthlyGoldPro    int64 `mapstructure:"monthly_gold_pro"`
}

// FeatureCosts maps a plan tier to the cost of one run. A nil entry for a
// tier means the feature is not available on that tier.
type FeatureCosts struct {
	Free *Cost `mapstructure:"free"`
	Pro  *Cost `mapstructure:"pro"`
}

type Cost struct {
	Currency string `mapstructure:"currency"` // silver | gold
	Amount   int64  `mapstructure:"amount"`
}

type RunnerConfig struct {
	Queue          string `mapstructure:"queue"`
	Concurrency    int    `mapstructure:"concurrency"`
	MaxRetries     int    `mapstructure:"max_retries"`
	AgentEndpoint  string `mapstructure:"agent_endpoint"`
	AgentAPIKey    string `mapstructure:"agent_api_key"`
	AgentTimeoutMS int    `mapstructure:"agent_timeout_ms"`
}

type SchedulerConfig struct {
	TickSeconds         int `mapstructure:"tick_seconds"`
	LedgerRetentionDays int `mapstructure:"ledger_retention_days"`
}

// Load reads configuration. A missing config file is not an error; env vars
// and defaults alone are a valid deployment.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("pathwork")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/pathwork")
	v.SetEnvPrefix("PATHWORK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:pathwork.db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("credits.signup_silver_free", 20)
	v.SetDefault("credits.signup_silver_pro", 20)
	v.SetDefault("credits.signup_gold_pro", 3000)
	v.SetDefault("credits.daily_silver_refill", 2)
	v.SetDefault("credits.daily_silver_cap", 20)
	v.SetDefault("credits.monthly_gold_pro", 3000)

	v.SetDefault("runner.queue", "pathwork:jobs")
	v.SetDefault("runner.concurrency", 4)
	v.SetDefault("runner.max_retries", 3)
	v.SetDefault("runner.agent_timeout_ms", 45000)

	v.SetDefault("scheduler.tick_seconds", 60)
	v.SetDefault("scheduler.ledger_retention_days", 365)

	// Per-run costs for the gated tools. Keys must match the feature codes
	// used by the orchestrator and the ledger.
	v.SetDefault("features", map[string]any{
		"jobpack": map[string]any{
			"free": map[string]any{"currency": "silver", "amount": 1},
			"pro":  map[string]any{"currency": "gold", "amount": 3},
		},
		"skill_mapper": map[string]any{
			"free": map[string]any{"currency": "silver", "amount": 1},
			"pro":  map[string]any{"currency": "gold", "amount": 3},
		},
		"internship_analyzer": map[string]any{
			"free": map[string]any{"currency": "silver", "amount": 1},
			"pro":  map[string]any{"currency": "gold", "amount": 2},
		},
		"referral_trainer": map[string]any{
			"free": map[string]any{"currency": "silver", "amount": 1},
			"pro":  map[string]any{"currency": "silver", "amount": 1},
		},
		"portfolio_builder": map[string]any{
			"free": map[string]any{"currency": "silver", "amount": 1},
			"pro":  map[string]any{"currency": "gold", "amount": 2},
		},
		"dream_planner": map[string]any{
			"pro": map[string]any{"currency": "gold", "amount": 3},
		},
	})
}
