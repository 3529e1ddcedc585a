package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store         StoreConfig         `yaml:"store" mapstructure:"store"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Orchestrator  OrchestratorConfig  `yaml:"orchestrator" mapstructure:"orchestrator"`
	Campaign      CampaignConfig      `yaml:"campaign" mapstructure:"campaign"`
	Scoring       ScoringConfig       `yaml:"scoring" mapstructure:"scoring"`
	Qualification QualificationConfig `yaml:"qualification" mapstructure:"qualification"`
	Booking       BookingConfig       `yaml:"booking" mapstructure:"booking"`
	SMTP          SMTPConfig          `yaml:"smtp" mapstructure:"smtp"`
	Channels      ChannelsConfig      `yaml:"channels" mapstructure:"channels"`
	Salesforce    SalesforceConfig    `yaml:"salesforce" mapstructure:"salesforce"`
	Notion        NotionConfig        `yaml:"notion" mapstructure:"notion"`
	Enrichment    EnrichmentConfig    `yaml:"enrichment" mapstructure:"enrichment"`
	Anthropic     AnthropicConfig     `yaml:"anthropic" mapstructure:"anthropic"`
	Notify        NotifyConfig        `yaml:"notify" mapstructure:"notify"`
	Retry         RetryConfig         `yaml:"retry" mapstructure:"retry"`
	Circuit       CircuitConfig       `yaml:"circuit" mapstructure:"circuit"`
}

// StoreConfig configures the key-value state store backend.
// Driver is one of sqlite, postgres, redis or memory.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP trigger server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// OrchestratorConfig configures the campaign poll loop.
type OrchestratorConfig struct {
	PollIntervalSecs    int `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	ShutdownTimeoutSecs int `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
	MaxConcurrentLeads  int `yaml:"max_concurrent_leads" mapstructure:"max_concurrent_leads"`
	EnrichConcurrency   int `yaml:"enrich_concurrency" mapstructure:"enrich_concurrency"`
	// SequenceDaySecs is the length of one sequence delay day. Shortened in demos.
	SequenceDaySecs int `yaml:"sequence_day_secs" mapstructure:"sequence_day_secs"`
}

// CampaignConfig configures launch eligibility and default channels.
type CampaignConfig struct {
	EligibleTiers []int    `yaml:"eligible_tiers" mapstructure:"eligible_tiers"`
	Channels      []string `yaml:"channels" mapstructure:"channels"`
	SourceCSV     string   `yaml:"source_csv" mapstructure:"source_csv"`
	Source        string   `yaml:"source" mapstructure:"source"`
}

// ScoringConfig holds the lead scoring weights and targeting thresholds.
type ScoringConfig struct {
	RevenueWeight  int      `yaml:"revenue_weight" mapstructure:"revenue_weight"`
	IndustryWeight int      `yaml:"industry_weight" mapstructure:"industry_weight"`
	TitleWeight    int      `yaml:"title_weight" mapstructure:"title_weight"`
	SocialWeight   int      `yaml:"social_weight" mapstructure:"social_weight"`
	BrandWeight    int      `yaml:"brand_weight" mapstructure:"brand_weight"`
	MinRevenue     float64  `yaml:"min_revenue" mapstructure:"min_revenue"`
	MaxRevenue     float64  `yaml:"max_revenue" mapstructure:"max_revenue"`
	Industries     []string `yaml:"industries" mapstructure:"industries"`
	Titles         []string `yaml:"titles" mapstructure:"titles"`
	FollowersHigh  int      `yaml:"followers_high" mapstructure:"followers_high"`
	FollowersLow   int      `yaml:"followers_low" mapstructure:"followers_low"`
}

// QualificationConfig configures the qualification call dialer.
type QualificationConfig struct {
	DefaultRegion string `yaml:"default_region" mapstructure:"default_region"`
	CallMinutes   int    `yaml:"call_minutes" mapstructure:"call_minutes"`
}

// BookingConfig configures meeting slots and calendar defaults.
type BookingConfig struct {
	MeetingMinutes int      `yaml:"meeting_minutes" mapstructure:"meeting_minutes"`
	Timezone       string   `yaml:"timezone" mapstructure:"timezone"`
	LookaheadDays  int      `yaml:"lookahead_days" mapstructure:"lookahead_days"`
	SlotHour       int      `yaml:"slot_hour" mapstructure:"slot_hour"`
	Weekdays       []string `yaml:"weekdays" mapstructure:"weekdays"`
	Title          string   `yaml:"title" mapstructure:"title"`
}

// SMTPConfig holds outbound email settings.
type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from"`
	FromName string `yaml:"from_name" mapstructure:"from_name"`
	NoTLS    bool   `yaml:"no_tls" mapstructure:"no_tls"`
}

// ChannelsConfig configures outbound send throttling.
type ChannelsConfig struct {
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst      int     `yaml:"burst" mapstructure:"burst"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// NotionConfig holds Notion API credentials and the lead database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// EnrichmentConfig holds the enrichment provider settings. An empty BaseURL
// selects the built-in synthetic provider.
type EnrichmentConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds Anthropic API settings for reply drafting.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// NotifyConfig configures milestone notifications.
type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
	BufferSize int    `yaml:"buffer_size" mapstructure:"buffer_size"`
}

// RetryConfig configures collaborator retries.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig configures per-collaborator circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "outreach.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("orchestrator.poll_interval_secs", 30)
	v.SetDefault("orchestrator.shutdown_timeout_secs", 15)
	v.SetDefault("orchestrator.max_concurrent_leads", 8)
	v.SetDefault("orchestrator.enrich_concurrency", 5)
	v.SetDefault("orchestrator.sequence_day_secs", 86400)
	v.SetDefault("campaign.eligible_tiers", []int{1, 2})
	v.SetDefault("campaign.channels", []string{"email", "linkedin"})
	v.SetDefault("campaign.source", "csv")
	v.SetDefault("scoring.revenue_weight", 30)
	v.SetDefault("scoring.industry_weight", 20)
	v.SetDefault("scoring.title_weight", 20)
	v.SetDefault("scoring.social_weight", 15)
	v.SetDefault("scoring.brand_weight", 15)
	v.SetDefault("scoring.min_revenue", 1_000_000)
	v.SetDefault("scoring.max_revenue", 500_000_000)
	v.SetDefault("scoring.followers_high", 10_000)
	v.SetDefault("scoring.followers_low", 1_000)
	v.SetDefault("qualification.default_region", "US")
	v.SetDefault("qualification.call_minutes", 15)
	v.SetDefault("booking.meeting_minutes", 30)
	v.SetDefault("booking.timezone", "America/New_York")
	v.SetDefault("booking.lookahead_days", 5)
	v.SetDefault("booking.slot_hour", 14)
	v.SetDefault("booking.weekdays", []string{"tuesday", "wednesday", "thursday"})
	v.SetDefault("booking.title", "Discovery Call")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("channels.rate_per_sec", 5.0)
	v.SetDefault("channels.burst", 5)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("enrichment.timeout_secs", 20)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 512)
	v.SetDefault("notify.buffer_size", 64)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 60)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration required by a command mode:
// "campaign", "serve" or "report".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres", "redis", "memory":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Store.Driver != "memory" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "report":
	case "campaign", "serve":
		if c.Orchestrator.PollIntervalSecs <= 0 {
			errs = append(errs, "orchestrator.poll_interval_secs must be > 0")
		}
		if c.Orchestrator.MaxConcurrentLeads < 1 || c.Orchestrator.MaxConcurrentLeads > 64 {
			errs = append(errs, "orchestrator.max_concurrent_leads must be between 1 and 64")
		}
		if c.Orchestrator.SequenceDaySecs <= 0 {
			errs = append(errs, "orchestrator.sequence_day_secs must be > 0")
		}
		for _, t := range c.Campaign.EligibleTiers {
			if t < 1 || t > 4 {
				errs = append(errs, fmt.Sprintf("campaign.eligible_tiers contains invalid tier %d", t))
			}
		}
		if c.Booking.MeetingMinutes <= 0 {
			errs = append(errs, "booking.meeting_minutes must be > 0")
		}
		if c.Booking.SlotHour < 0 || c.Booking.SlotHour > 23 {
			errs = append(errs, "booking.slot_hour must be between 0 and 23")
		}
		if c.Notion.Token != "" && c.Notion.LeadDB == "" {
			errs = append(errs, "notion.lead_db is required when notion.token is set")
		}
		if c.Salesforce.ClientID != "" && (c.Salesforce.Username == "" || c.Salesforce.KeyPath == "") {
			errs = append(errs, "salesforce.username and salesforce.key_path are required when salesforce.client_id is set")
		}
		if c.SMTP.Host != "" && c.SMTP.From == "" {
			errs = append(errs, "smtp.from is required when smtp.host is set")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
