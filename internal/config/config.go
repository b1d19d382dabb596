// Package config provides YAML-based configuration loading for claimdesk.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/insurai/claimdesk/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the top-level claimdesk configuration, loaded from claimdesk.yaml.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Sweeper    SweeperConfig    `yaml:"sweeper"`
	Notify     NotifyConfig     `yaml:"notify"`
	Blob       BlobConfig       `yaml:"blob"`
	Assistant  AssistantConfig  `yaml:"assistant"`
	Seed       SeedConfig       `yaml:"seed"`
}

// DatabaseConfig selects and addresses the relational store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "mysql" or "sqlite"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Path     string `yaml:"path"` // sqlite file
	LogSQL   bool   `yaml:"log_sql"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// SchedulingConfig holds slot projection settings.
type SchedulingConfig struct {
	LookaheadDays int    `yaml:"lookahead_days"`
	Timezone      string `yaml:"timezone"`
}

// SweeperConfig controls the missed-appointment sweeper.
type SweeperConfig struct {
	Disabled bool          `yaml:"disabled"`
	Schedule string        `yaml:"schedule"` // cron spec, e.g. "@every 5m" or "*/5 * * * *"
	Grace    time.Duration `yaml:"grace"`
}

// NotifyConfig selects the notification channels. The outbox is always on.
type NotifyConfig struct {
	Command string        `yaml:"command"` // shell template, e.g. "mail -s '{{.Subject}}' {{.To}}"
	Slack   ChannelConfig `yaml:"slack"`
	Discord ChannelConfig `yaml:"discord"`
}

// ChannelConfig addresses a chat channel through a bot token.
type ChannelConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// BlobConfig addresses the S3 bucket holding claim documents.
type BlobConfig struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Prefix   string `yaml:"prefix"`
	Endpoint string `yaml:"endpoint"` // e.g. http://localstack:4566
}

// AssistantConfig configures the chatbot wrapper.
type AssistantConfig struct {
	Model      string        `yaml:"model"`
	APIKeyEnv  string        `yaml:"api_key_env"`
	ContextTTL time.Duration `yaml:"context_ttl"`
}

// SeedConfig lists directory and catalog rows written by "db init".
type SeedConfig struct {
	Users         []SeedUser        `yaml:"users"`
	Employees     []SeedEmployee    `yaml:"employees"`
	Policies      []SeedPolicy      `yaml:"policies"`
	AgentPolicies []SeedAgentPolicy `yaml:"agent_policies"`
}

// SeedUser is a directory user.
type SeedUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
}

// SeedEmployee is an employee profile linked to a user by username.
type SeedEmployee struct {
	FullName    string `yaml:"full_name"`
	Department  string `yaml:"department"`
	Designation string `yaml:"designation"`
	Username    string `yaml:"username"`
}

// SeedPolicy is a policy catalog entry.
type SeedPolicy struct {
	Code           string          `yaml:"code"`
	Name           string          `yaml:"name"`
	Description    string          `yaml:"description"`
	Type           string          `yaml:"type"`
	Premium        decimal.Decimal `yaml:"premium"`
	CoverageAmount decimal.Decimal `yaml:"coverage_amount"`
	ClaimLimit     decimal.Decimal `yaml:"claim_limit"`
}

// SeedAgentPolicy authorizes an agent (by username) for a policy (by code).
type SeedAgentPolicy struct {
	Agent  string `yaml:"agent"`
	Policy string `yaml:"policy"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location returns the time zone slots are projected in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduling.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "claimdesk.db"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Database == "" {
			c.Database.Database = "claimdesk"
		}
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Scheduling.LookaheadDays == 0 {
		c.Scheduling.LookaheadDays = 14
	}
	if c.Scheduling.Timezone == "" {
		c.Scheduling.Timezone = "Local"
	}
	if c.Sweeper.Schedule == "" {
		c.Sweeper.Schedule = "@every 5m"
	}
	if c.Sweeper.Grace == 0 {
		c.Sweeper.Grace = 15 * time.Minute
	}
	if c.Blob.Region == "" {
		c.Blob.Region = "us-east-1"
	}
	if c.Assistant.Model == "" {
		c.Assistant.Model = "gpt-4o-mini"
	}
	if c.Assistant.APIKeyEnv == "" {
		c.Assistant.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Assistant.ContextTTL == 0 {
		c.Assistant.ContextTTL = 10 * time.Minute
	}
}

// maxLookaheadDays matches the slot projector's horizon limit.
const maxLookaheadDays = 366

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite":
	case "mysql":
		if c.Database.Port < 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port %d out of range", c.Database.Port))
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be mysql or sqlite", c.Database.Driver))
	}
	if c.Scheduling.LookaheadDays < 0 || c.Scheduling.LookaheadDays > maxLookaheadDays {
		errs = append(errs, fmt.Sprintf("scheduling.lookahead_days must be between 0 and %d", maxLookaheadDays))
	}
	if _, err := time.LoadLocation(c.Scheduling.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("scheduling.timezone %q: %v", c.Scheduling.Timezone, err))
	}
	if _, err := cron.ParseStandard(c.Sweeper.Schedule); err != nil {
		errs = append(errs, fmt.Sprintf("sweeper.schedule %q: %v", c.Sweeper.Schedule, err))
	}
	if c.Sweeper.Grace < 0 {
		errs = append(errs, "sweeper.grace must not be negative")
	}
	if (c.Notify.Slack.BotToken == "") != (c.Notify.Slack.ChannelID == "") {
		errs = append(errs, "notify.slack needs both bot_token and channel_id")
	}
	if (c.Notify.Discord.BotToken == "") != (c.Notify.Discord.ChannelID == "") {
		errs = append(errs, "notify.discord needs both bot_token and channel_id")
	}

	users := make(map[string]models.Role, len(c.Seed.Users))
	for i, u := range c.Seed.Users {
		if u.Username == "" {
			errs = append(errs, fmt.Sprintf("seed.users[%d].username is required", i))
		}
		role, ok := models.ParseRole(u.Role)
		if !ok {
			errs = append(errs, fmt.Sprintf("seed.users[%d].role %q must be EMPLOYEE, AGENT or ADMIN", i, u.Role))
		}
		users[u.Username] = role
	}
	for i, e := range c.Seed.Employees {
		if e.FullName == "" {
			errs = append(errs, fmt.Sprintf("seed.employees[%d].full_name is required", i))
		}
		if e.Username != "" {
			if _, ok := users[e.Username]; !ok {
				errs = append(errs, fmt.Sprintf("seed.employees[%d].username %q is not a seeded user", i, e.Username))
			}
		}
	}
	policies := make(map[string]bool, len(c.Seed.Policies))
	for i, p := range c.Seed.Policies {
		if p.Code == "" {
			errs = append(errs, fmt.Sprintf("seed.policies[%d].code is required", i))
		}
		if p.Name == "" {
			errs = append(errs, fmt.Sprintf("seed.policies[%d].name is required", i))
		}
		if p.ClaimLimit.IsNegative() {
			errs = append(errs, fmt.Sprintf("seed.policies[%d].claim_limit must not be negative", i))
		}
		policies[p.Code] = true
	}
	for i, ap := range c.Seed.AgentPolicies {
		if role, ok := users[ap.Agent]; !ok || role != models.RoleAgent {
			errs = append(errs, fmt.Sprintf("seed.agent_policies[%d].agent %q is not a seeded agent", i, ap.Agent))
		}
		if !policies[ap.Policy] {
			errs = append(errs, fmt.Sprintf("seed.agent_policies[%d].policy %q is not a seeded policy", i, ap.Policy))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
