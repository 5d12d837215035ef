// Package config provides centralized configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/danielolaszy/boardbot/pkg/models"
)

// Config holds all configuration parameters for the application.
//
// Credentials come from environment variables; everything else (the board
// coordinates and the tracker mapping tables) comes from a YAML file so that
// no org/repo/state-id literal is hardcoded in the core.
type Config struct {
	GitHub GitHubConfig
	Linear LinearConfig `mapstructure:"linear"`
	Bot    BotConfig    `mapstructure:"bot"`
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	Token         string
	WebhookSecret string
}

// LinearConfig holds the Linear API key and the static mapping tables used
// to translate between canonical statuses and Linear workflow states.
type LinearConfig struct {
	APIKey string

	// Teams lists the team prefixes recognized in issue titles (e.g. JS, GO).
	Teams []string `mapstructure:"teams"`

	// States maps a tracker state key (readyForDev, inProgress, inReview,
	// done) to a team-scoped Linear workflow state id.
	States map[string]map[string]string `mapstructure:"states"`

	// Priorities maps a Linear priority label to a board Priority option name.
	Priorities map[string]string `mapstructure:"priorities"`

	// Sizes maps a Linear estimate (as a decimal string) to a board Size
	// option name.
	Sizes map[string]string `mapstructure:"sizes"`
}

// BotConfig holds the board coordinates and behavioral knobs.
type BotConfig struct {
	Organization  string `mapstructure:"organization"`
	Repository    string `mapstructure:"repository"`
	ProjectNumber int    `mapstructure:"project_number"`

	// BotLogin is the fixed assignee identity used by the legacy unassign
	// variant. Empty disables it and the comment author is used instead.
	BotLogin string `mapstructure:"bot_login"`

	ListenAddr    string        `mapstructure:"listen_addr"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	// StatusNames overrides the display names of the board's Status
	// options, keyed by canonical status name.
	StatusNames map[string]string `mapstructure:"status_names"`

	// ContributorsFile is the JSON document maintained in the target
	// repository by the contributor command.
	ContributorsFile   string `mapstructure:"contributors_file"`
	ContributorsBranch string `mapstructure:"contributors_branch"`
}

// LoadConfig initializes and loads configuration from environment variables
// and the YAML file at path. An empty path loads environment variables only,
// with defaults for everything else.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Map specific environment variables
	v.BindEnv("github.token", "GITHUB_TOKEN")
	v.BindEnv("github.webhook_secret", "GITHUB_WEBHOOK_SECRET")
	v.BindEnv("linear.apikey", "LINEAR_API_KEY")

	v.SetDefault("bot.listen_addr", ":8080")
	v.SetDefault("bot.sweep_interval", 2*time.Minute)
	v.SetDefault("bot.contributors_file", "contributors.json")
	v.SetDefault("bot.contributors_branch", "main")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	config := &Config{
		GitHub: GitHubConfig{
			Token:         v.GetString("github.token"),
			WebhookSecret: v.GetString("github.webhook_secret"),
		},
	}
	if err := v.UnmarshalKey("linear", &config.Linear); err != nil {
		return nil, fmt.Errorf("failed to parse linear configuration: %w", err)
	}
	config.Linear.APIKey = v.GetString("linear.apikey")
	if err := v.UnmarshalKey("bot", &config.Bot); err != nil {
		return nil, fmt.Errorf("failed to parse bot configuration: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// validateConfig ensures that all required configuration values are provided.
func validateConfig(config *Config) error {
	var missingVars []string

	if config.GitHub.Token == "" {
		missingVars = append(missingVars, "GITHUB_TOKEN")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	var missingFields []string
	if config.Bot.Organization == "" {
		missingFields = append(missingFields, "bot.organization")
	}
	if config.Bot.Repository == "" {
		missingFields = append(missingFields, "bot.repository")
	}
	if config.Bot.ProjectNumber <= 0 {
		missingFields = append(missingFields, "bot.project_number")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required configuration fields: %v", missingFields)
	}

	return nil
}

// ValidateLinearConfig validates Linear-specific configuration. It is only
// required for the commands that push to the tracker.
func ValidateLinearConfig(config *Config) error {
	var missingVars []string

	if config.Linear.APIKey == "" {
		missingVars = append(missingVars, "LINEAR_API_KEY")
	}
	if len(config.Linear.Teams) == 0 {
		missingVars = append(missingVars, "linear.teams")
	}
	if len(config.Linear.States) == 0 {
		missingVars = append(missingVars, "linear.states")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required linear configuration: %v", missingVars)
	}

	return nil
}

// StatusNames returns the canonical-status to board-option-name mapping,
// applying configured overrides on top of the defaults.
func (c *Config) StatusNames() map[models.Status]string {
	names := make(map[models.Status]string, len(models.DefaultStatusNames))
	for status, name := range models.DefaultStatusNames {
		names[status] = name
	}
	for status, name := range c.Bot.StatusNames {
		if models.Status(status).Valid() {
			names[models.Status(status)] = name
		}
	}
	return names
}
