package app

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/reposcout/internal/sources/airtable"
	"github.com/agentstation/reposcout/internal/sources/github"
	"github.com/agentstation/reposcout/internal/transport"
	"github.com/agentstation/reposcout/pkg/constants"
	"github.com/agentstation/reposcout/pkg/errors"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files. Adapters receive the parts they
// need through AirtableConfig and GitHubConfig; nothing below the app
// reads the environment.
type Config struct {
	// Global flags
	Verbose  bool
	Quiet    bool
	NoColor  bool
	Format   string
	LogLevel string

	// Config file
	ConfigFile string

	// Airtable
	AirtableToken   string
	AirtableAPIURL  string
	AirtableBaseID  string
	AirtableTableID string
	AirtableViewID  string
	AirtableFields  airtable.FieldNames

	// GitHub
	GitHubToken   string
	GitHubAPIURL  string
	ExcludedRepos []string

	// Retry and pacing
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	HTTPTimeout      time.Duration
	Pacing           time.Duration

	// Logging configuration
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (--config, or ~/.reposcout.yaml)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "cannot read "+configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".reposcout")
		// a missing default config file is fine
		_ = v.ReadInConfig()
	}

	config := &Config{
		ConfigFile: v.ConfigFileUsed(),

		AirtableToken:   firstNonEmpty(v.GetString("airtable.token"), os.Getenv("REACT_APP_AIRTABLE_TOKEN")),
		AirtableAPIURL:  v.GetString("airtable.api_url"),
		AirtableBaseID:  v.GetString("airtable.base_id"),
		AirtableTableID: v.GetString("airtable.table_id"),
		AirtableViewID:  v.GetString("airtable.view_id"),

		GitHubToken:   v.GetString("github.token"),
		GitHubAPIURL:  v.GetString("github.api_url"),
		ExcludedRepos: stringList(v.Get("github.excluded_repos")),

		RetryMaxAttempts: v.GetInt("retry.max_attempts"),
		RetryBaseDelay:   v.GetDuration("retry.base_delay"),
		RetryMaxDelay:    v.GetDuration("retry.max_delay"),
		HTTPTimeout:      v.GetDuration("http.timeout"),
		Pacing:           v.GetDuration("reconcile.pacing"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	// column renames only come from the config file; blanks keep the defaults
	if err := v.UnmarshalKey("airtable.fields", &config.AirtableFields); err != nil {
		return nil, errors.NewConfigError("config", "invalid airtable.fields", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("airtable.api_url", constants.AirtableAPIURL)
	v.SetDefault("airtable.base_id", constants.DefaultAirtableBaseID)
	v.SetDefault("airtable.table_id", constants.DefaultAirtableTableID)
	v.SetDefault("airtable.view_id", constants.DefaultAirtableViewID)
	v.SetDefault("github.api_url", constants.GitHubAPIURL)
	v.SetDefault("github.excluded_repos", constants.DefaultExcludedRepos)
	v.SetDefault("retry.max_attempts", constants.MaxRetries)
	v.SetDefault("retry.base_delay", constants.RetryBackoff)
	v.SetDefault("retry.max_delay", constants.MaxRetryBackoff)
	v.SetDefault("http.timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("reconcile.pacing", constants.RecordPacing)
}

// UpdateFromFlags updates config values from parsed command flags.
// Flag values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// ValidateAirtable reports a missing Airtable token.
func (c *Config) ValidateAirtable() error {
	if strings.TrimSpace(c.AirtableToken) == "" {
		return errors.NewConfigError("airtable", "AIRTABLE_TOKEN is not set", errors.ErrAPIKeyRequired)
	}
	return nil
}

// ValidateGitHub reports a missing GitHub token.
func (c *Config) ValidateGitHub() error {
	if strings.TrimSpace(c.GitHubToken) == "" {
		return errors.NewConfigError("github", "GITHUB_TOKEN is not set", errors.ErrAPIKeyRequired)
	}
	return nil
}

// Validate requires both tokens.
func (c *Config) Validate() error {
	if err := c.ValidateAirtable(); err != nil {
		return err
	}
	return c.ValidateGitHub()
}

// RetryPolicy builds the HTTP retry policy.
func (c *Config) RetryPolicy() transport.RetryPolicy {
	p := transport.DefaultRetryPolicy()
	if c.RetryMaxAttempts > 0 {
		p.MaxAttempts = c.RetryMaxAttempts
	}
	if c.RetryBaseDelay > 0 {
		p.BaseDelay = c.RetryBaseDelay
	}
	if c.RetryMaxDelay > 0 {
		p.MaxDelay = c.RetryMaxDelay
	}
	return p
}

// HTTPClient builds the client shared by both adapters.
func (c *Config) HTTPClient() *http.Client {
	timeout := c.HTTPTimeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// AirtableConfig builds the record store configuration.
func (c *Config) AirtableConfig(originKey string) airtable.Config {
	cfg := airtable.DefaultConfig()
	cfg.Token = c.AirtableToken
	cfg.OriginKey = originKey
	if c.AirtableAPIURL != "" {
		cfg.BaseURL = c.AirtableAPIURL
	}
	if c.AirtableBaseID != "" {
		cfg.BaseID = c.AirtableBaseID
	}
	if c.AirtableTableID != "" {
		cfg.TableID = c.AirtableTableID
	}
	if c.AirtableViewID != "" {
		cfg.ViewID = c.AirtableViewID
	}
	cfg.Fields = mergeFields(cfg.Fields, c.AirtableFields)
	return cfg
}

// GitHubConfig builds the search provider configuration.
func (c *Config) GitHubConfig() github.Config {
	cfg := github.DefaultConfig()
	cfg.Token = c.GitHubToken
	cfg.ExcludedRepos = c.ExcludedRepos
	if c.GitHubAPIURL != "" {
		cfg.BaseURL = c.GitHubAPIURL
	}
	return cfg
}

// loadEnvFiles loads environment variables from .env files. godotenv never
// overrides a variable that is already set, so .env.local is loaded first
// to take precedence over .env, and the real environment beats both.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// stringList accepts a YAML list or a comma separated string.
func stringList(v any) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// mergeFields overlays the configured column names on the defaults.
func mergeFields(base, override airtable.FieldNames) airtable.FieldNames {
	if v := strings.TrimSpace(override.Address); v != "" {
		base.Address = v
	}
	if v := strings.TrimSpace(override.GitHubFound); v != "" {
		base.GitHubFound = v
	}
	if v := strings.TrimSpace(override.RepoCount); v != "" {
		base.RepoCount = v
	}
	if v := strings.TrimSpace(override.RepoPaths); v != "" {
		base.RepoPaths = v
	}
	if v := strings.TrimSpace(override.OriginKey); v != "" {
		base.OriginKey = v
	}
	return base
}
