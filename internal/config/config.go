package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	Retell RetellConfig
	LLM    LLMConfig
}

type AppConfig struct {
	Env   string
	Port  int
	Debug bool

	// WebhookBaseURL is the externally reachable base URL used to construct
	// provider-facing callback URLs (lifecycle webhook, live LLM socket).
	WebhookBaseURL string

	// FrontendOrigin is the browser-facing origin allowed by CORS.
	FrontendOrigin string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit for managed-Postgres posture.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type RetellConfig struct {
	APIKey  string
	BaseURL string

	// MaxConcurrentCalls caps simultaneous outbound calls per agent.
	MaxConcurrentCalls int
}

type LLMConfig struct {
	APIKey string
	Model  string
}

const (
	defaultRetellBaseURL      = "https://api.retellai.com"
	defaultMaxConcurrentCalls = 5
	defaultModel              = "claude-haiku-4-5-20251001"
)

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.Debug = boolEnv("APP_DEBUG")
	c.App.WebhookBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("WEBHOOK_BASE_URL")), "/")
	c.App.FrontendOrigin = strings.TrimSpace(os.Getenv("FRONTEND_ORIGIN"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Retell.APIKey = os.Getenv("RETELL_API_KEY")
	c.Retell.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("RETELL_BASE_URL")), "/")
	c.Retell.MaxConcurrentCalls = intEnv("RETELL_MAX_CONCURRENT_CALLS")

	c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	c.LLM.Model = strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.WebhookBaseURL == "" {
		errs = append(errs, errors.New("WEBHOOK_BASE_URL is required"))
	} else if !strings.HasPrefix(c.App.WebhookBaseURL, "http://") && !strings.HasPrefix(c.App.WebhookBaseURL, "https://") {
		errs = append(errs, fmt.Errorf("WEBHOOK_BASE_URL must be an absolute URL, got %q", c.App.WebhookBaseURL))
	}
	if c.App.FrontendOrigin == "" {
		// Local-friendly default; production must be explicit.
		if c.IsProduction() {
			errs = append(errs, errors.New("FRONTEND_ORIGIN is required in production"))
		} else {
			c.App.FrontendOrigin = "http://localhost:3000"
		}
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Retell.APIKey == "" {
		errs = append(errs, errors.New("RETELL_API_KEY is required"))
	}
	if c.Retell.BaseURL == "" {
		c.Retell.BaseURL = defaultRetellBaseURL
	}
	if c.Retell.MaxConcurrentCalls <= 0 {
		c.Retell.MaxConcurrentCalls = defaultMaxConcurrentCalls
	}

	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("ANTHROPIC_API_KEY is required"))
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModel
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// WebhookURL is the provider-facing callback URL for call lifecycle events.
func (c Config) WebhookURL() string {
	return c.App.WebhookBaseURL + "/api/webhook/retell"
}

// LLMSocketURL is the provider-facing URL for the live conversation socket.
// Retell requires a ws/wss scheme here.
func (c Config) LLMSocketURL() string {
	u := c.App.WebhookBaseURL + "/llm-websocket"
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func intEnv(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func boolEnv(key string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return false
	}
	return b
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
