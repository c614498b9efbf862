// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone database for minimal images

	"github.com/joho/godotenv"

	"github.com/ericfisherdev/replypilot/internal/domain/model"
)

const envPrefix = "REPLYPILOT_"

// DotEnvFile is the optional file read before the process environment.
const DotEnvFile = ".env"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ThreadsToken    string
	ThreadsUserID   string
	ThreadsUsername string
	ThreadsBaseURL  string

	GroqAPIKey  string
	GroqModel   string
	GroqBaseURL string

	Persona     model.Persona
	CrisisReply string
	Policy      model.ReplyPolicy

	DailyReplyLimit int
	BatchSize       int
	Location        *time.Location
	FetchDelay      time.Duration
	DispatchDelay   time.Duration
	HTTPTimeout     time.Duration
	PollInterval    time.Duration

	ListenAddr string
	DBPath     string
	// SecretKey is the decoded AES-256 key; nil disables credential storage.
	SecretKey []byte

	LogLevel  string
	LogFormat string
}

// HasThreadsCredentials reports whether a Threads client can be built from c.
func (c *Config) HasThreadsCredentials() bool {
	return c.ThreadsToken != "" && c.ThreadsUserID != ""
}

// HasGroqCredentials reports whether an LLM client can be built from c.
func (c *Config) HasGroqCredentials() bool {
	return c.GroqAPIKey != ""
}

// Load reads configuration from the environment and returns a validated
// Config. A .env file in the working directory is loaded first; variables
// already set in the process environment take precedence over it. Every
// variable is optional: missing credentials leave the corresponding client
// unconfigured until they are supplied through the API.
func Load() (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DotEnvFile, err)
	}

	p := &parser{}
	persona := model.DefaultPersona()

	cfg := &Config{
		ThreadsToken:    p.str("THREADS_ACCESS_TOKEN", ""),
		ThreadsUserID:   p.str("THREADS_USER_ID", ""),
		ThreadsUsername: strings.TrimPrefix(p.str("THREADS_USERNAME", ""), "@"),
		ThreadsBaseURL:  p.str("THREADS_BASE_URL", "https://graph.threads.net/v1.0"),

		GroqAPIKey:  p.str("GROQ_API_KEY", ""),
		GroqModel:   p.str("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqBaseURL: p.str("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),

		Persona: model.Persona{
			Name:               p.str("PERSONA_NAME", persona.Name),
			Description:        p.str("PERSONA_DESCRIPTION", persona.Description),
			Product:            p.str("PERSONA_PRODUCT", persona.Product),
			ProductDescription: p.str("PERSONA_PRODUCT_DESCRIPTION", persona.ProductDescription),
			Tone:               p.str("PERSONA_TONE", persona.Tone),
			Language:           p.str("PERSONA_LANGUAGE", persona.Language),
		},
		CrisisReply: p.str("CRISIS_REPLY", ""),
		Policy: model.ReplyPolicy{
			AutoSendThreshold: p.float("AUTO_SEND_THRESHOLD", 0.85),
			LearningMode:      p.bool("LEARNING_MODE", true),
		},

		DailyReplyLimit: p.positiveInt("DAILY_REPLY_LIMIT", 15),
		BatchSize:       p.positiveInt("BATCH_SIZE", 10),
		FetchDelay:      p.duration("FETCH_DELAY", 200*time.Millisecond),
		DispatchDelay:   p.duration("DISPATCH_DELAY", time.Second),
		HTTPTimeout:     p.duration("HTTP_TIMEOUT", 30*time.Second),
		PollInterval:    p.duration("POLL_INTERVAL", 15*time.Minute),

		ListenAddr: p.str("LISTEN_ADDR", "127.0.0.1:8080"),
		DBPath:     p.str("DB_PATH", "replypilot.db"),

		LogLevel:  strings.ToLower(p.str("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(p.str("LOG_FORMAT", "text")),
	}
	cfg.Location = p.location("TIMEZONE", "Europe/Kyiv")
	cfg.SecretKey = p.secretKey("SECRET_KEY")

	if p.err != nil {
		return nil, p.err
	}

	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("%sAUTO_SEND_THRESHOLD: %w", envPrefix, err)
	}
	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("%sHTTP_TIMEOUT must be positive, got %s", envPrefix, cfg.HTTPTimeout)
	}
	if cfg.PollInterval < 0 {
		return nil, fmt.Errorf("%sPOLL_INTERVAL must not be negative, got %s", envPrefix, cfg.PollInterval)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("%sLOG_FORMAT must be text or json, got %q", envPrefix, cfg.LogFormat)
	}

	return cfg, nil
}

// parser reads prefixed variables and keeps the first error encountered.
type parser struct {
	err error
}

func (p *parser) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (p *parser) fail(key, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s%s has invalid value %q: %w", envPrefix, key, v, err)
	}
}

func (p *parser) str(key, def string) string {
	if v, ok := p.lookup(key); ok {
		return v
	}
	return def
}

func (p *parser) bool(key string, def bool) bool {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return b
}

func (p *parser) float(key string, def float64) float64 {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return f
}

func (p *parser) positiveInt(key string, def int) int {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err == nil && n <= 0 {
		err = errors.New("must be positive")
	}
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func (p *parser) location(key, def string) *time.Location {
	name := p.str(key, def)
	loc, err := time.LoadLocation(name)
	if err != nil {
		p.fail(key, name, err)
		return time.UTC
	}
	return loc
}

// secretKey decodes a 64-character hex string into a 32-byte key.
func (p *parser) secretKey(key string) []byte {
	v, ok := p.lookup(key)
	if !ok {
		return nil
	}
	b, err := hex.DecodeString(v)
	if err == nil && len(b) != 32 {
		err = fmt.Errorf("decoded key is %d bytes, want 32", len(b))
	}
	if err != nil {
		p.fail(key, "<redacted>", err)
		return nil
	}
	return b
}
