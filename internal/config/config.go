package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr  string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath    string     `env:"DB_PATH" envDefault:"data/wordrace.db"`
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir    string     `env:"SPA_DIR"`
	PublicURL string     `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	RedisURL     string        `env:"REDIS_URL"`
	WordCacheTTL time.Duration `env:"WORD_CACHE_TTL" envDefault:"1h"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"180m"`

	RoundDuration time.Duration `env:"ROUND_DURATION" envDefault:"10s"`
	RoundWords    int           `env:"ROUND_WORDS" envDefault:"10"`
	StartDelay    time.Duration `env:"START_DELAY" envDefault:"3s"`

	WordsInUnit int `env:"WORDS_IN_UNIT" envDefault:"20"`
	UnitsInBook int `env:"UNITS_IN_BOOK" envDefault:"30"`
	BooksCount  int `env:"BOOKS_COUNT" envDefault:"6"`

	WSSendBuffer   int           `env:"WS_SEND_BUFFER" envDefault:"64"`
	WSWriteTimeout time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"5s"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.JWTSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generating jwt secret: %w", err)
		}
		cfg.JWTSecret = hex.EncodeToString(b)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the game engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.RoundDuration <= 0 {
		errs = append(errs, errors.New("ROUND_DURATION must be positive"))
	}
	if c.StartDelay < 0 {
		errs = append(errs, errors.New("START_DELAY must not be negative"))
	}
	if c.RoundWords <= 0 {
		errs = append(errs, errors.New("ROUND_WORDS must be positive"))
	}
	if c.WordsInUnit <= 0 || c.UnitsInBook <= 0 || c.BooksCount <= 0 {
		errs = append(errs, errors.New("WORDS_IN_UNIT, UNITS_IN_BOOK and BOOKS_COUNT must be positive"))
	}
	if c.RoundWords > c.WordsInUnit {
		errs = append(errs, fmt.Errorf("ROUND_WORDS (%d) exceeds WORDS_IN_UNIT (%d)", c.RoundWords, c.WordsInUnit))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.WSSendBuffer <= 0 || c.WSWriteTimeout <= 0 {
		errs = append(errs, errors.New("WS_SEND_BUFFER and WS_WRITE_TIMEOUT must be positive"))
	}
	if c.PublicURL != "" {
		if u, err := url.Parse(c.PublicURL); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("PUBLIC_URL %q must be an absolute URL", c.PublicURL))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// WordsCount is the size of the whole dictionary implied by the layout.
func (c *Config) WordsCount() int {
	return c.WordsInUnit * c.UnitsInBook * c.BooksCount
}

// OriginPatterns returns the browser origins allowed to open WebSockets:
// the host of PUBLIC_URL.
func (c *Config) OriginPatterns() []string {
	u, err := url.Parse(c.PublicURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
