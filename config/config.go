// Package config loads server settings from the environment, command line
// flags and an optional TOML tuning file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/TeamRekursion/darkmoon-server/session"
)

type Config struct {
	Port           int           `env:"PORT" envDefault:"4444"`
	Addr           string        `env:"ADDR"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:4444,https://deploy-preview-*--darkmoon-dev.netlify.app,https://darkmoon-dev.netlify.app"`
	ChatProfanity  []string      `env:"CHAT_PROFANITY" envSeparator:","`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment bool          `env:"LOG_DEVELOPMENT"`
	TickInterval   time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	RedisURL       string        `env:"REDIS_URL"`
	RedisChannel   string        `env:"REDIS_CHANNEL" envDefault:"darkmoon:events"`
	TuningFile     string        `env:"TUNING_FILE"`

	Game Game
}

// Game holds the round constants a tuning file may override.
type Game struct {
	TagCooldown     time.Duration `toml:"tag_cooldown"`
	BaseDuration    time.Duration `toml:"base_duration"`
	PerPlayerBonus  time.Duration `toml:"per_player_bonus"`
	MaxTagScore     float64       `toml:"max_tag_score"`
	DefaultDuration time.Duration `toml:"default_duration"`
}

func DefaultGame() Game {
	t := session.DefaultTuning()
	return Game{
		TagCooldown:     t.TagCooldown,
		BaseDuration:    t.BaseDuration,
		PerPlayerBonus:  t.PerPlayerBonus,
		MaxTagScore:     t.MaxTagScore,
		DefaultDuration: 60 * time.Second,
	}
}

func (g Game) Tuning() session.Tuning {
	return session.Tuning{
		TagCooldown:    g.TagCooldown,
		BaseDuration:   g.BaseDuration,
		PerPlayerBonus: g.PerPlayerBonus,
		MaxTagScore:    g.MaxTagScore,
	}
}

// ListenAddr returns Addr when set, otherwise ":<Port>".
func (c Config) ListenAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return fmt.Sprintf(":%d", c.Port)
}

// ParseConfig layers flags over the environment, then applies the tuning
// file if one is configured.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Game: DefaultGame()}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The server port")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The server listen address (overrides -port)")
	fs.StringVar(&cfg.TuningFile, "tuning", cfg.TuningFile, "Path to a TOML game tuning file")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}
	if cfg.TuningFile != "" {
		if _, err := toml.DecodeFile(cfg.TuningFile, &cfg.Game); err != nil {
			return Config{}, fmt.Errorf("load tuning file %s: %w", cfg.TuningFile, err)
		}
	}
	if err := cfg.Game.validate(); err != nil {
		return Config{}, err
	}
	if cfg.TickInterval <= 0 {
		return Config{}, errors.New("config: tick interval must be positive")
	}
	return cfg, nil
}

func (g Game) validate() error {
	if g.TagCooldown < 0 || g.BaseDuration < 0 || g.PerPlayerBonus < 0 || g.DefaultDuration < 0 {
		return errors.New("config: game durations must not be negative")
	}
	if g.MaxTagScore < 0 {
		return errors.New("config: max tag score must not be negative")
	}
	return nil
}
