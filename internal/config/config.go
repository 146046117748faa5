package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// Config is the complete configuration of the engine binaries.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Rules     RulesConfig     `mapstructure:"rules"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Match     MatchConfig     `mapstructure:"match"`
	Store     StoreConfig     `mapstructure:"store"`
	Spectator SpectatorConfig `mapstructure:"spectator"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RulesConfig holds the rule constants of a match.
type RulesConfig struct {
	HandSize         int `mapstructure:"hand_size"`
	HandLimit        int `mapstructure:"hand_limit"`
	StartingHand     int `mapstructure:"starting_hand"`
	CompileThreshold int `mapstructure:"compile_threshold"`
	FaceDownValue    int `mapstructure:"face_down_value"`
	// MaxSteps bounds the work done by one engine call.
	MaxSteps int `mapstructure:"max_steps"`
}

// CatalogConfig selects the card catalog. An empty path uses the embedded one.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// MatchConfig configures self-play matches.
type MatchConfig struct {
	Seed              uint64   `mapstructure:"seed"`
	PlayerProtocols   []string `mapstructure:"player_protocols"`
	OpponentProtocols []string `mapstructure:"opponent_protocols"`
	MaxTurns          int      `mapstructure:"max_turns"`
	ReplayPath        string   `mapstructure:"replay_path"`
}

// StoreConfig configures the snapshot store. An empty DSN disables it.
type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

// SpectatorConfig configures the websocket feed.
type SpectatorConfig struct {
	Address string `mapstructure:"address"`
	// TurnDelayMillis slows self-play down for human spectators.
	TurnDelayMillis int `mapstructure:"turn_delay_millis"`
}

// DefaultRules returns the standard rule constants.
func DefaultRules() RulesConfig {
	return RulesConfig{
		HandSize:         5,
		HandLimit:        5,
		StartingHand:     5,
		CompileThreshold: 10,
		FaceDownValue:    2,
		MaxSteps:         5000,
	}
}

func setDefaults(v *viper.Viper) {
	rules := DefaultRules()
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("rules.hand_size", rules.HandSize)
	v.SetDefault("rules.hand_limit", rules.HandLimit)
	v.SetDefault("rules.starting_hand", rules.StartingHand)
	v.SetDefault("rules.compile_threshold", rules.CompileThreshold)
	v.SetDefault("rules.face_down_value", rules.FaceDownValue)
	v.SetDefault("rules.max_steps", rules.MaxSteps)
	v.SetDefault("catalog.path", "")
	v.SetDefault("match.seed", 1)
	v.SetDefault("match.player_protocols", []string{"Fire", "Water", "Speed"})
	v.SetDefault("match.opponent_protocols", []string{"Death", "Life", "Light"})
	v.SetDefault("match.max_turns", 200)
	v.SetDefault("match.replay_path", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("spectator.address", ":8090")
	v.SetDefault("spectator.turn_delay_millis", 250)
}

// Load reads configuration from path, if it exists, and from COMPILE_*
// environment variables. Missing files are not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("COMPILE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs error
	errs = multierr.Append(errs, c.Rules.Validate())
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = multierr.Append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	if c.Match.MaxTurns <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("match.max_turns must be positive"))
	}
	if n := len(c.Match.PlayerProtocols); n != 0 && n != 3 {
		errs = multierr.Append(errs, fmt.Errorf("match.player_protocols needs 3 protocols, got %d", n))
	}
	if n := len(c.Match.OpponentProtocols); n != 0 && n != 3 {
		errs = multierr.Append(errs, fmt.Errorf("match.opponent_protocols needs 3 protocols, got %d", n))
	}
	return errs
}

// Validate checks the rule constants.
func (r RulesConfig) Validate() error {
	var errs error
	if r.HandSize <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("rules.hand_size must be positive"))
	}
	if r.HandLimit <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("rules.hand_limit must be positive"))
	}
	if r.StartingHand < 0 {
		errs = multierr.Append(errs, fmt.Errorf("rules.starting_hand must not be negative"))
	}
	if r.CompileThreshold <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("rules.compile_threshold must be positive"))
	}
	if r.FaceDownValue < 0 {
		errs = multierr.Append(errs, fmt.Errorf("rules.face_down_value must not be negative"))
	}
	if r.MaxSteps <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("rules.max_steps must be positive"))
	}
	return errs
}
