package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Spark    SparkConfig    `mapstructure:"spark"`
	Game     GameConfig     `mapstructure:"game"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
}

// HTTPConfig configures the webhook/admin listener.
type HTTPConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GRPCConfig configures the health service listener.
type GRPCConfig struct {
	Address string `mapstructure:"address"`
	Enabled bool   `mapstructure:"enabled"`
}

// WebSocketConfig configures the spectator feed.
type WebSocketConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	SendBufferSize int           `mapstructure:"send_buffer_size"`
}

// LoggingConfig controls zap output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig selects the command log backend.
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	URL        string `mapstructure:"url"`
	SQLitePath string `mapstructure:"sqlite_path"`
	MaxConns   int32  `mapstructure:"max_conns"`
	Replay     bool   `mapstructure:"replay"`
}

// SparkConfig holds Webex API credentials and identity.
type SparkConfig struct {
	APIBase       string        `mapstructure:"api_base"`
	Token         string        `mapstructure:"token"`
	AdminToken    string        `mapstructure:"admin_token"`
	BotPersonID   string        `mapstructure:"bot_person_id"`
	AdminRoom     string        `mapstructure:"admin_room"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    uint          `mapstructure:"max_retries"`
	OutboxSize    int           `mapstructure:"outbox_size"`
}

// GameConfig tunes supply construction.
type GameConfig struct {
	KingdomSize     int `mapstructure:"kingdom_size"`
	KingdomPileSize int `mapstructure:"kingdom_pile_size"`
	MaxPlayers      int `mapstructure:"max_players"`
}

// AuthConfig protects the admin endpoints.
type AuthConfig struct {
	AdminUser         string `mapstructure:"admin_user"`
	AdminPasswordHash string `mapstructure:"admin_password_hash"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.address", ":8080")
	v.SetDefault("server.http.read_timeout", 10*time.Second)
	v.SetDefault("server.http.write_timeout", 15*time.Second)
	v.SetDefault("server.http.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.grpc.address", ":9090")
	v.SetDefault("server.grpc.enabled", true)
	v.SetDefault("server.websocket.enabled", true)
	v.SetDefault("server.websocket.write_timeout", 10*time.Second)
	v.SetDefault("server.websocket.send_buffer_size", 64)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.url", "")
	v.SetDefault("database.sqlite_path", "data/dominion.db")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.replay", true)

	v.SetDefault("spark.api_base", "https://webexapis.com/v1")
	v.SetDefault("spark.token", "")
	v.SetDefault("spark.admin_token", "")
	v.SetDefault("spark.bot_person_id", "")
	v.SetDefault("spark.admin_room", "")
	v.SetDefault("spark.webhook_secret", "")
	v.SetDefault("spark.timeout", 10*time.Second)
	v.SetDefault("spark.max_retries", 4)
	v.SetDefault("spark.outbox_size", 256)

	v.SetDefault("game.kingdom_size", 10)
	v.SetDefault("game.kingdom_pile_size", 10)
	v.SetDefault("game.max_players", 6)

	v.SetDefault("auth.admin_user", "admin")
	v.SetDefault("auth.admin_password_hash", "")
}

// Load reads configuration from path (optional) and the environment.
// Environment variables use the DOMINION_ prefix, e.g. DOMINION_SPARK_TOKEN.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DOMINION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}

	if c.Game.KingdomSize <= 0 {
		return fmt.Errorf("game.kingdom_size must be positive")
	}
	if c.Game.KingdomPileSize <= 0 {
		return fmt.Errorf("game.kingdom_pile_size must be positive")
	}
	if c.Game.MaxPlayers < 2 || c.Game.MaxPlayers > 8 {
		return fmt.Errorf("game.max_players must be between 2 and 8")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}
	return nil
}
