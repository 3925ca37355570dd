package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

type Config struct {
	Database struct {
		Driver   string `mapstructure:"driver"` // sqlite or postgres
		Path     string `mapstructure:"path"`
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`
	Player struct {
		Command       string `mapstructure:"command"`
		DefaultVolume int    `mapstructure:"default_volume"` // 0 to 100
		SeekSeconds   int    `mapstructure:"seek_seconds"`
	} `mapstructure:"player"`
	Station struct {
		PollIntervalMs  int    `mapstructure:"poll_interval_ms"`
		Debug           bool   `mapstructure:"debug"`
		DebugLog        string `mapstructure:"debug_log"`
		KeybindingsPath string `mapstructure:"keybindings_path"`
		DefaultPleasure int    `mapstructure:"default_pleasure"`
		DefaultArousal  int    `mapstructure:"default_arousal"`
		Locale          string `mapstructure:"locale"` // BCP 47, orders the library
	} `mapstructure:"station"`
	Server struct {
		Enabled      bool   `mapstructure:"enabled"`
		Addr         string `mapstructure:"addr"`
		MetricsPath  string `mapstructure:"metrics_path"`
		JWTSecret    string `mapstructure:"jwt_secret"`
		PasswordHash string `mapstructure:"password_hash"` // bcrypt
		LogLevel     string `mapstructure:"log_level"`
	} `mapstructure:"server"`
	Scanner struct {
		DefaultRating int    `mapstructure:"default_rating"`
		Formats       string `mapstructure:"formats"` // CSV: "mp3,flac"
	} `mapstructure:"scanner"`
}

// PollInterval is the playback status polling period.
func (c *Config) PollInterval() time.Duration {
	if c.Station.PollIntervalMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.Station.PollIntervalMs) * time.Millisecond
}

// Language parses station.locale, falling back to the root collation.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.Station.Locale)
	if err != nil {
		return language.Und
	}
	return tag
}

// ScannerFormats returns the configured file extensions, e.g. [".mp3"].
func (c *Config) ScannerFormats() []string {
	var result []string
	for _, f := range strings.Split(c.Scanner.Formats, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if !strings.HasPrefix(f, ".") {
			f = "." + f
		}
		result = append(result, f)
	}
	return result
}

func Load() *Config {
	// .env is optional; real environment variables always win
	if err := godotenv.Load(); err == nil {
		log.Println("Info: loaded .env file")
	}

	v := viper.New()
	v.SetEnvPrefix("AIMU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Register keys
	for _, key := range []string{
		"database.driver",
		"database.path",
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.name",
		"player.command",
		"player.default_volume",
		"player.seek_seconds",
		"station.poll_interval_ms",
		"station.debug",
		"station.debug_log",
		"station.keybindings_path",
		"station.default_pleasure",
		"station.default_arousal",
		"station.locale",
		"server.enabled",
		"server.addr",
		"server.metrics_path",
		"server.jwt_secret",
		"server.password_hash",
		"server.log_level",
		"scanner.default_rating",
		"scanner.formats",
	} {
		v.BindEnv(key)
	}

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Config error: %s", err)
		} else {
			log.Println("Info: config.yaml not found, using Environment Variables only.")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode config: %v", err)
	}

	if cfg.Server.PasswordHash != "" && cfg.Server.JWTSecret == "" {
		log.Println("Warning: server.password_hash is set without server.jwt_secret, login is disabled")
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	// Database
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./music.db")
	v.SetDefault("database.port", "5432")

	// Player
	v.SetDefault("player.command", "ffplay")
	v.SetDefault("player.default_volume", 80)
	v.SetDefault("player.seek_seconds", 10)

	// Station
	v.SetDefault("station.poll_interval_ms", 500)
	v.SetDefault("station.debug", false)
	v.SetDefault("station.keybindings_path", "./keybindings.yaml")
	v.SetDefault("station.default_pleasure", 3)
	v.SetDefault("station.default_arousal", 3)
	v.SetDefault("station.locale", "und")

	// Server
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", "127.0.0.1:8081")
	v.SetDefault("server.metrics_path", "/_metrics")
	v.SetDefault("server.log_level", "error")

	// Scanner
	v.SetDefault("scanner.default_rating", 1)
	v.SetDefault("scanner.formats", "mp3")
}
