package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config root configuration
type Config struct {
	Data     DataConfig     `mapstructure:"data"`
	Channels ChannelsConfig `mapstructure:"channels"`
	Booking  BookingConfig  `mapstructure:"booking"`
	Sweeper  SweeperConfig  `mapstructure:"sweeper"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Log      LogConfig      `mapstructure:"log"`
}

// DataConfig local storage settings
type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

// ChannelsConfig channel settings
type ChannelsConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig telegram bot settings
type TelegramConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Token     string   `mapstructure:"token"`
	BlockFrom []string `mapstructure:"block_from"`
}

// BookingConfig booking rules
type BookingConfig struct {
	// Timezone the dock operates in; slot dates are interpreted here.
	Timezone     string `mapstructure:"timezone"`
	SuperadminID int64  `mapstructure:"superadmin_id"`
	// LeadTimeMinutes is the minimum gap between now and the earliest
	// selectable slot.
	LeadTimeMinutes int `mapstructure:"lead_time_minutes"`
	// RecencyWindow bounds how many of a requester's latest requests
	// stay editable by the requester.
	RecencyWindow      int  `mapstructure:"recency_window"`
	BlockDoubleBooking bool `mapstructure:"block_double_booking"`
	// FormTTLMinutes is how long a half-filled intake dialogue
	// survives without input.
	FormTTLMinutes int `mapstructure:"form_ttl_minutes"`
}

// SweeperConfig completion sweeper settings
type SweeperConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Schedule          string `mapstructure:"schedule"`
	GraceHours        int    `mapstructure:"grace_hours"`
	ReminderLeadHours int    `mapstructure:"reminder_lead_hours"`
}

// LedgerConfig xlsx mirror settings
type LedgerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig application logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DefaultConfig returns config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Dir: filepath.Join(ConfigDir(), "data"),
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled:   true,
				BlockFrom: []string{},
			},
		},
		Booking: BookingConfig{
			Timezone:        "Europe/Kyiv",
			LeadTimeMinutes: 60,
			RecencyWindow:   20,
			FormTTLMinutes:  60,
		},
		Sweeper: SweeperConfig{
			Enabled:           true,
			Schedule:          "*/5 * * * *",
			GraceHours:        20,
			ReminderLeadHours: 24,
		},
		Ledger: LedgerConfig{
			Enabled: true,
			Path:    filepath.Join(ConfigDir(), "data", "requests.xlsx"),
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
	}
}

// ConfigDir returns the dockslot config directory
func ConfigDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".dockslot")
}

// ConfigPath returns the config file path
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load loads config from file or returns defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := ConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := Save(cfg); err != nil {
			return cfg, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetEnvPrefix("DOCKSLOT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, err
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.MatchName = func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		}
	}); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func normalizeKey(input string) string {
	input = strings.ReplaceAll(input, "_", "")
	input = strings.ReplaceAll(input, "-", "")
	return strings.ToLower(input)
}

// Save saves config to file
func Save(cfg *Config) error {
	configPath := ConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

// Validate checks that the configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Data.Dir) == "" {
		c.Data.Dir = filepath.Join(ConfigDir(), "data")
	}

	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("booking.timezone %q is not a valid IANA zone: %w", c.Booking.Timezone, err)
	}

	if c.Booking.LeadTimeMinutes < 0 {
		return fmt.Errorf("booking.lead_time_minutes must not be negative, got %d", c.Booking.LeadTimeMinutes)
	}
	if c.Booking.LeadTimeMinutes == 0 {
		c.Booking.LeadTimeMinutes = 60
	}

	if c.Booking.RecencyWindow < 0 {
		return fmt.Errorf("booking.recency_window must not be negative, got %d", c.Booking.RecencyWindow)
	}
	if c.Booking.RecencyWindow == 0 {
		c.Booking.RecencyWindow = 20
	}

	if c.Booking.FormTTLMinutes < 0 {
		return fmt.Errorf("booking.form_ttl_minutes must not be negative, got %d", c.Booking.FormTTLMinutes)
	}

	if strings.TrimSpace(c.Sweeper.Schedule) == "" {
		c.Sweeper.Schedule = "*/5 * * * *"
	}
	if c.Sweeper.GraceHours < 0 {
		return fmt.Errorf("sweeper.grace_hours must not be negative, got %d", c.Sweeper.GraceHours)
	}
	if c.Sweeper.GraceHours == 0 {
		c.Sweeper.GraceHours = 20
	}
	if c.Sweeper.ReminderLeadHours < 0 {
		return fmt.Errorf("sweeper.reminder_lead_hours must not be negative, got %d", c.Sweeper.ReminderLeadHours)
	}

	if c.Ledger.Enabled && strings.TrimSpace(c.Ledger.Path) == "" {
		c.Ledger.Path = filepath.Join(c.DataDir(), "requests.xlsx")
	}

	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	if level == "" {
		c.Log.Level = "info"
	} else {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[level] {
			return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
		}
		c.Log.Level = level
	}

	return nil
}

// DataDir returns the expanded data directory path
func (c *Config) DataDir() string {
	dir := strings.TrimSpace(c.Data.Dir)
	if dir == "" {
		return filepath.Join(ConfigDir(), "data")
	}
	if dir[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(ConfigDir(), "data")
		}
		rest := strings.TrimPrefix(dir[1:], string(filepath.Separator))
		rest = strings.TrimPrefix(rest, "/")
		return filepath.Join(homeDir, rest)
	}
	return dir
}

// DatabasePath returns the sqlite database path inside the data dir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir(), "dockslot.sqlite")
}

// Location resolves the configured dock timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Booking.Timezone)
}

// LeadTime returns the slot lead time as a duration.
func (c *Config) LeadTime() time.Duration {
	return time.Duration(c.Booking.LeadTimeMinutes) * time.Minute
}

// FormTTL returns the intake dialogue expiry as a duration.
func (c *Config) FormTTL() time.Duration {
	return time.Duration(c.Booking.FormTTLMinutes) * time.Minute
}

// Grace returns the completion grace period as a duration.
func (c *Config) Grace() time.Duration {
	return time.Duration(c.Sweeper.GraceHours) * time.Hour
}

// ReminderLead returns the reminder lead as a duration.
func (c *Config) ReminderLead() time.Duration {
	return time.Duration(c.Sweeper.ReminderLeadHours) * time.Hour
}
