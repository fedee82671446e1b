package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Booking.Timezone != "Europe/Kyiv" {
		t.Errorf("expected timezone Europe/Kyiv, got %q", cfg.Booking.Timezone)
	}
	if cfg.Booking.LeadTimeMinutes != 60 {
		t.Errorf("expected LeadTimeMinutes=60, got %d", cfg.Booking.LeadTimeMinutes)
	}
	if cfg.Booking.RecencyWindow != 20 {
		t.Errorf("expected RecencyWindow=20, got %d", cfg.Booking.RecencyWindow)
	}
	if cfg.Sweeper.Schedule != "*/5 * * * *" {
		t.Errorf("expected default sweeper schedule, got %q", cfg.Sweeper.Schedule)
	}
	if !cfg.Channels.Telegram.Enabled {
		t.Error("expected telegram enabled by default")
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	cfg := &Config{
		Booking: BookingConfig{Timezone: "Europe/Kyiv"},
		Ledger:  LedgerConfig{Enabled: true},
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Booking.LeadTimeMinutes != 60 {
		t.Errorf("expected lead time default 60, got %d", cfg.Booking.LeadTimeMinutes)
	}
	if cfg.Booking.RecencyWindow != 20 {
		t.Errorf("expected recency window default 20, got %d", cfg.Booking.RecencyWindow)
	}
	if cfg.Sweeper.Schedule == "" {
		t.Error("expected sweeper schedule default filled in")
	}
	if cfg.Sweeper.GraceHours != 20 {
		t.Errorf("expected grace default 20, got %d", cfg.Sweeper.GraceHours)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level default info, got %q", cfg.Log.Level)
	}
	if cfg.Ledger.Path == "" {
		t.Error("expected ledger path default filled in")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "bad timezone",
			mutate: func(c *Config) { c.Booking.Timezone = "Mars/Olympus" },
			want:   "timezone",
		},
		{
			name:   "negative lead time",
			mutate: func(c *Config) { c.Booking.LeadTimeMinutes = -5 },
			want:   "lead_time_minutes",
		},
		{
			name:   "negative grace",
			mutate: func(c *Config) { c.Sweeper.GraceHours = -1 },
			want:   "grace_hours",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Log.Level = "verbose" },
			want:   "log.level",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestValidateNormalizesLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "  WARN "

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected normalized level warn, got %q", cfg.Log.Level)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LeadTime() != time.Hour {
		t.Errorf("LeadTime() = %v, want 1h", cfg.LeadTime())
	}
	if cfg.Grace() != 20*time.Hour {
		t.Errorf("Grace() = %v, want 20h", cfg.Grace())
	}
	if cfg.ReminderLead() != 24*time.Hour {
		t.Errorf("ReminderLead() = %v, want 24h", cfg.ReminderLead())
	}
	if cfg.FormTTL() != time.Hour {
		t.Errorf("FormTTL() = %v, want 1h", cfg.FormTTL())
	}
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location() error = %v", err)
	}
	if loc.String() != "Europe/Kyiv" {
		t.Errorf("Location() = %q, want Europe/Kyiv", loc)
	}
}

func TestNormalizeKey(t *testing.T) {
	if normalizeKey("block_double_booking") != normalizeKey("BlockDoubleBooking") {
		t.Error("expected snake_case and CamelCase to normalize equally")
	}
	if normalizeKey("lead-time-minutes") != "leadtimeminutes" {
		t.Errorf("unexpected normalization: %q", normalizeKey("lead-time-minutes"))
	}
}

func TestDataDirExpandsHome(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Data.Dir = "~/dockslot-data"

	dir := cfg.DataDir()
	if strings.HasPrefix(dir, "~") {
		t.Errorf("expected expanded home path, got %q", dir)
	}
	if !strings.HasSuffix(dir, "dockslot-data") {
		t.Errorf("expected suffix dockslot-data, got %q", dir)
	}
}
