package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultTimezone, cfg.Timezone)
	assert.Equal(t, DefaultWorkStartHour, cfg.WorkStartHour)
	assert.Equal(t, DefaultWorkEndHour, cfg.WorkEndHour)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultBaseURL, cfg.OpenAIBaseURL)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TIMEZONE", "Europe/Berlin")
	t.Setenv("WORK_START_HOUR", "8")
	t.Setenv("WORK_END_HOUR", "17")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("PLANNER_DB_PATH", "/tmp/test.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, 8, cfg.WorkStartHour)
	assert.Equal(t, 17, cfg.WorkEndHour)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Setenv("WORK_START_HOUR", "nine")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkStartHour, cfg.WorkStartHour)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "start hour out of range",
			mutate:  func(c *Config) { c.WorkStartHour = -1 },
			wantErr: "work start hour",
		},
		{
			name:    "end hour out of range",
			mutate:  func(c *Config) { c.WorkEndHour = 25 },
			wantErr: "work end hour",
		},
		{
			name:    "start after end",
			mutate:  func(c *Config) { c.WorkStartHour, c.WorkEndHour = 18, 9 },
			wantErr: "must be before",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Timezone = "Mars/Olympus" },
			wantErr: "invalid timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Timezone:      DefaultTimezone,
				WorkStartHour: DefaultWorkStartHour,
				WorkEndHour:   DefaultWorkEndHour,
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "Europe/Berlin"}
	loc := cfg.Location()
	assert.Equal(t, "Europe/Berlin", loc.String())

	cfg.Timezone = "bogus"
	assert.Equal(t, "UTC", cfg.Location().String())
}
