package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: info
discord:
  token: bot-token
  guild_id: "123456789"
  admin_role_id: "987654321"
  admin_ids:
    - "111"
    - "222"
  log_channel_id: "555"
storage:
  postgres_dsn: "postgres://localhost/ezloot"
catalog:
  slots:
    - Head
    - Chest
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader() unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogInfo {
		t.Errorf("LogLevel = %q", cfg.Server.LogLevel)
	}
	if cfg.Discord.Token != "bot-token" || cfg.Discord.GuildID != "123456789" {
		t.Errorf("discord section = %+v", cfg.Discord)
	}
	if len(cfg.Discord.AdminIDs) != 2 || cfg.Discord.AdminIDs[0] != "111" {
		t.Errorf("AdminIDs = %v", cfg.Discord.AdminIDs)
	}
	if cfg.Storage.PostgresDSN != "postgres://localhost/ezloot" {
		t.Errorf("PostgresDSN = %q", cfg.Storage.PostgresDSN)
	}
	if len(cfg.Catalog.Slots) != 2 || cfg.Catalog.Slots[1] != "Chest" {
		t.Errorf("Slots = %v", cfg.Catalog.Slots)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	const yml = `
discord:
  token: bot-token
  guild_id: "123"
  tokne: typo
`
	if _, err := LoadFromReader(strings.NewReader(yml)); err == nil {
		t.Error("LoadFromReader() accepted an unknown field")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		return &Config{
			Discord: DiscordConfig{Token: "t", GuildID: "g"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "minimal valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Discord.Token = "" },
			wantErr: "discord.token is required",
		},
		{
			name:    "missing guild",
			mutate:  func(c *Config) { c.Discord.GuildID = "" },
			wantErr: "discord.guild_id is required",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Server.LogLevel = "verbose" },
			wantErr: `server.log_level "verbose" is invalid`,
		},
		{
			name:    "empty admin id",
			mutate:  func(c *Config) { c.Discord.AdminIDs = []string{"111", "  "} },
			wantErr: "discord.admin_ids[1] is empty",
		},
		{
			name:    "blank slot",
			mutate:  func(c *Config) { c.Catalog.Slots = []string{"Head", " "} },
			wantErr: "catalog.slots[1] is empty",
		},
		{
			name:    "duplicate slot case-insensitive",
			mutate:  func(c *Config) { c.Catalog.Slots = []string{"Head", "head"} },
			wantErr: `catalog.slots[1] "head" is a duplicate of catalog.slots[0]`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tc.mutate(cfg)

			err := Validate(cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	t.Parallel()

	err := Validate(&Config{Server: ServerConfig{LogLevel: "loud"}})
	if err == nil {
		t.Fatal("Validate() succeeded, want error")
	}
	for _, want := range []string{"server.log_level", "discord.token", "discord.guild_id"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error missing %q: %v", want, err)
		}
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Discord.Token != "bot-token" {
		t.Errorf("Token = %q", cfg.Discord.Token)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() succeeded on a missing file")
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()

	for _, l := range []LogLevel{LogDebug, LogInfo, LogWarn, LogError} {
		if !l.IsValid() {
			t.Errorf("IsValid(%q) = false", l)
		}
	}
	for _, l := range []LogLevel{"", "trace", "INFO "} {
		if l.IsValid() {
			t.Errorf("IsValid(%q) = true", l)
		}
	}
}
