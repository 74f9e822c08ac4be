package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Discord.Token == "" {
		errs = append(errs, errors.New("discord.token is required"))
	}
	if cfg.Discord.GuildID == "" {
		errs = append(errs, errors.New("discord.guild_id is required"))
	}
	for i, id := range cfg.Discord.AdminIDs {
		if strings.TrimSpace(id) == "" {
			errs = append(errs, fmt.Errorf("discord.admin_ids[%d] is empty", i))
		}
	}

	// Catalog slot names must be unique case-insensitively; resolution is
	// case-insensitive at command time.
	slotsSeen := make(map[string]int, len(cfg.Catalog.Slots))
	for i, slot := range cfg.Catalog.Slots {
		prefix := fmt.Sprintf("catalog.slots[%d]", i)
		if strings.TrimSpace(slot) == "" {
			errs = append(errs, fmt.Errorf("%s is empty", prefix))
			continue
		}
		key := strings.ToLower(strings.TrimSpace(slot))
		if prev, ok := slotsSeen[key]; ok {
			errs = append(errs, fmt.Errorf("%s %q is a duplicate of catalog.slots[%d]", prefix, slot, prev))
		}
		slotsSeen[key] = i
	}

	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; player records will be kept in memory and lost on restart")
	}
	if cfg.Discord.LogChannelID == "" {
		slog.Warn("discord.log_channel_id is empty; interaction audit logging is disabled")
	}

	return errors.Join(errs...)
}
