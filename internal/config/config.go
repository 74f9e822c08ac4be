// Package config provides the configuration schema and loader for the
// ezloot bot.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure, typically loaded from a YAML
// file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Discord DiscordConfig `yaml:"discord"`
	Storage StorageConfig `yaml:"storage"`
	Catalog CatalogConfig `yaml:"catalog"`
}

// ServerConfig holds the ops endpoint and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address for the metrics/health endpoint
	// (e.g., ":8080"). Empty disables the ops server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// DiscordConfig holds the Discord connection and role settings.
type DiscordConfig struct {
	// Token is the Discord bot token.
	Token string `yaml:"token"`

	// GuildID is the target guild. Commands are registered guild-scoped.
	GuildID string `yaml:"guild_id"`

	// AdminRoleID is the role whose members may use admin commands.
	// Members with the guild Administrator permission always qualify.
	AdminRoleID string `yaml:"admin_role_id"`

	// AdminIDs lists user IDs treated as administrators regardless of
	// roles. These identities can never be removed from the ledger.
	AdminIDs []string `yaml:"admin_ids"`

	// LogChannelID is the channel that receives the periodic interaction
	// log. Empty disables audit logging.
	LogChannelID string `yaml:"log_channel_id"`
}

// StorageConfig selects the player record store.
type StorageConfig struct {
	// PostgresDSN is the PostgreSQL connection string. When empty the bot
	// falls back to an in-memory store that does not survive restarts.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// CatalogConfig overrides the gear slot catalog for this deployment.
type CatalogConfig struct {
	// Slots lists the valid slot names in display order. Empty means the
	// default catalog.
	Slots []string `yaml:"slots"`
}
