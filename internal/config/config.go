package config

// Config holds all application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	History  HistoryConfig  `mapstructure:"history" validate:"required"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig selects the storage backend. For sqlite the URL is a file
// path or ":memory:"; for postgres it is a connection URL.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	URL          string `mapstructure:"url" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
}

// HistoryConfig tunes the audit read path.
type HistoryConfig struct {
	// PageSize is the number of entries fetched per keyset page.
	PageSize int `mapstructure:"page_size" validate:"gt=0,lte=1000"`
}

// CatalogConfig points at a YAML definition catalog loaded on demand.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}
