// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load layers a YAML file and environment variables on top of New().
// - Validation lives in struct tags and runs once, in Load.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// MaxScore is the highest score a player may hold. Scores 0..MaxScore are valid.
	MaxScore int `koanf:"max_score" validate:"gte=1,lte=10000000"`

	// BranchFactor caps the fan-out of the ranking tree.
	BranchFactor int `koanf:"branch_factor" validate:"gte=2"`

	// QueueSize bounds the asynchronous command queue.
	QueueSize int `koanf:"queue_size" validate:"gte=1"`

	// DedupeSize bounds the request-id cache used for idempotent commands.
	DedupeSize int `koanf:"dedupe_size" validate:"gte=1"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit" validate:"gte=1"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		MaxScore:            100_000,
		BranchFactor:        16,
		QueueSize:           100_000,
		DedupeSize:          500_000,
		MaxLeaderboardLimit: 100,
	}
}
