package store

import (
	"log/slog"
	"time"
)

// Config holds configuration for the Store.
type Config struct {
	// Namespace prefixes every table name as "<namespace>_<table>".
	// Empty means no prefix.
	// Default: "dynamoid"
	Namespace string

	// ReadCapacity and WriteCapacity are used when creating tables.
	// Both zero selects on-demand billing.
	// Default: 100 reads, 20 writes
	ReadCapacity  int64
	WriteCapacity int64

	// Logger receives write and conflict logs.
	// Default: slog.Default()
	Logger *slog.Logger

	// Now returns the current instant for timestamps and Touch.
	// Default: time.Now
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Namespace:     "dynamoid",
		ReadCapacity:  100,
		WriteCapacity: 20,
		Logger:        slog.Default(),
		Now:           time.Now,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.ReadCapacity < 0 {
		c.ReadCapacity = 0
	}
	if c.WriteCapacity < 0 {
		c.WriteCapacity = 0
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}
