package engine

import (
	"fmt"
	"time"
)

// Config contains configuration for the rules engine.
type Config struct {
	// DefaultRateLimit is the number of calls allowed per window for a
	// rule's rate_limit action. Rule actions carry no numeric budget of
	// their own; the engine applies this limit per scope.
	// Default: 10.
	DefaultRateLimit int

	// DefaultRateWindow is the fixed window the limit applies over.
	// Default: 1m.
	DefaultRateWindow time.Duration

	// LimitType names the limit dimension in rate-limit scope keys.
	// Default: "actions".
	LimitType string

	// MaxRules is the maximum number of rules accepted on reload.
	// Default: 1000.
	MaxRules int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultRateLimit:  10,
		DefaultRateWindow: time.Minute,
		LimitType:         "actions",
		MaxRules:          1000,
	}
}

// Validate validates the engine configuration.
func (c *Config) Validate() error {
	if c.DefaultRateLimit <= 0 {
		return fmt.Errorf("%w: default rate limit must be positive", ErrInvalidConfig)
	}
	if c.DefaultRateWindow <= 0 {
		return fmt.Errorf("%w: default rate window must be positive", ErrInvalidConfig)
	}
	if c.LimitType == "" {
		return fmt.Errorf("%w: limit type must not be empty", ErrInvalidConfig)
	}
	if c.MaxRules <= 0 {
		return fmt.Errorf("%w: max rules must be positive", ErrInvalidConfig)
	}
	return nil
}
