package holdwatch

import "time"

// Config controls the stale-hold reaper loop.
type Config struct {
	BatchSize    int
	PollInterval time.Duration
	// StaleAfter is how long a session may sit in HOLD_PENDING before the
	// reaper fails it. Covers the crash window between claiming the slot
	// and hearing back from the processor.
	StaleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:    50,
		PollInterval: 30 * time.Second,
		StaleAfter:   15 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = defaults.StaleAfter
	}
	return c
}
