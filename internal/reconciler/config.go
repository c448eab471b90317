package reconciler

import "time"

// Config controls the settlement sweep loop.
type Config struct {
	// RunInterval is the pause between sweeps.
	RunInterval time.Duration
	// RunTimeout bounds a single sweep.
	RunTimeout time.Duration
	// BatchSize caps how many batches one sweep polls against the gateway.
	BatchSize int
}

func (c Config) withDefaults() Config {
	if c.RunInterval <= 0 {
		c.RunInterval = time.Minute
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = 30 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	return c
}
