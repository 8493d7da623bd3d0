package config

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// Location returns the ledger's time zone, UTC when unset
func (c *Config) Location() (*time.Location, error) {
	if c.Storage.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Storage.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Storage.Timezone, err)
	}
	return loc, nil
}
