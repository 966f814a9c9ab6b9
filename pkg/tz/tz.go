package tz

import (
	"fmt"
	"time"
)

// Load resolves an IANA zone name. "" and "UTC" yield time.UTC, "Local"
// yields time.Local.
func Load(name string) (*time.Location, error) {
	switch name {
	case "", "UTC":
		return time.UTC, nil
	case "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("tz: load %s: %w", name, err)
	}
	return loc, nil
}
