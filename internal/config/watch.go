package config

import (
	"context"
	"os"
	"time"
)

// WatchBookingRules reloads the booking section of the config file on change
// and calls onUpdate with the latest rules. Other sections need a restart.
func WatchBookingRules(ctx context.Context, path string, interval time.Duration, onUpdate func(BookingRules)) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue // transient errors
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				data, err := os.ReadFile(path)
				if err != nil {
					continue
				}
				cfg, err := Parse(data)
				if err != nil {
					continue
				}
				lastMod = info.ModTime()
				if onUpdate != nil {
					onUpdate(cfg.Booking)
				}
			}
		}
	}()

	return nil
}
