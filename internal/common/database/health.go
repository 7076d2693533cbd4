// internal/common/database/health.go
package database

import (
	"context"
	"time"
)

// Pinger is a backing service that can report readiness.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// CheckAll pings every dependency with a shared timeout and returns the failures by name.
func CheckAll(ctx context.Context, timeout time.Duration, deps ...Pinger) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	failures := map[string]string{}
	for _, d := range deps {
		if d == nil {
			continue
		}
		if err := d.Ping(ctx); err != nil {
			failures[d.Name()] = err.Error()
		}
	}
	return failures
}
