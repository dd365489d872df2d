package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = 24 * time.Hour

// DedupChecker remembers delivered notifications so a redelivered lifecycle
// event is not announced twice.
// Key format: notify:<assignment_id>:<kind>:<unix_nano>
type DedupChecker struct {
	client *redis.Client
}

// NewDedupChecker creates a DedupChecker wrapping the given Redis client.
func NewDedupChecker(client *redis.Client) *DedupChecker {
	return &DedupChecker{client: client}
}

// IsDuplicate reports whether this exact notification was already delivered.
func (d *DedupChecker) IsDuplicate(ctx context.Context, assignmentID, kind string, ts time.Time) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(assignmentID, kind, ts)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records a delivery (expires after dedupTTL).
func (d *DedupChecker) Mark(ctx context.Context, assignmentID, kind string, ts time.Time) error {
	return d.client.Set(ctx, d.key(assignmentID, kind, ts), "1", dedupTTL).Err()
}

func (d *DedupChecker) key(assignmentID, kind string, ts time.Time) string {
	return fmt.Sprintf("notify:%s:%s:%d", assignmentID, kind, ts.UnixNano())
}
