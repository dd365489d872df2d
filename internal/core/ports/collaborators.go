package ports

import (
	"context"
	"time"

	"github.com/assignhub/marketplace/internal/core/domain"
)

// EventPublisher hands committed lifecycle events to the notification side
// channel. Publish must not block on delivery.
type EventPublisher interface {
	Publish(events ...domain.LifecycleEvent)
}

// Notifier delivers a message. Both calls are best-effort.
type Notifier interface {
	Notify(ctx context.Context, channelID, message string) error
	DirectMessage(ctx context.Context, userExternalID, message string) error
}

// Summarizer condenses text or a document. hint is a file extension such as
// "pdf"; it is empty for plain text.
type Summarizer interface {
	Summarize(ctx context.Context, content []byte, hint string) (string, error)
}

// DedupChecker remembers which events have already been delivered.
type DedupChecker interface {
	IsDuplicate(ctx context.Context, assignmentID, kind string, ts time.Time) (bool, error)
	Mark(ctx context.Context, assignmentID, kind string, ts time.Time) error
}

// Locker provides a best-effort cross-process mutual exclusion.
type Locker interface {
	// TryLock returns a release func when the lock was obtained, or ok=false
	// when another holder has it.
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}
