package domain

import "time"

// EventKind names the lifecycle occurrence a notification describes.
type EventKind string

const (
	EventAssignmentCreated   EventKind = "assignment_created"
	EventNoHelpersAvailable  EventKind = "no_helpers_available"
	EventAssignmentAccepted  EventKind = "assignment_accepted"
	EventAssignmentCompleted EventKind = "assignment_completed"
	EventWorkApproved        EventKind = "work_approved"
	EventRevisionRequested   EventKind = "revision_requested"
	EventPayoutProcessed     EventKind = "payout_processed"
	EventAssignmentOverdue   EventKind = "assignment_overdue"
	EventAssignmentCancelled EventKind = "assignment_cancelled"
	EventHelperRegistered    EventKind = "helper_registered"
	EventUserDeleted         EventKind = "user_deleted"
)

// LifecycleEvent is emitted after a state change has been committed.
// An empty Recipient means the message goes to the shared notification
// channel; otherwise it is a direct message to that external chat identity.
type LifecycleEvent struct {
	ID           string
	Kind         EventKind
	AssignmentID string
	Recipient    string
	ChannelID    string
	Message      string
	OccurredAt   time.Time
}

// IsDirect reports whether the event targets a single user.
func (e LifecycleEvent) IsDirect() bool {
	return e.Recipient != ""
}

// ShardKey groups events whose delivery order matters.
func (e LifecycleEvent) ShardKey() string {
	if e.AssignmentID != "" {
		return e.AssignmentID
	}
	return string(e.Kind)
}
