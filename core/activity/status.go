package activity

import "time"

// Status is the canonical lifecycle state of an Activity.
type Status int

const (
	StatusPending Status = iota
	StatusInProgress
	StatusLate
	StatusCompleted
	StatusCompletedLate
)

var statusNames = map[Status]string{
	StatusPending:       "pending",
	StatusInProgress:    "in_progress",
	StatusLate:          "late",
	StatusCompleted:     "completed",
	StatusCompletedLate: "completed_late",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the status is absorbing: once reached it has no
// outgoing transition.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCompletedLate
}

// Overdue reports whether now is past the deadline.
func Overdue(deadline, now time.Time) bool {
	return now.After(deadline)
}

// Resolve derives the canonical status of an activity from its persisted
// fields. Precedence, first match wins:
//
//  1. finalized on time                   -> StatusCompleted
//  2. finalized after the deadline        -> StatusCompletedLate
//  3. deadline passed                     -> StatusLate
//  4. a submission folder exists          -> StatusInProgress
//  5. otherwise                           -> StatusPending
//
// Completed and CompletedLate are sticky: the clock advancing past the
// deadline never flips a finalized activity back to Late.
func Resolve(a Activity, now time.Time) Status {
	if a.Status.Terminal() {
		return a.Status
	}
	if a.ManuallyCompleted {
		if Overdue(a.EndDate, a.DeliveryDate) {
			return StatusCompletedLate
		}
		return StatusCompleted
	}
	if Overdue(a.EndDate, now) {
		return StatusLate
	}
	if a.SubmissionFolder != "" {
		return StatusInProgress
	}
	return StatusPending
}
