package activity

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kazimoto/tarefa/core"
)

// Action classifies what a submission did.
type Action int

const (
	ActionObservation Action = iota
	ActionProgress
	ActionFinalization
)

func (a Action) String() string {
	switch a {
	case ActionObservation:
		return "observation"
	case ActionProgress:
		return "progress"
	case ActionFinalization:
		return "finalization"
	}
	return "unknown"
}

var (
	ErrNotFound              = errors.New("activity not found")
	ErrInvalidState          = errors.New("activity is finalized; no further changes are accepted")
	ErrEmptySubmission       = errors.New("nothing to submit")
	ErrNoteRequiresFiles     = errors.New("a note alone is only accepted once files have been delivered")
	ErrJustificationRequired = errors.New("a justification is required to finalize past the deadline")
	ErrConfirmationRequired  = errors.New("unarchiving must be confirmed")
)

// MergeError reports per-file storage failures during a folder merge.
// Files that were already stored are kept; only the listed ones need to be
// retried.
type MergeError struct {
	Folder string
	Failed map[string]error
}

func (e *MergeError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for name := range e.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("storing %d file(s) into %s failed: %s", len(names), e.Folder, strings.Join(names, ", "))
}

// applySubmission validates a submission against the activity's current
// status and produces the updated fields plus the action classification.
// It is pure: no storage or persistence happens here, so validation
// failures never partially mutate state.
func applySubmission(a Activity, sub Submission, now time.Time) (Activity, Action, error) {
	if Resolve(a, now).Terminal() {
		return Activity{}, 0, ErrInvalidState
	}

	if len(sub.Files) == 0 && a.SubmissionFolder == "" {
		if sub.Note == "" {
			return Activity{}, 0, ErrEmptySubmission
		}
		return Activity{}, 0, ErrNoteRequiresFiles
	}

	justification := sub.LateJustification
	if justification == "" {
		justification = a.LateJustification
	}
	if sub.Finalize && Resolve(a, now) == StatusLate && justification == "" {
		return Activity{}, 0, core.NewValidationError(
			ErrJustificationRequired,
			core.FieldError{Field: "late_justification", Error: ErrJustificationRequired.Error()},
		)
	}

	var action Action
	switch {
	case sub.Finalize:
		action = ActionFinalization
	case len(sub.Files) > 0:
		action = ActionProgress
	default:
		action = ActionObservation
	}

	if a.SubmissionFolder == "" && len(sub.Files) > 0 {
		a.SubmissionFolder = core.SubmissionFolder(a.Assignee.Name, a.Title)
	}
	if sub.Note != "" {
		a.SubmissionNote = sub.Note
	}
	a.LateJustification = justification
	a.DeliveryDate = now.UTC()

	if sub.Finalize {
		a.ManuallyCompleted = true
	}
	a.Status = Resolve(a, now)
	a.UpdatedAt = now.UTC()
	return a, action, nil
}
