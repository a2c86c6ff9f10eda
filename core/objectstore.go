package core

import (
	"context"
	"fmt"
	"io"
	"time"
)

// ObjectStore is any service that can hold uploaded files under
// slash-separated folder paths. Writes overwrite in place: the last write
// for a given path wins.
type ObjectStore interface {
	// List returns the filenames directly under folder; a missing folder
	// yields an empty list, not an error.
	List(ctx context.Context, folder string) ([]string, error)
	Put(ctx context.Context, path string, r io.Reader) error
	Get(ctx context.Context, path string) ([]byte, error)
	Remove(ctx context.Context, path string) error
}

// SubmissionFolder builds the folder path holding a collaborator's
// deliverables for an activity.
func SubmissionFolder(assigneeName, activityTitle string) string {
	return Slugify(assigneeName) + "/" + Slugify(activityTitle)
}

// MaterialFolder builds the dated folder path holding admin-provided input
// materials for an assignee.
func MaterialFolder(assigneeID string, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s/%d/%02d/%02d", Slugify(assigneeID), t.Year(), int(t.Month()), t.Day())
}
