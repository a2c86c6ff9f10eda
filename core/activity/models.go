package activity

import (
	"io"
	"strings"
	"time"

	"github.com/kazimoto/tarefa/core"
)

type Assignee struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// FirstName returns the leading name token, used when composing
// notification texts.
func (a Assignee) FirstName() string {
	name := strings.TrimSpace(a.Name)
	if idx := strings.IndexByte(name, ' '); idx > 0 {
		return name[:idx]
	}
	return name
}

type Activity struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Assignee    Assignee `json:"assignee"`

	StartDate    time.Time `json:"start_date"`    // UTC
	EndDate      time.Time `json:"end_date"`      // UTC; the deadline
	DeliveryDate time.Time `json:"delivery_date"` // UTC; zero until first submission

	MaterialFolder    string `json:"material_folder"`   // admin-provided input materials
	SubmissionFolder  string `json:"submission_folder"` // collaborator deliverables
	SubmissionNote    string `json:"submission_note"`
	LateJustification string `json:"late_justification"`

	ManuallyCompleted bool `json:"manually_completed"`
	Archived          bool `json:"archived"`

	// Status caches the derived value; Resolve is its only writer and it
	// must always be recomputable from the fields above.
	Status Status `json:"status"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// File is a named blob to be merged into an activity folder.
type File struct {
	Name    string
	Content io.Reader
}

// FileRecord tracks a stored submission file; rows must be removed before
// their activity on delete.
type FileRecord struct {
	ID         string    `json:"id"`
	ActivityID string    `json:"activity_id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	UploadedAt time.Time `json:"uploaded_at"` // UTC
}

// NewActivity contains information needed to create a new Activity.
type NewActivity struct {
	Title         string    `json:"title" validate:"required"`
	Description   string    `json:"description"`
	AssigneeID    string    `json:"assignee_id" validate:"required"`
	AssigneeName  string    `json:"assignee_name" validate:"required"`
	AssigneeEmail string    `json:"assignee_email" validate:"omitempty,email"`
	StartDate     time.Time `json:"start_date" validate:"required"`
	EndDate       time.Time `json:"end_date" validate:"required"`
}

func (na *NewActivity) Validate() error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.AssigneeName = core.CleanString(na.AssigneeName)
	na.AssigneeEmail = core.CleanString(na.AssigneeEmail, true /* lower */)
	return core.Validate.Struct(na)
}

// Submission is a collaborator action on an activity: attach files, leave a
// note, optionally finalize.
type Submission struct {
	Files             []File `json:"files"`
	Note              string `json:"note"`
	Finalize          bool   `json:"finalize"`
	LateJustification string `json:"late_justification"`
}

func (s *Submission) Clean() {
	s.Note = core.CleanString(s.Note)
	s.LateJustification = core.CleanString(s.LateJustification)
}

type QueryFilter struct {
	AssigneeID  string    `query:"assignee"`
	Status      *Status   `query:"status"`
	Archived    *bool     `query:"archived"`
	Search      string    `query:"search"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.AssigneeID == "" && qf.Status == nil && qf.Archived == nil &&
		qf.Search == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
