package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/kazimoto/tarefa/core"
	"github.com/kazimoto/tarefa/core/activity"
)

type activityRow struct {
	ID                string       `db:"id"`
	Title             string       `db:"title"`
	Description       string       `db:"description"`
	AssigneeID        string       `db:"assignee_id"`
	AssigneeName      string       `db:"assignee_name"`
	AssigneeEmail     string       `db:"assignee_email"`
	StartDate         sql.NullTime `db:"start_date"`
	EndDate           sql.NullTime `db:"end_date"`
	DeliveryDate      sql.NullTime `db:"delivery_date"`
	MaterialFolder    string       `db:"material_folder"`
	SubmissionFolder  string       `db:"submission_folder"`
	SubmissionNote    string       `db:"submission_note"`
	LateJustification string       `db:"late_justification"`
	ManuallyCompleted bool         `db:"manually_completed"`
	Archived          bool         `db:"archived"`
	Status            int          `db:"status"`
	CreatedAt         sql.NullTime `db:"created_at"`
	UpdatedAt         sql.NullTime `db:"updated_at"`
}

type fileRecordRow struct {
	ID         string       `db:"id"`
	ActivityID string       `db:"activity_id"`
	Name       string       `db:"name"`
	Path       string       `db:"path"`
	UploadedAt sql.NullTime `db:"uploaded_at"`
}

type activityRepository struct {
	db *sqlx.DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *sqlx.DB) *activityRepository {
	return &activityRepository{db: db}
}

func (repo activityRepository) pack(act activity.Activity) activityRow {
	return activityRow{
		ID:                act.ID,
		Title:             act.Title,
		Description:       act.Description,
		AssigneeID:        act.Assignee.ID,
		AssigneeName:      act.Assignee.Name,
		AssigneeEmail:     act.Assignee.Email,
		StartDate:         sql.NullTime{Time: act.StartDate.UTC(), Valid: !act.StartDate.IsZero()},
		EndDate:           sql.NullTime{Time: act.EndDate.UTC(), Valid: !act.EndDate.IsZero()},
		DeliveryDate:      sql.NullTime{Time: act.DeliveryDate.UTC(), Valid: !act.DeliveryDate.IsZero()},
		MaterialFolder:    act.MaterialFolder,
		SubmissionFolder:  act.SubmissionFolder,
		SubmissionNote:    act.SubmissionNote,
		LateJustification: act.LateJustification,
		ManuallyCompleted: act.ManuallyCompleted,
		Archived:          act.Archived,
		Status:            int(act.Status),
		CreatedAt:         sql.NullTime{Time: act.CreatedAt.UTC(), Valid: !act.CreatedAt.IsZero()},
		UpdatedAt:         sql.NullTime{Time: act.UpdatedAt.UTC(), Valid: !act.UpdatedAt.IsZero()},
	}
}

func (repo activityRepository) unpack(row activityRow) activity.Activity {
	return activity.Activity{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Assignee: activity.Assignee{
			ID:    row.AssigneeID,
			Name:  row.AssigneeName,
			Email: row.AssigneeEmail,
		},
		StartDate:         row.StartDate.Time,
		EndDate:           row.EndDate.Time,
		DeliveryDate:      row.DeliveryDate.Time,
		MaterialFolder:    row.MaterialFolder,
		SubmissionFolder:  row.SubmissionFolder,
		SubmissionNote:    row.SubmissionNote,
		LateJustification: row.LateJustification,
		ManuallyCompleted: row.ManuallyCompleted,
		Archived:          row.Archived,
		Status:            activity.Status(row.Status),
		CreatedAt:         row.CreatedAt.Time,
		UpdatedAt:         row.UpdatedAt.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to activity.ErrNotFound
func (repo activityRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return activity.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo activityRepository) CreateActivity(ctx context.Context, act activity.Activity) (activity.Activity, error) {
	act.ID = uuid.New().String()
	row := repo.pack(act)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO activity (id, title, description, assignee_id, assignee_name, assignee_email,
		                      start_date, end_date, delivery_date, material_folder, submission_folder,
		                      submission_note, late_justification, manually_completed, archived, status,
		                      created_at, updated_at)
		VALUES (:id, :title, :description, :assignee_id, :assignee_name, :assignee_email,
		        :start_date, :end_date, :delivery_date, :material_folder, :submission_folder,
		        :submission_note, :late_justification, :manually_completed, :archived, :status,
		        :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return activity.Activity{}, errors.Wrap(err, "inserting activity")
	}
	return act, nil
}

func (repo activityRepository) GetActivityByID(ctx context.Context, id string) (activity.Activity, error) {
	if _, err := uuid.Parse(id); err != nil {
		return activity.Activity{}, activity.ErrNotFound
	}
	var row activityRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM activity WHERE id = $1", id); err != nil {
		return activity.Activity{}, repo.trapNoRowsErr(err, "finding activity by ID")
	}
	return repo.unpack(row), nil
}

func (repo activityRepository) FilterActivities(ctx context.Context, filter activity.QueryFilter, ordering ...core.DBOrdering) ([]activity.Activity, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.AssigneeID != "" {
		conds = append(conds, "assignee_id = "+arg(filter.AssigneeID))
	}
	if filter.Status != nil {
		conds = append(conds, "status = "+arg(int(*filter.Status)))
	}
	if filter.Archived != nil {
		conds = append(conds, "archived = "+arg(*filter.Archived))
	}
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		conds = append(conds, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", arg(val), arg(val)))
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, "created_at >= "+arg(filter.CreatedFrom.UTC()))
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, "created_at <= "+arg(filter.CreatedTo.UTC()))
	}

	query := "SELECT * FROM activity"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	} else {
		query += " ORDER BY created_at DESC"
	}

	var rows []activityRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying activities")
	}
	acts := make([]activity.Activity, 0, len(rows))
	for _, row := range rows {
		acts = append(acts, repo.unpack(row))
	}
	return acts, nil
}

func (repo activityRepository) UpdateActivity(ctx context.Context, act activity.Activity) (activity.Activity, error) {
	row := repo.pack(act)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE activity
		SET title              = :title,
		    description        = :description,
		    assignee_id        = :assignee_id,
		    assignee_name      = :assignee_name,
		    assignee_email     = :assignee_email,
		    start_date         = :start_date,
		    end_date           = :end_date,
		    delivery_date      = :delivery_date,
		    material_folder    = :material_folder,
		    submission_folder  = :submission_folder,
		    submission_note    = :submission_note,
		    late_justification = :late_justification,
		    manually_completed = :manually_completed,
		    archived           = :archived,
		    status             = :status,
		    updated_at         = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return activity.Activity{}, errors.Wrap(err, "updating activity")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return activity.Activity{}, activity.ErrNotFound
	}
	return act, nil
}

// DeleteActivity removes the file records before the activity row, in one
// transaction.
func (repo activityRepository) DeleteActivity(ctx context.Context, id string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning delete transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, "DELETE FROM file_record WHERE activity_id = $1", id); err != nil {
		return errors.Wrap(err, "deleting file records")
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM activity WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting activity")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return activity.ErrNotFound
	}
	return errors.Wrap(tx.Commit(), "committing delete transaction")
}

func (repo activityRepository) CreateFileRecord(ctx context.Context, rec activity.FileRecord) (activity.FileRecord, error) {
	rec.ID = uuid.New().String()
	row := fileRecordRow{
		ID:         rec.ID,
		ActivityID: rec.ActivityID,
		Name:       rec.Name,
		Path:       rec.Path,
		UploadedAt: sql.NullTime{Time: rec.UploadedAt.UTC(), Valid: !rec.UploadedAt.IsZero()},
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO file_record (id, activity_id, name, path, uploaded_at)
		VALUES (:id, :activity_id, :name, :path, :uploaded_at)`,
		row,
	)
	if err != nil {
		return activity.FileRecord{}, errors.Wrap(err, "inserting file record")
	}
	return rec, nil
}

func (repo activityRepository) FileRecordsByActivity(ctx context.Context, activityID string) ([]activity.FileRecord, error) {
	var rows []fileRecordRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT * FROM file_record WHERE activity_id = $1 ORDER BY uploaded_at", activityID)
	if err != nil {
		return nil, errors.Wrap(err, "querying file records")
	}
	recs := make([]activity.FileRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, activity.FileRecord{
			ID:         row.ID,
			ActivityID: row.ActivityID,
			Name:       row.Name,
			Path:       row.Path,
			UploadedAt: row.UploadedAt.Time,
		})
	}
	return recs, nil
}
