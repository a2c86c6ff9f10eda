package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/kazimoto/tarefa/core/notification"
)

type notificationRow struct {
	ID          string       `db:"id"`
	RecipientID string       `db:"recipient_id"`
	Text        string       `db:"text"`
	Link        string       `db:"link"`
	Seen        bool         `db:"seen"`
	CreatedAt   sql.NullTime `db:"created_at"`
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo notificationRepository) unpack(row notificationRow) notification.Notification {
	return notification.Notification{
		ID:          row.ID,
		RecipientID: row.RecipientID,
		Text:        row.Text,
		Link:        row.Link,
		Seen:        row.Seen,
		CreatedAt:   row.CreatedAt.Time,
	}
}

func (repo notificationRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return notification.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	n.ID = uuid.New().String()
	row := notificationRow{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Text:        n.Text,
		Link:        n.Link,
		Seen:        n.Seen,
		CreatedAt:   sql.NullTime{Time: n.CreatedAt.UTC(), Valid: !n.CreatedAt.IsZero()},
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO notification (id, recipient_id, text, link, seen, created_at)
		VALUES (:id, :recipient_id, :text, :link, :seen, :created_at)`,
		row,
	)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return n, nil
}

func (repo notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return notification.Notification{}, notification.ErrNotFound
	}
	var row notificationRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM notification WHERE id = $1", id); err != nil {
		return notification.Notification{}, repo.trapNoRowsErr(err, "finding notification by ID")
	}
	return repo.unpack(row), nil
}

func (repo notificationRepository) NotificationsByRecipient(ctx context.Context, recipientID string, unseenOnly bool) ([]notification.Notification, error) {
	query := "SELECT * FROM notification WHERE recipient_id = $1"
	if unseenOnly {
		query += " AND NOT seen"
	}
	query += " ORDER BY created_at DESC"

	var rows []notificationRow
	if err := repo.db.SelectContext(ctx, &rows, query, recipientID); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		notifs = append(notifs, repo.unpack(row))
	}
	return notifs, nil
}

func (repo notificationRepository) MarkNotificationSeen(ctx context.Context, id string) (notification.Notification, error) {
	var row notificationRow
	err := repo.db.GetContext(ctx, &row,
		"UPDATE notification SET seen = TRUE WHERE id = $1 RETURNING *", id)
	if err != nil {
		return notification.Notification{}, repo.trapNoRowsErr(err, "marking notification seen")
	}
	return repo.unpack(row), nil
}
