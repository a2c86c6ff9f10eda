package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/kazimoto/tarefa/core/notification"
)

type NotificationRepository struct {
	db *notificationTable

	// FailCreate, when set, makes CreateNotification fail; tests use it to
	// exercise best-effort fan-out.
	FailCreate error
}

var _ notification.Repository = (*NotificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db.notification}
}

func (repo *NotificationRepository) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	if repo.FailCreate != nil {
		return notification.Notification{}, repo.FailCreate
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	n.ID = uuid.New().String()
	repo.db.table[n.ID] = &n
	return n, nil
}

func (repo *NotificationRepository) GetNotificationByID(_ context.Context, id string) (notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if n, ok := repo.db.table[id]; ok {
		return *n, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *NotificationRepository) NotificationsByRecipient(_ context.Context, recipientID string, unseenOnly bool) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	notifs := make([]notification.Notification, 0)
	for _, n := range repo.db.table {
		if n.RecipientID != recipientID {
			continue
		}
		if unseenOnly && n.Seen {
			continue
		}
		notifs = append(notifs, *n)
	}
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].CreatedAt.After(notifs[j].CreatedAt) })
	return notifs, nil
}

func (repo *NotificationRepository) MarkNotificationSeen(_ context.Context, id string) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n, ok := repo.db.table[id]
	if !ok {
		return notification.Notification{}, notification.ErrNotFound
	}
	n.Seen = true
	return *n, nil
}
