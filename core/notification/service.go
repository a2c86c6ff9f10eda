package notification

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/kazimoto/tarefa/core"
	"github.com/kazimoto/tarefa/core/activity"
)

var (
	NowFunc = time.Now // mockable

	ErrNotFound = errors.New("notification not found")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		GetNotificationByID(ctx context.Context, id string) (Notification, error)
		NotificationsByRecipient(ctx context.Context, recipientID string, unseenOnly bool) ([]Notification, error)
		MarkNotificationSeen(ctx context.Context, id string) (Notification, error)
	}

	Service struct {
		repo        Repository
		mailSvc     core.EmailService
		broadcaster core.Broadcaster
		logger      core.Logger

		recipients  []string
		adminEmails []mail.Address
	}
)

var _ activity.Notifier = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, bc core.Broadcaster, logger core.Logger, conf *core.Config) *Service {
	emails := make([]mail.Address, 0, len(conf.Notification.AdminEmails))
	for _, addr := range conf.Notification.AdminEmails {
		emails = append(emails, mail.Address{Address: addr})
	}
	return &Service{
		repo:        repo,
		mailSvc:     mailSvc,
		broadcaster: bc,
		logger:      logger,
		recipients:  conf.Notification.Recipients,
		adminEmails: emails,
	}
}

// text mapping is fixed and total over the action classification.
func actionText(act activity.Activity, action activity.Action) string {
	first := act.Assignee.FirstName()
	switch action {
	case activity.ActionProgress:
		return fmt.Sprintf("%s made progress", first)
	case activity.ActionFinalization:
		return fmt.Sprintf("%s finished an activity", first)
	default:
		return fmt.Sprintf("%s updated the observations", first)
	}
}

// Dispatch composes the message for an accepted submission and fans it out
// to the configured recipient set, one independently dismissible record per
// recipient. Insert failures are logged and treated as the loss of that
// notification; nothing here ever rolls back the activity update. A
// finalization additionally triggers the completion email, fire and forget.
func (svc *Service) Dispatch(ctx context.Context, act activity.Activity, action activity.Action) []Notification {
	text := actionText(act, action)
	link := "/activities/" + act.ID
	now := NowFunc().UTC()

	created := make([]Notification, 0, len(svc.recipients))
	for _, rid := range svc.recipients {
		n := Notification{
			RecipientID: rid,
			Text:        text,
			Link:        link,
			CreatedAt:   now,
		}
		n, err := svc.repo.CreateNotification(ctx, n)
		if err != nil {
			svc.logError("inserting notification for "+rid, err)
			continue
		}
		created = append(created, n)
		if svc.broadcaster != nil {
			svc.broadcaster.Broadcast("notifications:"+rid, n)
		}
	}

	if action == activity.ActionFinalization {
		svc.sendCompletionMail(act, link)
	}
	return created
}

// ActivitySubmitted satisfies activity.Notifier.
func (svc *Service) ActivitySubmitted(ctx context.Context, act activity.Activity, action activity.Action) {
	svc.Dispatch(ctx, act, action)
}

func (svc *Service) sendCompletionMail(act activity.Activity, link string) {
	if svc.mailSvc == nil || len(svc.adminEmails) == 0 {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           svc.adminEmails,
		Subject:      "Activity completed: " + act.Title,
		TemplateName: "activity-completed",
		TemplateData: struct {
			AssigneeName string
			Title        string
			Link         string
		}{act.Assignee.Name, act.Title, link},
	})
}

func (svc *Service) ByRecipient(ctx context.Context, recipientID string, unseenOnly bool) ([]Notification, error) {
	return svc.repo.NotificationsByRecipient(ctx, recipientID, unseenOnly)
}

// MarkSeen flips the seen flag; only the notification's recipient may do it.
func (svc *Service) MarkSeen(ctx context.Context, id, recipientID string) (Notification, error) {
	n, err := svc.repo.GetNotificationByID(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if n.RecipientID != recipientID {
		return Notification{}, ErrNotFound
	}
	if n.Seen {
		return n, nil
	}
	return svc.repo.MarkNotificationSeen(ctx, id)
}

func (svc *Service) logError(msg string, err error) {
	if svc.logger != nil {
		svc.logger.Error(msg, err)
	}
}
