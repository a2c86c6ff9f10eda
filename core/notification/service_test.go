package notification_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kazimoto/tarefa/core"
	"github.com/kazimoto/tarefa/core/activity"
	"github.com/kazimoto/tarefa/core/notification"
	emailsvc "github.com/kazimoto/tarefa/services/email"
	realtimesvc "github.com/kazimoto/tarefa/services/realtime"
	dummydb "github.com/kazimoto/tarefa/storage/database/dummy"
)

var recipients = []string{"adm-1", "adm-2", "adm-3"}

func notifConf() *core.Config {
	conf := *core.Conf
	conf.Notification.Recipients = recipients
	conf.Notification.AdminEmails = []string{"chief@test.cd"}
	return &conf
}

func setup(t *testing.T) (*notification.Service, *dummydb.NotificationRepository) {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	repo := dummydb.NewNotificationRepository(db)
	svc := notification.NewService(repo, emailsvc.NewConsoleServiceMock(), realtimesvc.NewNopBroadcaster(), nil, notifConf())
	emailsvc.ClearSentMessages()
	return svc, repo
}

func sampleActivity() activity.Activity {
	return activity.Activity{
		ID:       "act-1",
		Title:    "Relatorio Mensal",
		Assignee: activity.Assignee{ID: "col-7", Name: "Ana Prado", Email: "ana@test.cd"},
	}
}

func TestDispatchFansOutToAllRecipients(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	created := svc.Dispatch(ctx, sampleActivity(), activity.ActionProgress)
	if len(created) != len(recipients) {
		t.Fatalf("Dispatch() created %d notifications; want %d", len(created), len(recipients))
	}

	wantText := "Ana made progress"
	wantLink := "/activities/act-1"
	seen := make(map[string]bool)
	for _, n := range created {
		if n.Text != wantText {
			t.Errorf("Text = %q; want %q", n.Text, wantText)
		}
		if n.Link != wantLink {
			t.Errorf("Link = %q; want %q", n.Link, wantLink)
		}
		if n.Seen {
			t.Error("new notification already marked seen")
		}
		seen[n.RecipientID] = true
	}
	for _, rid := range recipients {
		if !seen[rid] {
			t.Errorf("recipient %s got no notification", rid)
		}
	}

	// each record is independently stored
	for _, rid := range recipients {
		ns, err := repo.NotificationsByRecipient(ctx, rid, false)
		if err != nil {
			t.Fatalf("NotificationsByRecipient(%s) failed: %v", rid, err)
		}
		if len(ns) != 1 {
			t.Errorf("recipient %s has %d notifications; want 1", rid, len(ns))
		}
	}

	if len(emailsvc.SentMessages) != 0 {
		t.Errorf("progress dispatch sent %d emails; want none", len(emailsvc.SentMessages))
	}
}

func TestDispatchTexts(t *testing.T) {
	tests := []struct {
		action activity.Action
		want   string
	}{
		{activity.ActionObservation, "Ana updated the observations"},
		{activity.ActionProgress, "Ana made progress"},
		{activity.ActionFinalization, "Ana finished an activity"},
	}
	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			svc, _ := setup(t)
			created := svc.Dispatch(context.Background(), sampleActivity(), tt.action)
			if len(created) == 0 {
				t.Fatal("Dispatch() created nothing")
			}
			if created[0].Text != tt.want {
				t.Errorf("Text = %q; want %q", created[0].Text, tt.want)
			}
		})
	}
}

func TestDispatchFinalizationSendsCompletionMail(t *testing.T) {
	svc, _ := setup(t)

	svc.Dispatch(context.Background(), sampleActivity(), activity.ActionFinalization)

	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("sent %d emails; want 1", len(emailsvc.SentMessages))
	}
	msg := emailsvc.SentMessages[0]
	if want := "Activity completed: Relatorio Mensal"; msg.Subject != want {
		t.Errorf("Subject = %q; want %q", msg.Subject, want)
	}
	if len(msg.To) != 1 || msg.To[0].Address != "chief@test.cd" {
		t.Errorf("To = %v; want chief@test.cd", msg.To)
	}
	if !strings.Contains(msg.TextContent, "Ana Prado") {
		t.Errorf("TextContent does not mention the assignee:\n%s", msg.TextContent)
	}
	if !strings.Contains(msg.HTMLContent, "/activities/act-1") {
		t.Errorf("HTMLContent does not carry the activity link:\n%s", msg.HTMLContent)
	}
}

func TestDispatchInsertFailureLosesOnlyThatRecord(t *testing.T) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	repo := dummydb.NewNotificationRepository(db)
	repo.FailCreate = errors.New("insert failed")
	svc := notification.NewService(repo, nil, nil, nil, notifConf())

	created := svc.Dispatch(context.Background(), sampleActivity(), activity.ActionProgress)
	if len(created) != 0 {
		t.Errorf("Dispatch() created %d notifications; want 0", len(created))
	}

	repo.FailCreate = nil
	created = svc.Dispatch(context.Background(), sampleActivity(), activity.ActionProgress)
	if len(created) != len(recipients) {
		t.Errorf("Dispatch() created %d notifications after recovery; want %d", len(created), len(recipients))
	}
}

func TestDispatchBroadcastsPerRecipient(t *testing.T) {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	hub := realtimesvc.NewHub()
	ch := hub.Subscribe("notifications:adm-2")
	svc := notification.NewService(dummydb.NewNotificationRepository(db), nil, hub, nil, notifConf())

	svc.Dispatch(context.Background(), sampleActivity(), activity.ActionProgress)

	select {
	case payload := <-ch:
		n, ok := payload.(notification.Notification)
		if !ok {
			t.Fatalf("payload type = %T; want Notification", payload)
		}
		if n.RecipientID != "adm-2" {
			t.Errorf("RecipientID = %q; want adm-2", n.RecipientID)
		}
	default:
		t.Error("no payload broadcast to the subscriber")
	}
}

func TestByRecipient(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	created := svc.Dispatch(ctx, sampleActivity(), activity.ActionProgress)
	if _, err := svc.MarkSeen(ctx, created[0].ID, created[0].RecipientID); err != nil {
		t.Fatalf("MarkSeen() failed: %v", err)
	}

	all, err := svc.ByRecipient(ctx, created[0].RecipientID, false)
	if err != nil {
		t.Fatalf("ByRecipient() failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ByRecipient(all) = %d; want 1", len(all))
	}
	unseen, err := svc.ByRecipient(ctx, created[0].RecipientID, true)
	if err != nil {
		t.Fatalf("ByRecipient(unseen) failed: %v", err)
	}
	if len(unseen) != 0 {
		t.Errorf("ByRecipient(unseen) = %d; want 0", len(unseen))
	}
}

func TestMarkSeen(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	created := svc.Dispatch(ctx, sampleActivity(), activity.ActionProgress)
	target := created[0]

	t.Run("wrong recipient", func(t *testing.T) {
		_, err := svc.MarkSeen(ctx, target.ID, "someone-else")
		if !errors.Is(err, notification.ErrNotFound) {
			t.Errorf("MarkSeen() error = %v; want ErrNotFound", err)
		}
	})

	t.Run("unknown notification", func(t *testing.T) {
		_, err := svc.MarkSeen(ctx, "nope", target.RecipientID)
		if !errors.Is(err, notification.ErrNotFound) {
			t.Errorf("MarkSeen() error = %v; want ErrNotFound", err)
		}
	})

	t.Run("ok and idempotent", func(t *testing.T) {
		n, err := svc.MarkSeen(ctx, target.ID, target.RecipientID)
		if err != nil {
			t.Fatalf("MarkSeen() failed: %v", err)
		}
		if !n.Seen {
			t.Error("Seen flag not set")
		}
		again, err := svc.MarkSeen(ctx, target.ID, target.RecipientID)
		if err != nil {
			t.Fatalf("MarkSeen() repeat failed: %v", err)
		}
		if !again.Seen {
			t.Error("Seen flag lost on repeat")
		}
	})

	// dismissal is per recipient: the other records stay unseen
	others, err := svc.ByRecipient(ctx, created[1].RecipientID, true)
	if err != nil {
		t.Fatalf("ByRecipient() failed: %v", err)
	}
	if len(others) != 1 {
		t.Errorf("other recipient unseen = %d; want 1", len(others))
	}
}
