package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/kazimoto/tarefa/core/activity"
)

func CreateActivity(
	t *testing.T,
	repo activity.Repository,
	title string,
	assignee activity.Assignee,
	startDate, endDate time.Time,
) activity.Activity {
	t.Helper()

	now := time.Now().UTC()
	act, err := repo.CreateActivity(context.Background(), activity.Activity{
		Title:     title,
		Assignee:  assignee,
		StartDate: startDate.UTC(),
		EndDate:   endDate.UTC(),
		Status:    activity.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateActivity() failed: %v", err)
	}
	return act
}
