package main

import (
	"context"
	"time"

	"github.com/kazimoto/tarefa/core"
	"github.com/kazimoto/tarefa/core/activity"
)

const dateLayout = "2006-01-02"

// addActivity assigns a new activity to a collaborator.
func (cli *commandLine) addActivity(title, desc, assigneeID, assigneeName, assigneeEmail, start, end string) error {
	now := time.Now().UTC()

	startDate := now
	if start != "" {
		var err error
		if startDate, err = time.Parse(dateLayout, start); err != nil {
			return err
		}
	}
	endDate, err := time.Parse(dateLayout, end)
	if err != nil {
		return err
	}

	na := activity.NewActivity{
		Title:         core.CleanString(title),
		Description:   core.CleanString(desc),
		AssigneeID:    assigneeID,
		AssigneeName:  core.CleanString(assigneeName),
		AssigneeEmail: core.CleanString(assigneeEmail, true /* lower */),
		StartDate:     startDate,
		EndDate:       endDate,
	}
	if err := na.Validate(); err != nil {
		return err
	}

	act := activity.Activity{
		Title:       na.Title,
		Description: na.Description,
		Assignee: activity.Assignee{
			ID:    na.AssigneeID,
			Name:  na.AssigneeName,
			Email: na.AssigneeEmail,
		},
		StartDate: na.StartDate.UTC(),
		EndDate:   na.EndDate.UTC(),
		Status:    activity.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := cli.actRepo.CreateActivity(context.Background(), act); err != nil {
		return err
	}
	return nil
}
