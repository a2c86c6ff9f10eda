package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/kazimoto/tarefa/core/activity"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db      *sql.DB
	actRepo activity.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args] - run database migrations (up, down, status, ...)")
	fmt.Println("  addactivity -title TITLE -assignee-id ID -assignee-name NAME -end DATE [-start DATE] [-desc TEXT] [-assignee-email EMAIL] - assign a new activity")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addActivityCmd := flag.NewFlagSet("addactivity", flag.ExitOnError)
	title := addActivityCmd.String("title", "", "The activity title.")
	desc := addActivityCmd.String("desc", "", "The activity description.")
	assigneeID := addActivityCmd.String("assignee-id", "", "The collaborator's account id.")
	assigneeName := addActivityCmd.String("assignee-name", "", "The collaborator's full name.")
	assigneeEmail := addActivityCmd.String("assignee-email", "", "The collaborator's email.")
	start := addActivityCmd.String("start", "", "Start date (YYYY-MM-DD); defaults to today.")
	end := addActivityCmd.String("end", "", "Deadline (YYYY-MM-DD).")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addactivity":
		if err := addActivityCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *title == "" || *assigneeID == "" || *assigneeName == "" || *end == "" {
			addActivityCmd.Usage()
			return errHelp
		}
		return cli.addActivity(*title, *desc, *assigneeID, *assigneeName, *assigneeEmail, *start, *end)
	default:
		cli.printUsage()
		return errHelp
	}
}
