package main

import (
	"log"
	"os"

	"github.com/kazimoto/tarefa/core"
	"github.com/kazimoto/tarefa/storage/database"
	"github.com/kazimoto/tarefa/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up DB
	errAndDie(database.CreateIfNotExist(core.Conf))
	db, err := database.Open(core.Conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// ensure the schema is current, unless migrations are being driven by
	// hand through the migrate subcommand
	if len(os.Args) < 2 || os.Args[1] != "migrate" {
		errAndDie(database.Migrate(db.DB))
	}

	// start CLI
	cli := commandLine{
		db:      db.DB,
		actRepo: sqlxrepos.NewActivityRepository(db),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
