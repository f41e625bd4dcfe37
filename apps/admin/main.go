package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/storage/database"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	cli := new(commandLine)

	// createdb connects as admin itself; no app DB exists yet
	if len(os.Args) > 1 && os.Args[1] == "createdb" {
		runAndDie(cli, os.Args)
		return
	}

	// set up DB
	db, err := database.Open(core.Conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	errAndDie(database.Ping(db))

	cli.db = db
	cli.sqlxDB = sqlx.NewDb(db, core.Conf.Database.Engine)
	runAndDie(cli, os.Args)
}

func runAndDie(cli *commandLine, args []string) {
	if err := cli.run(args); err != nil {
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
