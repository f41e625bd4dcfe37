package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/michezo/apps/api/echo"
	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/artifact"
	"github.com/trezcool/michezo/core/run"
	"github.com/trezcool/michezo/services/broadcast"
	"github.com/trezcool/michezo/services/email"
	"github.com/trezcool/michezo/services/logger"
	"github.com/trezcool/michezo/storage/database"
	"github.com/trezcool/michezo/storage/database/sqlxrepos"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lshortfile)

	// set up logger
	var logger core.Logger
	if core.Conf.Debug || core.Conf.RollbarToken == "" {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
	}

	// set up DB
	db, err := database.Open(core.Conf)
	errAndDie(std, err)
	defer func() { _ = db.Close() }()
	errAndDie(std, database.Ping(db))

	sqlxDB := sqlx.NewDb(db, core.Conf.Database.Engine)
	planRepo := sqlxrepos.NewPlanRepository(sqlxDB)
	runRepo := sqlxrepos.NewRunRepository(sqlxDB)
	sessRepo := sqlxrepos.NewSessionRepository(sqlxDB)
	artRepo := sqlxrepos.NewArtifactRepository(sqlxDB)

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	var broadcaster core.Broadcaster
	broadcaster, err = broadcastsvc.NewRedisBroadcaster(core.Conf)
	if err != nil {
		// events are best-effort; a missing broker must not keep the API down
		logger.Warn("redis unavailable, events go to the console", err)
		broadcaster = broadcastsvc.NewConsoleBroadcaster()
	}

	runSvc := run.NewService(planRepo, runRepo, logger, mailSvc)
	artSvc := artifact.NewService(artRepo, sessRepo, broadcaster, logger)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Address:     core.Conf.Server.Address(),
			Logger:      logger,
			RunSvc:      runSvc,
			ArtifactSvc: artSvc,
			PingDB:      db.Ping,
		},
	)
	app.Start()
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}
