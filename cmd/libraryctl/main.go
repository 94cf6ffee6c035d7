// Command libraryctl runs library maintenance tasks: migrations, the overdue sweep
// and development tokens.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"schoollibrary/config"
	loanrepo "schoollibrary/repository/loan"
	loansvc "schoollibrary/service/loan"
	"schoollibrary/util/database"
	"schoollibrary/util/events"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.Load()
	errAndDie(log, err)

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	errAndDie(log, err)
	defer db.Close()

	rabbit, err := events.NewRabbit(cfg.RabbitMQURL, cfg.RabbitMQExchange)
	errAndDie(log, err)
	defer rabbit.Close()

	cli := commandLine{
		db: db,
		sweeper: loansvc.NewSweeper(db, loanrepo.New(db), loansvc.Config{
			LoanPeriod:   cfg.LoanPeriod,
			FinePerDay:   cfg.FinePerDay,
			AcademicYear: cfg.ActiveAcademicYear,
		}, rabbit, log),
		secret: cfg.JWTSecret,
		out:    os.Stdout,
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			log.Error("libraryctl failed", "err", err)
		}
		db.Close()
		os.Exit(1)
	}
}

func errAndDie(log *slog.Logger, err error) {
	if err != nil {
		log.Error("libraryctl setup failed", "err", err)
		os.Exit(1)
	}
}
