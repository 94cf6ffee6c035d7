// Package main school library circulation API.
//
// @title           School Library API
// @version         1.0
// @description     Book catalog and loan circulation for the school library.
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"

	"schoollibrary/app/echoServer"
	bookctrl "schoollibrary/app/echoServer/controller/book"
	loanctrl "schoollibrary/app/echoServer/controller/loan"
	"schoollibrary/config"
	bookrepo "schoollibrary/repository/book"
	loanrepo "schoollibrary/repository/loan"
	booksvc "schoollibrary/service/book"
	loansvc "schoollibrary/service/loan"
	"schoollibrary/util/database"
	"schoollibrary/util/events"
)

func main() {
	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "err", err)
		os.Exit(1)
	}
	ctx := context.Background()

	// DB: *sql.DB
	db, err := database.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			log.Error("db migrate failed", "err", err)
			os.Exit(1)
		}
	}

	// events
	rabbit, err := events.NewRabbit(cfg.RabbitMQURL, cfg.RabbitMQExchange)
	if err != nil {
		log.Error("rabbitmq connect failed", "err", err)
		os.Exit(1)
	}
	defer rabbit.Close()

	// repos
	br := bookrepo.New(db)
	lr := loanrepo.New(db)

	// services
	bs := booksvc.New(db, br)
	ls := loansvc.New(db, lr, loansvc.Config{
		LoanPeriod:   cfg.LoanPeriod,
		FinePerDay:   cfg.FinePerDay,
		AcademicYear: cfg.ActiveAcademicYear,
	}, rabbit, log)

	// controllers
	bookC := &bookctrl.Controller{Svc: bs, Log: log}
	loanC := &loanctrl.Controller{Svc: ls, Log: log}

	// echo
	e := echoServer.New(log)
	echoServer.Register(e, echoServer.C{
		Book:      bookC,
		Loan:      loanC,
		JWTSecret: cfg.JWTSecret,
		Log:       log,
	})

	log.Info("starting server", "port", cfg.Port, "env", cfg.Env, "db", cfg.DatabaseDriver)

	if err := e.Start(":" + cfg.Port); err != nil {
		log.Error("server stopped", "err", err)
	}
}
