package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"schoollibrary/model"
	loansvc "schoollibrary/service/loan"
	"schoollibrary/util/database"
	jwtutil "schoollibrary/util/jwt"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db      *database.DB
	sweeper loansvc.Sweeper
	secret  string
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]          - run a goose command (up, down, status, version, redo, reset, up-to, down-to)")
	fmt.Fprintln(cli.out, "  sweep-overdue                   - flag borrowed loans past their due date")
	fmt.Fprintln(cli.out, "  token -sub ID -role ROLE [-ttl] - print a development JWT")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenCmd.SetOutput(cli.out)
	tokenSub := tokenCmd.String("sub", "", "user id placed in the sub claim")
	tokenRole := tokenCmd.String("role", "student", "student, teacher, staff or admin")
	tokenTTL := tokenCmd.Duration("ttl", 24*time.Hour, "token lifetime")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.db.RunMigrations(ctx, args[2], args[3:]...)
	case "sweep-overdue":
		n, err := cli.sweeper.MarkOverdue(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "flagged %d overdue loans\n", n)
		return nil
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenSub == "" || !model.Role(*tokenRole).Valid() {
			tokenCmd.Usage()
			return errHelp
		}
		tok, err := jwtutil.Issue(cli.secret, *tokenSub, *tokenRole, *tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cli.out, tok)
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}
