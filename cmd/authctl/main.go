package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	auth "github.com/goliatone/go-auth-api"
	"github.com/goliatone/go-auth-api/config"
)

const usage = `usage: authctl <command> [flags]

commands:
  migrate           apply database migrations
  migrations        list migrations and whether they are applied
  createsuperuser   create an admin account
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return fmt.Errorf("missing command")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := auth.OpenDB(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	switch args[0] {
	case "migrate":
		if err := auth.Migrate(ctx, db); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations applied")
		return nil

	case "migrations":
		status, err := auth.MigrationStatus(ctx, db)
		if err != nil {
			return err
		}
		for _, m := range status {
			fmt.Fprintf(out, "%05d applied=%t\n", m.Version, m.Applied)
		}
		return nil

	case "createsuperuser":
		return createSuperuser(ctx, auth.NewRepositoryManager(db), cfg.Auth(), args[1:], out)

	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func createSuperuser(ctx context.Context, repo auth.RepositoryManager, cfg auth.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	fs.SetOutput(out)

	email := fs.String("email", "", "email address, also the login")
	firstName := fs.String("first-name", "Admin", "first name")
	lastName := fs.String("last-name", "", "last name")
	password := fs.String("password", os.Getenv("AUTH_SUPERUSER_PASSWORD"), "password (defaults to AUTH_SUPERUSER_PASSWORD)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var created *auth.User
	logs := auth.NewLogger("authctl", false)
	err := auth.NewRegisterUserHandler(repo, cfg).
		WithLogger(logs.GetLogger("authctl:register")).
		WithActivitySink(auth.NewLoggingActivitySink(logs.GetLogger("authctl:activity"))).
		Execute(ctx, auth.RegisterUserMessage{
		EmailAddress: *email,
		FirstName:    *firstName,
		LastName:     *lastName,
		Password:     *password,
		IsAdmin:      true,
		OnResponse: func(resp *auth.RegisterUserResponse) {
			created = resp.User
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "superuser %s created with id %s\n", created.EmailAddress, created.ID)
	return nil
}
