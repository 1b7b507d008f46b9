// Package ctl implements todoctl, the administrative command line: database
// initialisation, account creation, listing and XML export.
package ctl

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Dan9191/todo-service/internal/common"
	"github.com/Dan9191/todo-service/internal/export"
	"github.com/Dan9191/todo-service/internal/i18n"
	"github.com/Dan9191/todo-service/internal/repository"
	"github.com/Dan9191/todo-service/internal/service"
	"golang.org/x/term"
)

// ErrAborted is returned when a destructive command is not confirmed.
var ErrAborted = errors.New("aborted")

const usage = `usage: todoctl <command> [flags]

commands:
  init-db      create the schema (-drop wipes all data first)
  create-user  create an account, reading the password from the terminal
  list-users   print every account with its item counts
  export       write a user's items as XML
`

// App holds the dependencies of every command.
type App struct {
	db       *sql.DB
	dialect  repository.Dialect
	identity *service.IdentityService
	todos    *service.TodoService
	in       *bufio.Reader
	out      io.Writer
	now      func() time.Time

	// readPassword reads a secret without echo; tests replace it.
	readPassword func() (string, error)
}

// NewApp wires the commands to db, reading answers from in and writing to out.
func NewApp(db *sql.DB, dialect repository.Dialect, identity *service.IdentityService, todos *service.TodoService, in io.Reader, out io.Writer) *App {
	a := &App{
		db:       db,
		dialect:  dialect,
		identity: identity,
		todos:    todos,
		in:       bufio.NewReader(in),
		out:      out,
		now:      time.Now,
	}
	a.readPassword = a.terminalPassword
	return a
}

// terminalPassword disables echo when stdin is a terminal and falls back to
// a plain line read otherwise, so passwords can be piped in.
func (a *App) terminalPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return a.readLine()
	}
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(a.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func (a *App) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Run dispatches args[0] to its command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return flag.ErrHelp
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "init-db":
		return a.initDB(ctx, rest)
	case "create-user":
		return a.createUser(ctx, rest)
	case "list-users":
		return a.listUsers(ctx, rest)
	case "export":
		return a.export(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	}
	fmt.Fprint(a.out, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *App) initDB(ctx context.Context, args []string) error {
	fs := a.flags("init-db")
	drop := fs.Bool("drop", false, "drop all tables and data before creating the schema")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*drop {
		if err := repository.Migrate(ctx, a.db, a.dialect); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Initialized database.")
		return nil
	}

	fmt.Fprint(a.out, "This operation will delete the database, type \"yes\" to continue: ")
	answer, err := a.readLine()
	if err != nil {
		return err
	}
	if strings.TrimSpace(answer) != "yes" {
		return ErrAborted
	}
	if err := repository.Reset(ctx, a.db, a.dialect); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Dropped tables and initialized database.")
	return nil
}

func (a *App) createUser(ctx context.Context, args []string) error {
	fs := a.flags("create-user")
	username := fs.String("username", "", "account name")
	seed := fs.Bool("seed", false, "add the starter items")
	locale := fs.String("locale", i18n.Default, "language of the starter items")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !i18n.IsSupported(*locale) {
		return fmt.Errorf("unsupported locale %q", *locale)
	}

	fmt.Fprint(a.out, "Password: ")
	password, err := a.readPassword()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprint(a.out, "Repeat password: ")
	again, err := a.readPassword()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password != again {
		return errors.New("passwords do not match")
	}

	user, err := a.identity.Register(ctx, *username, password, *locale, *seed)
	if err != nil {
		var verr *common.ValidationError
		if errors.As(err, &verr) {
			return errors.New(verr.Message)
		}
		return err
	}
	fmt.Fprintf(a.out, "Created user %s (id %d).\n", user.Username, user.ID)
	return nil
}

func (a *App) listUsers(ctx context.Context, args []string) error {
	if err := a.flags("list-users").Parse(args); err != nil {
		return err
	}
	users, err := a.identity.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tLOCALE\tACTIVE\tCOMPLETED")
	for i := range users {
		counts, err := a.todos.Counts(ctx, &users[i])
		if err != nil {
			return err
		}
		locale := users[i].LocaleOrEmpty()
		if locale == "" {
			locale = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", users[i].ID, users[i].Username, locale, counts.Active, counts.Completed)
	}
	return tw.Flush()
}

func (a *App) export(ctx context.Context, args []string) error {
	fs := a.flags("export")
	username := fs.String("username", "", "account to export")
	output := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.identity.FindByUsername(ctx, *username)
	if err != nil {
		return fmt.Errorf("user %q: %w", *username, err)
	}
	items, err := a.todos.Export(ctx, user)
	if err != nil {
		return err
	}

	w := a.out
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := export.Write(w, user, items, a.now()); err != nil {
		return err
	}
	if *output != "" {
		fmt.Fprintf(a.out, "Exported %d items to %s.\n", len(items), *output)
	}
	return nil
}
