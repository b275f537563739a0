// Package authctl implements the operator tool for the auth service: key
// generation, publishing the JWKS, schema migrations and seeding privileged
// users that cannot be created through public registration.
package authctl

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/fatih/color"
	"golang.org/x/term"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type command struct {
	usage string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"keygen":      {"keygen [-out path] [-bits n]  generate an RSA signing key pair", (*App).keygen},
	"jwks":        {"jwks [-key path]               print the public JWKS for a private key", (*App).jwks},
	"secret":      {"secret [-bytes n]              print a random refresh token secret", (*App).secret},
	"migrate":     {"migrate                        apply database migrations", (*App).migrate},
	"create-user": {"create-user -email e -role r   create a user with the given role", (*App).createUser},
}

type App struct {
	config *config.Config
	out    io.Writer

	// Test seams.
	readPassword func() ([]byte, error)
	openDB       func(ctx context.Context, dsn string) (*sql.DB, error)
	manager      func() repomanager.RepositoryManager
}

func NewApp(c *config.Config) *App {
	return &App{
		config:       c,
		out:          color.Output,
		readPassword: readTerminalPassword,
		openDB:       openDB,
		manager:      newManager,
	}
}

func readTerminalPassword() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func newManager() repomanager.RepositoryManager {
	return repomanager.NewPostgresRepositoryManager()
}

// Run dispatches args[0] to its command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" {
		a.printUsage()
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		a.printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
	return cmd.run(a, ctx, args[1:])
}

func (a *App) printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Fprintln(a.out, "authctl - auth service operator tool")
	fmt.Fprintln(a.out)
	yellow.Fprintln(a.out, "Commands:")

	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(a.out, "  %s\n", commands[n].usage)
	}
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Server settings (-d, -c/-config, GOPHAUTH_* variables) are read as by the server.")
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}
