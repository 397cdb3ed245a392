package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/webtoz/internal/client/api"
	"github.com/dmitrijs2005/webtoz/internal/client/config"
	"github.com/dmitrijs2005/webtoz/internal/client/session"
	"github.com/dmitrijs2005/webtoz/internal/logging"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

type App struct {
	config  *config.Config
	api     *api.Client
	session *session.Manager
	reader  *bufio.Reader
	out     io.Writer
}

// NewApp opens the local session store and builds the API client and the
// session manager on top of it.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	store, err := session.OpenSQLiteStore(ctx, c.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	logger := logging.New(os.Stderr, "warn", "text")
	client := api.New(c.APIBaseURL, c.RequestTimeout)

	return newApp(c, client, session.NewManager(client, store, logger), os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, client *api.Client, m *session.Manager, in io.Reader, out io.Writer) *App {
	a := &App{
		config:  c,
		api:     client,
		session: m,
		reader:  bufio.NewReader(in),
		out:     out,
	}
	m.OnExpired(func() {
		fmt.Fprintln(a.out, "Session expired. Please login again.")
	})
	return a
}

// Run restores any stored session and blocks in the REPL until the user
// exits or input ends.
func (a *App) Run(ctx context.Context) error {
	defer a.session.Close()

	if err := a.session.Init(ctx); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Welcome to webtoz CLI (type 'help' for commands)")
	if u := a.session.User(); u != nil {
		fmt.Fprintf(a.out, "Logged in as %s\n", u.Email)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.session.State() == session.Authenticated
}

func (a *App) isAdmin() bool {
	return a.session.User().IsAdmin()
}

func (a *App) getStatus() string {
	u := a.session.User()
	if u == nil {
		return ""
	}
	return fmt.Sprintf("(%s %s)", u.Email, u.Role)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}
