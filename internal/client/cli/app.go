// Package cli implements sitectl, a terminal front end for the community site.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/hongminglow/community-site/internal/client"
	"github.com/hongminglow/community-site/internal/logging"
)

// App binds the API client to terminal input and output.
type App struct {
	client *client.Client
	reader *bufio.Reader
	out    io.Writer
	logger logging.Logger
}

// NewApp builds an App for cfg.
func NewApp(cfg Config, in io.Reader, out, errOut io.Writer) *App {
	sessions := client.NewFileSessionStore(cfg.SessionFile)
	return newApp(client.New(cfg.APIURL, sessions), in, out, logging.New(errOut, "text", cfg.LogLevel))
}

func newApp(c *client.Client, in io.Reader, out io.Writer, logger logging.Logger) *App {
	return &App{client: c, reader: bufio.NewReader(in), out: out, logger: logger}
}

type command struct {
	summary string
	run     func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"register": {"create an account and sign in", (*App).register},
	"login":    {"sign in", (*App).login},
	"logout":   {"sign out and forget the stored session", (*App).logout},
	"whoami":   {"show the signed-in user", (*App).whoami},
	"list":     {"list <announcements|events|media|coordinators>", (*App).list},
	"create":   {"create <kind> (admin)", (*App).create},
	"delete":   {"delete <kind> <id> (admin)", (*App).delete},
}

var commandOrder = []string{"register", "login", "logout", "whoami", "list", "create", "delete"}

// Run dispatches args[0] and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		usage(a.out)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(a.out, "unknown command %q\n", args[0])
		usage(a.out)
		return 2
	}

	if err := cmd.run(a, ctx, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		a.logger.Debug(ctx, "command failed", "command", args[0], "error", err)
		fmt.Fprintln(a.out, userMessage(err))
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: sitectl [-api url] [-session file] <command> [args]")
	fmt.Fprintln(w)
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-9s %s\n", name, commands[name].summary)
	}
}

// userMessage maps an error onto the line shown to the user.
func userMessage(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, client.ErrNoSession):
		return "Not signed in. Run sitectl login first."
	case errors.Is(err, errNotAdmin):
		return "Not authorized as an admin"
	default:
		return err.Error()
	}
}
