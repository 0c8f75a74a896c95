// Package commands implements the er-export subcommands.
package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mitchellh/cli"
	"go.uber.org/zap"

	"github.com/Checker-Finance/erclient/pkg/erclient"
)

// ClientFactory returns a ready client; it is called once per command run.
type ClientFactory func(ctx context.Context) (*erclient.Client, error)

// ProfileLister lists the credential profiles available to NewClient.
type ProfileLister func(ctx context.Context) ([]string, error)

// Command carries what every subcommand shares.
type Command struct {
	Log       *zap.Logger
	UI        cli.Ui
	NewClient ClientFactory
	Profiles  ProfileLister
	// Create opens an output file; nil means os.Create.
	Create func(path string) (io.WriteCloser, error)
	// Stdout receives output when -o is not given.
	Stdout io.Writer
}

// Factory builds the command table for cli.CLI.
func Factory(base *Command) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"tracks": func() (cli.Command, error) {
			return &TracksCommand{Command: base}, nil
		},
		"events": func() (cli.Command, error) {
			return &EventsCommand{Command: base}, nil
		},
		"observations": func() (cli.Command, error) {
			return &ObservationsCommand{Command: base}, nil
		},
		"profiles": func() (cli.Command, error) {
			return &ProfilesCommand{Command: base}, nil
		},
	}
}

func (c *Command) output(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{c.stdout()}, nil
	}
	if c.Create != nil {
		return c.Create(path)
	}
	return os.Create(path)
}

func (c *Command) stdout() io.Writer {
	if c.Stdout != nil {
		return c.Stdout
	}
	return os.Stdout
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// timeFlag accepts RFC3339 or a bare date (midnight UTC).
type timeFlag struct{ t time.Time }

func (f *timeFlag) String() string {
	if f.t.IsZero() {
		return ""
	}
	return f.t.Format(time.RFC3339)
}

func (f *timeFlag) Set(s string) error {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			f.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid time %q (want RFC3339 or YYYY-MM-DD)", s)
}

// context ends on SIGINT or SIGTERM so a long export can be interrupted.
func (c *Command) context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func flagHelp(fs *flag.FlagSet) string {
	var b strings.Builder
	b.WriteString("\n\nOptions:\n")
	fs.VisitAll(func(f *flag.Flag) {
		fmt.Fprintf(&b, "\n  -%s\n      %s\n", f.Name, f.Usage)
	})
	return b.String()
}

// run parses flags, builds the client, and reports failures through the UI.
func (c *Command) run(fs *flag.FlagSet, args []string, validate func() error, body func(ctx context.Context, client *erclient.Client) error) int {
	if err := fs.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if validate != nil {
		if err := validate(); err != nil {
			c.UI.Error(err.Error())
			return 1
		}
	}

	ctx, stop := c.context()
	defer stop()
	client, err := c.NewClient(ctx)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error creating client: %v", err))
		return 1
	}
	if err := body(ctx, client); err != nil {
		c.Log.Error("export.failed", zap.String("command", fs.Name()), zap.Error(err))
		c.UI.Error(err.Error())
		return 1
	}
	return 0
}
