package main

import (
	"bufio"
	"context"
	"os"
	"time"

	"github.com/mitchellh/cli"

	"github.com/Checker-Finance/erclient/internal/bootstrap"
	"github.com/Checker-Finance/erclient/internal/commands"
	"github.com/Checker-Finance/erclient/pkg/config"
	"github.com/Checker-Finance/erclient/pkg/erclient"
	"github.com/Checker-Finance/erclient/pkg/logger"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	cfg := config.Load("er-export")
	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	log := logger.Named("er-export")

	// Exported data goes to stdout; progress and errors go to stderr.
	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      os.Stderr,
		ErrorWriter: os.Stderr,
	}

	session, err := bootstrap.NewSession(context.Background(), cfg, log, nil)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}

	base := &commands.Command{
		Log: log,
		UI:  ui,
		NewClient: func(ctx context.Context) (*erclient.Client, error) {
			c, _, err := session.Connect(ctx, 30*time.Second)
			return c, err
		},
		Profiles: session.Profiles,
	}

	c := &cli.CLI{
		Name:     "er-export",
		Args:     args[1:],
		Commands: commands.Factory(base),
	}
	code, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	return code
}
