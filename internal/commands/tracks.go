package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/Checker-Finance/erclient/pkg/erclient"
	"github.com/Checker-Finance/erclient/pkg/export"
)

type TracksCommand struct {
	*Command

	flagSubject string
	flagSince   timeFlag
	flagUntil   timeFlag
	flagOut     string
}

func (c *TracksCommand) Synopsis() string {
	return "Export a subject's track as GPX"
}

func (c *TracksCommand) Help() string {
	return `Usage: er-export tracks -subject ID [-since T] [-until T] [-o FILE]

  Downloads the subject's track and writes it as GPX.` + flagHelp(c.flags())
}

func (c *TracksCommand) flags() *flag.FlagSet {
	fs := newFlagSet("tracks")
	fs.StringVar(&c.flagSubject, "subject", "", "(Required) Subject ID.")
	fs.Var(&c.flagSince, "since", "Start of the window (RFC3339 or YYYY-MM-DD).")
	fs.Var(&c.flagUntil, "until", "End of the window (RFC3339 or YYYY-MM-DD).")
	fs.StringVar(&c.flagOut, "o", "", "Output file; stdout when empty.")
	return fs
}

func (c *TracksCommand) Run(args []string) int {
	return c.run(c.flags(), args, func() error {
		if c.flagSubject == "" {
			return errors.New("subject flag is required")
		}
		return nil
	}, func(ctx context.Context, client *erclient.Client) error {
		track, err := client.GetSubjectTracks(ctx, c.flagSubject, c.flagSince.t, c.flagUntil.t)
		if err != nil {
			return fmt.Errorf("fetch track for %s: %w", c.flagSubject, err)
		}
		out, err := c.output(c.flagOut)
		if err != nil {
			return err
		}
		defer out.Close()
		if err := export.WriteTracksGPX(out, track); err != nil {
			return err
		}
		c.UI.Info(fmt.Sprintf("wrote %d track(s) for subject %s", len(track.Features), c.flagSubject))
		return nil
	})
}
