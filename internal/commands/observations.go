package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/Checker-Finance/erclient/pkg/erclient"
	"github.com/Checker-Finance/erclient/pkg/export"
)

type ObservationsCommand struct {
	*Command

	flagSubject string
	flagSince   timeFlag
	flagUntil   timeFlag
	flagFormat  string
	flagOut     string
}

func (c *ObservationsCommand) Synopsis() string {
	return "Export a subject's observations as GPX or CSV"
}

func (c *ObservationsCommand) Help() string {
	return `Usage: er-export observations -subject ID [-since T] [-until T] [-format gpx|csv] [-o FILE]` +
		flagHelp(c.flags())
}

func (c *ObservationsCommand) flags() *flag.FlagSet {
	fs := newFlagSet("observations")
	fs.StringVar(&c.flagSubject, "subject", "", "(Required) Subject ID.")
	fs.Var(&c.flagSince, "since", "Start of the window.")
	fs.Var(&c.flagUntil, "until", "End of the window.")
	fs.StringVar(&c.flagFormat, "format", "gpx", "Output format: gpx or csv.")
	fs.StringVar(&c.flagOut, "o", "", "Output file; stdout when empty.")
	return fs
}

func (c *ObservationsCommand) Run(args []string) int {
	return c.run(c.flags(), args, func() error {
		if c.flagSubject == "" {
			return errors.New("subject flag is required")
		}
		if c.flagFormat != "gpx" && c.flagFormat != "csv" {
			return fmt.Errorf("format must be gpx or csv, got %q", c.flagFormat)
		}
		return nil
	}, func(ctx context.Context, client *erclient.Client) error {
		params := erclient.Params{"subject_id": c.flagSubject}
		if !c.flagSince.t.IsZero() {
			params["since"] = c.flagSince.t
		}
		if !c.flagUntil.t.IsZero() {
			params["until"] = c.flagUntil.t
		}

		obs, err := client.Observations(params, erclient.PageOptions{}).Collect(ctx)
		if err != nil {
			return fmt.Errorf("fetch observations: %w", err)
		}
		out, err := c.output(c.flagOut)
		if err != nil {
			return err
		}
		defer out.Close()

		if c.flagFormat == "csv" {
			err = export.WriteObservationsCSV(out, obs)
		} else {
			err = export.WriteObservationsGPX(out, c.flagSubject, obs)
		}
		if err != nil {
			return err
		}
		c.UI.Info(fmt.Sprintf("wrote %d observation(s)", len(obs)))
		return nil
	})
}
