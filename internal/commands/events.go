package commands

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/Checker-Finance/erclient/pkg/erclient"
	"github.com/Checker-Finance/erclient/pkg/export"
)

type EventsCommand struct {
	*Command

	flagSince timeFlag
	flagUntil timeFlag
	flagState string
	flagType  string
	flagMax   int
	flagOut   string
}

func (c *EventsCommand) Synopsis() string {
	return "Export events as CSV"
}

func (c *EventsCommand) Help() string {
	return `Usage: er-export events [-since T] [-until T] [-state S1,S2] [-type T] [-max N] [-o FILE]

  Pages through events and writes them as CSV, one column per event_details key.` + flagHelp(c.flags())
}

func (c *EventsCommand) flags() *flag.FlagSet {
	fs := newFlagSet("events")
	fs.Var(&c.flagSince, "since", "Only events at or after this time.")
	fs.Var(&c.flagUntil, "until", "Only events before this time.")
	fs.StringVar(&c.flagState, "state", "", "Comma separated states (new, active, resolved).")
	fs.StringVar(&c.flagType, "type", "", "Event type value.")
	fs.IntVar(&c.flagMax, "max", 0, "Stop after this many events; 0 means all.")
	fs.StringVar(&c.flagOut, "o", "", "Output file; stdout when empty.")
	return fs
}

func (c *EventsCommand) Run(args []string) int {
	return c.run(c.flags(), args, func() error {
		if c.flagMax < 0 {
			return fmt.Errorf("max must not be negative")
		}
		return nil
	}, func(ctx context.Context, client *erclient.Client) error {
		params := erclient.Params{
			"include_details": true,
			"event_type":      c.flagType,
		}
		if !c.flagSince.t.IsZero() {
			params["since"] = c.flagSince.t
		}
		if !c.flagUntil.t.IsZero() {
			params["until"] = c.flagUntil.t
		}
		if c.flagState != "" {
			params["state"] = strings.Split(c.flagState, ",")
		}

		events, err := client.Events(params, erclient.PageOptions{MaxResults: c.flagMax}).Collect(ctx)
		if err != nil {
			return fmt.Errorf("fetch events: %w", err)
		}
		out, err := c.output(c.flagOut)
		if err != nil {
			return err
		}
		defer out.Close()
		if err := export.WriteEventsCSV(out, events); err != nil {
			return err
		}
		c.UI.Info(fmt.Sprintf("wrote %d event(s)", len(events)))
		return nil
	})
}
