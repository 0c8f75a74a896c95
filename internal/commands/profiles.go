package commands

import (
	"fmt"
)

type ProfilesCommand struct {
	*Command
}

func (c *ProfilesCommand) Synopsis() string {
	return "List credential profiles in the secrets backend"
}

func (c *ProfilesCommand) Help() string {
	return `Usage: er-export profiles

  Lists the profiles that have an {env}/{profile}/earthranger secret, one per
  line. Requires ER_SECRETS_SOURCE=aws; select one with ER_PROFILE.`
}

func (c *ProfilesCommand) Run(args []string) int {
	if err := newFlagSet("profiles").Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if c.Profiles == nil {
		c.UI.Error("no secrets backend configured")
		return 1
	}

	ctx, stop := c.context()
	defer stop()
	profiles, err := c.Profiles(ctx)
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	for _, p := range profiles {
		fmt.Fprintln(c.stdout(), p)
	}
	return 0
}
