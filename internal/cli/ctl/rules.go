package ctl

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jcgurango/meremail/internal/config"
	"github.com/jcgurango/meremail/internal/ruleengine"
	"github.com/jcgurango/meremail/internal/store"
)

// RulesCommand implements `meremaild rules apply <id>`: triggers a
// retroactive application from the command line and blocks until it
// finishes, printing progress (spec [EXPANSION] ambient stack "CLI").
func RulesCommand() *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: "manage and run rules",
		Subcommands: []*cli.Command{
			{
				Name:      "apply",
				Usage:     "retroactively apply a rule to every existing thread",
				ArgsUsage: "<rule-id>",
				Action:    runRulesApply,
			},
		},
	}
}

func runRulesApply(c *cli.Context) error {
	ruleID, err := parseUintArg(c)
	if err != nil {
		return err
	}

	cfg, st, err := openStoreFromEnv()
	if err != nil {
		return err
	}

	engine := ruleengine.New(st, cfg.TrashFolderID)
	app, err := engine.StartRetroactiveApplication(ruleID)
	if err != nil {
		return err
	}

	fmt.Printf("started rule application #%d\n", app.ID)
	for {
		time.Sleep(500 * time.Millisecond)
		app, err = st.GetRuleApplication(app.ID)
		if err != nil {
			return err
		}
		if app.Status == store.ApplicationCompleted || app.Status == store.ApplicationFailed {
			break
		}
		fmt.Printf("\r%d/%d processed, %d matched", app.ProcessedCount, app.TotalCount, app.MatchedCount)
	}

	fmt.Println()
	if app.Status == store.ApplicationFailed {
		msg := ""
		if app.Error != nil {
			msg = *app.Error
		}
		return fmt.Errorf("rule application failed: %s", msg)
	}
	fmt.Printf("done: %d processed, %d matched\n", app.ProcessedCount, app.MatchedCount)
	return nil
}

func parseUintArg(c *cli.Context) (uint, error) {
	if c.Args().Len() < 1 {
		return 0, fmt.Errorf("missing rule id argument")
	}
	var id uint
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &id); err != nil {
		return 0, fmt.Errorf("invalid rule id %q", c.Args().First())
	}
	return id, nil
}

func openStoreFromEnv() (config.Config, *store.Store, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return cfg, nil, err
	}
	db, err := store.Open(cfg.DatabasePath, false)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, store.New(db), nil
}
