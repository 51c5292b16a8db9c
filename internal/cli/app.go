// Package cli builds the meremaild urfave/cli application: the "run"
// server entrypoint plus the operator subcommands in internal/cli/ctl
// (spec §6 CLI, [EXPANSION] ambient stack).
package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/jcgurango/meremail/internal/cli/ctl"
)

const version = "0.1.0"

// New builds the top-level App. runServer is the "run" subcommand's
// action, injected by cmd/meremaild so this package stays free of the
// concrete component wiring.
func New(runServer cli.ActionFunc) *cli.App {
	app := cli.NewApp()
	app.Name = "meremaild"
	app.Usage = "personal IMAP/SMTP mail client server"
	app.Version = version
	app.Commands = []*cli.Command{
		{
			Name:   "run",
			Usage:  "start the ingestion, send-queue, scheduler, and HTTP surface",
			Action: runServer,
		},
		ctl.RulesCommand(),
		ctl.BackupCommand(),
		ctl.AuthCommand(),
	}
	return app
}
