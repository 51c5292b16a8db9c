package ctl

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/jcgurango/meremail/internal/scheduler"
)

// BackupCommand implements `meremaild backup now`: an out-of-band snapshot
// bypassing the scheduler's once-per-day gate.
func BackupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "manage database snapshots",
		Subcommands: []*cli.Command{
			{
				Name:   "now",
				Usage:  "take an immediate VACUUM INTO snapshot",
				Action: runBackupNow,
			},
		},
	}
}

func runBackupNow(c *cli.Context) error {
	cfg, st, err := openStoreFromEnv()
	if err != nil {
		return err
	}
	sched := scheduler.New(st, cfg)
	if err := sched.RunBackupNow(); err != nil {
		return err
	}
	fmt.Println("backup complete")
	return nil
}
