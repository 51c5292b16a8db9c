package ctl

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
)

// AuthCommand implements `meremaild auth hash-password <password>`: prints
// a bcrypt hash for the operator to set as AUTH_PASSWORD (spec
// [EXPANSION] domain stack — golang.org/x/crypto bcrypt).
func AuthCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "credential management",
		Subcommands: []*cli.Command{
			{
				Name:      "hash-password",
				Usage:     "hash a password for AUTH_PASSWORD",
				ArgsUsage: "<password>",
				Action:    runHashPassword,
			},
		},
	}
}

func runHashPassword(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return fmt.Errorf("missing password argument")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(c.Args().First()), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	fmt.Println(string(hash))
	return nil
}
