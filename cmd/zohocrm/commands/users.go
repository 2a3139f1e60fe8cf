package commands

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	zohocrm "github.com/growthpath/zohocrm-go"
)

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "list CRM users",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "type",
				Usage: "vendor user type filter (AllUsers, ActiveUsers, ...)",
			},
		},
		Action: run(func(ctx context.Context, cmd *cli.Command, client *zohocrm.Client) error {
			users, err := client.Users(ctx, cmd.String("type"))
			if err != nil {
				return err
			}
			return printJSON(users)
		}),
	}
}

func findUserCommand() *cli.Command {
	return &cli.Command{
		Name:      "find-user",
		Usage:     "resolve an active user by exact full name",
		ArgsUsage: "<full name>",
		Action: run(func(ctx context.Context, cmd *cli.Command, client *zohocrm.Client) error {
			fullName := cmd.Args().Get(0)
			if fullName == "" {
				return errors.New("usage: find-user <full name>")
			}
			name, id, err := client.FindUserByName(ctx, fullName)
			if err != nil {
				return err
			}
			return printJSON(map[string]string{"full_name": name, "id": id})
		}),
	}
}
