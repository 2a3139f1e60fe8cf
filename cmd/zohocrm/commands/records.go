package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	zohocrm "github.com/growthpath/zohocrm-go"
)

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "fetch one record by id",
		ArgsUsage: "<module> <id>",
		Action: run(func(ctx context.Context, cmd *cli.Command, client *zohocrm.Client) error {
			module, id := cmd.Args().Get(0), cmd.Args().Get(1)
			if module == "" || id == "" {
				return errors.New("usage: get <module> <id>")
			}
			record, err := client.GetByID(ctx, module, id)
			if err != nil {
				return err
			}
			return printJSON(record)
		}),
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "list or search records of a module",
		ArgsUsage: "<module>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "criteria",
				Usage: "vendor search criteria, e.g. (Account_Name:equals:ACME)",
			},
			&cli.StringFlag{
				Name:  "modified-since",
				Usage: "only records modified after this RFC3339 timestamp",
			},
			&cli.IntFlag{
				Name:  "pages",
				Usage: "stop after this many pages (0 = all)",
			},
		},
		Action: run(func(ctx context.Context, cmd *cli.Command, client *zohocrm.Client) error {
			module := cmd.Args().Get(0)
			if module == "" {
				return errors.New("usage: list <module>")
			}

			opts, err := listOptions(cmd)
			if err != nil {
				return err
			}

			maxPages := cmd.Int("pages")
			fetched := 0
			for page, err := range client.Records(ctx, module, opts...) {
				if err != nil {
					return err
				}
				if err := printJSON(page); err != nil {
					return err
				}
				fetched++
				if maxPages > 0 && fetched >= maxPages {
					break
				}
			}
			return nil
		}),
	}
}

func deletedCommand() *cli.Command {
	return &cli.Command{
		Name:      "deleted",
		Usage:     "list soft-deleted records of a module",
		ArgsUsage: "<module>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "type",
				Usage: "deleted record type (all|recycle|permanent)",
				Value: string(zohocrm.DeletedAll),
			},
		},
		Action: run(func(ctx context.Context, cmd *cli.Command, client *zohocrm.Client) error {
			module := cmd.Args().Get(0)
			if module == "" {
				return errors.New("usage: deleted <module>")
			}
			for page, err := range client.DeletedRecords(ctx, module, zohocrm.DeletedType(cmd.String("type"))) {
				if err != nil {
					return err
				}
				if err := printJSON(page); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "delete one record by id",
		ArgsUsage: "<module> <id>",
		Action: run(func(ctx context.Context, cmd *cli.Command, client *zohocrm.Client) error {
			module, id := cmd.Args().Get(0), cmd.Args().Get(1)
			if module == "" || id == "" {
				return errors.New("usage: delete <module> <id>")
			}
			ok, body, err := client.DeleteByID(ctx, module, id)
			if err != nil {
				return err
			}
			if err := printJSON(body); err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("delete of %s/%s was rejected", module, id)
			}
			return nil
		}),
	}
}

func upsertCommand() *cli.Command {
	return &cli.Command{
		Name:      "upsert",
		Usage:     "insert or update a record from a JSON payload file",
		ArgsUsage: "<module>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    `payload file, {"data": [{...record...}]}`,
				Required: true,
			},
			&cli.StringFlag{
				Name:  "criteria",
				Usage: "match criteria; the first matching record is updated instead of inserting",
			},
		},
		Action: run(func(ctx context.Context, cmd *cli.Command, client *zohocrm.Client) error {
			module := cmd.Args().Get(0)
			if module == "" {
				return errors.New("usage: upsert <module> -f payload.json")
			}

			raw, err := os.ReadFile(cmd.String("file"))
			if err != nil {
				return err
			}
			var payload zohocrm.RecordPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return fmt.Errorf("parsing payload: %w", err)
			}

			ok, record, err := client.Upsert(ctx, module, payload, cmd.String("criteria"))
			if err != nil {
				return err
			}
			if err := printJSON(record); err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("upsert into %s was rejected", module)
			}
			return nil
		}),
	}
}

// listOptions converts list flags into query options.
func listOptions(cmd *cli.Command) ([]zohocrm.QueryOption, error) {
	var opts []zohocrm.QueryOption
	if criteria := cmd.String("criteria"); criteria != "" {
		opts = append(opts, zohocrm.WithCriteria(criteria))
	}
	if since := cmd.String("modified-since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return nil, fmt.Errorf("invalid modified-since: %w", err)
		}
		opts = append(opts, zohocrm.WithModifiedSince(t))
	}
	return opts, nil
}
