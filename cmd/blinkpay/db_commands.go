package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/brojonat/blinkpay/service/db"
	"github.com/brojonat/blinkpay/service/links"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
)

func listLinksCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Usage:   "List stored payment links, newest first",
		Aliases: []string{"ls"},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of links",
				Value:   50,
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "Only show links for this token",
			},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			stored, err := store.ListLinks(context.Background(), int32(c.Int("limit")))
			if err != nil {
				return fmt.Errorf("failed to list links: %w", err)
			}

			if token := c.String("token"); token != "" {
				filtered := make([]*db.StoredLink, 0, len(stored))
				for _, l := range stored {
					if string(l.Record.Token) == token {
						filtered = append(filtered, l)
					}
				}
				stored = filtered
			}

			return render(c, stored, func() {
				w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTOKEN\tAMOUNT\tRECIPIENT\tMEMO\tCREATED")
				for _, l := range stored {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						l.ID,
						l.Record.Token,
						links.FormatAmount(l.Record.Amount),
						l.Record.Recipient,
						l.Record.Memo,
						l.CreatedAt.Format(time.RFC3339),
					)
				}
				w.Flush()
				fmt.Fprintf(os.Stderr, "\nTotal: %d links\n", len(stored))
			})
		},
	}
}

func getLinkCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show a stored payment link",
		ArgsUsage: "<link-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: link id")
			}
			id := c.Args().First()

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			rec, err := store.Get(context.Background(), id)
			if errors.Is(err, links.ErrNotFound) {
				return fmt.Errorf("link %s not found", id)
			}
			if err != nil {
				return fmt.Errorf("failed to get link: %w", err)
			}

			return render(c, rec, func() {
				w := c.App.Writer
				fmt.Fprintf(w, "ID:        %s\n", id)
				fmt.Fprintf(w, "Key:       %s\n", links.StoreKey(id))
				fmt.Fprintf(w, "Recipient: %s\n", rec.Recipient)
				fmt.Fprintf(w, "Token:     %s\n", rec.Token)
				fmt.Fprintf(w, "Amount:    %s\n", links.FormatAmount(rec.Amount))
				if rec.Memo != "" {
					fmt.Fprintf(w, "Memo:      %s\n", rec.Memo)
				}
			})
		},
	}
}

// getStore connects to the database named by --database-url.
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db.NewStore(pool), pool.Close, nil
}
