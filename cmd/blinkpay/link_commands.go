package main

import (
	"context"
	"fmt"
	"time"

	"github.com/brojonat/blinkpay/client"
	bpsolana "github.com/brojonat/blinkpay/service/solana"
	"github.com/urfave/cli/v2"
)

func linkCommands() *cli.Command {
	return &cli.Command{
		Name:  "link",
		Usage: "Create and resolve payment links",
		Subcommands: []*cli.Command{
			createLinkCommand(),
			actionCommand(),
			payCommand(),
		},
	}
}

func createLinkCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a payment link",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "recipient",
				Aliases:  []string{"r"},
				Usage:    "Recipient wallet address",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "token",
				Aliases: []string{"t"},
				Usage:   "Token to request (SOL or USDC)",
				Value:   "SOL",
			},
			&cli.Float64Flag{
				Name:     "amount",
				Aliases:  []string{"a"},
				Usage:    "Amount in whole tokens",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "memo",
				Aliases: []string{"m"},
				Usage:   "Optional memo shown to the payer",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 10 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
			defer cancel()

			created, err := newClient(c).CreateLink(ctx, client.CreateLinkRequest{
				Recipient: c.String("recipient"),
				Token:     c.String("token"),
				Amount:    c.Float64("amount"),
				Memo:      c.String("memo"),
			})
			if err != nil {
				return fmt.Errorf("failed to create link: %w", err)
			}

			// The QR code is a large base64 blob; keep it out of human output.
			return render(c, created, func() {
				w := c.App.Writer
				fmt.Fprintf(w, "✓ Payment link created\n")
				fmt.Fprintf(w, "  ID:         %s\n", created.ID)
				fmt.Fprintf(w, "  Link:       %s\n", created.Link)
				fmt.Fprintf(w, "  Action URL: %s\n", created.ActionURL)
				if created.SolanaPayURL != "" {
					fmt.Fprintf(w, "  Solana Pay: %s\n", created.SolanaPayURL)
				}
			})
		},
	}
}

func actionCommand() *cli.Command {
	return &cli.Command{
		Name:      "action",
		Usage:     "Show the action payload for a link",
		ArgsUsage: "<link-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: link id")
			}
			id := c.Args().First()

			action, err := newClient(c).GetAction(context.Background(), id)
			if err != nil {
				return fmt.Errorf("failed to get action: %w", err)
			}

			return render(c, action, func() {
				w := c.App.Writer
				fmt.Fprintf(w, "Title:       %s\n", action.Title)
				fmt.Fprintf(w, "Description: %s\n", action.Description)
				fmt.Fprintf(w, "Label:       %s\n", action.Label)
				fmt.Fprintf(w, "Icon:        %s\n", action.Icon)
			})
		},
	}
}

// payResult is the JSON output of link pay.
type payResult struct {
	Transaction string                       `json:"transaction"`
	Message     string                       `json:"message,omitempty"`
	Summary     *bpsolana.TransactionSummary `json:"summary,omitempty"`
}

func payCommand() *cli.Command {
	return &cli.Command{
		Name:      "pay",
		Usage:     "Build the unsigned payment transaction for a payer",
		ArgsUsage: "<link-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "account",
				Usage:    "Payer wallet address",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "decode",
				Usage: "Decode the returned transaction",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: link id")
			}
			id := c.Args().First()

			built, err := newClient(c).BuildTransaction(context.Background(), id, c.String("account"))
			if err != nil {
				return fmt.Errorf("failed to build transaction: %w", err)
			}

			result := payResult{Transaction: built.Transaction, Message: built.Message}
			if c.Bool("decode") {
				summary, err := summarize(built.Transaction)
				if err != nil {
					return err
				}
				result.Summary = summary
			}

			return render(c, result, func() {
				w := c.App.Writer
				if result.Message != "" {
					fmt.Fprintf(w, "Message: %s\n", result.Message)
				}
				fmt.Fprintf(w, "Transaction (base64, unsigned):\n%s\n", result.Transaction)
				if result.Summary != nil {
					fmt.Fprintln(w)
					printSummary(c, result.Summary)
				}
			})
		},
	}
}
