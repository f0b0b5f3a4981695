package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brojonat/blinkpay/client"
	"github.com/urfave/cli/v2"
)

func confirmCommands() *cli.Command {
	return &cli.Command{
		Name:  "confirm",
		Usage: "Track payment confirmation workflows",
		Subcommands: []*cli.Command{
			startConfirmCommand(),
			confirmStatusCommand(),
			awaitConfirmCommand(),
		},
	}
}

func startConfirmCommand() *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "Start tracking a submitted payment",
		ArgsUsage: "<link-id> <signature>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("requires exactly two arguments: link id and signature")
			}

			started, err := newClient(c).StartConfirmation(context.Background(), c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("failed to start confirmation: %w", err)
			}

			return render(c, started, func() {
				fmt.Fprintf(c.App.Writer, "✓ Confirmation started\n")
				fmt.Fprintf(c.App.Writer, "  Workflow ID: %s\n", started.WorkflowID)
			})
		},
	}
}

func confirmStatusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the state of a confirmation workflow",
		ArgsUsage: "<workflow-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: workflow id")
			}

			conf, err := newClient(c).GetConfirmation(context.Background(), c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to get confirmation: %w", err)
			}

			return render(c, conf, func() {
				printConfirmation(c, conf)
			})
		},
	}
}

func awaitConfirmCommand() *cli.Command {
	return &cli.Command{
		Name:      "await",
		Usage:     "Block until a confirmation workflow finishes",
		ArgsUsage: "<workflow-id>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Value:   3 * time.Minute,
				Usage:   "How long to wait",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Value: 2 * time.Second,
				Usage: "Polling interval",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: workflow id")
			}
			workflowID := c.Args().First()

			if !c.Bool("json") && c.String("jq") == "" {
				fmt.Fprintf(os.Stderr, "Waiting for confirmation %s (timeout %v)...\n", workflowID, c.Duration("timeout"))
			}

			ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
			defer cancel()

			conf, err := newClient(c).AwaitConfirmation(ctx, workflowID, c.Duration("interval"))
			if err != nil {
				return fmt.Errorf("failed to await confirmation: %w", err)
			}

			if err := render(c, conf, func() { printConfirmation(c, conf) }); err != nil {
				return err
			}
			if !conf.Confirmed() {
				return cli.Exit(fmt.Sprintf("payment not confirmed: %s", conf.State), 1)
			}
			return nil
		},
	}
}

func printConfirmation(c *cli.Context, conf *client.Confirmation) {
	w := c.App.Writer
	fmt.Fprintf(w, "Workflow ID: %s\n", conf.WorkflowID)
	fmt.Fprintf(w, "Link ID:     %s\n", conf.LinkID)
	fmt.Fprintf(w, "Signature:   %s\n", conf.Signature)
	fmt.Fprintf(w, "State:       %s\n", conf.State)
	if conf.ConfirmationStatus != "" {
		fmt.Fprintf(w, "Commitment:  %s\n", conf.ConfirmationStatus)
	}
	if conf.Slot != 0 {
		fmt.Fprintf(w, "Slot:        %d\n", conf.Slot)
	}
	if conf.Error != nil {
		fmt.Fprintf(w, "Error:       %s\n", *conf.Error)
	}
}
