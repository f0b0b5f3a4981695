package main

import (
	"fmt"
	"io"
	"strings"

	bpsolana "github.com/brojonat/blinkpay/service/solana"
	"github.com/urfave/cli/v2"
)

func txCommands() *cli.Command {
	return &cli.Command{
		Name:  "tx",
		Usage: "Transaction utilities",
		Subcommands: []*cli.Command{
			decodeTxCommand(),
		},
	}
}

func decodeTxCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Decode a base64 transaction (reads stdin when no argument is given)",
		ArgsUsage: "[base64-transaction]",
		Action: func(c *cli.Context) error {
			encoded := c.Args().First()
			if encoded == "" {
				data, err := io.ReadAll(c.App.Reader)
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				encoded = string(data)
			}
			encoded = strings.TrimSpace(encoded)
			if encoded == "" {
				return fmt.Errorf("a base64 transaction is required")
			}

			summary, err := summarize(encoded)
			if err != nil {
				return err
			}

			return render(c, summary, func() {
				printSummary(c, summary)
			})
		},
	}
}

func summarize(encoded string) (*bpsolana.TransactionSummary, error) {
	tx, err := bpsolana.DecodeTransaction(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	summary, err := bpsolana.Summarize(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize transaction: %w", err)
	}
	return summary, nil
}

func printSummary(c *cli.Context, s *bpsolana.TransactionSummary) {
	w := c.App.Writer
	fmt.Fprintf(w, "Fee Payer:  %s\n", s.FeePayer)
	fmt.Fprintf(w, "Blockhash:  %s\n", s.RecentBlockhash)
	fmt.Fprintf(w, "Signatures: %d required, signed=%t\n", s.RequiredSignatures, s.Signed)
	for _, ix := range s.Instructions {
		fmt.Fprintf(w, "  #%d %s (%s)\n", ix.Index, ix.Kind, ix.Program)
		if ix.Amount != nil {
			fmt.Fprintf(w, "     amount:      %d\n", *ix.Amount)
		}
		if ix.Source != "" {
			fmt.Fprintf(w, "     source:      %s\n", ix.Source)
		}
		if ix.Destination != "" {
			fmt.Fprintf(w, "     destination: %s\n", ix.Destination)
		}
		if ix.Authority != "" {
			fmt.Fprintf(w, "     authority:   %s\n", ix.Authority)
		}
		if ix.Mint != "" {
			fmt.Fprintf(w, "     mint:        %s\n", ix.Mint)
		}
		if ix.Memo != "" {
			fmt.Fprintf(w, "     memo:        %s\n", ix.Memo)
		}
	}
}
