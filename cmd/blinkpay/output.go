package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/brojonat/blinkpay/client"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

// render writes v as JSON when --json or --jq is set and calls human otherwise.
func render(c *cli.Context, v interface{}, human func()) error {
	if expr := c.String("jq"); expr != "" {
		return outputJQ(c.App.Writer, v, expr)
	}
	if c.Bool("json") {
		return outputJSON(c.App.Writer, v)
	}
	human()
	return nil
}

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputJQ runs expr against v and prints each result on its own line.
// Strings are printed raw, everything else as compact JSON.
func outputJQ(w io.Writer, v interface{}, expr string) error {
	code, err := compileJQ(expr)
	if err != nil {
		return err
	}

	input, err := toJQInput(v)
	if err != nil {
		return err
	}

	iter := code.Run(input)
	for {
		result, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := result.(error); isErr {
			return fmt.Errorf("jq filter %q failed: %w", expr, err)
		}
		if s, isString := result.(string); isString {
			fmt.Fprintln(w, s)
			continue
		}
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal jq result: %w", err)
		}
		fmt.Fprintln(w, string(data))
	}
}

func compileJQ(expr string) (*gojq.Code, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
	}
	return code, nil
}

// toJQInput converts v into the generic map/slice form gojq operates on.
func toJQInput(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal output: %w", err)
	}
	return out, nil
}

// newClient builds an API client for --server-url. Only errors are logged.
func newClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	return client.NewClient(c.String("server-url"), nil, logger)
}
