// Command ledgerctl is the kernel's operator CLI: "serve" bootstraps the
// registries and coordinator and runs the trace/metrics HTTP surfaces;
// "trace" renders one event's or journal entry's decision bundle directly
// against storage, without going through the HTTP surface. Dispatch shape
// (flag.NewFlagSet per subcommand, a run(ctx, args) error entry point,
// switch on the first positional argument) follows a subcommand CLI
// rather than a single-purpose server binary, since trace rendering here
// is itself a CLI-facing concern alongside the HTTP surface.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError(errors.New("no command specified"))
	}
	switch args[0] {
	case "serve":
		return handleServe(ctx, args[1:])
	case "trace":
		return handleTrace(ctx, args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		return usageError(fmt.Errorf("unknown command %q", args[0]))
	}
}

// usageError prints the root usage text and returns err unchanged; run uses
// it for an unknown command. Subcommands return their own flag parsing
// errors directly.
func usageError(err error) error {
	printRootUsage()
	return err
}

func printRootUsage() {
	fmt.Println(`ledgerctl - interpretation kernel operator CLI

Usage:
  ledgerctl <command> [flags]

Commands:
  serve   Bootstrap registries and the coordinator; serve /metrics and
          the trace HTTP surface until signaled to stop
  trace   Render one event's or journal entry's decision bundle
  help    Show this message`)
}
