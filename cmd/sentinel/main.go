// Command sentinel validates security files and evaluates access decisions
// against them.
//
//	sentinel validate -f security.yaml
//	sentinel decide -f security.yaml --operation Reports.view --authority ROLE_USER
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/xraph/sentinel"
	"github.com/xraph/sentinel/chain"
	"github.com/xraph/sentinel/config"
)

// deniedError reports a denied decision with its own exit code.
type deniedError struct{ decision sentinel.Decision }

func (e *deniedError) Error() string { return "access denied: " + string(e.decision) }

func (e *deniedError) ExitCode() int { return 2 }

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return errors.New("missing command")
	}
	switch args[0] {
	case "validate":
		return runValidate(args[1:], stdout, stderr)
	case "decide":
		return runDecide(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	}
	printUsage(stderr)
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: sentinel <command> [flags]

Commands:
  validate   Check a security file and print the resolved filter order
  decide     Evaluate an access decision against a security file
`)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func runValidate(args []string, stdout, stderr io.Writer) error {
	var path string
	var verbose bool
	flagSet := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&path, "file", "f", "", "path to the security file")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if path == "" {
		return errors.New("--file is required")
	}
	logger := newLogger(stderr, verbose)

	f, err := config.Load(path)
	if err != nil {
		return err
	}
	reg, err := f.Registry()
	if err != nil {
		return err
	}
	c, err := f.Chain(noopBehaviors(f), nil, chain.WithLogger(logger))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "strategy\t%s\n", f.Strategy)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "ORDER\tFILTER")
	for _, p := range c.Positions() {
		fmt.Fprintf(tw, "%d\t%s\n", p.Order, p.Name)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "OPERATION\tRULE")
	for _, op := range reg.Operations() {
		rules, _ := reg.Rules(context.Background(), op)
		rule := sentinel.Merge(rules...)
		text := rule.String()
		if rule.IsPublic() {
			text = "(public)"
		}
		fmt.Fprintf(tw, "%s\t%s\n", op, text)
	}
	return tw.Flush()
}

// noopBehaviors binds every referenced behavior to a pass-through filter.
func noopBehaviors(f *config.File) map[string]chain.Filter {
	pass := chain.FilterFunc(func(ctx context.Context, inv *sentinel.Invocation, next chain.Handler) (any, error) {
		return next(ctx, inv)
	})
	out := make(map[string]chain.Filter, len(f.Filters))
	for _, spec := range f.Filters {
		ref := spec.Ref
		if ref == "" {
			ref = spec.Name
		}
		out[ref] = pass
	}
	return out
}

func runDecide(args []string, stdout, stderr io.Writer) error {
	var (
		path        string
		operation   string
		principal   string
		authorities []string
		anonymous   bool
		verbose     bool
	)
	flagSet := pflag.NewFlagSet("decide", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&path, "file", "f", "", "path to the security file")
	flagSet.StringVar(&operation, "operation", "", "operation identifier to evaluate")
	flagSet.StringVar(&principal, "principal", "cli", "caller identifier")
	flagSet.StringSliceVar(&authorities, "authority", nil, "authority granted to the caller (repeatable)")
	flagSet.BoolVar(&anonymous, "anonymous", false, "evaluate as the anonymous caller")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if path == "" || operation == "" {
		return errors.New("--file and --operation are required")
	}
	logger := newLogger(stderr, verbose)

	f, err := config.Load(path)
	if err != nil {
		return err
	}
	reg, err := f.Registry()
	if err != nil {
		return err
	}
	eng, err := sentinel.NewEngine(
		sentinel.WithRuleSource(reg),
		sentinel.WithConfig(f.EngineConfig()),
		sentinel.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	auth := sentinel.NewAuthentication(principal, nil, sentinel.AuthoritiesOf(authorities...)...)
	if anonymous {
		auth = sentinel.Anonymous("cli", sentinel.AuthoritiesOf(authorities...)...)
	}
	result, err := eng.Check(sentinel.WithAuthentication(context.Background(), auth), sentinel.NewInvocation(operation))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "operation\t%s\n", operation)
	fmt.Fprintf(tw, "decision\t%s\n", result.Decision)
	fmt.Fprintf(tw, "reason\t%s\n", result.Reason)
	fmt.Fprintf(tw, "strategy\t%s\n", result.Strategy)
	for _, v := range result.Votes {
		fmt.Fprintf(tw, "vote\t%s %s %s\n", v.Source, v.Vote, v.Detail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if !result.Allowed {
		return &deniedError{decision: result.Decision}
	}
	return nil
}
