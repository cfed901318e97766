// Command ragconsole is a terminal client for a retrieval-augmented
// generation backend. It chats with one model over a document collection
// and compares several models on the same question, scored by a judge.
//
// Usage:
//
//	ragconsole [-config FILE] [-env FILE] [command] [flags]
//
// Without a command the interactive terminal UI starts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ahrav/ragconsole/internal/ports"
)

var version = "dev"

const usage = `usage: ragconsole [-config FILE] [-env FILE] <command> [flags]

commands:
  tui                          interactive chat and comparison (default)
  chat -q TEXT                 ask one question
  compare -q TEXT -models a,b -judge j
                               compare models on one question
  models                       list available models
  collections [create NAME]    list or create collections
  documents upload|process     ingest documents into a collection
  theme [dark|light|toggle]    show or set the stored theme
  version                      print the version
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil)
	stop()
	os.Exit(code)
}

var (
	// errUsage marks a command-line mistake; the usage text has been printed.
	errUsage = errors.New("usage")
	// errHelp ends a command after -h printed its flags.
	errHelp = errors.New("help requested")
)

// run parses args and executes one command. gw, when non-nil, replaces the
// HTTP gateway.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, gw ports.Gateway) int {
	fs := flag.NewFlagSet("ragconsole", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "path to a YAML configuration file")
	envFile := fs.String("env", "", "path to a dotenv file (default .env)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cmd, rest := "tui", fs.Args()
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}
	if cmd == "version" {
		fmt.Fprintln(stdout, "ragconsole", version)
		return 0
	}

	handler, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	opts := appOptions{ConfigPath: *configPath, Gateway: gw}
	if *envFile != "" {
		opts.EnvFiles = []string{*envFile}
	}
	a, err := newApp(ctx, opts)
	if err != nil {
		printError(stderr, err)
		return 1
	}
	defer func() {
		// Sync on a terminal stream can fail harmlessly; only report
		// errors that are not about the console.
		if err := a.Close(); err != nil && !strings.Contains(err.Error(), "/dev/std") {
			fmt.Fprintln(stderr, "shutdown:", err)
		}
	}()

	out := newPrinter(stdout, stderr)
	if err := handler(ctx, a, out, rest); err != nil {
		switch {
		case errors.Is(err, errHelp):
			return 0
		case errors.Is(err, errUsage):
			return 2
		}
		printError(stderr, err)
		return 1
	}
	return 0
}

// commandFunc executes one subcommand with its remaining arguments.
type commandFunc func(ctx context.Context, a *app, out *printer, args []string) error

var commands = map[string]commandFunc{
	"tui":         runTUI,
	"chat":        runChat,
	"compare":     runCompare,
	"models":      runModels,
	"collections": runCollections,
	"documents":   runDocuments,
	"theme":       runTheme,
}

// newFlagSet creates a subcommand flag set that reports errors to the
// printer's error stream.
func newFlagSet(name string, out *printer) *flag.FlagSet {
	fs := flag.NewFlagSet("ragconsole "+name, flag.ContinueOnError)
	fs.SetOutput(out.err)
	return fs
}

// parseFlags parses args, mapping any parse failure to errUsage.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return errUsage
	}
	return nil
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
