package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ahrav/ragconsole/internal/application"
	"github.com/ahrav/ragconsole/internal/domain"
	"github.com/ahrav/ragconsole/internal/ports"
)

// printer writes colored one-shot output.
type printer struct {
	out, err io.Writer

	heading *color.Color
	label   *color.Color
	dim     *color.Color
	good    *color.Color
	fair    *color.Color
	bad     *color.Color
}

func newPrinter(out, err io.Writer) *printer {
	return &printer{
		out:     out,
		err:     err,
		heading: color.New(color.FgCyan, color.Bold),
		label:   color.New(color.Bold),
		dim:     color.New(color.Faint),
		good:    color.New(color.FgGreen),
		fair:    color.New(color.FgYellow),
		bad:     color.New(color.FgRed),
	}
}

func (p *printer) tier(t domain.Tier) *color.Color {
	switch t {
	case domain.TierExcellent, domain.TierGood:
		return p.good
	case domain.TierFair:
		return p.fair
	case domain.TierPoor:
		return p.bad
	default:
		return p.dim
	}
}

// printError reports a failure. Gateway and validation errors are shown
// with their user-facing message.
func printError(w io.Writer, err error) {
	msg := err.Error()
	var (
		gerr *ports.GatewayError
		verr *domain.ValidationError
	)
	if errors.As(err, &gerr) || errors.As(err, &verr) {
		msg = application.Classify(err).Message
	}
	color.New(color.FgRed).Fprintf(w, "error: %s\n", msg)
}

func runChat(ctx context.Context, a *app, out *printer, args []string) error {
	fs := newFlagSet("chat", out)
	question := fs.String("q", "", "message to send")
	model := fs.String("model", "", "chat model (default: backend default)")
	collection := fs.String("collection", "", "collection to search (default: backend current)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *question == "" && fs.NArg() > 0 {
		*question = strings.Join(fs.Args(), " ")
	}

	if err := a.session.LoadCatalogs(ctx); err != nil {
		return err
	}
	if err := applySelections(a.session, *model, *collection); err != nil {
		return err
	}

	answer, err := a.session.Chat(ctx, *question)
	if err != nil {
		return err
	}
	sel := a.session.Selection()
	out.dim.Fprintf(out.out, "%s @ %s\n", sel.ChatModel, sel.Collection)
	fmt.Fprintln(out.out, answer)
	return nil
}

// applySelections switches model and collection on a fresh session, where
// changes apply without confirmation.
func applySelections(s *application.Session, model, collection string) error {
	if model != "" {
		if _, err := s.RequestModelChange(model); err != nil {
			return err
		}
	}
	if collection != "" {
		if _, err := s.RequestCollectionChange(collection); err != nil {
			return err
		}
	}
	return nil
}

func runCompare(ctx context.Context, a *app, out *printer, args []string) error {
	fs := newFlagSet("compare", out)
	question := fs.String("q", "", "question to compare")
	models := fs.String("models", "", "comma-separated candidate models (default: backend default)")
	judge := fs.String("judge", "", "judge model")
	collection := fs.String("collection", "", "collection to search (default: backend current)")
	retrieval := fs.Bool("retrieval", false, "include retrieval metrics")
	ragas := fs.Bool("ragas", false, "include RAGAS metrics")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	s := a.session
	if err := s.LoadCatalogs(ctx); err != nil {
		return err
	}
	if err := applySelections(s, "", *collection); err != nil {
		return err
	}
	if list := splitList(*models); len(list) > 0 {
		if err := s.SetCandidates(list); err != nil {
			return err
		}
	}
	if err := s.SetJudge(*judge); err != nil {
		return err
	}
	s.SetIncludeRetrievalMetrics(*retrieval)
	s.SetIncludeRagasMetrics(*ragas)

	out.dim.Fprintf(out.out, "comparing %s, judged by %s...\n", strings.Join(s.Candidates(), ", "), s.Judge())
	result, err := s.Compare(ctx, *question)
	if err != nil {
		return err
	}
	printResult(out, result)
	return nil
}

// printResult writes every model panel followed by the retrieval block.
func printResult(out *printer, r *domain.ComparisonResult) {
	for _, panel := range r.Panels() {
		fmt.Fprintln(out.out)
		out.heading.Fprintf(out.out, "== %s ==\n", panel.Model)
		fmt.Fprintln(out.out, panel.Answer)
		printMetrics(out, panel)
	}
	if r.Retrieval != nil {
		fmt.Fprintln(out.out)
		printRetrieval(out, r.Retrieval)
	}
}

func printMetrics(out *printer, panel domain.ModelPanel) {
	ms := panel.Metrics
	if !panel.HasMetrics() {
		if ms.Error != "" {
			out.bad.Fprintf(out.out, "metrics unavailable: %s\n", ms.Error)
		}
		return
	}

	fmt.Fprintln(out.out)
	if ms.Overall != nil {
		out.label.Fprint(out.out, "Overall ")
		out.tier(domain.TierOf(ms.Overall)).Fprintf(out.out, "%s %s\n", percent(ms.Overall), bar(ms.Overall))
	}
	width := labelWidth(ms.Entries)
	for _, group := range [][]domain.MetricEntry{ms.Judge(), ms.Ragas()} {
		for _, e := range group {
			out.tier(e.Tier()).Fprintln(out.out, entryLine(e, width))
			if e.Feedback != "" {
				out.dim.Fprintf(out.out, "  %s\n", e.Feedback)
			}
		}
	}
}

func printRetrieval(out *printer, rm *domain.RetrievalMetrics) {
	out.heading.Fprintln(out.out, retrievalTitle(rm))
	if rm.Error != "" {
		out.bad.Fprintf(out.out, "unavailable: %s\n", rm.Error)
		return
	}
	if rm.Query != "" {
		out.dim.Fprintf(out.out, "query: %s\n", rm.Query)
	}
	for _, c := range rm.Cards() {
		out.tier(c.Tier()).Fprintf(out.out, "%-18s %s\n", c.Label, cardValue(c))
	}
	if rm.Interpretation != "" {
		out.dim.Fprintln(out.out, rm.Interpretation)
	}
}

func runModels(ctx context.Context, a *app, out *printer, args []string) error {
	if err := parseFlags(newFlagSet("models", out), args); err != nil {
		return err
	}
	if err := a.session.LoadCatalogs(ctx); err != nil {
		return err
	}
	snap := a.session.Snapshot()
	if snap.Models.Failed {
		out.bad.Fprintln(out.out, snap.Models.Models[0])
		return errors.New("model catalog unavailable")
	}
	for _, m := range snap.Models.Models {
		if m == snap.Models.DefaultModel {
			out.good.Fprintf(out.out, "* %s (default)\n", m)
			continue
		}
		fmt.Fprintf(out.out, "  %s\n", m)
	}
	return nil
}

func runCollections(ctx context.Context, a *app, out *printer, args []string) error {
	if len(args) > 0 && args[0] == "create" {
		if len(args) != 2 {
			fmt.Fprintln(out.err, "usage: ragconsole collections create NAME")
			return errUsage
		}
		msg, err := a.docs.CreateCollection(ctx, args[1])
		if err != nil {
			return err
		}
		out.good.Fprintln(out.out, msg)
		return nil
	}
	if err := parseFlags(newFlagSet("collections", out), args); err != nil {
		return err
	}

	if err := a.session.LoadCatalogs(ctx); err != nil {
		return err
	}
	snap := a.session.Snapshot()
	if snap.Collections.Failed {
		out.bad.Fprintln(out.out, snap.Collections.Collections[0])
		return errors.New("collection catalog unavailable")
	}
	for _, c := range snap.Collections.Collections {
		if c == snap.Collections.Current {
			out.good.Fprintf(out.out, "* %s (current)\n", c)
			continue
		}
		fmt.Fprintf(out.out, "  %s\n", c)
	}
	return nil
}

func runDocuments(ctx context.Context, a *app, out *printer, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(out.err, "usage: ragconsole documents upload|process [flags]")
		return errUsage
	}
	sub, args := args[0], args[1:]

	fs := newFlagSet("documents "+sub, out)
	collection := fs.String("collection", "", "target collection (default: backend current)")
	chunk := fs.Int("chunk-size", a.cfg.ChunkSize, "chunk size in characters")
	var dir *string
	if sub == "process" {
		dir = fs.String("dir", "", "server-side directory to ingest")
	}
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	target := *collection
	if target == "" {
		if err := a.session.LoadCatalogs(ctx); err != nil {
			return err
		}
		target = a.session.Selection().Collection
	}

	var (
		msg string
		err error
	)
	switch sub {
	case "upload":
		msg, err = a.docs.UploadDocuments(ctx, target, *chunk, fs.Args())
	case "process":
		msg, err = a.docs.ProcessDirectory(ctx, *dir, *chunk, target)
	default:
		fmt.Fprintf(out.err, "unknown documents command %q\n", sub)
		return errUsage
	}
	if err != nil {
		return err
	}
	out.good.Fprintln(out.out, msg)
	return nil
}

func runTheme(_ context.Context, a *app, out *printer, args []string) error {
	dark, err := a.prefs.DarkMode()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		switch args[0] {
		case "dark":
			dark = true
		case "light":
			dark = false
		case "toggle":
			dark = !dark
		default:
			fmt.Fprintln(out.err, "usage: ragconsole theme [dark|light|toggle]")
			return errUsage
		}
		if err := a.prefs.SetDarkMode(dark); err != nil {
			return err
		}
	}
	fmt.Fprintln(out.out, themeName(dark))
	return nil
}
