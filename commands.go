package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"mediafrag/config"
	"mediafrag/enforcement"
	"mediafrag/ffprobe"
	"mediafrag/grammar"
	"mediafrag/locator"
	"mediafrag/models"
	"mediafrag/rewriter"
	"mediafrag/vault"
)

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Lists media links and their time fragments in document order",
		ArgsUsage: "[PATH...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "output occurrences as JSON"},
		},
		Action: runScan,
	}
}

func parseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "Shows how time expressions and fragment subpaths are understood",
		ArgsUsage: "EXPR...",
		Action:    runParse,
	}
}

func setCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Changes the time fragment of one media link",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "index", Aliases: []string{"i"}, Required: true, Usage: "occurrence `N` in document order, as listed by scan"},
			&cli.StringFlag{Name: "start", Usage: "new start `TIME`"},
			&cli.StringFlag{Name: "end", Usage: "new end `TIME`"},
			&cli.BoolFlag{Name: "clear", Usage: "remove the time fragment"},
		},
		Action: runSet,
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Reports malformed fragments and fragments outside their media",
		ArgsUsage: "[PATH...]",
		Action:    runCheck,
	}
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:      "simulate",
		Usage:     "Replays a playback script against a fragment and prints the enforcement state",
		ArgsUsage: "FRAGMENT",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "duration", Usage: "media `TIME` length, unknown until a metadata step when absent"},
			&cli.StringFlag{Name: "script", Value: "play; wait 10", Usage: "actions separated by ';': play, pause, seek T, wait T, metadata T"},
		},
		Action: runSimulate,
	}
}

func dumpConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "dumpconfig",
		Usage: "Dumps either default or actual configuration (YAML)",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "default", Usage: "output default configuration"},
			&cli.BoolFlag{Name: "summary", Usage: "print a readable summary instead of YAML"},
		},
		ArgsUsage: "[DESTINATION]",
		Action:    runDumpConfig,
	}
}

func openVault(e *env) (*vault.Vault, error) {
	v, err := vault.New(e.cfg.Vault.Root, e.cfg.Vault.Extensions, e.cfg.Vault.Sniff, e.log)
	if err != nil {
		return nil, fmt.Errorf("unable to open vault: %w", err)
	}
	return v, nil
}

// documents maps command arguments to vault documents. Directories expand
// to the documents below them; no arguments means the whole vault.
func documents(v *vault.Vault, args []string) ([]string, error) {
	all, err := v.Documents()
	if err != nil {
		return nil, fmt.Errorf("unable to list documents: %w", err)
	}
	if len(args) == 0 {
		return all, nil
	}

	var docs []string
	for _, arg := range args {
		rel, err := v.Rel(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(v.Abs(rel))
		if err != nil {
			return nil, fmt.Errorf("unable to access %s: %w", arg, err)
		}
		if !info.IsDir() {
			docs = append(docs, rel)
			continue
		}
		for _, doc := range all {
			if rel == "." || strings.HasPrefix(doc, rel+"/") {
				docs = append(docs, doc)
			}
		}
	}
	return docs, nil
}

type scanResult struct {
	Document    string              `json:"document"`
	Occurrences []models.Occurrence `json:"occurrences"`
}

func runScan(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)
	out := cmd.Root().Writer

	v, err := openVault(e)
	if err != nil {
		return err
	}
	docs, err := documents(v, cmd.Args().Slice())
	if err != nil {
		return err
	}

	scanner := locator.NewScanner(v, e.log)
	results := make([]scanResult, 0, len(docs))
	for _, doc := range docs {
		text, err := v.Read(ctx, doc)
		if err != nil {
			return fmt.Errorf("unable to read %s: %w", doc, err)
		}
		results = append(results, scanResult{Document: doc, Occurrences: scanner.Scan(doc, text)})
	}

	if cmd.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, r := range results {
		for _, occ := range r.Occurrences {
			fmt.Fprintf(out, "%s:%s\t#%d\t%s\t%s\t%s\n", r.Document, occ.Span, occ.Index, occ.Syntax, occ.ResourcePath, describeFragment(occ.Fragment, e.cfg.Format))
		}
	}
	return nil
}

func describeFragment(f *models.Fragment, opts grammar.FormatOptions) string {
	if sub := grammar.GenerateFragmentSubpath(f.Effective(), opts); sub != "" {
		return sub
	}
	return "-"
}

func runParse(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)
	out := cmd.Root().Writer

	if cmd.NArg() == 0 {
		return errors.New("nothing to parse")
	}

	var errs error
	for _, expr := range cmd.Args().Slice() {
		if grammar.HasTimeParam(expr) {
			f := grammar.ParseFragmentSubpath(expr)
			if f == nil {
				errs = multierr.Append(errs, fmt.Errorf("invalid fragment %q", expr))
				continue
			}
			validity := "valid"
			if err := f.Validate(); err != nil {
				validity = err.Error()
			}
			fmt.Fprintf(out, "%s\t%s .. %s\t%s\t(%s)\n", expr, f.Start, f.End, grammar.GenerateFragmentSubpath(f, e.cfg.Format), validity)
			continue
		}

		b, ok := grammar.ParseTimeExpression(expr)
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("invalid time expression %q", expr))
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", expr, b, grammar.FormatBoundary(b, "", e.cfg.Format))
	}
	return errs
}

func runSet(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)
	out := cmd.Root().Writer

	if cmd.NArg() != 1 {
		return errors.New("exactly one FILE is required")
	}

	v, err := openVault(e)
	if err != nil {
		return err
	}
	doc, err := v.Rel(cmd.Args().First())
	if err != nil {
		return err
	}
	text, err := v.Read(ctx, doc)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", doc, err)
	}

	occurrences := locator.NewScanner(v, e.log).Scan(doc, text)
	index := int(cmd.Int("index"))
	if index < 0 || index >= len(occurrences) {
		return fmt.Errorf("%s has %d media links, index %d is out of range", doc, len(occurrences), index)
	}
	occ := occurrences[index]

	frag, err := editFragment(occ.Fragment, cmd.Bool("clear"), cmd.String("start"), cmd.String("end"))
	if err != nil {
		return err
	}

	rw := rewriter.New(v, e.cfg.Format, e.log)
	if err := rw.Apply(ctx, doc, occ, frag); err != nil {
		return fmt.Errorf("unable to update %s: %w", doc, err)
	}
	fmt.Fprintf(out, "%s:%s\t#%d\t%s\t%s\n", doc, occ.Span, occ.Index, occ.ResourcePath, describeFragment(frag, e.cfg.Format))
	return nil
}

// editFragment applies the requested edits to current. When both sides
// change they are checked against each other, not against the old range.
func editFragment(current *models.Fragment, remove bool, start, end string) (*models.Fragment, error) {
	if remove {
		return nil, nil
	}
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		return nil, errors.New("nothing to change, use --start, --end or --clear")
	}

	next := current
	if start != "" && end != "" {
		next = nil
	}
	for _, edit := range []struct {
		side models.Side
		expr string
	}{{models.SideStart, start}, {models.SideEnd, end}} {
		if edit.expr == "" {
			continue
		}
		b, ok := grammar.ParseTimeExpression(edit.expr)
		if !ok {
			return nil, fmt.Errorf("invalid %s time %q", edit.side, edit.expr)
		}
		var err error
		if next, err = models.ApplyEdit(next, edit.side, b, edit.expr, math.NaN()); err != nil {
			return nil, err
		}
	}
	return next, nil
}

func runCheck(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)
	out := cmd.Root().Writer

	v, err := openVault(e)
	if err != nil {
		return err
	}
	docs, err := documents(v, cmd.Args().Slice())
	if err != nil {
		return err
	}

	type located struct {
		doc string
		occ models.Occurrence
	}
	var (
		found     []located
		resources []string
	)
	scanner := locator.NewScanner(v, e.log)
	for _, doc := range docs {
		text, err := v.Read(ctx, doc)
		if err != nil {
			return fmt.Errorf("unable to read %s: %w", doc, err)
		}
		for _, occ := range scanner.Scan(doc, text) {
			if !grammar.HasTimeParam(occ.Subpath) {
				continue
			}
			found = append(found, located{doc, occ})
			if occ.Fragment != nil {
				resources = append(resources, v.Abs(occ.ResourcePath))
			}
		}
	}

	prober := ffprobe.NewProber(e.cfg.Probe.Binary, e.log)
	outcomes := prober.ProbeAll(ctx, resources, ffprobe.BatchOptions{
		Workers: e.cfg.Probe.Workers,
		Timeout: e.cfg.Probe.Timeout,
		OnProgress: func(completed, total int, path string, err error) {
			e.log.Debug("Probed", zap.Int("completed", completed), zap.Int("total", total), zap.String("path", path), zap.Error(err))
		},
	})

	var problems error
	for _, l := range found {
		duration := math.NaN()
		if o, ok := outcomes[v.Abs(l.occ.ResourcePath)]; ok {
			if d, err := o.Duration(); err != nil {
				e.log.Warn("Unable to get media duration, range not checked", zap.String("resource", l.occ.ResourcePath), zap.Error(err))
			} else {
				duration = d
			}
		}
		if err := checkOccurrence(l.occ, duration, e.cfg); err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s:%s: %w", l.doc, l.occ.Span, err))
		}
	}

	errs := multierr.Errors(problems)
	for _, err := range errs {
		fmt.Fprintln(out, err)
	}
	fmt.Fprintf(out, "%d fragments checked, %d problems\n", len(found), len(errs))
	if len(errs) > 0 {
		return fmt.Errorf("%d problems found", len(errs))
	}
	return nil
}

// checkOccurrence validates the fragment of occ and, when the media
// duration is known, that it lies inside the media.
func checkOccurrence(occ models.Occurrence, duration float64, cfg *config.Config) error {
	if occ.Fragment == nil {
		return fmt.Errorf("malformed fragment %q", occ.Subpath)
	}
	if err := occ.Fragment.Validate(); err != nil {
		return err
	}
	if math.IsNaN(duration) {
		return nil
	}

	eff := occ.Fragment.Effective()
	label := grammar.FormatLabel(duration, "", cfg.Format)
	if start, ok := models.ResolvePercent(eff.Start, duration); ok && start >= duration {
		return fmt.Errorf("start %s is past the end of %s (%s)", eff.Start, occ.ResourcePath, label)
	}
	if eff.End.IsSet() && !eff.End.IsOpenEnd() {
		if end, ok := models.ResolvePercent(eff.End, duration); ok && end > duration+cfg.Enforcement.Tolerance {
			return fmt.Errorf("end %s is past the end of %s (%s)", eff.End, occ.ResourcePath, label)
		}
	}
	if cmp, ok := models.CompareBoundary(eff.Start, eff.End, duration); ok && cmp >= 0 {
		return fmt.Errorf("start %s is not before end %s", eff.Start, eff.End)
	}
	return nil
}

func runSimulate(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)
	out := cmd.Root().Writer

	if cmd.NArg() != 1 {
		return errors.New("exactly one FRAGMENT is required")
	}
	frag := grammar.ParseFragmentSubpath(cmd.Args().First())
	if frag == nil {
		return fmt.Errorf("invalid fragment %q", cmd.Args().First())
	}

	duration := math.NaN()
	if expr := cmd.String("duration"); expr != "" {
		b, ok := grammar.ParseTimeExpression(expr)
		if !ok || b.Kind != models.BoundarySeconds || b.IsOpenEnd() {
			return fmt.Errorf("invalid duration %q", expr)
		}
		duration = b.Value
	}

	opts := e.cfg.Enforcement.Options()
	opts.Logger = e.log
	opts.Label = cmd.Args().First()
	sim, err := enforcement.NewSimulation(frag, duration, opts)
	if err != nil {
		return err
	}
	defer sim.Machine.Cleanup()

	printStep(out, "bind", sim, e.cfg.Format)
	for _, action := range enforcement.ParseScript(cmd.String("script")) {
		if err := sim.Step(action); err != nil {
			return err
		}
		printStep(out, action, sim, e.cfg.Format)
	}
	return nil
}

func printStep(out io.Writer, action string, sim *enforcement.Simulation, opts grammar.FormatOptions) {
	paused := "playing"
	if sim.Element.Paused() {
		paused = "paused"
	}
	fmt.Fprintf(out, "%-16s %-18s %-8s %s\n", action, sim.Machine.State(), paused, grammar.FormatLabel(sim.Element.CurrentTime(), "", opts))
}

func runDumpConfig(ctx context.Context, cmd *cli.Command) error {
	e := envFromContext(ctx)

	if cmd.Args().Len() > 1 {
		e.log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	cfg := e.cfg
	if cmd.Bool("default") {
		cfg = config.DefaultConfig()
	}

	if cmd.Bool("summary") {
		cfg.PrintConfig(cmd.Root().Writer)
		return nil
	}

	if fname := cmd.Args().First(); fname != "" {
		if err := config.SaveConfigFile(cfg, fname); err != nil {
			return err
		}
		e.log.Info("Configuration saved", zap.String("file", fname))
		return nil
	}

	data, err := config.Dump(cfg)
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}
	_, err = cmd.Root().Writer.Write(data)
	return err
}
