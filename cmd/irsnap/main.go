// Command irsnap is the CLI for IR snapshot testing.
// It compiles sources to IR, normalizes renderings, compares them and checks
// API parity between parallel types.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/irsnap/core/compiler"
	"github.com/FocuswithJustin/irsnap/core/diffreport"
	"github.com/FocuswithJustin/irsnap/core/ir"
	"github.com/FocuswithJustin/irsnap/core/parity"
	"github.com/FocuswithJustin/irsnap/core/redact"
	"github.com/FocuswithJustin/irsnap/core/selfcheck"
	"github.com/FocuswithJustin/irsnap/core/treequery"
	"github.com/FocuswithJustin/irsnap/internal/logging"
	"github.com/FocuswithJustin/irsnap/internal/validation"
)

const version = "0.1.0"

// stdout is swapped out in tests.
var stdout io.Writer = os.Stdout

// CLI defines the command-line interface for irsnap.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" help:"Log level" enum:"debug,info,warn,error" default:"warn"`
	LogFormat string `name:"log-format" help:"Log format" enum:"text,json" default:"text"`

	Normalize NormalizeCmd `cmd:"" help:"Redact ids and locations from a rendered IR tree"`
	Render    RenderCmd    `cmd:"" help:"Compile a source and print its IR"`
	Query     QueryCmd     `cmd:"" help:"Select IR nodes with an XPath expression"`
	Compare   CompareCmd   `cmd:"" help:"Compare the normalized IR of two sources"`
	Parity    ParityCmd    `cmd:"" help:"Check API parity between two types"`
	Selfcheck SelfcheckCmd `cmd:"" help:"Run a self-check plan"`
	Version   VersionCmd   `cmd:"" help:"Print version information"`
}

// NormalizeCmd normalizes rendered IR text.
type NormalizeCmd struct {
	Path string `arg:"" optional:"" help:"Rendered IR file, or - for stdin" default:"-"`
}

func (c *NormalizeCmd) Run() error {
	text, err := readInput(c.Path)
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, redact.Normalize(text))
	return nil
}

// RenderCmd compiles a source and prints its rendering.
type RenderCmd struct {
	Path      string `arg:"" help:"Source file, or - for stdin"`
	Name      string `help:"Module name (default: derived from the source)"`
	Normalize bool   `help:"Redact ids and locations"`
	NoIDs     bool   `name:"no-ids" help:"Do not assign node ids"`
}

func (c *RenderCmd) Run() error {
	var opts []compiler.Option
	if c.NoIDs {
		opts = append(opts, compiler.WithoutIDs())
	}
	return withSource(c.Path, c.Name, func(mod *ir.Module) error {
		out := ir.Render(mod)
		if c.Normalize {
			out = redact.Normalize(out)
		}
		fmt.Fprintln(stdout, out)
		return nil
	}, opts...)
}

// QueryCmd evaluates an XPath expression against a compiled source.
type QueryCmd struct {
	Path string `arg:"" help:"Source file, or - for stdin"`
	Expr string `arg:"" help:"XPath expression, e.g. //FunctionBinding[@self='true']"`
	Name string `help:"Module name (default: derived from the source)"`
	Text bool   `help:"Print the source text of each match"`
}

func (c *QueryCmd) Run() error {
	return withSource(c.Path, c.Name, func(mod *ir.Module) error {
		matches, err := treequery.Select(mod, c.Expr)
		if err != nil {
			return err
		}
		n := 0
		for node := range matches {
			n++
			if c.Text {
				fmt.Fprintln(stdout, ir.TextOf(node))
				continue
			}
			line := node.Kind().String()
			if named, ok := node.(ir.Named); ok && named.NodeName() != "" {
				line += " " + named.NodeName()
			}
			if loc := node.Metadata().Location; loc != nil {
				line += fmt.Sprintf(" %d:%d", loc.Line, loc.Column)
			}
			fmt.Fprintln(stdout, line)
		}
		logging.Debug("query complete", "expr", c.Expr, "matches", n)
		return nil
	})
}

// CompareCmd compiles two sources and compares their normalized renderings.
type CompareCmd struct {
	A          string `arg:"" help:"First source file"`
	B          string `arg:"" help:"Second source file"`
	Label      string `help:"Artifact label" default:"irsnap"`
	Name       string `help:"Module name used for both sources" default:"Snapshot"`
	ScratchDir string `name:"scratch-dir" help:"Directory for divergence artifacts (default: OS temp dir)" type:"path"`
}

func (c *CompareCmd) Run() error {
	a, err := readInput(c.A)
	if err != nil {
		return err
	}
	b, err := readInput(c.B)
	if err != nil {
		return err
	}

	reporter := diffreport.Default()
	if c.ScratchDir != "" {
		reporter = diffreport.New(c.ScratchDir)
	}

	return compiler.With(func(comp *compiler.Compiler) error {
		modA, err := comp.Compile(a, c.Name)
		if err != nil {
			return err
		}
		modB, err := comp.Compile(b, c.Name)
		if err != nil {
			return err
		}
		out, err := reporter.CompareIR(c.Label, modA, modB)
		if err != nil {
			return err
		}
		if !out.Equal() {
			logging.Warn("renderings differ", "label", c.Label, "path_a", out.PathA, "path_b", out.PathB)
			return out.Err()
		}
		fmt.Fprintf(stdout, "equal (%s)\n", out.DigestA.Short())
		return nil
	})
}

// ParityCmd checks that a target type mirrors a reference type.
type ParityCmd struct {
	Reference string `arg:"" help:"Source file declaring the reference type"`
	Target    string `arg:"" help:"Source file declaring the target type"`
	Config    string `help:"Parity config file (default: Vector/Array rules)" type:"existingfile"`
	JSON      bool   `help:"Output as JSON"`
}

func (c *ParityCmd) Run() error {
	cfg := parity.VectorArrayConfig()
	if c.Config != "" {
		loaded, err := parity.LoadConfig(c.Config)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	ref, err := readInput(c.Reference)
	if err != nil {
		return err
	}
	target, err := readInput(c.Target)
	if err != nil {
		return err
	}
	plan := selfcheck.ParityPlan(cfg.Reference+"-"+cfg.Target, ref, target, cfg)

	report, err := selfcheck.NewExecutor(nil).Execute(context.Background(), plan)
	if err != nil {
		return err
	}
	return printReport(report, c.JSON, false)
}

// SelfcheckCmd runs a self-check plan.
type SelfcheckCmd struct {
	Plan       string `arg:"" help:"Plan file (YAML or JSON)" type:"existingfile"`
	JSON       bool   `help:"Output as JSON" xor:"format"`
	JUnit      bool   `name:"junit" help:"Output as JUnit XML" xor:"format"`
	ScratchDir string `name:"scratch-dir" help:"Directory for divergence artifacts (default: OS temp dir)" type:"path"`
}

func (c *SelfcheckCmd) Run() error {
	plan, err := selfcheck.LoadPlan(c.Plan)
	if err != nil {
		return err
	}

	var reporter *diffreport.Reporter
	if c.ScratchDir != "" {
		reporter = diffreport.New(c.ScratchDir)
	}

	report, err := selfcheck.NewExecutor(reporter).Execute(context.Background(), plan)
	if err != nil {
		return err
	}
	logging.Info("selfcheck complete", "plan", plan.ID, "status", report.Status, "failed", len(report.Failed()))
	return printReport(report, c.JSON, c.JUnit)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "irsnap version %s\n", version)
	return nil
}

// Helper functions

func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	if err := validation.ValidatePath(path); err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func withSource(path, name string, fn func(*ir.Module) error, opts ...compiler.Option) error {
	text, err := readInput(path)
	if err != nil {
		return err
	}
	if name == "" {
		name = compiler.SyntheticName(text)
	}
	return compiler.With(func(c *compiler.Compiler) error {
		mod, err := c.Compile(text, name)
		if err != nil {
			return err
		}
		return fn(mod)
	}, opts...)
}

func printReport(report *selfcheck.Report, asJSON, asJUnit bool) error {
	switch {
	case asJSON:
		data, err := report.ToJSON()
		if err != nil {
			return fmt.Errorf("failed to serialize report: %w", err)
		}
		fmt.Fprintln(stdout, string(data))
	case asJUnit:
		data, err := report.JUnitXML()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
	default:
		fmt.Fprintf(stdout, "Plan: %s\n", report.PlanID)
		for _, res := range report.Results {
			status := "PASS"
			if !res.Pass {
				status = "FAIL"
			}
			fmt.Fprintf(stdout, "  [%s] %s %s (%dms)\n", status, res.CheckType, res.Label, res.DurationMS)
			for _, v := range res.Violations {
				fmt.Fprintf(stdout, "      %s\n", v.Error())
			}
			for _, a := range res.Artifacts {
				fmt.Fprintf(stdout, "      artifact: %s\n", a)
			}
			if res.Budget != nil {
				fmt.Fprintf(stdout, "      budget: %d/%d\n", res.Budget.Counted, res.Budget.MaxViolations)
			}
		}
		fmt.Fprintf(stdout, "Status: %s\n", strings.ToUpper(report.Status))
	}

	if report.Status != selfcheck.StatusPass {
		return fmt.Errorf("%d of %d checks failed", len(report.Failed()), len(report.Results))
	}
	return nil
}

func initLogging() {
	format := logging.FormatText
	if CLI.LogFormat == "json" {
		format = logging.FormatJSON
	}
	logging.InitLoggerWithWriter(os.Stderr, logging.ParseLevel(CLI.LogLevel), format)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("irsnap"),
		kong.Description("IR snapshot and API parity testing"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	initLogging()
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
