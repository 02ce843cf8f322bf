// Package selfcheck provides the self-check engine that runs groups of IR
// snapshot and API parity checks for TDD and CI.
//
// A plan names its sources and its checks. The executor opens one compiler
// for the whole plan, runs every check even when earlier ones fail, and
// closes the compiler on every exit path.
package selfcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/irsnap/core/cas"
	"github.com/FocuswithJustin/irsnap/core/compiler"
	"github.com/FocuswithJustin/irsnap/core/diffreport"
	"github.com/FocuswithJustin/irsnap/core/errors"
	"github.com/FocuswithJustin/irsnap/core/ir"
	"github.com/FocuswithJustin/irsnap/core/parity"
	"github.com/FocuswithJustin/irsnap/core/redact"
	"github.com/FocuswithJustin/irsnap/internal/logging"
	"github.com/FocuswithJustin/irsnap/internal/validation"
)

// Version is the report format version.
const Version = "1.0.0"

// Status values for reports.
const (
	StatusPass = "pass"
	StatusFail = "fail"
)

// Check types.
const (
	CheckIRSnapshot = "IR_SNAPSHOT"
	CheckAPIParity  = "API_PARITY"
)

// Plan defines a group of checks sharing one compiler.
type Plan struct {
	ID          string            `json:"id" yaml:"id"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Sources     map[string]Source `json:"sources" yaml:"sources"`
	Checks      []PlanCheck       `json:"checks" yaml:"checks"`
}

// Source is compilable text, given inline or as a path relative to the plan
// file. Name is the module name; it defaults to a name derived from the text.
type Source struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// PlanCheck defines a check in a plan.
type PlanCheck struct {
	Type       string       `json:"type" yaml:"type"`
	Label      string       `json:"label" yaml:"label"`
	IRSnapshot *SnapshotDef `json:"ir_snapshot,omitempty" yaml:"ir_snapshot,omitempty"`
	APIParity  *ParityDef   `json:"api_parity,omitempty" yaml:"api_parity,omitempty"`
}

// SnapshotDef compares the normalized renderings of two sources.
type SnapshotDef struct {
	SourceA string `json:"source_a" yaml:"source_a"`
	SourceB string `json:"source_b" yaml:"source_b"`
}

// ParityDef runs a parity check between two sources.
type ParityDef struct {
	ReferenceSource string `json:"reference_source" yaml:"reference_source"`
	TargetSource    string `json:"target_source" yaml:"target_source"`
	parity.Config   `yaml:",inline"`
	Budget          *Budget `json:"budget,omitempty" yaml:"budget,omitempty"`
}

// Report is the output of a self-check execution.
type Report struct {
	ReportVersion string        `json:"report_version"`
	CreatedAt     string        `json:"created_at"`
	PlanID        string        `json:"plan_id"`
	Results       []CheckResult `json:"results"`
	Status        string        `json:"status"`
}

// CheckResult is the result of a single check.
type CheckResult struct {
	CheckType  string             `json:"check_type"`
	Label      string             `json:"label"`
	Pass       bool               `json:"pass"`
	Message    string             `json:"message,omitempty"`
	DurationMS int64              `json:"duration_ms"`
	Expected   *HashInfo          `json:"expected,omitempty"`
	Actual     *HashInfo          `json:"actual,omitempty"`
	Artifacts  []string           `json:"artifacts,omitempty"`
	Violations []parity.Violation `json:"violations,omitempty"`
	Budget     *BudgetResult      `json:"budget,omitempty"`
}

// HashInfo contains the digests of one compared text.
type HashInfo struct {
	SHA256 string `json:"sha256,omitempty"`
	BLAKE3 string `json:"blake3,omitempty"`
}

func hashInfo(h cas.HashResult) *HashInfo {
	return &HashInfo{SHA256: h.SHA256, BLAKE3: h.BLAKE3}
}

// ToJSON serializes the report to JSON.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Hash returns the SHA-256 hash of the report.
func (r *Report) Hash() string {
	data, _ := json.Marshal(r)
	return cas.Hash(data)
}

// Failed returns the results that did not pass.
func (r *Report) Failed() []CheckResult {
	var out []CheckResult
	for _, res := range r.Results {
		if !res.Pass {
			out = append(out, res)
		}
	}
	return out
}

// ParsePlan decodes a plan. JSON is accepted as a subset of YAML.
func ParsePlan(data []byte) (*Plan, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.NewParse("plan", "", "empty document")
	}
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, &errors.ParseError{Format: "plan", Message: err.Error(), Err: err}
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// LoadPlan reads a plan file and resolves its source paths against the
// file's directory. Source paths may not leave that directory.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	plan, err := ParsePlan(data)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}

	base := filepath.Dir(path)
	for id, src := range plan.Sources {
		if src.Path == "" {
			continue
		}
		resolved, err := validation.SanitizePath(base, src.Path)
		if err != nil {
			return nil, &errors.ValidationError{
				Field:   "sources." + id + ".path",
				Value:   src.Path,
				Message: err.Error(),
				Err:     err,
			}
		}
		src.Path = filepath.Join(base, resolved)
		plan.Sources[id] = src
	}
	return plan, nil
}

// Validate checks that every check names known sources and carries the
// definition for its type.
func (p *Plan) Validate() error {
	for id, src := range p.Sources {
		if (src.Text == "") == (src.Path == "") {
			return errors.NewValidation("sources."+id, "exactly one of text or path is required")
		}
	}
	known := func(field, id string) error {
		if _, ok := p.Sources[id]; !ok {
			return &errors.ValidationError{Field: field, Value: id, Message: "unknown source " + id}
		}
		return nil
	}
	stems := make(map[string]string)
	for i, c := range p.Checks {
		field := fmt.Sprintf("checks[%d]", i)
		if c.Label == "" {
			return errors.NewValidation(field+".label", "label is required")
		}
		switch c.Type {
		case CheckIRSnapshot:
			if c.IRSnapshot == nil {
				return errors.NewValidation(field+".ir_snapshot", "definition is required")
			}
			if err := known(field+".source_a", c.IRSnapshot.SourceA); err != nil {
				return err
			}
			if err := known(field+".source_b", c.IRSnapshot.SourceB); err != nil {
				return err
			}
			// Snapshot labels name artifact files; two labels that sanitize
			// alike would overwrite each other's artifacts.
			if stem, err := validation.SanitizeFilename(c.Label); err == nil {
				if other, ok := stems[stem]; ok {
					return &errors.ValidationError{
						Field:   field + ".label",
						Value:   c.Label,
						Message: fmt.Sprintf("artifacts %s.1/.2 already belong to check %q", stem, other),
					}
				}
				stems[stem] = c.Label
			}
		case CheckAPIParity:
			if c.APIParity == nil {
				return errors.NewValidation(field+".api_parity", "definition is required")
			}
			if err := known(field+".reference_source", c.APIParity.ReferenceSource); err != nil {
				return err
			}
			if err := known(field+".target_source", c.APIParity.TargetSource); err != nil {
				return err
			}
			if err := c.APIParity.Config.Validate(); err != nil {
				return err
			}
			if c.APIParity.Budget != nil {
				if err := c.APIParity.Budget.Validate(); err != nil {
					return err
				}
			}
		default:
			return &errors.ValidationError{Field: field + ".type", Value: c.Type, Message: "unknown check type: " + c.Type}
		}
	}
	return nil
}

// openCompiler is swapped out in tests.
var openCompiler = func(opts ...compiler.Option) (*compiler.Compiler, error) {
	c := compiler.New(opts...)
	if err := c.Open(); err != nil {
		return nil, err
	}
	return c, nil
}

// Executor executes self-check plans.
type Executor struct {
	reporter *diffreport.Reporter
	opts     []compiler.Option
}

// NewExecutor creates a plan executor writing divergence artifacts through
// reporter. A nil reporter writes to the OS temp directory.
func NewExecutor(reporter *diffreport.Reporter, opts ...compiler.Option) *Executor {
	if reporter == nil {
		reporter = diffreport.Default()
	}
	return &Executor{reporter: reporter, opts: opts}
}

// Execute runs every check of plan against one compiler and returns a
// report. Only a compiler that cannot be opened or closed is an error; a
// failing check is a failing result.
func (e *Executor) Execute(ctx context.Context, plan *Plan) (report *Report, err error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	c, err := openCompiler(e.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open compiler: %w", err)
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			logging.Error("compiler close failed", "plan", plan.ID, "error", cerr)
			report = nil
			err = errors.Join(err, fmt.Errorf("failed to close compiler: %w", cerr))
		}
	}()

	run := &run{plan: plan, compiler: c, reporter: e.reporter}
	results := make([]CheckResult, 0, len(plan.Checks))
	allPass := true

	for i := range plan.Checks {
		check := &plan.Checks[i]
		checkCtx := logging.WithCheckID(ctx, check.Label)

		start := time.Now()
		result := run.executeCheck(check)
		elapsed := time.Since(start)
		result.DurationMS = elapsed.Milliseconds()

		logging.CheckResult(checkCtx, check.Type, result.Pass, elapsed, "label", check.Label)
		if !result.Pass {
			logging.WarnContext(checkCtx, "check_failed", "check_type", check.Type, "message", result.Message)
		}
		results = append(results, result)
		if !result.Pass {
			allPass = false
		}
	}

	status := StatusPass
	if !allPass {
		status = StatusFail
	}

	return &Report{
		ReportVersion: Version,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		PlanID:        plan.ID,
		Results:       results,
		Status:        status,
	}, nil
}

// run holds the state of one plan execution.
type run struct {
	plan     *Plan
	compiler *compiler.Compiler
	reporter *diffreport.Reporter
}

// compile compiles the source with the given id. Every call builds a fresh
// tree; both sides of a check never share one.
func (r *run) compile(id string) (*ir.Module, error) {
	src := r.plan.Sources[id]
	text := src.Text
	if src.Path != "" {
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, errors.NewIO("read", src.Path, err)
		}
		text = string(data)
	}
	name := src.Name
	if name == "" {
		name = compiler.SyntheticName(text)
	}
	mod, err := r.compiler.Compile(text, name)
	if err != nil {
		return nil, errors.Wrapf(err, "source %s", id)
	}
	return mod, nil
}

// executeCheck executes a single check. Errors become failing results.
func (r *run) executeCheck(check *PlanCheck) CheckResult {
	var (
		result *CheckResult
		err    error
	)
	switch check.Type {
	case CheckIRSnapshot:
		result, err = r.executeSnapshotCheck(check)
	case CheckAPIParity:
		result, err = r.executeParityCheck(check)
	default:
		err = fmt.Errorf("unknown check type: %s", check.Type)
	}
	if err != nil {
		return CheckResult{
			CheckType: check.Type,
			Label:     check.Label,
			Pass:      false,
			Message:   err.Error(),
		}
	}
	return *result
}

// executeSnapshotCheck compiles both sources and compares their normalized
// renderings.
func (r *run) executeSnapshotCheck(check *PlanCheck) (*CheckResult, error) {
	def := check.IRSnapshot

	a, err := r.compile(def.SourceA)
	if err != nil {
		return nil, err
	}
	b, err := r.compile(def.SourceB)
	if err != nil {
		return nil, err
	}

	label, err := validation.SanitizeFilename(check.Label)
	if err != nil {
		return nil, fmt.Errorf("label %q cannot name an artifact: %w", check.Label, err)
	}

	out, err := r.reporter.Compare(label, redact.Normalize(ir.Render(a)), redact.Normalize(ir.Render(b)))
	if err != nil {
		return nil, err
	}

	result := &CheckResult{
		CheckType: CheckIRSnapshot,
		Label:     check.Label,
		Pass:      out.Equal(),
		Expected:  hashInfo(out.DigestA),
		Actual:    hashInfo(out.DigestB),
	}
	if !out.Equal() {
		result.Message = out.Err().Error()
		result.Artifacts = []string{out.PathA, out.PathB}
	}
	return result, nil
}

// executeParityCheck compiles both sources and runs the parity checker.
func (r *run) executeParityCheck(check *PlanCheck) (*CheckResult, error) {
	def := check.APIParity

	ref, err := r.compile(def.ReferenceSource)
	if err != nil {
		return nil, err
	}
	target, err := r.compile(def.TargetSource)
	if err != nil {
		return nil, err
	}

	report, err := def.Config.Check(ref, target)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{
		CheckType: CheckAPIParity,
		Label:     check.Label,
		Pass:      report.OK(),
	}
	for _, name := range report.Names() {
		result.Violations = append(result.Violations, report.Violations[name])
	}
	if def.Budget != nil {
		result.Budget = def.Budget.Check(report)
		result.Pass = result.Budget.WithinBudget
	}
	if !report.OK() {
		msgs := make([]string, 0, len(result.Violations))
		for _, v := range result.Violations {
			msgs = append(msgs, v.Error())
		}
		result.Message = strings.Join(msgs, "; ")
	}
	return result, nil
}

// SnapshotPlan creates a plan comparing the renderings of two inline sources.
func SnapshotPlan(label, sourceA, sourceB string) *Plan {
	return &Plan{
		ID:          "ir-snapshot",
		Description: "Verify two sources lower to the same IR modulo ids and locations",
		Sources: map[string]Source{
			"a": {Name: "Snapshot", Text: sourceA},
			"b": {Name: "Snapshot", Text: sourceB},
		},
		Checks: []PlanCheck{
			{
				Type:       CheckIRSnapshot,
				Label:      label,
				IRSnapshot: &SnapshotDef{SourceA: "a", SourceB: "b"},
			},
		},
	}
}

// ParityPlan creates a plan running one parity check between two inline
// sources.
func ParityPlan(label, reference, target string, cfg parity.Config) *Plan {
	return &Plan{
		ID:          "api-parity",
		Description: "Verify " + cfg.Target + " mirrors " + cfg.Reference,
		Sources: map[string]Source{
			"reference": {Name: cfg.Reference, Text: reference},
			"target":    {Name: cfg.Target, Text: target},
		},
		Checks: []PlanCheck{
			{
				Type:  CheckAPIParity,
				Label: label,
				APIParity: &ParityDef{
					ReferenceSource: "reference",
					TargetSource:    "target",
					Config:          cfg,
				},
			},
		},
	}
}
