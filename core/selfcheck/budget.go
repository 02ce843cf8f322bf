package selfcheck

import (
	"fmt"
	"slices"

	"github.com/FocuswithJustin/irsnap/core/errors"
	"github.com/FocuswithJustin/irsnap/core/parity"
)

var violationKinds = []string{
	parity.MissingInTarget.String(),
	parity.MissingInReference.String(),
	parity.DocMissing.String(),
	parity.DocMismatch.String(),
}

// Budget defines how many parity violations a check tolerates.
type Budget struct {
	// MaxViolations is the number of tolerated violations (0 = none).
	MaxViolations int `json:"max_violations,omitempty" yaml:"max_violations,omitempty"`

	// AllowedKinds lists the violation kinds that may be tolerated. If empty,
	// every kind counts against MaxViolations. If set, any violation of an
	// unlisted kind exceeds the budget.
	AllowedKinds []string `json:"allowed_kinds,omitempty" yaml:"allowed_kinds,omitempty"`
}

// Strict returns a budget tolerating nothing.
func Strict() *Budget {
	return &Budget{}
}

// Tolerate returns a budget allowing up to n violations of the given kinds.
func Tolerate(n int, kinds ...parity.Kind) *Budget {
	b := &Budget{MaxViolations: n}
	for _, k := range kinds {
		b.AllowedKinds = append(b.AllowedKinds, k.String())
	}
	return b
}

// Validate checks the budget's kind names.
func (b *Budget) Validate() error {
	if b.MaxViolations < 0 {
		return errors.NewValidation("budget.max_violations", "must not be negative")
	}
	for _, k := range b.AllowedKinds {
		if !slices.Contains(violationKinds, k) {
			return &errors.ValidationError{Field: "budget.allowed_kinds", Value: k, Message: "unknown violation kind: " + k}
		}
	}
	return nil
}

// IsWithinBudget checks if a parity report is within the budget.
func (b *Budget) IsWithinBudget(report *parity.Report) bool {
	return b.Check(report).WithinBudget
}

// BudgetResult describes the result of checking a report against a budget.
type BudgetResult struct {
	// WithinBudget is true if the report is within the budget.
	WithinBudget bool `json:"within_budget"`

	// Counted is the number of violations charged to the budget.
	Counted int `json:"counted"`

	// MaxViolations is the maximum allowed by the budget.
	MaxViolations int `json:"max_violations"`

	// Reasons lists why the budget was exceeded.
	Reasons []string `json:"reasons,omitempty"`
}

// Check performs a detailed check and returns a result.
func (b *Budget) Check(report *parity.Report) *BudgetResult {
	result := &BudgetResult{
		WithinBudget:  true,
		MaxViolations: b.MaxViolations,
	}
	if report == nil {
		return result
	}

	for _, name := range report.Names() {
		v := report.Violations[name]
		kind := v.Kind.String()
		if len(b.AllowedKinds) > 0 && !slices.Contains(b.AllowedKinds, kind) {
			result.WithinBudget = false
			result.Reasons = append(result.Reasons, fmt.Sprintf("%s is never tolerated (%s)", kind, name))
			continue
		}
		result.Counted++
	}

	if result.Counted > b.MaxViolations {
		result.WithinBudget = false
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("%d violations exceed budget of %d", result.Counted, b.MaxViolations))
	}
	return result
}
