package selfcheck

import (
	"testing"

	"github.com/FocuswithJustin/irsnap/core/errors"
	"github.com/FocuswithJustin/irsnap/core/parity"
)

func testReport(vs ...parity.Violation) *parity.Report {
	r := &parity.Report{Reference: "Vector", Target: "Array", Violations: make(map[string]parity.Violation)}
	for _, v := range vs {
		r.Violations[v.Function] = v
	}
	return r
}

func TestStrictBudget(t *testing.T) {
	b := Strict()
	if !b.IsWithinBudget(testReport()) {
		t.Error("empty report should be within a strict budget")
	}
	if !b.IsWithinBudget(nil) {
		t.Error("nil report should be within budget")
	}
	if b.IsWithinBudget(testReport(parity.Violation{Function: "at", Kind: parity.DocMismatch})) {
		t.Error("strict budget should reject any violation")
	}
}

func TestBudgetCheck(t *testing.T) {
	report := testReport(
		parity.Violation{Function: "at", Kind: parity.DocMissing, Side: parity.Target},
		parity.Violation{Function: "length", Kind: parity.DocMissing, Side: parity.Reference},
		parity.Violation{Function: "size", Kind: parity.DocMismatch},
	)

	res := Tolerate(2, parity.DocMissing).Check(report)
	if res.WithinBudget {
		t.Error("unlisted kind should exceed the budget")
	}
	if res.Counted != 2 {
		t.Errorf("counted = %d, want 2", res.Counted)
	}
	if len(res.Reasons) != 1 {
		t.Errorf("reasons = %v", res.Reasons)
	}

	res = Tolerate(2, parity.DocMissing, parity.DocMismatch).Check(report)
	if res.WithinBudget {
		t.Error("three violations exceed a budget of two")
	}
	if res.Counted != 3 || res.MaxViolations != 2 {
		t.Errorf("unexpected result: %+v", res)
	}

	res = (&Budget{MaxViolations: 3}).Check(report)
	if !res.WithinBudget {
		t.Errorf("expected within budget: %+v", res)
	}
}

func TestBudgetValidate(t *testing.T) {
	if err := Tolerate(1, parity.MissingInTarget, parity.MissingInReference).Validate(); err != nil {
		t.Errorf("valid budget rejected: %v", err)
	}
	if err := (&Budget{AllowedKinds: []string{"unknown"}}).Validate(); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}
