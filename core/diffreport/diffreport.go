// Package diffreport compares normalized IR renderings and, when they differ,
// writes both sides to disk for a person to inspect.
//
// It is a regression oracle rather than a differ: equality is whole-text and
// no alignment is computed. The artifacts for label L are <dir>/L.1 and
// <dir>/L.2, replaced whole on every divergence.
package diffreport

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/FocuswithJustin/irsnap/core/cas"
	"github.com/FocuswithJustin/irsnap/core/errors"
	"github.com/FocuswithJustin/irsnap/core/ir"
	"github.com/FocuswithJustin/irsnap/core/redact"
	"github.com/FocuswithJustin/irsnap/internal/logging"
	"github.com/FocuswithJustin/irsnap/internal/validation"
)

// Status is the result of a comparison.
type Status int

const (
	Equal Status = iota
	Divergent
)

func (s Status) String() string {
	if s == Equal {
		return "equal"
	}
	return "divergent"
}

// Outcome describes one comparison. PathA and PathB are set only when the
// texts diverge.
type Outcome struct {
	Label   string         `json:"label"`
	Status  Status         `json:"status"`
	PathA   string         `json:"path_a,omitempty"`
	PathB   string         `json:"path_b,omitempty"`
	DigestA cas.HashResult `json:"digest_a"`
	DigestB cas.HashResult `json:"digest_b"`
}

// Equal reports whether both sides matched.
func (o Outcome) Equal() bool {
	return o.Status == Equal
}

// Err returns a *DivergenceError for a divergent outcome and nil otherwise.
func (o Outcome) Err() error {
	if o.Status == Equal {
		return nil
	}
	return &DivergenceError{Label: o.Label, PathA: o.PathA, PathB: o.PathB}
}

// DivergenceError reports two renderings that should have matched.
type DivergenceError struct {
	Label string
	PathA string
	PathB string
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("%s: renderings differ, compare %s and %s", e.Label, e.PathA, e.PathB)
}

// Reporter writes divergence artifacts under ScratchDir.
type Reporter struct {
	ScratchDir string
}

// New returns a reporter writing under dir.
func New(dir string) *Reporter {
	return &Reporter{ScratchDir: dir}
}

// Default returns a reporter writing to the OS temp directory.
func Default() *Reporter {
	return New(os.TempDir())
}

// Paths returns the two artifact paths for label.
func (r *Reporter) Paths(label string) (string, string) {
	return filepath.Join(r.ScratchDir, label+".1"), filepath.Join(r.ScratchDir, label+".2")
}

// Compare checks a and b for equality. Equal texts have no side effects.
// Divergent texts are written to the label's artifact paths. The returned
// error is non-nil only when the label is invalid or an artifact cannot be
// written; a divergence is reported through the Outcome.
func (r *Reporter) Compare(label, a, b string) (Outcome, error) {
	out := Outcome{
		Label:   label,
		Status:  Equal,
		DigestA: cas.SumString(a),
		DigestB: cas.SumString(b),
	}
	if a == b {
		return out, nil
	}

	if err := validation.ValidateLabel(label); err != nil {
		return out, &errors.ValidationError{
			Field:   "label",
			Value:   label,
			Message: err.Error(),
		}
	}

	out.Status = Divergent
	out.PathA, out.PathB = r.Paths(label)

	if err := cas.WriteFile(out.PathA, []byte(a)); err != nil {
		return out, errors.NewIO("write", out.PathA, err)
	}
	if err := cas.WriteFile(out.PathB, []byte(b)); err != nil {
		return out, errors.NewIO("write", out.PathB, err)
	}

	logging.Divergence(label, out.PathA, out.PathB,
		"digest_a", out.DigestA.Short(),
		"digest_b", out.DigestB.Short(),
	)
	return out, nil
}

// CompareIR renders and normalizes both trees, then compares them.
func (r *Reporter) CompareIR(label string, a, b ir.Node) (Outcome, error) {
	return r.Compare(label, redact.Normalize(ir.Render(a)), redact.Normalize(ir.Render(b)))
}
