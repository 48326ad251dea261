package harness

import (
	"github.com/roach88/taffo/internal/report"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions match.
	Pass bool `json:"pass"`

	// Report is the scan report as read back from the store.
	Report *report.Report `json:"report"`

	// ScanID is the content-addressed id the report was stored under.
	ScanID string `json:"scan_id"`

	// Dump is the diagnostic dump of the module before scanning.
	Dump string `json:"dump"`

	// Stderr holds annotation syntax errors reported during the scan.
	Stderr string `json:"stderr,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// RootName names a root the way scenarios refer to it.
func RootName(r report.Root) string {
	if r.Function != "" {
		return r.Function + ":" + r.Ident
	}
	return r.Ident
}

// RootNames returns the names of all roots of rep, in order.
func RootNames(rep *report.Report) []string {
	names := make([]string, len(rep.Roots))
	for i, r := range rep.Roots {
		names[i] = RootName(r)
	}
	return names
}
