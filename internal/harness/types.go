package harness

import "github.com/roach88/recon/internal/engine"

// Result is the outcome of running one case.
type Result struct {
	// Name is the case name.
	Name string `json:"name"`

	// Pass indicates overall success: every expectation matched.
	Pass bool `json:"pass"`

	// Errors contains one message per failed expectation.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Report is the engine output, nil when the run failed.
	Report *engine.Result `json:"-"`

	// RunErr is the engine error, nil when the run succeeded.
	RunErr error `json:"-"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Name:   name,
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
