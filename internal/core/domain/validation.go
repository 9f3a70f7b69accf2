package domain

// ValidationResult is the shared outcome shape for connection checks,
// payload validation, and integrity verification.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Valid returns a passing result.
func Valid() ValidationResult {
	return ValidationResult{IsValid: true}
}

// Invalid returns a failing result carrying the given errors.
func Invalid(errs ...string) ValidationResult {
	return ValidationResult{IsValid: false, Errors: errs}
}

// AddError marks the result invalid and records the message.
func (r *ValidationResult) AddError(msg string) {
	r.IsValid = false
	r.Errors = append(r.Errors, msg)
}

// AddWarning records a non-fatal finding.
func (r *ValidationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
