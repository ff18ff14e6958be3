package models

// Reply is the engine's answer to one turn.
type Reply struct {
	Message     string            `json:"message"`
	Suggestions []string          `json:"suggestions,omitempty"`
	NeedsInput  bool              `json:"needs_input"`
	State       ConversationState `json:"state"`
	Error       string            `json:"error,omitempty"`
}

// ValidationResult is the outcome of validating one candidate value.
type ValidationResult struct {
	IsValid     bool     `json:"is_valid"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

// NewValidationResult returns a passing result with empty lists.
func NewValidationResult() ValidationResult {
	return ValidationResult{IsValid: true, Errors: []string{}, Warnings: []string{}, Suggestions: []string{}}
}

// Fail records a hard error.
func (r *ValidationResult) Fail(msg string) {
	r.IsValid = false
	r.Errors = append(r.Errors, msg)
}

// Warn records a soft warning.
func (r *ValidationResult) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Suggest records a correction hint.
func (r *ValidationResult) Suggest(msg string) {
	r.Suggestions = append(r.Suggestions, msg)
}

// Merge appends other's messages; the result stays valid only if both are.
func (r *ValidationResult) Merge(other ValidationResult) {
	r.IsValid = r.IsValid && other.IsValid
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Suggestions = append(r.Suggestions, other.Suggestions...)
}
