package flow

import "errors"

// Turn outcomes. None of these escape ProcessInput; they are logged and
// mapped to Reply.Error codes.
var (
	ErrExtractionMiss    = errors.New("no usable value found for field")
	ErrValidationFailure = errors.New("value failed validation")
	ErrStructuralGap     = errors.New("required prior state is missing")
	ErrUnhandledState    = errors.New("conversation state has no handler")
)

// Reply.Error codes.
const (
	CodeExtractionMiss   = "extraction_miss"
	CodeValidationFailed = "validation_failed"
	CodeUnhandledState   = "unhandled_state"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrExtractionMiss):
		return CodeExtractionMiss
	case errors.Is(err, ErrValidationFailure):
		return CodeValidationFailed
	case errors.Is(err, ErrUnhandledState):
		return CodeUnhandledState
	}
	return ""
}
