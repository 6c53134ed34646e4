package assessments

import "errors"

var (
	ErrNotFound = errors.New("assessment not found")
	ErrConflict = errors.New("assessment already exists")
)

const (
	ErrorCodeValidation = "validation_error"
	ErrorCodeNotFound   = "not_found"
	ErrorCodeInternal   = "internal_error"
	ErrorCodeAIBusy     = "ai_busy"
)
