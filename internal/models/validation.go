package models

import "fmt"

// ValidationError reports an invalid form field. It is produced before any
// write is attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
