package gitdict

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStoreUnavailable wraps every failure reported by the persistent store.
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrUnknownQuestion   = errors.New("unknown quiz question")
	ErrInvalidTransition = errors.New("invalid quiz session transition")
)

// ValidationError reports user input that failed a precondition.
// No store call is made when it is returned.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// IsValidation reports whether err is or wraps a *ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
