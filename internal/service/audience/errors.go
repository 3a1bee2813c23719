package audience

import "errors"

// Sentinel errors for the audience service layer. Filter compilation
// failures carry segment.ErrBadFilter instead.
var (
	ErrLogNotFound = errors.New("communication log not found")
	ErrValidation  = errors.New("invalid request")
)
