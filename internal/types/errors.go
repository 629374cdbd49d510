package types

import "errors"

// Error kinds surfaced by the remote page store. Callers match them with errors.Is;
// the cache and tree layers pass them through unchanged.
var (
	ErrTransport  = errors.New("transport error")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
)
