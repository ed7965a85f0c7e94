package analysis

import "errors"

// ErrInvalidSampleRate reports a non-positive sample rate at provider
// construction time. Degenerate input (silence, empty segments) is never
// an error; it yields the documented fallback values instead.
var ErrInvalidSampleRate = errors.New("sample rate must be positive")
