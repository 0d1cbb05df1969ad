package analysis

import (
	"errors"

	"github.com/san-kum/nldkit/internal/phase"
)

var (
	// ErrInvalidParameters is shared with phase reconstruction so callers
	// test one sentinel for every configuration error.
	ErrInvalidParameters = phase.ErrInvalidParameters

	// ErrInsufficientData indicates the input is too short, or too
	// degenerate, to produce any averaging term for the requested
	// configuration.
	ErrInsufficientData = errors.New("analysis: insufficient data")
)
