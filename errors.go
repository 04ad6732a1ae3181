package lineterm

import "errors"

var (
	// ErrPageletTooLarge is surfaced as an error pagelet row's text when a
	// pagelet capture exceeds MaxPageletBytes before its terminator.
	ErrPageletTooLarge = errors.New("lineterm: pagelet exceeds max size")

	// ErrUnknownTerminal is returned by Multiplexer methods addressing a
	// terminal name with no corresponding live pty.
	ErrUnknownTerminal = errors.New("lineterm: unknown terminal")
)
