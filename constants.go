package lineterm

import "time"

// Tunables mirroring the original lineterm's module-level constants.
const (
	// MaxScrollLines bounds the retained scroll history; the oldest whole
	// entry-index group is evicted once this is exceeded.
	MaxScrollLines = 500

	// MaxPageletBytes bounds a single pagelet capture. A pagelet exceeding
	// this is aborted and replaced with an error pagelet.
	MaxPageletBytes = 1_000_000

	// MaxEscapeBytes bounds how many bytes of an unrecognized pending escape
	// sequence are buffered before it is discarded as garbage.
	MaxEscapeBytes = 32

	// DefaultWidth and DefaultHeight size a freshly constructed Emulator
	// before the first Resize.
	DefaultWidth  = 80
	DefaultHeight = 25
)

// IdleTimeout is how long a Multiplexer-owned terminal may go without pty
// output before it is reaped.
const IdleTimeout = 300 * time.Second

// UpdateInterval is the period of the Multiplexer's update loop, which calls
// Emulator.Update at most once per interval for each terminal with new
// output.
const UpdateInterval = 50 * time.Millisecond

// notebook prompt capture defaults, used when a Notebook is activated
// without an explicit caller-supplied prompt.
const (
	defaultNotebookPS1 = ">>> "
	defaultNotebookPS2 = "... "
)
