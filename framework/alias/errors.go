package alias

import "errors"

var (
	// ErrScopeNotFound means no enclosing module definition precedes or
	// contains the cursor.
	ErrScopeNotFound = errors.New("no enclosing module scope")
	// ErrInvalidModuleName means the selection does not look like a module name.
	ErrInvalidModuleName = errors.New("invalid module name")
	// ErrModuleNotFound means the index holds no candidate for the name.
	ErrModuleNotFound = errors.New("module not found in index")
	// ErrNoActiveEditor means the host has no focused document.
	ErrNoActiveEditor = errors.New("no active editor")
	// ErrUnsupportedLanguage means the active document is not an Elixir file.
	ErrUnsupportedLanguage = errors.New("unsupported document language")
	// ErrEmptySelection means neither a selection nor a word at the cursor exists.
	ErrEmptySelection = errors.New("empty selection")
)

// Kind classifies user-facing failures.
type Kind int

const (
	KindEnvironment Kind = iota + 1
	KindInput
	KindLookup
	KindLocation
)

func (k Kind) String() string {
	switch k {
	case KindEnvironment:
		return "environment"
	case KindInput:
		return "input"
	case KindLookup:
		return "lookup"
	case KindLocation:
		return "location"
	default:
		return "unknown"
	}
}

// Error is a failure reported to the user. Message is the text shown by the
// editor host; Err carries the underlying cause for errors.Is/As.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var aliasErr *Error
	if errors.As(err, &aliasErr) {
		return aliasErr.Kind
	}
	return 0
}

// Outcome describes how a command finished when it did not fail.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeInserted
	OutcomeAlreadyPresent
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeAlreadyPresent:
		return "already_present"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "none"
	}
}
