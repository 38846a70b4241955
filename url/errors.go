package url

import "github.com/pkg/errors"

var (
	// ErrInvalidURL is matched by every error Parse returns.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidScheme means the input does not start with "http://".
	ErrInvalidScheme = kind(ErrInvalidURL, "unsupported scheme")
	// ErrInvalidPort means a port segment is present but is not an
	// integer in 0-65535.
	ErrInvalidPort = kind(ErrInvalidURL, "invalid port")
	// ErrEmptyHost means the authority segment has no host.
	ErrEmptyHost = kind(ErrInvalidURL, "empty host")
)

// errorKind is a sentinel that also matches its parent with errors.Is.
type errorKind struct {
	parent error
	msg    string
}

func kind(parent error, msg string) error {
	return &errorKind{parent: parent, msg: msg}
}

func (e *errorKind) Error() string { return e.msg }

func (e *errorKind) Unwrap() error { return e.parent }
