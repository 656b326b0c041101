package addr

import "fmt"

// ErrInvalidAddress is returned by every parser in this package when its
// input cannot be interpreted as an address of the expected kind.
type ErrInvalidAddress struct {
	Kind  string // "ip", "mac", "v6address"
	Input string
}

func (e *ErrInvalidAddress) Error() string {
	return fmt.Sprintf("invalid_address: %s %q is not a valid %s", e.Kind, e.Input, e.Kind)
}

func invalidAddress(kind, input string) error {
	return &ErrInvalidAddress{Kind: kind, Input: input}
}

// IsInvalidAddress reports whether err was produced by this package's
// parsers.
func IsInvalidAddress(err error) bool {
	_, ok := err.(*ErrInvalidAddress)
	return ok
}
