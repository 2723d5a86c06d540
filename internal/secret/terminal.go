package secret

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// TerminalProvider prompts the operator for secret values on the controlling
// terminal with input echo suppressed.
type TerminalProvider struct {
	// In is the file descriptor read from, normally stdin.
	In *os.File
}

// NewTerminalProvider constructs a TerminalProvider reading from stdin.
func NewTerminalProvider() *TerminalProvider {
	return &TerminalProvider{In: os.Stdin}
}

// Fetch prompts for the named secret without echoing the typed value.
// It fails when stdin is not a terminal so automated invocations surface a
// clear error instead of hanging.
func (p *TerminalProvider) Fetch(ctx context.Context, key string) (string, error) {
	fd := int(p.In.Fd())
	if !term.IsTerminal(fd) {
		return "", &SecretUnavailableError{Key: key, Err: errors.New("stdin is not a terminal; use a non-interactive secret provider")}
	}
	if err := ctx.Err(); err != nil {
		return "", &SecretUnavailableError{Key: key, Err: err}
	}

	fmt.Fprintf(os.Stderr, "Enter value for secret parameter %s: ", key)
	raw, err := term.ReadPassword(fd)
	// The operator's enter keypress is not echoed either.
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", &SecretUnavailableError{Key: key, Err: err}
	}
	return string(raw), nil
}
