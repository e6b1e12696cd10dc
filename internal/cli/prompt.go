package cli

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// terminalPasswordPrompt reads a password from the controlling terminal
// without echo. It returns an empty password when stdin is not a terminal.
func terminalPasswordPrompt(stderr io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}

	fmt.Fprint(stderr, "Enter password: ")
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(stderr)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}
