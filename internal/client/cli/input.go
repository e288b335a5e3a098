package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/platerecon/internal/common"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errPasswordMismatch = errors.New("passwords do not match")

// prompt asks for one line of input:
//
//	Email
//	> _
//
// A final line without a newline is still accepted.
func (a *App) prompt(label string) (string, error) {
	if _, err := fmt.Fprint(a.out, label+"\n> "); err != nil {
		return "", err
	}
	line, err := a.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// password reads a password from the terminal without echo. With confirm set
// it is asked twice and both entries must match. Callers wipe the result.
func (a *App) password(confirm bool) ([]byte, error) {
	pw, err := a.readHidden("Password: ")
	if err != nil {
		return nil, err
	}
	if !confirm {
		return pw, nil
	}

	again, err := a.readHidden("Repeat password: ")
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	defer common.WipeByteArray(again)

	if !bytes.Equal(pw, again) {
		common.WipeByteArray(pw)
		return nil, errPasswordMismatch
	}
	return pw, nil
}

func (a *App) readHidden(label string) ([]byte, error) {
	if _, err := fmt.Fprint(a.out, label); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.out)
	if err != nil {
		return nil, err
	}
	return pw, nil
}
