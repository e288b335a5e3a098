package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newInputApp(stdin string) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{reader: bufio.NewReader(strings.NewReader(stdin)), out: &out}, &out
}

func TestPrompt(t *testing.T) {
	a, out := newInputApp("hello world\n")
	got, err := a.prompt("Name?")
	require.NoError(t, err)
	require.Equal(t, "hello world", got)
	require.Equal(t, "Name?\n> ", out.String())
}

func TestPrompt_LastLineWithoutNewline(t *testing.T) {
	a, _ := newInputApp("lastline")
	got, err := a.prompt("Name?")
	require.NoError(t, err)
	require.Equal(t, "lastline", got)
}

func TestPrompt_EmptyInput(t *testing.T) {
	a, _ := newInputApp("")
	_, err := a.prompt("Name?")
	require.Error(t, err)
}

func TestPassword(t *testing.T) {
	stubPassword(t, "s3cret")
	a, out := newInputApp("")

	pw, err := a.password(false)
	require.NoError(t, err)
	require.Equal(t, []byte("s3cret"), pw)
	require.Equal(t, "Password: \n", out.String())
}

func TestPassword_Confirm(t *testing.T) {
	stubPassword(t, "s3cret")
	a, out := newInputApp("")

	pw, err := a.password(true)
	require.NoError(t, err)
	require.Equal(t, []byte("s3cret"), pw)
	require.Equal(t, "Password: \nRepeat password: \n", out.String())
}

func TestPassword_ConfirmMismatch(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })

	answers := []string{"first1", "second"}
	readPassword = func(int) ([]byte, error) {
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}

	a, _ := newInputApp("")
	_, err := a.password(true)
	require.ErrorIs(t, err, errPasswordMismatch)
}

func TestPassword_Error(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }

	a, _ := newInputApp("")
	_, err := a.password(false)
	require.Error(t, err)
}
