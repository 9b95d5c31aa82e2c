package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// input reads answers to prompts from a command's stdin.
type input struct {
	raw io.Reader
	buf *bufio.Reader
}

func newInput(r io.Reader) *input {
	return &input{raw: r, buf: bufio.NewReader(r)}
}

// line reads one line with the trailing newline removed.
func (i *input) line() (string, error) {
	line, err := i.buf.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		err = nil
	}
	if errors.Is(err, io.EOF) {
		return "", errors.New("no input provided")
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ask prints label and reads a visible answer.
func (i *input) ask(out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	return i.line()
}

// secret reads a password without echo when stdin is a terminal, otherwise
// the next line.
func (i *input) secret(out io.Writer, label string) (string, error) {
	if f, ok := i.raw.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return i.line()
}
