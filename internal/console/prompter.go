package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"golang.org/x/term"
)

// Prompter is the line-oriented terminal the flows talk to.
type Prompter interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadLine(prompt string) (string, error)
	ReadSecret(prompt string) (string, error)
}

// Terminal reads from a buffered input and hides secrets when the input is a tty.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

func NewTerminal(in *os.File, out io.Writer) *Terminal {
	fd := int(in.Fd())
	return &Terminal{in: bufio.NewReader(in), out: out, fd: fd, tty: term.IsTerminal(fd)}
}

func (t *Terminal) Println(a ...any)               { fmt.Fprintln(t.out, a...) }
func (t *Terminal) Printf(format string, a ...any) { fmt.Fprintf(t.out, format, a...) }

func (t *Terminal) ReadLine(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)
	line, err := t.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (t *Terminal) ReadSecret(prompt string) (string, error) {
	if !t.tty {
		return t.ReadLine(prompt)
	}
	fmt.Fprint(t.out, prompt)
	b, err := term.ReadPassword(t.fd)
	fmt.Fprintln(t.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Banner prints the startup title.
func Banner(p Prompter, title string) {
	p.Println(figure.NewFigure(title, "", true).String())
}
