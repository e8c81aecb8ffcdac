package auth

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks the operator for input during login.
type Prompter interface {
	Line(label string) (string, error)
	Secret(label string) (string, error)
}

// TerminalPrompter reads from In and writes labels to Out. Secret input is
// not echoed when In is a terminal.
type TerminalPrompter struct {
	In     io.Reader
	Out    io.Writer
	reader *bufio.Reader
}

// NewTerminalPrompter prompts on stdin and stderr.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

func (p *TerminalPrompter) lines() *bufio.Reader {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	return p.reader
}

// Line reads one line of input.
func (p *TerminalPrompter) Line(label string) (string, error) {
	fmt.Fprint(p.Out, label)
	input, err := p.lines().ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// Secret reads a password or security code.
func (p *TerminalPrompter) Secret(label string) (string, error) {
	if f, ok := p.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.Out, label)
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.Out)
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}
	return p.Line(label)
}
