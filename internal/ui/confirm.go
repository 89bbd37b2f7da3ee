package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompter asks questions on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// StdPrompter asks on stdin and stderr.
func StdPrompter() *Prompter { return stdPrompter }

var stdPrompter = NewPrompter(os.Stdin, os.Stderr)

// Out is where questions are written.
func (p *Prompter) Out() io.Writer { return p.out }

// Confirm asks a yes/no question. Anything but y/yes is no.
func (p *Prompter) Confirm(prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", StyleWarning.Render(prompt))
	line, _ := p.in.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// Input asks for a line of text; an empty answer yields def.
func (p *Prompter) Input(prompt, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s %s: ", StyleInfo.Render(prompt), StyleMeta.Render("["+def+"]"))
	} else {
		fmt.Fprintf(p.out, "%s: ", StyleInfo.Render(prompt))
	}
	line, err := p.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && line == "" {
		if err == io.EOF && def != "" {
			return def, nil
		}
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

// Line shows prompt and reads one line. io.EOF means the input is closed.
func (p *Prompter) Line(prompt string) (string, error) {
	fmt.Fprintf(p.out, "%s ", StyleChain.Render(prompt))
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm prompts on stdin. Returns true for yes.
func Confirm(prompt string) bool { return stdPrompter.Confirm(prompt) }

// PromptInput reads a line from stdin.
func PromptInput(prompt, def string) (string, error) { return stdPrompter.Input(prompt, def) }
