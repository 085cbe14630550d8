package params

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CancelWord typed at a prompt aborts the current stage.
const CancelWord = "!cancel"

// Prompt asks for parameters on a line-oriented terminal.
type Prompt struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompt reads answers from in and writes questions to out.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

// Request implements Source.
func (p *Prompt) Request(ctx context.Context, spec Spec) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	label := spec.Prompt
	if label == "" {
		label = spec.Name
	}
	if len(spec.Choices) > 0 {
		label += " (" + strings.Join(spec.Choices, "|") + ")"
	}
	if spec.Default != "" {
		label += " [" + spec.Default + "]"
	}

	line, err := p.ReadLine(label + ": ")
	if err != nil {
		return "", err
	}
	if line == CancelWord {
		return "", ErrCancelled
	}
	return line, nil
}

// ReadLine prints prompt and returns the next trimmed line. End of input
// counts as a cancellation.
func (p *Prompt) ReadLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(p.out, prompt)
	}
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if strings.TrimSpace(line) == "" {
				return "", ErrCancelled
			}
			return strings.TrimSpace(line), nil
		}
		return "", eris.Wrap(err, "params: read answer")
	}
	return strings.TrimSpace(line), nil
}
