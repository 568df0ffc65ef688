package release

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/deixis/publish/internal/console"
)

// Prompter reads single-line answers from the operator.
type Prompter struct {
	in  *bufio.Reader
	out *console.Console

	once  sync.Once
	lines chan line
}

type line struct {
	text string
	err  error
}

// NewPrompter returns a Prompter reading answers from r and printing
// questions to out.
func NewPrompter(r io.Reader, out *console.Console) *Prompter {
	return &Prompter{in: bufio.NewReader(r), out: out, lines: make(chan line)}
}

// read delivers input lines to Ask until the input fails, then closes the
// channel. It blocks in the reader, so it runs in its own goroutine and
// outlives an interrupted Ask.
func (p *Prompter) read() {
	for {
		text, err := p.in.ReadString('\n')
		p.lines <- line{text: text, err: err}
		if err != nil {
			close(p.lines)
			return
		}
	}
}

// Ask prints question and returns the answer without its line terminator.
// It returns io.EOF when the input is exhausted before any answer was given,
// and the context error when ctx is done first. A nil Prompter has no input.
func (p *Prompter) Ask(ctx context.Context, question string) (string, error) {
	if p == nil {
		return "", io.EOF
	}
	p.once.Do(func() { go p.read() })
	p.out.Prompt(question)

	select {
	case <-ctx.Done():
		p.out.Printf("")
		return "", ctx.Err()
	case l, ok := <-p.lines:
		if !ok || (l.err != nil && l.text == "") {
			p.out.Printf("")
			return "", io.EOF
		}
		return strings.TrimRight(l.text, "\r\n"), nil
	}
}

// Confirm asks question and reports whether the answer is exactly "y",
// in either case. Exhausted input is a refusal.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := p.Ask(ctx, question)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "y"), nil
}
