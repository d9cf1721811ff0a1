package deploy

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(question string, def bool) (bool, error)
}

// AutoConfirmer answers every question with its default.
type AutoConfirmer struct{}

// Confirm returns def.
func (AutoConfirmer) Confirm(_ string, def bool) (bool, error) { return def, nil }

// PromptConfirmer reads answers from In and writes questions to Out.
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer

	r *bufio.Reader
}

// NewPromptConfirmer returns a PromptConfirmer over in and out.
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{In: in, Out: out}
}

// Confirm prints question and reads a y/n answer. An empty answer or end of
// input selects def; anything unrecognised asks again.
func (p *PromptConfirmer) Confirm(question string, def bool) (bool, error) {
	if p.r == nil {
		p.r = bufio.NewReader(p.In)
	}
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	for {
		fmt.Fprintf(p.Out, "%s %s ", question, hint)
		line, err := p.r.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		case "":
			if err == nil {
				return def, nil
			}
		}
		if err == io.EOF {
			fmt.Fprintln(p.Out)
			return def, nil
		}
		if err != nil {
			return def, err
		}
		fmt.Fprintln(p.Out, "Please answer y or n.")
	}
}
