package ui

import (
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/ashutoshrp06/reasonchain/internal/types"
	"golang.org/x/term"
)

// TerminalWidth returns the width of stdout, or zero when it is not a terminal.
func TerminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}

// RunOneShot prints the steps of a run as they arrive. Each emission carries
// every step so far, so only the new ones are written.
func RunOneShot(w io.Writer, emissions iter.Seq[types.Emission], width int) (types.Emission, error) {
	styles := DefaultStyles()
	printed := 0

	var last types.Emission
	for e := range emissions {
		last = e
		for _, v := range e.Steps[printed:] {
			if _, err := fmt.Fprintln(w, styles.RenderStep(v, width)); err != nil {
				return last, err
			}
		}
		printed = len(e.Steps)

		if e.Done() {
			if _, err := fmt.Fprintln(w, styles.RenderTotal(*e.Total)); err != nil {
				return last, err
			}
		}
	}
	return last, nil
}
