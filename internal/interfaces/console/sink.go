package console

import (
	"fmt"
	"io"
	"os"

	"indexbt/internal/application/port"
)

type Sink struct {
	out io.Writer
}

func NewSink() port.Sink { return &Sink{out: os.Stdout} }

// NewSinkTo writes to w instead of stdout.
func NewSinkTo(w io.Writer) port.Sink { return &Sink{out: w} }

func (s *Sink) WriteLive(line string) error {
	_, err := fmt.Fprint(s.out, line) // no newline
	return err
}

func (s *Sink) WriteReport(line string) error {
	_, err := fmt.Fprintln(s.out, line)
	return err
}

func (s *Sink) NewLine() error {
	_, err := fmt.Fprint(s.out, "\n")
	return err
}
