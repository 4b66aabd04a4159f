package port

type Sink interface {
	// WriteLive redraws the progress line in place (no newline).
	WriteLive(line string) error
	// WriteReport prints a finished report block.
	WriteReport(line string) error
	NewLine() error
}
