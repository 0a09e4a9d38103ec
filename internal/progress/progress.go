// Package progress provides progress reporting for downloads: a terminal
// progress bar for interactive runs and a no-op reporter for quiet ones.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter is the interface download code reports progress through.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Increment()
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// CLIProgress renders a terminal progress bar on stderr.
type CLIProgress struct {
	bar *progressbar.ProgressBar
	// showBytes selects byte formatting (file transfers) over plain counts
	// (chapters).
	showBytes bool
}

// NewCLIProgress creates a count-based progress reporter (e.g. chapters).
func NewCLIProgress() *CLIProgress {
	return &CLIProgress{}
}

// NewCLIByteProgress creates a byte-based progress reporter (e.g. a cover
// image transfer).
func NewCLIByteProgress() *CLIProgress {
	return &CLIProgress{showBytes: true}
}

// Start initializes the progress bar with the total and a description.
func (p *CLIProgress) Start(total int64, description string) {
	opts := []progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	}
	if p.showBytes {
		opts = append(opts, progressbar.OptionShowBytes(true))
	} else {
		opts = append(opts, progressbar.OptionShowCount())
	}
	p.bar = progressbar.NewOptions64(total, opts...)
}

// Update moves the progress bar to the given position.
func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Increment advances the progress bar by one unit.
func (p *CLIProgress) Increment() {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

// Finish completes the progress bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error displays an error message below the bar.
func (p *CLIProgress) Error(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}
}

// SetDescription updates the progress bar description.
func (p *CLIProgress) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// NoOpProgress is a reporter that does nothing, for quiet operations.
type NoOpProgress struct{}

// NewNoOpProgress creates a no-op reporter.
func NewNoOpProgress() *NoOpProgress {
	return &NoOpProgress{}
}

func (p *NoOpProgress) Start(total int64, description string) {}
func (p *NoOpProgress) Update(current int64)                  {}
func (p *NoOpProgress) Increment()                            {}
func (p *NoOpProgress) Finish()                               {}
func (p *NoOpProgress) Error(err error)                       {}
func (p *NoOpProgress) SetDescription(desc string)            {}

// ProgressReader wraps an io.Reader to report bytes read.
type ProgressReader struct {
	reader   io.Reader
	reporter Reporter
	current  int64
}

// NewProgressReader creates a progress-reporting reader.
func NewProgressReader(reader io.Reader, reporter Reporter) *ProgressReader {
	return &ProgressReader{reader: reader, reporter: reporter}
}

// Read implements io.Reader, forwarding the running byte count.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	pr.reporter.Update(pr.current)
	return n, err
}
