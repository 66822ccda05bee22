package reporting

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"discover-scanner/internal/domain"
)

// Format selects how WriterSink renders matches.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
)

// WriterSink renders matches to an io.Writer (stdout or a file).
type WriterSink struct {
	name   string
	format Format

	mu            sync.Mutex
	w             io.Writer
	headerWritten bool
}

// NewWriterSink creates a sink writing format to w.
func NewWriterSink(name string, w io.Writer, format Format) *WriterSink {
	if format == "" {
		format = FormatMarkdown
	}
	return &WriterSink{name: name, w: w, format: format}
}

// OpenFileSink opens path for appending and returns a sink writing to it.
// The CSV header is skipped when the file already has content.
func OpenFileSink(path string, format Format) (*WriterSink, *os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open output file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat output file: %w", err)
	}
	s := NewWriterSink("file", f, format)
	s.headerWritten = info.Size() > 0
	return s, f, nil
}

// NewConsoleSink writes Markdown tables to w.
func NewConsoleSink(w io.Writer) *WriterSink {
	return NewWriterSink("console", w, FormatMarkdown)
}

// Name returns the sink name.
func (s *WriterSink) Name() string {
	return s.name
}

// Report renders m and writes it in one call.
func (s *WriterSink) Report(_ context.Context, m *domain.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out string
	switch s.format {
	case FormatCSV:
		if !s.headerWritten {
			out = CSVHeader
			s.headerWritten = true
		}
		out += RenderCSVRow(m)
	case FormatMarkdown:
		out = RenderMarkdown(m)
	default:
		return fmt.Errorf("unknown format %q", s.format)
	}

	if _, err := io.WriteString(s.w, out); err != nil {
		return fmt.Errorf("write %s: %w", s.format, err)
	}
	return nil
}

var _ Sink = (*WriterSink)(nil)
