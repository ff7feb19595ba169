package dupelink

import (
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"

	"github.com/google/vectorio"
)

// maxIovecs keeps each writev call under the usual IOV_MAX of 1024
const maxIovecs = 1024

// defaultFlushLines is how many lines are buffered before an automatic flush
const defaultFlushLines = 256

// lineWriter buffers report lines and writes them in batches. When the sink
// is an *os.File the batch goes out as one gather write per maxIovecs lines.
type lineWriter struct {
	mu         sync.Mutex
	w          io.Writer
	file       *os.File
	lines      [][]byte
	flushLines int
}

func newLineWriter(w io.Writer) *lineWriter {
	lw := &lineWriter{w: w, flushLines: defaultFlushLines}
	if f, ok := w.(*os.File); ok {
		lw.file = f
	}
	return lw
}

// WriteLine queues s followed by a newline
func (lw *lineWriter) WriteLine(s string) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	line := make([]byte, 0, len(s)+1)
	line = append(line, s...)
	line = append(line, '\n')
	lw.lines = append(lw.lines, line)

	if len(lw.lines) >= lw.flushLines {
		return lw.flushLocked()
	}
	return nil
}

// Flush writes every queued line
func (lw *lineWriter) Flush() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.flushLocked()
}

func (lw *lineWriter) flushLocked() error {
	if len(lw.lines) == 0 {
		return nil
	}
	lines := lw.lines
	lw.lines = nil

	if lw.file != nil {
		return writevLines(lw.file, lines)
	}
	for _, line := range lines {
		if _, err := lw.w.Write(line); err != nil {
			return fmt.Errorf("failed to write report line: %w", err)
		}
	}
	return nil
}

// writevLines writes lines to f with writev, finishing any short write with
// plain writes.
func writevLines(f *os.File, lines [][]byte) error {
	for offset := 0; offset < len(lines); offset += maxIovecs {
		end := offset + maxIovecs
		if end > len(lines) {
			end = len(lines)
		}
		chunk := lines[offset:end]

		iovecs := make([]syscall.Iovec, 0, len(chunk))
		total := 0
		for _, line := range chunk {
			if len(line) == 0 {
				continue
			}
			iov := syscall.Iovec{Base: &line[0]}
			iov.SetLen(len(line))
			iovecs = append(iovecs, iov)
			total += len(line)
		}
		if len(iovecs) == 0 {
			continue
		}

		nw, err := vectorio.WritevRaw(uintptr(f.Fd()), iovecs)
		if err != nil {
			return fmt.Errorf("failed to write report lines with vectorio: %w", err)
		}
		if nw < total {
			if err := writeRemainder(f, chunk, nw); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeRemainder writes whatever follows the first written bytes of lines
func writeRemainder(w io.Writer, lines [][]byte, written int) error {
	for _, line := range lines {
		if written >= len(line) {
			written -= len(line)
			continue
		}
		if _, err := w.Write(line[written:]); err != nil {
			return fmt.Errorf("failed to finish short report write: %w", err)
		}
		written = 0
	}
	return nil
}
