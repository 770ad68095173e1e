// Package export writes the rounds of a simulation to disk as Arrow IPC or
// JSON Lines and reads them back.
package export

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
)

// Format selects the on-disk encoding.
type Format string

const (
	// FormatArrow is the Arrow IPC file format, one record batch per round.
	FormatArrow Format = "arrow"
	// FormatJSONL writes one JSON object per round.
	FormatJSONL Format = "jsonl"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatArrow, FormatJSONL:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown export format %q (want arrow or jsonl)", s)
	}
}

// Writer encodes rounds in order.
type Writer interface {
	Write(snap models.RoundSnapshot) error
	Close() error
}

// NewWriter returns a writer for format on top of w. The Arrow file footer
// records block offsets, so w must be seekable. Closing the writer does not
// close w.
func NewWriter(w io.WriteSeeker, format Format) (Writer, error) {
	switch format {
	case FormatArrow:
		return newArrowWriter(w), nil
	case FormatJSONL:
		return newJSONLWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// Frame is one round read back from an export.
type Frame struct {
	Round          int                         `json:"round"`
	NewTransitions int                         `json:"new_transitions"`
	Recoveries     int                         `json:"recoveries"`
	States         map[string]models.NodeState `json:"states"`
}

// File exports to a file. Observe has the shape of a simulation observer;
// the first write error stops the export and is returned by Close.
type File struct {
	path string
	f    *os.File
	w    Writer
	err  error
}

// Create opens path for writing in the given format.
func Create(path string, format Format) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	w, err := NewWriter(f, format)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return &File{path: path, f: f, w: w}, nil
}

// Path returns the file path.
func (e *File) Path() string { return e.path }

// Observe writes snap unless an earlier write failed.
func (e *File) Observe(snap models.RoundSnapshot) {
	if e.err != nil {
		return
	}
	if err := e.w.Write(snap); err != nil {
		e.err = fmt.Errorf("export round %d: %w", snap.Round, err)
	}
}

// Close flushes the writer and closes the file.
func (e *File) Close() error {
	return errors.Join(e.err, e.w.Close(), e.f.Close())
}

// ReadFile reads an export, detecting the format from the file contents.
func ReadFile(path string) ([]Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	head := make([]byte, len(arrowMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if bytes.Equal(head[:n], arrowMagic) {
		return ReadArrow(f)
	}
	return ReadJSONL(bufio.NewReader(f))
}
