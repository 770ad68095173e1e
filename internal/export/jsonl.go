package export

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
)

type jsonlWriter struct {
	buf *bufio.Writer
	enc *json.Encoder
}

func newJSONLWriter(w io.Writer) *jsonlWriter {
	buf := bufio.NewWriter(w)
	return &jsonlWriter{buf: buf, enc: json.NewEncoder(buf)}
}

// Write encodes snap as a single line.
func (w *jsonlWriter) Write(snap models.RoundSnapshot) error {
	return w.enc.Encode(snap)
}

func (w *jsonlWriter) Close() error {
	return w.buf.Flush()
}

// ReadJSONL decodes a JSON Lines export.
func ReadJSONL(r io.Reader) ([]Frame, error) {
	dec := json.NewDecoder(r)
	var frames []Frame
	for {
		var f Frame
		err := dec.Decode(&f)
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode round %d: %w", len(frames), err)
		}
		if f.States == nil {
			f.States = map[string]models.NodeState{}
		}
		frames = append(frames, f)
	}
}
