package export

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
)

// arrowMagic opens every Arrow IPC file.
var arrowMagic = []byte("ARROW1")

// RoundSchema is the Arrow schema of an export: one row per node per round.
var RoundSchema = arrow.NewSchema([]arrow.Field{
	{Name: "round", Type: arrow.PrimitiveTypes.Int32},
	{Name: "node", Type: arrow.BinaryTypes.String},
	{Name: "status", Type: arrow.BinaryTypes.String},
	{Name: "days_remaining", Type: arrow.PrimitiveTypes.Int32},
}, nil)

type arrowWriter struct {
	out io.WriteSeeker
	mem memory.Allocator
	fw  *ipc.FileWriter
}

func newArrowWriter(w io.WriteSeeker) *arrowWriter {
	return &arrowWriter{out: w, mem: memory.NewGoAllocator()}
}

// Write appends snap as one record batch.
func (w *arrowWriter) Write(snap models.RoundSnapshot) error {
	if err := w.open(); err != nil {
		return err
	}

	b := array.NewRecordBuilder(w.mem, RoundSchema)
	defer b.Release()

	rounds := b.Field(0).(*array.Int32Builder)
	nodes := b.Field(1).(*array.StringBuilder)
	statuses := b.Field(2).(*array.StringBuilder)
	days := b.Field(3).(*array.Int32Builder)

	n := snap.Len()
	rounds.Reserve(n)
	days.Reserve(n)
	for i := 0; i < n; i++ {
		id, st := snap.At(i)
		rounds.Append(int32(snap.Round))
		nodes.Append(id)
		statuses.Append(st.Status.String())
		days.Append(int32(st.DaysRemaining))
	}

	rec := b.NewRecord()
	defer rec.Release()
	return w.fw.Write(rec)
}

// open starts the file lazily so an empty run still gets a valid file on
// Close.
func (w *arrowWriter) open() error {
	if w.fw != nil {
		return nil
	}
	fw, err := ipc.NewFileWriter(w.out, ipc.WithSchema(RoundSchema), ipc.WithAllocator(w.mem))
	if err != nil {
		return fmt.Errorf("failed to start arrow file: %w", err)
	}
	w.fw = fw
	return nil
}

func (w *arrowWriter) Close() error {
	if err := w.open(); err != nil {
		return err
	}
	return w.fw.Close()
}

// ReadArrow decodes an Arrow IPC export. The file stores node states only,
// so NewTransitions and Recoveries are recomputed from consecutive rounds.
func ReadArrow(r ipc.ReadAtSeeker) ([]Frame, error) {
	mem := memory.NewGoAllocator()
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(mem), ipc.WithSchema(RoundSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to open arrow file: %w", err)
	}
	defer fr.Close()

	var frames []Frame
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read record %d: %w", i, err)
		}
		frame, err := frameFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if len(frames) > 0 {
			frame.NewTransitions, frame.Recoveries = deriveCounts(frames[len(frames)-1].States, frame.States)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

func frameFromRecord(rec arrow.Record) (Frame, error) {
	rounds, ok0 := rec.Column(0).(*array.Int32)
	nodes, ok1 := rec.Column(1).(*array.String)
	statuses, ok2 := rec.Column(2).(*array.String)
	days, ok3 := rec.Column(3).(*array.Int32)
	if !ok0 || !ok1 || !ok2 || !ok3 {
		return Frame{}, fmt.Errorf("unexpected column types in %s", rec.Schema())
	}

	rows := int(rec.NumRows())
	frame := Frame{States: make(map[string]models.NodeState, rows)}
	for i := 0; i < rows; i++ {
		if i == 0 {
			frame.Round = int(rounds.Value(i))
		} else if int(rounds.Value(i)) != frame.Round {
			return Frame{}, fmt.Errorf("mixed rounds %d and %d in one batch", frame.Round, rounds.Value(i))
		}
		st, err := models.ParseStatus(statuses.Value(i))
		if err != nil {
			return Frame{}, err
		}
		frame.States[nodes.Value(i)] = models.NodeState{Status: st, DaysRemaining: int(days.Value(i))}
	}
	return frame, nil
}

// deriveCounts counts new adoptions/infections and recoveries between two
// consecutive rounds.
func deriveCounts(prev, cur map[string]models.NodeState) (newTransitions, recoveries int) {
	for id, st := range cur {
		was := prev[id].Status
		switch st.Status {
		case models.Adopted, models.Infected:
			if was != st.Status {
				newTransitions++
			}
		case models.Recovered:
			if was == models.Infected {
				recoveries++
			}
		}
	}
	return newTransitions, recoveries
}
