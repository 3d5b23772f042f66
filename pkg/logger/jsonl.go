package logger

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"acdash/pkg/engine"
	"acdash/pkg/telemetry"
)

// JSONLWriter renders dashboard events as one JSON object per line.
type JSONLWriter struct {
	enc *json.Encoder
}

type jsonRecord struct {
	TS        string             `json:"ts"`
	Type      string             `json:"type"`
	Connected *bool              `json:"connected,omitempty"`
	Display   *telemetry.Display `json:"display,omitempty"`
}

func NewJSONLWriter(w io.Writer) *JSONLWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{enc: enc}
}

// Consume writes events from in until it is closed or ctx is done.
func (j *JSONLWriter) Consume(ctx context.Context, in <-chan engine.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			_ = j.Write(ev)
		}
	}
}

func (j *JSONLWriter) Write(ev engine.Event) error {
	rec := jsonRecord{
		TS:   ev.Timestamp.UTC().Format(time.RFC3339Nano),
		Type: ev.Kind.String(),
	}
	switch ev.Kind {
	case engine.EventSnapshot:
		d := ev.Display
		rec.Display = &d
	case engine.EventConnection:
		connected := ev.Connected
		rec.Connected = &connected
	}
	return j.enc.Encode(rec)
}
