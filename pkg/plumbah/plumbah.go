// Package plumbah implements the self-describing envelope every galdi tool
// output is wrapped in. It never mutates or reorders the
// enclosed value: the payload's own MarshalJSON runs first and plumbah only
// appends its own key alongside it.
package plumbah

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roobie/galdi/pkg/galerr"
)

// Status is the top-level outcome of the wrapped operation.
type Status string

const (
	// StatusOK means the payload is a result document.
	StatusOK Status = "ok"
	// StatusError means the payload is an error document.
	StatusError Status = "error"
)

// Version is the envelope schema version emitted in every $plumbah.version
// field. It is independent of the tool version and of the snapshot/diff
// schema versions.
const Version = "1.0"

// Meta carries the capability flags, timing, and identity recorded under
// $plumbah.meta. Callers declare Idempotent, Mutates, Safe,
// Deterministic, PlumbahLevel, Tool and ToolVersion up front; Wrap fills in
// ExecutionTimeMs and Timestamp.
type Meta struct {
	Idempotent      bool
	Mutates         bool
	Safe            bool
	Deterministic   bool
	PlumbahLevel    int
	ExecutionTimeMs int64
	Tool            string
	ToolVersion     string
	Timestamp       time.Time
}

// Envelope is the self-describing wrapper around every tool result. Payload
// is any value that marshals to a JSON object (a diff.Diff, an encoded
// snapshot document, or an error document); Envelope never inspects or
// reorders its fields, only appends
// $plumbah alongside them.
type Envelope struct {
	Status Status
	Meta   Meta
	Payload interface{}
}

// Wrap builds a Status: "ok" envelope around value. start must be a
// monotonic-clock reading (a time.Time captured with time.Now() at the
// beginning of the operation, per the normal Go convention); the envelope
// itself performs no other timing.
func Wrap(value interface{}, meta Meta, start time.Time) Envelope {
	meta.ExecutionTimeMs = time.Since(start).Milliseconds()
	meta.Timestamp = time.Now().UTC()
	return Envelope{Status: StatusOK, Meta: meta, Payload: value}
}

// errorDocument is the payload shape for a Status: "error" envelope.
type errorDocument struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

// WrapError builds a Status: "error" envelope from err. If err is a
// *galerr.Error its Kind and Path are preserved in the payload; otherwise
// the kind is reported as galerr.KindIO's string form, the closest available
// default for an unclassified failure.
func WrapError(err error, meta Meta, start time.Time) Envelope {
	doc := errorDocument{Message: err.Error()}
	if gerr, ok := asGalErr(err); ok {
		doc.Kind = string(gerr.Kind)
		doc.Path = gerr.Path
	} else {
		doc.Kind = string(galerr.KindIO)
	}
	meta.ExecutionTimeMs = time.Since(start).Milliseconds()
	meta.Timestamp = time.Now().UTC()
	return Envelope{Status: StatusError, Meta: meta, Payload: doc}
}

func asGalErr(err error) (*galerr.Error, bool) {
	var gerr *galerr.Error
	if ok := galerr.As(err, &gerr); ok {
		return gerr, true
	}
	return nil, false
}

type metaWire struct {
	Idempotent      bool   `json:"idempotent"`
	Mutates         bool   `json:"mutates"`
	Safe            bool   `json:"safe"`
	Deterministic   bool   `json:"deterministic"`
	PlumbahLevel    int    `json:"plumbah_level"`
	ExecutionTimeMs int64  `json:"execution_time_ms"`
	Tool            string `json:"tool"`
	ToolVersion     string `json:"tool_version"`
	Timestamp       string `json:"timestamp"`
}

type plumbahWire struct {
	Version string   `json:"version"`
	Status  string   `json:"status"`
	Meta    metaWire `json:"meta"`
}

// MarshalJSON merges the payload's own JSON object with a trailing
// "$plumbah" key. The payload must marshal to a JSON object (every galdi
// payload does); merging by byte-splicing rather than round-tripping through
// map[string]interface{} is what keeps the payload's own field order intact.
func (e Envelope) MarshalJSON() ([]byte, error) {
	payloadBytes, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	payloadBytes = bytes.TrimSpace(payloadBytes)
	if len(payloadBytes) == 0 || payloadBytes[0] != '{' || payloadBytes[len(payloadBytes)-1] != '}' {
		return nil, fmt.Errorf("plumbah: payload of type %T does not marshal to a JSON object", e.Payload)
	}

	plumbahBytes, err := json.Marshal(plumbahWire{
		Version: Version,
		Status:  string(e.Status),
		Meta: metaWire{
			Idempotent:      e.Meta.Idempotent,
			Mutates:         e.Meta.Mutates,
			Safe:            e.Meta.Safe,
			Deterministic:   e.Meta.Deterministic,
			PlumbahLevel:    e.Meta.PlumbahLevel,
			ExecutionTimeMs: e.Meta.ExecutionTimeMs,
			Tool:            e.Meta.Tool,
			ToolVersion:     e.Meta.ToolVersion,
			Timestamp:       e.Meta.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z"),
		},
	})
	if err != nil {
		return nil, err
	}

	body := payloadBytes[1 : len(payloadBytes)-1]
	body = bytes.TrimSpace(body)

	var buf bytes.Buffer
	buf.WriteByte('{')
	if len(body) > 0 {
		buf.Write(body)
		buf.WriteByte(',')
	}
	buf.WriteString(`"$plumbah":`)
	buf.Write(plumbahBytes)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
