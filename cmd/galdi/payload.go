package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roobie/galdi/pkg/scan"
)

// warningWire is the JSON-friendly projection of one scan.Warning for the
// optional "warnings" array that rides alongside a result payload, never
// under the envelope meta. Warnings keep the order the scan recorded them in.
type warningWire struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// withWarnings merges a "warnings" key into document's own JSON object when
// warnings is non-empty, leaving document's own bytes and field order
// untouched otherwise. This keeps pkg/snapshot's Snapshot type focused on
// exactly its own wire shape, while still letting the CLI surface scan
// warnings alongside it.
func withWarnings(document interface{}, warnings []scan.Warning) ([]byte, error) {
	documentBytes, err := json.Marshal(document)
	if err != nil {
		return nil, err
	}
	if len(warnings) == 0 {
		return documentBytes, nil
	}

	documentBytes = bytes.TrimSpace(documentBytes)
	if len(documentBytes) == 0 || documentBytes[0] != '{' || documentBytes[len(documentBytes)-1] != '}' {
		return nil, fmt.Errorf("document does not marshal to a JSON object")
	}

	wire := make([]warningWire, len(warnings))
	for i, w := range warnings {
		wire[i] = warningWire{Path: w.Path, Kind: string(w.Kind), Message: w.Message}
	}
	warningsBytes, err := json.Marshal(wire)
	if err != nil {
		return nil, err
	}

	body := bytes.TrimSpace(documentBytes[1 : len(documentBytes)-1])

	var buf bytes.Buffer
	buf.WriteByte('{')
	if len(body) > 0 {
		buf.Write(body)
		buf.WriteByte(',')
	}
	buf.WriteString(`"warnings":`)
	buf.Write(warningsBytes)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
