package plumbah

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/roobie/galdi/pkg/galerr"
)

type fakePayload struct {
	Foo string `json:"foo"`
	Bar int    `json:"bar"`
}

func TestWrapMergesPlumbahAlongsidePayload(t *testing.T) {
	start := time.Now()
	env := Wrap(fakePayload{Foo: "x", Bar: 1}, Meta{Tool: "galdi", ToolVersion: "0.1.0"}, start)

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded["foo"] != "x" {
		t.Fatalf("expected payload field foo to survive merge, got %v", decoded["foo"])
	}
	if decoded["bar"].(float64) != 1 {
		t.Fatalf("expected payload field bar to survive merge, got %v", decoded["bar"])
	}

	plumbahField, ok := decoded["$plumbah"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected $plumbah object, got %v", decoded["$plumbah"])
	}
	if plumbahField["version"] != Version {
		t.Fatalf("expected version %q, got %v", Version, plumbahField["version"])
	}
	if plumbahField["status"] != string(StatusOK) {
		t.Fatalf("expected status ok, got %v", plumbahField["status"])
	}

	meta, ok := plumbahField["meta"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected meta object, got %v", plumbahField["meta"])
	}
	if meta["tool"] != "galdi" {
		t.Fatalf("expected tool galdi, got %v", meta["tool"])
	}
	if _, ok := meta["timestamp"].(string); !ok {
		t.Fatalf("expected timestamp string, got %v", meta["timestamp"])
	}
}

func TestWrapErrorPreservesGalerrKindAndPath(t *testing.T) {
	cause := galerr.New(galerr.KindAlgorithmMismatch, "mismatch").WithPath("/tmp/x")
	env := WrapError(cause, Meta{Tool: "galdi"}, time.Now())

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded["kind"] != string(galerr.KindAlgorithmMismatch) {
		t.Fatalf("expected kind %q, got %v", galerr.KindAlgorithmMismatch, decoded["kind"])
	}
	if decoded["path"] != "/tmp/x" {
		t.Fatalf("expected path /tmp/x, got %v", decoded["path"])
	}

	plumbahField := decoded["$plumbah"].(map[string]interface{})
	if plumbahField["status"] != string(StatusError) {
		t.Fatalf("expected status error, got %v", plumbahField["status"])
	}
}

func TestWrapErrorPlainErrorDefaultsToIOKind(t *testing.T) {
	env := WrapError(errPlain("boom"), Meta{}, time.Now())
	data, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["kind"] != string(galerr.KindIO) {
		t.Fatalf("expected default kind %q, got %v", galerr.KindIO, decoded["kind"])
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }

func TestExecutionTimeIsNonNegative(t *testing.T) {
	start := time.Now()
	env := Wrap(fakePayload{}, Meta{}, start)
	if env.Meta.ExecutionTimeMs < 0 {
		t.Fatalf("expected non-negative execution time, got %d", env.Meta.ExecutionTimeMs)
	}
}

func TestMarshalRejectsNonObjectPayload(t *testing.T) {
	env := Wrap([]int{1, 2, 3}, Meta{}, time.Now())
	if _, err := json.Marshal(env); err == nil {
		t.Fatal("expected error marshaling a non-object payload")
	}
}
