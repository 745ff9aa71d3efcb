package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"
)

func TestPrintCIResult(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	stdout := os.Stdout
	os.Stdout = w
	PrintCIResult(false, "export xlsx", []string{"products=0"}, errors.New("boom"))
	os.Stdout = stdout
	_ = w.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got CIResult
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v (%s)", err, raw)
	}
	if got.OK || got.Title != "export xlsx" || got.Error != "boom" || len(got.Details) != 1 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestWriteCIResultExtractsFields(t *testing.T) {
	var buf bytes.Buffer
	details := []string{
		"traffic generated total=120 failures=3",
		"tempo trace lookup: ok",
		"created_products=14",
	}
	if err := WriteCIResult(&buf, true, "loadgen run", details, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got CIResult
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]string{"total": "120", "failures": "3", "created_products": "14"}
	if len(got.Fields) != len(want) {
		t.Fatalf("expected fields %v, got %v", want, got.Fields)
	}
	for k, v := range want {
		if got.Fields[k] != v {
			t.Fatalf("field %s: expected %q, got %q", k, v, got.Fields[k])
		}
	}
	if got.Error != "" {
		t.Fatalf("expected no error, got %q", got.Error)
	}
}

func TestTrackPassesThroughResult(t *testing.T) {
	wantErr := errors.New("failed")
	details, err := Track("seed", "apply", func(context.Context) ([]string, error) {
		return []string{"created_products=0"}, wantErr
	})(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped action error, got %v", err)
	}
	if len(details) != 1 || details[0] != "created_products=0" {
		t.Fatalf("unexpected details: %v", details)
	}
}
