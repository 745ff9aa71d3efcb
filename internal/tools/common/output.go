package common

import (
	"encoding/json"
	"io"
	"os"
	"strings"
)

type CIResult struct {
	OK      bool              `json:"ok"`
	Title   string            `json:"title"`
	Details []string          `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func PrintCIResult(ok bool, title string, details []string, err error) {
	_ = WriteCIResult(os.Stdout, ok, title, details, err)
}

// WriteCIResult encodes a tool result. Details shaped as "key=value" are also
// exposed in Fields so pipelines can read counts without parsing text.
func WriteCIResult(w io.Writer, ok bool, title string, details []string, err error) error {
	result := CIResult{OK: ok, Title: title, Details: details, Fields: detailFields(details)}
	if err != nil {
		result.Error = err.Error()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func detailFields(details []string) map[string]string {
	var fields map[string]string
	for _, d := range details {
		for _, part := range strings.Fields(d) {
			k, v, ok := strings.Cut(part, "=")
			if !ok || k == "" {
				continue
			}
			if fields == nil {
				fields = make(map[string]string)
			}
			fields[k] = v
		}
	}
	return fields
}
