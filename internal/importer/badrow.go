package importer

import (
	"encoding/json"
	"strconv"

	"github.com/jarruego/academyhub-sub000/internal/csvdata"
)

var badRowHeader = []string{"row", "phase", "reason", "raw_json"}

// badRowSink buffers rows that failed normalization or resolution and
// appends them to the diagnostics CSV at the end of the run. A nil sink
// (feature disabled) accepts records and flushes as no-ops.
type badRowSink struct {
	path    string
	records [][]string
}

func newBadRowSink(path string) *badRowSink {
	if path == "" {
		return nil
	}
	return &badRowSink{path: path}
}

func (b *badRowSink) record(row int, phase Phase, reason string, raw csvdata.Row) {
	if b == nil {
		return
	}

	rawJSON, err := json.Marshal(raw)
	if err != nil {
		rawJSON = []byte("{}")
	}
	b.records = append(b.records, []string{
		strconv.Itoa(row),
		string(phase),
		reason,
		string(rawJSON),
	})
}

func (b *badRowSink) flush() error {
	if b == nil || len(b.records) == 0 {
		return nil
	}
	return csvdata.Append(b.path, badRowHeader, b.records)
}
