package csvdata

import (
	"encoding/csv"
	"fmt"
	"os"
)

// Append appends records to a CSV file, writing the header first when the
// file does not exist yet. Used by the bad-row diagnostics sink, which is
// append-only across runs.
func Append(path string, header []string, records [][]string) error {
	if len(records) == 0 {
		return nil
	}

	existed := true
	if _, err := os.Stat(path); os.IsNotExist(err) {
		existed = false
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if !existed && len(header) > 0 {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
