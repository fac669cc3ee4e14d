// Package csvdata decodes the legacy CSV exports the import engine consumes.
//
// The payroll and training-provider files arrive in ISO-8859-1 (never UTF-8)
// with either ";" or "," as the field separator. Decode converts the byte
// buffer once; row iteration is lazy and restartable from the decoded text,
// and a mid-file parse error ends the stream early instead of failing the
// whole import.
package csvdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Row is a single CSV record keyed by canonical column name.
type Row map[string]string

// Document is a decoded CSV file. It retains the decoded text so the row
// stream can be restarted any number of times.
type Document struct {
	text   string
	sep    rune
	header []string
}

// Decode converts an ISO-8859-1 byte buffer into a Document, detecting the
// field separator from the first line and canonicalizing the header.
func Decode(buf []byte) (*Document, error) {
	if len(buf) == 0 {
		return nil, errors.New("empty file")
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(buf)
	if err != nil {
		return nil, fmt.Errorf("decode ISO-8859-1: %w", err)
	}
	text := string(decoded)

	d := &Document{
		text: text,
		sep:  detectSeparator(firstLine(text)),
	}

	r := d.newReader()
	rec, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	d.header = make([]string, len(rec))
	for i, h := range rec {
		d.header[i] = CanonicalHeader(h)
	}

	return d, nil
}

// Separator returns the detected field separator.
func (d *Document) Separator() rune { return d.sep }

// Header returns the canonicalized header columns in file order.
func (d *Document) Header() []string { return d.header }

// Rows returns a fresh lazy iterator over the data rows. Each call restarts
// from the top of the file.
func (d *Document) Rows() *RowReader {
	r := d.newReader()
	// Skip the header; Decode already validated it parses.
	_, _ = r.Read()
	return &RowReader{doc: d, r: r}
}

// ReadAll collects every remaining row. A parse error terminates the stream
// early: the rows already parsed are returned, the rest of the file is
// dropped.
func (d *Document) ReadAll() []Row {
	rows := make([]Row, 0, 64)
	rr := d.Rows()
	for {
		row, ok := rr.Next()
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return rows
}

func (d *Document) newReader() *csv.Reader {
	r := csv.NewReader(strings.NewReader(d.text))
	r.Comma = d.sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}

// RowReader iterates lazily over data rows.
type RowReader struct {
	doc  *Document
	r    *csv.Reader
	done bool
	// Err holds the parse error that terminated the stream, if any.
	Err error
}

// Next returns the next non-empty row. It returns ok=false at end of input
// or on the first parse error (recorded in Err).
func (rr *RowReader) Next() (Row, bool) {
	for !rr.done {
		rec, err := rr.r.Read()
		if err != nil {
			rr.done = true
			if err != io.EOF {
				rr.Err = err
			}
			return nil, false
		}

		if isEmptyRecord(rec) {
			continue
		}

		row := make(Row, len(rr.doc.header))
		for i, v := range rec {
			if i >= len(rr.doc.header) {
				break
			}
			row[rr.doc.header[i]] = CleanCell(v)
		}
		return row, true
	}
	return nil, false
}

// detectSeparator inspects only the first line: ";" wins when the line
// contains ";" and no ",", otherwise "," is assumed.
func detectSeparator(line string) rune {
	if strings.ContainsRune(line, ';') && !strings.ContainsRune(line, ',') {
		return ';'
	}
	return ','
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

func isEmptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
