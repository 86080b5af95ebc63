package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const sniffSize = 4096

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Option configures a Reader
type Option func(*options)

type options struct {
	comma   rune
	aliases map[string]string
}

// Comma sets the field separator
func Comma(r rune) Option {
	return func(o *options) { o.comma = r }
}

// Aliases maps alternative column names onto canonical ones. Matching is
// case-insensitive.
func Aliases(m map[string]string) Option {
	return func(o *options) {
		for alias, canonical := range m {
			o.aliases[strings.ToLower(alias)] = canonical
		}
	}
}

// Reader reads a UTF-8 CSV stream whose first record names the columns.
// Rows come back keyed by canonical column name.
type Reader struct {
	csv     *csv.Reader
	columns []string
	index   map[string]int
	line    int
}

// Open sniffs the stream for emptiness and encoding, drops a leading BOM
// and consumes the header record.
func Open(src io.Reader, opts ...Option) (*Reader, error) {
	o := options{comma: ',', aliases: make(map[string]string)}
	for _, opt := range opts {
		opt(&o)
	}

	buf := bufio.NewReaderSize(src, sniffSize)
	head, err := buf.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	truncated := len(head) == sniffSize
	if bytes.HasPrefix(head, utf8BOM) {
		_, _ = buf.Discard(len(utf8BOM))
		head = head[len(utf8BOM):]
	}
	if len(bytes.TrimSpace(head)) == 0 {
		return nil, ErrEmptyFile
	}
	if !validPrefix(head, truncated) {
		return nil, ErrInvalidEncoding
	}

	cr := csv.NewReader(buf)
	cr.Comma = o.comma
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	r := &Reader{csv: cr, index: make(map[string]int)}
	if err := r.readHeader(o.aliases); err != nil {
		return nil, err
	}
	return r, nil
}

// validPrefix reports whether b is valid UTF-8, allowing a rune cut off at
// the end of a truncated window.
func validPrefix(b []byte, truncated bool) bool {
	if utf8.Valid(b) {
		return true
	}
	if !truncated {
		return false
	}
	for cut := 1; cut < utf8.UTFMax && cut < len(b); cut++ {
		if utf8.Valid(b[:len(b)-cut]) {
			return true
		}
	}
	return false
}

func (r *Reader) readHeader(aliases map[string]string) error {
	record, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	r.columns = make([]string, len(record))
	for i, name := range record {
		name = strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := aliases[name]; ok {
			name = canonical
		}
		r.columns[i] = name
		// first occurrence wins
		if _, seen := r.index[name]; !seen {
			r.index[name] = i
		}
	}
	r.line, _ = r.csv.FieldPos(0)
	return nil
}

// Columns returns the canonical header names in file order
func (r *Reader) Columns() []string {
	return r.columns
}

// Missing returns the required columns the header lacks
func (r *Reader) Missing(required ...string) []string {
	var out []string
	for _, c := range required {
		if _, ok := r.index[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// Line is the 1-based line of the last record read, header included.
// Blank lines in the file count.
func (r *Reader) Line() int {
	return r.line
}

// Row is one data record
type Row struct {
	Line   int
	fields map[string]string
}

// Get returns the trimmed value of column, or "" when the row is short
func (row Row) Get(column string) string {
	return row.fields[column]
}

// Blank reports whether every field is empty
func (row Row) Blank() bool {
	for _, v := range row.fields {
		if v != "" {
			return false
		}
	}
	return true
}

// Next returns the next record or io.EOF. A malformed record yields a
// *csv.ParseError and the reader can continue past it.
func (r *Reader) Next() (Row, error) {
	record, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return Row{}, io.EOF
	}
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			r.line = pe.StartLine
		}
		return Row{}, err
	}
	r.line, _ = r.csv.FieldPos(0)

	row := Row{Line: r.line, fields: make(map[string]string, len(r.index))}
	for name, i := range r.index {
		if i >= len(record) {
			row.fields[name] = ""
			continue
		}
		v := strings.TrimSpace(record[i])
		if !utf8.ValidString(v) {
			return Row{}, fmt.Errorf("%w (line %d)", ErrInvalidEncoding, r.line)
		}
		row.fields[name] = v
	}
	return row, nil
}
