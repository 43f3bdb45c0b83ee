// Package stream downloads a dataset distribution payload and replays it as
// typed records.
//
// The payload is buffered to a temporary file before any row is produced, so
// a consumer never holds an open network connection while iterating. The
// temporary file is removed when iteration ends, whether by exhaustion,
// abort, or an early Close.
package stream

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"strings"

	"github.com/zeebo/xxh3"

	"katalog/internal/catalog"
	"katalog/internal/httpclient"
	"katalog/internal/tableschema"
	"katalog/pkg/records"
)

// csvMediaType is the only accepted payload media type. Parameters such as
// charset are allowed, any other media type is rejected before the body is
// read.
const csvMediaType = "text/csv"

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// PayloadError reports a failed or unusable distribution download.
type PayloadError struct {
	URL    string
	Status int
	Err    error
}

func (e *PayloadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("stream: fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("stream: fetch %s: %v", e.URL, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// ContentTypeError reports a payload served with a media type other than
// text/csv.
type ContentTypeError struct {
	URL         string
	ContentType string
}

func (e *ContentTypeError) Error() string {
	return fmt.Sprintf("stream: %s: unsupported content type %q, want %s", e.URL, e.ContentType, csvMediaType)
}

// RowCastError reports a field value that could not be converted to its
// declared column type. Line numbers count from the top of the payload, the
// header is line 1.
type RowCastError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowCastError) Error() string {
	return fmt.Sprintf("stream: line %d: column %q: cannot cast %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *RowCastError) Unwrap() error { return e.Err }

// Streamer opens dataset payloads for row iteration.
//
// SkipBadRows switches malformed and uncastable rows from aborting the
// stream to being counted and dropped. The default aborts on the first bad
// row.
type Streamer struct {
	HTTP        *httpclient.Client
	SkipBadRows bool
}

// Open downloads the descriptor's distribution, verifies its media type,
// buffers it to a temporary file and prepares typed row iteration against
// the given schema. The caller owns the returned Rows and must Close it.
func (s *Streamer) Open(ctx context.Context, d *catalog.DatasetDescriptor, sch *tableschema.Schema) (*Rows, error) {
	url := d.Distribution.AccessURL

	resp, err := s.HTTP.Get(ctx, url, nil)
	if err != nil {
		return nil, &PayloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &PayloadError{URL: url, Status: resp.StatusCode}
	}

	rawType := resp.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(rawType)
	if err != nil || mediaType != csvMediaType {
		return nil, &ContentTypeError{URL: url, ContentType: rawType}
	}

	tmp, err := os.CreateTemp("", "katalog-payload-*.csv")
	if err != nil {
		return nil, &PayloadError{URL: url, Err: fmt.Errorf("buffer payload: %w", err)}
	}

	hasher := xxh3.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body)
	if err != nil {
		discard(tmp)
		return nil, &PayloadError{URL: url, Err: fmt.Errorf("buffer payload: %w", err)}
	}

	sample := make([]byte, min64(size, SampleSize))
	if len(sample) > 0 {
		if _, err := tmp.ReadAt(sample, 0); err != nil && err != io.EOF {
			discard(tmp)
			return nil, &PayloadError{URL: url, Err: fmt.Errorf("read sample: %w", err)}
		}
	}
	sample = cutSample(sample, size > SampleSize)

	dialect, err := DetectDialect(sample)
	if err != nil {
		discard(tmp)
		return nil, err
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		discard(tmp)
		return nil, &PayloadError{URL: url, Err: fmt.Errorf("rewind payload: %w", err)}
	}

	rdr := csv.NewReader(tmp)
	rdr.Comma = dialect.Comma
	rdr.LazyQuotes = true
	rdr.TrimLeadingSpace = true
	rdr.ReuseRecord = true

	header, err := rdr.Read()
	if err != nil {
		discard(tmp)
		return nil, &PayloadError{URL: url, Err: fmt.Errorf("read header: %w", err)}
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	// Bind each schema column to its header position. Columns absent from
	// the header yield nil values rather than failing the stream.
	pos := make([]int, len(sch.Columns))
	for i, col := range sch.Columns {
		pos[i] = -1
		for j, name := range header {
			if name == col.Name {
				pos[i] = j
				break
			}
		}
	}

	return &Rows{
		file:        tmp,
		path:        tmp.Name(),
		rdr:         rdr,
		cols:        sch.Columns,
		pos:         pos,
		header:      header,
		skipBadRows: s.SkipBadRows,
		line:        1,
		size:        size,
		fingerprint: hasher.Sum64(),
		dialect:     dialect,
	}, nil
}

// Rows iterates the typed records of a buffered payload. Usage follows the
// sql.Rows shape: Next, Record, then Err after Next returns false.
type Rows struct {
	file        *os.File
	path        string
	rdr         *csv.Reader
	cols        []tableschema.Column
	pos         []int
	header      []string
	skipBadRows bool

	line        int
	count       int
	skipped     int
	size        int64
	fingerprint uint64
	dialect     Dialect

	cur    records.Record
	err    error
	closed bool
}

// Next advances to the next record. It returns false when the payload is
// exhausted or the stream aborted; Err distinguishes the two. The backing
// temporary file is released as soon as Next returns false.
func (r *Rows) Next() bool {
	if r.closed || r.err != nil {
		return false
	}
	for {
		row, err := r.rdr.Read()
		if err == io.EOF {
			r.Close()
			return false
		}
		r.line++
		if err != nil {
			if r.skipBadRows && isBadRow(err) {
				r.skipped++
				continue
			}
			r.err = fmt.Errorf("stream: read row: %w", err)
			r.Close()
			return false
		}

		rec, err := r.buildRecord(row)
		if err != nil {
			if r.skipBadRows {
				r.skipped++
				continue
			}
			r.err = err
			r.Close()
			return false
		}
		r.cur = rec
		r.count++
		return true
	}
}

// Record returns the record produced by the last successful Next.
func (r *Rows) Record() records.Record { return r.cur }

// Err returns the error that terminated iteration, if any.
func (r *Rows) Err() error { return r.err }

// Header returns the payload's header row, BOM stripped.
func (r *Rows) Header() []string { return r.header }

// Count returns the number of records produced so far.
func (r *Rows) Count() int { return r.count }

// Skipped returns the number of rows dropped in skip mode.
func (r *Rows) Skipped() int { return r.skipped }

// Size returns the buffered payload size in bytes.
func (r *Rows) Size() int64 { return r.size }

// Fingerprint returns the xxh3 hash of the raw payload bytes.
func (r *Rows) Fingerprint() uint64 { return r.fingerprint }

// Dialect returns the detected payload dialect.
func (r *Rows) Dialect() Dialect { return r.dialect }

// Close releases the buffered payload. It is idempotent and safe to call at
// any point during iteration.
func (r *Rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.file.Close()
	if rmErr := os.Remove(r.path); err == nil {
		err = rmErr
	}
	return err
}

// buildRecord maps a raw row onto the schema columns. Keys are exactly the
// schema column names. Empty values for date and number columns become nil,
// text values pass through unchanged.
func (r *Rows) buildRecord(row []string) (records.Record, error) {
	rec := make(records.Record, len(r.cols))
	for i, col := range r.cols {
		p := r.pos[i]
		if p < 0 || p >= len(row) {
			rec[col.Name] = nil
			continue
		}
		raw := row[p]
		if raw == "" && col.Kind != tableschema.KindText {
			rec[col.Name] = nil
			continue
		}
		v, err := col.Kind.Cast(raw)
		if err != nil {
			return nil, &RowCastError{Line: r.line, Column: col.Name, Value: raw, Err: err}
		}
		rec[col.Name] = v
	}
	return rec, nil
}

// isBadRow reports whether a read error is confined to a single row. Only
// such errors are skippable, anything else aborts even in skip mode.
func isBadRow(err error) bool {
	var pe *csv.ParseError
	return errors.As(err, &pe)
}

func discard(f *os.File) {
	f.Close()
	os.Remove(f.Name())
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
