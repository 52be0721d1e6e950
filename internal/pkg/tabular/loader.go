package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
	"github.com/tracerstudy/tracer-sync/internal/pkg/textnorm"
)

// ErrUnreadable is returned when no encoding and header offset yields a table.
var ErrUnreadable = errors.New("file could not be parsed with any encoding or header offset")

var errInvalidUTF8 = errors.New("input is not valid utf-8")

// Indicator sets used by the reconciliation modes.
var (
	PersonIndicators  = []string{"nim", "nama", "prodi", "fakultas"}
	ProgramIndicators = []string{"program studi", "prodi", "fakultas"}
)

// Options controls the encoding/offset search.
type Options struct {
	// Indicators are header tokens, one of which must appear for an attempt to be accepted.
	Indicators []string
	// Encodings in trial order. Supported: utf-8, latin-1, iso-8859-1, cp1252.
	Encodings []string
	// SkipOffsets are the numbers of leading rows dropped before the header.
	SkipOffsets []int
	// SampleRows is the number of data rows read per attempt.
	SampleRows int
}

// DefaultOptions returns the trial matrix used when nothing is configured.
func DefaultOptions(indicators []string) Options {
	return Options{
		Indicators:  indicators,
		Encodings:   []string{"utf-8", "latin-1", "iso-8859-1", "cp1252"},
		SkipOffsets: []int{0, 1, 2},
		SampleRows:  5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions(o.Indicators)
	if len(o.Encodings) == 0 {
		o.Encodings = d.Encodings
	}
	if len(o.SkipOffsets) == 0 {
		o.SkipOffsets = d.SkipOffsets
	}
	if o.SampleRows <= 0 {
		o.SampleRows = d.SampleRows
	}
	return o
}

func lookupEncoding(name string) (encoding.Encoding, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return nil, true
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, true
	case "cp1252", "windows-1252":
		return charmap.Windows1252, true
	}
	return nil, false
}

// LoadFile reads a file from disk and loads it.
func LoadFile(path string, opts Options) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Load(data, opts)
}

// Load decodes raw file content. Workbooks are detected by their zip signature.
func Load(data []byte, opts Options) (*Table, error) {
	opts = opts.withDefaults()
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrUnreadable
	}
	if isWorkbook(data) {
		return loadWorkbook(data, opts)
	}

	for _, encName := range opts.Encodings {
		enc, ok := lookupEncoding(encName)
		if !ok {
			logger.Warn().Str("encoding", encName).Msg("Unsupported encoding in loader options, skipping")
			continue
		}
		for _, skip := range opts.SkipOffsets {
			headers, _, err := readCSV(data, enc, skip, opts.SampleRows)
			if err != nil || len(headers) == 0 {
				continue
			}
			if !hasIndicator(headers, opts.Indicators) {
				continue
			}
			headers, records, err := readCSV(data, enc, skip, -1)
			if err != nil {
				continue
			}
			logger.Info().Str("encoding", encName).Int("skip_rows", skip).Msg("Header row located")
			t := newTable(headers, records)
			t.Encoding, t.SkipRows = encName, skip
			return t, nil
		}
	}

	// No indicator anywhere: take the first offset that parses as utf-8.
	for _, skip := range []int{0, 1, 2} {
		headers, records, err := readCSV(data, nil, skip, -1)
		if err != nil || len(headers) == 0 {
			continue
		}
		logger.Warn().Int("skip_rows", skip).Msg("No indicator column found, using best-effort utf-8 decode")
		t := newTable(headers, records)
		t.Encoding, t.SkipRows = "utf-8", skip
		return t, nil
	}
	return nil, ErrUnreadable
}

func hasIndicator(headers []string, indicators []string) bool {
	if len(indicators) == 0 {
		return true
	}
	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = textnorm.Key(h)
	}
	joined := strings.Join(keys, " ")
	for _, tok := range indicators {
		if strings.Contains(joined, tok) {
			return true
		}
	}
	return false
}

// readCSV decodes data with enc (nil means utf-8), drops skip records and
// returns the header plus up to limit records (all when limit < 0).
func readCSV(data []byte, enc encoding.Encoding, skip, limit int) ([]string, [][]string, error) {
	var src io.Reader
	if enc == nil {
		if !utf8.Valid(data) {
			return nil, nil, errInvalidUTF8
		}
		src = bytes.NewReader(data)
	} else {
		src = transform.NewReader(bytes.NewReader(data), enc.NewDecoder())
	}

	br := stripUTF8BOM(bufio.NewReaderSize(src, sniffWindow))
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.Comma = sniffDelimiter(br, skip)

	for i := 0; i < skip; i++ {
		if _, err := r.Read(); err != nil {
			return nil, nil, err
		}
	}
	headers, err := r.Read()
	if err != nil {
		return nil, nil, err
	}
	if blankRow(headers) {
		return nil, nil, nil
	}

	var records [][]string
	for limit < 0 || len(records) < limit {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		records = append(records, rec)
	}
	return headers, records, nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

// sniffWindow bounds how far ahead the header line is looked for.
const sniffWindow = 64 << 10

// sniffDelimiter picks ';' over ',' when the header line, the one after skip
// leading lines, uses it more often. Spreadsheet tools in comma-decimal
// locales export CSV that way.
func sniffDelimiter(r *bufio.Reader, skip int) rune {
	peek, _ := r.Peek(sniffWindow)
	for ; skip > 0; skip-- {
		i := bytes.IndexByte(peek, '\n')
		if i < 0 {
			return ','
		}
		peek = peek[i+1:]
	}
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		peek = peek[:i]
	}
	if bytes.Count(peek, []byte{';'}) > bytes.Count(peek, []byte{','}) {
		return ';'
	}
	return ','
}
