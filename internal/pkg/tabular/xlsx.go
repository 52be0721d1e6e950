package tabular

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
)

var zipSignature = []byte("PK\x03\x04")

func isWorkbook(data []byte) bool {
	return bytes.HasPrefix(data, zipSignature)
}

// loadWorkbook reads the first sheet of an xlsx workbook using the same
// header-offset policy as CSV input.
func loadWorkbook(data []byte, opts Options) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrUnreadable
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	usable := func(skip int) bool {
		return skip < len(rows) && !blankRow(rows[skip])
	}
	for _, skip := range opts.SkipOffsets {
		if usable(skip) && hasIndicator(rows[skip], opts.Indicators) {
			logger.Info().Str("sheet", sheets[0]).Int("skip_rows", skip).Msg("Header row located in workbook")
			return workbookTable(rows, skip), nil
		}
	}
	for _, skip := range []int{0, 1, 2} {
		if usable(skip) {
			logger.Warn().Str("sheet", sheets[0]).Int("skip_rows", skip).Msg("No indicator column found in workbook, using best-effort header")
			return workbookTable(rows, skip), nil
		}
	}
	return nil, ErrUnreadable
}

func workbookTable(rows [][]string, skip int) *Table {
	t := newTable(rows[skip], rows[skip+1:])
	t.Encoding, t.SkipRows = "xlsx", skip
	return t
}
