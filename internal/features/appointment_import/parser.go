package appointment_import

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go-clinic/pkg/apperrors"
	"go-clinic/pkg/importmap"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var allowedExtensions = map[string]bool{".csv": true, ".xlsx": true, ".xls": true}

// xlsMaxCols is the column limit of a BIFF8 worksheet.
const xlsMaxCols = 256

// Sheet is the first worksheet of an upload: the header row and the data rows keyed by
// header text.
type Sheet struct {
	Headers []string
	Rows    []importmap.RawRow
	// Lines holds the 1-based file row of each entry in Rows.
	Lines []int
}

// CheckFileName rejects anything that is not a CSV or Excel workbook.
func CheckFileName(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return apperrors.Validation("unsupported file type, upload a .csv, .xlsx or .xls file")
	}
	return nil
}

// ParseFile reads the upload into a Sheet. Blank lines are dropped.
func ParseFile(upload Upload) (*Sheet, error) {
	if err := CheckFileName(upload.Name); err != nil {
		return nil, err
	}
	var (
		records [][]string
		lines   []int
		err     error
	)
	switch strings.ToLower(filepath.Ext(upload.Name)) {
	case ".csv":
		records, lines, err = readCSV(bytes.NewReader(upload.Data))
	case ".xls":
		records, err = readXLS(bytes.NewReader(upload.Data))
	default:
		records, err = readExcel(bytes.NewReader(upload.Data))
	}
	if err != nil {
		return nil, err
	}
	return toSheet(records, lines)
}

// readCSV also returns the file line each record starts on, since the reader
// skips empty lines.
func readCSV(r io.Reader) ([][]string, []int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		out   [][]string
		lines []int
	)
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, apperrors.Validation(fmt.Sprintf("failed to read CSV: %v", err))
		}
		line, _ := reader.FieldPos(0)
		out = append(out, rec)
		lines = append(lines, line)
	}
	return out, lines, nil
}

func readExcel(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("failed to open Excel file: %v", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.Validation("no sheets found in Excel file")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("failed to read Excel rows: %v", err))
	}
	return rows, nil
}

// readXLS reads the first worksheet of a legacy BIFF workbook.
func readXLS(r io.ReadSeeker) (records [][]string, err error) {
	// The BIFF reader panics on truncated or malformed workbooks.
	defer func() {
		if p := recover(); p != nil {
			records, err = nil, apperrors.Validation(fmt.Sprintf("failed to read Excel file: %v", p))
		}
	}()

	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("failed to open Excel file: %v", err))
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, apperrors.Validation("no sheets found in Excel file")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, apperrors.Validation("no sheets found in Excel file")
	}
	records = make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		records = append(records, xlsRow(sheet, i))
	}
	return records, nil
}

// xlsRow returns the cells of row i up to the last non-empty one. WorkSheet.Row
// panics on rows the file never stored, which are blank.
func xlsRow(sheet *xls.WorkSheet, i int) (cells []string) {
	defer func() {
		if recover() != nil {
			cells = nil
		}
	}()
	row := sheet.Row(i)
	last := -1
	all := make([]string, xlsMaxCols)
	for j := 0; j < xlsMaxCols; j++ {
		all[j] = row.Col(j)
		if all[j] != "" {
			last = j
		}
	}
	return all[:last+1]
}

// toSheet keys data rows by header. lines gives the file line of each record; when
// nil, record i is on line i+1.
func toSheet(records [][]string, lines []int) (*Sheet, error) {
	if len(records) == 0 {
		return nil, apperrors.Validation("file is empty")
	}
	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		headers[i] = h
	}

	sheet := &Sheet{
		Headers: headers,
		Rows:    make([]importmap.RawRow, 0, len(records)-1),
		Lines:   make([]int, 0, len(records)-1),
	}
	for i, rec := range records {
		if i == 0 {
			continue
		}
		if blank(rec) {
			continue
		}
		row := make(importmap.RawRow, len(headers))
		for j, cell := range rec {
			if j < len(headers) && headers[j] != "" {
				row[headers[j]] = cell
			}
		}
		sheet.Rows = append(sheet.Rows, row)
		line := i + 1
		if lines != nil {
			line = lines[i]
		}
		sheet.Lines = append(sheet.Lines, line)
	}
	return sheet, nil
}

func blank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
