package export

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const headerFill = "366092"

// XLSXSink writes sheets as an Excel workbook with styled header rows.
type XLSXSink struct{}

func (XLSXSink) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXSink) Extension() string { return "xlsx" }

func (XLSXSink) Write(sheets []Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, errors.New("xlsx: no sheets")
	}
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("xlsx header style: %w", err)
	}
	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}})
	if err != nil {
		return nil, fmt.Errorf("xlsx title style: %w", err)
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.Name); err != nil {
				return nil, fmt.Errorf("xlsx rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return nil, fmt.Errorf("xlsx new sheet %q: %w", sh.Name, err)
		}
		if err := writeSheet(f, sh, headerStyle, titleStyle); err != nil {
			return nil, fmt.Errorf("xlsx sheet %q: %w", sh.Name, err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sh Sheet, headerStyle, titleStyle int) error {
	row := 1
	if sh.Title != "" {
		if err := f.SetCellValue(sh.Name, "A1", sh.Title); err != nil {
			return err
		}
		if err := f.SetCellStyle(sh.Name, "A1", "A1", titleStyle); err != nil {
			return err
		}
		row = 3
	}

	if len(sh.Headers) > 0 {
		start, _ := excelize.CoordinatesToCellName(1, row)
		end, _ := excelize.CoordinatesToCellName(len(sh.Headers), row)
		headers := make([]any, len(sh.Headers))
		for i, h := range sh.Headers {
			headers[i] = h
		}
		if err := f.SetSheetRow(sh.Name, start, &headers); err != nil {
			return err
		}
		if err := f.SetCellStyle(sh.Name, start, end, headerStyle); err != nil {
			return err
		}
		row++
	}

	for _, r := range sh.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := r
		if err := f.SetSheetRow(sh.Name, cell, &values); err != nil {
			return err
		}
		row++
	}

	for i, w := range sh.Widths {
		if w <= 0 {
			continue
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sh.Name, col, col, w); err != nil {
			return err
		}
	}
	return nil
}
