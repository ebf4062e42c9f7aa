package extractor

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExtractXLSX walks every sheet in workbook order. Each non-empty cell value
// is followed by a space and each row with content ends with a newline.
func ExtractXLSX(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read xlsx: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			wrote := false
			for _, cell := range row {
				if cell == "" {
					continue
				}
				sb.WriteString(cell)
				sb.WriteString(" ")
				wrote = true
			}
			if wrote {
				sb.WriteString("\n")
			}
		}
	}
	return sb.String(), nil
}
