package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"silkroute/internal/extraction"
)

const sheetName = "Declaration"

// WriteXLSX writes the declaration record as a styled XLSX workbook to w.
// Fields are grouped under their section in record order.
func WriteXLSX(w io.Writer, record *extraction.DeclarationRecord) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	sectionStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Italic: true},
	})
	if err != nil {
		return fmt.Errorf("creating section style: %w", err)
	}

	row := 1
	setRow(f, row, record.TemplateName, "", "", "")
	row += 2

	if err := f.SetCellStyle(sheetName, cell(1, row), cell(4, row), headerStyle); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	setRow(f, row, "Field", "Value", "Confidence", "Source")
	row++

	currentSection := ""
	for i := range record.Fields {
		field := &record.Fields[i]
		if field.Section != currentSection {
			currentSection = field.Section
			setRow(f, row, currentSection, "", "", "")
			_ = f.SetCellStyle(sheetName, cell(1, row), cell(1, row), sectionStyle)
			row++
		}
		label := field.Label
		if field.Required {
			label += " *"
		}
		setRow(f, row, label, field.Value, formatConfidence(field.Confidence), string(field.SourceDocumentType))
		row++
	}

	row++
	setRow(f, row, "Filled fields",
		fmt.Sprintf("%d / %d", record.Stats.FilledFields, record.Stats.TotalFields), "", "")
	row++
	setRow(f, row, "Required filled",
		fmt.Sprintf("%d / %d", record.Stats.FilledRequired, record.Stats.RequiredFields), "", "")

	_ = f.SetColWidth(sheetName, "A", "A", 40)
	_ = f.SetColWidth(sheetName, "B", "B", 50)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values ...string) {
	for i, v := range values {
		_ = f.SetCellValue(sheetName, cell(i+1, row), v)
	}
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
