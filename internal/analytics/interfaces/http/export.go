package http

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	analytics "airmon-cloud/internal/analytics/domain"
	telemetry "airmon-cloud/internal/telemetry/domain"
)

// BuildAveragesCSV renders one row per reported sensor field.
func BuildAveragesCSV(stationID string, window analytics.Window, result *analytics.Averages) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"station", "window", "field", "average", "samples"}); err != nil {
		return nil, err
	}
	for _, name := range telemetry.FieldNames() {
		mean, ok := result.Fields.Value(name)
		if !ok {
			continue
		}
		record := []string{
			stationID,
			string(window),
			name,
			strconv.FormatFloat(mean, 'f', -1, 64),
			strconv.Itoa(result.Counts[name]),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildAveragesXLSX renders a single-sheet workbook of field averages.
func BuildAveragesXLSX(stationID string, window analytics.Window, result *analytics.Averages) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "averages"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Station")
	_ = f.SetCellValue(sheet, "B1", stationID)
	_ = f.SetCellValue(sheet, "A2", "Window")
	_ = f.SetCellValue(sheet, "B2", string(window))
	_ = f.SetCellValue(sheet, "A3", "Readings")
	_ = f.SetCellValue(sheet, "B3", result.Samples)

	_ = f.SetCellValue(sheet, "A5", "Field")
	_ = f.SetCellValue(sheet, "B5", "Average")
	_ = f.SetCellValue(sheet, "C5", "Samples")
	row := 6
	for _, name := range telemetry.FieldNames() {
		mean, ok := result.Fields.Value(name)
		if !ok {
			continue
		}
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), name)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), mean)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), result.Counts[name])
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildAveragesPDF renders a minimal PDF of field averages.
func BuildAveragesPDF(stationID string, window analytics.Window, result *analytics.Averages) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Sensor Averages")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Station: %s", stationID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Window: %s", window))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Readings: %d", result.Samples))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Field", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Average", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Samples", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, name := range telemetry.FieldNames() {
		mean, ok := result.Fields.Value(name)
		if !ok {
			continue
		}
		pdf.CellFormat(50, 6, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, fmt.Sprintf("%.4f", mean), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, strconv.Itoa(result.Counts[name]), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
