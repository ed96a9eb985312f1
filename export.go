package gitdict

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExportFilename is the download name of the CSV term table
const ExportFilename = "git_terms.csv"

var exportHeader = []string{"id", "name", "category", "short_description"}

func exportRow(t Term) []string {
	return []string{t.ID, t.Name, string(t.Category), t.ShortDescription}
}

// WriteCSV writes terms as a UTF-8 CSV table with a byte order mark so
// spreadsheet programs detect the encoding.
func WriteCSV(w io.Writer, terms []Term) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, t := range terms {
		if err := cw.Write(exportRow(t)); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes terms as a single sheet workbook
func WriteXLSX(w io.Writer, terms []Term) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Terms"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write xlsx header: %w", err)
	}
	for i, t := range terms {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{t.ID, t.Name, string(t.Category), t.ShortDescription}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write xlsx row %s: %w", t.ID, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}
