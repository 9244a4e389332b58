// Package report writes verdicts and their summary to CSV, XLSX and JSON.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/classifier"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/metrics"
	"github.com/xuri/excelize/v2"
)

// IndicatorSeparator joins indicators into one flat column.
const IndicatorSeparator = " | "

// Columns is the results header, in output order.
var Columns = []string{
	"company_name", "original_website", "final_url", "redirected",
	"domain_changed", "merger_indicators", "status", "confidence",
	"notes", "acquirer_name", "announcement_link",
}

// Row flattens a verdict into output columns.
func Row(v classifier.Verdict) []string {
	return []string{
		v.CompanyName,
		v.OriginalWebsite,
		v.FinalURL,
		strconv.FormatBool(v.Redirected),
		strconv.FormatBool(v.DomainChanged),
		strings.Join(v.Indicators, IndicatorSeparator),
		string(v.Status),
		strconv.FormatFloat(v.Confidence, 'f', 2, 64),
		v.Notes,
		v.AcquirerName,
		v.AnnouncementLink,
	}
}

// WriteCSV writes verdicts to path, replacing any existing file.
func WriteCSV(path string, verdicts []classifier.Verdict) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(Columns); err != nil {
		file.Close()
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, v := range verdicts {
		if err := w.Write(Row(v)); err != nil {
			file.Close()
			return fmt.Errorf("failed to write CSV row for %s: %w", v.CompanyName, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// WriteXLSX writes a workbook with a Results sheet and a Summary sheet.
func WriteXLSX(path string, verdicts []classifier.Verdict, summary metrics.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	const results = "Results"
	if err := f.SetSheetName(f.GetSheetName(0), results); err != nil {
		return fmt.Errorf("failed to name results sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(results, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, v := range verdicts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := make([]any, 0, len(Columns))
		for j, value := range Row(v) {
			switch Columns[j] {
			case "redirected":
				row = append(row, v.Redirected)
			case "domain_changed":
				row = append(row, v.DomainChanged)
			case "confidence":
				row = append(row, v.Confidence)
			default:
				row = append(row, value)
			}
		}
		if err := f.SetSheetRow(results, cell, &row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", v.CompanyName, err)
		}
	}

	if err := writeSummarySheet(f, summary); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, s metrics.Summary) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	rows := [][]any{
		{"metric", "count"},
		{"total_companies", s.TotalCompanies},
		{"acquired_and_running", s.AcquiredAndRunning},
		{"closed", s.Closed},
		{"unclear", s.Unclear},
		{"with_announcement_links", s.WithAnnouncementLinks},
		{"with_acquirer_identified", s.WithAcquirerIdentified},
		{"from_reliable_sources", s.FromReliableSources},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	return nil
}

// WriteSummaryJSON writes the summary as indented JSON.
func WriteSummaryJSON(path string, s metrics.Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}
