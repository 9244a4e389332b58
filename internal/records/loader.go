// Package records loads company lists exported from Crunchbase as CSV or XLSX.
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/urlnorm"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// Export column names.
const (
	ColName         = "Organization Name"
	ColWebsite      = "Website"
	ColProfileURL   = "Organization Name URL"
	ColRank         = "CB Rank (Company)"
	ColHeadquarters = "Headquarters Location"
	ColDescription  = "Description"
)

// Company is one input row. Everything but Name and Website is carried
// through untouched.
type Company struct {
	Name         string `json:"name"`
	Website      string `json:"website"`
	ProfileURL   string `json:"profile_url,omitempty"`
	Rank         string `json:"rank,omitempty"`
	Headquarters string `json:"headquarters,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Key identifies a company across files: scheme and www. do not matter.
func (c Company) Key() string {
	return urlnorm.DedupKey(c.Website)
}

// LoadAll reads every file in order and drops companies whose website was
// already seen. Websites with no usable host are never treated as duplicates. Missing or unreadable files are logged and skipped.
func LoadAll(paths []string) []Company {
	var all []Company
	seen := make(map[string]bool)

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			logrus.Warnf("Input file not found: %s", path)
			continue
		}

		logrus.Infof("Loading %s", path)
		companies, err := LoadFile(path)
		if err != nil {
			logrus.Errorf("Failed to load %s: %v", path, err)
			continue
		}

		added := 0
		for _, c := range companies {
			key := c.Key()
			if key == "" {
				// Kept without dedup: the classifier reports it as an invalid URL.
				all = append(all, c)
				added++
				continue
			}
			if seen[key] {
				logrus.Debugf("Duplicate skipped: %s (%s)", c.Name, key)
				continue
			}
			seen[key] = true
			all = append(all, c)
			added++
		}
		logrus.Infof("Loaded %d companies from %s (%d duplicates)", added, path, len(companies)-added)
	}

	return all
}

// LoadFile reads one .csv or .xlsx export. Rows missing a name or website
// are skipped.
func LoadFile(path string) ([]Company, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	return fromRows(rows)
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, path, err)
	}
	return rows, nil
}

func fromRows(rows [][]string) ([]Company, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	index := make(map[string]int)
	for i, h := range rows[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
		index[h] = i
	}
	if _, ok := index[ColName]; !ok {
		return nil, fmt.Errorf("missing %q column", ColName)
	}
	if _, ok := index[ColWebsite]; !ok {
		return nil, fmt.Errorf("missing %q column", ColWebsite)
	}

	get := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var companies []Company
	for _, row := range rows[1:] {
		name := get(row, ColName)
		website := get(row, ColWebsite)
		if name == "" || website == "" {
			continue
		}
		companies = append(companies, Company{
			Name:         name,
			Website:      urlnorm.CleanURL(website),
			ProfileURL:   get(row, ColProfileURL),
			Rank:         get(row, ColRank),
			Headquarters: get(row, ColHeadquarters),
			Description:  get(row, ColDescription),
		})
	}
	return companies, nil
}
