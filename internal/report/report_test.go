package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/classifier"
	"github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleVerdicts() []classifier.Verdict {
	return []classifier.Verdict{
		{
			CompanyName:      "Acme Corp",
			OriginalWebsite:  "http://acme.com",
			Indicators:       []string{"acquisition link found via search"},
			Status:           classifier.StatusClosed,
			Confidence:       0.9,
			Notes:            "site unreachable",
			AnnouncementLink: "https://techcrunch.com/acme-acquired-by-bigco",
		},
		{
			CompanyName:     "Globex",
			OriginalWebsite: "https://globex.com",
			FinalURL:        "https://globex.com/en",
			Redirected:      true,
			Indicators:      []string{"acquisition keyword: 'now part of'", "acquirer: initech"},
			Status:          classifier.StatusAcquired,
			Confidence:      0.8,
			Notes:           classifier.NotesWithKeywords,
			AcquirerName:    "initech",
		},
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	require.NoError(t, WriteCSV(path, sampleVerdicts()))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, []string{
		"Globex", "https://globex.com", "https://globex.com/en", "true", "false",
		"acquisition keyword: 'now part of' | acquirer: initech",
		"ACQUIRED_AND_RUNNING", "0.80", classifier.NotesWithKeywords, "initech", "",
	}, rows[2])
	assert.Equal(t, "0.90", rows[1][7])

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteCSV_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, WriteCSV(path, sampleVerdicts()))
	require.NoError(t, WriteCSV(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "company_name,original_website,final_url,redirected,domain_changed,merger_indicators,status,confidence,notes,acquirer_name,announcement_link\n", string(data))
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	summary := metrics.Summary{TotalCompanies: 2, Closed: 1, AcquiredAndRunning: 1, WithAcquirerIdentified: 1}

	require.NoError(t, WriteXLSX(path, sampleVerdicts(), summary))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "Acme Corp", rows[1][0])
	assert.Equal(t, "CLOSED", rows[1][6])

	total, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", total)
}

func TestWriteSummaryJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	summary := metrics.Summary{TotalCompanies: 3, Unclear: 3}

	require.NoError(t, WriteSummaryJSON(path, summary))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 3, got["total_companies"])
	assert.Equal(t, 3, got["unclear"])
	assert.Contains(t, got, "from_reliable_sources")
}
