package records

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const exportHeader = "\uFEFFOrganization Name,Organization Name URL,Website,CB Rank (Company),Headquarters Location,Description\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_CSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cluster.csv", exportHeader+
		`Acme Corp,https://www.crunchbase.com/organization/acme,acme.com,1200,"Paris, France",Widgets`+"\n"+
		`No Site,https://www.crunchbase.com/organization/nosite,,5,,`+"\n"+
		`,https://www.crunchbase.com/organization/anon,anon.io,6,,`+"\n")

	companies, err := LoadFile(path)

	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, Company{
		Name:         "Acme Corp",
		Website:      "https://acme.com",
		ProfileURL:   "https://www.crunchbase.com/organization/acme",
		Rank:         "1200",
		Headquarters: "Paris, France",
		Description:  "Widgets",
	}, companies[0])
}

func TestLoadFile_MissingColumn(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.csv", "Name,Site\nAcme,acme.com\n")

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFile_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]string{ColName, ColWebsite, ColRank}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]string{"Globex", "http://globex.com", "42"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	companies, err := LoadFile(path)

	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "Globex", companies[0].Name)
	assert.Equal(t, "http://globex.com", companies[0].Website)
	assert.Equal(t, "42", companies[0].Rank)
}

func TestLoadAll_DedupAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "a.csv", exportHeader+
		"Acme Corp,,https://Acme.com/,1,,\n"+
		"Initech,,initech.com,2,,\n")
	second := writeFile(t, dir, "b.csv", exportHeader+
		"Acme Duplicate,,http://www.acme.com,3,,\n"+
		"Globex,,globex.com,4,,\n")

	companies := LoadAll([]string{first, filepath.Join(dir, "missing.csv"), second})

	require.Len(t, companies, 3)
	assert.Equal(t, "Acme Corp", companies[0].Name, "first occurrence wins")
	assert.Equal(t, "Initech", companies[1].Name)
	assert.Equal(t, "Globex", companies[2].Name)
}

func TestCompanyKey(t *testing.T) {
	a := Company{Website: "https://Example.com/"}
	b := Company{Website: "http://www.example.com"}
	assert.Equal(t, a.Key(), b.Key())
}

func TestLoadAll_BareSchemeWebsitesAreNotDuplicates(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.csv", exportHeader+
		"Ghost One,,https://,1,,\n"+
		"Ghost Two,,http://,2,,\n"+
		"Acme Corp,,acme.com,3,,\n")

	companies := LoadAll([]string{path})

	require.Len(t, companies, 3)
	assert.Equal(t, "", companies[0].Key())
	assert.Equal(t, "", companies[1].Key())
	assert.Equal(t, "Ghost Two", companies[1].Name)
}
