package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leads-cli/internal/i18n"
	"github.com/sells-group/leads-cli/internal/model"
)

func newTestWriter(t *testing.T, lang string) *Writer {
	t.Helper()
	catalog, err := i18n.New(lang)
	require.NoError(t, err)
	return NewWriter(catalog)
}

func readRows(t *testing.T, path, sheetName string) [][]string {
	t.Helper()
	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet[sheetName]
	require.True(t, ok, "sheet %q missing", sheetName)

	rows := make([][]string, len(sheet.Rows))
	for i, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows[i] = cells
	}
	return rows
}

func TestWriteContactsBaseColumns(t *testing.T) {
	w := newTestWriter(t, "en")
	path := filepath.Join(t.TempDir(), "contacts.xlsx")

	contacts := []model.Contact{{
		PersonName:      "José García",
		Title:           "Mr.",
		FirstName:       "José",
		LastName:        "García",
		JobTitle:        "CTO",
		Location:        "Madrid",
		CompanyName:     "Acme Corp",
		OrbisName:       "ACME CORP SA",
		FilteredCompany: "Acme",
		CompanyDomain:   "acme.com",
		ProfileLink:     "https://linkedin.com/in/jose",
		PageURL:         "https://linkedin.com/search/1",
		CompanyContacts: "12",
	}}

	require.NoError(t, w.WriteContacts(path, contacts, false))

	rows := readRows(t, path, "Contacts")
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 15)
	assert.Equal(t, "Full Name", rows[0][0])

	row := rows[1]
	assert.Equal(t, "José García", row[0])
	assert.Equal(t, "Jose", row[4])
	assert.Equal(t, "Garcia", row[5])
	assert.Equal(t, "acme.com", row[11])
	assert.Equal(t, "12", row[14])
}

func TestWriteContactsWithCompanyColumns(t *testing.T) {
	w := newTestWriter(t, "en")
	path := filepath.Join(t.TempDir(), "contacts.xlsx")

	contacts := []model.Contact{{
		PersonName:      "Jane Doe",
		CompanyIndustry: "Software",
		CompanySize:     "51-200",
		CompanyWebsite:  "https://acme.com",
	}}

	require.NoError(t, w.WriteContacts(path, contacts, true))

	rows := readRows(t, path, "Contacts")
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 23)
	assert.Equal(t, "Company Industry", rows[0][15])
	assert.Equal(t, "Software", rows[1][15])
	assert.Equal(t, "https://acme.com", rows[1][19])
}

func TestWriteContactsItalianHeaders(t *testing.T) {
	w := newTestWriter(t, "it")
	path := filepath.Join(t.TempDir(), "contacts.xlsx")

	require.NoError(t, w.WriteContacts(path, nil, false))

	rows := readRows(t, path, "Contacts")
	require.Len(t, rows, 1)
	assert.Equal(t, "Nome Completo", rows[0][0])
	assert.Equal(t, "Numero Contatti Azienda", rows[0][14])
}

func TestWriteCompanies(t *testing.T) {
	w := newTestWriter(t, "en")
	path := filepath.Join(t.TempDir(), "companies.xlsx")

	companies := []model.Company{{
		Name:               "Acme Corp",
		Domain:             "acme.com",
		Industry:           "Software",
		Employees:          "120",
		Description:        "Makes everything",
		Location:           "Springfield",
		SalesNavigatorLink: "https://linkedin.com/sales/company/1",
		LogoURL:            "https://cdn.acme.com/logo.png",
	}}

	require.NoError(t, w.WriteCompanies(path, companies))

	rows := readRows(t, path, "Companies")
	require.Len(t, rows, 2)
	assert.Equal(t, "Company Name", rows[0][0])
	assert.Equal(t, "120", rows[1][3])
	assert.Equal(t, "https://linkedin.com/sales/company/1", rows[1][6])
}

func TestExportFilenames(t *testing.T) {
	assert.Equal(t, "q3_contacts_enriched.xlsx", ContactsFilename("q3", false))
	assert.Equal(t, "q3_contacts_enriched_with_companies.xlsx", ContactsFilename("q3", true))
	assert.Equal(t, "q3_companies.xlsx", CompaniesFilename("q3"))
}
