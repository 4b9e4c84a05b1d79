// Package ingest parses scraped contact and company records from CSV and
// XLSX files. The first row must be a header; columns are matched by name
// so column order does not matter.
package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leads-cli/internal/export"
	"github.com/sells-group/leads-cli/internal/model"
)

// ReadContacts loads contact records from a .csv or .xlsx file.
func ReadContacts(path string) ([]model.Contact, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	return decodeContacts(rows)
}

// ReadCompanies loads company records from a .csv or .xlsx file.
func ReadCompanies(path string) ([]model.Company, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	return decodeCompanies(rows)
}

func readRows(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".xlsx":
		return readXLSX(path)
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read csv row")
		}
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("ingest: workbook has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// columnKey normalizes a header cell so "Full Name", "full_name",
// "FullName" and the Italian "Località" variants all match.
func columnKey(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(export.ToASCII(header)) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var contactColumns = map[string]func(*model.Contact, string){
	"personname":          func(c *model.Contact, v string) { c.PersonName = v },
	"fullname":            func(c *model.Contact, v string) { c.PersonName = v },
	"nomecompleto":        func(c *model.Contact, v string) { c.PersonName = v },
	"jobtitle":            func(c *model.Contact, v string) { c.JobTitle = v },
	"titololavorativo":    func(c *model.Contact, v string) { c.JobTitle = v },
	"location":            func(c *model.Contact, v string) { c.Location = v },
	"localita":            func(c *model.Contact, v string) { c.Location = v },
	"companyname":         func(c *model.Contact, v string) { c.CompanyName = v },
	"contactcompany":      func(c *model.Contact, v string) { c.CompanyName = v },
	"aziendacontatto":     func(c *model.Contact, v string) { c.CompanyName = v },
	"orbis":               func(c *model.Contact, v string) { c.OrbisName = v },
	"orbisname":           func(c *model.Contact, v string) { c.OrbisName = v },
	"linkedincompany":     func(c *model.Contact, v string) { c.FilteredCompany = v },
	"filteredcompany":     func(c *model.Contact, v string) { c.FilteredCompany = v },
	"aziendalinkedin":     func(c *model.Contact, v string) { c.FilteredCompany = v },
	"linkedinprofile":     func(c *model.Contact, v string) { c.ProfileLink = v },
	"profilelink":         func(c *model.Contact, v string) { c.ProfileLink = v },
	"profilolinkedin":     func(c *model.Contact, v string) { c.ProfileLink = v },
	"linkedinpageurl":     func(c *model.Contact, v string) { c.PageURL = v },
	"pageurl":             func(c *model.Contact, v string) { c.PageURL = v },
	"companycontactcount": func(c *model.Contact, v string) { c.CompanyContacts = v },
	"companycontacts":     func(c *model.Contact, v string) { c.CompanyContacts = v },
}

var companyColumns = map[string]func(*model.Company, string){
	"name":               func(c *model.Company, v string) { c.Name = v },
	"companyname":        func(c *model.Company, v string) { c.Name = v },
	"nomeazienda":        func(c *model.Company, v string) { c.Name = v },
	"domain":             func(c *model.Company, v string) { c.Domain = v },
	"dominio":            func(c *model.Company, v string) { c.Domain = v },
	"industry":           func(c *model.Company, v string) { c.Industry = v },
	"settore":            func(c *model.Company, v string) { c.Industry = v },
	"size":               func(c *model.Company, v string) { c.Size = v },
	"companysize":        func(c *model.Company, v string) { c.Size = v },
	"employees":          func(c *model.Company, v string) { c.Employees = v },
	"description":        func(c *model.Company, v string) { c.Description = v },
	"descrizione":        func(c *model.Company, v string) { c.Description = v },
	"location":           func(c *model.Company, v string) { c.Location = v },
	"localita":           func(c *model.Company, v string) { c.Location = v },
	"website":            func(c *model.Company, v string) { c.Website = v },
	"foundedyear":        func(c *model.Company, v string) { c.FoundedYear = v },
	"companytype":        func(c *model.Company, v string) { c.CompanyType = v },
	"logourl":            func(c *model.Company, v string) { c.LogoURL = v },
	"salesnavigatorlink": func(c *model.Company, v string) { c.SalesNavigatorLink = v },
}

func decodeContacts(rows [][]string) ([]model.Contact, error) {
	if len(rows) == 0 {
		return nil, eris.New("ingest: file is empty")
	}

	setters, known := headerSetters(rows[0], contactColumns)
	if known == 0 {
		return nil, eris.New("ingest: no recognized contact columns in header")
	}

	var contacts []model.Contact
	for _, row := range rows[1:] {
		var c model.Contact
		applyRow(row, setters, &c)
		if c.PersonName == "" && c.CompanyName == "" && c.FilteredCompany == "" {
			continue
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

func decodeCompanies(rows [][]string) ([]model.Company, error) {
	if len(rows) == 0 {
		return nil, eris.New("ingest: file is empty")
	}

	setters, known := headerSetters(rows[0], companyColumns)
	if known == 0 {
		return nil, eris.New("ingest: no recognized company columns in header")
	}

	var companies []model.Company
	for _, row := range rows[1:] {
		var c model.Company
		applyRow(row, setters, &c)
		if c.Name == "" && c.Domain == "" {
			continue
		}
		companies = append(companies, c)
	}
	return companies, nil
}

func headerSetters[T any](header []string, columns map[string]func(*T, string)) ([]func(*T, string), int) {
	setters := make([]func(*T, string), len(header))
	known := 0
	for i, cell := range header {
		if set, ok := columns[columnKey(cell)]; ok {
			setters[i] = set
			known++
		}
	}
	return setters, known
}

func applyRow[T any](row []string, setters []func(*T, string), out *T) {
	for i, value := range row {
		if i >= len(setters) || setters[i] == nil || value == "" {
			continue
		}
		setters[i](out, value)
	}
}
