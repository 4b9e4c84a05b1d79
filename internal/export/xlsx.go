// Package export writes enriched contact and company workbooks with
// localized headers.
package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leads-cli/internal/i18n"
	"github.com/sells-group/leads-cli/internal/model"
)

// Writer renders XLSX workbooks. Header language follows the catalog.
type Writer struct {
	catalog *i18n.Catalog
}

func NewWriter(catalog *i18n.Catalog) *Writer {
	return &Writer{catalog: catalog}
}

// ContactsFilename names the contact workbook for a scrape folder. The
// name signals whether company enrichment columns are present.
func ContactsFilename(folder string, withCompanies bool) string {
	if withCompanies {
		return folder + "_contacts_enriched_with_companies.xlsx"
	}
	return folder + "_contacts_enriched.xlsx"
}

// CompaniesFilename names the company workbook for a scrape folder.
func CompaniesFilename(folder string) string {
	return folder + "_companies.xlsx"
}

// WriteContacts writes the enriched contact sheet to path. When
// withCompanies is set, eight company columns are appended to the base
// fifteen.
func (w *Writer) WriteContacts(path string, contacts []model.Contact, withCompanies bool) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Contacts")
	if err != nil {
		return eris.Wrap(err, "export: add contacts sheet")
	}

	headers := w.catalog.List("excelHeaders")
	if withCompanies {
		headers = append(headers[:len(headers):len(headers)], w.catalog.List("companyEnrichmentHeaders")...)
	}
	addRow(sheet, headers)

	for _, c := range contacts {
		row := []string{
			c.PersonName, c.Title, c.FirstName, c.LastName,
			ToASCII(c.FirstName), ToASCII(c.LastName),
			c.JobTitle, c.Location, c.CompanyName,
			c.OrbisName, c.FilteredCompany, c.CompanyDomain,
			c.ProfileLink, c.PageURL, c.CompanyContacts,
		}
		if withCompanies {
			row = append(row,
				c.CompanyIndustry, c.CompanySize, c.CompanyDescription,
				c.CompanyLocation, c.CompanyWebsite, c.CompanyFoundedYear,
				c.CompanyType, c.CompanyLogoURL,
			)
		}
		addRow(sheet, row)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save contacts workbook")
	}
	return nil
}

// WriteCompanies writes the scraped company sheet to path.
func (w *Writer) WriteCompanies(path string, companies []model.Company) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Companies")
	if err != nil {
		return eris.Wrap(err, "export: add companies sheet")
	}

	addRow(sheet, w.catalog.List("companyExcelHeaders"))
	for _, c := range companies {
		addRow(sheet, []string{
			c.Name, c.Domain, c.Industry, c.Employees,
			c.Description, c.Location, c.SalesNavigatorLink, c.LogoURL,
		})
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save companies workbook")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().Value = v
	}
}
