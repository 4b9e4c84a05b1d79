// Package model holds the scraped lead records the pipeline enriches and
// exports.
package model

// ExportStatus tracks whether an enrichment run is in flight. The status
// is persisted so a crashed run can be detected and reset on startup.
type ExportStatus string

const (
	StatusIdle       ExportStatus = "idle"
	StatusProcessing ExportStatus = "processing"
)

// Contact is a scraped person record plus the fields enrichment fills in.
type Contact struct {
	// Scraped fields.
	PersonName      string `json:"person_name"`
	JobTitle        string `json:"job_title,omitempty"`
	Location        string `json:"location,omitempty"`
	CompanyName     string `json:"company_name,omitempty"`
	OrbisName       string `json:"orbis_name,omitempty"`
	FilteredCompany string `json:"filtered_company,omitempty"`
	ProfileLink     string `json:"profile_link,omitempty"`
	PageURL         string `json:"page_url,omitempty"`
	CompanyContacts string `json:"company_contacts,omitempty"`

	// Filled in by name splitting.
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Title     string `json:"title,omitempty"`

	// Filled in by domain resolution.
	CompanyDomain string `json:"company_domain,omitempty"`

	// Merged from a matched company record.
	CompanyIndustry    string `json:"company_industry,omitempty"`
	CompanySize        string `json:"company_size,omitempty"`
	CompanyDescription string `json:"company_description,omitempty"`
	CompanyLocation    string `json:"company_location,omitempty"`
	CompanyWebsite     string `json:"company_website,omitempty"`
	CompanyFoundedYear string `json:"company_founded_year,omitempty"`
	CompanyType        string `json:"company_type,omitempty"`
	CompanyLogoURL     string `json:"company_logo_url,omitempty"`
}

// NameParts is the [first name, last name, title] triple the name-split
// lookup returns per contact.
type NameParts [3]string

func (p NameParts) First() string { return p[0] }
func (p NameParts) Last() string  { return p[1] }
func (p NameParts) Title() string { return p[2] }
