package model

import "strings"

// Company represents a scraped company page record.
type Company struct {
	Name               string `json:"name"`
	Domain             string `json:"domain,omitempty"`
	Industry           string `json:"industry,omitempty"`
	Size               string `json:"size,omitempty"`
	Employees          string `json:"employees,omitempty"`
	Description        string `json:"description,omitempty"`
	Location           string `json:"location,omitempty"`
	Website            string `json:"website,omitempty"`
	FoundedYear        string `json:"founded_year,omitempty"`
	CompanyType        string `json:"company_type,omitempty"`
	LogoURL            string `json:"logo_url,omitempty"`
	SalesNavigatorLink string `json:"sales_navigator_link,omitempty"`
}

// Identifiers returns the lowercase lookup keys a contact can match this
// company by: the company name and the bare host of its domain.
func (c Company) Identifiers() []string {
	var ids []string
	if c.Name != "" {
		ids = append(ids, strings.ToLower(c.Name))
	}
	if host := BareHost(c.Domain); host != "" {
		ids = append(ids, strings.ToLower(host))
	}
	return ids
}

// BareHost strips the scheme, a leading "www." and any path from a URL or
// domain string.
func BareHost(s string) string {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}
