package directory

import "encoding/json"

// Patient is a reference record sourced from the upstream claims backend.
// Age and income arrive as numbers on the wire; they are kept as json.Number
// so a missing value reads back as an empty string.
type Patient struct {
	PatientID               string      `json:"patient_id"`
	FirstName               string      `json:"first_name"`
	LastName                string      `json:"last_name"`
	PatientAge              json.Number `json:"patient_age"`
	PatientGender           string      `json:"patient_gender"`
	PatientIncome           json.Number `json:"patient_income"`
	PatientMaritalStatus    string      `json:"patient_marital_status"`
	PatientEmploymentStatus string      `json:"patient_employment_status"`
}

// Provider is a reference record sourced from the upstream claims backend.
// Depending on the backend revision, specialty and location are published
// either under the short or the prefixed field name.
type Provider struct {
	ProviderID        string `json:"provider_id"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Specialty         string `json:"specialty"`
	ProviderSpecialty string `json:"provider_specialty"`
	Location          string `json:"location"`
	ProviderLocation  string `json:"provider_location"`
}

// ResolvedSpecialty prefers the short field and falls back to the prefixed one.
func (p *Provider) ResolvedSpecialty() string {
	if p.Specialty != "" {
		return p.Specialty
	}
	return p.ProviderSpecialty
}

// ResolvedLocation prefers the short field and falls back to the prefixed one.
func (p *Provider) ResolvedLocation() string {
	if p.Location != "" {
		return p.Location
	}
	return p.ProviderLocation
}

// FullName returns the display name used in selection lists.
func (p *Provider) FullName() string {
	return joinName(p.FirstName, p.LastName)
}

// FullName returns the display name used in selection lists.
func (p *Patient) FullName() string {
	return joinName(p.FirstName, p.LastName)
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
